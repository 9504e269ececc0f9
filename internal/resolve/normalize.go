// Normalizes raw field values: record ids, status, priority.

package resolve

import (
	"strings"

	"github.com/google/uuid"
	"github.com/worklens/worklens/internal/item"
)

// NormalizeUUID canonicalizes a record id: hyphens stripped, lowercased,
// and re-hyphenated as 8-4-4-4-12 when the result is exactly 32 hex
// characters. Anything else is returned unchanged. Idempotent.
func NormalizeUUID(s string) string {
	compact := strings.ToLower(strings.ReplaceAll(s, "-", ""))
	if len(compact) != 32 {
		return s
	}
	canonical := compact[:8] + "-" + compact[8:12] + "-" + compact[12:16] + "-" + compact[16:20] + "-" + compact[20:]
	u, err := uuid.Parse(canonical)
	if err != nil {
		// 32 characters but not hex.
		return s
	}
	return u.String()
}

// MapStatus trims a raw status value, defaulting to "Not Started" when
// empty. Values are preserved verbatim, never canonicalized.
func MapStatus(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return item.DefaultStatus
	}
	return trimmed
}

// exactPriorities maps lowercase priority labels to buckets.
var exactPriorities = map[string]item.Priority{
	"p0":        item.PriorityP0,
	"p1":        item.PriorityP1,
	"p2":        item.PriorityP2,
	"p3":        item.PriorityP3,
	"p4":        item.PriorityP3,
	"critical":  item.PriorityP0,
	"highest":   item.PriorityP0,
	"urgent":    item.PriorityP0,
	"blocker":   item.PriorityP0,
	"high":      item.PriorityP1,
	"important": item.PriorityP1,
	"medium":    item.PriorityP2,
	"normal":    item.PriorityP2,
	"moderate":  item.PriorityP2,
	"low":       item.PriorityP3,
	"minor":     item.PriorityP3,
	"trivial":   item.PriorityP3,
	"lowest":    item.PriorityP3,
}

// containsPriorities is consulted in order when no exact label matches.
var containsPriorities = []struct {
	substr string
	p      item.Priority
}{
	{"critical", item.PriorityP0},
	{"urgent", item.PriorityP0},
	{"high", item.PriorityP1},
	{"medium", item.PriorityP2},
	{"normal", item.PriorityP2},
	{"low", item.PriorityP3},
}

// MapPriority normalizes a raw priority label to a bucket: exact match
// first, then ordered substring containment, else nil. Case-insensitive.
func MapPriority(raw string) *item.Priority {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if norm == "" {
		return nil
	}
	if p, ok := exactPriorities[norm]; ok {
		return &p
	}
	for _, c := range containsPriorities {
		if strings.Contains(norm, c.substr) {
			p := c.p
			return &p
		}
	}
	return nil
}
