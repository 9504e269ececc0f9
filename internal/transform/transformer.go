// Converts raw source records into normalized items.

package transform

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/worklens/worklens/internal/item"
	"github.com/worklens/worklens/internal/mapping"
	"github.com/worklens/worklens/internal/resolve"
	"github.com/worklens/worklens/internal/source"
)

// Transformer converts raw records into normalized items using the mapping
// in effect. One instance per logical session; its diagnostics state is an
// instance field, reset only via ResetDiagnostics on a mapping change.
type Transformer struct {
	ext *resolve.Extractor
	cfg *mapping.Config

	mu   sync.Mutex
	seen map[string]bool // type tags already snapshotted
}

// New creates a transformer for the given mapping config and alias table.
func New(cfg *mapping.Config, aliases mapping.AliasTable) *Transformer {
	if cfg == nil {
		cfg = mapping.DefaultConfig()
	}
	return &Transformer{
		ext:  resolve.NewExtractor(resolve.NewFinder(aliases)),
		cfg:  cfg,
		seen: make(map[string]bool),
	}
}

// ResetDiagnostics clears the per-type-tag snapshot state. Call it when
// the mapping config changes so the next batch logs fresh snapshots.
func (t *Transformer) ResetDiagnostics() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[string]bool)
}

// Transform converts one record into a normalized item. typeTag labels the
// record's source kind; sourceID selects mapping overrides.
func (t *Transformer) Transform(rec *source.Record, typeTag, sourceID string) *item.Item {
	t.snapshotBag(rec, typeTag)

	eff := t.cfg.Effective(sourceID)
	bag := rec.Properties

	it := &item.Item{
		ID:             resolve.NormalizeUUID(rec.ID),
		Type:           typeTag,
		Source:         sourceID,
		CreatedTime:    rec.CreatedTime,
		LastEditedTime: rec.LastEditedTime,
		URL:            rec.URL,
	}

	it.Title = t.ext.Title(bag, eff[mapping.FieldTitle])
	if it.Title == "" {
		it.Title = "Untitled"
	}

	rawStatus, _ := t.ext.Status(bag, eff[mapping.FieldStatus])
	it.Status = resolve.MapStatus(rawStatus)

	if raw, ok := t.ext.Select(bag, eff[mapping.FieldPriority], mapping.FieldPriority); ok {
		it.Priority = resolve.MapPriority(raw)
	}

	if n, ok := t.ext.Number(bag, eff[mapping.FieldProgress], mapping.FieldProgress); ok {
		it.Progress = &n
	}

	people := t.ext.People(bag, eff[mapping.FieldOwner], mapping.FieldOwner)
	if len(people) > 0 {
		owner := people[0]
		it.Owner = &owner
		it.Assignees = people
	}

	if parents := t.ext.Relation(bag, eff[mapping.FieldParent], mapping.FieldParent); len(parents) > 0 {
		it.ParentID = parents[0]
	}

	if due, ok := t.ext.Date(bag, eff[mapping.FieldDueDate], mapping.FieldDueDate); ok {
		it.DueDate = due
	}

	it.Tags = t.ext.MultiSelect(bag, eff[mapping.FieldTags], mapping.FieldTags)

	return it
}

// TransformBatch converts records in order, skipping any record without a
// property bag.
func (t *Transformer) TransformBatch(recs []source.Record, typeTag, sourceID string) []*item.Item {
	items := make([]*item.Item, 0, len(recs))
	for i := range recs {
		if recs[i].Properties == nil {
			continue
		}
		items = append(items, t.Transform(&recs[i], typeTag, sourceID))
	}
	return items
}

// snapshotBag logs the bag's field names and kinds once per type tag, so
// mapping mismatches are diagnosable from logs without dumping every
// record.
func (t *Transformer) snapshotBag(rec *source.Record, typeTag string) {
	t.mu.Lock()
	if t.seen[typeTag] {
		t.mu.Unlock()
		return
	}
	t.seen[typeTag] = true
	t.mu.Unlock()

	fields := make([]string, 0, len(rec.Properties))
	for name := range rec.Properties {
		pv := rec.Properties[name]
		fields = append(fields, name+":"+pv.Kind())
	}
	sort.Strings(fields)
	slog.Debug("Property bag snapshot", "type", typeTag, "fields", fields)
}
