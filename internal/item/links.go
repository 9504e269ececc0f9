// Builds the parent/child adjacency over a flat item set.

package item

import "log/slog"

// BuildRelationships rebuilds every item's Children list from the ParentID
// pointers in a single pass and returns the orphans: items whose declared
// parent is absent from the set.
//
// No recursion, so arbitrarily large flat sets are safe. Cyclic parent
// pointers are possible upstream and are not resolved here; any consumer
// walking ancestors must carry its own visited set and an iteration cap.
func BuildRelationships(items []*Item) []Orphan {
	byID := make(map[string]*Item, len(items))
	for _, it := range items {
		it.Children = nil
		byID[it.ID] = it
	}

	var orphans []Orphan
	for _, it := range items {
		if it.ParentID == "" {
			continue
		}
		parent, ok := byID[it.ParentID]
		if !ok {
			orphans = append(orphans, Orphan{ID: it.ID, Title: it.Title, ParentID: it.ParentID})
			continue
		}
		parent.Children = append(parent.Children, it.ID)
	}

	if len(orphans) > 0 {
		slog.Debug("Items reference parents outside the working set", "count", len(orphans), "orphans", orphans)
	}
	return orphans
}
