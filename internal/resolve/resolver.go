// Locates logical fields inside arbitrarily-named property bags.

package resolve

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/worklens/worklens/internal/mapping"
	"github.com/worklens/worklens/internal/source"
)

// Finder resolves a logical field to a concrete property in a bag using
// tiered matching: exact name, case-insensitive name, aliases in order,
// then a kind-based fallback. One Finder per session; it carries the alias
// table in effect.
type Finder struct {
	aliases mapping.AliasTable
}

// NewFinder creates a finder using the given alias table. A nil table
// falls back to the built-in defaults.
func NewFinder(aliases mapping.AliasTable) *Finder {
	if aliases == nil {
		aliases = mapping.DefaultAliases()
	}
	return &Finder{aliases: aliases}
}

// sortedKeys returns the bag's keys in sorted order. Go map iteration is
// randomized, so every fallback tier walks keys sorted to keep picks
// stable across runs.
func sortedKeys(bag map[string]source.PropertyValue) []string {
	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Find locates the property for a logical field. name is the physical name
// the mapping assigns to the field; logical selects the alias list;
// fallbackKind, when non-empty, allows matching any property of that kind
// as a last resort. First match wins:
//
//  1. exact key
//  2. case-insensitive key
//  3. case-insensitive match against each alias, in alias order
//  4. first property of fallbackKind
//  5. for the parent field (or a relation fallback), the first
//     relation-kind property regardless of name
func (f *Finder) Find(bag map[string]source.PropertyValue, name string, logical mapping.LogicalField, fallbackKind string) (source.PropertyValue, bool) {
	if pv, ok := bag[name]; ok {
		return pv, true
	}

	keys := sortedKeys(bag)
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return bag[k], true
		}
	}

	for _, alias := range f.aliases[logical] {
		for _, k := range keys {
			if strings.EqualFold(k, alias) {
				return bag[k], true
			}
		}
	}

	if fallbackKind != "" {
		for _, k := range keys {
			pv := bag[k]
			if pv.Kind() == fallbackKind {
				return pv, true
			}
		}
	}

	// A parent link is almost always the only relation property, so take
	// the first relation in the bag even when no name matched. Heuristic:
	// with several relation properties the pick is bag-order, so flag it.
	if logical == mapping.FieldParent || strings.EqualFold(name, "parent") || fallbackKind == source.KindRelation {
		var found source.PropertyValue
		var foundKey string
		relations := 0
		for _, k := range keys {
			pv := bag[k]
			if pv.Kind() == source.KindRelation {
				relations++
				if foundKey == "" {
					found, foundKey = pv, k
				}
			}
		}
		if foundKey != "" {
			if relations > 1 {
				slog.Debug("Multiple relation properties, picking first by name; add an explicit mapping",
					"field", name, "picked", foundKey, "candidates", relations)
			}
			return found, true
		}
	}

	return source.PropertyValue{}, false
}

// HasValue reports whether a property carries an actual value: select and
// status need an inner value, relation and people need a non-empty list,
// number and date need non-nil payloads. Other kinds count as present.
func HasValue(pv source.PropertyValue) bool {
	switch pv.Kind() {
	case source.KindSelect:
		return pv.Select != nil
	case source.KindStatus:
		return pv.Status != nil
	case source.KindRelation:
		return len(pv.Relation) > 0
	case source.KindPeople:
		return len(pv.People) > 0
	case source.KindNumber:
		return pv.Number != nil
	case source.KindDate:
		return pv.Date != nil
	default:
		return true
	}
}
