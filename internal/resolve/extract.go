// Typed value extraction on top of the property finder.

package resolve

import (
	"github.com/worklens/worklens/internal/item"
	"github.com/worklens/worklens/internal/mapping"
	"github.com/worklens/worklens/internal/source"
)

// Extractor reads typed values for logical fields out of property bags.
type Extractor struct {
	finder *Finder
}

// NewExtractor creates an extractor using the given finder.
func NewExtractor(finder *Finder) *Extractor {
	return &Extractor{finder: finder}
}

// Title extracts the title mapped to name, concatenating text runs in
// order and dropping malformed runs. When the mapped field is missing, the
// first title-kind property anywhere in the bag is used. Returns "" if
// nothing is found.
func (e *Extractor) Title(bag map[string]source.PropertyValue, name string) string {
	pv, ok := e.finder.Find(bag, name, mapping.FieldTitle, source.KindTitle)
	if !ok {
		return ""
	}
	switch pv.Kind() {
	case source.KindTitle:
		return joinRuns(pv.Title)
	case source.KindRichText:
		return joinRuns(pv.RichText)
	}
	return ""
}

// joinRuns concatenates the text of each run, skipping runs that carry no
// text at all.
func joinRuns(runs []source.RichText) string {
	var b []byte
	for i := range runs {
		switch {
		case runs[i].Text != nil:
			b = append(b, runs[i].Text.Content...)
		case runs[i].PlainText != "":
			b = append(b, runs[i].PlainText...)
		}
	}
	return string(b)
}

// Select extracts the inner label of a select-or-status property.
func (e *Extractor) Select(bag map[string]source.PropertyValue, name string, logical mapping.LogicalField) (string, bool) {
	pv, ok := e.finder.Find(bag, name, logical, "")
	if !ok {
		return "", false
	}
	switch pv.Kind() {
	case source.KindSelect:
		if pv.Select != nil {
			return pv.Select.Name, true
		}
	case source.KindStatus:
		if pv.Status != nil {
			return pv.Status.Name, true
		}
	}
	return "", false
}

// Status is Select under its other name: status properties resolve the
// same way.
func (e *Extractor) Status(bag map[string]source.PropertyValue, name string) (string, bool) {
	return e.Select(bag, name, mapping.FieldStatus)
}

// MultiSelect extracts the ordered label list of a multi-select property.
// Absent or wrong-kind fields yield an empty list.
func (e *Extractor) MultiSelect(bag map[string]source.PropertyValue, name string, logical mapping.LogicalField) []string {
	pv, ok := e.finder.Find(bag, name, logical, "")
	if !ok || pv.Kind() != source.KindMultiSelect {
		return []string{}
	}
	labels := make([]string, 0, len(pv.MultiSelect))
	for i := range pv.MultiSelect {
		labels = append(labels, pv.MultiSelect[i].Name)
	}
	return labels
}

// Number extracts a numeric property value.
func (e *Extractor) Number(bag map[string]source.PropertyValue, name string, logical mapping.LogicalField) (float64, bool) {
	pv, ok := e.finder.Find(bag, name, logical, "")
	if !ok || pv.Kind() != source.KindNumber || pv.Number == nil {
		return 0, false
	}
	return *pv.Number, true
}

// Date extracts the start of a date-range property.
func (e *Extractor) Date(bag map[string]source.PropertyValue, name string, logical mapping.LogicalField) (string, bool) {
	pv, ok := e.finder.Find(bag, name, logical, "")
	if !ok || pv.Kind() != source.KindDate || pv.Date == nil {
		return "", false
	}
	return pv.Date.Start, true
}

// People extracts the person list of a people property, dropping entries
// without an id. Missing names default to "Unknown".
func (e *Extractor) People(bag map[string]source.PropertyValue, name string, logical mapping.LogicalField) []item.Person {
	pv, ok := e.finder.Find(bag, name, logical, "")
	if !ok || pv.Kind() != source.KindPeople {
		return nil
	}
	people := make([]item.Person, 0, len(pv.People))
	for i := range pv.People {
		p := &pv.People[i]
		if p.ID == "" {
			continue
		}
		norm := item.Person{ID: NormalizeUUID(p.ID), Name: p.Name}
		if norm.Name == "" {
			norm.Name = "Unknown"
		}
		if p.Person != nil {
			norm.Email = p.Person.Email
		}
		if p.AvatarURL != nil {
			norm.AvatarURL = *p.AvatarURL
		}
		people = append(people, norm)
	}
	return people
}

// Relation extracts the normalized id list of a relation property,
// dropping empty ids. The relation-kind fallback applies, so a lone
// relation property matches even under an unmapped name.
func (e *Extractor) Relation(bag map[string]source.PropertyValue, name string, logical mapping.LogicalField) []string {
	pv, ok := e.finder.Find(bag, name, logical, source.KindRelation)
	if !ok || pv.Kind() != source.KindRelation {
		return nil
	}
	ids := make([]string, 0, len(pv.Relation))
	for i := range pv.Relation {
		if pv.Relation[i].ID == "" {
			continue
		}
		ids = append(ids, NormalizeUUID(pv.Relation[i].ID))
	}
	return ids
}
