package transform

import (
	"reflect"
	"testing"
	"time"

	"github.com/worklens/worklens/internal/item"
	"github.com/worklens/worklens/internal/mapping"
	"github.com/worklens/worklens/internal/source"
)

func titleProp(text string) source.PropertyValue {
	return source.PropertyValue{Type: source.KindTitle, Title: []source.RichText{{PlainText: text}}}
}

func selectProp(name string) source.PropertyValue {
	return source.PropertyValue{Type: source.KindSelect, Select: &source.SelectValue{Name: name}}
}

func TestTransform(t *testing.T) {
	tf := New(nil, nil)
	progress := 60.0
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rec := &source.Record{
		ID:          "11112222333344445555666677778888",
		URL:         "https://example.com/p/1",
		CreatedTime: created,
		Properties: map[string]source.PropertyValue{
			"Name":     titleProp("Ship it"),
			"Status":   {Type: source.KindStatus, Status: &source.SelectValue{Name: "In Progress"}},
			"Priority": selectProp("Critical"),
			"Progress": {Type: source.KindNumber, Number: &progress},
			"Owner": {Type: source.KindPeople, People: []source.Person{
				{ID: "u1", Name: "Ada"},
				{ID: "u2", Name: "Grace"},
			}},
			"Parent":   {Type: source.KindRelation, Relation: []source.RelationValue{{ID: "p1"}}},
			"Due Date": {Type: source.KindDate, Date: &source.DateValue{Start: "2026-03-01"}},
			"Tags":     {Type: source.KindMultiSelect, MultiSelect: []source.SelectValue{{Name: "infra"}}},
		},
	}

	it := tf.Transform(rec, "task", "src-1")

	if it.ID != "11112222-3333-4444-5555-666677778888" {
		t.Errorf("ID = %q, want normalized uuid", it.ID)
	}
	if it.Title != "Ship it" {
		t.Errorf("Title = %q", it.Title)
	}
	if it.Type != "task" || it.Source != "src-1" {
		t.Errorf("Type/Source = %q/%q", it.Type, it.Source)
	}
	if it.Status != "In Progress" {
		t.Errorf("Status = %q", it.Status)
	}
	if it.Priority == nil || *it.Priority != item.PriorityP0 {
		t.Errorf("Priority = %v, want P0", it.Priority)
	}
	if it.Progress == nil || *it.Progress != 60 {
		t.Errorf("Progress = %v", it.Progress)
	}
	if it.Owner == nil || it.Owner.Name != "Ada" {
		t.Errorf("Owner = %+v", it.Owner)
	}
	if len(it.Assignees) != 2 {
		t.Errorf("Assignees = %+v", it.Assignees)
	}
	if it.ParentID != "p1" {
		t.Errorf("ParentID = %q", it.ParentID)
	}
	if it.DueDate != "2026-03-01" {
		t.Errorf("DueDate = %q", it.DueDate)
	}
	if !reflect.DeepEqual(it.Tags, []string{"infra"}) {
		t.Errorf("Tags = %v", it.Tags)
	}
	if !it.CreatedTime.Equal(created) {
		t.Errorf("CreatedTime = %v", it.CreatedTime)
	}
	if it.URL != "https://example.com/p/1" {
		t.Errorf("URL = %q", it.URL)
	}
}

func TestTransformDefaults(t *testing.T) {
	tf := New(nil, nil)

	it := tf.Transform(&source.Record{
		ID:         "rec-1",
		Properties: map[string]source.PropertyValue{},
	}, "task", "")

	if it.Title != "Untitled" {
		t.Errorf("Title = %q, want Untitled", it.Title)
	}
	if it.Status != item.DefaultStatus {
		t.Errorf("Status = %q, want %q", it.Status, item.DefaultStatus)
	}
	if it.Priority != nil || it.Progress != nil || it.Owner != nil {
		t.Errorf("expected nil optionals, got %+v", it)
	}
	if it.Tags == nil || len(it.Tags) != 0 {
		t.Errorf("Tags = %v, want empty list", it.Tags)
	}
}

func TestTransformOverrides(t *testing.T) {
	cfg := mapping.DefaultConfig()
	cfg.Overrides = map[string]map[mapping.LogicalField]string{
		"src-a": {mapping.FieldStatus: "Pipeline Stage"},
	}
	tf := New(cfg, nil)

	rec := &source.Record{
		ID: "rec-1",
		Properties: map[string]source.PropertyValue{
			"Name":           titleProp("X"),
			"Pipeline Stage": {Type: source.KindStatus, Status: &source.SelectValue{Name: "Review"}},
		},
	}

	if it := tf.Transform(rec, "task", "src-a"); it.Status != "Review" {
		t.Errorf("override source status = %q", it.Status)
	}
	// A different source does not see the override; the alias table does
	// not know "Pipeline Stage" either, so the default applies.
	if it := tf.Transform(rec, "task", "src-b"); it.Status != item.DefaultStatus {
		t.Errorf("other source status = %q", it.Status)
	}
}

func TestTransformBatch(t *testing.T) {
	tf := New(nil, nil)
	recs := []source.Record{
		{ID: "a", Properties: map[string]source.PropertyValue{"Name": titleProp("A")}},
		{ID: "b"}, // no property bag, skipped
		{ID: "c", Properties: map[string]source.PropertyValue{"Name": titleProp("C")}},
	}

	items := tf.TransformBatch(recs, "task", "src")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "A" || items[1].Title != "C" {
		t.Errorf("unexpected batch order: %q, %q", items[0].Title, items[1].Title)
	}
}

func TestResetDiagnostics(t *testing.T) {
	tf := New(nil, nil)
	rec := &source.Record{ID: "a", Properties: map[string]source.PropertyValue{"Name": titleProp("A")}}

	tf.Transform(rec, "task", "")
	if !tf.seen["task"] {
		t.Fatal("expected type tag to be snapshotted")
	}
	tf.ResetDiagnostics()
	if len(tf.seen) != 0 {
		t.Errorf("expected snapshot state cleared, got %v", tf.seen)
	}
}
