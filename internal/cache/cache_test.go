package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/worklens/worklens/internal/item"
)

// clock is a controllable Now seam.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func testItems(ids ...string) []*item.Item {
	items := make([]*item.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, &item.Item{ID: id, Title: "Item " + id, Status: item.DefaultStatus})
	}
	return items
}

func TestEphemeralTier(t *testing.T) {
	ck := newClock()
	m := New("", Options{Now: ck.now})

	t.Run("MissWhenEmpty", func(t *testing.T) {
		if _, ok := m.Get("scope"); ok {
			t.Error("expected miss on empty cache")
		}
	})

	t.Run("SetThenGet", func(t *testing.T) {
		m.Set("scope", testItems("a", "b"))
		e, ok := m.Get("scope")
		if !ok || len(e.Items) != 2 {
			t.Fatalf("Get = %+v, %v", e, ok)
		}
	})

	t.Run("ExpiresAfterTTL", func(t *testing.T) {
		ck.advance(DefaultTTL)
		if _, ok := m.Get("scope"); ok {
			t.Error("expected miss after TTL elapsed")
		}
	})

	t.Run("StaleStillReadable", func(t *testing.T) {
		e, ok := m.GetStale("scope")
		if !ok || len(e.Items) != 2 {
			t.Errorf("GetStale = %+v, %v", e, ok)
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		m.Invalidate("scope")
		if _, ok := m.GetStale("scope"); ok {
			t.Error("expected invalidated key to be gone even for stale reads")
		}
	})
}

func TestCustomTTL(t *testing.T) {
	ck := newClock()
	m := New("", Options{TTL: time.Minute, Now: ck.now})
	m.Set("k", testItems("a"))

	ck.advance(59 * time.Second)
	if _, ok := m.Get("k"); !ok {
		t.Error("expected hit just inside the TTL")
	}
	ck.advance(time.Second)
	if _, ok := m.Get("k"); ok {
		t.Error("expected miss exactly at the TTL boundary")
	}
}

func TestDurableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ck := newClock()

	m1 := New(dir, Options{Now: ck.now})
	m1.Set("db-a,db-b", testItems("x", "y"))

	// A new manager over the same directory hydrates from disk.
	m2 := New(dir, Options{Now: ck.now})
	e, ok := m2.Get("db-a,db-b")
	if !ok {
		t.Fatal("expected durable entry to survive restart")
	}
	if len(e.Items) != 2 || e.Items[0].ID != "x" {
		t.Errorf("restored entry = %+v", e)
	}
}

func TestBootstrapGarbageCollection(t *testing.T) {
	dir := t.TempDir()
	ck := newClock()

	m1 := New(dir, Options{Now: ck.now})
	m1.Set("old", testItems("a"))
	ck.advance(2 * time.Hour)
	m1.Set("fresh", testItems("b"))

	// Advance past the durable TTL of the old entry only.
	ck.advance(DefaultDurableTTL - time.Hour)
	m2 := New(dir, Options{Now: ck.now})

	if _, ok := m2.GetStale("old"); ok {
		t.Error("expected expired durable entry to be dropped at bootstrap")
	}
	if _, ok := m2.GetStale("fresh"); !ok {
		t.Error("expected fresh durable entry to survive bootstrap")
	}
	if _, err := os.Stat(filepath.Join(dir, entryFileName("old"))); !os.IsNotExist(err) {
		t.Error("expected expired entry file to be garbage-collected")
	}
}

func TestBootstrapDropsMalformedEntries(t *testing.T) {
	dir := t.TempDir()
	ck := newClock()

	m1 := New(dir, Options{Now: ck.now})
	m1.Set("good", testItems("a"))
	m1.Set("bad-shape", testItems("b"))
	m1.Set("bad-json", testItems("c"))
	m1.Set("null-items", testItems("d"))

	// Corrupt three of the four files: items must be an array (null is
	// not) and the timestamp positive.
	shape, _ := json.Marshal(map[string]any{"items": "not-an-array", "timestamp": ck.now().UnixMilli()})
	if err := os.WriteFile(filepath.Join(dir, entryFileName("bad-shape")), shape, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, entryFileName("bad-json")), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	nullItems, _ := json.Marshal(map[string]any{"items": nil, "timestamp": ck.now().UnixMilli()})
	if err := os.WriteFile(filepath.Join(dir, entryFileName("null-items")), nullItems, 0o644); err != nil {
		t.Fatal(err)
	}

	m2 := New(dir, Options{Now: ck.now})
	if _, ok := m2.Get("good"); !ok {
		t.Error("expected intact entry to load")
	}
	if _, ok := m2.GetStale("bad-shape"); ok {
		t.Error("expected shape-invalid entry to be dropped")
	}
	if _, ok := m2.GetStale("bad-json"); ok {
		t.Error("expected unparseable entry to be dropped")
	}
	if _, ok := m2.GetStale("null-items"); ok {
		t.Error("expected null-items entry to be dropped")
	}

	// The manifest no longer lists the dropped keys.
	var man manifest
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &man); err != nil {
		t.Fatal(err)
	}
	if len(man.Keys) != 1 || man.Keys[0] != "good" {
		t.Errorf("manifest keys = %v, want [good]", man.Keys)
	}
}

func TestCorruptManifestResets(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	ck := newClock()
	m := New(dir, Options{Now: ck.now})

	// Degrades to empty, then keeps working.
	if _, ok := m.GetStale("anything"); ok {
		t.Error("expected empty cache after manifest corruption")
	}
	m.Set("k", testItems("a"))
	if _, ok := m.Get("k"); !ok {
		t.Error("expected cache to keep working after reset")
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	ck := newClock()
	m := New(dir, Options{Now: ck.now})
	m.Set("a", testItems("1"))
	m.Set("b", testItems("2"))

	m.Clear()

	if _, ok := m.GetStale("a"); ok {
		t.Error("expected ephemeral tier wiped")
	}
	if _, err := os.Stat(filepath.Join(dir, manifestFile)); !os.IsNotExist(err) {
		t.Error("expected manifest removed")
	}
	if _, err := os.Stat(filepath.Join(dir, entryFileName("a"))); !os.IsNotExist(err) {
		t.Error("expected entry files removed")
	}
}

func TestEntryFileName(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"db-1", "scope-db-1.json"},
		{"db-1,db-2", "scope-db-1-db-2.json"},
		{"../etc/passwd", "scope----etc-passwd.json"},
	}
	for _, tc := range cases {
		if got := entryFileName(tc.key); got != tc.want {
			t.Errorf("entryFileName(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}
