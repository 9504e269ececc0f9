// Two-tier cache for fetched item sets: an in-memory tier with a short
// TTL, backed by best-effort JSON files that survive restarts.

package cache

import (
	"sync"
	"time"

	"github.com/worklens/worklens/internal/item"
)

const (
	// DefaultTTL is the ephemeral tier's freshness window.
	DefaultTTL = 5 * time.Minute
	// DefaultDurableTTL bounds how old a persisted entry may be before
	// bootstrap garbage-collects it.
	DefaultDurableTTL = 24 * time.Hour
)

// Entry is one cached item set with its write timestamp (epoch ms).
type Entry struct {
	Items     []*item.Item `json:"items"`
	Timestamp int64        `json:"timestamp"`
}

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	TTL        time.Duration
	DurableTTL time.Duration
	Now        func() time.Time // test seam
}

// Manager keys entries by fetch scope. Both tiers are mutated only
// internally; callers see Get/GetStale/Set/Invalidate/Clear.
type Manager struct {
	store      *fileStore // nil disables the durable tier
	ttl        time.Duration
	durableTTL time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates a manager persisting to dir and hydrates the ephemeral tier
// from whatever survives shape validation and the durable TTL. dir ""
// disables the durable tier. Bootstrap problems are logged, never
// propagated: a broken cache degrades to an empty one.
func New(dir string, opts Options) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	durableTTL := opts.DurableTTL
	if durableTTL <= 0 {
		durableTTL = DefaultDurableTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		ttl:        ttl,
		durableTTL: durableTTL,
		now:        now,
		entries:    make(map[string]*Entry),
	}
	if dir != "" {
		m.store = newFileStore(dir)
		m.bootstrap()
	}
	return m
}

// Get returns the entry for key if it is within the ephemeral TTL.
func (m *Manager) Get(key string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	age := m.now().UnixMilli() - e.Timestamp
	if age >= m.ttl.Milliseconds() {
		return nil, false
	}
	return e, true
}

// GetStale returns the entry for key regardless of TTL. Used only as a
// fallback when a live fetch fails outright.
func (m *Manager) GetStale(key string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok
}

// Set writes the ephemeral tier synchronously and attempts a best-effort
// durable write that never fails the ephemeral one.
func (m *Manager) Set(key string, items []*item.Item) {
	e := &Entry{Items: items, Timestamp: m.now().UnixMilli()}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()

	if m.store != nil {
		m.store.write(key, e)
	}
}

// Invalidate drops one key from both tiers.
func (m *Manager) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()

	if m.store != nil {
		m.store.remove(key)
	}
}

// Clear wipes both tiers and the manifest.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]*Entry)
	m.mu.Unlock()

	if m.store != nil {
		m.store.clear()
	}
}

// bootstrap hydrates the ephemeral tier from the durable one, dropping
// malformed or expired entries.
func (m *Manager) bootstrap() {
	cutoff := m.now().UnixMilli() - m.durableTTL.Milliseconds()
	entries := m.store.load(cutoff)

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range entries {
		m.entries[key] = e
	}
}
