// The durable cache tier: one JSON file per scope key plus a manifest of
// known keys. Every failure here is logged and swallowed; durability is
// best-effort by design of the callers.

package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const manifestFile = "manifest.json"

// manifest lists the persisted scope keys.
type manifest struct {
	Keys        []string `json:"keys"`
	LastCleanup int64    `json:"lastCleanupTimestamp"`
}

type fileStore struct {
	dir string
}

func newFileStore(dir string) *fileStore {
	return &fileStore{dir: dir}
}

// entryFileName maps a scope key to a file name. Scope keys are record
// ids joined with commas; anything outside the portable set is mapped to
// '-'. The key space is bounded by distinct fetch scopes, so collisions
// are not a practical concern.
func entryFileName(key string) string {
	safe := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			safe = append(safe, c)
		default:
			safe = append(safe, '-')
		}
	}
	return "scope-" + string(safe) + ".json"
}

func (s *fileStore) entryPath(key string) string {
	return filepath.Join(s.dir, entryFileName(key))
}

// readManifest loads the key manifest. A corrupt manifest resets to
// empty.
func (s *fileStore) readManifest() manifest {
	var man manifest
	data, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read cache manifest, resetting", "err", err)
		}
		return manifest{}
	}
	if err := json.Unmarshal(data, &man); err != nil {
		slog.Warn("Corrupt cache manifest, resetting", "err", err)
		return manifest{}
	}
	return man
}

func (s *fileStore) writeManifest(man manifest) {
	data, err := json.Marshal(man)
	if err != nil {
		slog.Warn("Failed to marshal cache manifest", "err", err)
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, manifestFile), data, 0o644); err != nil { //nolint:gosec // G306: cache files are not secrets
		slog.Warn("Failed to write cache manifest", "err", err)
	}
}

// load reads and shape-validates every manifest key, dropping malformed
// entries and ones written before cutoff (epoch ms). Dropped entries are
// garbage-collected from disk and the manifest is rewritten.
func (s *fileStore) load(cutoff int64) map[string]*Entry {
	man := s.readManifest()
	entries := make(map[string]*Entry)
	kept := make([]string, 0, len(man.Keys))

	for _, key := range man.Keys {
		path := s.entryPath(key)
		e, ok := s.readEntry(path)
		if !ok || e.Timestamp < cutoff {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				slog.Warn("Failed to remove stale cache entry", "key", key, "err", err)
			}
			continue
		}
		entries[key] = e
		kept = append(kept, key)
	}

	if len(kept) != len(man.Keys) {
		s.writeManifest(manifest{Keys: kept, LastCleanup: time.Now().UnixMilli()})
	}
	return entries
}

// readEntry reads one persisted entry and checks its shape: items must be
// an array and the timestamp a positive number.
func (s *fileStore) readEntry(path string) (*Entry, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from the cache dir
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read cache entry", "path", path, "err", err)
		}
		return nil, false
	}

	var raw struct {
		Items     json.RawMessage `json:"items"`
		Timestamp int64           `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("Dropping malformed cache entry", "path", path, "err", err)
		return nil, false
	}
	if raw.Timestamp <= 0 || len(raw.Items) == 0 {
		slog.Warn("Dropping malformed cache entry", "path", path)
		return nil, false
	}
	var e Entry
	e.Timestamp = raw.Timestamp
	if err := json.Unmarshal(raw.Items, &e.Items); err != nil {
		slog.Warn("Dropping malformed cache entry", "path", path, "err", err)
		return nil, false
	}
	// JSON null unmarshals into a nil slice without error; it is not an
	// array and must not hydrate as an empty item set.
	if e.Items == nil {
		slog.Warn("Dropping malformed cache entry", "path", path)
		return nil, false
	}
	return &e, true
}

// write persists one entry and appends its key to the manifest if absent.
func (s *fileStore) write(key string, e *Entry) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		slog.Warn("Failed to create cache directory", "err", err)
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		slog.Warn("Failed to marshal cache entry", "key", key, "err", err)
		return
	}
	if err := os.WriteFile(s.entryPath(key), data, 0o644); err != nil { //nolint:gosec // G306: cache files are not secrets
		slog.Warn("Failed to write cache entry", "key", key, "err", err)
		return
	}

	man := s.readManifest()
	for _, k := range man.Keys {
		if k == key {
			return
		}
	}
	man.Keys = append(man.Keys, key)
	s.writeManifest(man)
}

// remove deletes one entry file and its manifest key.
func (s *fileStore) remove(key string) {
	if err := os.Remove(s.entryPath(key)); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove cache entry", "key", key, "err", err)
	}
	man := s.readManifest()
	kept := man.Keys[:0]
	for _, k := range man.Keys {
		if k != key {
			kept = append(kept, k)
		}
	}
	if len(kept) != len(man.Keys) {
		man.Keys = kept
		s.writeManifest(man)
	}
}

// clear deletes every known entry file and the manifest.
func (s *fileStore) clear() {
	man := s.readManifest()
	for _, key := range man.Keys {
		if err := os.Remove(s.entryPath(key)); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove cache entry", "key", key, "err", err)
		}
	}
	if err := os.Remove(filepath.Join(s.dir, manifestFile)); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove cache manifest", "err", err)
	}
}
