// The outbound API: cache-first fetches with stale fallback, single-record
// reads, and mutations that invalidate the cache.

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/worklens/worklens/internal/cache"
	"github.com/worklens/worklens/internal/fetch"
	"github.com/worklens/worklens/internal/item"
	"github.com/worklens/worklens/internal/mapping"
	"github.com/worklens/worklens/internal/source"
	"github.com/worklens/worklens/internal/transform"
)

// RecordAPI is the part of the upstream client the service consumes
// directly; paginated queries go through the orchestrator.
type RecordAPI interface {
	GetRecord(ctx context.Context, id string) (*source.Record, error)
	UpdateStatus(ctx context.Context, id, field, value string) error
	UpdateProgress(ctx context.Context, id, field string, value float64) error
}

// Service ties the orchestrator, transformer, cache, and client together
// behind the operations callers use.
type Service struct {
	api     RecordAPI
	orch    *fetch.Orchestrator
	tf      *transform.Transformer
	cache   *cache.Manager
	cfg     *mapping.Config
	sources []mapping.SourceConfig
}

// New creates a service over the given collaborators.
func New(api RecordAPI, orch *fetch.Orchestrator, tf *transform.Transformer, cm *cache.Manager, cfg *mapping.Config, sources []mapping.SourceConfig) *Service {
	if cfg == nil {
		cfg = mapping.DefaultConfig()
	}
	return &Service{api: api, orch: orch, tf: tf, cache: cm, cfg: cfg, sources: sources}
}

// FetchResult is what FetchAll hands back: the items plus how they were
// obtained. Stale is set when a failed live fetch fell back to an expired
// cache entry; Placeholder when not even that existed.
type FetchResult struct {
	Items       []*item.Item
	Failures    []fetch.SourceFailure
	Orphans     []item.Orphan
	FromCache   bool
	Stale       bool
	Placeholder bool
}

// FetchAll returns the normalized item set for all configured sources.
// Fresh cache entries are served directly; otherwise a live fetch runs
// (coalesced with any identical in-flight fetch). When every source
// fails, the last known-good entry is served stale; failing that, an
// empty placeholder. The returned error is non-nil only for cancellation.
func (s *Service) FetchAll(ctx context.Context) (*FetchResult, error) {
	key := fetch.ScopeKey(s.sources)

	if e, ok := s.cache.Get(key); ok {
		return &FetchResult{Items: e.Items, FromCache: true}, nil
	}

	res, err := s.orch.Fetch(ctx, s.sources)
	if err != nil {
		// Cancellation, by construction. Nothing was cached.
		return nil, err
	}

	if len(res.Items) == 0 && len(res.Failures) == len(s.sources) && len(s.sources) > 0 {
		if e, ok := s.cache.GetStale(key); ok {
			slog.Warn("All sources failed, serving stale cache", "key", key, "failures", len(res.Failures))
			return &FetchResult{Items: e.Items, Failures: res.Failures, FromCache: true, Stale: true}, nil
		}
		slog.Warn("All sources failed with no cache to fall back on", "key", key)
		return &FetchResult{Items: []*item.Item{}, Failures: res.Failures, Placeholder: true}, nil
	}

	return &FetchResult{Items: res.Items, Failures: res.Failures, Orphans: res.Orphans}, nil
}

// FetchOne retrieves and normalizes a single record by id.
func (s *Service) FetchOne(ctx context.Context, id string) (*item.Item, error) {
	rec, err := s.api.GetRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record %s: %w", id, err)
	}
	return s.tf.Transform(rec, s.typeTagFor(rec), ""), nil
}

// typeTagFor picks a type tag for a record fetched outside a source
// query. The record itself does not say which source it belongs to, so
// fall back to the first configured source's tag.
func (s *Service) typeTagFor(*source.Record) string {
	if len(s.sources) > 0 {
		return s.sources[0].Type
	}
	return "record"
}

// MutateStatus writes a status value upstream and invalidates the cached
// scope so the next fetch observes it.
func (s *Service) MutateStatus(ctx context.Context, id, value string) error {
	field := s.cfg.Effective("")[mapping.FieldStatus]
	if err := s.api.UpdateStatus(ctx, id, field, value); err != nil {
		return fmt.Errorf("failed to update status of %s: %w", id, err)
	}
	s.cache.Invalidate(fetch.ScopeKey(s.sources))
	return nil
}

// MutateProgress writes a progress value upstream (the client clamps it
// to [0, 100]) and invalidates the cached scope.
func (s *Service) MutateProgress(ctx context.Context, id string, value float64) error {
	field := s.cfg.Effective("")[mapping.FieldProgress]
	if err := s.api.UpdateProgress(ctx, id, field, value); err != nil {
		return fmt.Errorf("failed to update progress of %s: %w", id, err)
	}
	s.cache.Invalidate(fetch.ScopeKey(s.sources))
	return nil
}

// ForceInvalidate wipes the cache entirely, e.g. when an external webhook
// signals that upstream data changed.
func (s *Service) ForceInvalidate() {
	s.cache.Clear()
}
