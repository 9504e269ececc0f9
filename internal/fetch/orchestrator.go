// Drives concurrent, cancellable, paginated fetches across sources.

package fetch

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/worklens/worklens/internal/item"
	"github.com/worklens/worklens/internal/mapping"
	"github.com/worklens/worklens/internal/source"
	"github.com/worklens/worklens/internal/transform"
)

// State is the lifecycle of one orchestrated fetch. There is no failed
// terminal state: total or partial source failure is reported as data.
type State int

// Fetch states.
const (
	StateIdle State = iota
	StateFetching
	StateAggregating
	StateDone
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// PageFetcher fetches one page of records from a source. Cursor "" means
// the first page. The orchestrator is transport-agnostic; source.Client
// satisfies this.
type PageFetcher interface {
	QueryPage(ctx context.Context, sourceID, cursor string) (*source.QueryResponse, error)
}

// Store receives the fetched item set keyed by scope. The orchestrator
// treats it as opaque; cache.Manager satisfies this.
type Store interface {
	Set(key string, items []*item.Item)
}

// DefaultProgressInterval throttles outward progress emission.
const DefaultProgressInterval = 250 * time.Millisecond

// Options configures an Orchestrator.
type Options struct {
	Reporter         Reporter      // nil discards progress
	Store            Store         // nil skips cache writes
	ProgressInterval time.Duration // 0 means DefaultProgressInterval
}

// Orchestrator fetches all configured sources concurrently, normalizes
// records as pages arrive, links relationships, and hands the result to
// the store. Identical concurrent fetches are coalesced by scope key.
type Orchestrator struct {
	fetcher  PageFetcher
	tf       *transform.Transformer
	store    Store
	reporter Reporter
	interval time.Duration

	state   atomic.Int32
	flights singleflight.Group
}

// State returns the lifecycle state of the most recent fetch: StateIdle
// until the first fetch starts, then the phase it reached.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// New creates an orchestrator.
func New(fetcher PageFetcher, tf *transform.Transformer, opts Options) *Orchestrator {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NullReporter{}
	}
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Orchestrator{
		fetcher:  fetcher,
		tf:       tf,
		store:    opts.Store,
		reporter: reporter,
		interval: interval,
	}
}

// Result is the outcome of a fetch: the union of all successful sources
// plus the per-source failures. Failures never surface as a returned
// error; only cancellation does.
type Result struct {
	Items    []*item.Item
	Failures []SourceFailure
	Orphans  []item.Orphan
	Stats    Stats
	State    State
}

// ScopeKey derives the stable cache key for a source set: sorted ids,
// joined.
func ScopeKey(sources []mapping.SourceConfig) string {
	ids := make([]string, 0, len(sources))
	for i := range sources {
		ids = append(ids, sources[i].ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// Fetch retrieves all sources. A second caller with the same scope key
// joins the in-flight fetch instead of re-issuing work; the flight entry
// is dropped once it resolves, success or failure. The returned error is
// non-nil only for cancellation.
func (o *Orchestrator) Fetch(ctx context.Context, sources []mapping.SourceConfig) (*Result, error) {
	key := ScopeKey(sources)
	v, err, _ := o.flights.Do(key, func() (any, error) {
		return o.fetchAll(ctx, key, sources)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// run holds the shared state of one orchestrated fetch. Sources mutate it
// from their own goroutines, so everything goes through mu.
type run struct {
	mu       sync.Mutex
	loaded   map[string]int
	items    []*item.Item
	failures []SourceFailure
	lastEmit time.Time
}

func (o *Orchestrator) fetchAll(ctx context.Context, key string, sources []mapping.SourceConfig) (*Result, error) {
	if err := ctx.Err(); err != nil {
		o.setState(StateAborted)
		return nil, err
	}
	start := time.Now()
	o.setState(StateFetching)
	o.reporter.OnStart(len(sources))

	r := &run{loaded: make(map[string]int, len(sources))}
	var wg sync.WaitGroup
	for i := range sources {
		wg.Add(1)
		go func(src mapping.SourceConfig) {
			defer wg.Done()
			o.fetchSource(ctx, r, src)
		}(sources[i])
	}
	wg.Wait()

	// A cancelled fetch writes nothing to the cache and emits nothing
	// further; in-flight results are discarded.
	if err := ctx.Err(); err != nil {
		o.setState(StateAborted)
		return nil, err
	}

	o.setState(StateAggregating)
	orphans := item.BuildRelationships(r.items)
	if len(r.items) > 0 && o.store != nil {
		o.store.Set(key, r.items)
	}

	total := len(r.items)
	o.reporter.OnProgress(Progress{
		Loaded:   total,
		Total:    &total,
		Items:    r.items,
		Done:     true,
		Failures: r.failures,
		Orphans:  len(orphans),
	})

	stats := Stats{
		Items:    total,
		Sources:  len(sources),
		Failures: len(r.failures),
		Orphans:  len(orphans),
		Duration: time.Since(start),
	}
	o.reporter.OnComplete(stats)

	o.setState(StateDone)
	return &Result{
		Items:    r.items,
		Failures: r.failures,
		Orphans:  orphans,
		Stats:    stats,
		State:    StateDone,
	}, nil
}

// fetchSource paginates one source to exhaustion. Pagination is
// sequential: each page's cursor comes from the previous response.
// Cancellation is checked before each page request, never mid-flight.
func (o *Orchestrator) fetchSource(ctx context.Context, r *run, src mapping.SourceConfig) {
	cursor := ""
	for {
		if ctx.Err() != nil {
			return
		}

		page, err := o.fetcher.QueryPage(ctx, src.ID, cursor)
		if err != nil {
			if source.IsCancellation(err) || ctx.Err() != nil {
				return
			}
			// One source's failure never aborts its siblings.
			failure := SourceFailure{Source: src.ID, Message: source.Humanize(err)}
			r.mu.Lock()
			r.failures = append(r.failures, failure)
			r.mu.Unlock()
			o.reporter.OnError(err)
			return
		}

		items := o.tf.TransformBatch(page.Results, src.Type, src.ID)
		last := !page.HasMore || page.NextCursor == nil

		r.mu.Lock()
		r.loaded[src.ID] += len(items)
		r.items = append(r.items, items...)
		r.mu.Unlock()

		o.emit(ctx, r, src.ID, last)

		if last {
			return
		}
		cursor = *page.NextCursor
	}
}

// emit publishes a throttled progress snapshot. The final page of a
// source always emits immediately.
func (o *Orchestrator) emit(ctx context.Context, r *run, sourceID string, final bool) {
	if ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	now := time.Now()
	if !final && now.Sub(r.lastEmit) < o.interval {
		r.mu.Unlock()
		return
	}
	r.lastEmit = now
	loaded := 0
	for _, n := range r.loaded {
		loaded += n
	}
	p := Progress{
		Loaded:   loaded,
		Items:    append([]*item.Item(nil), r.items...),
		Source:   sourceID,
		Failures: append([]SourceFailure(nil), r.failures...),
	}
	r.mu.Unlock()

	o.reporter.OnProgress(p)
}
