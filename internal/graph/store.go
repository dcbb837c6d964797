package graph

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/core"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/eventbus"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
)

// DefaultDebounce bounds how often graph.invalidated events trigger an
// actual rebuild: bursts of invalidations within the window collapse
// into a single rebuild (spec §4.9, §5 "single-writer/many-reader").
const DefaultDebounce = 500 * time.Millisecond

// DataSource supplies the primary data a Builder needs to produce a
// fresh Snapshot.
type DataSource interface {
	AllResources(ctx context.Context) ([]core.Resource, error)
	AllCitations(ctx context.Context) ([]core.Citation, error)
	AllEdgeOverrides(ctx context.Context) ([]core.GraphEdgeOverride, error)
}

// Store holds the current Snapshot behind an atomic pointer: many
// readers observe a consistent, immutable view while a single rebuild
// goroutine swaps in a new one, debounced against repeated
// graph.invalidated events.
type Store struct {
	builder *Builder
	source  DataSource
	current atomic.Pointer[Snapshot]

	mu          sync.Mutex
	pending     bool
	rebuildTimer *time.Timer
	debounce    time.Duration
}

// NewStore creates a Store with an empty initial snapshot. Call
// Rebuild once before serving reads, then Subscribe to keep it fresh.
func NewStore(builder *Builder, source DataSource) *Store {
	if builder == nil {
		builder = NewBuilder()
	}
	s := &Store{builder: builder, source: source, debounce: DefaultDebounce}
	s.current.Store(&Snapshot{
		resources: make(map[string]*core.Resource),
		adjacency: make(map[string][]core.GraphEdge),
		weights:   builder.Weights,
	})
	return s
}

// Current returns the latest published Snapshot. Safe for concurrent
// use by many readers.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Rebuild synchronously recomputes the Snapshot from the data source
// and publishes it.
func (s *Store) Rebuild(ctx context.Context) error {
	resources, err := s.source.AllResources(ctx)
	if err != nil {
		return err
	}
	citations, err := s.source.AllCitations(ctx)
	if err != nil {
		return err
	}
	overrides, err := s.source.AllEdgeOverrides(ctx)
	if err != nil {
		return err
	}
	snapshot := s.builder.Build(resources, citations, overrides)
	s.current.Store(snapshot)
	return nil
}

// ScheduleRebuild requests a rebuild, coalescing calls that arrive
// within the debounce window into a single Rebuild invocation (spec
// §5: "rebuild triggered by graph.invalidated events, coalesced to at
// most one rebuild in flight").
func (s *Store) ScheduleRebuild(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return
	}
	s.pending = true
	s.rebuildTimer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
		if err := s.Rebuild(ctx); err != nil {
			logger.Error("graph: debounced rebuild failed", err)
		}
	})
}

// Subscribe wires the store to the eventbus's graph.invalidated event
// (and the events that imply it — resource and citation changes) so
// rebuilds happen without an explicit caller.
func (s *Store) Subscribe(bus *eventbus.Bus) {
	invalidate := func(ctx context.Context, _ any) error {
		s.ScheduleRebuild(ctx)
		return nil
	}
	bus.Subscribe(eventbus.GraphInvalidated, invalidate, 0, true)
	bus.Subscribe(eventbus.ResourceUpdated, invalidate, 0, true)
	bus.Subscribe(eventbus.CitationResolved, invalidate, 0, true)
}
