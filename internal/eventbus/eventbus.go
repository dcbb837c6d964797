// Package eventbus implements the single-process publish/subscribe bus
// that decouples ingestion, citation resolution, and graph
// invalidation from the components that trigger them (spec §4.11).
package eventbus

import (
	"context"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
)

// Name is a member of the closed event catalog.
type Name string

const (
	ResourceCreated        Name = "resource.created"
	ResourceUpdated        Name = "resource.updated"
	ResourceContentChanged Name = "resource.content_changed"
	ResourceDeleted        Name = "resource.deleted"
	ResourceReady          Name = "resource.ready"
	ResourceIngestFailed   Name = "resource.ingest_failed"
	CitationResolved       Name = "citation.resolved"
	CitationImportance     Name = "citation.importance_updated"
	GraphInvalidated       Name = "graph.invalidated"
	GraphValidated         Name = "graph.validated"
	TaxonomyNodeUpdated    Name = "taxonomy.node_updated"
)

// Handler processes an event payload. Its error is logged and never
// propagated to the emitter or to other handlers.
type Handler func(ctx context.Context, payload any) error

type subscription struct {
	handler  Handler
	priority int
	async    bool
}

// Bus is a FIFO-per-event, priority-ordered publish/subscribe bus.
// Async handlers run on a bounded worker pool so a slow subscriber
// never blocks Emit's caller.
type Bus struct {
	mu   sync.RWMutex
	subs map[Name][]subscription
	pool *pool.Pool
}

// New creates a Bus whose async handlers run on a worker pool bounded
// to poolSize concurrent goroutines.
func New(poolSize int) *Bus {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Bus{
		subs: make(map[Name][]subscription),
		pool: pool.New().WithMaxGoroutines(poolSize),
	}
}

// Subscribe registers handler for event, invoked in descending
// priority order relative to other subscribers of the same event. Set
// async to true to run the handler on the worker pool instead of
// inline during Emit.
func (b *Bus) Subscribe(event Name, handler Handler, priority int, async bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[event] = append(b.subs[event], subscription{handler: handler, priority: priority, async: async})
	sort.SliceStable(b.subs[event], func(i, j int) bool {
		return b.subs[event][i].priority > b.subs[event][j].priority
	})
}

// Emit delivers payload to every subscriber registered for event at
// call time, in priority order. Synchronous handlers run inline;
// async handlers are submitted to the worker pool and Emit does not
// wait for them. A handler's error is logged and does not prevent
// remaining handlers from running.
func (b *Bus) Emit(ctx context.Context, event Name, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[event]))
	copy(subs, b.subs[event])
	b.mu.RUnlock()

	for _, sub := range subs {
		sub := sub
		if sub.async {
			b.pool.Go(func() {
				if err := sub.handler(ctx, payload); err != nil {
					logger.Error("eventbus: async handler failed", err, "event", string(event))
				}
			})
			continue
		}
		if err := sub.handler(ctx, payload); err != nil {
			logger.Error("eventbus: handler failed", err, "event", string(event))
		}
	}
}

// Wait blocks until every in-flight async handler submitted so far has
// completed. Intended for graceful shutdown and tests.
func (b *Bus) Wait() {
	b.pool.Wait()
}
