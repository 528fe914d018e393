// internal/cache/cache.go
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Recorder receives lookup outcomes: "hit", "miss" or "shared".
type Recorder interface {
	RecordCacheLookup(result string)
}

type entry struct {
	val     any
	expires time.Time
}

// Group is a read-through cache with at most one in-flight load per key.
// Cached values are shared between callers and must be treated as read-only.
type Group struct {
	ttl    time.Duration
	now    func() time.Time
	rec    Recorder
	flight singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
}

// New creates a Group. A zero ttl only coalesces concurrent loads.
func New(ttl time.Duration, rec Recorder) *Group {
	return &Group{
		ttl:     ttl,
		now:     time.Now,
		rec:     rec,
		entries: make(map[string]entry),
	}
}

// Do returns the cached value for key or loads it with fn.
// Failed loads are never cached. A caller that gives up does not cancel
// the load for the others waiting on it.
func (g *Group) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := g.lookup(key); ok {
		g.record("hit")
		return v, nil
	}

	ch := g.flight.DoChan(key, func() (any, error) {
		v, err := fn(context.WithoutCancel(ctx))
		if err == nil {
			g.store(key, v)
		}
		return v, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			g.record("shared")
		} else {
			g.record("miss")
		}
		return res.Val, res.Err
	}
}

// Fetch is the typed form of Do.
func Fetch[T any](ctx context.Context, g *Group, key string, fn func(context.Context) (T, error)) (T, error) {
	v, err := g.Do(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Purge drops every cached value.
func (g *Group) Purge() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.entries)
}

// Len returns the number of cached entries, expired ones included.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *Group) lookup(key string) (any, bool) {
	if g.ttl <= 0 {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok || !g.now().Before(e.expires) {
		return nil, false
	}
	return e.val, true
}

func (g *Group) store(key string, v any) {
	if g.ttl <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, e := range g.entries {
		if !now.Before(e.expires) {
			delete(g.entries, k)
		}
	}
	g.entries[key] = entry{val: v, expires: now.Add(g.ttl)}
}

func (g *Group) record(result string) {
	if g.rec != nil {
		g.rec.RecordCacheLookup(result)
	}
}
