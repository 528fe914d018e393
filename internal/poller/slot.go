// internal/poller/slot.go
package poller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// State is the render state of one resource
type State string

const (
	StateLoading State = "loading"
	StateEmpty   State = "empty"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Snapshot is a point-in-time copy of a slot.
type Snapshot[T any] struct {
	Data   T
	Loaded bool
	// Err is the most recent failure; cleared by the next success
	Err error
	// Stale marks loaded data whose latest refresh failed
	Stale       bool
	UpdatedAt   time.Time
	AttemptedAt time.Time
}

// State classifies the snapshot; n is the number of items in Data.
func (s Snapshot[T]) State(n int) State {
	switch {
	case s.Loaded && n == 0:
		return StateEmpty
	case s.Loaded:
		return StateReady
	case s.Err != nil:
		return StateFailed
	default:
		return StateLoading
	}
}

// Slot holds the last committed value of one polled resource.
// Only its own fetch writes to it.
type Slot[T any] struct {
	name  string
	c     *Controller
	fetch func(context.Context) (T, error)

	// guarded by c.mu
	snap    Snapshot[T]
	busy    bool
	busyGen uint64
}

// Bind registers a resource on c and returns its slot.
func Bind[T any](c *Controller, name string, fetch func(context.Context) (T, error)) *Slot[T] {
	s := &Slot[T]{name: name, c: c, fetch: fetch}
	c.add(s)
	return s
}

func (s *Slot[T]) Name() string {
	return s.name
}

// Snapshot returns a copy of the current state.
func (s *Slot[T]) Snapshot() Snapshot[T] {
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()
	return s.snap
}

func (s *Slot[T]) resource() string {
	return s.name
}

func (s *Slot[T]) run(ctx context.Context, gen uint64) {
	c := s.c

	c.mu.Lock()
	if c.closed || gen != c.gen || (s.busy && s.busyGen == gen) {
		c.mu.Unlock()
		return
	}
	s.busy, s.busyGen = true, gen
	c.mu.Unlock()

	started := c.now()
	data, err := s.fetch(ctx)

	c.mu.Lock()
	if s.busyGen == gen {
		s.busy = false
	}
	// abandoned: the view stopped or its parameters changed mid-flight
	if c.closed || gen != c.gen || (err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		c.mu.Unlock()
		c.record(s.name, "discarded")
		c.logger.Debug("discarded poll result", zap.String("resource", s.name))
		return
	}

	s.snap.AttemptedAt = started
	if err != nil {
		s.snap.Err = err
		s.snap.Stale = s.snap.Loaded
	} else {
		s.snap.Data = data
		s.snap.Loaded = true
		s.snap.Err = nil
		s.snap.Stale = false
		s.snap.UpdatedAt = c.now()
	}
	hooks := append([]CommitFunc(nil), c.hooks...)
	c.mu.Unlock()

	if err != nil {
		c.record(s.name, "failed")
		c.logger.Warn("poll failed, keeping last good data",
			zap.String("resource", s.name),
			zap.Error(err),
		)
	} else {
		c.record(s.name, "committed")
	}

	for _, fn := range hooks {
		fn(s.name, err)
	}
}
