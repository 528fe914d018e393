// internal/poller/controller.go
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned when a stopped controller is asked to poll.
var ErrStopped = errors.New("poller: controller stopped")

// CommitFunc observes every applied result. err is nil for a successful refresh.
type CommitFunc func(resource string, err error)

// Recorder receives poll outcomes: "committed", "failed" or "discarded".
type Recorder interface {
	RecordPoll(view, resource, outcome string)
}

type task interface {
	resource() string
	run(ctx context.Context, gen uint64)
}

// Controller refreshes a set of slots on a fixed interval.
// Each slot commits independently as soon as its own fetch resolves.
type Controller struct {
	name     string
	interval time.Duration
	logger   *zap.Logger
	rec      Recorder
	now      func() time.Time

	mu      sync.RWMutex
	tasks   []task
	hooks   []CommitFunc
	gen     uint64
	running bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Controller
type Option func(*Controller)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithRecorder(rec Recorder) Option {
	return func(c *Controller) {
		c.rec = rec
	}
}

// New creates a controller for the named view.
func New(name string, interval time.Duration, opts ...Option) *Controller {
	c := &Controller{
		name:     name,
		interval: interval,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("view", name))
	return c
}

func (c *Controller) Name() string {
	return c.name
}

func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Resources lists the bound resource names in bind order.
func (c *Controller) Resources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.tasks))
	for i, t := range c.tasks {
		names[i] = t.resource()
	}
	return names
}

// OnCommit registers fn to run after every applied result, outside the lock.
func (c *Controller) OnCommit(fn CommitFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Start fetches every resource immediately and then once per interval
// until Stop or ctx is done. It does not block.
func (c *Controller) Start(ctx context.Context) error {
	return c.start(ctx, true)
}

// Resume is Start without the immediate fetch, for a controller whose slots
// were just filled by RefreshNow.
func (c *Controller) Resume(ctx context.Context) error {
	return c.start(ctx, false)
}

func (c *Controller) start(ctx context.Context, immediate bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.running {
		c.mu.Unlock()
		return errors.New("poller: controller already running")
	}
	c.running = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.logger.Debug("polling started",
		zap.Int("resources", len(c.Resources())),
		zap.Duration("interval", c.interval),
	)

	go c.loop(ctx, done, immediate)
	return nil
}

func (c *Controller) loop(ctx context.Context, done chan struct{}, immediate bool) {
	defer close(done)

	if immediate {
		c.cycle(ctx, c.generation())
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cycle(ctx, c.generation())
		}
	}
}

// Stop cancels the schedule. Results still in flight are discarded on arrival.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.logger.Debug("polling stopped")
}

// Running reports whether the schedule is active.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running && !c.closed
}

// Invalidate abandons every in-flight fetch, e.g. after a filter change.
func (c *Controller) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
}

// RefreshNow runs one out-of-band cycle and waits for every fetch to resolve
// or for ctx to end. It works with or without Start.
func (c *Controller) RefreshNow(ctx context.Context) error {
	c.mu.RLock()
	closed, gen := c.closed, c.gen
	c.mu.RUnlock()
	if closed {
		return ErrStopped
	}

	done := make(chan struct{})
	go func() {
		c.cycle(ctx, gen).Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) cycle(ctx context.Context, gen uint64) *sync.WaitGroup {
	c.mu.RLock()
	tasks := append([]task(nil), c.tasks...)
	c.mu.RUnlock()

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			t.run(ctx, gen)
		}(t)
	}
	return &wg
}

func (c *Controller) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *Controller) add(t task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, t)
}

func (c *Controller) record(resource, outcome string) {
	if c.rec != nil {
		c.rec.RecordPoll(c.name, resource, outcome)
	}
}
