// internal/api/handler/web/views.go
package web

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/polydash/internal/dashboard"
	"go.uber.org/zap"
)

// Defaults for the page view cache
const (
	DefaultViewIdle = 10 * time.Minute
	DefaultMaxViews = 32
)

var errClosed = errors.New("web: handler closed")

// viewSet keeps one polling view per page and query, plus a shared header.
// Renders read their slots, so the last good data survives backend
// failures and reloads. Views idle longer than idle are stopped.
type viewSet struct {
	deps   dashboard.Deps
	idle   time.Duration
	max    int
	logger *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	header  *dashboard.Header
	entries map[string]*viewEntry
	closed  bool
}

type viewEntry struct {
	view    dashboard.View
	used    time.Time
	started bool
}

func newViewSet(deps dashboard.Deps, logger *zap.Logger) *viewSet {
	ctx, cancel := context.WithCancel(context.Background())
	return &viewSet{
		deps:    deps,
		idle:    DefaultViewIdle,
		max:     DefaultMaxViews,
		logger:  logger,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*viewEntry),
	}
}

// viewKey identifies a view; only the signals page depends on the query.
func viewKey(page string, values url.Values) string {
	if page == dashboard.PageSignals {
		return page + "?" + dashboard.ParseSignalsParams(values).Values().Encode()
	}
	return page
}

// get returns the cached view for page and values, creating it when needed.
// A new view is returned unstarted; the caller refreshes it and calls start.
func (s *viewSet) get(page string, values url.Values) (dashboard.View, *dashboard.Header, error) {
	key := viewKey(page, values)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, errClosed
	}
	if s.header == nil {
		s.header = dashboard.NewHeader(s.deps)
	}
	header := s.header

	now := s.now()
	if e, ok := s.entries[key]; ok {
		e.used = now
		s.mu.Unlock()
		return e.view, header, nil
	}

	v, err := dashboard.New(page, s.deps, values)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	s.entries[key] = &viewEntry{view: v, used: now}
	evicted := s.evictLocked(now)
	s.mu.Unlock()

	for _, old := range evicted {
		old.Controller().Stop()
	}
	return v, header, nil
}

// start begins background polling of a view filled by a refresh. Calling it
// again is a no-op.
func (s *viewSet) start(v dashboard.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, e := range s.entries {
		if e.view == v && !e.started {
			e.started = true
			s.resume(v.Controller().Name(), v.Controller().Resume)
		}
	}
	if s.header != nil && s.header.Controller() != nil && !s.header.Controller().Running() {
		s.resume(dashboard.PageHeader, s.header.Controller().Resume)
	}
}

func (s *viewSet) resume(name string, fn func(context.Context) error) {
	if err := fn(s.ctx); err != nil {
		s.logger.Warn("starting page view", zap.String("view", name), zap.Error(err))
	}
}

// evictLocked drops views idle past s.idle, then the least recently used
// ones beyond s.max.
func (s *viewSet) evictLocked(now time.Time) []dashboard.View {
	var out []dashboard.View
	for key, e := range s.entries {
		if now.Sub(e.used) > s.idle {
			out = append(out, e.view)
			delete(s.entries, key)
		}
	}
	if over := len(s.entries) - s.max; over > 0 {
		keys := make([]string, 0, len(s.entries))
		for key := range s.entries {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool { return s.entries[keys[i]].used.Before(s.entries[keys[j]].used) })
		for _, key := range keys[:over] {
			out = append(out, s.entries[key].view)
			delete(s.entries, key)
		}
	}
	return out
}

// size reports how many page views are cached.
func (s *viewSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// close stops every view and the header.
func (s *viewSet) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	views := make([]dashboard.View, 0, len(s.entries)+1)
	for _, e := range s.entries {
		views = append(views, e.view)
	}
	s.entries = map[string]*viewEntry{}
	header := s.header
	s.mu.Unlock()

	s.cancel()
	for _, v := range views {
		v.Controller().Stop()
	}
	if header != nil {
		header.Controller().Stop()
	}
}
