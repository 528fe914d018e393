package dashboard

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/pipeline"
	"github.com/newthinker/polydash/internal/poller"
)

// SignalsParams are the user-controlled parameters of the signals page
type SignalsParams struct {
	Direction core.Direction     `json:"direction"`
	Result    core.Result        `json:"result"`
	Page      int                `json:"page"`
	Sort      pipeline.SortState `json:"sort"`
}

// ParseSignalsParams reads direction, result, page (zero-based), sort and
// order. Unknown values fall back to the defaults.
func ParseSignalsParams(v url.Values) SignalsParams {
	p := SignalsParams{
		Direction: pipeline.ParseDirection(v.Get("direction")),
		Result:    pipeline.ParseResult(v.Get("result")),
		Sort:      pipeline.DefaultSort,
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if key, ok := pipeline.ParseSortKey(v.Get("sort")); ok {
		p.Sort = pipeline.SortState{Key: key, Order: pipeline.ParseOrder(v.Get("order"))}
	}
	return p
}

// Values encodes the parameters back into a query string.
func (p SignalsParams) Values() url.Values {
	v := url.Values{}
	v.Set("direction", string(p.Direction))
	v.Set("result", string(p.Result))
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("sort", string(p.Sort.Key))
	v.Set("order", string(p.Sort.Order))
	return v
}

// Query is the backend request for these parameters
func (p SignalsParams) Query() core.SignalQuery {
	return pipeline.Query(p.Direction, p.Result, p.Page)
}

// Signals is the paged signal history
type Signals struct {
	c       *poller.Controller
	signals *poller.Slot[core.SignalsPage]
	stats   *poller.Slot[core.SignalStats]

	mu     sync.RWMutex
	params SignalsParams
}

func NewSignals(d Deps, params SignalsParams) *Signals {
	s := &Signals{c: d.controller(PageSignals), params: params}
	src := d.Source
	s.signals = poller.Bind(s.c, "signals", func(ctx context.Context) (core.SignalsPage, error) {
		return src.Signals(ctx, s.Params().Query())
	})
	s.stats = poller.Bind(s.c, "stats", src.SignalStats)
	return s
}

func (s *Signals) Name() string                   { return PageSignals }
func (s *Signals) Controller() *poller.Controller { return s.c }
func (s *Signals) Model() any                     { return s.Build() }

func (s *Signals) Params() SignalsParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetParams applies new parameters. A filter or page change drops results
// still in flight and refetches; a sort change only re-sorts locally.
func (s *Signals) SetParams(ctx context.Context, p SignalsParams) error {
	s.mu.Lock()
	refetch := p.Query() != s.params.Query()
	s.params = p
	s.mu.Unlock()

	if !refetch {
		return nil
	}
	s.c.Invalidate()
	return s.c.RefreshNow(ctx)
}

// SetQuery implements Querier.
func (s *Signals) SetQuery(ctx context.Context, values url.Values) error {
	return s.SetParams(ctx, ParseSignalsParams(values))
}

// Window returns the fetched page as received, for export.
func (s *Signals) Window() poller.Snapshot[core.SignalsPage] {
	return s.signals.Snapshot()
}

type SignalsModel struct {
	Params    SignalsParams                           `json:"params"`
	Table     pipeline.Table                          `json:"table"`
	SortLinks map[pipeline.SortKey]pipeline.SortState `json:"sort_links"`
	Summary   pipeline.Summary                        `json:"summary"`
	Stats     core.SignalStats                        `json:"stats"`
	Resources map[string]Resource                     `json:"resources"`
}

// Build sorts the fetched page locally and computes the pager.
func (s *Signals) Build() SignalsModel {
	p := s.Params()
	signals := s.signals.Snapshot()
	stats := s.stats.Snapshot()

	table := pipeline.BuildTable(signals.Data, p.Page, p.Sort)
	links := make(map[pipeline.SortKey]pipeline.SortState, len(sortKeys))
	for _, k := range sortKeys {
		links[k] = pipeline.ToggleSort(p.Sort, k)
	}

	return SignalsModel{
		Params:    p,
		Table:     table,
		SortLinks: links,
		Summary:   pipeline.Summarize(signals.Data.Data),
		Stats:     stats.Data,
		Resources: map[string]Resource{
			"signals": resourceOf(signals, len(signals.Data.Data)),
			"stats":   resourceOf(stats, one(stats)),
		},
	}
}

var sortKeys = []pipeline.SortKey{
	pipeline.SortTime,
	pipeline.SortScore,
	pipeline.SortConfidence,
	pipeline.SortBTCPrice,
	pipeline.SortDelta,
	pipeline.SortROI,
	pipeline.SortPnL,
}
