// internal/cache/source.go
package cache

import (
	"context"

	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/core"
)

type source struct {
	next  client.Source
	group *Group
}

// Purger drops cached reads so the next request reaches the backend.
type Purger interface {
	Purge()
}

// NewSource puts g in front of every read of next, so views polling the
// same resource share one request. The returned source is also a Purger.
func NewSource(next client.Source, g *Group) client.Source {
	return &source{next: next, group: g}
}

func (s *source) Purge() {
	s.group.Purge()
}

func (s *source) Status(ctx context.Context) (core.Status, error) {
	return Fetch(ctx, s.group, "status", s.next.Status)
}

func (s *source) KPIs(ctx context.Context) (core.KPIs, error) {
	return Fetch(ctx, s.group, "kpis", s.next.KPIs)
}

func (s *source) Signals(ctx context.Context, q core.SignalQuery) (core.SignalsPage, error) {
	return Fetch(ctx, s.group, q.Key(), func(ctx context.Context) (core.SignalsPage, error) {
		return s.next.Signals(ctx, q)
	})
}

func (s *source) SignalStats(ctx context.Context) (core.SignalStats, error) {
	return Fetch(ctx, s.group, "signals/stats", s.next.SignalStats)
}

func (s *source) Baskets(ctx context.Context) ([]core.BasketWallet, error) {
	return Fetch(ctx, s.group, "baskets", s.next.Baskets)
}

func (s *source) Consensus(ctx context.Context) ([]core.ConsensusSignal, error) {
	return Fetch(ctx, s.group, "consensus", s.next.Consensus)
}

func (s *source) ChartPnL(ctx context.Context) ([]core.ChartPoint, error) {
	return Fetch(ctx, s.group, "chart/pnl", s.next.ChartPnL)
}

func (s *source) ChartSignals(ctx context.Context) ([]core.HourlySignal, error) {
	return Fetch(ctx, s.group, "chart/signals", s.next.ChartSignals)
}
