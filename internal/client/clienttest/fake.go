// internal/client/clienttest/fake.go

// Package clienttest provides an in-memory backend for tests.
package clienttest

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/core"
)

// Fake is a canned client.Source. Set Errs[resource] to fail a resource;
// resource names are status, kpis, signals, stats, baskets, consensus,
// chart_pnl and chart_signals.
type Fake struct {
	mu sync.Mutex

	StatusData    core.Status
	KPIsData      core.KPIs
	SignalsData   []core.Signal
	StatsData     core.SignalStats
	BasketsData   []core.BasketWallet
	ConsensusData []core.ConsensusSignal
	ChartPnLData  []core.ChartPoint
	HourlyData    []core.HourlySignal

	Errs    map[string]error
	Calls   map[string]int
	Queries []core.SignalQuery
}

var _ client.Source = (*Fake)(nil)

// New returns a fake holding a small realistic dataset.
func New() *Fake {
	ts := time.Date(2026, 10, 17, 14, 0, 0, 0, time.UTC)
	lastTrade := ts.Add(-5 * time.Minute)
	return &Fake{
		StatusData: core.Status{
			UptimeSeconds: 93784,
			UptimeHours:   26.05,
			BotRunning:    true,
			SignalsCount:  3,
			Version:       "1.4.2",
			Timestamp:     ts,
		},
		KPIsData: core.KPIs{TotalSignals: 3, WinRate: 66.7, PnLTotal: 12.5, PnLPostFees: 11.9, DrawdownMax: -3.2, AvgPnL: 4.17},
		SignalsData: []core.Signal{
			{Timestamp: ts, Direction: core.DirectionUp, Score: 0.8123, Confidence: 0.74, BTCPrice: 67250.5, DeltaPct: 0.123,
				PnL: &core.PnL{Won: true, NetProfit: 8.5, ROIPct: 17}},
			{Timestamp: ts.Add(-15 * time.Minute), Direction: core.DirectionDown, Score: 0.61, Confidence: 0.55, BTCPrice: 67300, DeltaPct: -0.05,
				PnL: &core.PnL{Won: false, NetProfit: -2, ROIPct: -4}},
			{Timestamp: ts.Add(-30 * time.Minute), Direction: core.DirectionUp, Score: 0.7, Confidence: 0.6, BTCPrice: 67100, DeltaPct: 0.2},
		},
		StatsData: core.SignalStats{WinRateUp: 100, WinRateDown: 0, AvgPnL: 3.25, BestStreak: 1, WorstStreak: 1, BestHour: 14},
		BasketsData: []core.BasketWallet{
			{Wallet: "0xabc0000000000000000000000000000000000001", WalletShort: "0xabc…0001", LastTrade: &lastTrade,
				Direction: core.DirectionUp, Amount: 250, TradeCount: 12},
			{Wallet: "0xdef0000000000000000000000000000000000002", WalletShort: "0xdef…0002", Direction: core.DirectionUp, TradeCount: 3},
		},
		ConsensusData: []core.ConsensusSignal{
			{Timestamp: ts, Wallets: 2, Direction: core.DirectionUp, Market: "btc-updown-15m-1760709600"},
		},
		ChartPnLData: []core.ChartPoint{{Timestamp: ts.Add(-time.Hour), PnLCumulative: 4}, {Timestamp: ts, PnLCumulative: 12.5}},
		HourlyData:   []core.HourlySignal{{Hour: 13, Count: 2}, {Hour: 14, Count: 1}},
		Errs:         map[string]error{},
		Calls:        map[string]int{},
	}
}

// Fail makes resource return err until cleared with Fail(resource, nil).
func (f *Fake) Fail(resource string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errs, resource)
		return
	}
	f.Errs[resource] = err
}

// CallCount returns how often resource was requested.
func (f *Fake) CallCount(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[resource]
}

// LastQuery returns the most recent signals query.
func (f *Fake) LastQuery() core.SignalQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Queries) == 0 {
		return core.SignalQuery{}
	}
	return f.Queries[len(f.Queries)-1]
}

func (f *Fake) hit(resource string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[resource]++
	return f.Errs[resource]
}

func (f *Fake) Status(ctx context.Context) (core.Status, error) {
	if err := f.hit("status"); err != nil {
		return core.Status{}, err
	}
	return f.StatusData, nil
}

func (f *Fake) KPIs(ctx context.Context) (core.KPIs, error) {
	if err := f.hit("kpis"); err != nil {
		return core.KPIs{}, err
	}
	return f.KPIsData, nil
}

// Signals applies direction, result and paging like the backend does.
func (f *Fake) Signals(ctx context.Context, q core.SignalQuery) (core.SignalsPage, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, q)
	f.mu.Unlock()
	if err := f.hit("signals"); err != nil {
		return core.SignalsPage{}, err
	}

	var match []core.Signal
	for _, s := range f.SignalsData {
		if q.Direction != "" && q.Direction != core.DirectionAll && s.Direction != q.Direction {
			continue
		}
		switch q.Result {
		case core.ResultWin:
			if s.Outcome() != core.OutcomeWin {
				continue
			}
		case core.ResultLoss:
			if s.Outcome() != core.OutcomeLoss {
				continue
			}
		}
		match = append(match, s)
	}

	page := core.SignalsPage{Total: len(match), Limit: q.Limit, Offset: q.Offset, Data: []core.Signal{}}
	if q.Offset < len(match) {
		end := len(match)
		if q.Limit > 0 && q.Offset+q.Limit < end {
			end = q.Offset + q.Limit
		}
		page.Data = append(page.Data, match[q.Offset:end]...)
	}
	return page, nil
}

func (f *Fake) SignalStats(ctx context.Context) (core.SignalStats, error) {
	if err := f.hit("stats"); err != nil {
		return core.SignalStats{}, err
	}
	return f.StatsData, nil
}

func (f *Fake) Baskets(ctx context.Context) ([]core.BasketWallet, error) {
	if err := f.hit("baskets"); err != nil {
		return nil, err
	}
	return f.BasketsData, nil
}

func (f *Fake) Consensus(ctx context.Context) ([]core.ConsensusSignal, error) {
	if err := f.hit("consensus"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.ConsensusSignal(nil), f.ConsensusData...), nil
}

// SetConsensus replaces the consensus feed.
func (f *Fake) SetConsensus(c []core.ConsensusSignal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConsensusData = c
}

func (f *Fake) ChartPnL(ctx context.Context) ([]core.ChartPoint, error) {
	if err := f.hit("chart_pnl"); err != nil {
		return nil, err
	}
	return f.ChartPnLData, nil
}

func (f *Fake) ChartSignals(ctx context.Context) ([]core.HourlySignal, error) {
	if err := f.hit("chart_signals"); err != nil {
		return nil, err
	}
	return f.HourlyData, nil
}
