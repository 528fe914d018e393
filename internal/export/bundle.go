package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/core"
	"golang.org/x/sync/errgroup"
)

// Bundle is the full-dataset export
type Bundle struct {
	ExportedAt   time.Time              `json:"exported_at"`
	KPIs         core.KPIs              `json:"kpis"`
	Signals      []core.Signal          `json:"signals"`
	SignalsTotal int                    `json:"signals_total"`
	Stats        core.SignalStats       `json:"stats"`
	Wallets      []core.BasketWallet    `json:"wallets"`
	Consensus    []core.ConsensusSignal `json:"consensus"`
	ChartPnL     []core.ChartPoint      `json:"chart_pnl"`
	ChartSignals []core.HourlySignal    `json:"chart_signals"`
}

// Full fetches every section concurrently. Any failure fails the whole
// export and no bundle is returned.
func Full(ctx context.Context, src client.Source, limit int, now time.Time) (*Bundle, error) {
	b := &Bundle{ExportedAt: now.UTC()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		b.KPIs, err = src.KPIs(ctx)
		return section("kpis", err)
	})
	g.Go(func() error {
		page, err := src.Signals(ctx, core.SignalQuery{Limit: limit})
		b.Signals, b.SignalsTotal = page.Data, page.Total
		return section("signals", err)
	})
	g.Go(func() (err error) {
		b.Stats, err = src.SignalStats(ctx)
		return section("stats", err)
	})
	g.Go(func() (err error) {
		b.Wallets, err = src.Baskets(ctx)
		return section("baskets", err)
	})
	g.Go(func() (err error) {
		b.Consensus, err = src.Consensus(ctx)
		return section("consensus", err)
	})
	g.Go(func() (err error) {
		b.ChartPnL, err = src.ChartPnL(ctx)
		return section("chart_pnl", err)
	})
	g.Go(func() (err error) {
		b.ChartSignals, err = src.ChartSignals(ctx)
		return section("chart_signals", err)
	})

	if err := g.Wait(); err != nil {
		return nil, core.WrapError(core.ErrExportFailed, err)
	}
	return b, nil
}

func section(name string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// WriteJSON writes the bundle as indented JSON.
func WriteJSON(w io.Writer, b *Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return core.WrapError(core.ErrExportFailed, err)
	}
	return nil
}
