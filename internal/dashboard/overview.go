package dashboard

import (
	"context"

	"github.com/newthinker/polydash/internal/band"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/pipeline"
	"github.com/newthinker/polydash/internal/poller"
)

// LatestSignals is the size of the overview signal table
const LatestSignals = 20

// Overview is the landing page
type Overview struct {
	c         *poller.Controller
	kpis      *poller.Slot[core.KPIs]
	signals   *poller.Slot[core.SignalsPage]
	pnl       *poller.Slot[[]core.ChartPoint]
	hourly    *poller.Slot[[]core.HourlySignal]
	baskets   *poller.Slot[[]core.BasketWallet]
	consensus *poller.Slot[[]core.ConsensusSignal]
}

func NewOverview(d Deps) *Overview {
	limit := d.SignalsLimit
	if limit <= 0 {
		limit = LatestSignals
	}
	src := d.Source
	c := d.controller(PageOverview)
	return &Overview{
		c:    c,
		kpis: poller.Bind(c, "kpis", src.KPIs),
		signals: poller.Bind(c, "signals", func(ctx context.Context) (core.SignalsPage, error) {
			return src.Signals(ctx, core.SignalQuery{Limit: limit})
		}),
		pnl:       poller.Bind(c, "chart_pnl", src.ChartPnL),
		hourly:    poller.Bind(c, "chart_signals", src.ChartSignals),
		baskets:   poller.Bind(c, "baskets", src.Baskets),
		consensus: poller.Bind(c, "consensus", src.Consensus),
	}
}

func (o *Overview) Name() string                   { return PageOverview }
func (o *Overview) Controller() *poller.Controller { return o.c }
func (o *Overview) Model() any                     { return o.Build() }

// KPICards is the banded KPI row
type KPICards struct {
	core.KPIs
	WinRateLevel  band.Level `json:"win_rate_level"`
	DrawdownRatio float64    `json:"drawdown_ratio"`
	DrawdownLevel band.Level `json:"drawdown_level"`
}

// ConsensusWidget summarises the newest consensus event
type ConsensusWidget struct {
	Latest     *core.ConsensusSignal `json:"latest,omitempty"`
	Total      int                   `json:"total"`
	Level      band.Level            `json:"level"`
	Actionable bool                  `json:"actionable"`
}

// HourlyView is the signal-per-hour histogram
type HourlyView struct {
	Hours    []core.HourlySignal `json:"hours"`
	BestHour int                 `json:"best_hour"`
	HasBest  bool                `json:"has_best"`
	Max      int                 `json:"max"`
}

type OverviewModel struct {
	KPIs      KPICards            `json:"kpis"`
	PnL       []core.ChartPoint   `json:"pnl"`
	Latest    []core.Signal       `json:"latest"`
	Split     pipeline.Split      `json:"split"`
	Summary   pipeline.Summary    `json:"summary"`
	Hourly    HourlyView          `json:"hourly"`
	Window    HourlyView          `json:"window_hourly"`
	Consensus ConsensusWidget     `json:"consensus"`
	Resources map[string]Resource `json:"resources"`
}

// Build computes the overview model from the current snapshots.
func (o *Overview) Build() OverviewModel {
	kpis := o.kpis.Snapshot()
	signals := o.signals.Snapshot()
	pnl := o.pnl.Snapshot()
	hourly := o.hourly.Snapshot()
	baskets := o.baskets.Snapshot()
	consensus := o.consensus.Snapshot()

	window := signals.Data.Data
	m := OverviewModel{
		KPIs:      BandKPIs(kpis.Data),
		PnL:       pnl.Data,
		Latest:    pipeline.Latest(window, LatestSignals),
		Split:     pipeline.SplitDirections(window),
		Summary:   pipeline.Summarize(window),
		Hourly:    NewHourlyView(hourly.Data),
		Window:    NewHourlyView(pipeline.Hourly(window)),
		Consensus: NewConsensusWidget(consensus.Data, len(baskets.Data)),
		Resources: map[string]Resource{
			"kpis":          resourceOf(kpis, one(kpis)),
			"signals":       resourceOf(signals, len(window)),
			"chart_pnl":     resourceOf(pnl, len(pnl.Data)),
			"chart_signals": resourceOf(hourly, len(hourly.Data)),
			"baskets":       resourceOf(baskets, len(baskets.Data)),
			"consensus":     resourceOf(consensus, len(consensus.Data)),
		},
	}
	return m
}

// BandKPIs attaches the win-rate and drawdown bands.
func BandKPIs(k core.KPIs) KPICards {
	return KPICards{
		KPIs:          k,
		WinRateLevel:  band.WinRate(k.WinRate),
		DrawdownRatio: band.DrawdownRatio(k.DrawdownMax, k.PnLTotal),
		DrawdownLevel: band.Drawdown(k.DrawdownMax, k.PnLTotal),
	}
}

// NewConsensusWidget reads the newest event, which the backend lists first.
func NewConsensusWidget(events []core.ConsensusSignal, wallets int) ConsensusWidget {
	w := ConsensusWidget{Total: band.ConsensusTotal(wallets), Level: band.None}
	if len(events) == 0 {
		return w
	}
	latest := events[0]
	w.Latest = &latest
	w.Level = band.Consensus(latest.Wallets, wallets)
	w.Actionable = band.Actionable(latest.Wallets)
	return w
}

func NewHourlyView(hours []core.HourlySignal) HourlyView {
	v := HourlyView{Hours: hours}
	if v.Hours == nil {
		v.Hours = []core.HourlySignal{}
	}
	v.BestHour, v.HasBest = pipeline.BestHour(hours)
	for _, h := range hours {
		v.Max = max(v.Max, h.Count)
	}
	return v
}
