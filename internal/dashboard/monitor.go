package dashboard

import (
	"context"
	"sync"

	"github.com/newthinker/polydash/internal/alert"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/poller"
)

// PageMonitor is the background view feeding alerts and /api/state
const PageMonitor = "monitor"

// Monitor polls the resources that alerts are evaluated on. It runs for
// the lifetime of the server, independent of any open page.
type Monitor struct {
	c         *poller.Controller
	status    *poller.Slot[core.Status]
	kpis      *poller.Slot[core.KPIs]
	baskets   *poller.Slot[[]core.BasketWallet]
	consensus *poller.Slot[[]core.ConsensusSignal]

	eval  *alert.Evaluator
	rules []alert.Rule

	mu  sync.Mutex
	ctx context.Context
}

// NewMonitor creates the monitor. eval may be nil when alerts are disabled.
func NewMonitor(d Deps, eval *alert.Evaluator, rules []alert.Rule) *Monitor {
	c := d.controller(PageMonitor)
	m := &Monitor{
		c:         c,
		status:    poller.Bind(c, "status", d.Source.Status),
		kpis:      poller.Bind(c, "kpis", d.Source.KPIs),
		baskets:   poller.Bind(c, "baskets", d.Source.Baskets),
		consensus: poller.Bind(c, "consensus", d.Source.Consensus),
		eval:      eval,
		rules:     rules,
		ctx:       context.Background(),
	}
	if eval != nil {
		c.OnCommit(m.evaluate)
	}
	return m
}

func (m *Monitor) Name() string                   { return PageMonitor }
func (m *Monitor) Controller() *poller.Controller { return m.c }
func (m *Monitor) Model() any                     { return m.State() }

// Start begins polling; alert deliveries use ctx.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()
	return m.c.Start(ctx)
}

func (m *Monitor) Stop() {
	m.c.Stop()
}

func (m *Monitor) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

func (m *Monitor) evaluate(resource string, err error) {
	if err != nil {
		return
	}
	ctx := m.context()

	switch resource {
	case "status":
		m.eval.UpdateMetrics(alert.StatusMetrics(m.status.Snapshot().Data))
		m.eval.EvaluateAll(ctx, m.rules)
	case "kpis":
		m.eval.UpdateMetrics(alert.KPIMetrics(m.kpis.Snapshot().Data))
		m.eval.EvaluateAll(ctx, m.rules)
	case "consensus":
		m.eval.EvaluateConsensus(ctx, m.consensus.Snapshot().Data, len(m.baskets.Snapshot().Data))
	}
}

// State is the monitor snapshot served by /api/state
type State struct {
	Status    core.Status         `json:"status"`
	KPIs      KPICards            `json:"kpis"`
	Consensus ConsensusWidget     `json:"consensus"`
	Resources map[string]Resource `json:"resources"`
}

func (m *Monitor) State() State {
	status := m.status.Snapshot()
	kpis := m.kpis.Snapshot()
	baskets := m.baskets.Snapshot()
	consensus := m.consensus.Snapshot()

	return State{
		Status:    status.Data,
		KPIs:      BandKPIs(kpis.Data),
		Consensus: NewConsensusWidget(consensus.Data, len(baskets.Data)),
		Resources: map[string]Resource{
			"status":    resourceOf(status, one(status)),
			"kpis":      resourceOf(kpis, one(kpis)),
			"baskets":   resourceOf(baskets, len(baskets.Data)),
			"consensus": resourceOf(consensus, len(consensus.Data)),
		},
	}
}
