package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/notifier"
	"github.com/newthinker/polydash/internal/storage/alertlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mu   sync.Mutex
	sent []notifier.Alert
	err  error
}

func (m *mockNotifier) Name() string { return "mock" }

func (m *mockNotifier) Send(_ context.Context, a notifier.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, a)
	return m.err
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var t0 = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T, opts ...Option) (*Evaluator, *mockNotifier) {
	t.Helper()
	n := &mockNotifier{}
	reg := notifier.NewRegistry()
	require.NoError(t, reg.Register(n))
	e := NewEvaluator(reg, opts...)
	e.now = func() time.Time { return t0 }
	return e, n
}

// advanceTime moves the evaluator clock forward.
func (e *Evaluator) advanceTime(d time.Duration) {
	oldNow := e.now
	e.now = func() time.Time {
		return oldNow().Add(d)
	}
}

func TestEvaluator_EvaluateRule(t *testing.T) {
	eval, n := newTestEvaluator(t)
	ctx := context.Background()

	rule := Rule{
		Name:     "low_win_rate",
		Expr:     "win_rate < 40",
		For:      time.Minute,
		Severity: "warning",
		Message:  "Win rate dropped",
	}

	eval.UpdateMetrics(map[string]float64{"win_rate": 35})
	// First evaluation starts the pending timer, doesn't fire
	assert.False(t, eval.Evaluate(ctx, rule))
	assert.Equal(t, 0, n.count())

	eval.advanceTime(2 * time.Minute)
	assert.True(t, eval.Evaluate(ctx, rule))
	require.Equal(t, 1, n.count())

	got := n.sent[0]
	assert.Equal(t, notifier.KindRule, got.Kind)
	assert.Equal(t, "low_win_rate", got.Title)
	assert.Equal(t, "[WARNING] low_win_rate: Win rate dropped (win_rate=35.00)", got.Message)
}

func TestEvaluator_Cooldown(t *testing.T) {
	eval, n := newTestEvaluator(t, WithCooldown(5*time.Minute))
	ctx := context.Background()

	rule := Rule{Name: "bot_down", Expr: "bot_running == 0", Severity: "critical", Message: "Bot stopped"}
	eval.UpdateMetrics(StatusMetrics(core.Status{BotRunning: false}))

	eval.Evaluate(ctx, rule)
	eval.Evaluate(ctx, rule)
	eval.Evaluate(ctx, rule)
	assert.Equal(t, 1, n.count())

	eval.advanceTime(6 * time.Minute)
	eval.Evaluate(ctx, rule)
	assert.Equal(t, 2, n.count())
}

func TestEvaluator_RuleNotTriggered(t *testing.T) {
	eval, n := newTestEvaluator(t)

	eval.UpdateMetrics(KPIMetrics(core.KPIs{WinRate: 62}))
	eval.Evaluate(context.Background(), Rule{Name: "low", Expr: "win_rate < 40"})

	assert.Equal(t, 0, n.count())
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	eval, n := newTestEvaluator(t)

	rules := []Rule{
		{Name: "rule1", Expr: "bot_running == 0", Severity: "critical", Message: "Down"},
		{Name: "rule2", Expr: "drawdown_ratio > 0.75", Severity: "warning", Message: "Drawdown"},
	}

	// Only rule1 triggers
	eval.UpdateMetrics(StatusMetrics(core.Status{}))
	eval.UpdateMetrics(KPIMetrics(core.KPIs{PnLTotal: 100, DrawdownMax: 10}))

	assert.Equal(t, 1, eval.EvaluateAll(context.Background(), rules))
	assert.Equal(t, 1, n.count())
}

func TestEvaluator_PendingClearsWhenRuleNoLongerTriggers(t *testing.T) {
	eval, n := newTestEvaluator(t)
	ctx := context.Background()

	rule := Rule{Name: "low", Expr: "win_rate < 40", For: time.Minute}

	eval.UpdateMetrics(map[string]float64{"win_rate": 30})
	eval.Evaluate(ctx, rule)

	eval.UpdateMetrics(map[string]float64{"win_rate": 50})
	eval.Evaluate(ctx, rule)

	eval.advanceTime(2 * time.Minute)
	eval.UpdateMetrics(map[string]float64{"win_rate": 30})
	eval.Evaluate(ctx, rule)

	// Should not fire yet because pending was cleared
	assert.Equal(t, 0, n.count())
}

func TestEvaluator_Metrics(t *testing.T) {
	eval, _ := newTestEvaluator(t)
	eval.UpdateMetrics(map[string]float64{"a": 1})
	eval.UpdateMetrics(map[string]float64{"b": 2})

	m := eval.Metrics()
	assert.Equal(t, map[string]float64{"a": 1, "b": 2}, m)

	m["a"] = 9
	assert.Equal(t, 1.0, eval.Metrics()["a"])
}

func consensusAt(at time.Time, wallets int, market string) core.ConsensusSignal {
	return core.ConsensusSignal{Timestamp: at, Wallets: wallets, Direction: core.DirectionUp, Market: market}
}

// seedEmpty feeds an empty first consensus list so later events are new.
func seedEmpty(e *Evaluator) {
	e.EvaluateConsensus(context.Background(), nil, 0)
}

func TestEvaluateConsensus(t *testing.T) {
	store := alertlog.NewMemoryStore(10)
	eval, n := newTestEvaluator(t, WithStore(store), WithCooldown(time.Minute))
	seedEmpty(eval)
	ctx := context.Background()

	events := []core.ConsensusSignal{
		consensusAt(t0, 2, "btc-updown-15m-1760709600"),
		consensusAt(t0.Add(-time.Hour), 3, "older"),
	}

	require.True(t, eval.EvaluateConsensus(ctx, events, 2))
	require.Equal(t, 1, n.count())

	got := n.sent[0]
	assert.Equal(t, notifier.KindConsensus, got.Kind)
	assert.Equal(t, "CONSENSUS SIGNAL UP", got.Title)
	assert.Equal(t, "2/3 wallets agree on btc-updown-15m-1760709600", got.Message)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, "majority", got.Level)

	// Same event again is not announced twice
	eval.advanceTime(time.Hour)
	assert.False(t, eval.EvaluateConsensus(ctx, events, 2))
	assert.Equal(t, 1, n.count())

	recs, err := store.List(ctx, alertlog.ListFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "btc-updown-15m-1760709600", recs[0].Alert.Market)
	assert.Empty(t, recs[0].Failed)
}

func TestEvaluateConsensus_NotActionable(t *testing.T) {
	eval, n := newTestEvaluator(t)

	assert.False(t, eval.EvaluateConsensus(context.Background(), nil, 3))
	assert.False(t, eval.EvaluateConsensus(context.Background(),
		[]core.ConsensusSignal{consensusAt(t0, 1, "m")}, 3))
	assert.Equal(t, 0, n.count())
}

func TestEvaluateConsensus_MarketCooldown(t *testing.T) {
	eval, n := newTestEvaluator(t, WithCooldown(10*time.Minute))
	seedEmpty(eval)
	ctx := context.Background()

	eval.EvaluateConsensus(ctx, []core.ConsensusSignal{consensusAt(t0, 2, "m")}, 3)

	// A new event on the same market inside the cooldown stays quiet
	eval.advanceTime(time.Minute)
	assert.False(t, eval.EvaluateConsensus(ctx, []core.ConsensusSignal{consensusAt(t0.Add(time.Minute), 3, "m")}, 3))

	// Another market is independent
	assert.True(t, eval.EvaluateConsensus(ctx, []core.ConsensusSignal{consensusAt(t0.Add(time.Minute), 2, "other")}, 3))
	assert.Equal(t, 2, n.count())
}

func TestEvaluateConsensus_RecordsFailures(t *testing.T) {
	store := alertlog.NewMemoryStore(10)
	eval, n := newTestEvaluator(t, WithStore(store))
	seedEmpty(eval)
	n.err = assert.AnError

	eval.EvaluateConsensus(context.Background(), []core.ConsensusSignal{consensusAt(t0, 3, "m")}, 3)

	recs, _ := store.List(context.Background(), alertlog.ListFilter{})
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Failed, "mock")
	assert.False(t, recs[0].Delivered(1))
}

func TestEvaluateConsensus_FirstFeedIsNotAnnounced(t *testing.T) {
	eval, n := newTestEvaluator(t, WithCooldown(time.Minute))
	ctx := context.Background()
	head := consensusAt(t0, 3, "m")

	// After a restart the newest event was already announced by the last run
	assert.False(t, eval.EvaluateConsensus(ctx, []core.ConsensusSignal{head}, 3))
	eval.advanceTime(time.Hour)
	assert.False(t, eval.EvaluateConsensus(ctx, []core.ConsensusSignal{head}, 3))
	assert.Equal(t, 0, n.count())

	next := consensusAt(t0.Add(15*time.Minute), 2, "m")
	assert.True(t, eval.EvaluateConsensus(ctx, []core.ConsensusSignal{next, head}, 3))
	assert.Equal(t, 1, n.count())
}
