package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/polydash/internal/band"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/notifier"
	"github.com/newthinker/polydash/internal/storage/alertlog"
	"go.uber.org/zap"
)

// announced consensus keys are forgotten after this long
const announceRetention = 24 * time.Hour

// Evaluator evaluates alert rules and consensus events and sends notifications.
type Evaluator struct {
	registry *notifier.Registry
	store    alertlog.Store
	logger   *zap.Logger
	metrics  map[string]float64
	cooldown time.Duration

	// Track pending alerts (waiting for "for" duration)
	pending map[string]time.Time
	// Track last fired time for cooldown
	lastFired map[string]time.Time
	// Consensus events already handled, keyed by timestamp and market
	announced map[string]time.Time
	// seeded is set once the first consensus feed has been seen
	seeded bool

	now func() time.Time

	mu sync.Mutex
}

// Option configures an Evaluator
type Option func(*Evaluator)

func WithCooldown(d time.Duration) Option {
	return func(e *Evaluator) { e.cooldown = d }
}

// WithStore records every fired alert
func WithStore(s alertlog.Store) Option {
	return func(e *Evaluator) { e.store = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// NewEvaluator creates a new alert evaluator.
func NewEvaluator(registry *notifier.Registry, opts ...Option) *Evaluator {
	e := &Evaluator{
		registry:  registry,
		logger:    zap.NewNop(),
		metrics:   make(map[string]float64),
		cooldown:  5 * time.Minute,
		pending:   make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
		announced: make(map[string]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UpdateMetrics merges values into the current metrics.
func (e *Evaluator) UpdateMetrics(metrics map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range metrics {
		e.metrics[k] = v
	}
}

// Metrics returns a copy of the current metrics.
func (e *Evaluator) Metrics() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]float64, len(e.metrics))
	for k, v := range e.metrics {
		out[k] = v
	}
	return out
}

// Evaluate evaluates a single rule and fires a notification if triggered.
func (e *Evaluator) Evaluate(ctx context.Context, rule Rule) bool {
	e.mu.Lock()
	now := e.now()

	if !rule.Evaluate(e.metrics) {
		delete(e.pending, rule.Name)
		e.mu.Unlock()
		return false
	}

	if rule.For > 0 {
		pendingSince, isPending := e.pending[rule.Name]
		if !isPending {
			e.pending[rule.Name] = now
			e.mu.Unlock()
			return false
		}
		if now.Sub(pendingSince) < rule.For {
			e.mu.Unlock()
			return false
		}
	}

	key := "rule:" + rule.Name
	if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cooldown {
		e.mu.Unlock()
		return false
	}

	e.lastFired[key] = now
	delete(e.pending, rule.Name)
	msg := rule.FormatMessage(e.metrics)
	e.mu.Unlock()

	e.fire(ctx, notifier.Alert{
		Kind:      notifier.KindRule,
		Severity:  rule.Severity,
		Title:     rule.Name,
		Message:   msg,
		Timestamp: now.UTC(),
	})
	return true
}

// EvaluateAll evaluates all rules and returns how many fired.
func (e *Evaluator) EvaluateAll(ctx context.Context, rules []Rule) int {
	fired := 0
	for _, rule := range rules {
		if e.Evaluate(ctx, rule) {
			fired++
		}
	}
	return fired
}

// EvaluateConsensus announces the newest consensus event when enough wallets
// agree. Each event is announced at most once, and a market stays quiet for
// the cooldown after an announcement. The first feed only records its newest
// event, so a restart does not repeat the last announcement. wallets is the
// number of monitored wallets.
func (e *Evaluator) EvaluateConsensus(ctx context.Context, events []core.ConsensusSignal, wallets int) bool {
	e.mu.Lock()
	now := e.now()
	e.forget(now)

	if !e.seeded {
		e.seeded = true
		if len(events) > 0 {
			e.announced[consensusID(events[0])] = now
		}
		e.mu.Unlock()
		return false
	}
	if len(events) == 0 || !band.Actionable(events[0].Wallets) {
		e.mu.Unlock()
		return false
	}
	latest := events[0]

	id := consensusID(latest)
	if _, seen := e.announced[id]; seen {
		e.mu.Unlock()
		return false
	}
	e.announced[id] = now

	key := "consensus:" + latest.Market
	if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cooldown {
		e.mu.Unlock()
		e.logger.Debug("consensus alert suppressed by cooldown", zap.String("market", latest.Market))
		return false
	}
	e.lastFired[key] = now
	e.mu.Unlock()

	total := band.ConsensusTotal(wallets)
	e.fire(ctx, notifier.Alert{
		Kind:      notifier.KindConsensus,
		Severity:  "info",
		Title:     fmt.Sprintf("CONSENSUS SIGNAL %s", latest.Direction),
		Message:   fmt.Sprintf("%d/%d wallets agree on %s", latest.Wallets, total, latest.Market),
		Market:    latest.Market,
		Direction: latest.Direction,
		Wallets:   latest.Wallets,
		Total:     total,
		Level:     string(band.Consensus(latest.Wallets, wallets)),
		Timestamp: latest.Timestamp.UTC(),
	})
	return true
}

func consensusID(c core.ConsensusSignal) string {
	return c.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + c.Market
}

func (e *Evaluator) forget(now time.Time) {
	for id, at := range e.announced {
		if now.Sub(at) > announceRetention {
			delete(e.announced, id)
		}
	}
}

func (e *Evaluator) fire(ctx context.Context, a notifier.Alert) {
	errs := e.registry.NotifyAll(ctx, a)

	failed := make(map[string]string, len(errs))
	for name, err := range errs {
		failed[name] = err.Error()
		e.logger.Warn("alert delivery failed",
			zap.String("notifier", name),
			zap.String("kind", a.Kind),
			zap.Error(err),
		)
	}

	e.logger.Info("alert fired",
		zap.String("kind", a.Kind),
		zap.String("title", a.Title),
		zap.Int("notifiers", e.registry.Len()),
		zap.Int("failed", len(errs)),
	)

	if e.store == nil {
		return
	}
	rec := alertlog.Record{Alert: a, SentAt: e.now().UTC()}
	if len(failed) > 0 {
		rec.Failed = failed
	}
	if _, err := e.store.Save(ctx, rec); err != nil {
		e.logger.Warn("saving alert record", zap.Error(err))
	}
}
