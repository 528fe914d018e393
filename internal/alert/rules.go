package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/polydash/internal/band"
	"github.com/newthinker/polydash/internal/core"
)

// Rule defines a threshold alert on dashboard metrics, e.g. "win_rate < 40".
type Rule struct {
	Name     string        `mapstructure:"name" yaml:"name"`
	Expr     string        `mapstructure:"expr" yaml:"expr"`
	For      time.Duration `mapstructure:"for" yaml:"for"`
	Severity string        `mapstructure:"severity" yaml:"severity"`
	Message  string        `mapstructure:"message" yaml:"message"`
}

// "metric op value"; supports >, <, >=, <=, ==, !=
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

func (r *Rule) parse() (metric, op string, threshold float64, ok bool) {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return "", "", 0, false
	}
	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return "", "", 0, false
	}
	return matches[1], matches[2], threshold, true
}

// Validate reports a malformed rule.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("alert rule name is required"))
	}
	if _, _, _, ok := r.parse(); !ok {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alert rule %s: bad expression %q", r.Name, r.Expr))
	}
	return nil
}

// Evaluate evaluates the rule expression against metrics.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	metricName, op, threshold, ok := r.parse()
	if !ok {
		return false
	}

	value, exists := metrics[metricName]
	if !exists {
		return false
	}

	switch op {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	case "==":
		return value == threshold
	case "!=":
		return value != threshold
	default:
		return false
	}
}

// FormatMessage formats the alert message with the current metric value.
func (r *Rule) FormatMessage(metrics map[string]float64) string {
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.Severity), r.Name, r.Message)
	if metricName, _, _, ok := r.parse(); ok {
		if v, exists := metrics[metricName]; exists {
			msg += fmt.Sprintf(" (%s=%.2f)", metricName, v)
		}
	}
	return msg
}

// KPIMetrics exposes the KPI snapshot to rule expressions.
func KPIMetrics(k core.KPIs) map[string]float64 {
	return map[string]float64{
		"total_signals":  float64(k.TotalSignals),
		"win_rate":       k.WinRate,
		"pnl_total":      k.PnLTotal,
		"pnl_post_fees":  k.PnLPostFees,
		"drawdown_max":   k.DrawdownMax,
		"drawdown_ratio": band.DrawdownRatio(k.DrawdownMax, k.PnLTotal),
		"avg_pnl":        k.AvgPnL,
	}
}

// StatusMetrics exposes the bot status to rule expressions.
func StatusMetrics(s core.Status) map[string]float64 {
	running := 0.0
	if s.BotRunning {
		running = 1
	}
	return map[string]float64{
		"bot_running":   running,
		"uptime_hours":  s.UptimeHours,
		"signals_count": float64(s.SignalsCount),
	}
}
