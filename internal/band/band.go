// Package band classifies dashboard numbers into display levels.
package band

import (
	"fmt"
	"math"
)

// Level is a display classification
type Level string

const (
	Good Level = "good"
	Warn Level = "warn"
	Bad  Level = "bad"

	High Level = "high"
	Mid  Level = "mid"
	Low  Level = "low"

	Full     Level = "full"
	Majority Level = "majority"
	None     Level = "none"
)

// Palette
const (
	ColorGreen = "#00FF85"
	ColorAmber = "#FBBF24"
	ColorRed   = "#FF3B3B"
	ColorSlate = "#64748B"
)

// Color returns the hex colour a level renders with.
func (l Level) Color() string {
	switch l {
	case Good, Low, Full:
		return ColorGreen
	case Warn, Mid, Majority:
		return ColorAmber
	case Bad, High:
		return ColorRed
	default:
		return ColorSlate
	}
}

// WinRate bands a percentage: >=60 good, >=40 warn, else bad.
func WinRate(rate float64) Level {
	rate = clamp(rate, 0, 100)
	switch {
	case rate >= 60:
		return Good
	case rate >= 40:
		return Warn
	default:
		return Bad
	}
}

// DrawdownRatio is |drawdown| / max(|pnl|, 1).
func DrawdownRatio(drawdown, pnl float64) float64 {
	return math.Abs(drawdown) / math.Max(math.Abs(pnl), 1)
}

// Drawdown bands the drawdown ratio: >0.75 high, >0.35 mid, else low.
func Drawdown(drawdown, pnl float64) Level {
	switch r := DrawdownRatio(drawdown, pnl); {
	case r > 0.75:
		return High
	case r > 0.35:
		return Mid
	default:
		return Low
	}
}

// MinConsensusWallets is the wallet count assumed when fewer are monitored.
const MinConsensusWallets = 3

// ConsensusTotal floors the monitored wallet count at MinConsensusWallets.
func ConsensusTotal(wallets int) int {
	return max(wallets, MinConsensusWallets)
}

// Consensus bands agreeing wallets against the monitored total.
func Consensus(agreeing, wallets int) Level {
	agreeing = max(agreeing, 0)
	total := ConsensusTotal(wallets)
	switch {
	case agreeing >= total:
		return Full
	case agreeing >= (total+1)/2:
		return Majority
	default:
		return None
	}
}

// Actionable reports an agreement worth alerting on, whatever the total.
func Actionable(agreeing int) bool {
	return agreeing >= 2
}

// Confidence clamps a 0..1 confidence and returns it as a whole percentage.
func Confidence(c float64) float64 {
	return math.Round(clamp(c, 0, 1) * 100)
}

// Sign colours a value green when non-negative.
func Sign(v float64) string {
	if v >= 0 {
		return ColorGreen
	}
	return ColorRed
}

// FormatUptime renders seconds as "Xd Xh Xm", dropping days when zero.
func FormatUptime(seconds float64) string {
	s := int64(math.Max(seconds, 0))
	d := s / 86400
	h := (s % 86400) / 3600
	m := (s % 3600) / 60
	if d > 0 {
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
