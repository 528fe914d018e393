package pipeline

import "github.com/newthinker/polydash/internal/core"

// FilterDirection keeps signals with the given direction. ALL or empty keeps everything.
func FilterDirection(signals []core.Signal, dir core.Direction) []core.Signal {
	if dir == "" || dir == core.DirectionAll {
		return append([]core.Signal(nil), signals...)
	}
	out := make([]core.Signal, 0, len(signals))
	for _, s := range signals {
		if s.Direction == dir {
			out = append(out, s)
		}
	}
	return out
}

// FilterResult keeps resolved signals with the given outcome.
// Pending signals never match WIN or LOSS.
func FilterResult(signals []core.Signal, res core.Result) []core.Signal {
	var want core.Outcome
	switch res {
	case core.ResultWin:
		want = core.OutcomeWin
	case core.ResultLoss:
		want = core.OutcomeLoss
	default:
		return append([]core.Signal(nil), signals...)
	}

	out := make([]core.Signal, 0, len(signals))
	for _, s := range signals {
		if s.Outcome() == want {
			out = append(out, s)
		}
	}
	return out
}

// Latest returns the last n signals, newest first.
func Latest(signals []core.Signal, n int) []core.Signal {
	if n <= 0 {
		return []core.Signal{}
	}
	start := len(signals) - n
	if start < 0 {
		start = 0
	}
	out := make([]core.Signal, 0, len(signals)-start)
	for i := len(signals) - 1; i >= start; i-- {
		out = append(out, signals[i])
	}
	return out
}

// ParseDirection accepts UP, DOWN or ALL in any case; anything else is ALL.
func ParseDirection(s string) core.Direction {
	switch core.Direction(upper(s)) {
	case core.DirectionUp:
		return core.DirectionUp
	case core.DirectionDown:
		return core.DirectionDown
	default:
		return core.DirectionAll
	}
}

// ParseResult accepts WIN, LOSS or ALL in any case; anything else is ALL.
func ParseResult(s string) core.Result {
	switch core.Result(upper(s)) {
	case core.ResultWin:
		return core.ResultWin
	case core.ResultLoss:
		return core.ResultLoss
	default:
		return core.ResultAll
	}
}
