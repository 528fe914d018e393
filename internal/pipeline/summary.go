package pipeline

import "github.com/newthinker/polydash/internal/core"

// Summary aggregates outcomes of a local signal window
type Summary struct {
	Total       int     `json:"total"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Pending     int     `json:"pending"`
	WinRate     float64 `json:"win_rate"`
	NetProfit   float64 `json:"net_profit"`
	AvgPnL      float64 `json:"avg_pnl"`
	BestStreak  int     `json:"best_streak"`
	WorstStreak int     `json:"worst_streak"`
}

// Summarize walks signals in the given order. Pending signals neither
// extend nor break a streak. WinRate is a percentage of resolved signals.
func Summarize(signals []core.Signal) Summary {
	sum := Summary{Total: len(signals)}

	var wins, losses int
	for _, s := range signals {
		switch s.Outcome() {
		case core.OutcomeWin:
			sum.Wins++
			sum.NetProfit += s.NetProfit()
			wins++
			losses = 0
			sum.BestStreak = max(sum.BestStreak, wins)
		case core.OutcomeLoss:
			sum.Losses++
			sum.NetProfit += s.NetProfit()
			losses++
			wins = 0
			sum.WorstStreak = max(sum.WorstStreak, losses)
		default:
			sum.Pending++
		}
	}

	if resolved := sum.Wins + sum.Losses; resolved > 0 {
		sum.WinRate = float64(sum.Wins) / float64(resolved) * 100
		sum.AvgPnL = sum.NetProfit / float64(resolved)
	}
	return sum
}
