package core

import (
	"fmt"
	"time"
)

// Direction is the predicted move of a signal
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	// DirectionAll disables direction filtering
	DirectionAll Direction = "ALL"
)

// Result filters signals by their resolved outcome
type Result string

const (
	ResultAll  Result = "ALL"
	ResultWin  Result = "WIN"
	ResultLoss Result = "LOSS"
)

// Outcome is the resolution state of a single signal
type Outcome string

const (
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomePending Outcome = "PENDING"
)

// Indicator is one scored input of a signal
type Indicator struct {
	Value float64 `json:"value"`
	Score float64 `json:"score"`
}

// PnL is the theoretical outcome of a resolved signal
type PnL struct {
	Won        bool    `json:"won"`
	NetProfit  float64 `json:"net_profit"`
	ROIPct     float64 `json:"roi_pct"`
	EntryPrice float64 `json:"entry_price"`
	TotalFee   float64 `json:"total_fee"`
}

// Signal is one directional prediction emitted by the bot
type Signal struct {
	Timestamp        time.Time            `json:"timestamp"`
	Type             string               `json:"type,omitempty"`
	Event            string               `json:"event,omitempty"`
	Slug             string               `json:"slug,omitempty"`
	Direction        Direction            `json:"direction"`
	Score            float64              `json:"score"`
	Confidence       float64              `json:"confidence"`
	BTCPrice         float64              `json:"btc_price"`
	OpenPrice        float64              `json:"open_price,omitempty"`
	DeltaPct         float64              `json:"delta_pct"`
	CloseTS          int64                `json:"close_ts,omitempty"`
	SecondsRemaining float64              `json:"seconds_remaining,omitempty"`
	DataPoints       int                  `json:"data_points,omitempty"`
	Indicators       map[string]Indicator `json:"indicators,omitempty"`
	PnL              *PnL                 `json:"pnl_theoretical"`
	DryRun           bool                 `json:"dry_run,omitempty"`

	// TimestampRaw is the timestamp as the backend sent it
	TimestampRaw string `json:"-"`
}

// Outcome reports whether the signal is resolved and how.
// A missing PnL block means the outcome is still pending.
func (s Signal) Outcome() Outcome {
	switch {
	case s.PnL == nil:
		return OutcomePending
	case s.PnL.Won:
		return OutcomeWin
	default:
		return OutcomeLoss
	}
}

// ROI returns the resolved ROI percentage, 0 while pending
func (s Signal) ROI() float64 {
	if s.PnL == nil {
		return 0
	}
	return s.PnL.ROIPct
}

// NetProfit returns the resolved net profit, 0 while pending
func (s Signal) NetProfit() float64 {
	if s.PnL == nil {
		return 0
	}
	return s.PnL.NetProfit
}

// Won reports a resolved win; pending signals are not wins
func (s Signal) Won() bool {
	return s.PnL != nil && s.PnL.Won
}

// SignalsPage is one server-side page of the signal history
type SignalsPage struct {
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
	Data   []Signal `json:"data"`
}

// SignalQuery holds the server-side filters of the signals endpoint
type SignalQuery struct {
	Direction Direction
	Result    Result
	Limit     int
	Offset    int
}

// Key identifies the query for caching
func (q SignalQuery) Key() string {
	dir := q.Direction
	if dir == "" {
		dir = DirectionAll
	}
	res := q.Result
	if res == "" {
		res = ResultAll
	}
	return fmt.Sprintf("signals?direction=%s&result=%s&limit=%d&offset=%d", dir, res, q.Limit, q.Offset)
}

// KPIs is the aggregate performance snapshot
type KPIs struct {
	TotalSignals int     `json:"total_signals"`
	WinRate      float64 `json:"win_rate"`
	PnLTotal     float64 `json:"pnl_total"`
	PnLPostFees  float64 `json:"pnl_post_fees"`
	DrawdownMax  float64 `json:"drawdown_max"`
	AvgPnL       float64 `json:"avg_pnl"`
}

// ChartPoint is one sample of the cumulative PnL series
type ChartPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	PnLCumulative float64   `json:"pnl_cumulative"`
}

// HourlySignal is the signal count of one UTC hour
type HourlySignal struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// BasketWallet is a monitored wallet snapshot
type BasketWallet struct {
	Wallet      string     `json:"wallet"`
	WalletShort string     `json:"wallet_short"`
	LastTrade   *time.Time `json:"last_trade"`
	Direction   Direction  `json:"direction"`
	Amount      float64    `json:"amount"`
	TradeCount  int        `json:"trade_count"`
}

// ConsensusSignal records wallets agreeing on a direction
type ConsensusSignal struct {
	Timestamp time.Time `json:"timestamp"`
	Wallets   int       `json:"wallets"`
	Direction Direction `json:"direction"`
	Market    string    `json:"market"`
}

// SignalStats holds backend-computed signal statistics
type SignalStats struct {
	WinRateUp   float64 `json:"win_rate_up"`
	WinRateDown float64 `json:"win_rate_down"`
	AvgPnL      float64 `json:"avg_pnl"`
	BestStreak  int     `json:"best_streak"`
	WorstStreak int     `json:"worst_streak"`
	BestHour    int     `json:"best_hour"`
}

// Status is the bot liveness snapshot
type Status struct {
	UptimeSeconds float64   `json:"uptime_seconds"`
	UptimeHours   float64   `json:"uptime_hours"`
	BotRunning    bool      `json:"bot_running"`
	SignalsCount  int       `json:"signals_count"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
}
