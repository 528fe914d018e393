// internal/client/endpoints.go
package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/newthinker/polydash/internal/core"
)

// Source is the read surface of the bot backend.
type Source interface {
	Status(ctx context.Context) (core.Status, error)
	KPIs(ctx context.Context) (core.KPIs, error)
	Signals(ctx context.Context, q core.SignalQuery) (core.SignalsPage, error)
	SignalStats(ctx context.Context) (core.SignalStats, error)
	Baskets(ctx context.Context) ([]core.BasketWallet, error)
	Consensus(ctx context.Context) ([]core.ConsensusSignal, error)
	ChartPnL(ctx context.Context) ([]core.ChartPoint, error)
	ChartSignals(ctx context.Context) ([]core.HourlySignal, error)
}

var _ Source = (*Client)(nil)

func (c *Client) Status(ctx context.Context) (core.Status, error) {
	return Get[core.Status](ctx, c, "/api/status", nil)
}

func (c *Client) KPIs(ctx context.Context) (core.KPIs, error) {
	return Get[core.KPIs](ctx, c, "/api/kpis", nil)
}

// Signals fetches one server-side page of the signal history.
func (c *Client) Signals(ctx context.Context, q core.SignalQuery) (core.SignalsPage, error) {
	return Get[core.SignalsPage](ctx, c, "/api/signals", SignalValues(q))
}

func (c *Client) SignalStats(ctx context.Context) (core.SignalStats, error) {
	return Get[core.SignalStats](ctx, c, "/api/signals/stats", nil)
}

func (c *Client) Baskets(ctx context.Context) ([]core.BasketWallet, error) {
	return Get[[]core.BasketWallet](ctx, c, "/api/baskets", nil)
}

func (c *Client) Consensus(ctx context.Context) ([]core.ConsensusSignal, error) {
	return Get[[]core.ConsensusSignal](ctx, c, "/api/consensus", nil)
}

func (c *Client) ChartPnL(ctx context.Context) ([]core.ChartPoint, error) {
	return Get[[]core.ChartPoint](ctx, c, "/api/chart/pnl", nil)
}

func (c *Client) ChartSignals(ctx context.Context) ([]core.HourlySignal, error) {
	return Get[[]core.HourlySignal](ctx, c, "/api/chart/signals", nil)
}

// SignalValues encodes a query, omitting ALL filters and unset paging.
// The backend expects the result filter in lower case.
func SignalValues(q core.SignalQuery) url.Values {
	v := url.Values{}
	if q.Direction != "" && q.Direction != core.DirectionAll {
		v.Set("direction", string(q.Direction))
	}
	if q.Result != "" && q.Result != core.ResultAll {
		v.Set("result", strings.ToLower(string(q.Result)))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}
