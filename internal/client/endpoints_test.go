// internal/client/endpoints_test.go
package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/polydash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalValues(t *testing.T) {
	tests := []struct {
		name string
		q    core.SignalQuery
		want string
	}{
		{"all filters omitted", core.SignalQuery{Direction: core.DirectionAll, Result: core.ResultAll}, ""},
		{"empty filters omitted", core.SignalQuery{}, ""},
		{"direction", core.SignalQuery{Direction: core.DirectionUp, Limit: 20}, "direction=UP&limit=20"},
		{"result lower cased", core.SignalQuery{Result: core.ResultWin}, "result=win"},
		{"paging", core.SignalQuery{Result: core.ResultLoss, Limit: 20, Offset: 40}, "limit=20&offset=40&result=loss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SignalValues(tt.q).Encode())
		})
	}
}

func TestEndpoints_Paths(t *testing.T) {
	var mu sync.Mutex
	paths := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path] = r.URL.RawQuery
		mu.Unlock()
		switch r.URL.Path {
		case "/api/baskets", "/api/consensus", "/api/chart/pnl", "/api/chart/signals":
			w.Write([]byte(`[]`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/", nil)
	ctx := context.Background()

	_, err := c.Status(ctx)
	require.NoError(t, err)
	_, err = c.KPIs(ctx)
	require.NoError(t, err)
	_, err = c.Signals(ctx, core.SignalQuery{Direction: core.DirectionDown, Limit: 20, Offset: 20})
	require.NoError(t, err)
	_, err = c.SignalStats(ctx)
	require.NoError(t, err)
	_, err = c.Baskets(ctx)
	require.NoError(t, err)
	_, err = c.Consensus(ctx)
	require.NoError(t, err)
	_, err = c.ChartPnL(ctx)
	require.NoError(t, err)
	_, err = c.ChartSignals(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, paths, 8)
	assert.Equal(t, "direction=DOWN&limit=20&offset=20", paths["/api/signals"])
	assert.Contains(t, paths, "/api/signals/stats")
}

func TestSignals_DecodesPendingPnL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":2,"limit":20,"offset":0,"data":[
			{"timestamp":"2026-01-02T03:04:05Z","direction":"UP","score":0.8,"confidence":0.7,
			 "pnl_theoretical":{"won":true,"net_profit":1.5,"roi_pct":12.5}},
			{"timestamp":"2026-01-02T04:04:05Z","direction":"DOWN","pnl_theoretical":null,"extra":"ignored"}
		]}`))
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv.URL, nil).Signals(context.Background(), core.SignalQuery{Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)

	assert.Equal(t, 2, page.Total)
	assert.Equal(t, core.OutcomeWin, page.Data[0].Outcome())
	assert.Equal(t, 12.5, page.Data[0].ROI())
	assert.Equal(t, core.OutcomePending, page.Data[1].Outcome())
	assert.Zero(t, page.Data[1].NetProfit())
}

func TestSignals_DecodesTimestampsWithoutZone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":2,"limit":20,"offset":0,"data":[
			{"timestamp":"2026-03-01T12:00:00+02:00","direction":"UP"},
			{"timestamp":"2026-03-01T12:05:00.123456","direction":"DOWN"}
		]}`))
	}))
	defer srv.Close()

	page, err := newTestClient(t, srv.URL, nil).Signals(context.Background(), core.SignalQuery{Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)

	assert.True(t, page.Data[0].Timestamp.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-03-01T12:00:00+02:00", page.Data[0].TimestampRaw)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 5, 0, 123456000, time.UTC), page.Data[1].Timestamp)
	assert.Equal(t, "2026-03-01T12:05:00.123456", page.Data[1].TimestampRaw)
}

func TestBaskets_DecodesNaiveLastTrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"wallet":"0xabc","last_trade":"2026-03-01 08:15:00","direction":"UP"},
			{"wallet":"0xdef","last_trade":null}
		]`))
	}))
	defer srv.Close()

	wallets, err := newTestClient(t, srv.URL, nil).Baskets(context.Background())
	require.NoError(t, err)
	require.Len(t, wallets, 2)

	require.NotNil(t, wallets[0].LastTrade)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC), *wallets[0].LastTrade)
	assert.Equal(t, core.DirectionUp, wallets[0].Direction)
	assert.Nil(t, wallets[1].LastTrade)
}

func TestConsensus_BadTimestampIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"timestamp":"yesterday","wallets":2}]`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).Consensus(context.Background())
	assert.ErrorIs(t, err, core.ErrDecode)
}
