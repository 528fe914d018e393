package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/polydash/internal/client/clienttest"
	"github.com/newthinker/polydash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportTime = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func TestFull_FetchesEverySection(t *testing.T) {
	src := clienttest.New()

	b, err := Full(context.Background(), src, 1000, exportTime)
	require.NoError(t, err)

	assert.Equal(t, exportTime, b.ExportedAt)
	assert.Equal(t, src.KPIsData, b.KPIs)
	assert.Len(t, b.Signals, 3)
	assert.Equal(t, 3, b.SignalsTotal)
	assert.Equal(t, src.StatsData, b.Stats)
	assert.Len(t, b.Wallets, 2)
	assert.Len(t, b.Consensus, 1)
	assert.Len(t, b.ChartPnL, 2)
	assert.Len(t, b.ChartSignals, 2)
	assert.Equal(t, 1000, src.LastQuery().Limit)

	for _, r := range []string{"kpis", "signals", "stats", "baskets", "consensus", "chart_pnl", "chart_signals"} {
		assert.Equal(t, 1, src.CallCount(r), r)
	}
}

func TestFull_AnyFailureFailsWholeExport(t *testing.T) {
	for _, resource := range []string{"kpis", "signals", "stats", "baskets", "consensus", "chart_pnl", "chart_signals"} {
		t.Run(resource, func(t *testing.T) {
			src := clienttest.New()
			src.Fail(resource, errors.New("bad gateway"))

			b, err := Full(context.Background(), src, 100, exportTime)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, core.ErrExportFailed)
			assert.Contains(t, err.Error(), resource)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	b, err := Full(context.Background(), clienttest.New(), 10, exportTime)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, b))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2026-10-17T12:00:00Z", decoded["exported_at"])
	for _, k := range []string{"kpis", "signals", "signals_total", "stats", "wallets", "consensus", "chart_pnl", "chart_signals"} {
		assert.Contains(t, decoded, k)
	}
	assert.Contains(t, buf.String(), "\n  \"kpis\"")
}
