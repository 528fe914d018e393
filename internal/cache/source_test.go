// internal/cache/source_test.go
package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	client.Source
	status  atomic.Int32
	signals atomic.Int32
}

func (s *countingSource) Status(ctx context.Context) (core.Status, error) {
	s.status.Add(1)
	return core.Status{Version: "1.2.0", BotRunning: true}, nil
}

func (s *countingSource) Signals(ctx context.Context, q core.SignalQuery) (core.SignalsPage, error) {
	s.signals.Add(1)
	return core.SignalsPage{Total: 100, Limit: q.Limit, Offset: q.Offset}, nil
}

func TestSource_SharesReads(t *testing.T) {
	next := &countingSource{}
	src := NewSource(next, New(time.Minute, nil))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		st, err := src.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1.2.0", st.Version)
	}
	assert.Equal(t, int32(1), next.status.Load())
}

func TestSource_SignalsKeyedByQuery(t *testing.T) {
	next := &countingSource{}
	src := NewSource(next, New(time.Minute, nil))
	ctx := context.Background()

	q := core.SignalQuery{Limit: 20}
	_, _ = src.Signals(ctx, q)
	// empty and ALL filters are the same request
	_, _ = src.Signals(ctx, core.SignalQuery{Direction: core.DirectionAll, Result: core.ResultAll, Limit: 20})

	page, err := src.Signals(ctx, core.SignalQuery{Limit: 20, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, 20, page.Offset)
	assert.Equal(t, int32(2), next.signals.Load())
}

func TestSource_PurgeForcesReload(t *testing.T) {
	next := &countingSource{}
	src := NewSource(next, New(time.Minute, nil))
	ctx := context.Background()

	_, _ = src.Status(ctx)
	_, _ = src.Status(ctx)
	require.Equal(t, int32(1), next.status.Load())

	p, ok := src.(Purger)
	require.True(t, ok)
	p.Purge()

	_, _ = src.Status(ctx)
	assert.Equal(t, int32(2), next.status.Load())
}
