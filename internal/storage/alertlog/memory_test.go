// internal/storage/alertlog/memory_test.go
package alertlog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(market string, dir core.Direction, at time.Time) Record {
	return Record{
		Alert:  notifier.Alert{Market: market, Direction: dir, Wallets: 3, Total: 3},
		SentAt: at,
	}
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	saved, err := store.Save(ctx, record("m1", core.DirectionUp, time.Time{}))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.SentAt.IsZero())

	got, err := store.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, *got)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		store.Save(ctx, record(fmt.Sprintf("m%d", i), core.DirectionUp, base.Add(time.Duration(i)*time.Minute)))
	}

	recs, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "m3", recs[0].Alert.Market)
	assert.Equal(t, "m0", recs[3].Alert.Market)

	page, err := store.List(ctx, ListFilter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m2", page[0].Alert.Market)
	assert.Equal(t, "m1", page[1].Alert.Market)

	empty, err := store.List(ctx, ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_Filter(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	store.Save(ctx, record("m1", core.DirectionUp, base))
	store.Save(ctx, record("m1", core.DirectionDown, base.Add(time.Hour)))
	store.Save(ctx, record("m2", core.DirectionUp, base.Add(2*time.Hour)))

	n, _ := store.Count(ctx, ListFilter{Market: "m1"})
	assert.Equal(t, 2, n)

	n, _ = store.Count(ctx, ListFilter{Direction: core.DirectionUp})
	assert.Equal(t, 2, n)

	n, _ = store.Count(ctx, ListFilter{Direction: core.DirectionAll})
	assert.Equal(t, 3, n)

	n, _ = store.Count(ctx, ListFilter{From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)})
	assert.Equal(t, 1, n)
}

func TestMemoryStore_Capacity(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	store.Save(ctx, record("m1", core.DirectionUp, time.Time{}))
	store.Save(ctx, record("m2", core.DirectionUp, time.Time{}))
	store.Save(ctx, record("m3", core.DirectionUp, time.Time{}))

	recs, _ := store.List(ctx, ListFilter{})
	require.Len(t, recs, 2)
	assert.Equal(t, "m3", recs[0].Alert.Market)
	assert.Equal(t, "m2", recs[1].Alert.Market)
}

func TestRecord_Delivered(t *testing.T) {
	r := Record{Failed: map[string]string{"telegram": "boom"}}
	assert.True(t, r.Delivered(2))
	assert.False(t, r.Delivered(1))
}
