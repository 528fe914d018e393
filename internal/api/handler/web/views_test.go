// internal/api/handler/web/views_test.go
package web

import (
	"context"
	"testing"
	"time"

	"github.com/newthinker/polydash/internal/client/clienttest"
	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestViewSet(t *testing.T) (*viewSet, *time.Time) {
	t.Helper()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	s := newViewSet(dashboard.Deps{Source: clienttest.New(), Interval: time.Hour}, zap.NewNop())
	s.now = func() time.Time { return now }
	t.Cleanup(s.close)
	return s, &now
}

func TestViewSet_EvictsIdleViews(t *testing.T) {
	s, now := newTestViewSet(t)
	s.idle = time.Minute

	overview, _, err := s.get(dashboard.PageOverview, nil)
	require.NoError(t, err)

	*now = now.Add(2 * time.Minute)
	_, _, err = s.get(dashboard.PageWallets, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, s.size())
	assert.ErrorIs(t, overview.Controller().RefreshNow(context.Background()), poller.ErrStopped)
}

func TestViewSet_EvictsLeastRecentlyUsed(t *testing.T) {
	s, now := newTestViewSet(t)
	s.max = 2

	overview, _, err := s.get(dashboard.PageOverview, nil)
	require.NoError(t, err)
	*now = now.Add(time.Second)
	_, _, err = s.get(dashboard.PageWallets, nil)
	require.NoError(t, err)
	*now = now.Add(time.Second)
	// Touch the overview so wallets becomes the oldest
	again, _, err := s.get(dashboard.PageOverview, nil)
	require.NoError(t, err)
	assert.Same(t, overview, again)

	*now = now.Add(time.Second)
	_, _, err = s.get(dashboard.PageSettings, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, s.size())
	_, ok := s.entries[dashboard.PageWallets]
	assert.False(t, ok)
	_, ok = s.entries[dashboard.PageOverview]
	assert.True(t, ok)
}

func TestViewSet_StartResumesOnce(t *testing.T) {
	s, _ := newTestViewSet(t)

	v, header, err := s.get(dashboard.PageOverview, nil)
	require.NoError(t, err)
	assert.False(t, v.Controller().Running())

	s.start(v)
	s.start(v)
	assert.True(t, v.Controller().Running())
	assert.True(t, header.Controller().Running())
}

func TestViewSet_UnknownPage(t *testing.T) {
	s, _ := newTestViewSet(t)
	_, _, err := s.get("nope", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, s.size())
}
