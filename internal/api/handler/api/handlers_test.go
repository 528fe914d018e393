// internal/api/handler/api/handlers_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/newthinker/polydash/internal/api/job"
	"github.com/newthinker/polydash/internal/api/response"
	"github.com/newthinker/polydash/internal/client/clienttest"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/notifier"
	"github.com/newthinker/polydash/internal/storage/alertlog"
	"github.com/newthinker/polydash/internal/storage/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "unexpected payload %s", w.Body.String())
	return data
}

func seedAlerts(t *testing.T) (alertlog.Store, []string) {
	t.Helper()
	store := alertlog.NewMemoryStore(10)
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i, market := range []string{"btc-a", "btc-b", "btc-a"} {
		rec, err := store.Save(context.Background(), alertlog.Record{
			SentAt: base.Add(time.Duration(i) * time.Minute),
			Alert:  notifier.Alert{Kind: notifier.KindConsensus, Market: market, Direction: core.DirectionUp},
		})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	return store, ids
}

func TestAlertsHandler_List(t *testing.T) {
	store, _ := seedAlerts(t)
	h := NewAlertsHandler(store)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/alerts?market=btc-a&limit=10", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Len(t, data["alerts"], 2)
	require.NotNil(t, resp.Meta.Page)
	assert.Equal(t, response.Page{Total: 2, Limit: 10}, *resp.Meta.Page)
}

func TestAlertsHandler_Get(t *testing.T) {
	store, ids := seedAlerts(t)
	r := chi.NewRouter()
	r.Get("/api/alerts/{id}", NewAlertsHandler(store).Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/alerts/"+ids[1], nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "btc-b", decode(t, w)["alert"].(map[string]any)["market"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/alerts/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseTime(t *testing.T) {
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), parseTime("2026-10-17"))
	assert.Equal(t, 14, parseTime("2026-10-17T14:00:00Z").Hour())
	assert.True(t, parseTime("yesterday").IsZero())
}

func TestSignalsHandler(t *testing.T) {
	f := clienttest.New()
	h := NewSignalsHandler(f)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/api/signals?sort=score&order=asc", nil))
		require.Equal(t, http.StatusOK, w.Code)

		table := decode(t, w)["table"].(map[string]any)
		rows := table["rows"].([]any)
		require.Len(t, rows, 3)
		assert.Equal(t, 0.61, rows[0].(map[string]any)["score"])
		assert.Equal(t, float64(1), table["pages"])
	})

	t.Run("split", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Split(w, httptest.NewRequest(http.MethodGet, "/api/signals/split", nil))
		require.Equal(t, http.StatusOK, w.Code)

		data := decode(t, w)
		assert.Equal(t, float64(2), data["up"])
		assert.Equal(t, float64(1), data["down"])
		assert.Equal(t, "66.7", data["up_pct"])
	})

	t.Run("split filtered", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Split(w, httptest.NewRequest(http.MethodGet, "/api/signals/split?direction=DOWN", nil))
		data := decode(t, w)
		assert.Equal(t, float64(0), data["up"])
		assert.Equal(t, "100.0", data["down_pct"])
	})

	t.Run("hourly", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Hourly(w, httptest.NewRequest(http.MethodGet, "/api/signals/hourly", nil))
		require.Equal(t, http.StatusOK, w.Code)

		data := decode(t, w)
		assert.Equal(t, true, data["has_best"])
		assert.Len(t, data["hours"], 2)
	})

	t.Run("backend failure", func(t *testing.T) {
		f.Fail("signals", core.ErrTransport)
		defer f.Fail("signals", nil)

		w := httptest.NewRecorder()
		h.Split(w, httptest.NewRequest(http.MethodGet, "/api/signals/split", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "TRANSPORT")
	})
}

type fixedState struct{ s dashboard.State }

func (f fixedState) State() dashboard.State { return f.s }

func TestStateHandler_HealthWithoutStats(t *testing.T) {
	w := httptest.NewRecorder()
	NewStateHandler(nil, nil, "0.3.0").Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "stats")
}

func TestStateHandler(t *testing.T) {
	h := NewStateHandler(fixedState{dashboard.State{
		Status:    core.Status{BotRunning: true, Version: "1.4.2"},
		Resources: map[string]dashboard.Resource{"kpis": {State: "failed", Error: "boom"}},
	}}, func() map[string]any { return map[string]any{"alerts_sent": 2} }, "0.3.0")

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "0.3.0", data["version"])
	assert.Equal(t, float64(2), data["stats"].(map[string]any)["alerts_sent"])

	w = httptest.NewRecorder()
	h.State(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w)
	assert.Equal(t, true, data["status"].(map[string]any)["bot_running"])
	kpis := data["resources"].(map[string]any)["kpis"].(map[string]any)
	assert.Equal(t, "failed", kpis["state"])
	assert.Equal(t, "boom", kpis["error"])
}

type fakeArchiver struct {
	objects []archive.Object
	err     error
}

func (f *fakeArchiver) List(ctx context.Context) ([]archive.Object, error) {
	return f.objects, f.err
}

func (f *fakeArchiver) Snapshot(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"exports/2026/10/17/polydash-full-2026-10-17.json"}, nil
}

func TestArchiveHandler(t *testing.T) {
	a := &fakeArchiver{objects: []archive.Object{{Key: "exports/2026/10/17/a.csv", Size: 10}}}
	jobs := job.NewStore(10, time.Hour)
	h := NewArchiveHandler(a, jobs)

	r := chi.NewRouter()
	r.Get("/api/archive", h.List)
	r.Post("/api/archive/snapshot", h.Snapshot)
	r.Get("/api/jobs", h.Jobs)
	r.Get("/api/jobs/{id}", h.Job)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/archive", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/archive/snapshot", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decode(t, w)["id"].(string)
	jobs.Wait()

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "complete", got["status"])
	assert.Len(t, got["result"].(map[string]any)["keys"], 1)

	a.err = core.WrapError(core.ErrArchiveFailed, errors.New("disk full"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/archive/snapshot", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	jobs.Wait()

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	list := decode(t, w)["jobs"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "failed", list[0].(map[string]any)["status"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/archive", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
