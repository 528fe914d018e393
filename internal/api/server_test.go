// internal/api/server_test.go
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/polydash/internal/api/live"
	"github.com/newthinker/polydash/internal/client/clienttest"
	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/metrics"
	"github.com/newthinker/polydash/internal/storage/alertlog"
	"github.com/newthinker/polydash/internal/storage/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopArchiver struct{}

func (nopArchiver) List(ctx context.Context) ([]archive.Object, error) { return nil, nil }
func (nopArchiver) Snapshot(ctx context.Context) ([]string, error)     { return nil, nil }

func newTestServer(t *testing.T, apiKey string) (*Server, *metrics.Registry) {
	t.Helper()
	deps := dashboard.Deps{Source: clienttest.New(), Interval: time.Hour}
	reg := metrics.NewRegistry()

	srv, err := NewServer(Config{Host: "localhost", Port: 0, APIKey: apiKey}, Dependencies{
		Dashboard: deps,
		State:     dashboard.NewMonitor(deps, nil, nil),
		Hub:       live.NewHub(deps, zap.NewNop(), reg),
		Alerts:    alertlog.NewMemoryStore(10),
		Archiver:  nopArchiver{},
		Metrics:   reg,
		Version:   "test",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(srv.web.Close)
	return srv, reg
}

func serve(srv *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, "test-key")

	w := serve(srv, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "health is not behind the API key")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_APIAuth(t *testing.T) {
	srv, _ := newTestServer(t, "test-key")

	for _, path := range []string{"/api/state", "/api/signals/split", "/api/signals/hourly", "/api/alerts", "/api/archive"} {
		t.Run(path, func(t *testing.T) {
			w := serve(srv, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = serve(srv, http.MethodGet, path, http.Header{"X-Api-Key": {"test-key"}})
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestServer_Pages(t *testing.T) {
	srv, _ := newTestServer(t, "test-key")

	for _, path := range []string{"/", "/signals", "/wallets", "/settings"} {
		t.Run(path, func(t *testing.T) {
			w := serve(srv, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, w.Code, "pages are not behind the API key")
			assert.Contains(t, w.Body.String(), "POLYDASH")
		})
	}
}

func TestServer_Exports(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, http.MethodGet, "/export/signals.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Timestamp,Direction"))

	w = serve(srv, http.MethodGet, "/export/full.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exported_at"`)
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, "")

	serve(srv, http.MethodGet, "/api/health", nil)
	serve(srv, http.MethodGet, "/export/signals.csv", nil)

	w := serve(srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/health",status="2xx"} 1`)
	assert.Contains(t, body, `polydash_exports_total{format="csv",status="ok"} 1`)
}

func TestServer_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, "")
	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodGet, "/backtest", nil).Code)
}
