// internal/api/handler/api/state.go
package api

import (
	"net/http"
	"time"

	"github.com/newthinker/polydash/internal/api/response"
	"github.com/newthinker/polydash/internal/dashboard"
)

// StateProvider exposes the monitor's latest snapshots
type StateProvider interface {
	State() dashboard.State
}

// StatsFunc returns runtime counters of the process
type StatsFunc func() map[string]any

// StateHandler serves health and the monitored state.
type StateHandler struct {
	state   StateProvider
	stats   StatsFunc
	version string
	started time.Time
}

// NewStateHandler creates a new state handler. stats may be nil.
func NewStateHandler(state StateProvider, stats StatsFunc, version string) *StateHandler {
	return &StateHandler{state: state, stats: stats, version: version, started: time.Now()}
}

// Health reports that the dashboard process is up, with its runtime counters
// when known. It never calls the backend.
func (h *StateHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}
	if h.stats != nil {
		body["stats"] = h.stats()
	}
	response.JSON(w, http.StatusOK, body)
}

// State returns every monitored slot with its stale and error flags.
func (h *StateHandler) State(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.state.State())
}
