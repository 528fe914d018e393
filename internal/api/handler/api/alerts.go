// internal/api/handler/api/alerts.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/newthinker/polydash/internal/api/response"
	"github.com/newthinker/polydash/internal/pipeline"
	"github.com/newthinker/polydash/internal/storage/alertlog"
)

// AlertsHandler serves the history of sent consensus alerts.
type AlertsHandler struct {
	store alertlog.Store
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(store alertlog.Store) *AlertsHandler {
	return &AlertsHandler{store: store}
}

// List returns alerts matching query parameters.
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := alertlog.ListFilter{
		Market:    q.Get("market"),
		Direction: pipeline.ParseDirection(q.Get("direction")),
	}

	if from := q.Get("from"); from != "" {
		filter.From = parseTime(from)
	}
	if to := q.Get("to"); to != "" {
		filter.To = parseTime(to)
	}

	filter.Limit = 50
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			filter.Offset = n
		}
	}

	alerts, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}

	count, _ := h.store.Count(r.Context(), filter)

	response.Paged(w, map[string]any{"alerts": alerts}, response.Page{
		Total:  count,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Get returns a single alert by ID.
func (h *AlertsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

// parseTime accepts RFC3339 or a bare date; anything else is the zero time.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
