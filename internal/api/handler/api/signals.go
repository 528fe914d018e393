// internal/api/handler/api/signals.go
package api

import (
	"context"
	"net/http"

	"github.com/newthinker/polydash/internal/api/response"
	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/pipeline"
)

// SignalsHandler serves the signal table and its derived views as JSON.
type SignalsHandler struct {
	src client.Source
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(src client.Source) *SignalsHandler {
	return &SignalsHandler{src: src}
}

// fetch reads the page selected by direction, result and page.
func (h *SignalsHandler) fetch(ctx context.Context, r *http.Request) (dashboard.SignalsParams, core.SignalsPage, error) {
	p := dashboard.ParseSignalsParams(r.URL.Query())
	page, err := h.src.Signals(ctx, p.Query())
	return p, page, err
}

// List returns one page sorted by sort/order with its pager.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, page, err := h.fetch(r.Context(), r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"params":  p,
		"table":   pipeline.BuildTable(page, p.Page, p.Sort),
		"summary": pipeline.Summarize(page.Data),
	})
}

// Split returns the UP/DOWN split of the selected page.
func (h *SignalsHandler) Split(w http.ResponseWriter, r *http.Request) {
	_, page, err := h.fetch(r.Context(), r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, pipeline.SplitDirections(page.Data))
}

// Hourly returns the per-hour histogram of the selected page and its best hour.
func (h *SignalsHandler) Hourly(w http.ResponseWriter, r *http.Request) {
	_, page, err := h.fetch(r.Context(), r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, dashboard.NewHourlyView(pipeline.Hourly(page.Data)))
}
