// internal/api/handler/web/export.go
package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/newthinker/polydash/internal/api/response"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/export"
	"go.uber.org/zap"
)

// ExportCSV downloads the signals window selected by the query string as
// CSV, rows in the page's sort order.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	v := dashboard.NewSignals(h.deps, dashboard.ParseSignalsParams(r.URL.Query()))
	defer v.Controller().Stop()
	if err := v.Controller().RefreshNow(ctx); err != nil {
		h.exportFailed(w, "csv", core.WrapError(core.ErrExportFailed, err))
		return
	}
	snap := v.Window()
	if !snap.Loaded {
		h.exportFailed(w, "csv", core.WrapError(core.ErrExportFailed, snap.Err))
		return
	}

	model := v.Build()
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, model.Table.Rows); err != nil {
		h.exportFailed(w, "csv", err)
		return
	}
	h.download(w, "text/csv; charset=utf-8", export.FileName(export.SignalsPrefix, "csv", h.now()), buf.Bytes())
	h.record("csv", "ok")
}

// ExportJSON downloads the full bundle. Any failed section fails the whole export.
func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	now := h.now()
	b, err := export.Full(ctx, h.deps.Source, h.fullLimit(), now)
	if err != nil {
		h.exportFailed(w, "json", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, b); err != nil {
		h.exportFailed(w, "json", err)
		return
	}
	h.download(w, "application/json", export.FileName(export.FullPrefix, "json", now), buf.Bytes())
	h.record("json", "ok")
}

func (h *Handler) fullLimit() int {
	if h.exportLimit > 0 {
		return h.exportLimit
	}
	return 1000
}

func (h *Handler) download(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) exportFailed(w http.ResponseWriter, format string, err error) {
	h.logger.Warn("export failed", zap.String("format", format), zap.Error(err))
	h.record(format, "error")
	response.Error(w, http.StatusBadGateway, err)
}
