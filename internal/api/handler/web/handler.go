// internal/api/handler/web/handler.go

// Package web serves the dashboard pages.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/export"
	"github.com/newthinker/polydash/internal/storage/alertlog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages maps every page template to its dashboard view.
var pages = map[string]string{
	dashboard.PageOverview: "overview.html",
	dashboard.PageSignals:  "signals.html",
	dashboard.PageWallets:  "wallets.html",
	dashboard.PageSettings: "settings.html",
}

// LiveRenderHeader marks the page fetches made by the live script
const LiveRenderHeader = "X-Live-Render"

// RecentAlerts is how many delivered alerts the overview lists
const RecentAlerts = 5

// NotifierView represents a notifier for display
type NotifierView struct {
	Name    string
	Enabled bool
}

// PageData is passed to every page template
type PageData struct {
	Title      string
	Active     string
	Header     dashboard.HeaderModel
	Model      any
	Alerts     []alertlog.Record
	Notifiers  []NotifierView
	ExportCSV  string
	LiveParams map[string]string
	Now        time.Time
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// pageTemplates holds one template set per page: layout.html plus the page
	pageTemplates map[string]*template.Template
	deps          dashboard.Deps
	alerts        alertlog.Store
	notifiers     []NotifierView
	rec           export.Recorder
	exportLimit   int
	timeout       time.Duration
	logger        *zap.Logger
	now           func() time.Time
	views         *viewSet
}

// Option configures a Handler
type Option func(*Handler)

// WithAlerts lists recently delivered alerts on the overview.
func WithAlerts(store alertlog.Store) Option {
	return func(h *Handler) {
		h.alerts = store
	}
}

// WithNotifiers lists the configured notifiers on the settings page.
func WithNotifiers(names []string) Option {
	return func(h *Handler) {
		for _, n := range names {
			h.notifiers = append(h.notifiers, NotifierView{Name: n, Enabled: true})
		}
	}
}

func WithExportRecorder(rec export.Recorder) Option {
	return func(h *Handler) {
		h.rec = rec
	}
}

// WithFullExportLimit sets how many signals /export/full.json requests.
func WithFullExportLimit(n int) Option {
	return func(h *Handler) {
		h.exportLimit = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithTimeout bounds how long a page render waits for the backend.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHandler creates a web handler with templates loaded from templatesDir.
// If templatesDir is empty, it falls back to embedded templates.
func NewHandler(templatesDir string, deps dashboard.Deps, opts ...Option) (*Handler, error) {
	var fsys fs.FS
	if templatesDir != "" {
		fsys = os.DirFS(templatesDir)
	} else {
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("accessing embedded templates: %w", err)
		}
		fsys = sub
	}

	h := &Handler{
		pageTemplates: make(map[string]*template.Template, len(pages)),
		deps:          deps,
		timeout:       30 * time.Second,
		logger:        zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.views = newViewSet(deps, h.logger)

	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		h.pageTemplates[page] = tmpl
	}
	return h, nil
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("rendering page", zap.String("page", page), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// load refreshes the header and the page view together. A resource that
// does not answer before the deadline renders as loading, or from its last
// good data when the view already holds some.
func (h *Handler) load(ctx context.Context, header *dashboard.Header, v dashboard.View) (dashboard.HeaderModel, any) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return header.Controller().RefreshNow(ctx) })
	g.Go(func() error { return v.Controller().RefreshNow(ctx) })
	if err := g.Wait(); err != nil {
		h.logger.Warn("page rendered before every resource answered",
			zap.String("page", v.Name()),
			zap.Error(err),
		)
	}
	h.views.start(v)
	return header.Build(), v.Model()
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, name, title string) {
	v, header, err := h.views.get(name, r.URL.Query())
	if errors.Is(err, errClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}
	var headerModel dashboard.HeaderModel
	var model any
	if r.Header.Get(LiveRenderHeader) != "" && v.Controller().Running() && header.Controller().Running() {
		// Live re-render after a push: the views poll on their own
		headerModel, model = header.Build(), v.Model()
	} else {
		headerModel, model = h.load(r.Context(), header, v)
	}

	data := PageData{
		Title:  title,
		Active: name,
		Header: headerModel,
		Model:  model,
		Now:    h.now().UTC(),
	}
	switch name {
	case dashboard.PageOverview:
		data.Alerts = h.recentAlerts(r.Context())
	case dashboard.PageSignals:
		params := v.(*dashboard.Signals).Params().Values()
		data.ExportCSV = "/export/signals.csv?" + params.Encode()
		data.LiveParams = make(map[string]string, len(params))
		for k := range params {
			data.LiveParams[k] = params.Get(k)
		}
	case dashboard.PageSettings:
		data.Notifiers = h.notifiers
	}
	h.render(w, pages[name], data)
}

// Close stops polling for every cached page view.
func (h *Handler) Close() {
	h.views.close()
}

func (h *Handler) recentAlerts(ctx context.Context) []alertlog.Record {
	if h.alerts == nil {
		return nil
	}
	recs, err := h.alerts.List(ctx, alertlog.ListFilter{Limit: RecentAlerts})
	if err != nil {
		h.logger.Warn("listing alerts", zap.Error(err))
		return nil
	}
	return recs
}

// Overview renders the overview page
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, dashboard.PageOverview, "Overview")
}

// Signals renders the signal history with the filters, page and sort of the query string
func (h *Handler) Signals(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, dashboard.PageSignals, "Signals")
}

// Wallets renders the basket wallets and consensus history
func (h *Handler) Wallets(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, dashboard.PageWallets, "Wallets")
}

// Settings renders the connection settings and bot info
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, dashboard.PageSettings, "Settings")
}

func (h *Handler) record(format, status string) {
	if h.rec != nil {
		h.rec.RecordExport(format, status)
	}
}
