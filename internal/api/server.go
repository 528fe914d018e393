// internal/api/server.go

// Package api serves the dashboard: HTML pages, exports, the JSON API,
// live updates and metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	apihandler "github.com/newthinker/polydash/internal/api/handler/api"
	"github.com/newthinker/polydash/internal/api/handler/web"
	"github.com/newthinker/polydash/internal/api/job"
	"github.com/newthinker/polydash/internal/api/live"
	"github.com/newthinker/polydash/internal/api/middleware"
	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/metrics"
	"github.com/newthinker/polydash/internal/storage/alertlog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server of the dashboard
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     chi.Router
	web        *web.Handler
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	APIKey       string
	TemplatesDir string
	MetricsPath  string
	// RenderTimeout bounds how long a page waits for the backend
	RenderTimeout time.Duration
}

// Dependencies holds the components the routes are served from.
// Optional components may be left nil to disable their routes.
type Dependencies struct {
	Dashboard       dashboard.Deps
	State           apihandler.StateProvider
	Stats           apihandler.StatsFunc
	Hub             *live.Hub
	Alerts          alertlog.Store
	Archiver        apihandler.Archiver
	Jobs            *job.Store
	Metrics         *metrics.Registry
	Notifiers       []string
	FullExportLimit int
	Version         string
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		router: r,
	}

	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	r := s.router
	r.Use(chimw.RealIP)
	r.Use(metrics.LoggingMiddleware(s.logger.Named("http")))
	r.Use(chimw.Recoverer)
	if deps.Metrics != nil {
		r.Use(metrics.HTTPMiddleware(deps.Metrics))
	}

	// Web UI routes
	opts := []web.Option{
		web.WithLogger(s.logger.Named("web")),
		web.WithTimeout(cfg.RenderTimeout),
		web.WithNotifiers(deps.Notifiers),
		web.WithFullExportLimit(deps.FullExportLimit),
	}
	if deps.Alerts != nil {
		opts = append(opts, web.WithAlerts(deps.Alerts))
	}
	if deps.Metrics != nil {
		opts = append(opts, web.WithExportRecorder(deps.Metrics))
	}
	webHandler, err := web.NewHandler(cfg.TemplatesDir, deps.Dashboard, opts...)
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}
	s.web = webHandler

	r.Get("/", webHandler.Overview)
	r.Get("/signals", webHandler.Signals)
	r.Get("/wallets", webHandler.Wallets)
	r.Get("/settings", webHandler.Settings)
	r.Get("/export/signals.csv", webHandler.ExportCSV)
	r.Get("/export/full.json", webHandler.ExportJSON)

	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.ServeWS)
	}

	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	// JSON API
	state := apihandler.NewStateHandler(deps.State, deps.Stats, deps.Version)
	signals := apihandler.NewSignalsHandler(deps.Dashboard.Source)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", state.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(cfg.APIKey))

			if deps.State != nil {
				r.Get("/state", state.State)
			}
			r.Get("/signals", signals.List)
			r.Get("/signals/split", signals.Split)
			r.Get("/signals/hourly", signals.Hourly)

			if deps.Alerts != nil {
				alerts := apihandler.NewAlertsHandler(deps.Alerts)
				r.Get("/alerts", alerts.List)
				r.Get("/alerts/{id}", alerts.Get)
			}

			if deps.Archiver != nil {
				jobs := deps.Jobs
				if jobs == nil {
					jobs = job.NewStore(100, time.Hour)
				}
				archive := apihandler.NewArchiveHandler(deps.Archiver, jobs)
				r.Get("/archive", archive.List)
				r.Post("/archive/snapshot", archive.Snapshot)
				r.Get("/jobs", archive.Jobs)
				r.Get("/jobs/{id}", archive.Job)
			}
		})
	})

	return nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)
	if s.web != nil {
		s.web.Close()
	}
	return err
}
