// Package app wires the dashboard together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/polydash/internal/alert"
	"github.com/newthinker/polydash/internal/api"
	"github.com/newthinker/polydash/internal/api/job"
	"github.com/newthinker/polydash/internal/api/live"
	"github.com/newthinker/polydash/internal/cache"
	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/config"
	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/export"
	"github.com/newthinker/polydash/internal/metrics"
	"github.com/newthinker/polydash/internal/notifier"
	"github.com/newthinker/polydash/internal/notifier/telegram"
	"github.com/newthinker/polydash/internal/notifier/webhook"
	"github.com/newthinker/polydash/internal/poller"
	"github.com/newthinker/polydash/internal/storage/alertlog"
	"github.com/newthinker/polydash/internal/storage/archive"
	"github.com/newthinker/polydash/internal/ticker"
	"go.uber.org/zap"
)

// App is the main application orchestrator
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	version string
	metrics *metrics.Registry

	source    client.Source
	deps      dashboard.Deps
	notifiers *notifier.Registry
	alerts    alertlog.Store
	evaluator *alert.Evaluator
	monitor   *dashboard.Monitor
	archiver  *export.Archiver
	jobs      *job.Store
	hub       *live.Hub
	server    *api.Server

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	started time.Time
}

// New creates the application from a validated configuration.
func New(cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, version: version}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	c, err := NewClient(cfg, logger, a.metrics)
	if err != nil {
		return nil, err
	}

	group := cache.New(cfg.Cache.TTL, a.cacheRecorder())
	a.source = cache.NewSource(c, group)

	a.deps = dashboard.Deps{
		Source:       a.source,
		Interval:     cfg.Poll.Interval,
		SignalsLimit: cfg.Poll.SignalsLimit,
		Settings: dashboard.Settings{
			APIURL:       cfg.API.BaseURL,
			APIKeySet:    cfg.API.APIKey != "",
			PollInterval: cfg.Poll.Interval,
		},
		Logger: logger,
	}
	if a.metrics != nil {
		a.deps.Recorder = a.metrics
	}
	if cfg.Ticker.Enabled {
		a.deps.Ticker = cache.NewPriceSource(ticker.New(ticker.Config{
			BaseURL: cfg.Ticker.BaseURL,
			Symbol:  cfg.Ticker.Symbol,
			Timeout: cfg.API.Timeout,
		}), group)
	}

	a.notifiers, err = NewNotifiers(cfg, a.metrics)
	if err != nil {
		return nil, err
	}
	a.alerts = alertlog.NewMemoryStore(cfg.Alerts.History)
	if cfg.Alerts.Enabled {
		a.evaluator = alert.NewEvaluator(a.notifiers,
			alert.WithCooldown(cfg.Alerts.Cooldown),
			alert.WithStore(a.alerts),
			alert.WithLogger(logger),
		)
	}
	a.monitor = dashboard.NewMonitor(a.deps, a.evaluator, cfg.Alerts.Rules)

	a.archiver, err = NewArchiver(cfg, a.source, logger, a.metrics)
	if err != nil {
		return nil, err
	}
	a.jobs = job.NewStore(100, time.Hour)

	var liveRec live.Recorder
	if a.metrics != nil {
		liveRec = a.metrics
	}
	a.hub = live.NewHub(a.deps, logger, liveRec)
	a.monitor.Controller().OnCommit(a.hub.Commit)

	a.server, err = api.NewServer(api.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		APIKey:        cfg.Server.APIKey,
		MetricsPath:   cfg.Metrics.Path,
		RenderTimeout: cfg.API.Timeout,
	}, api.Dependencies{
		Dashboard:       a.deps,
		State:           a.monitor,
		Stats:           a.Stats,
		Hub:             a.hub,
		Alerts:          a.alerts,
		Archiver:        a.archiver,
		Jobs:            a.jobs,
		Metrics:         a.metrics,
		Notifiers:       a.notifiers.Names(),
		FullExportLimit: cfg.Export.FullSignalsLimit,
		Version:         version,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	return a, nil
}

func (a *App) cacheRecorder() cache.Recorder {
	if a.metrics == nil {
		return nil
	}
	return a.metrics
}

// NewClient builds the backend client from configuration. reg may be nil.
func NewClient(cfg *config.Config, logger *zap.Logger, reg *metrics.Registry) (*client.Client, error) {
	var opts []client.Option
	if reg != nil {
		opts = append(opts, client.WithMetrics(reg))
	}
	c, err := client.New(client.Config{
		BaseURL:    cfg.API.BaseURL,
		APIKey:     cfg.API.APIKey,
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
		RateLimit:  cfg.API.RateLimit,
		Burst:      cfg.API.Burst,
	}, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}

// NewNotifiers registers every enabled notifier. reg may be nil.
func NewNotifiers(cfg *config.Config, reg *metrics.Registry) (*notifier.Registry, error) {
	r := notifier.NewRegistry()
	if reg != nil {
		r.SetRecorder(reg)
	}
	if !cfg.Alerts.Enabled {
		return r, nil
	}

	names := make([]string, 0, len(cfg.Alerts.Notifiers))
	for name := range cfg.Alerts.Notifiers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		nc := cfg.Alerts.Notifiers[name]
		if !nc.Enabled {
			continue
		}
		var (
			n   notifier.Notifier
			err error
		)
		switch name {
		case "webhook":
			n, err = webhook.New(nc.URL, nc.Headers)
		case "telegram":
			n, err = telegram.New(nc.BotToken, nc.ChatID)
		default:
			err = fmt.Errorf("unknown notifier type: %s", name)
		}
		if err != nil {
			return nil, fmt.Errorf("notifier %s: %w", name, err)
		}
		if err := r.Register(n); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewArchiver builds the export archive from configuration. reg may be nil.
func NewArchiver(cfg *config.Config, src client.Source, logger *zap.Logger, reg *metrics.Registry) (*export.Archiver, error) {
	store, err := archive.New(archive.Config{
		Type: cfg.Export.Archive.Type,
		Path: cfg.Export.Archive.Path,
		S3: archive.S3Config{
			Bucket:    cfg.Export.Archive.S3.Bucket,
			Endpoint:  cfg.Export.Archive.S3.Endpoint,
			Region:    cfg.Export.Archive.S3.Region,
			AccessKey: cfg.Export.Archive.S3.AccessKey,
			SecretKey: cfg.Export.Archive.S3.SecretKey,
			Prefix:    cfg.Export.Archive.S3.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	opts := []export.ArchiverOption{
		export.WithArchiverLogger(logger.Named("archive")),
		export.WithSignalsLimit(cfg.Export.FullSignalsLimit),
	}
	if reg != nil {
		opts = append(opts, export.WithArchiverRecorder(reg))
	}
	return export.NewArchiver(store, src, opts...), nil
}

// Start runs the monitor, the live hub, the export schedule and the HTTP
// server until ctx is done or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	a.started = time.Now()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	a.logger.Info("polydash starting",
		zap.String("backend", a.cfg.API.BaseURL),
		zap.Duration("interval", a.cfg.Poll.Interval),
		zap.Strings("notifiers", a.notifiers.Names()),
		zap.Bool("alerts", a.evaluator != nil),
	)

	go a.hub.Run(ctx)

	if err := a.monitor.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("starting monitor: %w", err)
	}
	defer a.monitor.Stop()

	if a.cfg.Export.Schedule != "" {
		if err := a.archiver.Schedule(a.cfg.Export.Schedule); err != nil {
			cancel()
			return fmt.Errorf("scheduling exports: %w", err)
		}
		defer a.archiver.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
	}

	a.logger.Info("polydash shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutting down server: %w", err)
	}
	a.jobs.Wait()
	return nil
}

// Stop stops the application
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Running reports whether Start is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Stats returns runtime counters for diagnostics.
func (a *App) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	count, _ := a.alerts.Count(context.Background(), alertlog.ListFilter{})
	stats := map[string]any{
		"running":      a.running,
		"version":      a.version,
		"notifiers":    a.notifiers.Len(),
		"alerts_sent":  count,
		"live_clients": a.hub.Clients(),
		"monitoring":   a.monitor.Controller().Resources(),
	}
	if a.running {
		stats["uptime"] = time.Since(a.started).Round(time.Second).String()
	}
	return stats
}

// Source returns the cached backend source shared by every view.
func (a *App) Source() client.Source {
	return a.source
}

// Monitor returns the app-wide poller feeding alerts and /api/state.
func (a *App) Monitor() *dashboard.Monitor {
	return a.monitor
}

// Handler returns the HTTP handler of the dashboard.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

var _ poller.Recorder = (*metrics.Registry)(nil)
