package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Backend metrics
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec

	// Dashboard metrics
	pollResults  *prometheus.CounterVec
	exportsTotal *prometheus.CounterVec
	alertsSent   *prometheus.CounterVec
	liveClients  prometheus.Gauge
	activeViews  *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polydash_upstream_requests_total",
			Help: "Requests sent to the bot backend",
		},
		[]string{"path", "status"},
	)
	r.upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polydash_upstream_request_duration_seconds",
			Help:    "Bot backend request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		},
		[]string{"path"},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polydash_cache_lookups_total",
			Help: "Read-through cache lookups by result",
		},
		[]string{"result"},
	)
	r.pollResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polydash_poll_results_total",
			Help: "Poll results per view and resource",
		},
		[]string{"view", "resource", "outcome"},
	)
	r.exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polydash_exports_total",
			Help: "Exports produced by format and status",
		},
		[]string{"format", "status"},
	)
	r.alertsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polydash_alerts_sent_total",
			Help: "Consensus alerts sent per notifier",
		},
		[]string{"notifier", "status"},
	)
	r.liveClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "polydash_live_clients",
			Help: "Connected live-update clients",
		},
	)
	r.activeViews = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polydash_active_views",
			Help: "Active polling views by page",
		},
		[]string{"view"},
	)

	reg.MustRegister(r.upstreamRequests)
	reg.MustRegister(r.upstreamDuration)
	reg.MustRegister(r.cacheLookups)
	reg.MustRegister(r.pollResults)
	reg.MustRegister(r.exportsTotal)
	reg.MustRegister(r.alertsSent)
	reg.MustRegister(r.liveClients)
	reg.MustRegister(r.activeViews)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordUpstream records one backend round trip. status 0 means a transport failure.
func (r *Registry) RecordUpstream(path string, status int, duration float64) {
	statusStr := "error"
	if status > 0 {
		statusStr = statusToString(status)
	}
	r.upstreamRequests.WithLabelValues(path, statusStr).Inc()
	r.upstreamDuration.WithLabelValues(path).Observe(duration)
}

// RecordCacheLookup records a cache hit, miss or shared in-flight call.
func (r *Registry) RecordCacheLookup(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordPoll records a committed, failed or discarded poll result.
func (r *Registry) RecordPoll(view, resource, outcome string) {
	r.pollResults.WithLabelValues(view, resource, outcome).Inc()
}

// RecordExport records an export attempt.
func (r *Registry) RecordExport(format, status string) {
	r.exportsTotal.WithLabelValues(format, status).Inc()
}

// RecordAlert records a notifier delivery.
func (r *Registry) RecordAlert(notifier, status string) {
	r.alertsSent.WithLabelValues(notifier, status).Inc()
}

// LiveClientsInc increments connected live clients.
func (r *Registry) LiveClientsInc() {
	r.liveClients.Inc()
}

// LiveClientsDec decrements connected live clients.
func (r *Registry) LiveClientsDec() {
	r.liveClients.Dec()
}

// ViewStarted and ViewStopped track active polling views.
func (r *Registry) ViewStarted(view string) {
	r.activeViews.WithLabelValues(view).Inc()
}

func (r *Registry) ViewStopped(view string) {
	r.activeViews.WithLabelValues(view).Dec()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
