package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "walletlink"

// Result labels.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
	ResultAborted  = "aborted"
)

// Registry holds all application metrics. A nil *Registry is valid and
// records nothing, so components can run without metrics.
type Registry struct {
	registry *prometheus.Registry

	ConnectTotal *prometheus.CounterVec
	AuthTotal    *prometheus.CounterVec
	EventsTotal  *prometheus.CounterVec
	LogoutTotal  *prometheus.CounterVec
	FlowDuration *prometheus.HistogramVec
	RestoreTotal *prometheus.CounterVec
}

// NewRegistry creates a registry with all walletlink metrics registered,
// plus the Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		ConnectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_total",
			Help:      "Connect attempts by mode and result.",
		}, []string{"mode", "result"}),
		AuthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_total",
			Help:      "Challenge-response authentication attempts by result.",
		}, []string{"result"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Provider change events processed by kind.",
		}, []string{"kind"}),
		LogoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logout_total",
			Help:      "Backend logout notifications by result.",
		}, []string{"result"}),
		RestoreTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restore_total",
			Help:      "Startup session restorations by result.",
		}, []string{"result"}),
		FlowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_duration_seconds",
			Help:      "Duration of connect and authenticate flows.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"flow"}),
	}

	reg.MustRegister(
		r.ConnectTotal,
		r.AuthTotal,
		r.EventsTotal,
		r.LogoutTotal,
		r.RestoreTotal,
		r.FlowDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveConnect records a connect attempt.
func (r *Registry) ObserveConnect(silent bool, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	mode := "interactive"
	if silent {
		mode = "silent"
	}
	r.ConnectTotal.WithLabelValues(mode, result).Inc()
	r.FlowDuration.WithLabelValues("connect").Observe(elapsed.Seconds())
}

// ObserveAuth records an authentication attempt.
func (r *Registry) ObserveAuth(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.AuthTotal.WithLabelValues(result).Inc()
	r.FlowDuration.WithLabelValues("authenticate").Observe(elapsed.Seconds())
}

// ObserveEvent records a processed provider event.
func (r *Registry) ObserveEvent(kind string) {
	if r == nil {
		return
	}
	r.EventsTotal.WithLabelValues(kind).Inc()
}

// ObserveLogout records a backend logout notification.
func (r *Registry) ObserveLogout(result string) {
	if r == nil {
		return
	}
	r.LogoutTotal.WithLabelValues(result).Inc()
}

// ObserveRestore records a startup restoration outcome.
func (r *Registry) ObserveRestore(result string) {
	if r == nil {
		return
	}
	r.RestoreTotal.WithLabelValues(result).Inc()
}
