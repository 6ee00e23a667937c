package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	termMetricsOnce sync.Once
	termRegistry    *termMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "campus",
				Subsystem: "module",
				Name:      "requests_total",
				Help:      "Total JSON-RPC module requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "campus",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total JSON-RPC module errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "campus",
				Subsystem: "module",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC module handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "campus",
				Subsystem: "module",
				Name:      "throttles_total",
				Help:      "Count of module requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" so dashboards
// and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// termMetrics tracks the lifecycle of academic terms.
type termMetrics struct {
	phase        *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
	termsStarted prometheus.Counter
	termsClosed  prometheus.Counter
}

// TermMetrics returns the singleton registry for term lifecycle metrics.
func TermMetrics() *termMetrics {
	termMetricsOnce.Do(func() {
		termRegistry = &termMetrics{
			phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "campus",
				Subsystem: "term",
				Name:      "phase",
				Help:      "Current phase of the open term as an ordinal, zero in the off season.",
			}, []string{"network"}),
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "campus",
				Subsystem: "term",
				Name:      "transitions_total",
				Help:      "Count of phase transitions segmented by destination phase.",
			}, []string{"to"}),
			termsStarted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "campus",
				Subsystem: "term",
				Name:      "started_total",
				Help:      "Count of terms opened.",
			}),
			termsClosed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "campus",
				Subsystem: "term",
				Name:      "closed_total",
				Help:      "Count of terms closed.",
			}),
		}
		prometheus.MustRegister(
			termRegistry.phase,
			termRegistry.transitions,
			termRegistry.termsStarted,
			termRegistry.termsClosed,
		)
	})
	return termRegistry
}

// SetPhase records the ordinal of the current phase for the network.
func (m *termMetrics) SetPhase(network string, ordinal uint8) {
	if m == nil {
		return
	}
	m.phase.WithLabelValues(network).Set(float64(ordinal))
}

// RecordTransition counts one phase transition.
func (m *termMetrics) RecordTransition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// RecordTermStarted counts one opened term.
func (m *termMetrics) RecordTermStarted() {
	if m == nil {
		return
	}
	m.termsStarted.Inc()
}

// RecordTermClosed counts one closed term.
func (m *termMetrics) RecordTermClosed() {
	if m == nil {
		return
	}
	m.termsClosed.Inc()
}
