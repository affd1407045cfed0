// Package metrics exposes Prometheus counters for bracket generation and
// result reporting.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "tournament_brackets"

// Option applies a configuration option to the Manager.
type Option func(*Manager)

func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry sets the registry metrics are registered with and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager owns the service's collectors. A nil *Manager is valid and
// records nothing.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	bracketsGenerated prometheus.Counter
	bracketGateSkips  *prometheus.CounterVec
	reportOutcomes    *prometheus.CounterVec
	advancements      prometheus.Counter
	byesResolved      prometheus.Counter
	sweepRuns         *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: defaultNamespace}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	auto := promauto.With(m.registry)

	m.bracketsGenerated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "brackets_generated_total",
		Help:      "Round-one brackets created.",
	})
	m.bracketGateSkips = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "bracket_generation_skipped_total",
		Help:      "Bracket generation attempts that created nothing, by reason.",
	}, []string{"reason"})
	m.reportOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "match_reports_total",
		Help:      "Result reports by protocol outcome.",
	}, []string{"outcome"})
	m.advancements = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "winner_advancements_total",
		Help:      "Winners placed into a next-round slot.",
	})
	m.byesResolved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "byes_resolved_total",
		Help:      "Bye matches decided automatically.",
	})
	m.sweepRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "bracket_sweeps_total",
		Help:      "Deadline sweeper runs by result.",
	}, []string{"result"})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status_code"})
	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	return m
}

func (m *Manager) BracketGenerated() {
	if m == nil {
		return
	}
	m.bracketsGenerated.Inc()
}

// BracketSkipped counts a generation call that returned created=false.
func (m *Manager) BracketSkipped(reason string) {
	if m == nil {
		return
	}
	m.bracketGateSkips.WithLabelValues(reason).Inc()
}

func (m *Manager) ReportOutcome(outcome string) {
	if m == nil {
		return
	}
	m.reportOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Manager) WinnerAdvanced() {
	if m == nil {
		return
	}
	m.advancements.Inc()
}

func (m *Manager) ByeResolved() {
	if m == nil {
		return
	}
	m.byesResolved.Inc()
}

func (m *Manager) SweepRun(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sweepRuns.WithLabelValues(result).Inc()
}

func (m *Manager) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
