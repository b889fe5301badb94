package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blade-go/blade"
	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/web"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "blade").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use. When it also implements
	// prometheus.Gatherer it backs the metrics endpoint.
	// Default: a fresh prometheus.Registry
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "blade",
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics holds the dispatch collectors of one server.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	dispatchErrors  *prometheus.CounterVec
	notFound        *prometheus.CounterVec
	routes          prometheus.Gauge
	interceptors    prometheus.Gauge
	components      prometheus.Gauge
	failedPackages  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers the dispatch collectors.
//
// Metrics collected:
//   - blade_requests_total: dispatched requests by method, route and status
//   - blade_request_duration_seconds: dispatch duration by method and route
//   - blade_dispatch_errors_total: handler chain errors by route and error type
//   - blade_not_found_total: requests without a matching handler, by method
//   - blade_routes, blade_interceptors: size of the published route table
//   - blade_components: container registrations
//   - blade_failed_packages: packages skipped for invalid route paths
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	m := &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of dispatched requests",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Dispatch duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method", "route"}),

		dispatchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_errors_total",
			Help:        "Total number of handler chain errors",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "error_type"}),

		notFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "not_found_total",
			Help:        "Total number of requests without a matching handler",
			ConstLabels: config.ConstLabels,
		}, []string{"method"}),

		routes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "routes",
			Help:        "Number of handler entries in the route table",
			ConstLabels: config.ConstLabels,
		}),

		interceptors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "interceptors",
			Help:        "Number of interceptor entries in the route table",
			ConstLabels: config.ConstLabels,
		}),

		components: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "components",
			Help:        "Number of container registrations",
			ConstLabels: config.ConstLabels,
		}),

		failedPackages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "failed_packages",
			Help:        "Number of packages skipped for invalid route paths",
			ConstLabels: config.ConstLabels,
		}),
	}
	if g, ok := config.Registry.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveApp refreshes the table and container gauges.
func (m *Metrics) ObserveApp(app *blade.Blade) {
	if t := app.Table(); t != nil {
		m.routes.Set(float64(t.Routes()))
		m.interceptors.Set(float64(t.Interceptors()))
	} else {
		m.routes.Set(0)
		m.interceptors.Set(0)
	}
	m.components.Set(float64(app.Container().Len()))
	m.failedPackages.Set(float64(len(app.Failures())))
}

func (m *Metrics) observeDispatch(method web.Method, route string, status int, err error, d time.Duration) {
	m.requestDuration.WithLabelValues(string(method), route).Observe(d.Seconds())
	m.requestsTotal.WithLabelValues(string(method), route, strconv.Itoa(status)).Inc()
	if err != nil {
		m.dispatchErrors.WithLabelValues(route, categorizeError(err)).Inc()
	}
}

func (m *Metrics) observeNotFound(method string) {
	if _, ok := web.ParseMethod(method); !ok {
		method = "other"
	}
	m.notFound.WithLabelValues(method).Inc()
}

// categorizeError returns a low-cardinality category for err.
func categorizeError(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return code
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "canceled"):
		return "canceled"
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "unauthorized"):
		return "unauthorized"
	case strings.Contains(msg, "forbidden"):
		return "forbidden"
	case strings.Contains(msg, "validation"):
		return "validation"
	default:
		return "internal"
	}
}
