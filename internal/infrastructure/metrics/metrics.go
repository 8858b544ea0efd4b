package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/graydb/internal/infrastructure/config"
)

// Metric names, without the configured namespace.
const (
	MetricStatements        = "statements_total"
	MetricStatementDuration = "statement_duration_seconds"
	MetricRows              = "rows_total"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// defaultNamespace is used when the config leaves the namespace empty.
const defaultNamespace = "graydb"

// Collector owns a private registry holding the statement metrics.
//
// A private registry keeps tests independent and lets the admin server
// expose exactly these metrics plus the Go runtime collectors.
type Collector struct {
	registry   *prometheus.Registry
	statements *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rows       *prometheus.CounterVec
}

// New creates a Collector and registers its metrics.
//
// Parameters:
//   - cfg: Metrics configuration; Namespace prefixes every metric name
//
// Returns:
//   - *Collector: Ready to record
func New(cfg config.MetricsConfig) *Collector {
	ns := cfg.Namespace
	if ns == "" {
		ns = defaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		statements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      MetricStatements,
				Help:      "Database operations by driver, operation and result.",
			},
			[]string{"driver", "op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      MetricStatementDuration,
				Help:      "Database operation latency in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"driver", "op"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      MetricRows,
				Help:      "Rows affected or returned by database operations.",
			},
			[]string{"driver", "op"},
		),
	}

	c.registry.MustRegister(
		c.statements,
		c.duration,
		c.rows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Record counts one completed operation.
func (c *Collector) Record(driver, op string, d time.Duration, rows int64, failed bool) {
	result := ResultOK
	if failed {
		result = ResultError
	}
	c.statements.WithLabelValues(driver, op, result).Inc()
	c.duration.WithLabelValues(driver, op).Observe(d.Seconds())
	if rows > 0 {
		c.rows.WithLabelValues(driver, op).Add(float64(rows))
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
