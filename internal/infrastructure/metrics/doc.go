// Package metrics exposes database operation metrics to Prometheus.
//
// Three series are recorded per Collector, prefixed with the configured
// namespace (default "graydb"):
//   - statements_total{driver,op,result}
//   - statement_duration_seconds{driver,op}
//   - rows_total{driver,op}
//
// The telemetry package feeds a Collector from dbal events; the admin API
// serves Handler at /metrics.
package metrics
