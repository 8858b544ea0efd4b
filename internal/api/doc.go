// Package api implements the graydb admin HTTP server.
//
// This package provides:
//   - A health endpoint that probes the shared database connection
//   - A read-only view of the connection's attribute store
//   - Runtime and connection pool statistics
//   - The Prometheus scrape endpoint
//   - Middleware stack (request ID, logging, recovery)
//
// # Routes
//
//	GET /api/v1/health      database and component health, 503 when the database is down
//	GET /api/v1/attributes  attribute store snapshot keyed by canonical name
//	GET /api/v1/stats       runtime and pool statistics
//	GET /metrics            Prometheus exposition (when a handler is supplied)
//
// # Concurrency
//
// Handlers reach the database through a dbal.Guard, so requests never use the
// connection at the same time as the session GC loop or each other.
package api
