// Package logging provides structured logging for graydb.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same shape and default fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	conn, err := dbal.Open(ctx, "sqlite3", dbCfg, attrs, dbal.WithLogger(logger))
//
// A *Logger satisfies dbal.Logger, which is how error-mode reporting
// reaches the log.
//
// # Security
//
// Never log passwords or DSNs. Connection errors carry the driver name
// and errno, not the connection string.
package logging
