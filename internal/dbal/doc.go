// Package dbal defines the backend-agnostic database driver contract used by
// graydb.
//
// This package provides:
//   - Attributes: a closed, validated per-connection attribute store
//   - Driver and Statement: the contract every backend implements
//   - Exec, Query, FetchAll and Transact: generic operations built only from
//     the contract
//   - Conn: a composing wrapper adding observation and error-mode logging
//   - Register and Open: the driver registry
//
// Backends live in other packages and register themselves from init, in the
// same way database/sql drivers do:
//
//	import _ "github.com/nerrad567/graydb/internal/infrastructure/database"
//
//	conn, err := dbal.Open(ctx, "sqlite3", dbal.Config{Path: "app.db"},
//	    map[dbal.Attribute]any{dbal.AttrErrMode: dbal.ErrModeWarning},
//	    dbal.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	n, err := conn.Exec(ctx, "UPDATE t SET name = ? WHERE id = ?", "x", 1)
//
// Error Reporting:
//
// Every failure at the backend boundary is returned as an error. Backend
// failures are *Error values that unwrap to a kind sentinel (ErrPrepare,
// ErrExecution, ...) and to the native driver error. Errno and LastError keep
// describing the last failure until the next successful operation.
// AttrErrMode only controls logging: ErrModeSilent logs nothing,
// ErrModeWarning logs at warn level and ErrModeException (the default) logs at
// error level.
//
// Thread Safety:
//
// A Driver or Conn has a single owner. Neither the native handle nor the
// attribute store is locked. Use Guard to share one connection.
package dbal
