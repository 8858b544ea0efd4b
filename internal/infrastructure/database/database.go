package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nerrad567/graydb/internal/dbal"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// connectionTimeout bounds Connect when AttrTimeout is not set.
	connectionTimeout = 5 * time.Second

	// memoryPath selects an in-memory SQLite database.
	memoryPath = ":memory:"
)

// Connection status values stored in AttrConnectionStatus.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// handle is the part of *sqlx.Conn and *sqlx.Tx that statements run on.
type handle interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
}

// DB is the dbal.Driver implementation over database/sql.
//
// The native handle is one dedicated *sqlx.Conn drawn from a pool capped at
// a single connection, so session state (transactions, last insert id,
// temporary tables) is stable for the lifetime of the connection.
type DB struct {
	dialect *dialect
	cfg     dbal.Config
	attrs   *dbal.Attributes

	pool *sqlx.DB
	conn *sqlx.Conn
	tx   *sqlx.Tx

	// generation increments on every Connect so statements prepared on an
	// earlier connection can be detected.
	generation int

	last dbal.ErrorInfo
}

// New creates an unconnected driver for the dialect named by cfg.Driver.
// Most callers use dbal.Open instead.
//
// Parameters:
//   - cfg: Connection record; cfg.Driver must name a registered dialect
//   - attrs: Attribute store, or nil for an empty one
//
// Returns:
//   - *DB: Unconnected driver
//   - error: If cfg.Driver is not a dialect of this package
func New(cfg dbal.Config, attrs *dbal.Attributes) (*DB, error) {
	d, ok := lookupDialect(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("%w: %q", dbal.ErrUnknownDriver, cfg.Driver)
	}
	return newDB(d, cfg, attrs), nil
}

func newDB(d *dialect, cfg dbal.Config, attrs *dbal.Attributes) *DB {
	if attrs == nil {
		attrs = dbal.NewAttributes()
	}
	cfg.Driver = d.name
	attrs.Set(dbal.AttrDriverName, d.name)
	attrs.Set(dbal.AttrClientVersion, d.client)
	attrs.Set(dbal.AttrConnectionStatus, StatusDisconnected)
	return &DB{dialect: d, cfg: cfg, attrs: attrs}
}

// Name returns the registered driver name.
func (db *DB) Name() string { return db.dialect.name }

// Attributes returns the connection's attribute store.
func (db *DB) Attributes() *dbal.Attributes { return db.attrs }

// Path returns the database file of embedded backends.
func (db *DB) Path() string { return db.cfg.Path }

// Connected reports whether the native connection is open.
func (db *DB) Connected() bool { return db.conn != nil }

// Connect opens the native connection.
//
// It performs the following setup:
//  1. Builds the backend DSN from the connection record
//  2. Creates the database directory for file-backed SQLite
//  3. Opens a single-connection pool and reserves its connection
//  4. Verifies the connection and records the server version
//  5. Restricts the database file to 0600
//
// Calling Connect on a connected driver is a no-op.
func (db *DB) Connect(ctx context.Context) error {
	if db.conn != nil {
		return nil
	}

	dsn, err := db.dialect.dsn(db.cfg)
	if err != nil {
		return db.fail("connect", dbal.ErrConnection, err)
	}

	fileBacked := db.dialect.embedded && db.cfg.Path != memoryPath
	if fileBacked {
		if err := os.MkdirAll(filepath.Dir(db.cfg.Path), dirPermissions); err != nil {
			return db.fail("connect", dbal.ErrConnection, fmt.Errorf("creating database directory: %w", err))
		}
	}

	pool, err := sqlx.Open(db.dialect.sqlDriver, dsn)
	if err != nil {
		return db.fail("connect", dbal.ErrConnection, err)
	}
	pool.SetMaxOpenConns(1)
	pool.SetMaxIdleConns(1)

	timeout := dbal.TimeoutOf(db.attrs)
	if timeout == 0 {
		timeout = connectionTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := pool.Connx(connectCtx)
	if err != nil {
		pool.Close() //nolint:errcheck // Best effort cleanup on error path
		return db.fail("connect", dbal.ErrConnection, err)
	}
	if err := conn.PingContext(connectCtx); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		pool.Close() //nolint:errcheck // Best effort cleanup on error path
		return db.fail("connect", dbal.ErrConnection, err)
	}

	var version string
	if err := conn.QueryRowxContext(connectCtx, db.dialect.versionQuery).Scan(&version); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		pool.Close() //nolint:errcheck // Best effort cleanup on error path
		return db.fail("connect", dbal.ErrConnection, fmt.Errorf("reading server version: %w", err))
	}

	if fileBacked {
		_ = os.Chmod(db.cfg.Path, filePermissions) //nolint:errcheck // file may be created lazily
	}

	db.pool = pool
	db.conn = conn
	db.generation++
	db.attrs.Set(dbal.AttrServerVersion, version)
	db.attrs.Set(dbal.AttrServerInfo, db.dialect.name+" "+version)
	db.attrs.Set(dbal.AttrConnectionStatus, StatusConnected)
	db.attrs.Set(dbal.AttrAutocommit, true)
	db.clearError()
	return nil
}

// Disconnect rolls back any open transaction and releases the connection.
// It is safe to call on a disconnected driver.
func (db *DB) Disconnect() error {
	if db.conn == nil {
		return nil
	}

	var errs []error
	if db.tx != nil {
		if err := db.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, fmt.Errorf("rolling back open transaction: %w", err))
		}
		db.tx = nil
	}
	if err := db.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing connection: %w", err))
	}
	if err := db.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	db.conn = nil
	db.pool = nil
	db.attrs.Set(dbal.AttrConnectionStatus, StatusDisconnected)

	if len(errs) > 0 {
		return db.fail("disconnect", dbal.ErrConnection, errors.Join(errs...))
	}
	return nil
}

// HealthCheck verifies the connection is alive with a trivial query.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database health check failed: %w", dbal.ErrNotConnected)
	}
	var result int
	if err := db.current().QueryRowxContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats returns connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	if db.pool == nil {
		return sql.DBStats{}
	}
	return db.pool.Stats()
}

// Prepare compiles query on the native connection, so invalid SQL fails
// here with ErrPrepare on every dialect. With AttrEmulatePrepares set, only
// the placeholder rewrite happens here and the backend sees the SQL at
// Execute.
func (db *DB) Prepare(ctx context.Context, query string) (dbal.Statement, error) {
	if db.conn == nil {
		return nil, db.fail("prepare", dbal.ErrPrepare, dbal.ErrNotConnected)
	}

	compiled, err := compileQuery(db.dialect.sqlDriver, query)
	if err != nil {
		return nil, db.fail("prepare", dbal.ErrPrepare, err)
	}

	s := &statement{
		db:         db,
		generation: db.generation,
		query:      query,
		compiled:   compiled,
		reads:      returnsRows(query),
		cursor:     dbal.NewCursor(db.attrs),
	}

	if !dbal.BoolOf(db.attrs, dbal.AttrEmulatePrepares) {
		callCtx, cancel := db.callContext(ctx)
		defer cancel()

		native, err := db.conn.PreparexContext(callCtx, compiled.sql)
		if err != nil {
			return nil, db.fail("prepare", dbal.ErrPrepare, err)
		}
		if db.dialect.validate != nil {
			if err := db.dialect.validate(callCtx, db.current(), compiled); err != nil {
				native.Close() //nolint:errcheck // reporting the compile error
				return nil, db.fail("prepare", dbal.ErrPrepare, err)
			}
		}
		s.native = native
	}

	db.clearError()
	return s, nil
}

// BeginTransaction starts a transaction. Nested transactions are not
// supported. The transaction is bound to ctx and is rolled back by the
// backend if ctx is cancelled before Commit.
func (db *DB) BeginTransaction(ctx context.Context) bool {
	if db.conn == nil || db.tx != nil {
		return false
	}
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		db.fail("begin", dbal.ErrExecution, err) //nolint:errcheck // recorded in LastError
		return false
	}
	db.tx = tx
	db.attrs.Set(dbal.AttrAutocommit, false)
	db.clearError()
	return true
}

// Commit commits the active transaction.
func (db *DB) Commit() bool {
	return db.endTransaction("commit", (*sqlx.Tx).Commit)
}

// RollBack discards the active transaction.
func (db *DB) RollBack() bool {
	return db.endTransaction("rollback", (*sqlx.Tx).Rollback)
}

func (db *DB) endTransaction(op string, end func(*sqlx.Tx) error) bool {
	if db.tx == nil {
		return false
	}
	tx := db.tx
	db.tx = nil
	db.attrs.Set(dbal.AttrAutocommit, true)
	if err := end(tx); err != nil {
		db.fail(op, dbal.ErrExecution, err) //nolint:errcheck // recorded in LastError
		return false
	}
	db.clearError()
	return true
}

// InTransaction reports whether a transaction is active.
func (db *DB) InTransaction() bool { return db.tx != nil }

// Quote renders value as a literal of the given type in this backend's
// dialect. Like every call other than Connect, it fails while disconnected.
func (db *DB) Quote(value any, typ dbal.ParamType) (string, bool) {
	if db.conn == nil {
		return "", false
	}
	return db.dialect.quote(value, typ)
}

// quote renders value as a literal of type typ.
func (d *dialect) quote(value any, typ dbal.ParamType) (string, bool) {
	if typ == dbal.ParamNull || value == nil {
		return "NULL", typ >= dbal.ParamNull && typ <= dbal.ParamLOB
	}

	switch typ {
	case dbal.ParamInt:
		n, ok := toInt64(value)
		if !ok {
			return "", false
		}
		return strconv.FormatInt(n, 10), true

	case dbal.ParamBool:
		b, ok := toBool(value)
		if !ok {
			return "", false
		}
		return d.boolLiteral(b), true

	case dbal.ParamStr:
		switch v := value.(type) {
		case string:
			return d.quoteString(v), true
		case []byte:
			return d.quoteString(string(v)), true
		case fmt.Stringer:
			return d.quoteString(v.String()), true
		}
		if n, ok := toInt64(value); ok {
			return d.quoteString(strconv.FormatInt(n, 10)), true
		}
		if f, ok := value.(float64); ok {
			return d.quoteString(strconv.FormatFloat(f, 'f', -1, 64)), true
		}
		return "", false

	case dbal.ParamLOB:
		switch v := value.(type) {
		case []byte:
			return d.quoteBytes(v), true
		case string:
			return d.quoteBytes([]byte(v)), true
		}
		return "", false
	}
	return "", false
}

// Errno returns the native code of the last failure, 0 if none.
func (db *DB) Errno() int { return db.last.Code }

// LastError describes the last failure.
func (db *DB) LastError() dbal.ErrorInfo { return db.last }

// LastInsertID reads the last generated identifier on this connection.
// column names the sequence (postgres) or table (sqlserver); it is ignored
// by the other backends.
func (db *DB) LastInsertID(ctx context.Context, column string) (int64, error) {
	if db.conn == nil {
		return 0, db.fail("last insert id", dbal.ErrExecution, dbal.ErrNotConnected)
	}
	query, args := db.dialect.lastInsertID(column)

	callCtx, cancel := db.callContext(ctx)
	defer cancel()

	var id sql.NullInt64
	if err := db.current().QueryRowxContext(callCtx, query, args...).Scan(&id); err != nil {
		return 0, db.fail("last insert id", dbal.ErrExecution, err)
	}
	db.clearError()
	return id.Int64, nil
}

// current returns the transaction if one is active, else the connection.
func (db *DB) current() handle {
	if db.tx != nil {
		return db.tx
	}
	return db.conn
}

// callContext applies AttrTimeout to one blocking backend call.
func (db *DB) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := dbal.TimeoutOf(db.attrs); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// fail records err as the last error and returns it as a *dbal.Error.
func (db *DB) fail(op string, kind, err error) error {
	code, state, ok := db.dialect.nativeError(err)
	if !ok {
		code = dbal.CodeUnknown
	}
	db.last = dbal.ErrorInfo{SQLState: state, Code: code, Message: err.Error()}
	return &dbal.Error{
		Op:       op,
		Kind:     kind,
		Code:     code,
		SQLState: state,
		Message:  err.Error(),
		Err:      err,
	}
}

func (db *DB) clearError() {
	db.last = dbal.ErrorInfo{}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	}
	if n, ok := toInt64(v); ok && (n == 0 || n == 1) {
		return n == 1, true
	}
	return false, false
}
