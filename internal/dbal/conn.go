package dbal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Exec prepares sql, executes it with params and returns the affected row
// count. The statement is closed before returning. Errors from Prepare and
// Execute are returned unchanged.
func Exec(ctx context.Context, d Driver, sql string, params ...any) (int64, error) {
	stmt, err := d.Prepare(ctx, sql)
	if err != nil {
		return 0, err
	}
	defer stmt.Close() //nolint:errcheck // result already captured

	if err := stmt.Execute(ctx, params...); err != nil {
		return 0, err
	}
	return stmt.RowCount(), nil
}

// Query prepares and executes sql without parameters and returns the open
// statement positioned before the first row. A mode other than FetchDefault
// is applied (with modeArgs) before execution. The caller closes the
// statement.
func Query(ctx context.Context, d Driver, sql string, mode FetchMode, modeArgs ...any) (Statement, error) {
	stmt, err := d.Prepare(ctx, sql)
	if err != nil {
		return nil, err
	}
	if mode != FetchDefault && !stmt.SetFetchMode(mode, modeArgs...) {
		stmt.Close() //nolint:errcheck // reporting the fetch mode error
		return nil, fmt.Errorf("%w: %s %v", ErrInvalidFetchMode, mode, modeArgs)
	}
	if err := stmt.Execute(ctx); err != nil {
		stmt.Close() //nolint:errcheck // reporting the execute error
		return nil, err
	}
	return stmt, nil
}

// FetchAll drains stmt and returns every remaining row.
func FetchAll(stmt Statement) ([]any, error) {
	var rows []any
	for {
		row, err := stmt.Fetch()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

// Transact runs fn inside a transaction on d. The transaction is rolled back
// when fn returns an error or panics, and committed otherwise.
func Transact(ctx context.Context, d Driver, fn func() error) (err error) {
	if !d.BeginTransaction(ctx) {
		return fmt.Errorf("%w: begin on %s", ErrTransaction, d.Name())
	}

	defer func() {
		if p := recover(); p != nil {
			d.RollBack()
			panic(p)
		}
	}()

	if err := fn(); err != nil {
		if !d.RollBack() {
			return fmt.Errorf("%w (rollback also failed: %s)", err, d.LastError().Message)
		}
		return err
	}
	if !d.Commit() {
		return fmt.Errorf("%w: commit on %s: %s", ErrTransaction, d.Name(), d.LastError().Message)
	}
	return nil
}

// Conn wraps a Driver, reporting every operation to an optional Observer and
// logging failures according to AttrErrMode. Conn itself satisfies Driver.
//
// A Conn is not safe for concurrent use; share it through a Guard.
type Conn struct {
	driver   Driver
	logger   Logger
	observer Observer
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger failures are reported through.
func WithLogger(l Logger) Option {
	return func(c *Conn) { c.logger = l }
}

// WithObserver sets the observer notified of every operation.
func WithObserver(o Observer) Option {
	return func(c *Conn) { c.observer = o }
}

// NewConn wraps d. The driver is not connected by NewConn.
func NewConn(d Driver, opts ...Option) *Conn {
	c := &Conn{driver: d}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Driver returns the wrapped driver.
func (c *Conn) Driver() Driver { return c.driver }

// Name returns the driver name.
func (c *Conn) Name() string { return c.driver.Name() }

// Attributes returns the driver's attribute store.
func (c *Conn) Attributes() *Attributes { return c.driver.Attributes() }

// SetAttribute stores an attribute; false if key is not a valid attribute.
func (c *Conn) SetAttribute(key Attribute, value any) bool {
	return c.driver.Attributes().Set(key, value)
}

// GetAttribute reads an attribute; false if it was never set.
func (c *Conn) GetAttribute(key Attribute) (any, bool) {
	return c.driver.Attributes().Get(key)
}

// Connect opens the native connection.
func (c *Conn) Connect(ctx context.Context) error {
	start := time.Now()
	err := c.driver.Connect(ctx)
	c.report(OpConnect, "", start, 0, err)
	return err
}

// Disconnect releases the native connection, rolling back any open
// transaction. It is safe to call more than once.
func (c *Conn) Disconnect() error {
	start := time.Now()
	err := c.driver.Disconnect()
	c.report(OpDisconnect, "", start, 0, err)
	return err
}

// Close is Disconnect, for use with defer and io.Closer.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	return c.Disconnect()
}

// Connected reports whether the native connection is open.
func (c *Conn) Connected() bool { return c.driver.Connected() }

// Prepare compiles sql on the driver.
func (c *Conn) Prepare(ctx context.Context, sql string) (Statement, error) {
	start := time.Now()
	stmt, err := c.driver.Prepare(ctx, sql)
	c.report(OpPrepare, sql, start, 0, err)
	return stmt, err
}

// Exec runs sql with params and returns the affected row count.
func (c *Conn) Exec(ctx context.Context, sql string, params ...any) (int64, error) {
	start := time.Now()
	n, err := Exec(ctx, c.driver, sql, params...)
	c.report(OpExec, sql, start, n, err)
	return n, err
}

// Query runs sql and returns the executed statement.
func (c *Conn) Query(ctx context.Context, sql string, mode FetchMode, modeArgs ...any) (Statement, error) {
	start := time.Now()
	stmt, err := Query(ctx, c.driver, sql, mode, modeArgs...)
	var rows int64
	if stmt != nil {
		rows = stmt.RowCount()
	}
	c.report(OpQuery, sql, start, rows, err)
	return stmt, err
}

// Select prepares sql, executes it with params in the given fetch mode and
// returns every row.
func (c *Conn) Select(ctx context.Context, sql string, mode FetchMode, params ...any) ([]any, error) {
	start := time.Now()
	rows, err := c.selectRows(ctx, sql, mode, params)
	c.report(OpQuery, sql, start, int64(len(rows)), err)
	return rows, err
}

func (c *Conn) selectRows(ctx context.Context, sql string, mode FetchMode, params []any) ([]any, error) {
	stmt, err := c.driver.Prepare(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer stmt.Close() //nolint:errcheck // rows already buffered

	if mode != FetchDefault && !stmt.SetFetchMode(mode) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFetchMode, mode)
	}
	if err := stmt.Execute(ctx, params...); err != nil {
		return nil, err
	}
	return FetchAll(stmt)
}

// BeginTransaction starts a transaction.
func (c *Conn) BeginTransaction(ctx context.Context) bool {
	start := time.Now()
	ok := c.driver.BeginTransaction(ctx)
	c.report(OpBegin, "", start, 0, refused(ok))
	return ok
}

// Commit commits the active transaction.
func (c *Conn) Commit() bool {
	start := time.Now()
	ok := c.driver.Commit()
	c.report(OpCommit, "", start, 0, refused(ok))
	return ok
}

// RollBack discards the active transaction.
func (c *Conn) RollBack() bool {
	start := time.Now()
	ok := c.driver.RollBack()
	c.report(OpRollback, "", start, 0, refused(ok))
	return ok
}

// InTransaction reports whether a transaction is active.
func (c *Conn) InTransaction() bool { return c.driver.InTransaction() }

// Transact runs fn inside a transaction on this connection.
func (c *Conn) Transact(ctx context.Context, fn func() error) error {
	return Transact(ctx, c, fn)
}

// Quote renders value as an SQL literal.
func (c *Conn) Quote(value any, typ ParamType) (string, bool) {
	return c.driver.Quote(value, typ)
}

// Errno returns the native code of the last failure.
func (c *Conn) Errno() int { return c.driver.Errno() }

// LastError describes the last failure.
func (c *Conn) LastError() ErrorInfo { return c.driver.LastError() }

// LastInsertID returns the identifier generated by the last insert.
func (c *Conn) LastInsertID(ctx context.Context, column string) (int64, error) {
	return c.driver.LastInsertID(ctx, column)
}

func refused(ok bool) error {
	if ok {
		return nil
	}
	return ErrTransaction
}

func (c *Conn) report(op, query string, start time.Time, rows int64, err error) {
	if c.observer != nil {
		c.observer.Observe(Event{
			Driver:   c.driver.Name(),
			Op:       op,
			Query:    query,
			Duration: time.Since(start),
			Rows:     rows,
			Err:      err,
		})
	}
	if err == nil || c.logger == nil {
		return
	}

	args := []any{
		"driver", c.driver.Name(),
		"op", op,
		"errno", c.driver.Errno(),
		"error", err,
	}
	if query != "" {
		args = append(args, "query", query)
	}
	switch errModeOf(c.driver.Attributes()) {
	case ErrModeSilent:
	case ErrModeWarning:
		c.logger.Warn("database operation failed", args...)
	default:
		c.logger.Error("database operation failed", args...)
	}
}
