package dbal

import (
	"context"
	"fmt"
	"sync"
)

// fakeResult is the canned outcome of one SQL text in fakeDriver.
type fakeResult struct {
	columns  []string
	rows     [][]any
	affected int64
	execErr  error
}

// fakeDriver is an in-memory Driver used to exercise the generic layer.
type fakeDriver struct {
	attrs      *Attributes
	connected  bool
	inTx       bool
	noTx       bool
	results    map[string]fakeResult
	prepareErr map[string]error
	connectErr error
	last       ErrorInfo
	executed   []fakeCall
	commits    int
	rollbacks  int
}

type fakeCall struct {
	sql    string
	params []any
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		attrs:      NewAttributes(),
		results:    make(map[string]fakeResult),
		prepareErr: make(map[string]error),
	}
}

func (d *fakeDriver) Name() string            { return "fake" }
func (d *fakeDriver) Attributes() *Attributes { return d.attrs }
func (d *fakeDriver) Connected() bool         { return d.connected }
func (d *fakeDriver) InTransaction() bool     { return d.inTx }
func (d *fakeDriver) Errno() int              { return d.last.Code }
func (d *fakeDriver) LastError() ErrorInfo    { return d.last }

func (d *fakeDriver) Connect(context.Context) error {
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = true
	return nil
}

func (d *fakeDriver) Disconnect() error {
	if d.inTx {
		d.RollBack()
	}
	d.connected = false
	return nil
}

func (d *fakeDriver) Prepare(_ context.Context, sql string) (Statement, error) {
	if !d.connected {
		return nil, &Error{Op: "prepare", Kind: ErrPrepare, Err: ErrNotConnected}
	}
	if err, ok := d.prepareErr[sql]; ok {
		d.last = ErrorInfo{Code: CodeOf(err), Message: err.Error()}
		return nil, err
	}
	d.last = ErrorInfo{}
	return &fakeStmt{driver: d, sql: sql, cursor: NewCursor(d.attrs)}, nil
}

func (d *fakeDriver) BeginTransaction(context.Context) bool {
	if d.noTx || d.inTx || !d.connected {
		return false
	}
	d.inTx = true
	return true
}

func (d *fakeDriver) Commit() bool {
	if !d.inTx {
		return false
	}
	d.inTx = false
	d.commits++
	return true
}

func (d *fakeDriver) RollBack() bool {
	if !d.inTx {
		return false
	}
	d.inTx = false
	d.rollbacks++
	return true
}

func (d *fakeDriver) Quote(value any, _ ParamType) (string, bool) {
	return fmt.Sprintf("'%v'", value), true
}

func (d *fakeDriver) LastInsertID(context.Context, string) (int64, error) {
	return int64(len(d.executed)), nil
}

type fakeStmt struct {
	driver   *fakeDriver
	sql      string
	cursor   *Cursor
	affected int64
	closed   bool
}

func (s *fakeStmt) Query() string { return s.sql }

func (s *fakeStmt) Execute(_ context.Context, params ...any) error {
	if s.closed {
		return ErrStatementClosed
	}
	s.cursor.Reset()
	s.affected = 0

	res := s.driver.results[s.sql]
	if res.execErr != nil {
		s.driver.last = ErrorInfo{Code: CodeOf(res.execErr), Message: res.execErr.Error()}
		return res.execErr
	}
	s.driver.executed = append(s.driver.executed, fakeCall{sql: s.sql, params: params})

	rows := make([][]any, len(res.rows))
	for i, r := range res.rows {
		rows[i] = append([]any(nil), r...)
	}
	s.cursor.Load(res.columns, rows)
	if res.columns != nil {
		s.affected = int64(len(rows))
	} else {
		s.affected = res.affected
	}
	return nil
}

func (s *fakeStmt) Fetch() (any, error)                     { return s.cursor.Fetch() }
func (s *fakeStmt) SetFetchMode(m FetchMode, a ...any) bool { return s.cursor.SetFetchMode(m, a...) }
func (s *fakeStmt) RowCount() int64                         { return s.affected }
func (s *fakeStmt) Columns() []string                       { return s.cursor.Columns() }

func (s *fakeStmt) Close() error {
	s.closed = true
	return nil
}

// recordingLogger captures log calls by level.
type recordingLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

// connectedFake returns a connected fakeDriver.
func connectedFake() *fakeDriver {
	d := newFakeDriver()
	d.connected = true
	return d
}
