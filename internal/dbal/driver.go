package dbal

import (
	"context"
	"strings"
)

// Config is the connection record a driver is constructed with.
type Config struct {
	// Driver selects the backend (registered name, e.g. "sqlite3").
	Driver string

	// Path is the database file for embedded backends.
	Path string

	Host     string
	Port     int
	User     string
	Password string

	// Schema is the database/schema name for server backends.
	Schema string

	// Params carries backend-specific DSN options verbatim.
	Params map[string]string
}

// ParamType describes how Quote should render a value.
type ParamType int

// Parameter types.
const (
	ParamNull ParamType = iota
	ParamInt
	ParamStr
	ParamBool
	ParamLOB
)

// FetchMode selects the row shape produced by Statement.Fetch.
type FetchMode int

// Fetch modes.
const (
	// FetchDefault defers to AttrDefaultFetchMode, then FetchAssoc.
	FetchDefault FetchMode = iota
	// FetchAssoc yields map[string]any keyed by column name.
	FetchAssoc
	// FetchNum yields []any in column order.
	FetchNum
	// FetchObj yields *Record.
	FetchObj
	// FetchColumn yields the value of a single column (arg: index, default 0).
	FetchColumn
)

var fetchModeNames = map[FetchMode]string{
	FetchDefault: "default",
	FetchAssoc:   "assoc",
	FetchNum:     "num",
	FetchObj:     "obj",
	FetchColumn:  "column",
}

// Valid reports whether m is a known fetch mode.
func (m FetchMode) Valid() bool {
	_, ok := fetchModeNames[m]
	return ok
}

func (m FetchMode) String() string {
	if n, ok := fetchModeNames[m]; ok {
		return n
	}
	return "unknown"
}

// ParseFetchMode resolves a fetch mode name.
func ParseFetchMode(name string) (FetchMode, bool) {
	for m, n := range fetchModeNames {
		if strings.EqualFold(n, name) {
			return m, true
		}
	}
	return FetchDefault, false
}

// Named binds parameters by name. Keys may carry the leading colon.
type Named map[string]any

// Statement is a prepared SQL statement bound to one driver connection.
//
// Execute must be called before Fetch or RowCount. Each Execute resets any
// previous result state.
type Statement interface {
	// Query returns the SQL text the statement was prepared from.
	Query() string

	// Execute runs the statement with positional values or a single Named map.
	Execute(ctx context.Context, params ...any) error

	// Fetch returns the next row in the current fetch mode, or io.EOF when
	// the result set is exhausted.
	Fetch() (any, error)

	// SetFetchMode changes the row shape. It returns false for unknown modes
	// or invalid arguments, leaving the mode unchanged.
	SetFetchMode(mode FetchMode, args ...any) bool

	// RowCount returns the rows affected by the last write, or the number of
	// rows selected by the last read.
	RowCount() int64

	// Columns returns the result column names of the last read, after AttrCase
	// folding.
	Columns() []string

	Close() error
}

// Driver is the contract every backend implements.
type Driver interface {
	// Name returns the registered driver name.
	Name() string

	// Attributes returns the connection's attribute store.
	Attributes() *Attributes

	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool

	// Prepare compiles sql for later execution.
	Prepare(ctx context.Context, sql string) (Statement, error)

	// BeginTransaction returns false when transactions are unsupported,
	// one is already active, or the driver is not connected.
	BeginTransaction(ctx context.Context) bool

	// Commit and RollBack return false when no transaction is active.
	Commit() bool
	RollBack() bool

	InTransaction() bool

	// Quote renders value as a literal safe to embed in SQL text. It
	// returns false while disconnected.
	Quote(value any, typ ParamType) (string, bool)

	// Errno returns the native code of the last failure, 0 if none.
	Errno() int

	// LastError describes the last failure.
	LastError() ErrorInfo

	// LastInsertID returns the identifier generated by the last insert.
	// column names the sequence or identity column where the backend needs it.
	LastInsertID(ctx context.Context, column string) (int64, error)
}
