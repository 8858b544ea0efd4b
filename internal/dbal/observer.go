package dbal

import "time"

// Operations reported in Event.Op.
const (
	OpConnect    = "connect"
	OpDisconnect = "disconnect"
	OpPrepare    = "prepare"
	OpExec       = "exec"
	OpQuery      = "query"
	OpBegin      = "begin"
	OpCommit     = "commit"
	OpRollback   = "rollback"
)

// Event describes one completed operation on a Conn.
type Event struct {
	Driver   string
	Op       string
	Query    string
	Duration time.Duration
	Rows     int64
	Err      error
}

// Observer receives events from a Conn. Observe is called synchronously on
// the calling goroutine and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// Logger is the logging surface a Conn reports failures through.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}
