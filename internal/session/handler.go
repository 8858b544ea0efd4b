package session

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Domain errors.
var (
	// ErrInvalidID is returned for session IDs outside [A-Za-z0-9,_-]{1,128}.
	ErrInvalidID = errors.New("session: invalid session id")

	// ErrInvalidTable is returned for a table name that is not a plain identifier.
	ErrInvalidTable = errors.New("session: invalid table name")

	// ErrNotOpen is returned when a handler is used before Open.
	ErrNotOpen = errors.New("session: handler not open")
)

// startedLayout formats the Started column. It sorts lexicographically.
const startedLayout = "2006-01-02 15:04:05"

var (
	idPattern    = regexp.MustCompile(`^[A-Za-z0-9,_-]{1,128}$`)
	tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)
)

// State is the per-session state passed explicitly into every handler call.
// Read fills Remember and Strict from storage; Write persists them.
type State struct {
	// Name is the session name (cookie name). Empty means the name given
	// to Open.
	Name string

	// Remember exempts the session from garbage collection.
	Remember bool

	// Strict marks the session as bound to RemoteAddr.
	Strict bool

	RemoteAddr string
}

// Handler persists session data.
type Handler interface {
	// Open prepares the handler. savePath is handler specific (a directory
	// for files, ignored by the database handler); name is the default
	// session name.
	Open(savePath, name string) error

	Close() error

	// Read returns the stored data, or "" if the session does not exist.
	Read(ctx context.Context, st *State, id string) (string, error)

	Write(ctx context.Context, st *State, id, data string) error

	// Destroy removes the session. Destroying a missing session is not an error.
	Destroy(ctx context.Context, st *State, id string) error

	// GC removes sessions older than maxLifetime that are not remembered and
	// returns how many were removed.
	GC(ctx context.Context, maxLifetime time.Duration) (int64, error)
}

// NewID returns a new random session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is acceptable as a session ID.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
