package database

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nerrad567/graydb/internal/dbal"
)

// dialect holds everything that differs between the supported backends.
// The statement and transaction machinery in this package is shared.
type dialect struct {
	// name is the driver name registered with dbal.
	name string

	// sqlDriver is the database/sql driver name passed to sqlx.Open.
	sqlDriver string

	// client describes the client library, stored in AttrClientVersion.
	client string

	// embedded backends keep their data in cfg.Path.
	embedded bool

	dsn          func(cfg dbal.Config) (string, error)
	quoteString  func(s string) string
	quoteBytes   func(b []byte) string
	boolLiteral  func(b bool) string
	versionQuery string

	// lastInsertID returns the query (and its arguments) that reads the
	// last generated identifier on the current session.
	lastInsertID func(column string) (string, []any)

	// nativeError extracts the backend error code from err.
	nativeError func(err error) (code int, sqlState string, ok bool)

	// validate compiles q on h for backends whose native prepare defers
	// compilation to the first execution. Nil when prepare already fails
	// on bad SQL.
	validate func(ctx context.Context, h handle, q compiledQuery) error
}

// dialects lists every backend this package registers with dbal.
var dialects = []*dialect{
	sqlite3Dialect,
	sqliteDialect,
	mysqlDialect,
	postgresDialect,
	sqlserverDialect,
}

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver(sqliteDialect.sqlDriver, sqlx.QUESTION)

	for _, d := range dialects {
		dbal.Register(d.name, factory(d))
	}
}

// factory adapts New to dbal.Factory for one dialect.
func factory(d *dialect) dbal.Factory {
	return func(cfg dbal.Config, attrs *dbal.Attributes) (dbal.Driver, error) {
		return newDB(d, cfg, attrs), nil
	}
}

// lookupDialect returns the dialect registered under name.
func lookupDialect(name string) (*dialect, bool) {
	for _, d := range dialects {
		if d.name == name {
			return d, true
		}
	}
	return nil, false
}

// quoteDoubled wraps s in single quotes, doubling embedded quotes.
func quoteDoubled(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteHexLiteral renders b as an X'..' blob literal.
func quoteHexLiteral(b []byte) string {
	return "X'" + hex.EncodeToString(b) + "'"
}

func numericBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func keywordBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
