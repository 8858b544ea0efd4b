package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"

	"github.com/nerrad567/graydb/internal/dbal"
)

// Portable SQLite options accepted in dbal.Config.Params. Anything else is
// passed to the driver verbatim.
const (
	// ParamBusyTimeout is the lock wait in seconds.
	ParamBusyTimeout = "busy_timeout"

	// ParamJournalMode selects the journal mode (e.g. "WAL").
	ParamJournalMode = "journal_mode"

	// defaultBusyTimeout is used when ParamBusyTimeout is not set (seconds).
	defaultBusyTimeout = 5

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000
)

// sqlite3Dialect is the cgo SQLite driver (github.com/mattn/go-sqlite3).
var sqlite3Dialect = &dialect{
	name:         "sqlite3",
	sqlDriver:    "sqlite3",
	client:       sqlite3Client(),
	embedded:     true,
	dsn:          sqlite3DSN,
	quoteString:  quoteDoubled,
	quoteBytes:   quoteHexLiteral,
	boolLiteral:  numericBool,
	versionQuery: "SELECT sqlite_version()",
	lastInsertID: sqliteLastInsertID,
	nativeError: func(err error) (int, string, bool) {
		var e sqlite3.Error
		if errors.As(err, &e) {
			return int(e.Code), "", true
		}
		return 0, "", false
	},
}

// sqliteDialect is the pure Go SQLite driver (modernc.org/sqlite).
var sqliteDialect = &dialect{
	name:         "sqlite",
	sqlDriver:    "sqlite",
	client:       "modernc.org/sqlite",
	embedded:     true,
	dsn:          moderncDSN,
	quoteString:  quoteDoubled,
	quoteBytes:   quoteHexLiteral,
	boolLiteral:  numericBool,
	versionQuery: "SELECT sqlite_version()",
	lastInsertID: sqliteLastInsertID,
	nativeError: func(err error) (int, string, bool) {
		var e *sqlite.Error
		if errors.As(err, &e) {
			// Extended result codes carry the primary code in the low byte.
			return e.Code() & 0xff, "", true
		}
		return 0, "", false
	},
	validate: explainCompile,
}

// explainCompile makes modernc compile q, which its Prepare only records.
// EXPLAIN compiles the statement without running it. Statement lists and
// statements that are already EXPLAIN are left to Execute, since EXPLAIN
// covers only the first statement and does not nest.
func explainCompile(ctx context.Context, h handle, q compiledQuery) error {
	words := sqlWords(maskSQL(q.sql))
	if len(words) == 0 || words[0].text == "EXPLAIN" || multiStatement(q.sql) {
		return nil
	}

	args := make([]any, q.positional+len(q.names))
	rows, err := h.QueryxContext(ctx, "EXPLAIN "+q.sql, args...)
	if err != nil {
		return err
	}
	return rows.Close()
}

// multiStatement reports whether query holds SQL after a top-level ';'.
func multiStatement(query string) bool {
	masked := maskSQL(query)
	i := strings.IndexByte(masked, ';')
	return i >= 0 && strings.TrimSpace(masked[i+1:]) != ""
}

func sqlite3Client() string {
	version, _, _ := sqlite3.Version()
	return "go-sqlite3 (libsqlite3 " + version + ")"
}

func sqliteLastInsertID(string) (string, []any) {
	return "SELECT last_insert_rowid()", nil
}

// sqlitePath validates cfg.Path and returns the file part of the DSN.
func sqlitePath(cfg dbal.Config) (string, error) {
	if cfg.Path == "" {
		return "", fmt.Errorf("%w: %s requires a path", dbal.ErrConfiguration, cfg.Driver)
	}
	return "file:" + cfg.Path, nil
}

// busyTimeoutMS reads ParamBusyTimeout in milliseconds.
func busyTimeoutMS(cfg dbal.Config) (int, error) {
	v, ok := cfg.Params[ParamBusyTimeout]
	if !ok || v == "" {
		return defaultBusyTimeout * msPerSecond, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", dbal.ErrConfiguration, ParamBusyTimeout, v)
	}
	return secs * msPerSecond, nil
}

// passthrough returns the driver-specific params in key order.
func passthrough(cfg dbal.Config) []string {
	keys := make([]string, 0, len(cfg.Params))
	for k := range cfg.Params {
		if k == ParamBusyTimeout || k == ParamJournalMode {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sqlite3DSN builds the mattn connection string.
// See: https://github.com/mattn/go-sqlite3#connection-string
func sqlite3DSN(cfg dbal.Config) (string, error) {
	path, err := sqlitePath(cfg)
	if err != nil {
		return "", err
	}
	busy, err := busyTimeoutMS(cfg)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("_busy_timeout", strconv.Itoa(busy))
	q.Set("_foreign_keys", "on")
	if mode := cfg.Params[ParamJournalMode]; mode != "" {
		q.Set("_journal_mode", mode)
		if strings.EqualFold(mode, "WAL") {
			q.Set("_synchronous", "NORMAL")
		}
	}
	for _, k := range passthrough(cfg) {
		q.Set(k, cfg.Params[k])
	}
	return path + "?" + q.Encode(), nil
}

// moderncDSN builds the modernc connection string, which takes pragmas as
// repeated _pragma arguments.
func moderncDSN(cfg dbal.Config) (string, error) {
	path, err := sqlitePath(cfg)
	if err != nil {
		return "", err
	}
	busy, err := busyTimeoutMS(cfg)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
	q.Add("_pragma", "foreign_keys(1)")
	if mode := cfg.Params[ParamJournalMode]; mode != "" {
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", mode))
	}
	for _, k := range passthrough(cfg) {
		q.Set(k, cfg.Params[k])
	}
	return path + "?" + q.Encode(), nil
}
