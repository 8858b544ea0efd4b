package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nerrad567/graydb/internal/dbal"
)

// readKeywords are the leading keywords of statements that return rows.
var readKeywords = map[string]struct{}{
	"SELECT":   {},
	"PRAGMA":   {},
	"SHOW":     {},
	"VALUES":   {},
	"EXPLAIN":  {},
	"DESCRIBE": {},
	"DESC":     {},
	"TABLE":    {},
}

// binaryTypes are column type name fragments whose []byte values are kept
// as bytes instead of being converted to string.
var binaryTypes = []string{"BLOB", "BINARY", "BYTEA", "IMAGE"}

// statement is the dbal.Statement of the sql backend.
//
// Reads are fully buffered at Execute, which keeps the single native
// connection free for the next statement and makes RowCount exact.
type statement struct {
	db         *DB
	generation int

	query    string
	compiled compiledQuery
	reads    bool

	// native is nil when prepares are emulated.
	native *sqlx.Stmt

	cursor   *dbal.Cursor
	affected int64
	closed   bool
}

// Query returns the SQL text the statement was prepared from.
func (s *statement) Query() string { return s.query }

// Execute binds params and runs the statement. Previous results are
// discarded first, so a failed execution leaves no rows behind.
func (s *statement) Execute(ctx context.Context, params ...any) error {
	s.cursor.Reset()
	s.affected = 0

	if err := s.usable(); err != nil {
		return s.db.fail("execute", dbal.ErrExecution, err)
	}

	args, err := s.compiled.bindArgs(params)
	if err != nil {
		return s.db.fail("execute", dbal.ErrExecution, err)
	}

	callCtx, cancel := s.db.callContext(ctx)
	defer cancel()

	if s.reads {
		err = s.executeRead(callCtx, args)
	} else {
		err = s.executeWrite(callCtx, args)
	}
	if err != nil {
		s.cursor.Reset()
		s.affected = 0
		return s.db.fail("execute", dbal.ErrExecution, err)
	}
	s.db.clearError()
	return nil
}

func (s *statement) usable() error {
	switch {
	case s.closed:
		return dbal.ErrStatementClosed
	case s.db.conn == nil:
		return dbal.ErrNotConnected
	case s.generation != s.db.generation:
		return fmt.Errorf("%w: prepared on a previous connection", dbal.ErrStatementClosed)
	}
	return nil
}

// bound returns the native statement bound to the active transaction, and a
// release func for it.
func (s *statement) bound(ctx context.Context) (*sqlx.Stmt, func()) {
	if s.db.tx == nil {
		return s.native, func() {}
	}
	txStmt := s.db.tx.StmtxContext(ctx, s.native)
	return txStmt, func() { txStmt.Close() } //nolint:errcheck // closed with the transaction anyway
}

func (s *statement) executeWrite(ctx context.Context, args []any) error {
	var (
		res sql.Result
		err error
	)
	if s.native == nil {
		res, err = s.db.current().ExecContext(ctx, s.compiled.sql, args...)
	} else {
		stmt, release := s.bound(ctx)
		defer release()
		res, err = stmt.ExecContext(ctx, args...)
	}
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		// Not every backend reports affected rows for every statement.
		n = 0
	}
	s.affected = n
	s.cursor.Load(nil, nil)
	return nil
}

func (s *statement) executeRead(ctx context.Context, args []any) error {
	var (
		rows *sqlx.Rows
		err  error
	)
	if s.native == nil {
		rows, err = s.db.current().QueryxContext(ctx, s.compiled.sql, args...)
	} else {
		stmt, release := s.bound(ctx)
		defer release()
		rows, err = stmt.QueryxContext(ctx, args...)
	}
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck // fully drained below

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("reading columns: %w", err)
	}
	binary := make([]bool, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			binary[i] = isBinaryType(ct.DatabaseTypeName())
		}
	}

	var buffered [][]any
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok && !binary[i] {
				row[i] = string(b)
			}
		}
		buffered = append(buffered, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows: %w", err)
	}

	s.cursor.Load(columns, buffered)
	s.affected = int64(len(buffered))
	return nil
}

// Fetch returns the next buffered row.
func (s *statement) Fetch() (any, error) {
	if s.closed {
		return nil, dbal.ErrStatementClosed
	}
	return s.cursor.Fetch()
}

// SetFetchMode changes the row shape of subsequent fetches.
func (s *statement) SetFetchMode(mode dbal.FetchMode, args ...any) bool {
	return s.cursor.SetFetchMode(mode, args...)
}

// RowCount returns affected rows for writes and selected rows for reads.
func (s *statement) RowCount() int64 { return s.affected }

// Columns returns the column names of the last read.
func (s *statement) Columns() []string { return s.cursor.Columns() }

// Close releases the native statement. Closing twice is a no-op.
func (s *statement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cursor.Reset()
	if s.native == nil || s.generation != s.db.generation || s.db.conn == nil {
		return nil
	}
	if err := s.native.Close(); err != nil {
		return fmt.Errorf("closing statement: %w", err)
	}
	return nil
}

// returnsRows reports whether query produces a result set. Literals,
// quoted identifiers and comments are masked first, so only SQL text
// takes part in the decision.
func returnsRows(query string) bool {
	words := sqlWords(maskSQL(query))
	if len(words) == 0 {
		return false
	}

	lead := words[0].text
	if lead == "WITH" {
		lead = statementAfterCTEs(words)
	}
	if _, ok := readKeywords[lead]; ok {
		return true
	}

	for i, w := range words {
		switch w.text {
		case "RETURNING":
			return true
		case "OUTPUT":
			if i+1 < len(words) && (words[i+1].text == "INSERTED" || words[i+1].text == "DELETED") {
				return true
			}
		}
	}
	return false
}

// sqlWord is one upper-cased keyword or identifier and its paren depth.
type sqlWord struct {
	text  string
	depth int
}

// sqlWords splits masked SQL into words. Placeholder and variable names
// (:name, @name, $name) are skipped.
func sqlWords(masked string) []sqlWord {
	var words []sqlWord
	depth := 0
	for i := 0; i < len(masked); i++ {
		ch := masked[i]
		switch {
		case ch == '(':
			depth++
		case ch == ')':
			if depth > 0 {
				depth--
			}
		case isNameStart(ch):
			j := i + 1
			for j < len(masked) && isNameChar(masked[j]) {
				j++
			}
			if i == 0 || !strings.ContainsRune(":@$", rune(masked[i-1])) {
				words = append(words, sqlWord{text: strings.ToUpper(masked[i:j]), depth: depth})
			}
			i = j - 1
		}
	}
	return words
}

// statementAfterCTEs returns the first keyword after the CTE list of a
// WITH statement, at the depth the WITH itself is written at.
func statementAfterCTEs(words []sqlWord) string {
	depth := words[0].depth
	for _, w := range words[1:] {
		if w.depth != depth {
			continue
		}
		switch w.text {
		case "SELECT", "VALUES", "TABLE", "INSERT", "UPDATE", "DELETE", "REPLACE", "MERGE":
			return w.text
		}
	}
	return ""
}

func isBinaryType(name string) bool {
	upper := strings.ToUpper(name)
	for _, t := range binaryTypes {
		if strings.Contains(upper, t) {
			return true
		}
	}
	return false
}
