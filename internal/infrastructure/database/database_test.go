package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/graydb/internal/dbal"
)

// sqliteDrivers are the embedded backends every behavioural test runs on.
var sqliteDrivers = []string{"sqlite3", "sqlite"}

func forEachSQLite(t *testing.T, fn func(t *testing.T, driver string)) {
	t.Helper()
	for _, driver := range sqliteDrivers {
		t.Run(driver, func(t *testing.T) { fn(t, driver) })
	}
}

func TestOpen(t *testing.T) {
	forEachSQLite(t, func(t *testing.T, driver string) {
		path := filepath.Join(t.TempDir(), "nested", "test.db")
		conn := openTestConnAt(t, driver, path, nil)

		if !conn.Connected() {
			t.Fatal("Connected() = false after Open")
		}
		if v, _ := conn.GetAttribute(dbal.AttrConnectionStatus); v != StatusConnected {
			t.Errorf("connection_status = %v, want %q", v, StatusConnected)
		}
		if v, ok := conn.GetAttribute(dbal.AttrServerVersion); !ok || v == "" {
			t.Errorf("server_version = %v, %v, want non-empty", v, ok)
		}
		if v, _ := conn.GetAttribute(dbal.AttrDriverName); v != driver {
			t.Errorf("driver_name = %v, want %q", v, driver)
		}

		mustExec(t, conn, "CREATE TABLE t (x INTEGER)")
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("database file not created: %v", err)
		}
	})
}

func TestOpenInvalidConfig(t *testing.T) {
	_, err := dbal.Open(context.Background(), "sqlite3", dbal.Config{}, nil)
	if !errors.Is(err, dbal.ErrConnection) || !errors.Is(err, dbal.ErrConfiguration) {
		t.Errorf("Open(no path) error = %v, want ErrConnection and ErrConfiguration", err)
	}
}

func TestNewUnknownDialect(t *testing.T) {
	if _, err := New(dbal.Config{Driver: "oracle"}, nil); !errors.Is(err, dbal.ErrUnknownDriver) {
		t.Errorf("New(oracle) error = %v, want ErrUnknownDriver", err)
	}
}

func TestInsertAndSelect(t *testing.T) {
	forEachSQLite(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		conn := openTestConn(t, driver, nil)

		mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")

		n, err := conn.Exec(ctx, "INSERT INTO T (Id, Name) VALUES (?, ?)", 1, "Ann")
		if err != nil {
			t.Fatalf("Exec(insert) error = %v", err)
		}
		if n != 1 {
			t.Errorf("Exec(insert) = %d, want 1", n)
		}

		stmt, err := conn.Query(ctx, "SELECT Id, Name FROM T", dbal.FetchAssoc)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		defer stmt.Close() //nolint:errcheck // Test cleanup

		if stmt.RowCount() != 1 {
			t.Errorf("RowCount() = %d, want 1", stmt.RowCount())
		}
		rows, err := dbal.FetchAll(stmt)
		if err != nil {
			t.Fatalf("FetchAll() error = %v", err)
		}
		want := []any{map[string]any{"Id": int64(1), "Name": "Ann"}}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"Id", "Name"}, stmt.Columns()); diff != "" {
			t.Errorf("Columns() mismatch:\n%s", diff)
		}
	})
}

func TestSilentModeReportsPrepareError(t *testing.T) {
	forEachSQLite(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		conn := openTestConn(t, driver, map[dbal.Attribute]any{
			dbal.AttrErrMode: dbal.ErrModeSilent,
		})

		_, err := conn.Exec(ctx, "SELECT * FROM NoSuchTable")
		if !errors.Is(err, dbal.ErrPrepare) {
			t.Fatalf("Exec() error = %v, want ErrPrepare", err)
		}
		if conn.Errno() == 0 {
			t.Error("Errno() = 0 after failed prepare")
		}
		if !strings.Contains(conn.LastError().Message, "no such table") {
			t.Errorf("LastError().Message = %q", conn.LastError().Message)
		}
		if dbal.CodeOf(err) != conn.Errno() {
			t.Errorf("CodeOf(err) = %d, Errno() = %d", dbal.CodeOf(err), conn.Errno())
		}

		// The next successful operation clears the error.
		mustExec(t, conn, "CREATE TABLE ok (x INTEGER)")
		if conn.Errno() != 0 {
			t.Errorf("Errno() = %d after success, want 0", conn.Errno())
		}
	})
}

func TestQuoteRoundTrip(t *testing.T) {
	forEachSQLite(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		conn := openTestConn(t, driver, nil)
		mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")

		quoted, ok := conn.Quote("O'Brien", dbal.ParamStr)
		if !ok {
			t.Fatal("Quote() ok = false")
		}
		if quoted != "'O''Brien'" {
			t.Errorf("Quote() = %q, want %q", quoted, "'O''Brien'")
		}

		mustExec(t, conn, "INSERT INTO T (Id, Name) VALUES (1, "+quoted+")")

		rows, err := conn.Select(ctx, "SELECT Name FROM T WHERE Name = "+quoted, dbal.FetchColumn)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if diff := cmp.Diff([]any{"O'Brien"}, rows); diff != "" {
			t.Errorf("rows mismatch:\n%s", diff)
		}
	})
}

func TestTransactions(t *testing.T) {
	forEachSQLite(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		conn := openTestConn(t, driver, nil)
		mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")

		if conn.Commit() {
			t.Error("Commit() without transaction = true")
		}
		if conn.RollBack() {
			t.Error("RollBack() without transaction = true")
		}

		if !conn.BeginTransaction(ctx) {
			t.Fatal("BeginTransaction() = false")
		}
		if conn.BeginTransaction(ctx) {
			t.Error("nested BeginTransaction() = true")
		}
		if v, _ := conn.GetAttribute(dbal.AttrAutocommit); v != false {
			t.Errorf("autocommit in transaction = %v, want false", v)
		}
		mustExec(t, conn, "INSERT INTO T (Id, Name) VALUES (1, 'kept')")
		if !conn.Commit() {
			t.Fatal("Commit() = false")
		}

		if !conn.BeginTransaction(ctx) {
			t.Fatal("BeginTransaction() = false")
		}
		mustExec(t, conn, "INSERT INTO T (Id, Name) VALUES (2, 'discarded')")
		if got := countRows(t, conn, "T"); got != 2 {
			t.Errorf("rows inside transaction = %d, want 2", got)
		}
		if !conn.RollBack() {
			t.Fatal("RollBack() = false")
		}

		if conn.InTransaction() {
			t.Error("InTransaction() = true after rollback")
		}
		if got := countRows(t, conn, "T"); got != 1 {
			t.Errorf("rows after rollback = %d, want 1", got)
		}
	})
}

func TestPreparedStatementSpansTransaction(t *testing.T) {
	ctx := context.Background()
	conn := openTestConn(t, "sqlite3", nil)
	mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")

	stmt, err := conn.Prepare(ctx, "INSERT INTO T (Name) VALUES (?)")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer stmt.Close() //nolint:errcheck // Test cleanup

	if !conn.BeginTransaction(ctx) {
		t.Fatal("BeginTransaction() = false")
	}
	if err := stmt.Execute(ctx, "in-tx"); err != nil {
		t.Fatalf("Execute() in transaction error = %v", err)
	}
	conn.RollBack()

	if err := stmt.Execute(ctx, "after"); err != nil {
		t.Fatalf("Execute() after rollback error = %v", err)
	}
	if got := countRows(t, conn, "T"); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
}

func TestExecEquivalence(t *testing.T) {
	ctx := context.Background()
	conn := openTestConn(t, "sqlite3", nil)
	mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")
	mustExec(t, conn, "INSERT INTO T (Id, Name) VALUES (1, 'a'), (2, 'b'), (3, 'c')")

	const update = "UPDATE T SET Name = ? WHERE Id > ?"

	stmt, err := conn.Prepare(ctx, update)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := stmt.Execute(ctx, "x", 1); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	manual := stmt.RowCount()
	stmt.Close() //nolint:errcheck // Test cleanup

	got, err := conn.Exec(ctx, update, "y", 1)
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if got != manual || got != 2 {
		t.Errorf("Exec() = %d, manual = %d, want 2", got, manual)
	}
}

func TestNamedParameters(t *testing.T) {
	ctx := context.Background()
	conn := openTestConn(t, "sqlite3", nil)
	mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")

	stmt, err := conn.Prepare(ctx, "INSERT INTO T (Id, Name) VALUES (:id, :name)")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	defer stmt.Close() //nolint:errcheck // Test cleanup

	if err := stmt.Execute(ctx, dbal.Named{"id": 1, "name": "Ann"}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := stmt.Execute(ctx, dbal.Named{":id": 2, ":name": "Bob"}); err != nil {
		t.Fatalf("Execute(colon keys) error = %v", err)
	}

	err = stmt.Execute(ctx, dbal.Named{"id": 3})
	if !errors.Is(err, dbal.ErrBind) || !errors.Is(err, dbal.ErrExecution) {
		t.Errorf("Execute(missing name) error = %v, want ErrBind", err)
	}
	if got := countRows(t, conn, "T"); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
}

func TestPositionalParameterCount(t *testing.T) {
	ctx := context.Background()
	conn := openTestConn(t, "sqlite3", nil)
	mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")

	_, err := conn.Exec(ctx, "INSERT INTO T (Id, Name) VALUES (?, ?)", 1)
	if !errors.Is(err, dbal.ErrBind) {
		t.Errorf("Exec(too few params) error = %v, want ErrBind", err)
	}
	_, err = conn.Exec(ctx, "INSERT INTO T (Id, Name) VALUES (?, ?)", dbal.Named{"id": 1})
	if !errors.Is(err, dbal.ErrBind) {
		t.Errorf("Exec(named for positional) error = %v, want ErrBind", err)
	}
}

func TestEmulatedPrepares(t *testing.T) {
	ctx := context.Background()
	conn := openTestConn(t, "sqlite3", map[dbal.Attribute]any{
		dbal.AttrEmulatePrepares: true,
	})

	stmt, err := conn.Prepare(ctx, "SELECT * FROM NoSuchTable")
	if err != nil {
		t.Fatalf("Prepare() error = %v, want deferred to Execute", err)
	}
	defer stmt.Close() //nolint:errcheck // Test cleanup

	if err := stmt.Execute(ctx); !errors.Is(err, dbal.ErrExecution) {
		t.Errorf("Execute() error = %v, want ErrExecution", err)
	}
	if _, err := stmt.Fetch(); !errors.Is(err, dbal.ErrNotExecuted) {
		t.Errorf("Fetch() after failed Execute error = %v, want ErrNotExecuted", err)
	}
}

func TestFetchBeforeExecute(t *testing.T) {
	ctx := context.Background()
	conn := openTestConn(t, "sqlite3", nil)

	stmt, err := conn.Prepare(ctx, "SELECT 1")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, err := stmt.Fetch(); !errors.Is(err, dbal.ErrNotExecuted) {
		t.Errorf("Fetch() error = %v, want ErrNotExecuted", err)
	}
	if err := stmt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := stmt.Execute(ctx); !errors.Is(err, dbal.ErrStatementClosed) {
		t.Errorf("Execute() after Close error = %v, want ErrStatementClosed", err)
	}
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	conn := openTestConnAt(t, "sqlite3", path, nil)
	mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")

	stmt, err := conn.Prepare(ctx, "SELECT COUNT(*) FROM T")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if !conn.BeginTransaction(ctx) {
		t.Fatal("BeginTransaction() = false")
	}
	mustExec(t, conn, "INSERT INTO T (Name) VALUES ('uncommitted')")

	if err := conn.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if err := conn.Disconnect(); err != nil {
		t.Errorf("second Disconnect() error = %v", err)
	}
	if conn.InTransaction() {
		t.Error("InTransaction() = true after Disconnect")
	}

	if _, err := conn.Prepare(ctx, "SELECT 1"); !errors.Is(err, dbal.ErrNotConnected) {
		t.Errorf("Prepare() disconnected error = %v, want ErrNotConnected", err)
	}
	if err := stmt.Execute(ctx); !errors.Is(err, dbal.ErrNotConnected) {
		t.Errorf("Execute() disconnected error = %v, want ErrNotConnected", err)
	}
	if conn.BeginTransaction(ctx) {
		t.Error("BeginTransaction() disconnected = true")
	}
	if got, ok := conn.Quote("O'Brien", dbal.ParamStr); ok {
		t.Errorf("Quote() disconnected = %q, true; want false", got)
	}

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := stmt.Execute(ctx); !errors.Is(err, dbal.ErrStatementClosed) {
		t.Errorf("Execute() stale statement error = %v, want ErrStatementClosed", err)
	}
	if got := countRows(t, conn, "T"); got != 0 {
		t.Errorf("rows after reconnect = %d, want 0 (transaction rolled back)", got)
	}
}

func TestLastInsertID(t *testing.T) {
	forEachSQLite(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		conn := openTestConn(t, driver, nil)
		mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")
		mustExec(t, conn, "INSERT INTO T (Name) VALUES ('a')")
		mustExec(t, conn, "INSERT INTO T (Name) VALUES ('b')")

		id, err := conn.LastInsertID(ctx, "")
		if err != nil {
			t.Fatalf("LastInsertID() error = %v", err)
		}
		if id != 2 {
			t.Errorf("LastInsertID() = %d, want 2", id)
		}
	})
}

func TestColumnValueTypes(t *testing.T) {
	forEachSQLite(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		conn := openTestConn(t, driver, nil)
		mustExec(t, conn, "CREATE TABLE V (b BLOB, s TEXT, r REAL, n TEXT)")

		if _, err := conn.Exec(ctx, "INSERT INTO V VALUES (?, ?, ?, ?)", []byte{0x01, 0xff}, "txt", 1.5, nil); err != nil {
			t.Fatalf("Exec() error = %v", err)
		}

		rows, err := conn.Select(ctx, "SELECT b, s, r, n FROM V", dbal.FetchNum)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		want := []any{[]any{[]byte{0x01, 0xff}, "txt", 1.5, nil}}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestFetchAttributes(t *testing.T) {
	ctx := context.Background()
	conn := openTestConn(t, "sqlite3", map[dbal.Attribute]any{
		dbal.AttrCase:             dbal.CaseLower,
		dbal.AttrStringifyFetches: true,
		dbal.AttrOracleNulls:      dbal.NullToString,
	})
	mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")
	mustExec(t, conn, "INSERT INTO T (Id, Name) VALUES (7, NULL)")

	rows, err := conn.Select(ctx, "SELECT Id, Name FROM T", dbal.FetchDefault)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	want := []any{map[string]any{"id": "7", "name": ""}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTimeoutAttribute(t *testing.T) {
	conn := openTestConn(t, "sqlite3", map[dbal.Attribute]any{dbal.AttrTimeout: 2})
	if got := countRows(t, conn, "sqlite_master"); got != 0 {
		t.Errorf("sqlite_master rows = %d, want 0", got)
	}
}

func TestHealthCheck(t *testing.T) {
	driver, err := New(dbal.Config{Driver: "sqlite3", Path: memoryPath}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	if err := driver.HealthCheck(ctx); !errors.Is(err, dbal.ErrNotConnected) {
		t.Errorf("HealthCheck() before Connect error = %v, want ErrNotConnected", err)
	}
	if err := driver.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer driver.Disconnect() //nolint:errcheck // Test cleanup

	if err := driver.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if stats := driver.Stats(); stats.MaxOpenConnections != 1 {
		t.Errorf("Stats().MaxOpenConnections = %d, want 1", stats.MaxOpenConnections)
	}
}

func TestStatementKindFromSQL(t *testing.T) {
	forEachSQLite(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		conn := openTestConn(t, driver, nil)
		mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")

		n, err := conn.Exec(ctx, "INSERT INTO T (Id, Name) VALUES (1, 'goods returning soon')")
		if err != nil || n != 1 {
			t.Errorf("Exec(insert with literal) = %d, %v; want 1, nil", n, err)
		}
		mustExec(t, conn, "INSERT INTO T (Id, Name) VALUES (2, 'b'), (3, 'c')")

		stmt, err := conn.Query(ctx, "INSERT INTO T (Name) VALUES ('d')\nRETURNING Id", dbal.FetchColumn)
		if err != nil {
			t.Fatalf("Query(insert returning) error = %v", err)
		}
		defer stmt.Close() //nolint:errcheck // Test cleanup
		rows, err := dbal.FetchAll(stmt)
		if err != nil {
			t.Fatalf("FetchAll() error = %v", err)
		}
		if diff := cmp.Diff([]any{int64(4)}, rows); diff != "" {
			t.Errorf("returned ids mismatch (-want +got):\n%s", diff)
		}

		n, err = conn.Exec(ctx, "WITH old AS (SELECT Id FROM T WHERE Id < 3) DELETE FROM T WHERE Id IN (SELECT Id FROM old)")
		if err != nil || n != 2 {
			t.Errorf("Exec(with delete) = %d, %v; want 2, nil", n, err)
		}
		if got := countRows(t, conn, "T"); got != 2 {
			t.Errorf("rows left = %d, want 2", got)
		}
	})
}

func TestPrepareDoesNotExecute(t *testing.T) {
	forEachSQLite(t, func(t *testing.T, driver string) {
		ctx := context.Background()
		conn := openTestConn(t, driver, nil)
		mustExec(t, conn, "CREATE TABLE T (Id INTEGER PRIMARY KEY, Name TEXT)")

		if _, err := conn.Prepare(ctx, "SELECT * FROM NoSuchTable WHERE Id = :id"); !errors.Is(err, dbal.ErrPrepare) {
			t.Errorf("Prepare(missing table) error = %v, want ErrPrepare", err)
		}

		stmt, err := conn.Prepare(ctx, "INSERT INTO T (Name) VALUES (?)")
		if err != nil {
			t.Fatalf("Prepare(insert) error = %v", err)
		}
		defer stmt.Close() //nolint:errcheck // Test cleanup
		if got := countRows(t, conn, "T"); got != 0 {
			t.Fatalf("rows after Prepare = %d, want 0", got)
		}
		if err := stmt.Execute(ctx, "Ann"); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if got := countRows(t, conn, "T"); got != 1 {
			t.Errorf("rows after Execute = %d, want 1", got)
		}
	})
}

func TestMultiStatement(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", false},
		{"SELECT 1;", false},
		{"SELECT 1;  \n", false},
		{"SELECT ';' AS x", false},
		{"SELECT 1 -- ; SELECT 2", false},
		{"CREATE TABLE a (x INTEGER); CREATE TABLE b (x INTEGER)", true},
	}
	for _, tt := range tests {
		if got := multiStatement(tt.query); got != tt.want {
			t.Errorf("multiStatement(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", true},
		{"  select * from t", true},
		{"-- leading comment\nSELECT 1", true},
		{"/* c */ WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"(SELECT 1) UNION (SELECT 2)", true},
		{"PRAGMA table_info(t)", true},
		{"INSERT INTO t (a) VALUES (1) RETURNING id", true},
		{"INSERT INTO t (a) VALUES ('a')\nRETURNING Id", true},
		{"DELETE FROM t\tRETURNING\t*", true},
		{"INSERT INTO t (a) OUTPUT INSERTED.Id VALUES (1)", true},
		{"INSERT INTO t (a) VALUES (1)", false},
		{"INSERT INTO t (a, b) VALUES (1, 'goods returning soon')", false},
		{"INSERT INTO t (a) VALUES (1) -- returning id", false},
		{`UPDATE t SET "returning" = 1`, false},
		{"UPDATE t SET a = :returning", false},
		{"WITH old AS (SELECT id FROM t WHERE id < 3) DELETE FROM t WHERE id IN (SELECT id FROM old)", false},
		{"WITH RECURSIVE n(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM n WHERE x < 3) INSERT INTO t SELECT x FROM n", false},
		{"WITH d AS (DELETE FROM t RETURNING id) SELECT count(*) FROM d", true},
		{"WITH old AS (SELECT id FROM t) UPDATE t SET a = 1 RETURNING id", true},
		{"UPDATE t SET a = 1", false},
		{"CREATE TABLE t (a INTEGER)", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := returnsRows(tt.query); got != tt.want {
				t.Errorf("returnsRows(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

// openTestConn opens a file-backed database in a temporary directory.
func openTestConn(t *testing.T, driver string, attrs map[dbal.Attribute]any) *dbal.Conn {
	t.Helper()
	return openTestConnAt(t, driver, filepath.Join(t.TempDir(), "test.db"), attrs)
}

func openTestConnAt(t *testing.T, driver, path string, attrs map[dbal.Attribute]any) *dbal.Conn {
	t.Helper()

	conn, err := dbal.Open(context.Background(), driver, dbal.Config{Path: path}, attrs)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", driver, err)
	}
	t.Cleanup(func() {
		conn.Close() //nolint:errcheck // Test cleanup
	})
	return conn
}

func mustExec(t *testing.T, conn *dbal.Conn, query string, params ...any) {
	t.Helper()
	if _, err := conn.Exec(context.Background(), query, params...); err != nil {
		t.Fatalf("Exec(%q) error = %v", query, err)
	}
}

func countRows(t *testing.T, conn *dbal.Conn, table string) int64 {
	t.Helper()
	rows, err := conn.Select(context.Background(), "SELECT COUNT(*) FROM "+table, dbal.FetchColumn)
	if err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	n, ok := rows[0].(int64)
	if !ok {
		t.Fatalf("COUNT(*) = %T, want int64", rows[0])
	}
	return n
}
