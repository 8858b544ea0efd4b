package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/graydb/internal/dbal"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		driver string
		value  any
		typ    dbal.ParamType
		want   string
		wantOK bool
	}{
		{"sqlite3", "O'Brien", dbal.ParamStr, "'O''Brien'", true},
		{"sqlite3", 42, dbal.ParamInt, "42", true},
		{"sqlite3", "42", dbal.ParamInt, "42", true},
		{"sqlite3", "x", dbal.ParamInt, "", false},
		{"sqlite3", true, dbal.ParamBool, "1", true},
		{"sqlite3", "maybe", dbal.ParamBool, "", false},
		{"sqlite3", nil, dbal.ParamStr, "NULL", true},
		{"sqlite3", "ignored", dbal.ParamNull, "NULL", true},
		{"sqlite3", []byte{0xde, 0xad}, dbal.ParamLOB, "X'dead'", true},
		{"sqlite3", struct{}{}, dbal.ParamStr, "", false},
		{"sqlite3", "x", dbal.ParamType(99), "", false},
		{"sqlite", int64(7), dbal.ParamStr, "'7'", true},
		{"mysql", `a\'b`, dbal.ParamStr, `'a\\''b'`, true},
		{"mysql", "line\nbreak", dbal.ParamStr, `'line\nbreak'`, true},
		{"postgres", "O'Brien", dbal.ParamStr, "'O''Brien'", true},
		{"postgres", false, dbal.ParamBool, "FALSE", true},
		{"postgres", []byte{0x01}, dbal.ParamLOB, `'\x01'::bytea`, true},
		{"sqlserver", "O'Brien", dbal.ParamStr, "N'O''Brien'", true},
		{"sqlserver", []byte{0xab}, dbal.ParamLOB, "0xab", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, ok := lookupDialect(tt.driver)
			if !ok {
				t.Fatalf("lookupDialect(%q) not found", tt.driver)
			}
			got, ok := d.quote(tt.value, tt.typ)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Quote(%v, %v) = %q, %v, want %q, %v", tt.value, tt.typ, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     dbal.Config
		d       *dialect
		want    []string
		wantErr bool
	}{
		{
			name: "sqlite3 defaults",
			cfg:  dbal.Config{Driver: "sqlite3", Path: "/var/lib/graydb/app.db"},
			d:    sqlite3Dialect,
			want: []string{"file:/var/lib/graydb/app.db?", "_busy_timeout=5000", "_foreign_keys=on"},
		},
		{
			name: "sqlite3 wal",
			cfg: dbal.Config{Driver: "sqlite3", Path: "app.db", Params: map[string]string{
				ParamJournalMode: "WAL", ParamBusyTimeout: "2", "cache": "shared",
			}},
			d:    sqlite3Dialect,
			want: []string{"_journal_mode=WAL", "_synchronous=NORMAL", "_busy_timeout=2000", "cache=shared"},
		},
		{
			name: "modernc pragmas",
			cfg:  dbal.Config{Driver: "sqlite", Path: "app.db", Params: map[string]string{ParamJournalMode: "WAL"}},
			d:    sqliteDialect,
			want: []string{"file:app.db?", "busy_timeout%285000%29", "foreign_keys%281%29", "journal_mode%28WAL%29"},
		},
		{
			name:    "sqlite bad busy timeout",
			cfg:     dbal.Config{Driver: "sqlite3", Path: "app.db", Params: map[string]string{ParamBusyTimeout: "soon"}},
			d:       sqlite3Dialect,
			wantErr: true,
		},
		{
			name:    "sqlite without path",
			cfg:     dbal.Config{Driver: "sqlite"},
			d:       sqliteDialect,
			wantErr: true,
		},
		{
			name: "mysql",
			cfg:  dbal.Config{Driver: "mysql", Host: "db.local", User: "app", Password: "pw", Schema: "graydb"},
			d:    mysqlDialect,
			want: []string{"app:pw@tcp(db.local:3306)/graydb"},
		},
		{
			name: "postgres",
			cfg: dbal.Config{Driver: "postgres", Host: "db.local", Port: 6432, User: "app", Password: "pw", Schema: "graydb",
				Params: map[string]string{"sslmode": "disable"}},
			d:    postgresDialect,
			want: []string{"postgres://app:pw@db.local:6432/graydb?sslmode=disable"},
		},
		{
			name: "sqlserver",
			cfg:  dbal.Config{Driver: "sqlserver", Host: "db.local", User: "sa", Password: "pw", Schema: "graydb"},
			d:    sqlserverDialect,
			want: []string{"sqlserver://sa:pw@db.local:1433?database=graydb"},
		},
		{
			name:    "server without host",
			cfg:     dbal.Config{Driver: "postgres"},
			d:       postgresDialect,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.d.dsn(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, dbal.ErrConfiguration) {
					t.Errorf("dsn() error = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("dsn() error = %v", err)
			}
			for _, part := range tt.want {
				if !strings.Contains(got, part) {
					t.Errorf("dsn() = %q, missing %q", got, part)
				}
			}
		})
	}
}

func TestLastInsertIDQueries(t *testing.T) {
	tests := []struct {
		d        *dialect
		column   string
		want     string
		wantArgs int
	}{
		{sqlite3Dialect, "", "SELECT last_insert_rowid()", 0},
		{mysqlDialect, "id", "SELECT LAST_INSERT_ID()", 0},
		{postgresDialect, "", "SELECT lastval()", 0},
		{postgresDialect, "users_id_seq", "SELECT currval($1)", 1},
		{sqlserverDialect, "users", "SELECT CAST(IDENT_CURRENT(@p1) AS BIGINT)", 1},
	}

	for _, tt := range tests {
		t.Run(tt.d.name+"/"+tt.column, func(t *testing.T) {
			query, args := tt.d.lastInsertID(tt.column)
			if query != tt.want || len(args) != tt.wantArgs {
				t.Errorf("lastInsertID(%q) = %q, %v", tt.column, query, args)
			}
		})
	}
}

func TestNativeErrorFallback(t *testing.T) {
	for _, d := range dialects {
		if _, _, ok := d.nativeError(errors.New("plain")); ok {
			t.Errorf("%s: nativeError(plain) ok = true", d.name)
		}
	}
}

func TestDialectsRegistered(t *testing.T) {
	registered := dbal.Drivers()
	for _, d := range dialects {
		found := false
		for _, name := range registered {
			if name == d.name {
				found = true
			}
		}
		if !found {
			t.Errorf("dialect %s not registered with dbal", d.name)
		}
	}
}
