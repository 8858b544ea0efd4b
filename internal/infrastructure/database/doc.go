// Package database is the database/sql backend of the dbal driver contract.
//
// This package provides:
//   - One dbal.Driver implementation (DB) shared by five dialects
//   - Dialects sqlite3 (mattn/go-sqlite3), sqlite (modernc.org/sqlite),
//     mysql (go-sql-driver/mysql), postgres (lib/pq) and sqlserver
//     (denisenkom/go-mssqldb)
//   - Positional (?) and named (:name) placeholders, rewritten to the
//     backend's bind style
//   - Literal quoting and native error codes per dialect
//   - Schema migrations that run through a dbal.Conn
//
// Importing the package registers every dialect with dbal:
//
//	import _ "github.com/nerrad567/graydb/internal/infrastructure/database"
//
//	conn, err := dbal.Open(ctx, "sqlite3", dbal.Config{Path: "/var/lib/graydb/graydb.db"}, nil)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	if err := database.Migrate(ctx, conn); err != nil {
//	    return err
//	}
//
// Connection Model:
//
// Each DB owns one native connection reserved from a pool capped at a single
// connection. Result sets are read completely at Execute, so RowCount is
// exact for SELECT statements and the connection is never left with an open
// cursor. Nested transactions are not supported.
//
// A statement is treated as a read when it starts with a row-returning
// keyword, when a WITH clause leads into SELECT, or when it carries
// RETURNING or OUTPUT INSERTED/DELETED. Literals and comments are ignored.
//
// Prepare rejects invalid SQL with dbal.ErrPrepare. modernc.org/sqlite only
// records the SQL at prepare, so the sqlite dialect compiles an EXPLAIN of
// the statement there. Statement lists are still checked at Execute.
//
// Security Considerations:
//   - Values reach the backend as bound parameters unless the caller embeds
//     Quote output in SQL text
//   - SQLite database files are restricted to 0600 (owner read/write only)
//
// Migration Strategy:
//
// Migrations are additive-only:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Each migration file has both .up.sql and .down.sql
//   - Filenames are YYYYMMDD_HHMMSS_description.{up,down}.sql
package database
