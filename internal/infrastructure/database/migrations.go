package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nerrad567/graydb/internal/dbal"
)

// MigrationsFS holds the migration files. It is set by the migrations
// package from an embed.FS; tests may substitute any fs.FS.
var MigrationsFS fs.FS

// MigrationsDir is the directory within MigrationsFS containing migration files.
var MigrationsDir = "."

// Migration is a single schema migration.
type Migration struct {
	// Version is YYYYMMDD_HHMMSS, taken from the filename.
	Version string

	// Name is the description part of the filename.
	Name string

	UpSQL   string
	DownSQL string
}

// MigrationRecord is a row of the schema_migrations table.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// Migrate applies all pending migrations through conn, oldest first.
//
// Each migration runs in its own transaction. If migration N fails,
// migrations before N stay committed, N is rolled back and nothing after N
// is attempted. Re-running Migrate after fixing the problem continues from N.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - conn: Connected database
//
// Returns:
//   - error: If any migration fails (that migration is rolled back)
func Migrate(ctx context.Context, conn *dbal.Conn) error {
	_, pending, err := MigrationStatus(ctx, conn)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := applyMigration(ctx, conn, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration.
//
// Returns:
//   - bool: false if nothing was applied
//   - error: If the rollback fails or the migration has no down SQL
func MigrateDown(ctx context.Context, conn *dbal.Conn) (bool, error) {
	if err := createMigrationsTable(ctx, conn); err != nil {
		return false, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return false, err
	}
	if len(applied) == 0 {
		return false, nil
	}
	latest := applied[len(applied)-1]

	migrations, err := loadMigrations()
	if err != nil {
		return false, fmt.Errorf("loading migrations: %w", err)
	}

	i := sort.Search(len(migrations), func(i int) bool {
		return migrations[i].Version >= latest.Version
	})
	if i == len(migrations) || migrations[i].Version != latest.Version {
		return false, fmt.Errorf("migration %s not found in filesystem", latest.Version)
	}
	migration := migrations[i]
	if strings.TrimSpace(migration.DownSQL) == "" {
		return false, fmt.Errorf("migration %s has no down SQL", latest.Version)
	}

	err = conn.Transact(ctx, func() error {
		if err := execScript(ctx, conn, migration.DownSQL); err != nil {
			return fmt.Errorf("executing down SQL: %w", err)
		}
		if _, err := conn.Exec(ctx,
			"DELETE FROM schema_migrations WHERE version = :version",
			dbal.Named{"version": migration.Version},
		); err != nil {
			return fmt.Errorf("removing migration record: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// MigrationStatus returns applied and pending migrations.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - conn: Connected database
//
// Returns:
//   - applied: Migrations recorded in schema_migrations, oldest first
//   - pending: Migrations found in MigrationsFS but not yet applied
//   - error: If status check fails
func MigrationStatus(ctx context.Context, conn *dbal.Conn) (applied []MigrationRecord, pending []Migration, err error) {
	if err := createMigrationsTable(ctx, conn); err != nil {
		return nil, nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err = appliedMigrations(ctx, conn)
	if err != nil {
		return nil, nil, err
	}

	migrations, err := loadMigrations()
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrations: %w", err)
	}

	appliedSet := make(map[string]struct{}, len(applied))
	for _, m := range applied {
		appliedSet[m.Version] = struct{}{}
	}
	for _, m := range migrations {
		if _, ok := appliedSet[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

func createMigrationsTable(ctx context.Context, conn *dbal.Conn) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(32) PRIMARY KEY,
			applied_at VARCHAR(64) NOT NULL
		)
	`)
	return err
}

func appliedMigrations(ctx context.Context, conn *dbal.Conn) ([]MigrationRecord, error) {
	stmt, err := conn.Query(ctx,
		"SELECT version, applied_at FROM schema_migrations ORDER BY version",
		dbal.FetchNum,
	)
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // rows are buffered

	var records []MigrationRecord
	for {
		row, err := stmt.Fetch()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading migration row: %w", err)
		}
		cols, ok := row.([]any)
		if !ok || len(cols) != 2 {
			return nil, fmt.Errorf("unexpected migration row %v", row)
		}
		r := MigrationRecord{Version: fmt.Sprint(cols[0])}
		// Format is controlled by applyMigration.
		r.AppliedAt, _ = time.Parse(time.RFC3339, fmt.Sprint(cols[1])) //nolint:errcheck // Format is controlled
		records = append(records, r)
	}
	return records, nil
}

func applyMigration(ctx context.Context, conn *dbal.Conn, m Migration) error {
	return conn.Transact(ctx, func() error {
		if err := execScript(ctx, conn, m.UpSQL); err != nil {
			return fmt.Errorf("executing SQL: %w", err)
		}
		if _, err := conn.Exec(ctx,
			"INSERT INTO schema_migrations (version, applied_at) VALUES (:version, :applied_at)",
			dbal.Named{
				"version":    m.Version,
				"applied_at": time.Now().UTC().Format(time.RFC3339),
			},
		); err != nil {
			return fmt.Errorf("recording migration: %w", err)
		}
		return nil
	})
}

// execScript runs a multi-statement script. Native prepares compile only
// the first statement, so the script is sent with prepares emulated.
func execScript(ctx context.Context, conn *dbal.Conn, script string) error {
	prev, had := conn.GetAttribute(dbal.AttrEmulatePrepares)
	conn.SetAttribute(dbal.AttrEmulatePrepares, true)
	defer func() {
		if had {
			conn.SetAttribute(dbal.AttrEmulatePrepares, prev)
		} else {
			conn.SetAttribute(dbal.AttrEmulatePrepares, false)
		}
	}()

	_, err := conn.Exec(ctx, script)
	return err
}

// migrationFileRE matches VERSION_NAME.(up|down).sql, VERSION being
// YYYYMMDD_HHMMSS.
var migrationFileRE = regexp.MustCompile(`^(\d{8}_\d{6})_(\w+)\.(up|down)\.sql$`)

// migrationFile is a parsed migration filename.
type migrationFile struct {
	version string
	name    string
	up      bool
}

// parseMigrationFile reports false for anything that is not a migration.
func parseMigrationFile(filename string) (migrationFile, bool) {
	m := migrationFileRE.FindStringSubmatch(filename)
	if m == nil {
		return migrationFile{}, false
	}
	return migrationFile{version: m[1], name: m[2], up: m[3] == "up"}, true
}

// loadMigrations reads every migration from MigrationsFS, oldest first.
// A down script without a matching up script is an error, as is a version
// used by two up scripts.
func loadMigrations() ([]Migration, error) {
	if MigrationsFS == nil {
		return nil, nil
	}

	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]*Migration)
	downs := make(map[string]string)
	for _, entry := range entries {
		f, ok := parseMigrationFile(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}

		body, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		if !f.up {
			downs[f.version] = string(body)
			continue
		}
		if _, dup := byVersion[f.version]; dup {
			return nil, fmt.Errorf("duplicate migration version %s", f.version)
		}
		byVersion[f.version] = &Migration{Version: f.version, Name: f.name, UpSQL: string(body)}
	}

	for version, down := range downs {
		m, ok := byVersion[version]
		if !ok {
			return nil, fmt.Errorf("down migration %s has no up migration", version)
		}
		m.DownSQL = down
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
