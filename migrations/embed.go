// Package migrations embeds the graydb schema migrations into the binary.
//
// Importing the package registers the embedded files with the database
// package, so migrate commands work without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/graydb/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
