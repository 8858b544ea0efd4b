package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/graydb/internal/dbal"
	"github.com/nerrad567/graydb/internal/infrastructure/config"
	_ "github.com/nerrad567/graydb/internal/infrastructure/database" // registers the SQL drivers
	"github.com/nerrad567/graydb/internal/infrastructure/logging"
	"github.com/nerrad567/graydb/internal/telemetry"
	_ "github.com/nerrad567/graydb/migrations" // embeds the schema migrations
)

// configEnv names the config file when --config is not given.
const configEnv = "GRAYDB_CONFIG"

// app carries the state shared by every subcommand.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	configPath string
}

// NewRootCommand builds the graydb command tree writing to the given streams.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	rc := &cobra.Command{
		Use:   "graydb",
		Short: "graydb runs SQL through a uniform driver layer.",
		Long: `graydb runs SQL through a uniform driver layer.

The same commands work against sqlite3, sqlite, mysql, postgres and
sqlserver. The backend and its attributes come from the configuration
file; without one an SQLite database under ./data is used.
`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rc.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Configuration file to read from (default $"+configEnv+", then built-in defaults).")

	rc.AddCommand(newExecCommand(a))
	rc.AddCommand(newQueryCommand(a))
	rc.AddCommand(newQuoteCommand(a))
	rc.AddCommand(newMigrateCommand(a))
	rc.AddCommand(newServeCommand(a))
	rc.AddCommand(newEventsCommand(a))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// loadConfig reads --config, then $GRAYDB_CONFIG, falling back to defaults.
func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		cfg, err := config.Default()
		if err != nil {
			return nil, fmt.Errorf("loading default config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// logger writes to the command's stderr so stdout carries only results.
func (a *app) logger(cfg *config.Config) *logging.Logger {
	return logging.NewWithWriter(a.stderr, cfg.Logging, version)
}

// open connects to the configured database. Every operation is logged at
// debug level and forwarded to the extra observers.
//
// Parameters:
//   - ctx: Context for the connect timeout
//   - cfg: Loaded configuration
//   - log: Logger for failures and operation traces
//   - observers: Additional telemetry sinks (nil entries are skipped)
//
// Returns:
//   - *dbal.Conn: Connected database
//   - error: If the configuration is invalid or the backend is unreachable
func (a *app) open(ctx context.Context, cfg *config.Config, log *logging.Logger, observers ...dbal.Observer) (*dbal.Conn, error) {
	dbCfg, attrs, err := cfg.Database.DBAL()
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	all := append([]dbal.Observer{telemetry.Log(log)}, observers...)
	conn, err := dbal.Open(ctx, dbCfg.Driver, dbCfg, attrs,
		dbal.WithLogger(log.ForDriver(cfg.Database.Driver)),
		dbal.WithObserver(telemetry.Fanout(all...)),
	)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", dbCfg.Driver, err)
	}
	return conn, nil
}

// withConn loads the configuration, opens the database and runs fn.
func (a *app) withConn(ctx context.Context, fn func(*dbal.Conn) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	log := a.logger(cfg)

	conn, err := a.open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	return fn(conn)
}

// bindArgs passes positional command line values as statement parameters.
func bindArgs(args []string) []any {
	params := make([]any, len(args))
	for i, a := range args {
		params[i] = a
	}
	return params
}
