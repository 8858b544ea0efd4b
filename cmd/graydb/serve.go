package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/graydb/internal/api"
	"github.com/nerrad567/graydb/internal/dbal"
	"github.com/nerrad567/graydb/internal/infrastructure/config"
	"github.com/nerrad567/graydb/internal/infrastructure/database"
	"github.com/nerrad567/graydb/internal/infrastructure/influxdb"
	"github.com/nerrad567/graydb/internal/infrastructure/logging"
	"github.com/nerrad567/graydb/internal/infrastructure/metrics"
	"github.com/nerrad567/graydb/internal/infrastructure/mqtt"
	"github.com/nerrad567/graydb/internal/session"
	"github.com/nerrad567/graydb/internal/telemetry"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server and session garbage collection",
		Long: `Run the admin HTTP server and session garbage collection until
interrupted.

Pending migrations are applied on start. Statement telemetry goes to
Prometheus, MQTT and InfluxDB as enabled in the configuration.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve is the long-running application, separated from the command for
// testability. It returns nil on a clean shutdown after ctx is cancelled.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func (a *app) serve(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	log := a.logger(cfg)
	log.Info("starting graydb",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	var observers []dbal.Observer
	checks := make(map[string]api.HealthChecker)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New(cfg.Metrics)
		observers = append(observers, telemetry.Prometheus(collector))
	}

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(ctx, cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		publisher := telemetry.NewMQTTPublisher(mqttClient, log, 0)
		defer func() {
			publisher.Close()
			if dropped := publisher.Dropped(); dropped > 0 {
				log.Warn("MQTT events dropped", "count", dropped)
			}
			log.Info("disconnecting from MQTT", "reconnects", mqttClient.Reconnects())
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		observers = append(observers, publisher)
		checks["mqtt"] = mqttClient
	}

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		defer func() {
			log.Info("closing InfluxDB connection", "failed_writes", influxClient.FailedWrites())
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		observers = append(observers, telemetry.Influx(influxClient))
		checks["influxdb"] = influxClient
	}

	conn, err := a.open(ctx, cfg, log, observers...)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := conn.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "driver", conn.Name())

	if migrateErr := database.Migrate(ctx, conn); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	guard := dbal.NewGuard(conn)

	sessions, err := newSessionHandler(cfg.Session, conn)
	if err != nil {
		return err
	}
	if openErr := sessions.Open(cfg.Session.SavePath, cfg.Session.Name); openErr != nil {
		return fmt.Errorf("opening session handler: %w", openErr)
	}
	defer sessions.Close() //nolint:errcheck // Handlers hold no resources needing flush

	deps := api.Deps{
		Config:  cfg.API,
		Logger:  log,
		DB:      guard,
		Checks:  checks,
		Version: version,
	}
	if collector != nil {
		deps.Metrics = collector.Handler()
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	gcDone := make(chan struct{})
	go func() {
		defer close(gcDone)
		runSessionGC(ctx, guard, sessions, cfg.Session.GCPeriod(), cfg.Session.Lifetime(), log)
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	<-gcDone

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Session handler
	// 3. Database
	// 4. InfluxDB (if enabled)
	// 5. MQTT (if enabled)
	return nil
}

// newSessionHandler builds the configured session handler.
func newSessionHandler(cfg config.SessionConfig, conn *dbal.Conn) (session.Handler, error) {
	switch cfg.Handler {
	case "db":
		h, err := session.NewDBHandler(conn, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("creating database session handler: %w", err)
		}
		return h, nil
	case "file":
		return session.NewFileHandler(), nil
	}
	return nil, fmt.Errorf("unknown session handler %q", cfg.Handler)
}

// runSessionGC collects expired sessions every interval until ctx is done.
// A non-positive interval disables collection.
func runSessionGC(ctx context.Context, guard *dbal.Guard, h session.Handler, interval, lifetime time.Duration, log *logging.Logger) {
	if interval <= 0 {
		log.Info("session garbage collection disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := collectSessions(ctx, guard, h, lifetime)
			if err != nil {
				log.Error("session garbage collection failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("expired sessions removed", "count", n)
			}
		}
	}
}

// collectSessions runs one GC pass. The database handler shares the
// connection with the API server, so it runs under the guard.
func collectSessions(ctx context.Context, guard *dbal.Guard, h session.Handler, lifetime time.Duration) (int64, error) {
	if _, shared := h.(*session.DBHandler); !shared {
		return h.GC(ctx, lifetime)
	}

	var n int64
	err := guard.Do(func(*dbal.Conn) error {
		var gcErr error
		n, gcErr = h.GC(ctx, lifetime)
		return gcErr
	})
	return n, err
}
