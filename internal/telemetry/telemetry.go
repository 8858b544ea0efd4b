package telemetry

import (
	"errors"
	"time"

	"github.com/nerrad567/graydb/internal/dbal"
	"github.com/nerrad567/graydb/internal/infrastructure/influxdb"
)

// Fanout forwards every event to each non-nil observer in order.
func Fanout(observers ...dbal.Observer) dbal.Observer {
	active := make([]dbal.Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			active = append(active, o)
		}
	}
	return dbal.ObserverFunc(func(e dbal.Event) {
		for _, o := range active {
			o.Observe(e)
		}
	})
}

// DebugLogger is the logging surface Log needs.
type DebugLogger interface {
	Debug(msg string, args ...any)
}

// Log writes every event at debug level. Failures are reported separately
// by the connection according to its error mode.
func Log(logger DebugLogger) dbal.Observer {
	return dbal.ObserverFunc(func(e dbal.Event) {
		args := []any{
			"driver", e.Driver,
			"op", e.Op,
			"duration", e.Duration,
			"rows", e.Rows,
		}
		if e.Query != "" {
			args = append(args, "query", e.Query)
		}
		if e.Err != nil {
			args = append(args, "errno", dbal.CodeOf(e.Err), "error", e.Err)
		}
		logger.Debug("database operation", args...)
	})
}

// Recorder is the metrics surface Prometheus feeds.
// Satisfied by *metrics.Collector.
type Recorder interface {
	Record(driver, op string, d time.Duration, rows int64, failed bool)
}

// Prometheus counts every event in r.
func Prometheus(r Recorder) dbal.Observer {
	return dbal.ObserverFunc(func(e dbal.Event) {
		r.Record(e.Driver, e.Op, e.Duration, e.Rows, e.Err != nil)
	})
}

// StatementWriter is the time-series surface Influx feeds.
// Satisfied by *influxdb.Client.
type StatementWriter interface {
	WriteStatement(influxdb.Statement)
}

// Influx writes one point per event. The writer batches, so Observe does
// not block on the network.
func Influx(w StatementWriter) dbal.Observer {
	return dbal.ObserverFunc(func(e dbal.Event) {
		w.WriteStatement(influxdb.Statement{
			Driver:   e.Driver,
			Op:       e.Op,
			Duration: e.Duration,
			Rows:     e.Rows,
			Failed:   e.Err != nil,
			At:       time.Now(),
		})
	})
}

// Message is the JSON payload published for each event.
type Message struct {
	Driver     string  `json:"driver"`
	Op         string  `json:"op"`
	Query      string  `json:"query,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Rows       int64   `json:"rows"`
	Errno      int     `json:"errno,omitempty"`
	SQLState   string  `json:"sqlstate,omitempty"`
	Error      string  `json:"error,omitempty"`
	Timestamp  string  `json:"timestamp"`
}

// NewMessage converts an event into its published form.
func NewMessage(e dbal.Event, at time.Time) Message {
	m := Message{
		Driver:     e.Driver,
		Op:         e.Op,
		Query:      e.Query,
		DurationMS: float64(e.Duration) / float64(time.Millisecond),
		Rows:       e.Rows,
		Timestamp:  at.UTC().Format(time.RFC3339Nano),
	}
	if e.Err != nil {
		m.Error = e.Err.Error()
		m.Errno = dbal.CodeOf(e.Err)
		if info, ok := errorInfo(e.Err); ok {
			m.SQLState = info.SQLState
		}
	}
	return m
}

func errorInfo(err error) (dbal.ErrorInfo, bool) {
	var e *dbal.Error
	if errors.As(err, &e) {
		return e.Info(), true
	}
	return dbal.ErrorInfo{}, false
}
