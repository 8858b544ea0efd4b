package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementStatements holds one point per database operation.
const MeasurementStatements = "dbal_statements"

// Statement describes one database operation to record.
type Statement struct {
	Driver   string
	Op       string
	Duration time.Duration
	Rows     int64
	Failed   bool
	At       time.Time
}

// WriteStatement records a database operation in the dbal_statements
// measurement. The write is non-blocking; points are batched and sent
// asynchronously. Nothing is written while disconnected.
//
// Tags: driver, op, result ("ok" or "error").
// Fields: duration_ms (float), rows (integer).
func (c *Client) WriteStatement(s Statement) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statementPoint(s))
}

func statementPoint(s Statement) *write.Point {
	result := "ok"
	if s.Failed {
		result = "error"
	}
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		MeasurementStatements,
		map[string]string{
			"driver": s.Driver,
			"op":     s.Op,
			"result": result,
		},
		map[string]interface{}{
			"duration_ms": float64(s.Duration) / float64(time.Millisecond),
			"rows":        s.Rows,
		},
		at,
	)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Example:
//
//	client.WritePoint("dbal_pool",
//	    map[string]string{"driver": "postgres"},
//	    map[string]interface{}{"open_connections": 1})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
