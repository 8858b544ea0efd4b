// Package influxdb records graydb statement timings in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health checks.
//
// # Measurement
//
//	dbal_statements,driver=sqlite3,op=exec,result=ok,service=graydb duration_ms=0.42,rows=1i
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteStatement(influxdb.Statement{Driver: "sqlite3", Op: "exec", Duration: d, Rows: n})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
//
// # Error Handling
//
// Writes are non-blocking; batch errors reach the SetOnError callback.
// Connection and health check errors are returned directly.
package influxdb
