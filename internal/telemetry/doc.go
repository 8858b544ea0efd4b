// Package telemetry turns dbal connection events into logs, metrics,
// time-series points and MQTT messages.
//
// Each sink is a dbal.Observer; Fanout combines them:
//
//	obs := telemetry.Fanout(
//	    telemetry.Log(logger),
//	    telemetry.Prometheus(collector),
//	    telemetry.Influx(influxClient),
//	    publisher, // *telemetry.MQTTPublisher
//	)
//	conn, err := dbal.Open(ctx, driver, cfg, attrs, dbal.WithObserver(obs))
//
// Observers run on the goroutine that issued the database call. The MQTT
// publisher hands events to its own goroutine so a slow broker never stalls
// a query.
package telemetry
