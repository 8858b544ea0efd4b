// Package mqtt publishes graydb database events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS guarantees
//   - Subscriptions with wildcard support, restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
//	graydb/system/status     retained {"status":"online"|"offline",...}
//	graydb/<driver>/events   one JSON message per database operation
//
// The telemetry package turns dbal events into messages; the CLI's events
// command subscribes to graydb/+/events and prints them.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) for any broker outside localhost
//   - Event payloads carry SQL text; keep the broker ACL tight
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.Events("sqlite3"), event)
package mqtt
