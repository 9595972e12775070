// Package influxdb records replay delivery metrics in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring.
//
// # Measurements
//
//   - replay_messages: one point per message a bridge handled, tagged with
//     topic, kind (started, event, finished) and outcome (published,
//     dropped, failed); fields count and payload_bytes.
//   - replay_sessions: one point per bridge run with the final counters.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB,
//	    influxdb.WithDefaultTag("source", "match-42.ndjson"),
//	    influxdb.WithErrorHandler(func(err error) { log.Error("influx write", "error", err) }),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bridge, err := observer.Dial(cfg.MQTT, observer.WithRecorder[replay.Event](client))
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered to the
// WithErrorHandler callback. Close flushes what is still buffered.
// Connection and health check errors are returned directly.
package influxdb
