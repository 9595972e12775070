// Package logging provides structured logging for the replay observer.
//
// This package wraps Go's standard log/slog package so the bridge, the
// broker client and the CLI all log with the same handler and fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("bridge connected", "broker", cfg.MQTT.BrokerAddress())
//
// # Security
//
// Never log broker passwords or InfluxDB tokens.
package logging
