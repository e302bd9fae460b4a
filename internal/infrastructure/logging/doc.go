// Package logging provides structured logging for SmartBin Core.
//
// It wraps log/slog so every component logs with the same shape:
// JSON in production, text for development, with service and version
// attached to each entry.
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("telemetry").Warn("payload dropped", "topic", topic)
//
// Never log broker passwords.
package logging
