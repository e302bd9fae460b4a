// Package api implements the HTTP REST API and WebSocket server for SmartBin Core.
//
// This package provides:
//   - REST endpoints for area, device and bin lifecycle operations
//   - Manual state updates (level, status, color, proximity) with the same
//     validation the MQTT path applies
//   - A WebSocket hub that relays state change events to dashboards
//   - MQTT passthrough: recent messages and manual publish
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Handlers are thin. Lifecycle requests go to the lifecycle coordinator and
// state writes go to the state updater with HTTP origin, so validation
// failures come back as errors rather than being logged and dropped.
// Sentinel errors from the domain packages are mapped to status codes in
// one place (writeDomainError).
//
// # Graceful Degradation
//
// The server operates without MQTT. Reads, writes and WebSocket connections
// work; only publish fails, and it reports failure in the response body.
package api
