// Package state applies partial updates to bins and devices.
//
// Every update is a single SQL statement, so concurrent writers from HTTP
// and MQTT race at the row level and the last applied write wins. No history
// is kept; each field holds the most recent observation only.
//
// Rejections are handled by call origin. HTTP callers receive the error and
// map it to a response. MQTT callers get nil back after the rejection has
// been logged, since there is nobody to answer on the telemetry path.
//
// Classify derives the fill-state category of a bin level. It is a pure
// function used on read paths and its result is never stored.
package state
