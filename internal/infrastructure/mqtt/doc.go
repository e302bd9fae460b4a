// Package mqtt provides the broker session for SmartBin Core.
//
// This package manages:
//   - One connection to the broker with indefinite auto-reconnect
//   - Subscriptions that are restored on every reconnect
//   - Fire-and-forget publishing that fails fast when disconnected
//   - A last-message-by-topic log of inbound traffic
//   - Last Will and Testament (LWT) on smartbin/core/status
//
// # Architecture
//
// Sensing hardware publishes telemetry on <category>/<id>/<measurement>
// topics. The Client delivers those messages one at a time, in arrival
// order, to a single handler supplied by the telemetry package.
//
//	ESP devices → MQTT Broker → Client → telemetry.Router
//
// # Connectivity
//
// IsConnected requires both the connect callback state and an open network
// connection, so it does not report a stale true while paho is still
// backing off. Only the initial handshake in Connect has a timeout.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.SubscribeAll(cfg.MQTT.Topics, router.HandleMessage)
//
//	ok := client.Publish("devices/esp-01/command", []byte(`{"action":"reset"}`)) == nil
package mqtt
