package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends payload to topic with the configured QoS, not retained.
//
// There is no outbound queue and no retry. If the client is disconnected
// ErrNotConnected is returned immediately. Otherwise the message is handed
// to paho and Publish returns without waiting for the broker's
// acknowledgement; a delivery failure reported later is only logged.
//
// Example:
//
//	err := client.Publish(mqtt.Topics{}.BinLevel("device-abc-plastic"), []byte(`{"level_percent":40}`))
func (c *Client) Publish(topic string, payload []byte) error {
	return c.publish(topic, payload, byte(c.cfg.QoS), false)
}

// PublishRetained is Publish with the retained flag set.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.publish(topic, payload, byte(c.cfg.QoS), true)
}

func (c *Client) publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	c.watchToken(token, "mqtt publish failed", "topic", topic)
	return nil
}
