//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/smartbin-core/internal/infrastructure/config"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host: "127.0.0.1",
			Port: 1883,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// TestIntegration_MessageRoundtrip verifies pub/sub and the message log end-to-end.
func TestIntegration_MessageRoundtrip(t *testing.T) {
	cfg := integrationConfig()

	pubClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	subClient, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	if pubClient.ClientID() == subClient.ClientID() {
		t.Fatalf("generated client ids collide: %s", pubClient.ClientID())
	}

	topic := Topics{}.BinLevel("int-device-plastic")
	expected := `{"level_percent":42.5}`

	received := make(chan string, 1)
	var once sync.Once

	err = subClient.Subscribe(Topics{}.AllBinLevels(), 1, func(_ string, p []byte) error {
		once.Do(func() {
			received <- string(p)
		})
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := pubClient.Publish(topic, []byte(expected)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg != expected {
			t.Errorf("Received = %q, want %q", msg, expected)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for message")
	}

	last, ok := subClient.LastMessage(topic)
	if !ok || last.Payload != expected {
		t.Errorf("LastMessage() = %+v, %v", last, ok)
	}
}

// TestIntegration_SubscriptionTracking verifies subscriptions are tracked.
func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := Topics{}.DefaultTelemetry()
	if err := client.SubscribeAll(topics, func(string, []byte) error { return nil }); err != nil {
		t.Fatalf("SubscribeAll() error = %v", err)
	}
	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}
