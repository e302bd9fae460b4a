package mqtt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/smartbin-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang with the connection handling SmartBin needs.
//
// It owns one broker session, reconnects indefinitely with exponential
// backoff, restores every tracked subscription on each (re)connect, and keeps
// the most recent message received on each topic.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Message handlers run one at a time in arrival order.
type Client struct {
	client   pahomqtt.Client
	options  *pahomqtt.ClientOptions
	cfg      config.MQTTConfig
	clientID string

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// Callbacks for connection events (optional, set via SetOnConnect/SetOnDisconnect).
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	// logger for connection, error and panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex

	messages *messageLog
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked sequentially in arrival order. A slow handler delays
// every message behind it.
//
// Parameters:
//   - topic: The topic the message was received on (wildcards expanded)
//   - payload: The raw message payload (typically JSON)
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// clientFactory builds the underlying paho client. Tests substitute a fake.
type clientFactory func(*pahomqtt.ClientOptions) pahomqtt.Client

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament (LWT) on the core status topic
//  3. Sets up auto-reconnect with exponential backoff, retried indefinitely
//  4. Attempts initial connection with timeout
//
// Only the initial handshake is bounded. If it does not complete within the
// connect timeout, the background retry loop is stopped and
// ErrConnectionFailed is returned.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg, pahomqtt.NewClient)
	if err := c.connect(defaultConnectTimeout); err != nil {
		return nil, err
	}
	return c, nil
}

// newClient builds a Client without connecting it.
func newClient(cfg config.MQTTConfig, factory clientFactory) *Client {
	clientID := cfg.Broker.ClientID
	if clientID == "" {
		clientID = generateClientID()
	}

	opts := buildClientOptions(cfg, clientID)
	configureLWT(opts, clientID)

	c := &Client{
		cfg:           cfg,
		options:       opts,
		clientID:      clientID,
		subscriptions: make(map[string]subscription),
		messages:      newMessageLog(),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Info("mqtt reconnecting", "client_id", c.clientID)
		}
	})

	c.client = factory(opts)
	return c
}

// generateClientID returns a random "smartbin_<8 hex>" client id.
func generateClientID() string {
	return "smartbin_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (c *Client) connect(timeout time.Duration) error {
	token := c.client.Connect()
	if !token.WaitTimeout(timeout) {
		// Stop the retry loop started by SetConnectRetry.
		c.client.Disconnect(0)
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so the flag is set here as well.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()
	return nil
}

// ClientID returns the client id this session uses with the broker.
func (c *Client) ClientID() string {
	return c.clientID
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	if logger := c.getLogger(); logger != nil {
		logger.Info("mqtt connected", "client_id", c.clientID, "subscriptions", c.SubscriptionCount())
	}

	c.restoreSubscriptions()
	c.publishOnlineStatus()

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	if logger := c.getLogger(); logger != nil {
		logger.Warn("mqtt connection lost", "client_id", c.clientID, "error", err)
	}

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
// It runs inside the paho connect callback, so it must not wait on tokens.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		token := c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
		c.watchToken(token, "mqtt resubscribe failed", "topic", sub.topic)
	}
}

// publishOnlineStatus publishes the core's retained online status.
func (c *Client) publishOnlineStatus() {
	token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, buildOnlinePayload(c.clientID))
	c.watchToken(token, "mqtt status publish failed", "topic", Topics{}.SystemStatus())
}

// watchToken logs the token's error once it completes, without blocking
// the caller.
func (c *Client) watchToken(token pahomqtt.Token, msg string, args ...any) {
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn(msg, append(args, "error", err)...)
			}
		}
	}()
}

// Close gracefully disconnects from the MQTT broker.
//
// It publishes a graceful offline status (different from the LWT crash
// status), then disconnects with a quiesce period for in-flight messages.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, buildOfflinePayload(c.clientID))
		token.WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// HealthCheck reports ErrNotConnected when the transport is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the session is usable right now. It requires
// both the connect callback state and an open network connection, so it
// turns false as soon as paho detects the transport is gone.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnectionOpen()
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for connection, error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler records the message, then runs handler with panic recovery
// and optional error logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.messages.record(msg.Topic(), msg.Payload(), time.Now())

		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
