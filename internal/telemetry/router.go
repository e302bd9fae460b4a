package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/smartbin-core/internal/infrastructure/mqtt"
)

// Kind is the closed set of telemetry kinds the Router dispatches.
type Kind int

const (
	KindLevel Kind = iota + 1
	KindColor
	KindProximity
	KindStatus
)

// String returns the lower-case kind name used in log fields.
func (k Kind) String() string {
	switch k {
	case KindLevel:
		return "level"
	case KindColor:
		return "color"
	case KindProximity:
		return "proximity"
	case KindStatus:
		return "status"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is a routed telemetry message.
type Message struct {
	Topic string
	Kind  Kind

	// Segment is the value captured by the pattern's "+" segment.
	Segment string

	Payload json.RawMessage
}

// Dispatcher handles routed messages. The Ingestor implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message)
}

// OverrideFunc handles every message on one exact topic.
type OverrideFunc func(ctx context.Context, topic string, payload json.RawMessage)

// route is one compiled pattern.
type route struct {
	pattern  string
	segments []string
	wildcard int
	kind     Kind
}

// match reports whether topic matches and returns the captured segment.
func (r route) match(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != len(r.segments) {
		return "", false
	}
	for i, seg := range r.segments {
		if i == r.wildcard {
			continue
		}
		if parts[i] != seg {
			return "", false
		}
	}
	captured := parts[r.wildcard]
	if captured == "" {
		return "", false
	}
	return captured, true
}

// RouteSpec pairs a topic pattern with the kind it dispatches.
type RouteSpec struct {
	Pattern string
	Kind    Kind
}

// DefaultRoutes returns the built-in pattern list in match order.
func DefaultRoutes() []RouteSpec {
	t := mqtt.Topics{}
	return []RouteSpec{
		{t.AllBinLevels(), KindLevel},
		{t.DeviceColor("+"), KindColor},
		{t.DeviceProximity("+"), KindProximity},
		{t.DeviceHeartbeat("+"), KindStatus},
		{t.DeviceStatus("+"), KindStatus},
	}
}

// Router maps (topic, payload) pairs to a handler.
//
// Overrides are consulted first and, when present, handle the message
// exclusively. Otherwise routes are tried in registration order and the
// first match is dispatched.
type Router struct {
	dispatcher Dispatcher
	routes     []route

	overrides   map[string]OverrideFunc
	overridesMu sync.RWMutex

	logger Logger
}

// NewRouter creates a router with the default routes.
func NewRouter(d Dispatcher) *Router {
	r := &Router{
		dispatcher: d,
		overrides:  make(map[string]OverrideFunc),
		logger:     noopLogger{},
	}
	for _, def := range DefaultRoutes() {
		if err := r.AddRoute(def.Pattern, def.Kind); err != nil {
			panic(err) // built-in patterns are constant
		}
	}
	return r
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// AddRoute appends a pattern. It must contain exactly one "+" segment and
// no "#". Routes are not safe to add while messages are being routed.
func (r *Router) AddRoute(pattern string, kind Kind) error {
	segments := strings.Split(pattern, "/")
	wildcard := -1
	for i, seg := range segments {
		switch {
		case seg == "+":
			if wildcard >= 0 {
				return fmt.Errorf("%w: %q has more than one '+'", ErrInvalidPattern, pattern)
			}
			wildcard = i
		case strings.ContainsAny(seg, "+#"):
			return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
	}
	if wildcard < 0 {
		return fmt.Errorf("%w: %q has no '+' segment", ErrInvalidPattern, pattern)
	}

	r.routes = append(r.routes, route{pattern: pattern, segments: segments, wildcard: wildcard, kind: kind})
	return nil
}

// RegisterOverride installs fn as the exclusive handler for topic.
func (r *Router) RegisterOverride(topic string, fn OverrideFunc) {
	r.overridesMu.Lock()
	r.overrides[topic] = fn
	r.overridesMu.Unlock()
	r.logger.Debug("telemetry override registered", "topic", topic)
}

// Route handles one inbound message. Nothing is returned: every failure is
// logged and the message dropped.
func (r *Router) Route(ctx context.Context, topic string, payload []byte) {
	if !json.Valid(payload) {
		r.logger.Warn("dropping telemetry with non-JSON payload", "topic", topic, "bytes", len(payload))
		return
	}
	raw := json.RawMessage(payload)

	r.overridesMu.RLock()
	override, ok := r.overrides[topic]
	r.overridesMu.RUnlock()
	if ok {
		override(ctx, topic, raw)
		return
	}

	for _, rt := range r.routes {
		segment, ok := rt.match(topic)
		if !ok {
			continue
		}
		if !isObject(payload) {
			r.logger.Warn("dropping telemetry that is not a JSON object", "topic", topic, "bytes", len(payload))
			return
		}
		r.dispatcher.Dispatch(ctx, Message{Topic: topic, Kind: rt.kind, Segment: segment, Payload: raw})
		return
	}

	r.logger.Debug("no route for topic", "topic", topic)
}

// isObject reports whether a valid JSON payload is an object.
func isObject(payload []byte) bool {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// HandleMessage adapts Route to mqtt.MessageHandler.
func (r *Router) HandleMessage(topic string, payload []byte) error {
	r.Route(context.Background(), topic, payload)
	return nil
}

// RegisterLogOverrides installs overrides that only log the payload. Used
// for the literal test topics.
func (r *Router) RegisterLogOverrides(topics []string) {
	for _, topic := range topics {
		r.RegisterOverride(topic, func(_ context.Context, topic string, payload json.RawMessage) {
			r.logger.Info("test topic message", "topic", topic, "payload", string(payload))
		})
	}
}
