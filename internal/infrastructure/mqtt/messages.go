package mqtt

import (
	"maps"
	"sync"
	"time"
)

// ReceivedMessage is the most recent message seen on one topic.
type ReceivedMessage struct {
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	ReceivedAt time.Time `json:"timestamp"`
}

// messageLog keeps the last message per concrete topic.
type messageLog struct {
	mu   sync.RWMutex
	last map[string]ReceivedMessage
}

func newMessageLog() *messageLog {
	return &messageLog{last: make(map[string]ReceivedMessage)}
}

func (l *messageLog) record(topic string, payload []byte, at time.Time) {
	l.mu.Lock()
	l.last[topic] = ReceivedMessage{Topic: topic, Payload: string(payload), ReceivedAt: at.UTC()}
	l.mu.Unlock()
}

// LastMessage returns the most recent message received on topic.
func (c *Client) LastMessage(topic string) (ReceivedMessage, bool) {
	c.messages.mu.RLock()
	defer c.messages.mu.RUnlock()
	msg, ok := c.messages.last[topic]
	return msg, ok
}

// Messages returns a snapshot of the last message on every topic seen so far.
func (c *Client) Messages() map[string]ReceivedMessage {
	c.messages.mu.RLock()
	defer c.messages.mu.RUnlock()
	return maps.Clone(c.messages.last)
}
