package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/smartbin-core/internal/infrastructure/mqtt"
)

// publishRequest is the body of POST /mqtt/publish. Message may be a JSON
// string, published verbatim, or any other JSON value, published as its
// encoding.
type publishRequest struct {
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// handleMQTTMessages returns the most recent message seen on each topic.
func (s *Server) handleMQTTMessages(w http.ResponseWriter, _ *http.Request) {
	connected := false
	messages := map[string]mqtt.ReceivedMessage{}
	if s.mqtt != nil {
		connected = s.mqtt.IsConnected()
		messages = s.mqtt.Messages()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": connected,
		"messages":  messages,
	})
}

// handleMQTTPublish publishes one message. Publishing never queues: when the
// broker is unreachable the response reports success=false immediately.
func (s *Server) handleMQTTPublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !decodeBody(w, r, &req) {
		return
	}
	payload := publishPayload(req.Message)
	if req.Topic == "" || len(payload) == 0 {
		writeBadRequest(w, "topic and message are required")
		return
	}

	success := false
	message := "broker not configured"
	if s.mqtt != nil {
		if err := s.mqtt.Publish(req.Topic, payload); err != nil {
			s.logger.Warn("manual publish failed", "topic", req.Topic, "error", err)
			message = err.Error()
		} else {
			success = true
			message = "published"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": success,
		"topic":   req.Topic,
		"message": message,
	})
}

// publishPayload unwraps a JSON string message. null and "" yield nil.
func publishPayload(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []byte(s)
	}
	return raw
}
