package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is an observation time as sent by firmware: an RFC 3339 string
// or a number of Unix milliseconds. null and "" decode to the zero value.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}

	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: want RFC 3339 string or unix milliseconds", data)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

// ptr returns nil for the zero timestamp.
func (t Timestamp) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// LevelPayload is the body of bins/+/level.
type LevelPayload struct {
	BinID        string    `json:"bin_id"`
	ClientIDMQTT string    `json:"client_id_mqtt"`
	Type         string    `json:"type"`
	LevelPercent *float64  `json:"level_percent"`
	Timestamp    Timestamp `json:"timestamp"`
}

// ColorPayload is the body of devices/+/color.
type ColorPayload struct {
	ClientIDMQTT   string    `json:"client_id_mqtt"`
	Classification string    `json:"classification"`
	Confidence     float64   `json:"confidence"`
	RGB            []int     `json:"rgb"`
	Timestamp      Timestamp `json:"timestamp"`
}

// ProximityPayload is the body of devices/+/proximity.
type ProximityPayload struct {
	ClientIDMQTT string    `json:"client_id_mqtt"`
	DistanceCM   *float64  `json:"distance_cm"`
	Trigger      bool      `json:"trigger"`
	Timestamp    Timestamp `json:"timestamp"`
}

// StatusPayload is the body of devices/+/status and devices/+/heartbeat.
type StatusPayload struct {
	Status       string    `json:"status"`
	ClientIDMQTT string    `json:"client_id_mqtt"`
	Timestamp    Timestamp `json:"timestamp"`
}

// decode unmarshals a routed payload into v.
func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return nil
}
