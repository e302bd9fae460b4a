package device

import "time"

// Status is the connectivity state of a device as last reported by telemetry.
type Status string

const (
	// StatusUnknown is the initial status. A device never returns to it.
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Default compartment types created with every device.
const (
	BinTypePlastic  = "plastic"
	BinTypeAluminum = "aluminum"
)

// KnownBinTypes is the fixed enumeration of compartment types.
var KnownBinTypes = []string{BinTypePlastic, BinTypeAluminum}

// DefaultModel is the hardware model recorded when none is given.
const DefaultModel = "esp8266"

// Well-known metadata keys written by the state updater.
const (
	MetaLastUpdate       = "last_update"
	MetaLastStatusUpdate = "last_status_update"
)

// Meta holds free-form metadata. Updates are shallow merges, never
// replacements.
type Meta map[string]any

// Device is a physical smart-bin unit owned by exactly one area.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	AreaID string `json:"area_id"`
	Model  string `json:"model"`
	Status Status `json:"status"`

	// ClientIDMQTT is the hardware correlation id carried in telemetry
	// topics. Optional; unique across devices when set.
	ClientIDMQTT *string `json:"client_id_mqtt,omitempty"`

	LastColor     *ColorObservation     `json:"last_color,omitempty"`
	LastProximity *ProximityObservation `json:"last_proximity,omitempty"`

	// LastSeen is when telemetry last resolved to this device.
	LastSeen *time.Time `json:"last_seen,omitempty"`

	// Bins lists the ids of the device's compartments.
	Bins []string `json:"bins"`

	Meta      Meta      `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ColorObservation is the most recent material classification.
type ColorObservation struct {
	Classification string    `json:"classification"`
	Confidence     float64   `json:"confidence"`
	RGB            []int     `json:"rgb"`
	Timestamp      time.Time `json:"ts"`
}

// ProximityObservation is the most recent distance reading.
type ProximityObservation struct {
	DistanceCM float64   `json:"distance_cm"`
	Trigger    bool      `json:"trigger"`
	Timestamp  time.Time `json:"ts"`
}

// Bin is a single waste compartment of a device.
type Bin struct {
	ID           string    `json:"id"`
	DeviceID     string    `json:"device_id"`
	Type         string    `json:"assigned_type"`
	LevelPercent float64   `json:"level_percent"`
	Meta         Meta      `json:"meta"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StatusPatch is a partial status update. Nil fields are left unchanged.
type StatusPatch struct {
	Status       *Status
	ClientIDMQTT *string
	Meta         Meta
}

// HasBin reports whether binID is listed on the device.
func (d *Device) HasBin(binID string) bool {
	for _, id := range d.Bins {
		if id == binID {
			return true
		}
	}
	return false
}

// CorrelationID returns the device's correlation id or "" when unset.
func (d *Device) CorrelationID() string {
	if d.ClientIDMQTT == nil {
		return ""
	}
	return *d.ClientIDMQTT
}

// DeepCopy creates an independent copy of the Device.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.Meta = Meta(deepCopyMap(d.Meta))
	if d.Bins != nil {
		cpy.Bins = append([]string(nil), d.Bins...)
	}
	if d.ClientIDMQTT != nil {
		id := *d.ClientIDMQTT
		cpy.ClientIDMQTT = &id
	}
	if d.LastColor != nil {
		c := *d.LastColor
		c.RGB = append([]int(nil), d.LastColor.RGB...)
		cpy.LastColor = &c
	}
	if d.LastProximity != nil {
		p := *d.LastProximity
		cpy.LastProximity = &p
	}
	return &cpy
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case Meta:
		return Meta(deepCopyMap(val))
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}
