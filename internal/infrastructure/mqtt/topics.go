package mqtt

import "fmt"

// Topic prefixes.
const (
	// TopicPrefixBins is the base for compartment telemetry.
	TopicPrefixBins = "bins"

	// TopicPrefixDevices is the base for device telemetry.
	TopicPrefixDevices = "devices"

	// TopicPrefixCore is the base for topics published by the core itself.
	TopicPrefixCore = "smartbin/core"
)

// Telemetry measurements, the last segment of a telemetry topic.
const (
	MeasurementLevel     = "level"
	MeasurementHeartbeat = "heartbeat"
	MeasurementStatus    = "status"
	MeasurementColor     = "color"
	MeasurementProximity = "proximity"
)

// Topics provides builders for SmartBin MQTT topics.
// Telemetry topics have the shape <category>/<id>/<measurement>.
//
//	topics := mqtt.Topics{}
//	topics.DeviceColor("esp-01") // "devices/esp-01/color"
type Topics struct{}

// =============================================================================
// Telemetry Topics
// =============================================================================

// BinLevel returns the level topic of one compartment.
//
// Example: bins/device-abc-plastic/level
func (Topics) BinLevel(binID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixBins, binID, MeasurementLevel)
}

// DeviceHeartbeat returns the heartbeat topic of a device.
//
// Example: devices/esp-01/heartbeat
func (Topics) DeviceHeartbeat(clientID string) string {
	return deviceTopic(clientID, MeasurementHeartbeat)
}

// DeviceStatus returns the status topic of a device.
//
// Example: devices/esp-01/status
func (Topics) DeviceStatus(clientID string) string {
	return deviceTopic(clientID, MeasurementStatus)
}

// DeviceColor returns the color classification topic of a device.
//
// Example: devices/esp-01/color
func (Topics) DeviceColor(clientID string) string {
	return deviceTopic(clientID, MeasurementColor)
}

// DeviceProximity returns the proximity topic of a device.
//
// Example: devices/esp-01/proximity
func (Topics) DeviceProximity(clientID string) string {
	return deviceTopic(clientID, MeasurementProximity)
}

func deviceTopic(clientID, measurement string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixDevices, clientID, measurement)
}

// =============================================================================
// Core Topics
// =============================================================================

// SystemStatus returns the retained online/offline topic of the core.
//
// Example: smartbin/core/status
func (Topics) SystemStatus() string {
	return TopicPrefixCore + "/status"
}

// =============================================================================
// Wildcard Subscriptions
// =============================================================================

// AllBinLevels returns the subscription for every compartment level.
func (Topics) AllBinLevels() string {
	return Topics{}.BinLevel("+")
}

// AllDeviceTelemetry returns the subscriptions for every device measurement.
func (Topics) AllDeviceTelemetry() []string {
	t := Topics{}
	return []string{
		t.DeviceHeartbeat("+"),
		t.DeviceStatus("+"),
		t.DeviceColor("+"),
		t.DeviceProximity("+"),
	}
}

// DefaultTelemetry returns the default telemetry subscription set.
func (Topics) DefaultTelemetry() []string {
	return append([]string{Topics{}.AllBinLevels()}, Topics{}.AllDeviceTelemetry()...)
}
