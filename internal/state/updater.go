package state

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/smartbin-core/internal/device"
)

// Origin identifies who asked for an update. It decides whether a rejection
// is returned or logged.
type Origin int

const (
	// OriginHTTP is an operator request. Rejections are returned.
	OriginHTTP Origin = iota
	// OriginMQTT is device telemetry. Rejections are logged and dropped.
	OriginMQTT
)

// String returns the origin name used in log fields.
func (o Origin) String() string {
	switch o {
	case OriginHTTP:
		return "http"
	case OriginMQTT:
		return "mqtt"
	default:
		return "unknown"
	}
}

// Event channels published to the Notifier after an update is applied.
const (
	ChannelBinLevel        = "bin.level_changed"
	ChannelDeviceStatus    = "device.status_changed"
	ChannelDeviceColor     = "device.color_changed"
	ChannelDeviceProximity = "device.proximity_changed"
)

// Notifier receives change events. The WebSocket hub implements it.
type Notifier interface {
	Broadcast(channel string, payload any)
}

// Logger defines the logging interface used by the Updater.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopNotifier struct{}

func (noopNotifier) Broadcast(string, any) {}

// LevelUpdate is a fill-level observation for one bin.
type LevelUpdate struct {
	BinID        string
	LevelPercent *float64
	Timestamp    *time.Time
}

// StatusUpdate is a connectivity report for one device. Empty fields are
// left unchanged.
type StatusUpdate struct {
	DeviceID     string
	Status       string
	ClientIDMQTT string
	Timestamp    *time.Time
}

// ColorUpdate is a material classification for one device.
type ColorUpdate struct {
	DeviceID       string
	Classification string
	Confidence     float64
	RGB            []int
	Timestamp      *time.Time
}

// ProximityUpdate is a distance reading for one device.
type ProximityUpdate struct {
	DeviceID   string
	DistanceCM *float64
	Trigger    bool
	Timestamp  *time.Time
}

// Updater applies validated partial updates to bins and devices.
//
// All methods are safe for concurrent use. The Updater holds no state of its
// own; the database row is the only consistency boundary.
type Updater struct {
	devices  device.Repository
	bins     device.BinRepository
	notifier Notifier
	logger   Logger
	now      func() time.Time
}

// NewUpdater creates a state updater over the given repositories.
func NewUpdater(devices device.Repository, bins device.BinRepository) *Updater {
	return &Updater{
		devices:  devices,
		bins:     bins,
		notifier: noopNotifier{},
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the updater.
func (u *Updater) SetLogger(logger Logger) {
	u.logger = logger
}

// SetNotifier sets the change event sink.
func (u *Updater) SetNotifier(n Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	u.notifier = n
}

// RoundLevel rounds half-up to two decimal places.
func RoundLevel(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// ValidateLevel checks that v is present, a number, and within [0, 100].
func ValidateLevel(v *float64) error {
	if v == nil {
		return fmt.Errorf("%w: level_percent is required", ErrInvalidLevel)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return fmt.Errorf("%w: level_percent must be a number", ErrInvalidLevel)
	}
	if *v < 0 || *v > 100 {
		return fmt.Errorf("%w: level_percent %v outside [0, 100]", ErrInvalidLevel, *v)
	}
	return nil
}

// UpdateLevel writes a bin fill level. The observation timestamp, when
// given, is merged into the bin metadata under "last_update".
func (u *Updater) UpdateLevel(ctx context.Context, origin Origin, upd LevelUpdate) error {
	if err := ValidateLevel(upd.LevelPercent); err != nil {
		return u.reject(origin, "level update rejected", err, "bin_id", upd.BinID)
	}

	level := RoundLevel(*upd.LevelPercent)
	var meta device.Meta
	if upd.Timestamp != nil {
		meta = device.Meta{device.MetaLastUpdate: formatTime(*upd.Timestamp)}
	}

	if err := u.bins.SetLevel(ctx, upd.BinID, level, meta); err != nil {
		return u.reject(origin, "level update failed", err, "bin_id", upd.BinID)
	}

	u.logger.Debug("bin level updated", "bin_id", upd.BinID, "level_percent", level, "origin", origin.String())
	u.notifier.Broadcast(ChannelBinLevel, map[string]any{
		"bin_id":        upd.BinID,
		"level_percent": level,
		"status":        Classify(level),
	})
	return nil
}

// UpdateStatus applies a connectivity report. Status, when given, must be
// online or offline. A non-empty ClientIDMQTT rebinds the correlation id.
func (u *Updater) UpdateStatus(ctx context.Context, origin Origin, upd StatusUpdate) error {
	patch := device.StatusPatch{}
	if upd.Status != "" {
		s, ok := device.ParseStatus(upd.Status)
		if !ok {
			err := fmt.Errorf("%w: %q (want online or offline)", ErrInvalidStatus, upd.Status)
			return u.reject(origin, "status update rejected", err, "device_id", upd.DeviceID)
		}
		patch.Status = &s
	}
	if upd.ClientIDMQTT != "" {
		patch.ClientIDMQTT = &upd.ClientIDMQTT
	}
	if upd.Timestamp != nil {
		patch.Meta = device.Meta{device.MetaLastStatusUpdate: formatTime(*upd.Timestamp)}
	}

	if err := u.devices.ApplyStatus(ctx, upd.DeviceID, patch); err != nil {
		return u.reject(origin, "status update failed", err, "device_id", upd.DeviceID)
	}

	if patch.Status != nil {
		u.logger.Info("device status updated", "device_id", upd.DeviceID, "status", *patch.Status, "origin", origin.String())
		u.notifier.Broadcast(ChannelDeviceStatus, map[string]any{
			"device_id": upd.DeviceID,
			"status":    *patch.Status,
		})
	}
	return nil
}

// UpdateColor replaces the latest color observation of a device.
func (u *Updater) UpdateColor(ctx context.Context, origin Origin, upd ColorUpdate) error {
	if err := validateColor(upd); err != nil {
		return u.reject(origin, "color update rejected", err, "device_id", upd.DeviceID)
	}

	obs := device.ColorObservation{
		Classification: upd.Classification,
		Confidence:     upd.Confidence,
		RGB:            upd.RGB,
		Timestamp:      u.observedAt(upd.Timestamp),
	}
	if err := u.devices.SetColor(ctx, upd.DeviceID, obs); err != nil {
		return u.reject(origin, "color update failed", err, "device_id", upd.DeviceID)
	}

	u.logger.Debug("device color updated", "device_id", upd.DeviceID, "classification", obs.Classification, "origin", origin.String())
	u.notifier.Broadcast(ChannelDeviceColor, map[string]any{
		"device_id":  upd.DeviceID,
		"last_color": obs,
	})
	return nil
}

// UpdateProximity replaces the latest proximity observation of a device.
func (u *Updater) UpdateProximity(ctx context.Context, origin Origin, upd ProximityUpdate) error {
	if upd.DistanceCM == nil || math.IsNaN(*upd.DistanceCM) || *upd.DistanceCM < 0 {
		err := fmt.Errorf("%w: distance_cm must be a non-negative number", ErrInvalidProximity)
		return u.reject(origin, "proximity update rejected", err, "device_id", upd.DeviceID)
	}

	obs := device.ProximityObservation{
		DistanceCM: *upd.DistanceCM,
		Trigger:    upd.Trigger,
		Timestamp:  u.observedAt(upd.Timestamp),
	}
	if err := u.devices.SetProximity(ctx, upd.DeviceID, obs); err != nil {
		return u.reject(origin, "proximity update failed", err, "device_id", upd.DeviceID)
	}

	u.logger.Debug("device proximity updated", "device_id", upd.DeviceID, "distance_cm", obs.DistanceCM, "origin", origin.String())
	u.notifier.Broadcast(ChannelDeviceProximity, map[string]any{
		"device_id":      upd.DeviceID,
		"last_proximity": obs,
	})
	return nil
}

// Heartbeat records that telemetry for a device was seen at the given time.
// A zero time means now.
func (u *Updater) Heartbeat(ctx context.Context, deviceID string, at time.Time) error {
	if at.IsZero() {
		at = u.now()
	}
	if err := u.devices.Touch(ctx, deviceID, at); err != nil {
		return fmt.Errorf("recording heartbeat: %w", err)
	}
	return nil
}

// reject applies the origin policy to a failed update.
func (u *Updater) reject(origin Origin, msg string, err error, args ...any) error {
	if origin == OriginMQTT {
		u.logger.Warn(msg, append(args, "error", err, "origin", origin.String())...)
		return nil
	}
	return err
}

func (u *Updater) observedAt(ts *time.Time) time.Time {
	if ts != nil && !ts.IsZero() {
		return ts.UTC()
	}
	return u.now().UTC()
}

func validateColor(upd ColorUpdate) error {
	if upd.Classification == "" {
		return fmt.Errorf("%w: classification is required", ErrInvalidColor)
	}
	if math.IsNaN(upd.Confidence) || upd.Confidence < 0 || upd.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be within [0, 1]", ErrInvalidColor)
	}
	if len(upd.RGB) != 3 {
		return fmt.Errorf("%w: rgb must have 3 components", ErrInvalidColor)
	}
	for _, c := range upd.RGB {
		if c < 0 || c > 255 {
			return fmt.Errorf("%w: rgb component %d outside [0, 255]", ErrInvalidColor, c)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
