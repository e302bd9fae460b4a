package telemetry

import (
	"context"
	"time"

	"github.com/nerrad567/smartbin-core/internal/state"
)

// Ingestor applies routed telemetry through the state updater. It is the
// Router's Dispatcher.
type Ingestor struct {
	resolver *Resolver
	updater  *state.Updater
	logger   Logger
	now      func() time.Time
}

// NewIngestor creates an ingestor.
func NewIngestor(resolver *Resolver, updater *state.Updater) *Ingestor {
	return &Ingestor{
		resolver: resolver,
		updater:  updater,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the ingestor.
func (i *Ingestor) SetLogger(logger Logger) {
	i.logger = logger
}

// Dispatch implements Dispatcher. All failures are logged and dropped.
func (i *Ingestor) Dispatch(ctx context.Context, msg Message) {
	var err error
	switch msg.Kind {
	case KindLevel:
		err = i.level(ctx, msg)
	case KindColor:
		err = i.color(ctx, msg)
	case KindProximity:
		err = i.proximity(ctx, msg)
	case KindStatus:
		err = i.status(ctx, msg)
	default:
		i.logger.Warn("unhandled telemetry kind", "topic", msg.Topic, "kind", msg.Kind.String())
		return
	}
	if err != nil {
		i.logger.Warn("telemetry dropped", "topic", msg.Topic, "kind", msg.Kind.String(), "error", err)
	}
}

func (i *Ingestor) level(ctx context.Context, msg Message) error {
	var p LevelPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	bin, err := i.resolver.ResolveBin(ctx, BinRef{
		BinID:        p.BinID,
		Segment:      msg.Segment,
		ClientIDMQTT: p.ClientIDMQTT,
		Type:         p.Type,
	})
	if err != nil {
		return err
	}

	i.touch(ctx, bin.DeviceID)
	return i.updater.UpdateLevel(ctx, state.OriginMQTT, state.LevelUpdate{
		BinID:        bin.ID,
		LevelPercent: p.LevelPercent,
		Timestamp:    p.Timestamp.ptr(),
	})
}

func (i *Ingestor) color(ctx context.Context, msg Message) error {
	var p ColorPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	d, err := i.resolver.ResolveDevice(ctx, msg.Segment, p.ClientIDMQTT)
	if err != nil {
		return err
	}

	i.touch(ctx, d.ID)
	return i.updater.UpdateColor(ctx, state.OriginMQTT, state.ColorUpdate{
		DeviceID:       d.ID,
		Classification: p.Classification,
		Confidence:     p.Confidence,
		RGB:            p.RGB,
		Timestamp:      p.Timestamp.ptr(),
	})
}

func (i *Ingestor) proximity(ctx context.Context, msg Message) error {
	var p ProximityPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	d, err := i.resolver.ResolveDevice(ctx, msg.Segment, p.ClientIDMQTT)
	if err != nil {
		return err
	}

	i.touch(ctx, d.ID)
	return i.updater.UpdateProximity(ctx, state.OriginMQTT, state.ProximityUpdate{
		DeviceID:   d.ID,
		DistanceCM: p.DistanceCM,
		Trigger:    p.Trigger,
		Timestamp:  p.Timestamp.ptr(),
	})
}

// status handles both status and heartbeat topics. A heartbeat without a
// status field only refreshes last_seen.
func (i *Ingestor) status(ctx context.Context, msg Message) error {
	var p StatusPayload
	if err := decode(msg.Payload, &p); err != nil {
		return err
	}
	d, err := i.resolver.ResolveDevice(ctx, msg.Segment, p.ClientIDMQTT)
	if err != nil {
		return err
	}

	i.touch(ctx, d.ID)
	if p.Status == "" && p.Timestamp.IsZero() {
		return nil
	}
	// The correlation id on the wire already resolved to this device, so it
	// is not rebound here.
	return i.updater.UpdateStatus(ctx, state.OriginMQTT, state.StatusUpdate{
		DeviceID:  d.ID,
		Status:    p.Status,
		Timestamp: p.Timestamp.ptr(),
	})
}

// touch records device activity. Failure is logged and does not block the
// update itself.
func (i *Ingestor) touch(ctx context.Context, deviceID string) {
	if err := i.updater.Heartbeat(ctx, deviceID, i.now()); err != nil {
		i.logger.Warn("recording device activity failed", "device_id", deviceID, "error", err)
	}
}
