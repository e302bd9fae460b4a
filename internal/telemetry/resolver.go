package telemetry

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/nerrad567/smartbin-core/internal/device"
)

// Resolver maps telemetry identifiers to registered entities. It only
// reads; it never creates devices or bins.
type Resolver struct {
	devices device.Repository
	bins    device.BinRepository
	logger  Logger
}

// NewResolver creates a resolver over the given repositories.
func NewResolver(devices device.Repository, bins device.BinRepository) *Resolver {
	return &Resolver{devices: devices, bins: bins, logger: noopLogger{}}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// ResolveDevice returns the device bound to one of the given correlation
// ids, tried in order; empty ids are skipped. Returns ErrUnregistered when
// none matches.
func (r *Resolver) ResolveDevice(ctx context.Context, correlationIDs ...string) (*device.Device, error) {
	tried := make([]string, 0, len(correlationIDs))
	for _, id := range correlationIDs {
		if id == "" || slices.Contains(tried, id) {
			continue
		}
		d, err := r.devices.GetByCorrelationID(ctx, id)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, device.ErrDeviceNotFound) {
			return nil, fmt.Errorf("resolving correlation id %s: %w", id, err)
		}
		tried = append(tried, id)
	}

	r.logger.Debug("telemetry from unregistered device", "client_id_mqtt", tried)
	return nil, fmt.Errorf("%w: client_id_mqtt %v", ErrUnregistered, tried)
}

// BinRef identifies the bin a level reading belongs to.
type BinRef struct {
	// BinID is the bin id from the payload, if any.
	BinID string

	// Segment is the id captured from the topic. It is tried as a bin id,
	// then as a correlation id.
	Segment string

	// ClientIDMQTT is the correlation id from the payload, if any.
	ClientIDMQTT string

	// Type selects a compartment when the device has more than one.
	Type string
}

// ResolveBin finds the bin a level reading refers to.
//
// An explicit bin id wins, then the topic segment as a bin id. Failing
// both, the segment or payload correlation id selects a device, and the
// bin is the device's compartment of the given type, or its only
// compartment when it has exactly one.
func (r *Resolver) ResolveBin(ctx context.Context, ref BinRef) (*device.Bin, error) {
	for _, id := range []string{ref.BinID, ref.Segment} {
		if id == "" {
			continue
		}
		b, err := r.bins.GetByID(ctx, id)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, device.ErrBinNotFound) {
			return nil, fmt.Errorf("resolving bin %s: %w", id, err)
		}
	}

	d, err := r.ResolveDevice(ctx, ref.Segment, ref.ClientIDMQTT)
	if err != nil {
		return nil, err
	}

	var binID string
	switch {
	case ref.Type != "":
		binID = device.BinID(d.ID, ref.Type)
		if !d.HasBin(binID) {
			r.logger.Debug("level for unknown compartment type", "device_id", d.ID, "type", ref.Type)
			return nil, fmt.Errorf("%w: device %s has no %s bin", ErrUnregistered, d.ID, ref.Type)
		}
	case len(d.Bins) == 1:
		binID = d.Bins[0]
	default:
		r.logger.Debug("level without compartment type", "device_id", d.ID, "bins", len(d.Bins))
		return nil, fmt.Errorf("%w: device %s has %d bins and no type was given", ErrUnregistered, d.ID, len(d.Bins))
	}

	b, err := r.bins.GetByID(ctx, binID)
	if err != nil {
		if errors.Is(err, device.ErrBinNotFound) {
			return nil, fmt.Errorf("%w: bin %s", ErrUnregistered, binID)
		}
		return nil, fmt.Errorf("resolving bin %s: %w", binID, err)
	}
	return b, nil
}
