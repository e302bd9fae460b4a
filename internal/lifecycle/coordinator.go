package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/smartbin-core/internal/audit"
	"github.com/nerrad567/smartbin-core/internal/device"
	"github.com/nerrad567/smartbin-core/internal/location"
)

// DefaultBinTypes is the compartment set used when none is configured.
var DefaultBinTypes = []string{device.BinTypePlastic, device.BinTypeAluminum}

// Logger defines the logging interface used by the Coordinator.
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

// Auditor records lifecycle operations. audit.Repository implements it.
type Auditor interface {
	Create(ctx context.Context, log *audit.AuditLog) error
}

// auditSource is the source recorded on every lifecycle audit entry.
const auditSource = "lifecycle"

// NewDevice describes a device to create.
type NewDevice struct {
	Name    string
	AreaRef string // area ID or slug
	Model   string

	// ClientIDMQTT optionally binds the hardware correlation id at creation.
	ClientIDMQTT string

	Meta device.Meta
}

// Coordinator manages the area, device and bin lifecycle.
//
// It holds no locks. Safe for concurrent use to the extent the underlying
// repositories are.
type Coordinator struct {
	areas    location.Repository
	devices  device.Repository
	bins     device.BinRepository
	binTypes []string
	logger   Logger
	auditor  Auditor
}

// NewCoordinator creates a lifecycle coordinator. binTypes is the
// compartment set created with every device; nil selects DefaultBinTypes.
// Returns device.ErrInvalidBinType for unknown or repeated types.
func NewCoordinator(areas location.Repository, devices device.Repository, bins device.BinRepository, binTypes []string) (*Coordinator, error) {
	if binTypes == nil {
		binTypes = DefaultBinTypes
	}
	if err := device.ValidateBinTypes(binTypes); err != nil {
		return nil, err
	}
	return &Coordinator{
		areas:    areas,
		devices:  devices,
		bins:     bins,
		binTypes: append([]string(nil), binTypes...),
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetAuditor sets the audit trail sink. Nil disables auditing.
func (c *Coordinator) SetAuditor(a Auditor) {
	c.auditor = a
}

// BinTypes returns the compartment set created with every device.
func (c *Coordinator) BinTypes() []string {
	return append([]string(nil), c.binTypes...)
}

// ─── Areas ──────────────────────────────────────────────────────────

// CreateArea creates an area whose slug is derived from name.
// Returns location.ErrAreaExists if the slug is taken.
func (c *Coordinator) CreateArea(ctx context.Context, name string, meta location.Meta) (*location.Area, error) {
	if err := location.ValidateName(name); err != nil {
		return nil, err
	}
	if err := location.ValidateMeta(meta); err != nil {
		return nil, err
	}

	area := &location.Area{
		ID:      uuid.NewString(),
		Slug:    location.Slugify(name),
		Name:    strings.TrimSpace(name),
		Devices: []string{},
		Meta:    meta,
	}
	if err := c.areas.Create(ctx, area); err != nil {
		return nil, err
	}

	c.logger.Info("area created", "area_id", area.ID, "slug", area.Slug)
	c.record(ctx, audit.ActionCreate, audit.EntityArea, area.ID, map[string]any{"name": area.Name, "slug": area.Slug})
	return area, nil
}

// GetArea resolves an area by internal ID or slug.
func (c *Coordinator) GetArea(ctx context.Context, ref string) (*location.Area, error) {
	return c.areas.Resolve(ctx, ref)
}

// ListAreas returns every area.
func (c *Coordinator) ListAreas(ctx context.Context) ([]location.Area, error) {
	return c.areas.List(ctx)
}

// RenameArea changes an area's display name. The slug is not changed.
func (c *Coordinator) RenameArea(ctx context.Context, ref, name string) (*location.Area, error) {
	if err := location.ValidateName(name); err != nil {
		return nil, err
	}
	area, err := c.areas.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := c.areas.Rename(ctx, area.ID, strings.TrimSpace(name)); err != nil {
		return nil, err
	}
	return c.areas.Get(ctx, area.ID)
}

// UpdateAreaMeta shallow-merges meta into an area's metadata.
func (c *Coordinator) UpdateAreaMeta(ctx context.Context, ref string, meta location.Meta) (*location.Area, error) {
	if err := location.ValidateMeta(meta); err != nil {
		return nil, err
	}
	area, err := c.areas.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := c.areas.MergeMeta(ctx, area.ID, meta); err != nil {
		return nil, err
	}
	return c.areas.Get(ctx, area.ID)
}

// ListAreaDevices returns the devices owned by an area.
func (c *Coordinator) ListAreaDevices(ctx context.Context, ref string) ([]device.Device, error) {
	area, err := c.areas.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.devices.ListByArea(ctx, area.ID)
}

// DeleteArea deletes every device owned by the area, with their bins, then
// the area itself. Step failures are collected in the result.
func (c *Coordinator) DeleteArea(ctx context.Context, ref string) (CascadeResult, error) {
	area, err := c.areas.Resolve(ctx, ref)
	if err != nil {
		return CascadeResult{}, err
	}

	var result CascadeResult
	devices, err := c.devices.ListByArea(ctx, area.ID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("listing devices of area %s: %w", area.ID, err))
	}
	for i := range devices {
		result.add(c.cascadeDevice(ctx, &devices[i]))
	}

	if err := c.areas.Delete(ctx, area.ID); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("deleting area %s: %w", area.ID, err))
	}

	c.logCascade("area deleted", result, "area_id", area.ID)
	c.recordCascade(ctx, audit.EntityArea, area.ID, result)
	return result, nil
}

// ─── Devices ────────────────────────────────────────────────────────

// CreateDevice creates a device in an existing area together with one bin
// per configured compartment type.
//
// The device id is added to the area's device set, then the device is
// stored, then each bin, then the device's bin list. If a later step fails
// the earlier ones are undone on a best-effort basis.
func (c *Coordinator) CreateDevice(ctx context.Context, req NewDevice) (*device.Device, []device.Bin, error) {
	if err := device.ValidateName(req.Name); err != nil {
		return nil, nil, err
	}
	if err := device.ValidateMeta(req.Meta); err != nil {
		return nil, nil, err
	}

	area, err := c.areas.Resolve(ctx, req.AreaRef)
	if err != nil {
		return nil, nil, err
	}

	d := &device.Device{
		ID:     device.GenerateID(),
		Name:   strings.TrimSpace(req.Name),
		AreaID: area.ID,
		Model:  req.Model,
		Status: device.StatusUnknown,
		Meta:   req.Meta,
	}
	if req.ClientIDMQTT != "" {
		clientID := req.ClientIDMQTT
		d.ClientIDMQTT = &clientID
	}

	if err := c.areas.AddDevice(ctx, area.ID, d.ID); err != nil {
		return nil, nil, fmt.Errorf("adding device to area: %w", err)
	}
	if err := c.devices.Create(ctx, d); err != nil {
		c.undoCreate(ctx, area.ID, d.ID, nil, false)
		return nil, nil, err
	}

	bins := make([]device.Bin, 0, len(c.binTypes))
	binIDs := make([]string, 0, len(c.binTypes))
	for _, t := range c.binTypes {
		b := device.Bin{ID: device.BinID(d.ID, t), DeviceID: d.ID, Type: t}
		if err := c.bins.Create(ctx, &b); err != nil {
			c.undoCreate(ctx, area.ID, d.ID, binIDs, true)
			return nil, nil, fmt.Errorf("creating bin %s: %w", b.ID, err)
		}
		bins = append(bins, b)
		binIDs = append(binIDs, b.ID)
	}

	if err := c.devices.SetBins(ctx, d.ID, binIDs); err != nil {
		c.undoCreate(ctx, area.ID, d.ID, binIDs, true)
		return nil, nil, fmt.Errorf("recording device bins: %w", err)
	}
	d.Bins = binIDs

	c.logger.Info("device created", "device_id", d.ID, "area_id", area.ID, "bins", len(bins))
	c.record(ctx, audit.ActionCreate, audit.EntityDevice, d.ID, map[string]any{"area_id": area.ID, "bins": binIDs})
	return d, bins, nil
}

// undoCreate reverses the steps of a failed CreateDevice.
func (c *Coordinator) undoCreate(ctx context.Context, areaID, deviceID string, binIDs []string, deviceStored bool) {
	for _, id := range binIDs {
		if err := c.bins.Delete(ctx, id); err != nil {
			c.logger.Warn("undo create: deleting bin failed", "bin_id", id, "error", err)
		}
	}
	if deviceStored {
		if err := c.devices.Delete(ctx, deviceID); err != nil {
			c.logger.Warn("undo create: deleting device failed", "device_id", deviceID, "error", err)
		}
	}
	if err := c.areas.RemoveDevice(ctx, areaID, deviceID); err != nil {
		c.logger.Warn("undo create: detaching device failed", "device_id", deviceID, "area_id", areaID, "error", err)
	}
}

// GetDevice returns a device and its bins.
func (c *Coordinator) GetDevice(ctx context.Context, id string) (*device.Device, []device.Bin, error) {
	d, err := c.devices.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	bins, err := c.bins.ListByDevice(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return d, bins, nil
}

// ListDevices returns all devices, or only those of an area when areaRef
// is non-empty.
func (c *Coordinator) ListDevices(ctx context.Context, areaRef string) ([]device.Device, error) {
	if areaRef != "" {
		return c.ListAreaDevices(ctx, areaRef)
	}
	return c.devices.List(ctx)
}

// RenameDevice changes a device's display name.
func (c *Coordinator) RenameDevice(ctx context.Context, id, name string) (*device.Device, error) {
	if err := device.ValidateName(name); err != nil {
		return nil, err
	}
	if err := c.devices.Rename(ctx, id, strings.TrimSpace(name)); err != nil {
		return nil, err
	}
	return c.devices.GetByID(ctx, id)
}

// UpdateDeviceMeta shallow-merges meta into a device's metadata.
func (c *Coordinator) UpdateDeviceMeta(ctx context.Context, id string, meta device.Meta) (*device.Device, error) {
	if err := device.ValidateMeta(meta); err != nil {
		return nil, err
	}
	if err := c.devices.MergeMeta(ctx, id, meta); err != nil {
		return nil, err
	}
	return c.devices.GetByID(ctx, id)
}

// DeleteDevice deletes a device's bins, detaches it from its area and
// deletes the device. Each step runs regardless of earlier failures.
// Returns device.ErrDeviceNotFound if the device does not exist.
func (c *Coordinator) DeleteDevice(ctx context.Context, id string) (CascadeResult, error) {
	d, err := c.devices.GetByID(ctx, id)
	if err != nil {
		return CascadeResult{}, err
	}
	result := c.cascadeDevice(ctx, d)
	c.logCascade("device deleted", result, "device_id", id)
	c.recordCascade(ctx, audit.EntityDevice, id, result)
	return result, nil
}

// cascadeDevice runs the three delete steps for d. An already missing area
// counts as detached.
func (c *Coordinator) cascadeDevice(ctx context.Context, d *device.Device) CascadeResult {
	var result CascadeResult

	n, err := c.bins.DeleteByDevice(ctx, d.ID)
	result.BinsDeleted = int(n)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("deleting bins of device %s: %w", d.ID, err))
	}

	err = c.areas.RemoveDevice(ctx, d.AreaID, d.ID)
	if err != nil && !errors.Is(err, location.ErrAreaNotFound) {
		result.Errors = append(result.Errors, fmt.Errorf("detaching device %s from area %s: %w", d.ID, d.AreaID, err))
	}

	if err := c.devices.Delete(ctx, d.ID); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("deleting device %s: %w", d.ID, err))
	} else {
		result.DevicesDeleted = 1
	}
	return result
}

// ─── Bins ───────────────────────────────────────────────────────────

// GetBin returns a single bin.
func (c *Coordinator) GetBin(ctx context.Context, id string) (*device.Bin, error) {
	return c.bins.GetByID(ctx, id)
}

// ListBins returns all bins, or only those of a device when deviceID is
// non-empty.
func (c *Coordinator) ListBins(ctx context.Context, deviceID string) ([]device.Bin, error) {
	if deviceID != "" {
		return c.bins.ListByDevice(ctx, deviceID)
	}
	return c.bins.List(ctx)
}

// DeleteBin detaches a bin from its device and deletes it.
// A missing owning device does not stop the delete.
func (c *Coordinator) DeleteBin(ctx context.Context, id string) (CascadeResult, error) {
	b, err := c.bins.GetByID(ctx, id)
	if err != nil {
		return CascadeResult{}, err
	}

	var result CascadeResult
	err = c.devices.RemoveBin(ctx, b.DeviceID, b.ID)
	if err != nil && !errors.Is(err, device.ErrDeviceNotFound) {
		result.Errors = append(result.Errors, fmt.Errorf("detaching bin %s from device %s: %w", b.ID, b.DeviceID, err))
	}
	if err := c.bins.Delete(ctx, b.ID); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("deleting bin %s: %w", b.ID, err))
	} else {
		result.BinsDeleted = 1
	}

	c.logCascade("bin deleted", result, "bin_id", id)
	c.recordCascade(ctx, audit.EntityBin, id, result)
	return result, nil
}

func (c *Coordinator) logCascade(msg string, result CascadeResult, args ...any) {
	args = append(args, "devices_deleted", result.DevicesDeleted, "bins_deleted", result.BinsDeleted)
	if len(result.Errors) > 0 {
		c.logger.Warn(msg+" with errors", append(args, "error", result.Err())...)
		return
	}
	c.logger.Info(msg, args...)
}

// record writes an audit entry. Failures are logged and never fail the
// operation that was audited.
func (c *Coordinator) record(ctx context.Context, action, entityType, entityID string, details map[string]any) {
	if c.auditor == nil {
		return
	}
	entry := &audit.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Source:     auditSource,
		Details:    details,
	}
	if err := c.auditor.Create(ctx, entry); err != nil {
		c.logger.Error("audit log write failed", "action", action, "entity_type", entityType, "entity_id", entityID, "error", err)
	}
}

func (c *Coordinator) recordCascade(ctx context.Context, entityType, entityID string, result CascadeResult) {
	details := map[string]any{
		"devices_deleted": result.DevicesDeleted,
		"bins_deleted":    result.BinsDeleted,
		"complete":        result.Complete(),
	}
	if err := result.Err(); err != nil {
		details["error"] = err.Error()
	}
	c.record(ctx, audit.ActionDelete, entityType, entityID, details)
}
