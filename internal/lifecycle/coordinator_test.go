package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/smartbin-core/internal/audit"
	"github.com/nerrad567/smartbin-core/internal/device"
	"github.com/nerrad567/smartbin-core/internal/infrastructure/database"
	"github.com/nerrad567/smartbin-core/internal/location"
	"github.com/nerrad567/smartbin-core/migrations"
)

type repos struct {
	areas   *location.SQLiteRepository
	devices *device.SQLiteRepository
	bins    *device.SQLiteBinRepository
}

func setupRepos(t *testing.T) repos {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return repos{
		areas:   location.NewSQLiteRepository(db.DB),
		devices: device.NewSQLiteRepository(db.DB),
		bins:    device.NewSQLiteBinRepository(db.DB),
	}
}

func setupCoordinator(t *testing.T) (*Coordinator, repos) {
	t.Helper()
	r := setupRepos(t)
	return newCoordinator(t, r, r.bins, nil), r
}

func newCoordinator(t *testing.T, r repos, bins device.BinRepository, binTypes []string) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(r.areas, r.devices, bins, binTypes)
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	return c
}

// failingBins wraps a BinRepository and fails selected operations.
type failingBins struct {
	device.BinRepository
	failCreateType string
	failDelete     bool
}

func (f *failingBins) Create(ctx context.Context, b *device.Bin) error {
	if b.Type == f.failCreateType {
		return errors.New("disk full")
	}
	return f.BinRepository.Create(ctx, b)
}

func (f *failingBins) DeleteByDevice(ctx context.Context, deviceID string) (int64, error) {
	if f.failDelete {
		return 0, errors.New("database is locked")
	}
	return f.BinRepository.DeleteByDevice(ctx, deviceID)
}

func TestCoordinator_CreateArea(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	area, err := c.CreateArea(ctx, "  Main Cafeteria ", nil)
	if err != nil {
		t.Fatalf("CreateArea() error = %v", err)
	}
	if area.Slug != "main_cafeteria" {
		t.Errorf("Slug = %q, want main_cafeteria", area.Slug)
	}
	if area.Name != "Main Cafeteria" {
		t.Errorf("Name = %q, want trimmed name", area.Name)
	}
	if area.ID == "" || area.ID == area.Slug {
		t.Errorf("ID = %q, want generated internal id", area.ID)
	}

	if _, err := c.CreateArea(ctx, "main   cafeteria", nil); !errors.Is(err, location.ErrAreaExists) {
		t.Errorf("CreateArea() duplicate slug error = %v, want ErrAreaExists", err)
	}
	if _, err := c.CreateArea(ctx, "   ", nil); !errors.Is(err, location.ErrInvalidName) {
		t.Errorf("CreateArea() blank error = %v, want ErrInvalidName", err)
	}

	for _, ref := range []string{area.ID, area.Slug} {
		got, err := c.GetArea(ctx, ref)
		if err != nil {
			t.Fatalf("GetArea(%q) error = %v", ref, err)
		}
		if got.ID != area.ID {
			t.Errorf("GetArea(%q).ID = %q, want %q", ref, got.ID, area.ID)
		}
	}
}

func TestCoordinator_RenameAreaKeepsSlug(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	area, err := c.CreateArea(ctx, "North Wing", nil)
	if err != nil {
		t.Fatalf("CreateArea() error = %v", err)
	}
	renamed, err := c.RenameArea(ctx, "north_wing", "North Wing East")
	if err != nil {
		t.Fatalf("RenameArea() error = %v", err)
	}
	if renamed.Name != "North Wing East" || renamed.Slug != area.Slug {
		t.Errorf("RenameArea() = name %q slug %q", renamed.Name, renamed.Slug)
	}

	updated, err := c.UpdateAreaMeta(ctx, area.ID, location.Meta{"floor": "2"})
	if err != nil {
		t.Fatalf("UpdateAreaMeta() error = %v", err)
	}
	if updated.Meta["floor"] != "2" {
		t.Errorf("Meta[floor] = %v, want 2", updated.Meta["floor"])
	}
}

func TestCoordinator_CreateDevice(t *testing.T) {
	c, r := setupCoordinator(t)
	ctx := context.Background()

	area, err := c.CreateArea(ctx, "Cafeteria", nil)
	if err != nil {
		t.Fatalf("CreateArea() error = %v", err)
	}

	d, bins, err := c.CreateDevice(ctx, NewDevice{Name: "Cafeteria", AreaRef: area.Slug})
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if !strings.HasPrefix(d.ID, "device-") {
		t.Errorf("ID = %q, want device- prefix", d.ID)
	}
	if d.Status != device.StatusUnknown {
		t.Errorf("Status = %q, want unknown", d.Status)
	}
	if len(bins) != 2 {
		t.Fatalf("CreateDevice() bins = %d, want 2", len(bins))
	}
	wantIDs := []string{d.ID + "-plastic", d.ID + "-aluminum"}
	for i, want := range wantIDs {
		if bins[i].ID != want {
			t.Errorf("bins[%d].ID = %q, want %q", i, bins[i].ID, want)
		}
		if bins[i].LevelPercent != 0 {
			t.Errorf("bins[%d].LevelPercent = %v, want 0", i, bins[i].LevelPercent)
		}
	}

	stored, err := r.devices.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(stored.Bins) != 2 || stored.Bins[0] != wantIDs[0] || stored.Bins[1] != wantIDs[1] {
		t.Errorf("stored Bins = %v, want %v", stored.Bins, wantIDs)
	}
	if stored.AreaID != area.ID {
		t.Errorf("AreaID = %q, want internal id %q", stored.AreaID, area.ID)
	}

	gotArea, _ := c.GetArea(ctx, area.ID) //nolint:errcheck // asserted below
	if !gotArea.HasDevice(d.ID) {
		t.Errorf("area devices = %v, want to contain %s", gotArea.Devices, d.ID)
	}
}

func TestCoordinator_CreateDeviceErrors(t *testing.T) {
	c, r := setupCoordinator(t)
	ctx := context.Background()

	if _, _, err := c.CreateDevice(ctx, NewDevice{Name: "Orphan", AreaRef: "nowhere"}); !errors.Is(err, location.ErrAreaNotFound) {
		t.Errorf("CreateDevice() unknown area error = %v, want ErrAreaNotFound", err)
	}

	area, _ := c.CreateArea(ctx, "Lab", nil) //nolint:errcheck // asserted by following calls
	if _, _, err := c.CreateDevice(ctx, NewDevice{Name: "", AreaRef: area.ID}); !errors.Is(err, device.ErrInvalidName) {
		t.Errorf("CreateDevice() blank name error = %v, want ErrInvalidName", err)
	}

	if _, _, err := c.CreateDevice(ctx, NewDevice{Name: "A", AreaRef: area.ID, ClientIDMQTT: "esp-01"}); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	_, _, err := c.CreateDevice(ctx, NewDevice{Name: "B", AreaRef: area.ID, ClientIDMQTT: "esp-01"})
	if !errors.Is(err, device.ErrCorrelationIDInUse) {
		t.Errorf("CreateDevice() duplicate correlation id error = %v, want ErrCorrelationIDInUse", err)
	}

	// The failed create must not leave its id in the area.
	got, _ := c.GetArea(ctx, area.ID) //nolint:errcheck // asserted below
	if len(got.Devices) != 1 {
		t.Errorf("area devices = %v, want exactly the first device", got.Devices)
	}
	all, _ := r.devices.List(ctx) //nolint:errcheck // asserted below
	if len(all) != 1 {
		t.Errorf("devices = %d, want 1", len(all))
	}
}

func TestCoordinator_CreateDeviceBinFailureUndone(t *testing.T) {
	r := setupRepos(t)
	bins := &failingBins{BinRepository: r.bins, failCreateType: device.BinTypeAluminum}
	c := newCoordinator(t, r, bins, nil)
	ctx := context.Background()

	area, err := c.CreateArea(ctx, "Lab", nil)
	if err != nil {
		t.Fatalf("CreateArea() error = %v", err)
	}
	if _, _, err := c.CreateDevice(ctx, NewDevice{Name: "Broken", AreaRef: area.ID}); err == nil {
		t.Fatal("CreateDevice() expected error")
	}

	devices, _ := r.devices.List(ctx) //nolint:errcheck // asserted below
	allBins, _ := r.bins.List(ctx)    //nolint:errcheck // asserted below
	got, _ := c.GetArea(ctx, area.ID) //nolint:errcheck // asserted below
	if len(devices) != 0 || len(allBins) != 0 || len(got.Devices) != 0 {
		t.Errorf("after failed create: devices=%d bins=%d area devices=%v", len(devices), len(allBins), got.Devices)
	}
}

func TestCoordinator_CustomBinTypes(t *testing.T) {
	r := setupRepos(t)
	c := newCoordinator(t, r, r.bins, []string{device.BinTypeAluminum})
	ctx := context.Background()

	area, _ := c.CreateArea(ctx, "Car Park", nil) //nolint:errcheck // asserted by following calls
	d, bins, err := c.CreateDevice(ctx, NewDevice{Name: "Gate", AreaRef: area.ID})
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if len(bins) != 1 || bins[0].ID != d.ID+"-aluminum" {
		t.Errorf("bins = %+v, want single %s-aluminum", bins, d.ID)
	}
}

func TestNewCoordinator_RejectsBadBinTypes(t *testing.T) {
	r := setupRepos(t)

	tests := []struct {
		name     string
		binTypes []string
	}{
		{"empty", []string{}},
		{"unknown", []string{device.BinTypePlastic, "glass"}},
		{"duplicate", []string{device.BinTypePlastic, device.BinTypePlastic}},
		{"slash", []string{"plastic/a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCoordinator(r.areas, r.devices, r.bins, tt.binTypes)
			if !errors.Is(err, device.ErrInvalidBinType) {
				t.Errorf("NewCoordinator(%v) error = %v, want ErrInvalidBinType", tt.binTypes, err)
			}
		})
	}
}

func TestCoordinator_DeleteDevice(t *testing.T) {
	c, r := setupCoordinator(t)
	ctx := context.Background()

	area, _ := c.CreateArea(ctx, "Cafeteria", nil)                                  //nolint:errcheck // asserted below
	keep, _, _ := c.CreateDevice(ctx, NewDevice{Name: "Keep", AreaRef: area.ID})    //nolint:errcheck // asserted below
	target, _, _ := c.CreateDevice(ctx, NewDevice{Name: "Target", AreaRef: area.ID}) //nolint:errcheck // asserted below

	result, err := c.DeleteDevice(ctx, target.ID)
	if err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if result.Err() != nil {
		t.Fatalf("DeleteDevice() step errors = %v", result.Err())
	}
	if result.BinsDeleted != 2 || result.DevicesDeleted != 1 {
		t.Errorf("DeleteDevice() = %+v, want 2 bins 1 device", result)
	}

	remaining, _ := r.bins.ListByDevice(ctx, target.ID) //nolint:errcheck // asserted below
	if len(remaining) != 0 {
		t.Errorf("bins of deleted device = %d, want 0", len(remaining))
	}
	got, _ := c.GetArea(ctx, area.ID) //nolint:errcheck // asserted below
	if got.HasDevice(target.ID) || !got.HasDevice(keep.ID) {
		t.Errorf("area devices = %v", got.Devices)
	}

	if _, err := c.DeleteDevice(ctx, target.ID); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("DeleteDevice() twice error = %v, want ErrDeviceNotFound", err)
	}
}

func TestCoordinator_DeleteDeviceReportsPartialFailure(t *testing.T) {
	r := setupRepos(t)
	bins := &failingBins{BinRepository: r.bins}
	c := newCoordinator(t, r, bins, nil)
	ctx := context.Background()

	area, _ := c.CreateArea(ctx, "Lab", nil)                                     //nolint:errcheck // asserted below
	d, _, err := c.CreateDevice(ctx, NewDevice{Name: "Sensor", AreaRef: area.ID}) //nolint:errcheck // asserted below
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	bins.failDelete = true
	result, err := c.DeleteDevice(ctx, d.ID)
	if err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("DeleteDevice() errors = %v, want exactly the bin step", result.Errors)
	}
	if result.DevicesDeleted != 1 || result.BinsDeleted != 0 {
		t.Errorf("DeleteDevice() = %+v, want device removed despite bin failure", result)
	}

	// Later steps ran: device gone and detached, bins left behind.
	if _, err := r.devices.GetByID(ctx, d.ID); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
	got, _ := c.GetArea(ctx, area.ID) //nolint:errcheck // asserted below
	if got.HasDevice(d.ID) {
		t.Error("device still attached to area")
	}
	left, _ := r.bins.ListByDevice(ctx, d.ID) //nolint:errcheck // asserted below
	if len(left) != 2 {
		t.Errorf("orphan bins = %d, want 2", len(left))
	}
}

func TestCoordinator_DeleteArea(t *testing.T) {
	c, r := setupCoordinator(t)
	ctx := context.Background()

	area, _ := c.CreateArea(ctx, "Cafeteria", nil) //nolint:errcheck // asserted below
	other, _ := c.CreateArea(ctx, "Library", nil)  //nolint:errcheck // asserted below
	for _, name := range []string{"A", "B", "C"} {
		if _, _, err := c.CreateDevice(ctx, NewDevice{Name: name, AreaRef: area.ID}); err != nil {
			t.Fatalf("CreateDevice(%s) error = %v", name, err)
		}
	}
	survivor, _, _ := c.CreateDevice(ctx, NewDevice{Name: "D", AreaRef: other.ID}) //nolint:errcheck // asserted below

	beforeBins, _ := r.bins.List(ctx) //nolint:errcheck // asserted below

	result, err := c.DeleteArea(ctx, area.Slug)
	if err != nil {
		t.Fatalf("DeleteArea() error = %v", err)
	}
	if result.Err() != nil {
		t.Fatalf("DeleteArea() step errors = %v", result.Err())
	}
	if result.DevicesDeleted != 3 || result.BinsDeleted != 6 {
		t.Errorf("DeleteArea() = %+v, want 3 devices 6 bins", result)
	}

	afterBins, _ := r.bins.List(ctx)  //nolint:errcheck // asserted below
	devices, _ := r.devices.List(ctx) //nolint:errcheck // asserted below
	if len(beforeBins)-len(afterBins) != result.BinsDeleted {
		t.Errorf("bins removed = %d, reported %d", len(beforeBins)-len(afterBins), result.BinsDeleted)
	}
	if len(devices) != 1 || devices[0].ID != survivor.ID {
		t.Errorf("remaining devices = %v, want only %s", devices, survivor.ID)
	}
	if _, err := c.GetArea(ctx, area.ID); !errors.Is(err, location.ErrAreaNotFound) {
		t.Errorf("GetArea() error = %v, want ErrAreaNotFound", err)
	}
	if _, err := c.DeleteArea(ctx, area.ID); !errors.Is(err, location.ErrAreaNotFound) {
		t.Errorf("DeleteArea() twice error = %v, want ErrAreaNotFound", err)
	}
}

func TestCoordinator_DeleteBin(t *testing.T) {
	c, r := setupCoordinator(t)
	ctx := context.Background()

	area, _ := c.CreateArea(ctx, "Cafeteria", nil)                               //nolint:errcheck // asserted below
	d, bins, _ := c.CreateDevice(ctx, NewDevice{Name: "Unit", AreaRef: area.ID}) //nolint:errcheck // asserted below

	result, err := c.DeleteBin(ctx, bins[0].ID)
	if err != nil {
		t.Fatalf("DeleteBin() error = %v", err)
	}
	if result.BinsDeleted != 1 || result.Err() != nil {
		t.Errorf("DeleteBin() = %+v, err %v", result, result.Err())
	}

	stored, _ := r.devices.GetByID(ctx, d.ID) //nolint:errcheck // asserted below
	if stored.HasBin(bins[0].ID) || !stored.HasBin(bins[1].ID) {
		t.Errorf("device bins = %v", stored.Bins)
	}
	if _, err := c.DeleteBin(ctx, bins[0].ID); !errors.Is(err, device.ErrBinNotFound) {
		t.Errorf("DeleteBin() twice error = %v, want ErrBinNotFound", err)
	}
}

func TestCoordinator_RenameAndMetaDevice(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	area, _ := c.CreateArea(ctx, "Cafeteria", nil) //nolint:errcheck // asserted below
	d, _, _ := c.CreateDevice(ctx, NewDevice{
		Name: "Unit", AreaRef: area.ID, Meta: device.Meta{"installer": "acme"},
	}) //nolint:errcheck // asserted below

	renamed, err := c.RenameDevice(ctx, d.ID, "Unit 2")
	if err != nil {
		t.Fatalf("RenameDevice() error = %v", err)
	}
	if renamed.Name != "Unit 2" {
		t.Errorf("Name = %q, want Unit 2", renamed.Name)
	}

	updated, err := c.UpdateDeviceMeta(ctx, d.ID, device.Meta{"floor": "1"})
	if err != nil {
		t.Fatalf("UpdateDeviceMeta() error = %v", err)
	}
	if updated.Meta["installer"] != "acme" || updated.Meta["floor"] != "1" {
		t.Errorf("Meta = %v, want merged", updated.Meta)
	}

	if _, err := c.RenameDevice(ctx, "ghost", "x"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("RenameDevice() unknown error = %v, want ErrDeviceNotFound", err)
	}
}

func TestCoordinator_ListFilters(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	a1, _ := c.CreateArea(ctx, "One", nil) //nolint:errcheck // asserted below
	a2, _ := c.CreateArea(ctx, "Two", nil) //nolint:errcheck // asserted below
	d1, _, _ := c.CreateDevice(ctx, NewDevice{Name: "d1", AreaRef: a1.ID}) //nolint:errcheck // asserted below
	if _, _, err := c.CreateDevice(ctx, NewDevice{Name: "d2", AreaRef: a2.ID}); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	all, _ := c.ListDevices(ctx, "")     //nolint:errcheck // asserted below
	one, _ := c.ListDevices(ctx, a1.Slug) //nolint:errcheck // asserted below
	if len(all) != 2 || len(one) != 1 || one[0].ID != d1.ID {
		t.Errorf("ListDevices() all=%d area=%v", len(all), one)
	}

	bins, _ := c.ListBins(ctx, d1.ID) //nolint:errcheck // asserted below
	allBins, _ := c.ListBins(ctx, "") //nolint:errcheck // asserted below
	if len(bins) != 2 || len(allBins) != 4 {
		t.Errorf("ListBins() device=%d all=%d", len(bins), len(allBins))
	}
}

// recordingAuditor captures audit entries and optionally fails writes.
type recordingAuditor struct {
	entries []audit.AuditLog
	fail    bool
}

func (a *recordingAuditor) Create(_ context.Context, log *audit.AuditLog) error {
	if a.fail {
		return errors.New("database is locked")
	}
	a.entries = append(a.entries, *log)
	return nil
}

func TestCoordinator_Audit(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()
	aud := &recordingAuditor{}
	c.SetAuditor(aud)

	area, err := c.CreateArea(ctx, "Library", nil)
	if err != nil {
		t.Fatalf("CreateArea() error = %v", err)
	}
	d, bins, err := c.CreateDevice(ctx, NewDevice{Name: "Unit", AreaRef: area.ID})
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if _, err := c.DeleteBin(ctx, bins[0].ID); err != nil {
		t.Fatalf("DeleteBin() error = %v", err)
	}
	if _, err := c.DeleteArea(ctx, area.ID); err != nil {
		t.Fatalf("DeleteArea() error = %v", err)
	}

	want := []struct {
		action, entityType, entityID string
	}{
		{audit.ActionCreate, audit.EntityArea, area.ID},
		{audit.ActionCreate, audit.EntityDevice, d.ID},
		{audit.ActionDelete, audit.EntityBin, bins[0].ID},
		{audit.ActionDelete, audit.EntityArea, area.ID},
	}
	if len(aud.entries) != len(want) {
		t.Fatalf("audit entries = %d, want %d", len(aud.entries), len(want))
	}
	for i, w := range want {
		got := aud.entries[i]
		if got.Action != w.action || got.EntityType != w.entityType || got.EntityID != w.entityID {
			t.Errorf("entry[%d] = %s %s %s, want %s %s %s", i,
				got.Action, got.EntityType, got.EntityID, w.action, w.entityType, w.entityID)
		}
		if got.Source != "lifecycle" {
			t.Errorf("entry[%d].Source = %q, want lifecycle", i, got.Source)
		}
	}

	last := aud.entries[3].Details
	if last["devices_deleted"] != 1 || last["bins_deleted"] != 1 || last["complete"] != true {
		t.Errorf("area delete details = %v", last)
	}
}

func TestCoordinator_AuditFailureDoesNotFail(t *testing.T) {
	c, _ := setupCoordinator(t)
	c.SetAuditor(&recordingAuditor{fail: true})

	if _, err := c.CreateArea(context.Background(), "Gym", nil); err != nil {
		t.Fatalf("CreateArea() error = %v, want nil despite audit failure", err)
	}
}

func TestCoordinator_AuditSkippedOnValidationError(t *testing.T) {
	c, _ := setupCoordinator(t)
	aud := &recordingAuditor{}
	c.SetAuditor(aud)

	if _, err := c.CreateArea(context.Background(), "   ", nil); err == nil {
		t.Fatal("CreateArea() expected error for blank name")
	}
	if len(aud.entries) != 0 {
		t.Errorf("audit entries = %d, want 0", len(aud.entries))
	}
}
