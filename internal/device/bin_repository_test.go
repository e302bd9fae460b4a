package device

import (
	"context"
	"errors"
	"testing"
)

func TestSQLiteBinRepository_CreateAndGet(t *testing.T) {
	repo := NewSQLiteBinRepository(setupTestDB(t))
	ctx := context.Background()

	b := &Bin{ID: BinID("dev-1", BinTypePlastic), DeviceID: "dev-1", Type: BinTypePlastic}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "dev-1-plastic")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LevelPercent != 0 {
		t.Errorf("LevelPercent = %v, want 0", got.LevelPercent)
	}
	if got.Type != BinTypePlastic || got.DeviceID != "dev-1" {
		t.Errorf("bin = %+v", got)
	}

	if err := repo.Create(ctx, b); !errors.Is(err, ErrBinExists) {
		t.Errorf("Create() duplicate error = %v, want ErrBinExists", err)
	}
	if _, err := repo.GetByID(ctx, "nope"); !errors.Is(err, ErrBinNotFound) {
		t.Errorf("GetByID() missing error = %v, want ErrBinNotFound", err)
	}
}

func TestSQLiteBinRepository_SetLevel(t *testing.T) {
	repo := NewSQLiteBinRepository(setupTestDB(t))
	ctx := context.Background()

	b := &Bin{ID: "dev-1-plastic", DeviceID: "dev-1", Type: BinTypePlastic, Meta: Meta{"sensor": "ultrasonic"}}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.SetLevel(ctx, "dev-1-plastic", 42.46, Meta{MetaLastUpdate: "2026-10-14T10:00:00Z"}); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, "dev-1-plastic") //nolint:errcheck // asserted below
	if got.LevelPercent != 42.46 {
		t.Errorf("LevelPercent = %v, want 42.46", got.LevelPercent)
	}
	if got.Meta["sensor"] != "ultrasonic" {
		t.Errorf("Meta[sensor] = %v, want ultrasonic", got.Meta["sensor"])
	}
	if got.Meta[MetaLastUpdate] != "2026-10-14T10:00:00Z" {
		t.Errorf("Meta[last_update] = %v", got.Meta[MetaLastUpdate])
	}

	// Nil meta leaves metadata intact.
	if err := repo.SetLevel(ctx, "dev-1-plastic", 50, nil); err != nil {
		t.Fatalf("SetLevel() nil meta error = %v", err)
	}
	got, _ = repo.GetByID(ctx, "dev-1-plastic") //nolint:errcheck // asserted below
	if got.LevelPercent != 50 || got.Meta[MetaLastUpdate] == nil {
		t.Errorf("bin after nil-meta update = %+v", got)
	}

	if err := repo.SetLevel(ctx, "missing", 10, nil); !errors.Is(err, ErrBinNotFound) {
		t.Errorf("SetLevel() missing error = %v, want ErrBinNotFound", err)
	}
}

func TestSQLiteBinRepository_RejectsOutOfRangeAtStorage(t *testing.T) {
	repo := NewSQLiteBinRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &Bin{ID: "b1", DeviceID: "dev-1", Type: BinTypePlastic}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.SetLevel(ctx, "b1", 101, nil); err == nil {
		t.Error("SetLevel(101) expected CHECK constraint error")
	}
}

func TestSQLiteBinRepository_DeleteByDevice(t *testing.T) {
	repo := NewSQLiteBinRepository(setupTestDB(t))
	ctx := context.Background()

	for _, b := range []*Bin{
		{ID: "dev-1-plastic", DeviceID: "dev-1", Type: BinTypePlastic},
		{ID: "dev-1-aluminum", DeviceID: "dev-1", Type: BinTypeAluminum},
		{ID: "dev-2-plastic", DeviceID: "dev-2", Type: BinTypePlastic},
	} {
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create(%s) error = %v", b.ID, err)
		}
	}

	bins, err := repo.ListByDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(bins) != 2 {
		t.Fatalf("ListByDevice() = %d, want 2", len(bins))
	}

	n, err := repo.DeleteByDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("DeleteByDevice() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteByDevice() = %d, want 2", n)
	}

	all, _ := repo.List(ctx) //nolint:errcheck // asserted below
	if len(all) != 1 || all[0].ID != "dev-2-plastic" {
		t.Errorf("List() after delete = %v", all)
	}

	if err := repo.Delete(ctx, "dev-2-plastic"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "dev-2-plastic"); !errors.Is(err, ErrBinNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrBinNotFound", err)
	}
}
