package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/smartbin-core/internal/infrastructure/database"
	"github.com/nerrad567/smartbin-core/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_Create(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	entry := &AuditLog{
		Action:     ActionDelete,
		EntityType: EntityArea,
		EntityID:   "area-1",
		Source:     "api",
		Details:    map[string]any{"devices_deleted": 2, "complete": true},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(entry.ID, "aud-") {
		t.Errorf("ID = %q, want aud- prefix", entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || len(res.Logs) != 1 {
		t.Fatalf("List() total = %d, logs = %d, want 1", res.Total, len(res.Logs))
	}
	got := res.Logs[0]
	if got.ID != entry.ID || got.EntityID != "area-1" || got.Source != "api" {
		t.Errorf("List()[0] = %+v", got)
	}
	// JSON numbers decode as float64.
	if got.Details["devices_deleted"] != float64(2) {
		t.Errorf("Details[devices_deleted] = %v, want 2", got.Details["devices_deleted"])
	}
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, entry.CreatedAt)
	}
}

func TestSQLiteRepository_CreateInvalid(t *testing.T) {
	repo := setupRepo(t)

	tests := []struct {
		name  string
		entry AuditLog
	}{
		{"missing action", AuditLog{EntityType: EntityBin}},
		{"missing entity type", AuditLog{Action: ActionCreate}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(context.Background(), &tt.entry)
			if !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Create() error = %v, want ErrInvalidEntry", err)
			}
		})
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	entries := []AuditLog{
		{Action: ActionCreate, EntityType: EntityArea, EntityID: "area-1"},
		{Action: ActionCreate, EntityType: EntityDevice, EntityID: "dev-1"},
		{Action: ActionCreate, EntityType: EntityBin, EntityID: "bin-1"},
		{Action: ActionDelete, EntityType: EntityBin, EntityID: "bin-1"},
		{Action: ActionDelete, EntityType: EntityDevice, EntityID: "dev-1"},
	}
	for i := range entries {
		entries[i].Source = "api"
		// Sub-second offsets check the stored layout keeps ordering.
		entries[i].CreatedAt = base.Add(time.Duration(i) * 500 * time.Millisecond)
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantIDs   []string
	}{
		{"all newest first", Filter{}, 5, []string{"dev-1", "bin-1", "bin-1", "dev-1", "area-1"}},
		{"by action", Filter{Action: ActionDelete}, 2, []string{"dev-1", "bin-1"}},
		{"by entity type", Filter{EntityType: EntityBin}, 2, []string{"bin-1", "bin-1"}},
		{"by entity id", Filter{EntityID: "dev-1"}, 2, []string{"dev-1", "dev-1"}},
		{"combined", Filter{Action: ActionCreate, EntityType: EntityArea}, 1, []string{"area-1"}},
		{"paged", Filter{Limit: 2, Offset: 1}, 5, []string{"bin-1", "bin-1"}},
		{"no match", Filter{EntityID: "missing"}, 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if len(res.Logs) != len(tt.wantIDs) {
				t.Fatalf("len(Logs) = %d, want %d", len(res.Logs), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if res.Logs[i].EntityID != id {
					t.Errorf("Logs[%d].EntityID = %q, want %q", i, res.Logs[i].EntityID, id)
				}
			}
		})
	}
}

func TestSQLiteRepository_ListClamp(t *testing.T) {
	repo := setupRepo(t)

	tests := []struct {
		name       string
		filter     Filter
		wantLimit  int
		wantOffset int
	}{
		{"defaults", Filter{}, DefaultLimit, 0},
		{"over max", Filter{Limit: 1000}, MaxLimit, 0},
		{"negative offset", Filter{Limit: 10, Offset: -3}, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Limit != tt.wantLimit || res.Offset != tt.wantOffset {
				t.Errorf("Limit, Offset = %d, %d, want %d, %d", res.Limit, res.Offset, tt.wantLimit, tt.wantOffset)
			}
			if res.Logs == nil {
				t.Error("Logs should be an empty slice, not nil")
			}
		})
	}
}
