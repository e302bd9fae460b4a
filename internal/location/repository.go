package location

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/smartbin-core/internal/infrastructure/database"
)

// Repository defines the interface for area persistence operations.
//
// Every mutating method is a single SQL statement; there is no cross-row
// transaction. Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new area. Returns ErrAreaExists if the slug is taken.
	Create(ctx context.Context, area *Area) error

	// Get retrieves an area by internal ID.
	Get(ctx context.Context, id string) (*Area, error)

	// Resolve retrieves an area by internal ID or, failing that, by slug.
	Resolve(ctx context.Context, ref string) (*Area, error)

	// List returns all areas ordered by name.
	List(ctx context.Context) ([]Area, error)

	// Rename changes the display name. The slug is left untouched.
	Rename(ctx context.Context, id, name string) error

	// MergeMeta shallow-merges meta into the stored metadata.
	MergeMeta(ctx context.Context, id string, meta Meta) error

	// AddDevice inserts deviceID into the area's device set.
	// Adding an id that is already present is a no-op.
	AddDevice(ctx context.Context, areaID, deviceID string) error

	// RemoveDevice removes deviceID from the area's device set.
	// Removing an absent id is a no-op.
	RemoveDevice(ctx context.Context, areaID, deviceID string) error

	// Delete removes the area row only. Owned devices are not touched.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed area repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectAreaColumns = `SELECT id, slug, name, devices, meta, created_at, updated_at FROM areas`

// Create inserts a new area into the database.
func (r *SQLiteRepository) Create(ctx context.Context, area *Area) error {
	devices, err := marshalDevices(area.Devices)
	if err != nil {
		return err
	}
	meta, err := marshalMeta(area.Meta)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	area.CreatedAt = now
	area.UpdatedAt = now

	const query = `INSERT INTO areas (id, slug, name, devices, meta, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		area.ID, area.Slug, area.Name, devices, meta,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAreaExists
		}
		return fmt.Errorf("inserting area %s: %w", area.ID, err)
	}
	return nil
}

// Get returns a single area by internal ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Area, error) {
	row := r.db.QueryRowContext(ctx, selectAreaColumns+` WHERE id = ?`, id)
	return scanArea(row)
}

// Resolve returns the area whose internal ID equals ref, or else the area
// whose slug equals ref. An ID match always wins over a slug match.
func (r *SQLiteRepository) Resolve(ctx context.Context, ref string) (*Area, error) {
	row := r.db.QueryRowContext(ctx,
		selectAreaColumns+` WHERE id = ? OR slug = ? ORDER BY (id = ?) DESC LIMIT 1`,
		ref, ref, ref)
	return scanArea(row)
}

// List returns all areas ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Area, error) {
	rows, err := r.db.QueryContext(ctx, selectAreaColumns+` ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying areas: %w", err)
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating area rows: %w", err)
	}
	return areas, nil
}

// Rename updates the display name of an area.
func (r *SQLiteRepository) Rename(ctx context.Context, id, name string) error {
	const query = `UPDATE areas SET name = ?,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("renaming area %s: %w", id, err)
	}
	return requireRow(result)
}

// MergeMeta shallow-merges meta into the area metadata. Top-level keys are
// replaced whole.
func (r *SQLiteRepository) MergeMeta(ctx context.Context, id string, meta Meta) error {
	expr, args, err := database.ShallowMergeSQL("meta", meta)
	if err != nil {
		return fmt.Errorf("merging area %s meta: %w", id, err)
	}
	query := `UPDATE areas SET meta = ` + expr + `,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("merging area %s meta: %w", id, err)
	}
	return requireRow(result)
}

// AddDevice appends deviceID to the device set unless already present.
// The membership check and the append happen in one statement.
func (r *SQLiteRepository) AddDevice(ctx context.Context, areaID, deviceID string) error {
	const query = `UPDATE areas SET devices = json_insert(devices, '$[#]', ?),
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?
		AND NOT EXISTS (SELECT 1 FROM json_each(areas.devices) WHERE value = ?)`
	result, err := r.db.ExecContext(ctx, query, deviceID, areaID, deviceID)
	if err != nil {
		return fmt.Errorf("adding device %s to area %s: %w", deviceID, areaID, err)
	}
	if n, _ := result.RowsAffected(); n > 0 { //nolint:errcheck // SQLite always supports RowsAffected
		return nil
	}
	// Nothing changed: either the id was already a member or the area is gone.
	return r.exists(ctx, areaID)
}

// RemoveDevice filters deviceID out of the device set.
func (r *SQLiteRepository) RemoveDevice(ctx context.Context, areaID, deviceID string) error {
	const query = `UPDATE areas SET devices = (
			SELECT COALESCE(json_group_array(value), '[]')
			FROM json_each(areas.devices) WHERE value <> ?
		),
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, deviceID, areaID)
	if err != nil {
		return fmt.Errorf("removing device %s from area %s: %w", deviceID, areaID, err)
	}
	return requireRow(result)
}

// Delete removes a single area by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM areas WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting area %s: %w", id, err)
	}
	return requireRow(result)
}

func (r *SQLiteRepository) exists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM areas WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAreaNotFound
	}
	if err != nil {
		return fmt.Errorf("checking area %s: %w", id, err)
	}
	return nil
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArea(row rowScanner) (*Area, error) {
	var a Area
	var devicesJSON, metaJSON, createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.Slug, &a.Name, &devicesJSON, &metaJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAreaNotFound
		}
		return nil, fmt.Errorf("scanning area: %w", err)
	}

	a.Devices = []string{}
	if err := json.Unmarshal([]byte(devicesJSON), &a.Devices); err != nil {
		return nil, fmt.Errorf("unmarshalling area devices: %w", err)
	}
	a.Meta = Meta{}
	if err := json.Unmarshal([]byte(metaJSON), &a.Meta); err != nil {
		return nil, fmt.Errorf("unmarshalling area meta: %w", err)
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func requireRow(result sql.Result) error {
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrAreaNotFound
	}
	return nil
}

func marshalDevices(ids []string) (string, error) {
	if ids == nil {
		return "[]", nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshalling area devices: %w", err)
	}
	return string(b), nil
}

func marshalMeta(m Meta) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling area meta: %w", err)
	}
	return string(b), nil
}

// parseTime parses an ISO 8601 timestamp from SQLite.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// isUniqueConstraintError checks for SQLite UNIQUE constraint violations.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
