package device

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

// Repository defines the interface for device persistence operations.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new device. Returns ErrDeviceExists if the ID is
	// taken or ErrCorrelationIDInUse if client_id_mqtt is taken.
	Create(ctx context.Context, d *Device) error

	// GetByID retrieves a device by its ID.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByCorrelationID retrieves the device bound to a client_id_mqtt.
	GetByCorrelationID(ctx context.Context, clientID string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// ListByArea retrieves the devices whose owning area is areaID.
	ListByArea(ctx context.Context, areaID string) ([]Device, error)

	// Rename changes the display name.
	Rename(ctx context.Context, id, name string) error

	// MergeMeta shallow-merges meta into the stored metadata.
	MergeMeta(ctx context.Context, id string, meta Meta) error

	// SetBins replaces the device's bin id list.
	SetBins(ctx context.Context, id string, binIDs []string) error

	// RemoveBin removes one id from the device's bin id list.
	RemoveBin(ctx context.Context, id, binID string) error

	// ApplyStatus applies a partial status update in one statement.
	ApplyStatus(ctx context.Context, id string, patch StatusPatch) error

	// SetColor replaces the latest color observation.
	SetColor(ctx context.Context, id string, obs ColorObservation) error

	// SetProximity replaces the latest proximity observation.
	SetProximity(ctx context.Context, id string, obs ProximityObservation) error

	// Touch records that telemetry for the device was seen at the given time.
	Touch(ctx context.Context, id string, at time.Time) error

	// MarkStaleOffline sets every online device whose last_seen is before
	// cutoff to offline and returns the affected ids.
	MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]string, error)

	// Delete removes the device row only. Bins are not touched.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed device repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectDeviceColumns = `
	SELECT id, name, area_id, model, status, client_id_mqtt,
	       last_color, last_proximity, bins, meta, last_seen,
	       created_at, updated_at
	FROM devices`

// Create inserts a new device into the database.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	if d.Model == "" {
		d.Model = DefaultModel
	}
	if d.Status == "" {
		d.Status = StatusUnknown
	}
	if d.Bins == nil {
		d.Bins = []string{}
	}
	if d.Meta == nil {
		d.Meta = Meta{}
	}

	binsJSON, err := json.Marshal(d.Bins)
	if err != nil {
		return fmt.Errorf("marshalling bins: %w", err)
	}
	metaJSON, err := json.Marshal(d.Meta)
	if err != nil {
		return fmt.Errorf("marshalling meta: %w", err)
	}

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
		INSERT INTO devices (
			id, name, area_id, model, status, client_id_mqtt,
			bins, meta, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID,
		d.Name,
		d.AreaID,
		d.Model,
		string(d.Status),
		nullableString(d.ClientIDMQTT),
		string(binsJSON),
		string(metaJSON),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return translateUniqueError(err, ErrDeviceExists, "inserting device")
	}
	return nil
}

// GetByID retrieves a device by its ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDeviceColumns+` WHERE id = ?`, id)
	return scanDevice(row)
}

// GetByCorrelationID retrieves the device bound to clientID.
func (r *SQLiteRepository) GetByCorrelationID(ctx context.Context, clientID string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDeviceColumns+` WHERE client_id_mqtt = ?`, clientID)
	return scanDevice(row)
}

// List retrieves all devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return r.query(ctx, selectDeviceColumns+` ORDER BY name, id`)
}

// ListByArea retrieves the devices owned by areaID.
func (r *SQLiteRepository) ListByArea(ctx context.Context, areaID string) ([]Device, error) {
	return r.query(ctx, selectDeviceColumns+` WHERE area_id = ? ORDER BY name, id`, areaID)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Rename changes the display name of a device.
func (r *SQLiteRepository) Rename(ctx context.Context, id, name string) error {
	return r.update(ctx, id, `name = ?`, name)
}

// MergeMeta shallow-merges meta into the device metadata. Top-level keys
// are replaced whole.
func (r *SQLiteRepository) MergeMeta(ctx context.Context, id string, meta Meta) error {
	expr, args, err := database.ShallowMergeSQL("meta", meta)
	if err != nil {
		return fmt.Errorf("merging meta: %w", err)
	}
	return r.update(ctx, id, `meta = `+expr, args...)
}

// SetBins replaces the device's bin id list.
func (r *SQLiteRepository) SetBins(ctx context.Context, id string, binIDs []string) error {
	if binIDs == nil {
		binIDs = []string{}
	}
	binsJSON, err := json.Marshal(binIDs)
	if err != nil {
		return fmt.Errorf("marshalling bins: %w", err)
	}
	return r.update(ctx, id, `bins = ?`, string(binsJSON))
}

// RemoveBin filters binID out of the device's bin id list.
func (r *SQLiteRepository) RemoveBin(ctx context.Context, id, binID string) error {
	return r.update(ctx, id,
		`bins = (SELECT COALESCE(json_group_array(value), '[]') FROM json_each(devices.bins) WHERE value <> ?)`,
		binID)
}

// ApplyStatus applies patch in a single statement. Nil fields keep their
// stored value; meta is merged.
func (r *SQLiteRepository) ApplyStatus(ctx context.Context, id string, patch StatusPatch) error {
	var status sql.NullString
	if patch.Status != nil {
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	expr, metaArgs, err := database.ShallowMergeSQL("meta", patch.Meta)
	if err != nil {
		return fmt.Errorf("merging meta: %w", err)
	}

	args := append([]any{status, nullableString(patch.ClientIDMQTT)}, metaArgs...)
	err = r.update(ctx, id,
		`status = COALESCE(?, status), client_id_mqtt = COALESCE(?, client_id_mqtt), meta = `+expr,
		args...)
	if err != nil {
		return translateUniqueError(err, ErrCorrelationIDInUse, "applying status")
	}
	return nil
}

// SetColor replaces the latest color observation.
func (r *SQLiteRepository) SetColor(ctx context.Context, id string, obs ColorObservation) error {
	b, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshalling color: %w", err)
	}
	return r.update(ctx, id, `last_color = ?`, string(b))
}

// SetProximity replaces the latest proximity observation.
func (r *SQLiteRepository) SetProximity(ctx context.Context, id string, obs ProximityObservation) error {
	b, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshalling proximity: %w", err)
	}
	return r.update(ctx, id, `last_proximity = ?`, string(b))
}

// Touch records telemetry activity.
func (r *SQLiteRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, `last_seen = ?`, at.UTC().Format(time.RFC3339))
}

// MarkStaleOffline flips silent online devices to offline.
func (r *SQLiteRepository) MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `
		UPDATE devices SET status = 'offline',
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE status = 'online' AND last_seen IS NOT NULL AND last_seen < ?
		RETURNING id`
	rows, err := r.db.QueryContext(ctx, query, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("marking stale devices offline: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning stale device id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stale devices: %w", err)
	}
	return ids, nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireDeviceRow(result)
}

// update runs a single-statement UPDATE of the given SET clause and bumps
// updated_at. Returns ErrDeviceNotFound when no row matched.
func (r *SQLiteRepository) update(ctx context.Context, id, set string, args ...any) error {
	query := `UPDATE devices SET ` + set + `,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("updating device %s: %w", id, err)
	}
	return requireDeviceRow(result)
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var d Device
	var status string
	var clientID, colorJSON, proximityJSON, lastSeen sql.NullString
	var binsJSON, metaJSON, createdAt, updatedAt string

	err := row.Scan(
		&d.ID, &d.Name, &d.AreaID, &d.Model, &status, &clientID,
		&colorJSON, &proximityJSON, &binsJSON, &metaJSON, &lastSeen,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	d.Status = Status(status)
	if clientID.Valid {
		d.ClientIDMQTT = &clientID.String
	}
	if colorJSON.Valid {
		var c ColorObservation
		if err := json.Unmarshal([]byte(colorJSON.String), &c); err != nil {
			return nil, fmt.Errorf("unmarshalling last_color: %w", err)
		}
		d.LastColor = &c
	}
	if proximityJSON.Valid {
		var p ProximityObservation
		if err := json.Unmarshal([]byte(proximityJSON.String), &p); err != nil {
			return nil, fmt.Errorf("unmarshalling last_proximity: %w", err)
		}
		d.LastProximity = &p
	}
	if lastSeen.Valid {
		if t, err := time.Parse(time.RFC3339, lastSeen.String); err == nil {
			d.LastSeen = &t
		}
	}

	d.Bins = []string{}
	if err := json.Unmarshal([]byte(binsJSON), &d.Bins); err != nil {
		return nil, fmt.Errorf("unmarshalling bins: %w", err)
	}
	d.Meta = Meta{}
	if err := json.Unmarshal([]byte(metaJSON), &d.Meta); err != nil {
		return nil, fmt.Errorf("unmarshalling meta: %w", err)
	}

	d.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &d, nil
}

func requireDeviceRow(result sql.Result) error {
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// translateUniqueError maps a UNIQUE violation to a domain error. Which
// column failed decides between the id sentinel and the correlation id one.
func translateUniqueError(err, idErr error, op string) error {
	if !isUniqueConstraintError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if strings.Contains(err.Error(), "client_id_mqtt") {
		return ErrCorrelationIDInUse
	}
	return idErr
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
