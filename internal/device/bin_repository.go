package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/smartbin-core/internal/infrastructure/database"
)

// BinRepository defines the interface for compartment persistence.
// Implementations must be safe for concurrent use.
type BinRepository interface {
	// Create inserts a new bin. Returns ErrBinExists if the ID is taken.
	Create(ctx context.Context, b *Bin) error

	// GetByID retrieves a bin by its ID.
	GetByID(ctx context.Context, id string) (*Bin, error)

	// List retrieves all bins.
	List(ctx context.Context) ([]Bin, error)

	// ListByDevice retrieves the bins of one device.
	ListByDevice(ctx context.Context, deviceID string) ([]Bin, error)

	// SetLevel writes the fill level and merges meta in one statement.
	SetLevel(ctx context.Context, id string, level float64, meta Meta) error

	// MergeMeta shallow-merges meta into the stored metadata.
	MergeMeta(ctx context.Context, id string, meta Meta) error

	// DeleteByDevice removes every bin of a device and returns the count.
	DeleteByDevice(ctx context.Context, deviceID string) (int64, error)

	// Delete removes a single bin.
	Delete(ctx context.Context, id string) error
}

// SQLiteBinRepository implements BinRepository using SQLite.
type SQLiteBinRepository struct {
	db *sql.DB
}

// NewSQLiteBinRepository creates a new SQLite-backed bin repository.
func NewSQLiteBinRepository(db *sql.DB) *SQLiteBinRepository {
	return &SQLiteBinRepository{db: db}
}

const selectBinColumns = `
	SELECT id, device_id, assigned_type, level_percent, meta, created_at, updated_at
	FROM bins`

// Create inserts a new bin.
func (r *SQLiteBinRepository) Create(ctx context.Context, b *Bin) error {
	if b.Meta == nil {
		b.Meta = Meta{}
	}
	metaJSON, err := json.Marshal(b.Meta)
	if err != nil {
		return fmt.Errorf("marshalling meta: %w", err)
	}

	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO bins (id, device_id, assigned_type, level_percent, meta, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.DeviceID, b.Type, b.LevelPercent, string(metaJSON),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrBinExists
		}
		return fmt.Errorf("inserting bin: %w", err)
	}
	return nil
}

// GetByID retrieves a bin by its ID.
func (r *SQLiteBinRepository) GetByID(ctx context.Context, id string) (*Bin, error) {
	row := r.db.QueryRowContext(ctx, selectBinColumns+` WHERE id = ?`, id)
	return scanBin(row)
}

// List retrieves all bins.
func (r *SQLiteBinRepository) List(ctx context.Context) ([]Bin, error) {
	return r.query(ctx, selectBinColumns+` ORDER BY id`)
}

// ListByDevice retrieves the bins of one device.
func (r *SQLiteBinRepository) ListByDevice(ctx context.Context, deviceID string) ([]Bin, error) {
	return r.query(ctx, selectBinColumns+` WHERE device_id = ? ORDER BY id`, deviceID)
}

func (r *SQLiteBinRepository) query(ctx context.Context, query string, args ...any) ([]Bin, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bins: %w", err)
	}
	defer rows.Close()

	var bins []Bin
	for rows.Next() {
		b, err := scanBin(rows)
		if err != nil {
			return nil, err
		}
		bins = append(bins, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bins: %w", err)
	}
	return bins, nil
}

// SetLevel writes level and merges meta.
func (r *SQLiteBinRepository) SetLevel(ctx context.Context, id string, level float64, meta Meta) error {
	expr, metaArgs, err := database.ShallowMergeSQL("meta", meta)
	if err != nil {
		return fmt.Errorf("merging meta: %w", err)
	}
	args := append([]any{level}, metaArgs...)
	result, err := r.db.ExecContext(ctx, `
		UPDATE bins SET level_percent = ?, meta = `+expr+`,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`,
		append(args, id)...)
	if err != nil {
		return fmt.Errorf("updating bin %s level: %w", id, err)
	}
	return requireBinRow(result)
}

// MergeMeta shallow-merges meta into the bin metadata.
func (r *SQLiteBinRepository) MergeMeta(ctx context.Context, id string, meta Meta) error {
	expr, args, err := database.ShallowMergeSQL("meta", meta)
	if err != nil {
		return fmt.Errorf("merging meta: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE bins SET meta = `+expr+`,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`,
		append(args, id)...)
	if err != nil {
		return fmt.Errorf("merging bin %s meta: %w", id, err)
	}
	return requireBinRow(result)
}

// DeleteByDevice removes every bin belonging to deviceID.
func (r *SQLiteBinRepository) DeleteByDevice(ctx context.Context, deviceID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM bins WHERE device_id = ?", deviceID)
	if err != nil {
		return 0, fmt.Errorf("deleting bins of device %s: %w", deviceID, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	return n, nil
}

// Delete removes a single bin by ID.
func (r *SQLiteBinRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM bins WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting bin: %w", err)
	}
	return requireBinRow(result)
}

func scanBin(row rowScanner) (*Bin, error) {
	var b Bin
	var metaJSON, createdAt, updatedAt string

	err := row.Scan(&b.ID, &b.DeviceID, &b.Type, &b.LevelPercent, &metaJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBinNotFound
		}
		return nil, fmt.Errorf("scanning bin: %w", err)
	}

	b.Meta = Meta{}
	if err := json.Unmarshal([]byte(metaJSON), &b.Meta); err != nil {
		return nil, fmt.Errorf("unmarshalling bin meta: %w", err)
	}
	if b.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &b, nil
}

func requireBinRow(result sql.Result) error {
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrBinNotFound
	}
	return nil
}
