package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/metrics"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// ErrRecordNotFound is returned when no record has the requested id
var ErrRecordNotFound = errors.New("record not found")

// Repository provides database operations
type Repository struct {
	db     *DB
	logger *logging.Logger
}

// NewRepository creates a new repository
func NewRepository(db *DB, logger *logging.Logger) *Repository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Repository{db: db, logger: logger}
}

// Records

// CreateRecord creates a new record
func (r *Repository) CreateRecord(ctx context.Context, record *models.Record) error {
	start := time.Now()
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if len(record.Data) == 0 {
		record.Data = []byte("{}")
	}

	query := `
		INSERT INTO records (id, kind, name, data)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		record.ID, record.Kind, record.Name, record.Data,
	).Scan(&record.CreatedAt, &record.UpdatedAt)

	r.observe("create_record", start, err)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}

	return nil
}

// GetRecord retrieves a record by ID
func (r *Repository) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	start := time.Now()
	var record models.Record

	query := `
		SELECT id, kind, name, data, created_at, updated_at
		FROM records
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&record.ID, &record.Kind, &record.Name, &record.Data,
		&record.CreatedAt, &record.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		r.observe("get_record", start, nil)
		return nil, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
	}
	r.observe("get_record", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return &record, nil
}

// UpdateRecord replaces a record's name and data
func (r *Repository) UpdateRecord(ctx context.Context, record *models.Record) error {
	start := time.Now()
	query := `
		UPDATE records
		SET name = $2, data = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING kind, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query, record.ID, record.Name, record.Data).Scan(
		&record.Kind, &record.CreatedAt, &record.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		r.observe("update_record", start, nil)
		return fmt.Errorf("record %s: %w", record.ID, ErrRecordNotFound)
	}
	r.observe("update_record", start, err)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	return nil
}

// ListRecords retrieves records with pagination, newest first. An empty
// kind lists every kind.
func (r *Repository) ListRecords(ctx context.Context, kind models.RecordKind, limit, offset int) ([]*models.Record, error) {
	start := time.Now()
	query := `
		SELECT id, kind, name, data, created_at, updated_at
		FROM records
		WHERE $1 = '' OR kind = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, string(kind), limit, offset)
	if err != nil {
		r.observe("list_records", start, err)
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []*models.Record{}
	for rows.Next() {
		var record models.Record
		err := rows.Scan(
			&record.ID, &record.Kind, &record.Name, &record.Data,
			&record.CreatedAt, &record.UpdatedAt,
		)
		if err != nil {
			r.observe("list_records", start, err)
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, &record)
	}
	r.observe("list_records", start, rows.Err())

	return records, rows.Err()
}

// DeleteRecord deletes a record
func (r *Repository) DeleteRecord(ctx context.Context, id string) error {
	start := time.Now()
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	r.observe("delete_record", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
	}
	return nil
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

func (r *Repository) observe(operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordDatabaseOperation(operation, status, elapsed.Seconds())
	r.logger.LogDatabaseOperation(operation, elapsed, err)
}
