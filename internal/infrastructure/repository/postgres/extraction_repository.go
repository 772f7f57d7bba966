package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mkarpenko/invoice-extract/internal/core/domain"
)

type ExtractionRepository struct {
	db *sql.DB
}

func NewExtractionRepository(db *sql.DB) *ExtractionRepository {
	return &ExtractionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ExtractionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS extractions (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	backend TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT,
	record JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extractions_status ON extractions(status);
CREATE INDEX IF NOT EXISTS idx_extractions_created_at ON extractions(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ExtractionRepository) Create(ctx context.Context, ext *domain.Extraction) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO extractions (
	id, filename, mime_type, storage_path, backend, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		ext.ID, ext.Filename, ext.MimeType, ext.StoragePath, ext.Backend,
		string(ext.Status), ext.Error, ext.CreatedAt, ext.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert extraction: %w", err)
	}
	return nil
}

func (r *ExtractionRepository) GetByID(ctx context.Context, id string) (*domain.Extraction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, backend, status, error_message, record, created_at, updated_at
FROM extractions
WHERE id = $1
`, id)

	var ext domain.Extraction
	var status string
	var errMessage sql.NullString
	var recordRaw []byte

	err := row.Scan(
		&ext.ID, &ext.Filename, &ext.MimeType, &ext.StoragePath, &ext.Backend,
		&status, &errMessage, &recordRaw, &ext.CreatedAt, &ext.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrExtractionNotFound, "fetch extraction", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan extraction: %w", err)
	}

	ext.Status = domain.ExtractionStatus(status)
	ext.Error = errMessage.String
	if len(recordRaw) > 0 {
		var record domain.InvoiceRecord
		if err := json.Unmarshal(recordRaw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		ext.Record = &record
	}
	return &ext, nil
}

func (r *ExtractionRepository) UpdateStatus(ctx context.Context, id string, status domain.ExtractionStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE extractions
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update extraction status: %w", err)
	}
	return requireRowAffected(res, "update extraction status", id)
}

func (r *ExtractionRepository) SaveRecord(ctx context.Context, id, backend string, record domain.InvoiceRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE extractions
SET backend = $2, record = $3, updated_at = $4
WHERE id = $1
`, id, backend, recordJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return requireRowAffected(res, "save record", id)
}

func requireRowAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrExtractionNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
