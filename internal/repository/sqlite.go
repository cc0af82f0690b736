package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"verbatim/internal/model"
)

// ErrNotFound is returned when a job record does not exist.
var ErrNotFound = errors.New("job record not found")

const schema = `
CREATE TABLE IF NOT EXISTS job_records (
	id TEXT PRIMARY KEY,
	source_name TEXT NOT NULL,
	status TEXT NOT NULL,
	error_kind TEXT,
	error_message TEXT,
	language TEXT,
	duration_seconds REAL,
	word_count INTEGER NOT NULL DEFAULT 0,
	transcript TEXT,
	subtitle_path TEXT,
	created_at TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_job_records_created_at ON job_records(created_at);
`

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the history database at path.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under concurrent job completions.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

// Save persists a record, replacing any previous row for the same job.
func (s *sqliteStore) Save(ctx context.Context, rec *model.JobRecord) error {
	query := `
		INSERT OR REPLACE INTO job_records (
			id, source_name, status, error_kind, error_message, language,
			duration_seconds, word_count, transcript, subtitle_path,
			created_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var finished *string
	if rec.FinishedAt != nil {
		v := rec.FinishedAt.UTC().Format(time.RFC3339Nano)
		finished = &v
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.ID.String(),
		rec.SourceName,
		string(rec.Status),
		rec.ErrorKind,
		rec.ErrorMessage,
		rec.Language,
		rec.DurationSec,
		rec.WordCount,
		rec.Transcript,
		rec.SubtitlePath,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		finished,
	)
	if err != nil {
		return fmt.Errorf("failed to save job record: %w", err)
	}
	return nil
}

const selectColumns = `
	id, source_name, status, error_kind, error_message, language,
	duration_seconds, word_count, transcript, subtitle_path,
	created_at, finished_at
`

// GetByID retrieves one record.
func (s *sqliteStore) GetByID(ctx context.Context, id uuid.UUID) (*model.JobRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM job_records WHERE id = ?`, id.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}
	return rec, nil
}

// List retrieves records ordered by creation time, newest first.
func (s *sqliteStore) List(ctx context.Context, limit, offset int) ([]model.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM job_records ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list job records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Search matches records by source name or transcript content.
func (s *sqliteStore) Search(ctx context.Context, query string, limit, offset int) ([]model.JobRecord, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM job_records
		 WHERE source_name LIKE ? OR transcript LIKE ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		pattern, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search job records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Delete removes one record.
func (s *sqliteStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM job_records WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete job record: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the database handle.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.JobRecord, error) {
	var rec model.JobRecord
	var id, status, createdAt string
	var finishedAt *string
	err := row.Scan(
		&id,
		&rec.SourceName,
		&status,
		&rec.ErrorKind,
		&rec.ErrorMessage,
		&rec.Language,
		&rec.DurationSec,
		&rec.WordCount,
		&rec.Transcript,
		&rec.SubtitlePath,
		&createdAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt job record id %q: %w", id, err)
	}
	rec.ID = parsed
	rec.Status = model.JobStatus(status)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if finishedAt != nil {
		if t, err := time.Parse(time.RFC3339Nano, *finishedAt); err == nil {
			rec.FinishedAt = &t
		}
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]model.JobRecord, error) {
	records := make([]model.JobRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
