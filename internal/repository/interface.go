package repository

import (
	"context"

	"github.com/google/uuid"

	"verbatim/internal/model"
)

// Store defines the interface for finished-job history access.
type Store interface {
	// Save persists a finished job's summary record.
	Save(ctx context.Context, rec *model.JobRecord) error

	// GetByID retrieves a job record by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.JobRecord, error)

	// List retrieves job records with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]model.JobRecord, error)

	// Search retrieves job records whose source name or transcript
	// matches the query.
	Search(ctx context.Context, query string, limit, offset int) ([]model.JobRecord, error)

	// Delete removes a job record.
	Delete(ctx context.Context, id uuid.UUID) error

	// Close releases the underlying database handle.
	Close() error
}
