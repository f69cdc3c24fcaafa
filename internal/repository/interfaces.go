package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool the repositories use.
// Satisfied by pgxmock in tests.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// GalleryRepositoryInterface defines operations for enrolled embeddings
type GalleryRepositoryInterface interface {
	ReplaceGallery(ctx context.Context, ownerID uuid.UUID, records []domain.EmbeddingRecord) error
	ListAll(ctx context.Context) ([]domain.EmbeddingRecord, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.EmbeddingRecord, error)
	DeleteGallery(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// AttemptRepositoryInterface defines operations for attempt audit records
type AttemptRepositoryInterface interface {
	Create(ctx context.Context, attempt *domain.Attempt) error
}

// SessionRepositoryInterface defines operations for capture sessions
type SessionRepositoryInterface interface {
	Create(ctx context.Context, session *domain.CaptureSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CaptureSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context) (int64, error)
}
