package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

type AttemptRepository struct {
	pool PgxPool
}

func NewAttemptRepository(pool PgxPool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func (r *AttemptRepository) Create(ctx context.Context, attempt *domain.Attempt) error {
	query := `
		INSERT INTO attempts (id, owner_id, kind, succeeded, confidence, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`

	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		attempt.ID,
		attempt.OwnerID,
		attempt.Kind,
		attempt.Succeeded,
		attempt.Confidence,
		attempt.LatencyMs,
	).Scan(&attempt.CreatedAt)

	if err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}

	return nil
}
