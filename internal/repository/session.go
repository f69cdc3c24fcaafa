package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

type SessionRepository struct {
	pool PgxPool
}

func NewSessionRepository(pool PgxPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create creates a new capture session
func (r *SessionRepository) Create(ctx context.Context, session *domain.CaptureSession) error {
	query := `
		INSERT INTO capture_sessions (id, subject_id, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		session.ID,
		session.SubjectID,
		session.Purpose,
		session.ExpiresAt,
	).Scan(&session.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create capture session: duplicate id: %w", err)
		}
		return fmt.Errorf("create capture session: %w", err)
	}

	return nil
}

// GetByID retrieves a capture session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CaptureSession, error) {
	query := `
		SELECT id, subject_id, purpose, expires_at, created_at
		FROM capture_sessions
		WHERE id = $1
	`

	var session domain.CaptureSession
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.SubjectID,
		&session.Purpose,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get capture session by id: %w", err)
	}

	return &session, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM capture_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete capture session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

// DeleteExpired removes all expired sessions
// Returns the number of deleted sessions
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM capture_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return result.RowsAffected(), nil
}
