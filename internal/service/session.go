package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveid/internal/audit"
	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

const defaultSessionTTL = 10 * time.Minute

type SessionRepositoryInterface interface {
	Create(ctx context.Context, session *domain.CaptureSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CaptureSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionService manages the short-lived capture sessions that own one
// challenge engine each
type SessionService struct {
	repo     SessionRepositoryInterface
	auditLog audit.Logger
	ttl      time.Duration
}

func NewSessionService(repo SessionRepositoryInterface) *SessionService {
	return &SessionService{
		repo:     repo,
		auditLog: &audit.NoOpLogger{},
		ttl:      defaultSessionTTL,
	}
}

// WithTTL overrides the session lifetime
func (s *SessionService) WithTTL(ttl time.Duration) *SessionService {
	s.ttl = ttl
	return s
}

// WithAudit sets the audit logger used for session lifecycle events
func (s *SessionService) WithAudit(logger audit.Logger) *SessionService {
	s.auditLog = logger
	return s
}

// Create opens a new capture session for a subject
func (s *SessionService) Create(ctx context.Context, subjectID uuid.UUID, purpose domain.SessionPurpose) (*domain.CaptureSession, error) {
	if !purpose.IsValid() {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("unknown purpose %q", purpose))
	}
	if purpose == domain.PurposeEnrollment && subjectID == uuid.Nil {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("subject_id is required for enrollment"))
	}

	session := &domain.CaptureSession{
		SubjectID: subjectID,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create capture session: %w", err)
	}

	event := audit.Event{
		SessionID: session.ID.String(),
		EventType: audit.EventSessionCreated,
		Success:   true,
		Metadata:  map[string]string{"purpose": string(purpose)},
	}
	if subjectID != uuid.Nil {
		event.SubjectID = subjectID.String()
	}
	_ = s.auditLog.Log(ctx, event)

	return session, nil
}

// Validate returns the session if it exists and has not expired
func (s *SessionService) Validate(ctx context.Context, id uuid.UUID) (*domain.CaptureSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		return nil, domain.ErrSessionExpired
	}

	return session, nil
}

// Close removes a finished session
func (s *SessionService) Close(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.auditLog.Log(ctx, audit.Event{
		SessionID: id.String(),
		EventType: audit.EventSessionClosed,
		Success:   true,
	})
	return nil
}

// StartSweeper periodically deletes expired sessions until ctx is cancelled
func (s *SessionService) StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.repo.DeleteExpired(ctx)
				if err != nil {
					logger.Warn("session sweep failed", slog.Any("error", err))
					continue
				}
				if deleted > 0 {
					logger.Debug("expired sessions removed", slog.Int64("count", deleted))
				}
			}
		}
	}()
}
