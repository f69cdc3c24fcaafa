package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// SessionManager interface for the session service
type SessionManager interface {
	Create(ctx context.Context, subjectID uuid.UUID, purpose domain.SessionPurpose) (*domain.CaptureSession, error)
	Close(ctx context.Context, id uuid.UUID) error
}

// SessionHandler handles capture session requests
type SessionHandler struct {
	sessions SessionManager
	logger   *slog.Logger
}

// NewSessionHandler cria uma nova instância de SessionHandler
func NewSessionHandler(sessions SessionManager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// CreateSessionRequest request body for session creation
type CreateSessionRequest struct {
	SubjectID string `json:"subject_id,omitempty"`
	Purpose   string `json:"purpose"`
}

// SessionResponse response for session endpoints
type SessionResponse struct {
	SessionID string `json:"session_id"`
	SubjectID string `json:"subject_id,omitempty"`
	Purpose   string `json:"purpose"`
	ExpiresAt string `json:"expires_at"`
	StreamURL string `json:"stream_url"`
}

// Create POST /v1/sessions - open a capture session
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	subjectID := uuid.Nil
	if req.SubjectID != "" {
		parsed, err := uuid.Parse(req.SubjectID)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("subject_id must be a valid UUID"))
		}
		subjectID = parsed
	}

	session, err := h.sessions.Create(c.Context(), subjectID, domain.SessionPurpose(req.Purpose))
	if err != nil {
		return err
	}

	resp := SessionResponse{
		SessionID: session.ID.String(),
		Purpose:   string(session.Purpose),
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		StreamURL: "/v1/sessions/" + session.ID.String() + "/stream",
	}
	if session.SubjectID != uuid.Nil {
		resp.SubjectID = session.SubjectID.String()
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Close DELETE /v1/sessions/:id - close a capture session
func (h *SessionHandler) Close(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("session id must be a valid UUID"))
	}

	if err := h.sessions.Close(c.Context(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
