package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// GalleryManager interface for gallery inspection and removal
type GalleryManager interface {
	DeleteGallery(ctx context.Context, ownerID uuid.UUID) error
	GalleryStatus(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// GalleryStatusResponse reports an owner's enrollment state
type GalleryStatusResponse struct {
	OwnerID  string `json:"owner_id"`
	Enrolled bool   `json:"enrolled"`
	Samples  int    `json:"samples"`
}

// GalleryHandler handles gallery management requests
type GalleryHandler struct {
	galleries GalleryManager
	logger    *slog.Logger
}

func NewGalleryHandler(galleries GalleryManager, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{
		galleries: galleries,
		logger:    logger,
	}
}

// Status GET /v1/gallery/:owner_id - report whether an owner is enrolled
func (h *GalleryHandler) Status(c *fiber.Ctx) error {
	ownerID, err := uuid.Parse(c.Params("owner_id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("owner_id must be a valid UUID"))
	}

	count, err := h.galleries.GalleryStatus(c.Context(), ownerID)
	if err != nil {
		return err
	}

	return c.JSON(GalleryStatusResponse{
		OwnerID:  ownerID.String(),
		Enrolled: count > 0,
		Samples:  count,
	})
}

// Delete DELETE /v1/gallery/:owner_id - remove all biometric data (LGPD)
func (h *GalleryHandler) Delete(c *fiber.Ctx) error {
	ownerID, err := uuid.Parse(c.Params("owner_id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("owner_id must be a valid UUID"))
	}

	if err := h.galleries.DeleteGallery(c.Context(), ownerID); err != nil {
		return err
	}

	h.logger.Info("gallery deleted", slog.String("owner_id", ownerID.String()))

	return c.SendStatus(fiber.StatusNoContent)
}
