package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveid/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// Matcher interface for the matching service
type Matcher interface {
	Identify(ctx context.Context, embedding []float64) (*domain.MatchResult, error)
	Verify(ctx context.Context, ownerID uuid.UUID, embedding []float64) (*domain.MatchResult, error)
}

// Embedder turns an image region into an embedding vector
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float64, error)
}

// IdentifyLimiter throttles identification attempts per caller
type IdentifyLimiter interface {
	CheckIdentifyLimit(ctx context.Context, callerKey string, limit int) error
}

// MatchHandler handles identification and verification requests
type MatchHandler struct {
	matcher  Matcher
	embedder Embedder
	limiter  IdentifyLimiter
	limit    int
	logger   *slog.Logger
}

// NewMatchHandler cria uma nova instância de MatchHandler
func NewMatchHandler(matcher Matcher, embedder Embedder, limiter IdentifyLimiter, limit int, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		matcher:  matcher,
		embedder: embedder,
		limiter:  limiter,
		limit:    limit,
		logger:   logger,
	}
}

// MatchRequest carries either a ready embedding or a base64 image for the
// embedding oracle to process
type MatchRequest struct {
	OwnerID   string    `json:"owner_id,omitempty"`
	Embedding []float64 `json:"embedding,omitempty"`
	Image     string    `json:"image,omitempty"`
}

// MatchResponse response for identify and verify endpoints
type MatchResponse struct {
	Matched    bool    `json:"matched"`
	OwnerID    string  `json:"owner_id,omitempty"`
	Similarity float64 `json:"similarity"`
	Confidence string  `json:"confidence"`
}

// Identify POST /v1/identify - 1:N search across all galleries
func (h *MatchHandler) Identify(c *fiber.Ctx) error {
	if err := h.checkLimit(c); err != nil {
		return err
	}

	var req MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	embedding, err := h.resolveEmbedding(c.Context(), &req)
	if err != nil {
		return err
	}

	result, err := h.matcher.Identify(c.Context(), embedding)
	if err != nil {
		return err
	}

	return c.JSON(toMatchResponse(result))
}

// Verify POST /v1/verify - 1:1 check against a claimed identity
func (h *MatchHandler) Verify(c *fiber.Ctx) error {
	if err := h.checkLimit(c); err != nil {
		return err
	}

	var req MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	if req.OwnerID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("owner_id is required"))
	}
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("owner_id must be a valid UUID"))
	}

	embedding, err := h.resolveEmbedding(c.Context(), &req)
	if err != nil {
		return err
	}

	result, err := h.matcher.Verify(c.Context(), ownerID, embedding)
	if err != nil {
		return err
	}

	return c.JSON(toMatchResponse(result))
}

func (h *MatchHandler) checkLimit(c *fiber.Ctx) error {
	if h.limiter == nil {
		return nil
	}

	key, err := middleware.GetClientKey(c)
	if err != nil {
		return err
	}

	return h.limiter.CheckIdentifyLimit(c.Context(), key, h.limit)
}

// resolveEmbedding prefers a ready embedding; otherwise the raw image goes
// through the embedding oracle
func (h *MatchHandler) resolveEmbedding(ctx context.Context, req *MatchRequest) ([]float64, error) {
	if len(req.Embedding) > 0 {
		return req.Embedding, nil
	}

	if req.Image == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("embedding or image is required"))
	}
	if h.embedder == nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("image input is not supported"))
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	embedding, err := h.embedder.Embed(ctx, image)
	if err != nil {
		return nil, err
	}

	return embedding, nil
}

func toMatchResponse(result *domain.MatchResult) MatchResponse {
	resp := MatchResponse{
		Matched:    result.Matched,
		Similarity: result.Similarity,
		Confidence: string(result.Tier),
	}
	if result.Matched {
		resp.OwnerID = result.OwnerID.String()
	}
	return resp
}
