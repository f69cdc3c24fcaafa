package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveid/internal/audit"
	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/quality"
	"github.com/saturnino-fabrica-de-software/liveid/internal/similarity"
)

const (
	defaultAcceptThreshold = 0.75
	defaultHighThreshold   = 0.85
)

// MatcherService scores a fresh embedding against enrolled galleries.
// Identify is a 1:N scan across all owners; Verify restricts the scan to a
// claimed identity.
type MatcherService struct {
	gallery         GalleryRepositoryInterface
	attempts        AttemptRepositoryInterface
	validator       *quality.Validator
	auditLog        audit.Logger
	acceptThreshold float64
	highThreshold   float64
}

func NewMatcherService(gallery GalleryRepositoryInterface, attempts AttemptRepositoryInterface) *MatcherService {
	return &MatcherService{
		gallery:         gallery,
		attempts:        attempts,
		validator:       quality.NewValidator(),
		auditLog:        &audit.NoOpLogger{},
		acceptThreshold: defaultAcceptThreshold,
		highThreshold:   defaultHighThreshold,
	}
}

// WithThresholds overrides the accept and high-confidence thresholds
func (s *MatcherService) WithThresholds(accept, high float64) *MatcherService {
	s.acceptThreshold = accept
	s.highThreshold = high
	return s
}

// WithAudit sets the audit logger used for search and verification events
func (s *MatcherService) WithAudit(logger audit.Logger) *MatcherService {
	s.auditLog = logger
	return s
}

// Identify scans the full gallery for the best match. A below-threshold best
// score is a normal negative outcome (tier none), distinct from input or
// store errors. An empty gallery is a no-match, never an error.
func (s *MatcherService) Identify(ctx context.Context, embedding []float64) (*domain.MatchResult, error) {
	start := time.Now()

	if err := s.validator.Validate(embedding); err != nil {
		return nil, domain.ErrInvalidEmbedding.WithError(err)
	}

	records, err := s.gallery.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}

	result := s.bestMatch(embedding, records)
	s.logMatch(result, domain.AttemptIdentification, start)
	s.auditMatch(ctx, audit.EventGallerySearched, result)
	return result, nil
}

// Verify scores the embedding against a single owner's gallery (1:1
// verification of a claimed identity)
func (s *MatcherService) Verify(ctx context.Context, ownerID uuid.UUID, embedding []float64) (*domain.MatchResult, error) {
	start := time.Now()

	if err := s.validator.Validate(embedding); err != nil {
		return nil, domain.ErrInvalidEmbedding.WithError(err)
	}

	records, err := s.gallery.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("owner %s: list gallery: %w", ownerID, err)
	}

	result := s.bestMatch(embedding, records)
	s.logMatch(result, domain.AttemptVerification, start)
	s.auditMatch(ctx, audit.EventSubjectVerified, result)
	return result, nil
}

// bestMatch runs the full scan: no early exit, every candidate is scored and
// the single best fused similarity wins. Stored records that fail quality
// validation are skipped so corrupt historical data cannot poison matching.
func (s *MatcherService) bestMatch(embedding []float64, records []domain.EmbeddingRecord) *domain.MatchResult {
	var (
		bestScore float64
		bestOwner uuid.UUID
		found     bool
	)

	for _, record := range records {
		if err := s.validator.Validate(record.Embedding); err != nil {
			continue
		}

		score := similarity.Fuse(embedding, record.Embedding)
		if !found || score > bestScore {
			bestScore = score
			bestOwner = record.OwnerID
			found = true
		}
	}

	if !found || bestScore < s.acceptThreshold {
		return &domain.MatchResult{
			Matched:    false,
			Similarity: bestScore,
			Tier:       domain.TierNone,
		}
	}

	tier := domain.TierMedium
	if bestScore >= s.highThreshold {
		tier = domain.TierHigh
	}

	return &domain.MatchResult{
		Matched:    true,
		OwnerID:    bestOwner,
		Similarity: bestScore,
		Tier:       tier,
	}
}

func (s *MatcherService) logMatch(result *domain.MatchResult, kind domain.AttemptKind, start time.Time) {
	if s.attempts == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	attempt := &domain.Attempt{
		Kind:       kind,
		Succeeded:  result.Matched,
		Confidence: result.Similarity,
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	if result.Matched {
		owner := result.OwnerID
		attempt.OwnerID = &owner
	}

	// Audit error is intentionally not returned; the match outcome was
	// already determined
	_ = s.attempts.Create(ctx, attempt)
}

func (s *MatcherService) auditMatch(ctx context.Context, eventType audit.EventType, result *domain.MatchResult) {
	event := audit.Event{
		EventType: eventType,
		Success:   result.Matched,
		Metadata:  map[string]string{"tier": string(result.Tier)},
	}
	if result.Matched {
		event.SubjectID = result.OwnerID.String()
	}
	_ = s.auditLog.Log(ctx, event)
}
