package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveid/internal/audit"
	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/quality"
)

// minAcceptedSamples is the smallest gallery worth enrolling; below this the
// whole operation fails and the prior gallery is left untouched
const minAcceptedSamples = 2

type GalleryRepositoryInterface interface {
	ReplaceGallery(ctx context.Context, ownerID uuid.UUID, records []domain.EmbeddingRecord) error
	ListAll(ctx context.Context) ([]domain.EmbeddingRecord, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.EmbeddingRecord, error)
	DeleteGallery(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}

type AttemptRepositoryInterface interface {
	Create(ctx context.Context, attempt *domain.Attempt) error
}

// EnrollmentService validates a batch of captured samples and atomically
// replaces the owner's biometric gallery with the accepted set.
type EnrollmentService struct {
	gallery     GalleryRepositoryInterface
	attempts    AttemptRepositoryInterface
	validator   *quality.Validator
	auditLog    audit.Logger
	minAccepted int
}

func NewEnrollmentService(gallery GalleryRepositoryInterface, attempts AttemptRepositoryInterface) *EnrollmentService {
	return &EnrollmentService{
		gallery:     gallery,
		attempts:    attempts,
		validator:   quality.NewValidator(),
		auditLog:    &audit.NoOpLogger{},
		minAccepted: minAcceptedSamples,
	}
}

// WithAudit sets the audit logger used for enrollment and deletion events
func (s *EnrollmentService) WithAudit(logger audit.Logger) *EnrollmentService {
	s.auditLog = logger
	return s
}

// Enroll re-validates every sample independently, then replaces the gallery
// in a single transaction. Partial rejection above the minimum is a success
// and is reported, not raised. On failure the result still carries the
// per-sample rejection reasons for observability.
func (s *EnrollmentService) Enroll(ctx context.Context, ownerID uuid.UUID, samples []domain.CapturedSample) (*domain.EnrollmentResult, error) {
	start := time.Now()
	result := &domain.EnrollmentResult{}

	var accepted []domain.CapturedSample
	for _, sample := range samples {
		if !sample.Type.IsValid() {
			result.Rejected = append(result.Rejected, domain.RejectedSample{
				Type:   sample.Type,
				Reason: "unknown sample type",
			})
			continue
		}
		if err := s.validator.Validate(sample.Embedding); err != nil {
			result.Rejected = append(result.Rejected, domain.RejectedSample{
				Type:   sample.Type,
				Reason: err.Error(),
			})
			continue
		}
		accepted = append(accepted, sample)
	}
	result.Accepted = len(accepted)

	if len(accepted) < s.minAccepted {
		s.logAttempt(ownerID, domain.AttemptEnrollment, false, 0, start)
		err := domain.ErrInsufficientSamples.WithError(
			fmt.Errorf("owner %s: %d accepted of %d, need %d", ownerID, len(accepted), len(samples), s.minAccepted),
		)
		s.auditEnrollment(ctx, ownerID, false, err)
		return result, err
	}

	records := make([]domain.EmbeddingRecord, 0, len(accepted))
	for _, sample := range accepted {
		records = append(records, domain.EmbeddingRecord{
			ID:           uuid.New(),
			OwnerID:      ownerID,
			Embedding:    sample.Embedding,
			Type:         sample.Type,
			QualityScore: recomputeQuality(sample.Embedding, sample.QualityScore),
		})
	}

	if err := s.gallery.ReplaceGallery(ctx, ownerID, records); err != nil {
		s.logAttempt(ownerID, domain.AttemptEnrollment, false, 0, start)
		wrapped := fmt.Errorf("owner %s: replace gallery: %w", ownerID, err)
		s.auditEnrollment(ctx, ownerID, false, wrapped)
		return result, wrapped
	}

	result.GalleryReplaced = true
	s.logAttempt(ownerID, domain.AttemptEnrollment, true, 0, start)
	s.auditEnrollment(ctx, ownerID, true, nil)
	return result, nil
}

func (s *EnrollmentService) auditEnrollment(ctx context.Context, ownerID uuid.UUID, ok bool, err error) {
	event := audit.Event{
		SubjectID: ownerID.String(),
		EventType: audit.EventSubjectEnrolled,
		Success:   ok,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = s.auditLog.Log(ctx, event)
}

// GalleryStatus reports how many embeddings an owner has enrolled
func (s *EnrollmentService) GalleryStatus(ctx context.Context, ownerID uuid.UUID) (int, error) {
	count, err := s.gallery.CountByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("owner %s: count gallery: %w", ownerID, err)
	}
	return count, nil
}

// DeleteGallery removes all enrolled embeddings for an owner
func (s *EnrollmentService) DeleteGallery(ctx context.Context, ownerID uuid.UUID) error {
	deleted, err := s.gallery.DeleteGallery(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("owner %s: delete gallery: %w", ownerID, err)
	}
	if deleted == 0 {
		return domain.ErrGalleryNotFound
	}

	_ = s.auditLog.Log(ctx, audit.Event{
		SubjectID: ownerID.String(),
		EventType: audit.EventGalleryDeleted,
		Success:   true,
		Metadata:  map[string]string{"embeddings_deleted": fmt.Sprintf("%d", deleted)},
	})
	return nil
}

// logAttempt records the outcome best-effort; a failed audit write never
// fails the operation itself
func (s *EnrollmentService) logAttempt(ownerID uuid.UUID, kind domain.AttemptKind, ok bool, confidence float64, start time.Time) {
	if s.attempts == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	owner := ownerID
	_ = s.attempts.Create(ctx, &domain.Attempt{
		OwnerID:    &owner,
		Kind:       kind,
		Succeeded:  ok,
		Confidence: confidence,
		LatencyMs:  time.Since(start).Milliseconds(),
	})
}

// recomputeQuality blends embedding magnitude and variance into a stored
// quality score instead of trusting the caller's value outright; the
// reported score acts as a floor.
func recomputeQuality(vec []float64, reported float64) float64 {
	if len(vec) == 0 {
		return clamp01(reported)
	}

	var sum, sumSq float64
	for _, v := range vec {
		sum += v
		sumSq += v * v
	}

	n := float64(len(vec))
	norm := math.Sqrt(sumSq)
	mean := sum / n
	variance := sumSq/n - mean*mean

	magScore := math.Min(norm, 1)
	varScore := math.Min(variance*n, 1)

	q := 0.6*magScore + 0.4*varScore
	if q < reported {
		q = reported
	}
	return clamp01(q)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
