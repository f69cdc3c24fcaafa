package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

type MockGalleryRepository struct {
	mock.Mock
}

func (m *MockGalleryRepository) ReplaceGallery(ctx context.Context, ownerID uuid.UUID, records []domain.EmbeddingRecord) error {
	args := m.Called(ctx, ownerID, records)
	return args.Error(0)
}

func (m *MockGalleryRepository) ListAll(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EmbeddingRecord), args.Error(1)
}

func (m *MockGalleryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.EmbeddingRecord, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EmbeddingRecord), args.Error(1)
}

func (m *MockGalleryRepository) DeleteGallery(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGalleryRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *domain.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

// validEmbedding produces a vector that passes quality validation
func validEmbedding(seed float64) []float64 {
	vec := make([]float64, domain.EmbeddingDim)
	for i := range vec {
		vec[i] = math.Sin(float64(i)*seed + 1)
	}
	return vec
}

func validSample(t domain.SampleType) domain.CapturedSample {
	return domain.CapturedSample{
		Type:         t,
		Embedding:    validEmbedding(0.9),
		QualityScore: 0.8,
	}
}

func corruptSample(t domain.SampleType) domain.CapturedSample {
	return domain.CapturedSample{
		Type:      t,
		Embedding: make([]float64, domain.EmbeddingDim), // zero vector
	}
}

func fullSampleSet() []domain.CapturedSample {
	return []domain.CapturedSample{
		validSample(domain.SampleNormal),
		validSample(domain.SampleSmile),
		validSample(domain.SampleNod),
		validSample(domain.SampleHeadRaise),
	}
}

func TestEnrollmentService_Enroll_Success(t *testing.T) {
	gallery := new(MockGalleryRepository)
	ownerID := uuid.New()

	gallery.On("ReplaceGallery", mock.Anything, ownerID, mock.MatchedBy(func(records []domain.EmbeddingRecord) bool {
		return len(records) == 4
	})).Return(nil)

	svc := NewEnrollmentService(gallery, nil)
	result, err := svc.Enroll(context.Background(), ownerID, fullSampleSet())

	require.NoError(t, err)
	assert.Equal(t, 4, result.Accepted)
	assert.True(t, result.GalleryReplaced)
	assert.Empty(t, result.Rejected)
	gallery.AssertExpectations(t)
}

func TestEnrollmentService_Enroll_PartialRejectionStillSucceeds(t *testing.T) {
	gallery := new(MockGalleryRepository)
	ownerID := uuid.New()

	gallery.On("ReplaceGallery", mock.Anything, ownerID, mock.MatchedBy(func(records []domain.EmbeddingRecord) bool {
		return len(records) == 3
	})).Return(nil)

	samples := []domain.CapturedSample{
		validSample(domain.SampleNormal),
		validSample(domain.SampleSmile),
		corruptSample(domain.SampleNod),
		validSample(domain.SampleHeadRaise),
	}

	svc := NewEnrollmentService(gallery, nil)
	result, err := svc.Enroll(context.Background(), ownerID, samples)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Accepted)
	assert.True(t, result.GalleryReplaced)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, domain.SampleNod, result.Rejected[0].Type)
	assert.NotEmpty(t, result.Rejected[0].Reason)
}

func TestEnrollmentService_Enroll_InsufficientSamples(t *testing.T) {
	gallery := new(MockGalleryRepository)
	ownerID := uuid.New()

	samples := []domain.CapturedSample{
		validSample(domain.SampleNormal),
		corruptSample(domain.SampleSmile),
		corruptSample(domain.SampleNod),
		corruptSample(domain.SampleHeadRaise),
	}

	svc := NewEnrollmentService(gallery, nil)
	result, err := svc.Enroll(context.Background(), ownerID, samples)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientSamples)

	// The prior gallery must be left untouched
	gallery.AssertNotCalled(t, "ReplaceGallery", mock.Anything, mock.Anything, mock.Anything)

	// The result still carries the rejection reasons
	assert.Equal(t, 1, result.Accepted)
	assert.Len(t, result.Rejected, 3)
	assert.False(t, result.GalleryReplaced)
}

func TestEnrollmentService_Enroll_UnknownSampleType(t *testing.T) {
	gallery := new(MockGalleryRepository)
	ownerID := uuid.New()

	gallery.On("ReplaceGallery", mock.Anything, ownerID, mock.Anything).Return(nil)

	samples := fullSampleSet()
	samples[0].Type = domain.SampleType("grimace")

	svc := NewEnrollmentService(gallery, nil)
	result, err := svc.Enroll(context.Background(), ownerID, samples)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Accepted)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "unknown sample type", result.Rejected[0].Reason)
}

func TestEnrollmentService_Enroll_ReplaceFailure(t *testing.T) {
	gallery := new(MockGalleryRepository)
	ownerID := uuid.New()

	gallery.On("ReplaceGallery", mock.Anything, ownerID, mock.Anything).
		Return(errors.New("connection reset"))

	svc := NewEnrollmentService(gallery, nil)
	result, err := svc.Enroll(context.Background(), ownerID, fullSampleSet())

	require.Error(t, err)
	assert.False(t, result.GalleryReplaced)
}

func TestEnrollmentService_Enroll_LogsAttempt(t *testing.T) {
	gallery := new(MockGalleryRepository)
	attempts := new(MockAttemptRepository)
	ownerID := uuid.New()

	gallery.On("ReplaceGallery", mock.Anything, ownerID, mock.Anything).Return(nil)
	attempts.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Attempt) bool {
		return a.Kind == domain.AttemptEnrollment && a.Succeeded && a.OwnerID != nil && *a.OwnerID == ownerID
	})).Return(nil)

	svc := NewEnrollmentService(gallery, attempts)
	_, err := svc.Enroll(context.Background(), ownerID, fullSampleSet())

	require.NoError(t, err)
	attempts.AssertExpectations(t)
}

func TestEnrollmentService_Enroll_AttemptFailureDoesNotFailEnrollment(t *testing.T) {
	gallery := new(MockGalleryRepository)
	attempts := new(MockAttemptRepository)
	ownerID := uuid.New()

	gallery.On("ReplaceGallery", mock.Anything, ownerID, mock.Anything).Return(nil)
	attempts.On("Create", mock.Anything, mock.Anything).Return(errors.New("audit store down"))

	svc := NewEnrollmentService(gallery, attempts)
	result, err := svc.Enroll(context.Background(), ownerID, fullSampleSet())

	require.NoError(t, err)
	assert.True(t, result.GalleryReplaced)
}

func TestEnrollmentService_DeleteGallery(t *testing.T) {
	tests := []struct {
		name    string
		deleted int64
		repoErr error
		wantErr error
	}{
		{
			name:    "deletes existing gallery",
			deleted: 4,
		},
		{
			name:    "empty gallery",
			deleted: 0,
			wantErr: domain.ErrGalleryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gallery := new(MockGalleryRepository)
			ownerID := uuid.New()
			gallery.On("DeleteGallery", mock.Anything, ownerID).Return(tt.deleted, tt.repoErr)

			svc := NewEnrollmentService(gallery, nil)
			err := svc.DeleteGallery(context.Background(), ownerID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnrollmentService_GalleryStatus(t *testing.T) {
	gallery := new(MockGalleryRepository)
	ownerID := uuid.New()
	gallery.On("CountByOwner", mock.Anything, ownerID).Return(4, nil)

	svc := NewEnrollmentService(gallery, nil)
	count, err := svc.GalleryStatus(context.Background(), ownerID)

	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestEnrollmentService_GalleryStatus_RepoError(t *testing.T) {
	gallery := new(MockGalleryRepository)
	ownerID := uuid.New()
	gallery.On("CountByOwner", mock.Anything, ownerID).Return(0, errors.New("connection refused"))

	svc := NewEnrollmentService(gallery, nil)
	_, err := svc.GalleryStatus(context.Background(), ownerID)

	assert.ErrorContains(t, err, "count gallery")
}

func TestRecomputeQuality_ReportedScoreIsAFloor(t *testing.T) {
	// A weak vector cannot drag the stored score below what was reported
	weak := make([]float64, domain.EmbeddingDim)
	weak[0] = 0.05

	q := recomputeQuality(weak, 0.9)
	assert.GreaterOrEqual(t, q, 0.9)
	assert.LessOrEqual(t, q, 1.0)
}

func TestRecomputeQuality_Clamped(t *testing.T) {
	assert.Equal(t, 1.0, recomputeQuality(validEmbedding(0.9), 1.5))
	assert.Equal(t, 0.0, recomputeQuality(nil, -0.5))
}
