package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/liveid/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// MockMatcher is a mock implementation of Matcher
type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) Identify(ctx context.Context, embedding []float64) (*domain.MatchResult, error) {
	args := m.Called(ctx, embedding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchResult), args.Error(1)
}

func (m *MockMatcher) Verify(ctx context.Context, ownerID uuid.UUID, embedding []float64) (*domain.MatchResult, error) {
	args := m.Called(ctx, ownerID, embedding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchResult), args.Error(1)
}

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, image []byte) ([]float64, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// MockIdentifyLimiter is a mock implementation of IdentifyLimiter
type MockIdentifyLimiter struct {
	mock.Mock
}

func (m *MockIdentifyLimiter) CheckIdentifyLimit(ctx context.Context, callerKey string, limit int) error {
	args := m.Called(ctx, callerKey, limit)
	return args.Error(0)
}

func matchApp(h *MatchHandler) *fiber.App {
	app := newTestApp()
	// Simulates the auth middleware having identified the API client
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalClientKey, "client-a")
		return c.Next()
	})
	app.Post("/v1/identify", h.Identify)
	app.Post("/v1/verify", h.Verify)
	return app
}

func doMatch(t *testing.T, app *fiber.App, path, body string) (*MatchResponse, int) {
	t.Helper()

	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	if resp.StatusCode != fiber.StatusOK {
		return nil, resp.StatusCode
	}

	raw, _ := io.ReadAll(resp.Body)
	var result MatchResponse
	require.NoError(t, json.Unmarshal(raw, &result))
	return &result, resp.StatusCode
}

func TestMatchHandler_Identify_WithEmbedding(t *testing.T) {
	matcher := new(MockMatcher)
	ownerID := uuid.New()
	embedding := []float64{0.1, 0.2, 0.3}

	matcher.On("Identify", mock.Anything, embedding).Return(&domain.MatchResult{
		Matched:    true,
		OwnerID:    ownerID,
		Similarity: 0.91,
		Tier:       domain.TierHigh,
	}, nil)

	h := NewMatchHandler(matcher, nil, nil, 0, testLogger())
	app := matchApp(h)

	body := `{"embedding":[0.1,0.2,0.3]}`
	result, status := doMatch(t, app, "/v1/identify", body)

	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, result.Matched)
	assert.Equal(t, ownerID.String(), result.OwnerID)
	assert.Equal(t, "high", result.Confidence)
	assert.InDelta(t, 0.91, result.Similarity, 1e-9)
}

func TestMatchHandler_Identify_WithImage(t *testing.T) {
	matcher := new(MockMatcher)
	embedder := new(MockEmbedder)
	image := []byte("raw-face-region")
	embedding := []float64{0.5, 0.6}

	embedder.On("Embed", mock.Anything, image).Return(embedding, nil)
	matcher.On("Identify", mock.Anything, embedding).Return(&domain.MatchResult{
		Matched: false,
		Tier:    domain.TierNone,
	}, nil)

	h := NewMatchHandler(matcher, embedder, nil, 0, testLogger())
	app := matchApp(h)

	body := `{"image":"` + base64.StdEncoding.EncodeToString(image) + `"}`
	result, status := doMatch(t, app, "/v1/identify", body)

	require.Equal(t, fiber.StatusOK, status)
	assert.False(t, result.Matched)
	assert.Empty(t, result.OwnerID)
	embedder.AssertExpectations(t)
}

func TestMatchHandler_Identify_MissingInput(t *testing.T) {
	h := NewMatchHandler(new(MockMatcher), nil, nil, 0, testLogger())
	app := matchApp(h)

	_, status := doMatch(t, app, "/v1/identify", `{}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestMatchHandler_Identify_InvalidImageEncoding(t *testing.T) {
	h := NewMatchHandler(new(MockMatcher), new(MockEmbedder), nil, 0, testLogger())
	app := matchApp(h)

	_, status := doMatch(t, app, "/v1/identify", `{"image":"!!not-base64!!"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestMatchHandler_Identify_RateLimited(t *testing.T) {
	matcher := new(MockMatcher)
	limiter := new(MockIdentifyLimiter)
	limiter.On("CheckIdentifyLimit", mock.Anything, "client-a", 30).
		Return(domain.ErrRateLimitExceeded)

	h := NewMatchHandler(matcher, nil, limiter, 30, testLogger())
	app := matchApp(h)

	_, status := doMatch(t, app, "/v1/identify", `{"embedding":[0.1]}`)

	assert.Equal(t, fiber.StatusTooManyRequests, status)
	matcher.AssertNotCalled(t, "Identify", mock.Anything, mock.Anything)
}

func TestMatchHandler_Identify_InvalidEmbedding(t *testing.T) {
	matcher := new(MockMatcher)
	matcher.On("Identify", mock.Anything, mock.Anything).
		Return(nil, domain.ErrInvalidEmbedding)

	h := NewMatchHandler(matcher, nil, nil, 0, testLogger())
	app := matchApp(h)

	_, status := doMatch(t, app, "/v1/identify", `{"embedding":[0.0]}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestMatchHandler_Verify(t *testing.T) {
	matcher := new(MockMatcher)
	ownerID := uuid.New()
	embedding := []float64{0.1, 0.2}

	matcher.On("Verify", mock.Anything, ownerID, embedding).Return(&domain.MatchResult{
		Matched:    true,
		OwnerID:    ownerID,
		Similarity: 0.8,
		Tier:       domain.TierMedium,
	}, nil)

	h := NewMatchHandler(matcher, nil, nil, 0, testLogger())
	app := matchApp(h)

	body := `{"owner_id":"` + ownerID.String() + `","embedding":[0.1,0.2]}`
	result, status := doMatch(t, app, "/v1/verify", body)

	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, result.Matched)
	assert.Equal(t, "medium", result.Confidence)
	matcher.AssertExpectations(t)
}

func TestMatchHandler_Verify_RequiresOwnerID(t *testing.T) {
	h := NewMatchHandler(new(MockMatcher), nil, nil, 0, testLogger())
	app := matchApp(h)

	_, status := doMatch(t, app, "/v1/verify", `{"embedding":[0.1]}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	_, status = doMatch(t, app, "/v1/verify", `{"owner_id":"nope","embedding":[0.1]}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}
