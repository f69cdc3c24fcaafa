package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// CreateSessionRequest represents the request to open a capture session
type CreateSessionRequest struct {
	SubjectID string `json:"subject_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Purpose   string `json:"purpose" example:"enrollment"`
}

// SessionResponse represents a capture session
type SessionResponse struct {
	SessionID string `json:"session_id" example:"660e8400-e29b-41d4-a716-446655440001"`
	SubjectID string `json:"subject_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Purpose   string `json:"purpose" example:"enrollment"`
	ExpiresAt string `json:"expires_at" example:"2024-01-01T00:10:00Z"`
	StreamURL string `json:"stream_url" example:"/v1/sessions/660e8400-e29b-41d4-a716-446655440001/stream"`
}

// MatchRequest represents the request for identification or verification
type MatchRequest struct {
	OwnerID   string    `json:"owner_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Embedding []float64 `json:"embedding,omitempty"`
	Image     string    `json:"image,omitempty" example:"base64-encoded-image"`
}

// MatchResponse represents the result of a match
type MatchResponse struct {
	Matched    bool    `json:"matched" example:"true"`
	OwnerID    string  `json:"owner_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Similarity float64 `json:"similarity" example:"0.91"`
	Confidence string  `json:"confidence" example:"high"`
}

// GalleryStatusResponse represents an owner's enrollment state
type GalleryStatusResponse struct {
	OwnerID  string `json:"owner_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Enrolled bool   `json:"enrolled" example:"true"`
	Samples  int    `json:"samples" example:"4"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "LiveID Face Authentication API",
		Version:     "v1.0.0",
		Description: "Face authentication API with behavioral liveness challenges, biometric enrollment and 1:N identification",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/sessions - Open a capture session
		endpoint.New(
			endpoint.POST,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Open a capture session"),
			endpoint.WithDescription("Creates a short-lived capture session. The returned stream URL accepts a websocket connection carrying landmark frames that drive the liveness challenge."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "201", "Session created successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// DELETE /v1/sessions/:id - Close a capture session
		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Close a capture session"),
			endpoint.WithDescription("Removes a capture session before its natural expiry"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Session closed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Session not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/identify - 1:N identification
		endpoint.New(
			endpoint.POST,
			"/identify",
			endpoint.WithTags("Matching"),
			endpoint.WithSummary("Identify a face against all galleries"),
			endpoint.WithDescription("Performs a 1:N scan over every enrolled gallery. Accepts a ready embedding vector or a base64 image for the embedding oracle."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MatchResponse{}, "200", "Identification completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "embedding or image is required"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "INVALID_EMBEDDING", Message: "Embedding failed quality validation"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Identification rate limit exceeded"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/verify - 1:1 verification
		endpoint.New(
			endpoint.POST,
			"/verify",
			endpoint.WithTags("Matching"),
			endpoint.WithSummary("Verify a face against a claimed identity"),
			endpoint.WithDescription("Performs 1:1 verification restricted to the claimed owner's gallery"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MatchResponse{}, "200", "Verification completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "owner_id is required"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "INVALID_EMBEDDING", Message: "Embedding failed quality validation"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Identification rate limit exceeded"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/gallery/:owner_id - Gallery status
		endpoint.New(
			endpoint.GET,
			"/gallery/{owner_id}",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Report an owner's enrollment status"),
			endpoint.WithDescription("Returns whether the owner has an enrolled gallery and how many samples it holds"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("owner_id", parameter.Path, parameter.WithDescription("Owner UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(GalleryStatusResponse{}, "200", "Status reported"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// DELETE /v1/gallery/:owner_id - Delete gallery
		endpoint.New(
			endpoint.DELETE,
			"/gallery/{owner_id}",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Delete all biometric data for an owner"),
			endpoint.WithDescription("Removes every enrolled embedding for the owner (LGPD compliance)"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("owner_id", parameter.Path, parameter.WithDescription("Owner UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Gallery deleted successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "GALLERY_NOT_FOUND", Message: "No gallery for owner"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
