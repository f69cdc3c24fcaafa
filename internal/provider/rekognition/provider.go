package rekognition

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Provider implements provider.LandmarkProvider using AWS Rekognition
// DetectFaces. Used when frames are captured server-side and no client-side
// landmark detector is available.
type Provider struct {
	client *Client
}

var _ provider.LandmarkProvider = (*Provider)(nil)

// NewProvider creates a new Rekognition landmark provider
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}

	return &Provider{client: client}, nil
}

// NewProviderWithClient creates a provider around an existing client (tests)
func NewProviderWithClient(client *Client) *Provider {
	return &Provider{client: client}
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrInvalidImage
	}
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// DetectLandmarks runs DetectFaces and converts the single detected face
// into a FrameReading with canonical, index-stable landmark ordering.
func (p *Provider) DetectLandmarks(ctx context.Context, frame []byte) (*domain.FrameReading, error) {
	if err := validateImage(frame); err != nil {
		return nil, err
	}

	input := &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: frame,
		},
		Attributes: []types.Attribute{types.AttributeAll},
	}

	output, err := p.client.rekognition.DetectFaces(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", mapAPIError(err))
	}

	if len(output.FaceDetails) == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	if len(output.FaceDetails) > 1 {
		return nil, ErrMultipleFaces
	}

	return toFrameReading(output.FaceDetails[0]), nil
}

// canonicalLandmarks fixes the index of each landmark the challenge engine
// relies on (see domain.Idx*)
var canonicalLandmarks = []types.LandmarkType{
	types.LandmarkTypeEyeLeft,
	types.LandmarkTypeEyeRight,
	types.LandmarkTypeNose,
	types.LandmarkTypeMouthLeft,
	types.LandmarkTypeMouthRight,
}

// toFrameReading maps a Rekognition FaceDetail onto the engine's reading.
// Rekognition reports a single Smile attribute, so both per-side smile
// scores carry the same value; the same applies to eye blinks (inverted
// EyesOpen confidence).
func toFrameReading(face types.FaceDetail) *domain.FrameReading {
	byType := make(map[types.LandmarkType]types.Landmark, len(face.Landmarks))
	for _, lm := range face.Landmarks {
		byType[lm.Type] = lm
	}

	points := make([]domain.Point, 0, len(canonicalLandmarks))
	for _, t := range canonicalLandmarks {
		lm := byType[t]
		var p domain.Point
		if lm.X != nil {
			p.X = float64(*lm.X)
		}
		if lm.Y != nil {
			p.Y = float64(*lm.Y)
		}
		points = append(points, p)
	}

	expressions := map[string]float64{}

	if face.Smile != nil && face.Smile.Confidence != nil {
		score := 0.0
		if face.Smile.Value {
			score = float64(*face.Smile.Confidence) / 100.0
		}
		expressions[domain.ExprSmileLeft] = score
		expressions[domain.ExprSmileRight] = score
	}

	if face.EyesOpen != nil && face.EyesOpen.Confidence != nil {
		blink := 0.0
		if !face.EyesOpen.Value {
			blink = float64(*face.EyesOpen.Confidence) / 100.0
		}
		expressions[domain.ExprBlinkLeft] = blink
		expressions[domain.ExprBlinkRight] = blink
	}

	return &domain.FrameReading{
		Points:      points,
		Expressions: expressions,
		Timestamp:   time.Now(),
	}
}
