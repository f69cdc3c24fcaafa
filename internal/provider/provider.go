package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// LandmarkProvider é o oráculo de landmarks: dado um frame, retorna os pontos
// faciais e os scores de expressão. Must be index-stable: the point at index
// i always refers to the same facial feature across calls (see domain.Idx*).
type LandmarkProvider interface {
	// DetectLandmarks returns the reading for the single face in the
	// frame, or domain.ErrNoFaceDetected when none is found
	DetectLandmarks(ctx context.Context, frame []byte) (*domain.FrameReading, error)
}

// EmbeddingProvider is the embedding oracle: given an image region, returns
// a fixed-length vector summarizing facial identity.
type EmbeddingProvider interface {
	// Embed returns the embedding for the face in the image region, or
	// domain.ErrNoFaceDetected when none is found
	Embed(ctx context.Context, imageRegion []byte) ([]float64, error)
}
