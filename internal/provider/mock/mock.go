package mock

import (
	"context"
	"crypto/sha256"
	"math"
	"time"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// minImageSize rejects payloads too small to be a real frame
const minImageSize = 1000

// Provider implementa os dois oráculos para testes e desenvolvimento.
// Embeddings are deterministic: the same image always produces the same
// unit-length vector, so re-capturing the same face "matches" itself.
type Provider struct{}

// New cria uma nova instância do mock
func New() *Provider {
	return &Provider{}
}

// Embed gera embedding determinístico baseado no hash da imagem
func (p *Provider) Embed(ctx context.Context, imageRegion []byte) ([]float64, error) {
	if len(imageRegion) < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	return generateEmbedding(imageRegion), nil
}

// DetectLandmarks synthesizes a stable, centered face reading. Expression
// scores are derived from the image hash so different frames exercise
// different challenge predicates deterministically.
func (p *Provider) DetectLandmarks(ctx context.Context, frame []byte) (*domain.FrameReading, error) {
	if len(frame) < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	hash := sha256.Sum256(frame)
	smile := float64(hash[0]) / 255.0

	return &domain.FrameReading{
		Points: []domain.Point{
			{X: 0.38, Y: 0.40}, // left eye
			{X: 0.62, Y: 0.40}, // right eye
			{X: 0.50, Y: 0.52}, // nose
			{X: 0.42, Y: 0.65}, // mouth left
			{X: 0.58, Y: 0.65}, // mouth right
		},
		Expressions: map[string]float64{
			domain.ExprSmileLeft:  smile,
			domain.ExprSmileRight: smile,
			domain.ExprBlinkLeft:  0.05,
			domain.ExprBlinkRight: 0.05,
		},
		Timestamp: time.Now(),
	}, nil
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, domain.EmbeddingDim)
	hashLen := len(hash)

	for i := 0; i < domain.EmbeddingDim; i++ {
		// Spread the hash across the vector with a per-index twist so
		// the quantized values stay distinct
		b := float64(hash[i%hashLen])
		embedding[i] = ((b+float64(i))/287.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}
