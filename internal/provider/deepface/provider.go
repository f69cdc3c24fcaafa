package deepface

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/provider"
)

// Provider implements provider.EmbeddingProvider using a DeepFace service
type Provider struct {
	client *Client
}

var _ provider.EmbeddingProvider = (*Provider)(nil)

// NewProvider creates a DeepFace-backed embedding oracle
func NewProvider(cfg Config) *Provider {
	return &Provider{client: NewClient(cfg)}
}

// Embed generates the embedding for the single face in the image region
func (p *Provider) Embed(ctx context.Context, imageRegion []byte) ([]float64, error) {
	if len(imageRegion) == 0 {
		return nil, domain.ErrInvalidImage
	}

	imageBase64 := base64.StdEncoding.EncodeToString(imageRegion)

	resp, err := p.client.Represent(ctx, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("represent: %w", err)
	}

	if len(resp.Results) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	return resp.Results[0].Embedding, nil
}
