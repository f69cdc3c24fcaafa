package mock

import (
	"context"
	"testing"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/quality"
)

func TestProvider_Embed(t *testing.T) {
	p := New()
	ctx := context.Background()

	tests := []struct {
		name    string
		image   []byte
		wantErr bool
	}{
		{
			name:    "valid image",
			image:   make([]byte, 5000),
			wantErr: false,
		},
		{
			name:    "image too small",
			image:   make([]byte, 100),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedding, err := p.Embed(ctx, tt.image)
			if (err != nil) != tt.wantErr {
				t.Errorf("Embed() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if len(embedding) != domain.EmbeddingDim {
				t.Errorf("Embed() length = %d, want %d", len(embedding), domain.EmbeddingDim)
			}
		})
	}
}

func TestProvider_Embed_Normalized(t *testing.T) {
	p := New()

	image := make([]byte, 5000)
	for i := range image {
		image[i] = byte(i % 256)
	}

	embedding, err := p.Embed(context.Background(), image)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	var norm float64
	for _, v := range embedding {
		norm += v * v
	}
	if norm < 0.99 || norm > 1.01 {
		t.Errorf("Embed() embedding not normalized, norm = %f", norm)
	}
}

func TestProvider_Embed_Deterministic(t *testing.T) {
	p := New()
	ctx := context.Background()

	image := []byte("frame content that is long enough to be valid")
	image = append(image, make([]byte, 1000)...)

	emb1, _ := p.Embed(ctx, image)
	emb2, _ := p.Embed(ctx, image)

	for i := range emb1 {
		if emb1[i] != emb2[i] {
			t.Error("Embed() should be deterministic for same input")
			break
		}
	}
}

func TestProvider_Embed_PassesQualityValidation(t *testing.T) {
	p := New()

	embedding, err := p.Embed(context.Background(), make([]byte, 5000))
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if err := quality.NewValidator().Validate(embedding); err != nil {
		t.Errorf("generated embedding failed validation: %v", err)
	}
}

func TestProvider_DetectLandmarks(t *testing.T) {
	p := New()

	reading, err := p.DetectLandmarks(context.Background(), make([]byte, 5000))
	if err != nil {
		t.Fatalf("DetectLandmarks() error = %v", err)
	}

	if len(reading.Points) < domain.MinLandmarks {
		t.Fatalf("DetectLandmarks() returned %d points, want at least %d", len(reading.Points), domain.MinLandmarks)
	}

	nose := reading.Points[domain.IdxNose]
	if nose.X != 0.50 {
		t.Errorf("nose X = %f, want centered at 0.50", nose.X)
	}

	for _, key := range []string{domain.ExprSmileLeft, domain.ExprSmileRight} {
		if _, ok := reading.Expressions[key]; !ok {
			t.Errorf("DetectLandmarks() missing expression %s", key)
		}
	}

	if reading.Timestamp.IsZero() {
		t.Error("DetectLandmarks() timestamp should be set")
	}
}

func TestProvider_DetectLandmarks_ImageTooSmall(t *testing.T) {
	p := New()

	if _, err := p.DetectLandmarks(context.Background(), make([]byte, 10)); err == nil {
		t.Error("DetectLandmarks() expected error for tiny payload")
	}
}
