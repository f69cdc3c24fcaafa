package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// goodVector builds a usable embedding with plenty of distinct values
func goodVector(dim int) []float64 {
	vec := make([]float64, dim)
	for i := range vec {
		vec[i] = math.Sin(float64(i)+1) * 0.5
	}
	return vec
}

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name    string
		vec     []float64
		wantErr error
	}{
		{
			name:    "valid embedding",
			vec:     goodVector(domain.EmbeddingDim),
			wantErr: nil,
		},
		{
			name:    "nil vector",
			vec:     nil,
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "wrong dimension",
			vec:     goodVector(64),
			wantErr: ErrInvalidDimension,
		},
		{
			name:    "zero vector",
			vec:     make([]float64, domain.EmbeddingDim),
			wantErr: ErrDegenerate,
		},
		{
			name: "near-zero norm",
			vec: func() []float64 {
				vec := make([]float64, domain.EmbeddingDim)
				vec[0] = 0.005
				return vec
			}(),
			wantErr: ErrDegenerate,
		},
		{
			name: "constant fill",
			vec: func() []float64 {
				vec := make([]float64, domain.EmbeddingDim)
				for i := range vec {
					vec[i] = 0.5
				}
				return vec
			}(),
			wantErr: ErrLowVariability,
		},
		{
			name: "extreme component",
			vec: func() []float64 {
				vec := goodVector(domain.EmbeddingDim)
				vec[17] = 42.0
				return vec
			}(),
			wantErr: ErrExtremeValues,
		},
		{
			name: "component at the boundary is allowed",
			vec: func() []float64 {
				vec := goodVector(domain.EmbeddingDim)
				vec[0] = 10.0
				return vec
			}(),
			wantErr: nil,
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.vec)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_DimensionBeforeDegenerate(t *testing.T) {
	// A zero vector of the wrong size fails the dimension check first
	v := NewValidator()
	err := v.Validate(make([]float64, 64))
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestValidator_WithDimension(t *testing.T) {
	v := NewValidator().WithDimension(64)

	assert.NoError(t, v.Validate(goodVector(64)))
	assert.ErrorIs(t, v.Validate(goodVector(domain.EmbeddingDim)), ErrInvalidDimension)
}

func TestValidator_QuantizedVariability(t *testing.T) {
	// Values that only differ below the third decimal place collapse into one
	// bucket and are treated as constant fill
	vec := make([]float64, domain.EmbeddingDim)
	for i := range vec {
		vec[i] = 0.5 + float64(i)*1e-6
	}

	err := NewValidator().Validate(vec)
	assert.ErrorIs(t, err, ErrLowVariability)
}
