// Package quality validates raw embedding vectors before they are stored or
// compared. All checks are pure; corrupt historical data is filtered with the
// same rules as fresh captures.
package quality

import (
	"errors"
	"math"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// Rejection reasons, in check order
var (
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrDegenerate       = errors.New("degenerate embedding")
	ErrLowVariability   = errors.New("low variability")
	ErrExtremeValues    = errors.New("extreme values")
)

const (
	// minNorm rejects zero or near-zero vectors that carry no identity signal
	minNorm = 0.01
	// minDistinct guards against constant-fill corruption
	minDistinct = 10
	// maxComponent guards against numeric overflow or garbage
	maxComponent = 10.0
	// quantScale rounds components to 3 decimal places before counting
	// distinct values
	quantScale = 1000.0
)

// Validator judges whether a raw embedding vector is usable
type Validator struct {
	dim          int
	minNorm      float64
	minDistinct  int
	maxComponent float64
}

// NewValidator creates a validator for the engine-wide embedding dimension
func NewValidator() *Validator {
	return &Validator{
		dim:          domain.EmbeddingDim,
		minNorm:      minNorm,
		minDistinct:  minDistinct,
		maxComponent: maxComponent,
	}
}

// WithDimension overrides the expected dimensionality (tests, alternate models)
func (v *Validator) WithDimension(dim int) *Validator {
	v.dim = dim
	return v
}

// Validate runs all checks in order, short-circuiting on the first failure.
// A nil return means the vector is usable.
func (v *Validator) Validate(vec []float64) error {
	if len(vec) != v.dim {
		return ErrInvalidDimension
	}

	var norm float64
	for _, c := range vec {
		norm += c * c
	}
	if math.Sqrt(norm) <= v.minNorm {
		return ErrDegenerate
	}

	distinct := make(map[float64]struct{}, v.minDistinct)
	for _, c := range vec {
		distinct[math.Round(c*quantScale)/quantScale] = struct{}{}
		if len(distinct) >= v.minDistinct {
			break
		}
	}
	if len(distinct) < v.minDistinct {
		return ErrLowVariability
	}

	for _, c := range vec {
		if math.Abs(c) > v.maxComponent {
			return ErrExtremeValues
		}
	}

	return nil
}
