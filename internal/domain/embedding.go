package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmbeddingDim is the fixed dimensionality of every embedding handled by the
// engine. Vectors of any other length are rejected before comparison.
const EmbeddingDim = 128

// SampleType identifies which liveness challenge produced a capture
type SampleType string

const (
	SampleNormal    SampleType = "normal"
	SampleSmile     SampleType = "smile"
	SampleNod       SampleType = "nod"
	SampleHeadRaise SampleType = "head_raise"
)

// IsValid reports whether t is one of the known sample types
func (t SampleType) IsValid() bool {
	switch t {
	case SampleNormal, SampleSmile, SampleNod, SampleHeadRaise:
		return true
	}
	return false
}

// CapturedSample is one validated capture produced by a completed challenge.
// Immutable after creation; scoped to a single enrollment or login attempt.
type CapturedSample struct {
	Type         SampleType `json:"type"`
	Embedding    []float64  `json:"-"`
	QualityScore float64    `json:"quality_score"`
	CapturedAt   time.Time  `json:"captured_at"`
}

// EmbeddingRecord representa um embedding persistido na galeria de um usuário
type EmbeddingRecord struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	Embedding    []float64  `json:"-"`
	Type         SampleType `json:"type"`
	QualityScore float64    `json:"quality_score"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ConfidenceTier is the discrete confidence bucket of a match
type ConfidenceTier string

const (
	TierNone   ConfidenceTier = "none"
	TierMedium ConfidenceTier = "medium"
	TierHigh   ConfidenceTier = "high"
)

// MatchResult is the outcome of one identification or verification attempt.
// Computed fresh per attempt, never persisted.
type MatchResult struct {
	Matched    bool           `json:"matched"`
	OwnerID    uuid.UUID      `json:"owner_id,omitempty"`
	Similarity float64        `json:"similarity"`
	Tier       ConfidenceTier `json:"confidence_tier"`
}

// RejectedSample carries the reason a sample was refused during enrollment
type RejectedSample struct {
	Type   SampleType `json:"type"`
	Reason string     `json:"reason"`
}

// EnrollmentResult reports the outcome of an enrollment attempt
type EnrollmentResult struct {
	Accepted        int              `json:"accepted"`
	Rejected        []RejectedSample `json:"rejected,omitempty"`
	GalleryReplaced bool             `json:"gallery_replaced"`
}

// AttemptKind identifies what an audit attempt record refers to
type AttemptKind string

const (
	AttemptEnrollment     AttemptKind = "enrollment"
	AttemptIdentification AttemptKind = "identification"
	AttemptVerification   AttemptKind = "verification"
)

// Attempt representa um registro de tentativa (audit)
type Attempt struct {
	ID         uuid.UUID   `json:"id"`
	OwnerID    *uuid.UUID  `json:"owner_id,omitempty"`
	Kind       AttemptKind `json:"kind"`
	Succeeded  bool        `json:"succeeded"`
	Confidence float64     `json:"confidence"`
	LatencyMs  int64       `json:"latency_ms"`
	CreatedAt  time.Time   `json:"created_at"`
}
