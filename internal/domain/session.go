package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionPurpose distinguishes what a capture session submits to on
// completion: the enrollment pipeline or the matching engine.
type SessionPurpose string

const (
	PurposeEnrollment     SessionPurpose = "enrollment"
	PurposeIdentification SessionPurpose = "identification"
)

// IsValid reports whether p is a known purpose
func (p SessionPurpose) IsValid() bool {
	return p == PurposeEnrollment || p == PurposeIdentification
}

// CaptureSession is a short-lived session that owns one challenge engine.
// Exactly one challenge sequence is active per session.
type CaptureSession struct {
	ID        uuid.UUID      `json:"id"`
	SubjectID uuid.UUID      `json:"subject_id"`
	Purpose   SessionPurpose `json:"purpose"`
	ExpiresAt time.Time      `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
}

// IsExpired checks if the session has expired
func (s *CaptureSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
