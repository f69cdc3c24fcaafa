package deepface

import "errors"

var (
	// ErrDeepFaceUnavailable indicates the DeepFace service could not be
	// reached after retries
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")

	// ErrInvalidResponse indicates the service returned a malformed body
	ErrInvalidResponse = errors.New("invalid deepface response")
)
