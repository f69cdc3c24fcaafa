package rekognition

import "errors"

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrInvalidImage indicates the payload is not a usable image
	ErrInvalidImage = errors.New("invalid image for rekognition")

	// ErrMultipleFaces indicates that multiple faces were detected when only one was expected
	ErrMultipleFaces = errors.New("multiple faces detected in image")
)
