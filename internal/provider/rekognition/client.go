package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied     = "AccessDeniedException"
	errCodeInvalidParameter = "InvalidParameterException"
	errCodeInvalidImage     = "InvalidImageFormatException"
)

// RekognitionAPI is the subset of the AWS Rekognition client used by this
// provider. Narrowed for mockability in tests.
type RekognitionAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// Client wraps the AWS Rekognition client
type Client struct {
	rekognition RekognitionAPI
	config      Config
}

// NewClient creates a new Rekognition client with the provided configuration
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		rekognition: rekognition.NewFromConfig(awsCfg),
		config:      cfg,
	}, nil
}

// NewClientWithAPI creates a client with a custom API implementation (tests)
func NewClientWithAPI(api RekognitionAPI, cfg Config) *Client {
	return &Client{
		rekognition: api,
		config:      cfg,
	}
}

// mapAPIError translates well-known Rekognition error codes
func mapAPIError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeAccessDenied:
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		case errCodeInvalidParameter, errCodeInvalidImage:
			return fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	return err
}
