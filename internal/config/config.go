package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Embedding oracle
	EmbedderType string `envconfig:"EMBEDDER_TYPE" default:"deepface"`
	DeepFaceURL  string `envconfig:"DEEPFACE_URL" default:"http://localhost:5000"`

	// Landmark source: "client" trusts the readings sent on the stream,
	// "rekognition" re-detects server side, "mock" is for local development
	LandmarkSource string `envconfig:"LANDMARK_SOURCE" default:"client"`
	AWSRegion      string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Matching
	MatchThreshold     float64 `envconfig:"MATCH_THRESHOLD" default:"0.75"`
	MatchHighThreshold float64 `envconfig:"MATCH_HIGH_THRESHOLD" default:"0.85"`

	// Sessions
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"10m"`

	// Rate limiting (identifications per window per API client)
	IdentifyRateLimit  int           `envconfig:"IDENTIFY_RATE_LIMIT" default:"30"`
	IdentifyRateWindow time.Duration `envconfig:"IDENTIFY_RATE_WINDOW" default:"1m"`

	// Security
	APIKeyHash string `envconfig:"API_KEY_HASH" required:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
