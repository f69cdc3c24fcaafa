package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/liveid/internal/api"
	"github.com/saturnino-fabrica-de-software/liveid/internal/config"
	"github.com/saturnino-fabrica-de-software/liveid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/liveid/internal/provider"
	"github.com/saturnino-fabrica-de-software/liveid/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/liveid/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/liveid/internal/provider/rekognition"
	"github.com/saturnino-fabrica-de-software/liveid/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting LiveID API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	// Database pool
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	landmarks, err := buildLandmarkProvider(ctx, cfg)
	if err != nil {
		return err
	}

	deps := &api.Dependencies{
		GalleryRepo: repository.NewGalleryRepository(pool),
		AttemptRepo: repository.NewAttemptRepository(pool),
		SessionRepo: repository.NewSessionRepository(pool),
		Embedder:    embedder,
		Landmarks:   landmarks,
		DB:          pool,

		APIKeyHash:         cfg.APIKeyHash,
		SessionTTL:         cfg.SessionTTL,
		IdentifyRateLimit:  cfg.IdentifyRateLimit,
		IdentifyRateWindow: cfg.IdentifyRateWindow,
		MatchThreshold:     cfg.MatchThreshold,
		MatchHighThreshold: cfg.MatchHighThreshold,
		EngineConfig:       liveness.DefaultConfig(),
	}

	// Setup router
	router := api.NewRouter(logger, deps)
	router.Setup()

	// Graceful shutdown
	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}
	logger.Info("server stopped")

	return nil
}

func buildEmbedder(cfg *config.Config) (provider.EmbeddingProvider, error) {
	switch cfg.EmbedderType {
	case "deepface":
		dfCfg := deepface.DefaultConfig()
		dfCfg.BaseURL = cfg.DeepFaceURL
		return deepface.NewProvider(dfCfg), nil
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown embedder type: %s", cfg.EmbedderType)
	}
}

// buildLandmarkProvider returns nil for the "client" source, meaning frame
// readings from the stream are used as sent.
func buildLandmarkProvider(ctx context.Context, cfg *config.Config) (provider.LandmarkProvider, error) {
	switch cfg.LandmarkSource {
	case "client":
		return nil, nil
	case "rekognition":
		p, err := rekognition.NewProvider(ctx, rekognition.Config{Region: cfg.AWSRegion})
		if err != nil {
			return nil, fmt.Errorf("failed to create rekognition provider: %w", err)
		}
		return p, nil
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown landmark source: %s", cfg.LandmarkSource)
	}
}
