package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/liveid/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/liveid/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/liveid/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/liveid/internal/audit"
	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/liveid/internal/provider"
	"github.com/saturnino-fabrica-de-software/liveid/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/liveid/internal/repository"
	"github.com/saturnino-fabrica-de-software/liveid/internal/service"
	"github.com/saturnino-fabrica-de-software/liveid/internal/ws"
)

type Dependencies struct {
	GalleryRepo *repository.GalleryRepository
	AttemptRepo *repository.AttemptRepository
	SessionRepo *repository.SessionRepository
	Embedder    provider.EmbeddingProvider
	Landmarks   provider.LandmarkProvider
	DB          *pgxpool.Pool

	APIKeyHash         string
	SessionTTL         time.Duration
	IdentifyRateLimit  int
	IdentifyRateWindow time.Duration
	MatchThreshold     float64
	MatchHighThreshold float64
	EngineConfig       liveness.Config
}

type Router struct {
	app           *fiber.App
	logger        *slog.Logger
	deps          *Dependencies
	rateLimiter   *middleware.RateLimiter
	wsHub         *ws.Hub
	cancelSweeper context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "LiveID API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no auth required)
	var db handler.Pinger
	if r.deps != nil && r.deps.DB != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// API v1 group with authentication
	v1 := r.app.Group("/v1")

	// Only configure authenticated routes if dependencies were provided
	if r.deps == nil {
		return
	}

	v1.Use(middleware.Auth(r.deps.APIKeyHash))

	// Coarse per-client rate limiting; the identify endpoints carry their
	// own persistent sliding-window limit on top
	r.rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	v1.Use(r.rateLimiter.Handler())

	// Services
	auditLog := audit.NewSlogLogger(r.logger)
	sessionService := service.NewSessionService(r.deps.SessionRepo).WithAudit(auditLog)
	if r.deps.SessionTTL > 0 {
		sessionService = sessionService.WithTTL(r.deps.SessionTTL)
	}
	enrollmentService := service.NewEnrollmentService(r.deps.GalleryRepo, r.deps.AttemptRepo).WithAudit(auditLog)
	matcherService := service.NewMatcherService(r.deps.GalleryRepo, r.deps.AttemptRepo).WithAudit(auditLog)
	if r.deps.MatchThreshold > 0 && r.deps.MatchHighThreshold > 0 {
		matcherService = matcherService.WithThresholds(r.deps.MatchThreshold, r.deps.MatchHighThreshold)
	}

	// Expired sessions are swept in the background for the router lifetime
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	r.cancelSweeper = sweepCancel
	sessionService.StartSweeper(sweepCtx, time.Minute, r.logger)

	identifyLimiter := ratelimit.NewRateLimiter(r.deps.DB, r.deps.IdentifyRateWindow)

	// Session routes
	sessionHandler := handler.NewSessionHandler(sessionService, r.logger)
	v1.Post("/sessions", sessionHandler.Create)
	v1.Delete("/sessions/:id", sessionHandler.Close)

	// Challenge stream
	r.wsHub = ws.NewHub()
	factory := r.engineFactory(enrollmentService, matcherService, auditLog)
	v1.Get("/sessions/:id/stream", ws.UpgradeMiddleware(), ws.Handler(r.wsHub, sessionService, factory, r.deps.Landmarks, r.logger))

	// Matching routes
	matchHandler := handler.NewMatchHandler(matcherService, r.deps.Embedder, identifyLimiter, r.deps.IdentifyRateLimit, r.logger)
	v1.Post("/identify", matchHandler.Identify)
	v1.Post("/verify", matchHandler.Verify)

	// Gallery routes
	galleryHandler := handler.NewGalleryHandler(enrollmentService, r.logger)
	v1.Get("/gallery/:owner_id", galleryHandler.Status)
	v1.Delete("/gallery/:owner_id", galleryHandler.Delete)
}

// engineFactory binds a challenge engine to the session purpose: enrollment
// sessions submit their samples into the enrollment pipeline, identification
// sessions match the neutral sample against all galleries and report the
// outcome on the stream.
func (r *Router) engineFactory(enrollment *service.EnrollmentService, matcher *service.MatcherService, auditLog audit.Logger) ws.EngineFactory {
	return func(session *domain.CaptureSession, capture liveness.CaptureFunc, report func(interface{})) *liveness.Engine {
		submit := func(ctx context.Context, samples []domain.CapturedSample) error {
			if session.Purpose == domain.PurposeEnrollment {
				result, err := enrollment.Enroll(ctx, session.SubjectID, samples)
				if err != nil {
					return err
				}
				report(result)
				return nil
			}

			for _, sample := range samples {
				if sample.Type != domain.SampleNormal {
					continue
				}
				result, err := matcher.Identify(ctx, sample.Embedding)
				if err != nil {
					return err
				}
				report(handlerMatchResponse(result))
				if !result.Matched {
					return domain.ErrNotFound.WithError(errors.New("no gallery matched the captured face"))
				}
				return nil
			}
			return errors.New("no neutral sample in completed challenge")
		}

		hook := liveness.WithTransitionHook(func(_, to liveness.State) {
			switch to {
			case liveness.StateSuccess:
				_ = auditLog.Log(context.Background(), audit.Event{
					SessionID: session.ID.String(),
					EventType: audit.EventLivenessPassed,
					Success:   true,
				})
			case liveness.StateFailed:
				_ = auditLog.Log(context.Background(), audit.Event{
					SessionID: session.ID.String(),
					EventType: audit.EventLivenessFailed,
				})
			}
		})

		return liveness.New(r.deps.EngineConfig, r.deps.Embedder, capture, submit, hook)
	}
}

func handlerMatchResponse(result *domain.MatchResult) handler.MatchResponse {
	resp := handler.MatchResponse{
		Matched:    result.Matched,
		Similarity: result.Similarity,
		Confidence: string(result.Tier),
	}
	if result.Matched {
		resp.OwnerID = result.OwnerID.String()
	}
	return resp
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// shutdownTimeout bounds how long Shutdown waits for in-flight requests
const shutdownTimeout = 10 * time.Second

// Shutdown stops background work and drains the server, returning as soon as
// in-flight requests finish (or shutdownTimeout elapses).
func (r *Router) Shutdown() error {
	// Stop the session sweeper
	if r.cancelSweeper != nil {
		r.cancelSweeper()
	}

	// Close any live challenge streams
	if r.wsHub != nil {
		r.wsHub.CloseAll()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.ShutdownWithTimeout(shutdownTimeout)
}
