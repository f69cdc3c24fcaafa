package ws

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/liveid/internal/provider"
)

// SessionValidator checks that a capture session exists and has not expired
type SessionValidator interface {
	Validate(ctx context.Context, id uuid.UUID) (*domain.CaptureSession, error)
}

// EngineFactory builds the challenge engine for a validated session. The
// capture hook yields the most recent frame image received on the stream; the
// report hook attaches extra payload to the terminal result event.
type EngineFactory func(session *domain.CaptureSession, capture liveness.CaptureFunc, report func(interface{})) *liveness.Engine

// Handler upgrades the connection and runs the challenge stream for the
// session named in the route. A nil landmarks provider means the client's
// frame readings are trusted as sent.
func Handler(hub *Hub, sessions SessionValidator, newEngine EngineFactory, landmarks provider.LandmarkProvider, logger *slog.Logger) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		defer func() { _ = c.Close() }()

		sessionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			writeClose(c, "invalid session id")
			return
		}

		ctx := context.Background()
		session, err := sessions.Validate(ctx, sessionID)
		if err != nil {
			writeClose(c, err.Error())
			return
		}

		conn := NewConn(session.ID, c, landmarks, logger, func(capture liveness.CaptureFunc, report func(interface{})) *liveness.Engine {
			return newEngine(session, capture, report)
		})

		hub.Register(session.ID, conn)
		defer hub.Unregister(session.ID, conn)

		conn.Run(ctx)
	})
}

// UpgradeMiddleware rejects plain HTTP requests on websocket routes
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func writeClose(c *websocket.Conn, reason string) {
	_ = c.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
}
