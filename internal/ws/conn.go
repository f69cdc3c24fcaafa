package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/liveid/internal/provider"
)

// ErrNoFrameImage is returned by the capture hook when the latest admitted
// frame carried no image region
var ErrNoFrameImage = errors.New("no image available for capture")

// Conn binds one websocket connection to one challenge engine. All engine
// calls happen on the read goroutine, so no locking is needed around the
// engine or the cached frame image.
type Conn struct {
	sessionID uuid.UUID
	ws        *websocket.Conn
	engine    *liveness.Engine
	logger    *slog.Logger

	// When set, landmarks are re-detected server side from the frame image
	// instead of trusting the readings the client sends
	landmarks provider.LandmarkProvider

	lastImage []byte
	detail    interface{}
}

// NewConn creates a stream connection. The build callback receives the capture
// hook that yields the most recent frame image and a report hook for attaching
// extra payload (such as the match outcome) to the terminal result event, and
// returns the engine that will drive this session.
func NewConn(sessionID uuid.UUID, ws *websocket.Conn, landmarks provider.LandmarkProvider, logger *slog.Logger, build func(capture liveness.CaptureFunc, report func(interface{})) *liveness.Engine) *Conn {
	c := &Conn{
		sessionID: sessionID,
		ws:        ws,
		landmarks: landmarks,
		logger:    logger.With(slog.String("session_id", sessionID.String())),
	}
	c.engine = build(c.captureImage, func(data interface{}) { c.detail = data })
	return c
}

// Close tears down the underlying socket. The read loop exits on its next
// read and aborts the engine from its own goroutine, so callers on other
// goroutines never touch the engine directly.
func (c *Conn) Close() {
	if c.ws != nil {
		_ = c.ws.Close()
	}
}

func (c *Conn) captureImage(_ context.Context) ([]byte, error) {
	if len(c.lastImage) == 0 {
		return nil, ErrNoFrameImage
	}
	return c.lastImage, nil
}

// Run reads client messages until the challenge terminates or the connection
// drops. A dropped connection aborts the session.
func (c *Conn) Run(ctx context.Context) {
	defer func() {
		if !c.engine.State().Terminal() {
			c.engine.Abort()
		}
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("malformed message", true)
			continue
		}

		done := c.handle(ctx, &msg)
		if done {
			return
		}
	}
}

// handle processes one message and reports whether the stream should end
func (c *Conn) handle(ctx context.Context, msg *InboundMessage) bool {
	switch msg.Type {
	case MsgFrame:
		return c.handleFrame(ctx, msg.Frame)

	case MsgCapture:
		if err := c.engine.RequestCapture(ctx); err != nil {
			c.sendError(err.Error(), liveness.IsRetryable(err) ||
				errors.Is(err, liveness.ErrNotAwaitingCapture))
			return false
		}
		c.sendProgress()
		return false

	case MsgAbort:
		c.engine.Abort()
		c.sendResult()
		return true

	case MsgRetry:
		c.engine.Retry()
		c.sendProgress()
		return false

	default:
		c.sendError("unknown message type", true)
		return false
	}
}

func (c *Conn) handleFrame(ctx context.Context, frame *FramePayload) bool {
	if frame == nil {
		c.sendError("frame message without frame payload", true)
		return false
	}

	img, err := frame.DecodeImage()
	if err != nil {
		c.sendError("invalid frame image encoding", true)
		return false
	}
	if img != nil {
		c.lastImage = img
	}

	reading, err := c.buildReading(ctx, frame, img)
	if err != nil {
		c.sendError(err.Error(), true)
		return false
	}

	prev := c.engine.State()
	err = c.engine.HandleFrame(ctx, reading)

	if err != nil {
		if liveness.IsRetryable(err) {
			c.logger.Debug("retryable challenge failure", slog.String("error", err.Error()))
			c.sendError(err.Error(), true)
		} else {
			c.logger.Warn("challenge failed", slog.String("error", err.Error()))
			c.sendError(err.Error(), false)
		}
	}

	if c.engine.State() != prev || err == nil {
		c.sendProgress()
	}

	if c.engine.State().Terminal() {
		c.sendResult()
		return true
	}
	return false
}

func (c *Conn) buildReading(ctx context.Context, frame *FramePayload, img []byte) (domain.FrameReading, error) {
	if c.landmarks == nil {
		return frame.Reading(), nil
	}
	if img == nil {
		return domain.FrameReading{}, ErrNoFrameImage
	}

	detected, err := c.landmarks.DetectLandmarks(ctx, img)
	if err != nil {
		return domain.FrameReading{}, err
	}

	reading := *detected
	if reading.Timestamp.IsZero() && frame.TimestampMs > 0 {
		reading.Timestamp = time.UnixMilli(frame.TimestampMs)
	}
	return reading, nil
}

func (c *Conn) sendProgress() {
	c.send(Event{Type: MsgProgress, Data: c.engine.Progress(), Timestamp: time.Now()})
}

func (c *Conn) sendResult() {
	data := ResultData{
		Success: c.engine.State() == liveness.StateSuccess,
		Match:   c.detail,
	}
	if err := c.engine.Err(); err != nil {
		data.Error = err.Error()
	}
	c.send(Event{Type: MsgResult, Data: data, Timestamp: time.Now()})
}

func (c *Conn) sendError(message string, retryable bool) {
	c.send(Event{
		Type:      MsgError,
		Data:      ErrorData{Message: message, Retryable: retryable},
		Timestamp: time.Now(),
	})
}

func (c *Conn) send(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.logger.Debug("write to stream failed", slog.String("error", err.Error()))
	}
}
