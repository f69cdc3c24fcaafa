package ws

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveid/internal/liveness"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ []byte) ([]float64, error) {
	return nil, nil
}

func newTestConn(t *testing.T, sessionID uuid.UUID) *Conn {
	t.Helper()

	submit := func(context.Context, []domain.CapturedSample) error { return nil }

	return NewConn(sessionID, nil, nil, slog.Default(), func(capture liveness.CaptureFunc, _ func(interface{})) *liveness.Engine {
		return liveness.New(liveness.DefaultConfig(), stubEmbedder{}, capture, submit)
	})
}

func TestHub_RegisterAndGet(t *testing.T) {
	hub := NewHub()
	sessionID := uuid.New()
	conn := newTestConn(t, sessionID)

	hub.Register(sessionID, conn)

	got, ok := hub.Get(sessionID)
	require.True(t, ok)
	assert.Same(t, conn, got)
	assert.Equal(t, 1, hub.Count())
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	sessionID := uuid.New()
	conn := newTestConn(t, sessionID)

	hub.Register(sessionID, conn)
	hub.Unregister(sessionID, conn)

	_, ok := hub.Get(sessionID)
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Count())
}

func TestHub_UnregisterIgnoresReplacedConn(t *testing.T) {
	hub := NewHub()
	sessionID := uuid.New()
	first := newTestConn(t, sessionID)
	second := newTestConn(t, sessionID)

	hub.Register(sessionID, first)
	hub.Register(sessionID, second)

	// Unregistering the replaced connection must not evict the active one
	hub.Unregister(sessionID, first)

	got, ok := hub.Get(sessionID)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub()

	for i := 0; i < 3; i++ {
		sessionID := uuid.New()
		hub.Register(sessionID, newTestConn(t, sessionID))
	}
	require.Equal(t, 3, hub.Count())

	hub.CloseAll()

	assert.Equal(t, 0, hub.Count())
}

func TestHub_CloseAllLeavesEngineToReadLoop(t *testing.T) {
	hub := NewHub()
	sessionID := uuid.New()
	conn := newTestConn(t, sessionID)

	hub.Register(sessionID, conn)
	hub.CloseAll()

	// The engine belongs to the read goroutine; shutdown only closes the
	// socket and lets the read loop abort on its own goroutine.
	assert.Equal(t, liveness.StateStabilizing, conn.engine.State())
	assert.Equal(t, 0, hub.Count())
}
