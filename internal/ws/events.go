package ws

import (
	"encoding/base64"
	"time"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// MessageType identifies an inbound or outbound stream message
type MessageType string

const (
	// Inbound (client to server)
	MsgFrame   MessageType = "frame"
	MsgCapture MessageType = "capture"
	MsgAbort   MessageType = "abort"
	MsgRetry   MessageType = "retry"

	// Outbound (server to client)
	MsgProgress MessageType = "progress"
	MsgResult   MessageType = "result"
	MsgError    MessageType = "error"
)

// InboundMessage is one client message on the stream
type InboundMessage struct {
	Type  MessageType   `json:"type"`
	Frame *FramePayload `json:"frame,omitempty"`
}

// FramePayload carries one landmark/expression reading, optionally with the
// raw image region for milestone captures
type FramePayload struct {
	Points      []domain.Point     `json:"points"`
	Expressions map[string]float64 `json:"expressions,omitempty"`
	TimestampMs int64              `json:"timestamp_ms,omitempty"`
	Image       string             `json:"image,omitempty"` // base64
}

// Reading converts the payload into a frame reading
func (p *FramePayload) Reading() domain.FrameReading {
	reading := domain.FrameReading{
		Points:      p.Points,
		Expressions: p.Expressions,
	}
	if p.TimestampMs > 0 {
		reading.Timestamp = time.UnixMilli(p.TimestampMs)
	}
	return reading
}

// DecodeImage returns the raw image bytes, or nil when the frame carried none
func (p *FramePayload) DecodeImage() ([]byte, error) {
	if p.Image == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(p.Image)
}

// Event is one server message on the stream
type Event struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorData is the payload of an error event
type ErrorData struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ResultData is the payload of the terminal result event. Match carries the
// identification outcome when the session purpose was identification.
type ResultData struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Match   interface{} `json:"match,omitempty"`
}
