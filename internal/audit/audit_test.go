package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Log(t *testing.T) {
	tests := []struct {
		name          string
		event         Event
		wantEventType string
		wantSuccess   bool
		wantHasError  bool
	}{
		{
			name: "session created event",
			event: Event{
				SubjectID: uuid.NewString(),
				SessionID: uuid.NewString(),
				EventType: EventSessionCreated,
				Success:   true,
				Metadata: map[string]string{
					"purpose": "enrollment",
				},
			},
			wantEventType: string(EventSessionCreated),
			wantSuccess:   true,
			wantHasError:  false,
		},
		{
			name: "subject enrolled event",
			event: Event{
				SubjectID: uuid.NewString(),
				EventType: EventSubjectEnrolled,
				Provider:  "deepface",
				Success:   true,
				Metadata: map[string]string{
					"accepted_samples": "4",
				},
			},
			wantEventType: string(EventSubjectEnrolled),
			wantSuccess:   true,
			wantHasError:  false,
		},
		{
			name: "failed liveness event",
			event: Event{
				SessionID: uuid.NewString(),
				EventType: EventLivenessFailed,
				Success:   false,
				Error:     "challenge timed out",
			},
			wantEventType: string(EventLivenessFailed),
			wantSuccess:   false,
			wantHasError:  true,
		},
		{
			name: "gallery searched event",
			event: Event{
				EventType: EventGallerySearched,
				Success:   true,
				Metadata: map[string]string{
					"similarity": "0.91",
					"tier":       "high",
				},
			},
			wantEventType: string(EventGallerySearched),
			wantSuccess:   true,
			wantHasError:  false,
		},
		{
			name: "event with IP and user agent",
			event: Event{
				SubjectID: uuid.NewString(),
				EventType: EventSubjectVerified,
				Success:   true,
				IPAddress: "192.168.1.1",
				UserAgent: "Mozilla/5.0",
			},
			wantEventType: string(EventSubjectVerified),
			wantSuccess:   true,
			wantHasError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := slog.NewJSONHandler(&buf, nil)
			logger := slog.New(handler)

			auditLogger := NewSlogLogger(logger)
			err := auditLogger.Log(context.Background(), tt.event)

			require.NoError(t, err)

			output := buf.String()
			assert.Contains(t, output, tt.wantEventType)
			assert.Contains(t, output, "audit_event")
			assert.Contains(t, output, "audit")

			if tt.wantHasError {
				assert.Contains(t, output, tt.event.Error)
			}
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)

	auditLogger := NewSlogLogger(logger)
	event := Event{
		SubjectID: uuid.NewString(),
		EventType: EventSessionCreated,
		Success:   true,
	}

	err := auditLogger.Log(context.Background(), event)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "event_id")

	var logEntry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.NotEmpty(t, lines)

	err = json.Unmarshal([]byte(lines[0]), &logEntry)
	require.NoError(t, err)

	eventID, ok := logEntry["event_id"].(string)
	assert.True(t, ok)
	assert.NotEmpty(t, eventID)

	_, err = uuid.Parse(eventID)
	assert.NoError(t, err)
}

func TestSlogLogger_Log_UsesProvidedIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)

	auditLogger := NewSlogLogger(logger)
	expectedID := uuid.New()
	expectedTimestamp := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	event := Event{
		ID:        expectedID,
		Timestamp: expectedTimestamp,
		SubjectID: uuid.NewString(),
		EventType: EventSubjectEnrolled,
		Success:   true,
	}

	err := auditLogger.Log(context.Background(), event)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, expectedID.String())
}

func TestSlogLogger_Log_IncludesAllEventTypes(t *testing.T) {
	eventTypes := []EventType{
		EventSessionCreated,
		EventSessionClosed,
		EventLivenessPassed,
		EventLivenessFailed,
		EventSubjectEnrolled,
		EventSubjectVerified,
		EventGallerySearched,
		EventGalleryDeleted,
	}

	for _, eventType := range eventTypes {
		t.Run(string(eventType), func(t *testing.T) {
			var buf bytes.Buffer
			handler := slog.NewJSONHandler(&buf, nil)
			logger := slog.New(handler)

			auditLogger := NewSlogLogger(logger)
			event := Event{
				SubjectID: uuid.NewString(),
				EventType: eventType,
				Success:   true,
			}

			err := auditLogger.Log(context.Background(), event)
			require.NoError(t, err)

			output := buf.String()
			assert.Contains(t, output, string(eventType))
		})
	}
}

func TestNoOpLogger_Log(t *testing.T) {
	logger := &NoOpLogger{}

	event := Event{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		SubjectID: uuid.NewString(),
		EventType: EventSessionCreated,
		Success:   true,
		Metadata: map[string]string{
			"test": "value",
		},
	}

	err := logger.Log(context.Background(), event)

	assert.NoError(t, err)
}

func TestSlogLogger_Log_WithMetadata(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)

	auditLogger := NewSlogLogger(logger)
	event := Event{
		SubjectID: uuid.NewString(),
		EventType: EventGallerySearched,
		Success:   true,
		Metadata: map[string]string{
			"gallery_size":   "5",
			"threshold":      "0.75",
			"execution_time": "150ms",
		},
	}

	err := auditLogger.Log(context.Background(), event)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "gallery_size")
	assert.Contains(t, output, "threshold")
	assert.Contains(t, output, "execution_time")
}

func TestLoggerInterface_Compliance(t *testing.T) {
	var _ Logger = (*SlogLogger)(nil)
	var _ Logger = (*NoOpLogger)(nil)
}

func TestEvent_JSONSerialization_OmitsEmptyFields(t *testing.T) {
	event := Event{
		EventType: EventSessionClosed,
		Success:   true,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	jsonStr := string(data)
	assert.NotContains(t, jsonStr, "subject_id")
	assert.NotContains(t, jsonStr, "session_id")
	assert.NotContains(t, jsonStr, "error")
	assert.NotContains(t, jsonStr, "ip_address")
	assert.NotContains(t, jsonStr, "user_agent")
}
