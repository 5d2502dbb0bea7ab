package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventImageAnalyzed     EventType = "IMAGE_ANALYZED"
	EventLandmarksAnalyzed EventType = "LANDMARKS_ANALYZED"
	EventAnalysisCached    EventType = "ANALYSIS_CACHED"
	EventAnalysisDeleted   EventType = "ANALYSIS_DELETED"
)

// Event represents an audit event. Images and landmarks are never logged.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	EventType  EventType         `json:"event_type"`
	AnalysisID string            `json:"analysis_id,omitempty"`
	Profile    string            `json:"profile,omitempty"`
	Provider   string            `json:"provider,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	IPAddress  string            `json:"ip_address,omitempty"`
}

type requestKey struct{}

type requestInfo struct {
	id string
	ip string
}

// WithRequest attaches the caller's request ID and IP to ctx for later audit events
func WithRequest(ctx context.Context, requestID, ip string) context.Context {
	return context.WithValue(ctx, requestKey{}, requestInfo{id: requestID, ip: ip})
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger using slog
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if info, ok := ctx.Value(requestKey{}).(requestInfo); ok {
		if event.RequestID == "" {
			event.RequestID = info.id
		}
		if event.IPAddress == "" {
			event.IPAddress = info.ip
		}
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	l.logger.Log(ctx, level, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("analysis_id", event.AnalysisID),
		slog.String("provider", event.Provider),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

// Log does nothing and returns nil
func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
