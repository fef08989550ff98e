package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldHost is the standardized key for the Wiretap host a session is bound to.
	FieldHost = "host"
	// FieldSessionID is the standardized key for the per-session correlation identifier.
	FieldSessionID = "session_id"
	// FieldNodePath is the standardized key for node paths.
	FieldNodePath = "node_path"
	// FieldNodeType is the standardized key for node type tags.
	FieldNodeType = "node_type"
	FieldProject  = "project"
	FieldUser     = "user"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

// WithSessionID annotates ctx with a session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with the session identifier carried
// by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := SessionIDFromContext(ctx); ok {
		return logger.With(String(FieldSessionID, id))
	}
	return logger
}
