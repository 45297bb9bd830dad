package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	agentIDKey ctxKey = iota
	connectionIDKey
	gestureKey
)

// WithAgentID returns a context with the agent ID set.
func WithAgentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, agentIDKey, id)
}

// WithConnectionID returns a context with the connection ID set.
func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIDKey, id)
}

// WithGesture returns a context with the active gesture name set.
func WithGesture(ctx context.Context, gesture string) context.Context {
	return context.WithValue(ctx, gestureKey, gesture)
}

// AgentID extracts the agent ID from the context, or "" if absent.
func AgentID(ctx context.Context) string {
	v, _ := ctx.Value(agentIDKey).(string)
	return v
}

// ConnectionID extracts the connection ID from the context, or "" if absent.
func ConnectionID(ctx context.Context) string {
	v, _ := ctx.Value(connectionIDKey).(string)
	return v
}

// Gesture extracts the gesture name from the context, or "" if absent.
func Gesture(ctx context.Context) string {
	v, _ := ctx.Value(gestureKey).(string)
	return v
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := AgentID(ctx); v != "" {
		r.AddAttrs(slog.String("agent_id", v))
	}
	if v := ConnectionID(ctx); v != "" {
		r.AddAttrs(slog.String("connection_id", v))
	}
	if v := Gesture(ctx); v != "" {
		r.AddAttrs(slog.String("gesture", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
