// Package logging provides structured, context-aware process logging.
// This is the ambient operational logger — tailed by operators — and is
// distinct from the domain Audit Log Entry persisted through the
// Repository's append_log/get_logs contract.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// contextKey is a type for context keys.
type contextKey string

const (
	// RequestIDKey is the context key for an HTTP request ID.
	RequestIDKey contextKey = "request_id"
	// RunIDKey is the context key for a benchmark run ID.
	RunIDKey contextKey = "run_id"
	// ModelIDKey is the context key for a model descriptor ID.
	ModelIDKey contextKey = "model_id"
)

// Config holds logging configuration.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "text"
	Output io.Writer
}

// Setup configures the global logger.
func Setup(cfg Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = &ContextHandler{Handler: handler}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// ContextHandler adds context values to log records before delegating to
// the wrapped handler.
type ContextHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing to the wrapped handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		r.AddAttrs(slog.String("run_id", runID))
	}
	if modelID, ok := ctx.Value(ModelIDKey).(string); ok && modelID != "" {
		r.AddAttrs(slog.String("model_id", modelID))
	}
	return h.Handler.Handle(ctx, r)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithModelID adds a model ID to the context.
func WithModelID(ctx context.Context, modelID string) context.Context {
	return context.WithValue(ctx, ModelIDKey, modelID)
}

// Logger returns a logger enriched with any context values present.
func Logger(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	var attrs []any
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		attrs = append(attrs, "run_id", runID)
	}
	if modelID, ok := ctx.Value(ModelIDKey).(string); ok && modelID != "" {
		attrs = append(attrs, "model_id", modelID)
	}

	if len(attrs) > 0 {
		return logger.With(attrs...)
	}
	return logger
}

// Audit logs an audit event to the ambient process log at Info level; like
// any Info record it is dropped when the configured level is warn or
// error. This is a breadcrumb for operators; the
// queryable domain audit trail lives in the Repository.
func Audit(ctx context.Context, operation string, attrs ...any) {
	logger := slog.Default()

	baseAttrs := []any{
		"audit", true,
		"operation", operation,
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		baseAttrs = append(baseAttrs, "request_id", requestID)
	}
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		baseAttrs = append(baseAttrs, "run_id", runID)
	}
	if modelID, ok := ctx.Value(ModelIDKey).(string); ok && modelID != "" {
		baseAttrs = append(baseAttrs, "model_id", modelID)
	}

	baseAttrs = append(baseAttrs, attrs...)

	logger.Info("AUDIT", baseAttrs...)
}

// Debug logs a debug message.
func Debug(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Debug(msg, args...)
}

// Info logs an info message.
func Info(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Info(msg, args...)
}

// Warn logs a warning message.
func Warn(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Warn(msg, args...)
}

// Error logs an error message.
func Error(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Error(msg, args...)
}
