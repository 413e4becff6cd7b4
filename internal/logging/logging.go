// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// TextIDKey is the context key for the text being processed.
	TextIDKey ContextKey = "text_id"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	InitLogger(LevelInfo, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// ParseLevel maps a configuration string to a Level. Unknown names give LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat maps a configuration string to a Format. Anything but "json" is text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// InitLogger initializes the global logger on stderr, keeping stdout free
// for command output.
func InitLogger(level Level, format Format) {
	InitLoggerTo(os.Stderr, level, format)
}

// InitLoggerTo initializes the global logger writing to w.
func InitLoggerTo(w io.Writer, level Level, format Format) {
	defaultLogger = New(w, level, format)
	slog.SetDefault(defaultLogger)
}

// New builds a logger without touching the global one.
func New(w io.Writer, level Level, format Format) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// WithTextID adds a text ID to the context.
func WithTextID(ctx context.Context, textID string) context.Context {
	return context.WithValue(ctx, TextIDKey, textID)
}

// GetTextID retrieves the text ID from the context.
func GetTextID(ctx context.Context) string {
	if id, ok := ctx.Value(TextIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if id := GetTextID(ctx); id != "" {
		logger = logger.With("text_id", id)
	}
	return logger
}

// Helper functions for common logging patterns

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// InfoContext logs an info message with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Info(msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return defaultLogger
	}
	return l
}

// ParseSummary logs the outcome of one paragraph reparse at debug level.
func ParseSummary(l *slog.Logger, paragraphID string, segments, reused int, changed bool, args ...any) {
	allArgs := []any{
		"paragraph", paragraphID,
		"segments", segments,
		"reused", reused,
		"changed", changed,
	}
	allArgs = append(allArgs, args...)
	orDefault(l).Debug("paragraph_reparsed", allArgs...)
}

// AnalysisLoss logs analyses that a reparse could not reattach.
func AnalysisLoss(l *slog.Logger, paragraphID string, lost int, args ...any) {
	allArgs := []any{
		"paragraph", paragraphID,
		"lost", lost,
	}
	allArgs = append(allArgs, args...)
	orDefault(l).Warn("analyses_lost", allArgs...)
}

// StoreOperation logs a persistence operation with its duration.
func StoreOperation(ctx context.Context, operation, path string, duration time.Duration, args ...any) {
	allArgs := []any{
		"operation", operation,
		"path", path,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Info("store_operation", allArgs...)
}

// ImportEvent logs a completed import or export of interlinear data.
func ImportEvent(format, path string, paragraphs int, args ...any) {
	allArgs := []any{
		"format", format,
		"path", path,
		"paragraphs", paragraphs,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("interlinear_io", allArgs...)
}
