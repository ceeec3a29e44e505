// Package logging provides structured logging on top of log/slog.
//
// One process-wide logger is configured by InitLogger. Request-scoped
// values (request id, user id) travel in the context and are attached by
// the *Context functions. Pipeline events have dedicated helpers so their
// field names stay stable for log queries.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Level is a slog level.
type Level = slog.Level

// Levels accepted by ParseLevel.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the handler.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

var current atomic.Pointer[slog.Logger]

func init() {
	InitLogger(LevelInfo, FormatJSON)
}

// ParseLevel maps a configuration string to a Level. Empty means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat maps a configuration string to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	}
	return FormatJSON, fmt.Errorf("unknown log format %q", s)
}

// InitLogger sends logs to stderr. Stdout belongs to command output.
func InitLogger(level Level, format Format) {
	InitLoggerTo(os.Stderr, level, format)
}

// InitLoggerTo sends logs to w and makes the logger slog's default.
func InitLoggerTo(w io.Writer, level Level, format Format) {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}
	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if format == FormatText {
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h)
	current.Store(l)
	slog.SetDefault(l)
}

func base() *slog.Logger { return current.Load() }

// WithRequestID returns ctx carrying a request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request id in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithUserID returns ctx acting for user id. Library operations are scoped
// to this user.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID returns the user id in ctx, or "".
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// LoggerFromContext returns the logger with the request and user ids of ctx
// attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	l := base()
	if id := GetRequestID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if id := GetUserID(ctx); id != "" {
		l = l.With("user_id", id)
	}
	return l
}

func Debug(msg string, args ...any) { base().Debug(msg, args...) }
func Info(msg string, args ...any)  { base().Info(msg, args...) }
func Warn(msg string, args ...any)  { base().Warn(msg, args...) }
func Error(msg string, args ...any) { base().Error(msg, args...) }

func DebugContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Debug(msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Info(msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Error(msg, args...)
}

// event logs msg at level with the fixed fields first and extra after.
func event(l *slog.Logger, level Level, msg string, fields []any, extra []any) {
	l.Log(context.Background(), level, msg, append(fields, extra...)...)
}

// HTTPRequestContext writes the access log record of one request.
func HTTPRequestContext(ctx context.Context, method, path, remoteAddr string, status int, d time.Duration, extra ...any) {
	event(LoggerFromContext(ctx), LevelInfo, "http_request", []any{
		"method", method, "path", path, "remote_addr", remoteAddr,
		"status_code", status, "duration_ms", d.Milliseconds(),
	}, extra)
}

// ParseCompleted records the line counts of one parse run.
func ParseCompleted(ctx context.Context, sourceType string, lines, structural, citable, dropped int, extra ...any) {
	event(LoggerFromContext(ctx), LevelInfo, "parse_completed", []any{
		"source_type", sourceType, "lines", lines,
		"structural", structural, "citable", citable, "dropped", dropped,
	}, extra)
}

// SessionCommitted records a review session turned into a document.
func SessionCommitted(ctx context.Context, sessionID, documentID string, nodes int, extra ...any) {
	event(LoggerFromContext(ctx), LevelInfo, "session_committed", []any{
		"session_id", sessionID, "document_id", documentID, "nodes", nodes,
	}, extra)
}

// AliasChanged records an alias create, update or delete.
func AliasChanged(ctx context.Context, operation, aliasID, prefix string, extra ...any) {
	event(LoggerFromContext(ctx), LevelInfo, "alias_changed", []any{
		"operation", operation, "alias_id", aliasID, "prefix", prefix,
	}, extra)
}

// AutoLinked records one auto-link pass at debug level.
func AutoLinked(ctx context.Context, linked, fragmentBytes int, extra ...any) {
	event(LoggerFromContext(ctx), LevelDebug, "auto_linked", []any{
		"linked", linked, "fragment_bytes", fragmentBytes,
	}, extra)
}

// WebSocketEvent records a client joining or leaving the event hub.
func WebSocketEvent(name string, clients int, extra ...any) {
	event(base(), LevelInfo, "websocket_event", []any{"event", name, "client_count", clients}, extra)
}

// ServerStartup records a listener coming up.
func ServerStartup(serverType, protocol string, port int, extra ...any) {
	event(base(), LevelInfo, "server_startup", []any{
		"server_type", serverType, "protocol", protocol, "port", port,
	}, extra)
}

// SecurityEvent records authentication and policy decisions at warn level.
func SecurityEvent(name, component string, extra ...any) {
	event(base(), LevelWarn, "security_event", []any{"event", name, "component", component}, extra)
}
