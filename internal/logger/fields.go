package logger

import "log/slog"

// Standard field keys for structured logging. Use these consistently
// across log statements so a single AFSEC conversation's lines can be
// correlated and queried.
const (
	KeyTraceID       = "trace_id"       // OpenTelemetry trace ID for request correlation
	KeySpanID        = "span_id"        // OpenTelemetry span ID for operation tracking
	KeyCorrelationID = "correlation_id" // Per-frame correlation ID (see pkg/middleware.Dispatcher)
	KeyMiddleware    = "middleware"     // Conversation owner: m_init, m_data_out, etc.
	KeyZone          = "zone"           // Tag zone currently being handled
	KeyIdTag         = "id_tag"         // Tag identifier currently being handled
	KeyUser          = "user"           // User identifier performing a database operation
	KeyError         = "error"          // Error message
	KeyDurationMs    = "duration_ms"    // Operation duration in milliseconds
)

// TraceID returns a slog.Attr for the OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for the OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// CorrelationID returns a slog.Attr for the per-frame correlation ID.
func CorrelationID(id string) slog.Attr {
	return slog.String(KeyCorrelationID, id)
}

// Middleware returns a slog.Attr for the middleware owning a conversation.
func Middleware(name string) slog.Attr {
	return slog.String(KeyMiddleware, name)
}

// Zone returns a slog.Attr for a tag database zone byte.
func Zone(zone uint8) slog.Attr {
	return slog.Any(KeyZone, zone)
}

// IdTag returns a slog.Attr for a tag identifier, already formatted as a
// string (see pkg/tagdb.IdTag.String).
func IdTag(id string) slog.Attr {
	return slog.String(KeyIdTag, id)
}

// User returns a slog.Attr for a user identifier.
func User(id uint32) slog.Attr {
	return slog.Any(KeyUser, id)
}

// Err returns a slog.Attr for an error, or a zero Attr for a nil error so
// callers can pass it unconditionally.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
