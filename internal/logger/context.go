package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for one AFSEC
// conversation: the frame correlation ID, which middleware owns it, and
// the tag/zone it's currently touching.
type LogContext struct {
	TraceID       string    // OpenTelemetry trace ID
	SpanID        string    // OpenTelemetry span ID
	CorrelationID string    // Per-frame correlation ID (see pkg/middleware.Dispatcher)
	Middleware    string    // Conversation owner: m_init, m_data_out, etc.
	Zone          uint8     // Tag zone currently being handled
	IdTag         string    // Tag identifier currently being handled
	StartTime     time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a frame with the given
// correlation ID.
func NewLogContext(correlationID string) *LogContext {
	return &LogContext{
		CorrelationID: correlationID,
		StartTime:     time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:       lc.TraceID,
		SpanID:        lc.SpanID,
		CorrelationID: lc.CorrelationID,
		Middleware:    lc.Middleware,
		Zone:          lc.Zone,
		IdTag:         lc.IdTag,
		StartTime:     lc.StartTime,
	}
}

// WithMiddleware returns a copy with the owning middleware set
func (lc *LogContext) WithMiddleware(name string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Middleware = name
	}
	return clone
}

// WithTag returns a copy with the zone/tag being handled set
func (lc *LogContext) WithTag(zone uint8, idTag string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Zone = zone
		clone.IdTag = idTag
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
