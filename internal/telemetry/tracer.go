package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for AFSEC protocol spans.
const (
	AttrCorrelationID = "afsec.correlation_id"
	AttrMessageTag    = "afsec.message_tag"
	AttrMiddleware    = "afsec.middleware"
	AttrNotifyCount   = "afsec.notification_count"
)

// Span names for operations.
const (
	SpanHandleRawFrame    = "middleware.handle_request_raw_frame"
	SpanDrainNotification = "middleware.drain_notification"
)

// CorrelationID returns an attribute for the per-frame correlation id used
// to stitch a request's log lines and trace span together.
func CorrelationID(id string) attribute.KeyValue {
	return attribute.String(AttrCorrelationID, id)
}

// MessageTag returns an attribute for an AFSEC message tag byte.
func MessageTag(tag byte) attribute.KeyValue {
	return attribute.String(AttrMessageTag, fmt.Sprintf("0x%02x", tag))
}

// Middleware returns an attribute for the middleware owning a conversation.
func Middleware(name string) attribute.KeyValue {
	return attribute.String(AttrMiddleware, name)
}

// NotifyCount returns an attribute for how many notification changes a
// drain pass delivered.
func NotifyCount(n int) attribute.KeyValue {
	return attribute.Int(AttrNotifyCount, n)
}
