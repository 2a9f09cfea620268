// Package metrics exposes the simulator's Prometheus collectors: frames
// decoded/rejected, notification changes appended/debounced, the active
// conversation gauge, and database writes per zone.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the simulator registers. A nil *Metrics is
// valid everywhere it's accepted: every method is a nil-safe no-op, so
// callers that run with metrics disabled pay no overhead and need no extra
// branching.
type Metrics struct {
	registry *prometheus.Registry

	framesDecoded          *prometheus.CounterVec
	framesRejected         prometheus.Counter
	notificationsAppended  prometheus.Counter
	notificationsDebounced prometheus.Counter
	activeConversation     *prometheus.GaugeVec
	dbWrites               *prometheus.CounterVec
}

// New creates a Metrics instance registered against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	return &Metrics{
		registry: reg,
		framesDecoded: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "icomsim_frames_decoded_total",
				Help: "Total number of AFSEC message frames successfully decoded, by message tag.",
			},
			[]string{"tag"},
		),
		framesRejected: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "icomsim_frames_rejected_total",
				Help: "Total number of raw byte sequences discarded as junk or malformed frames.",
			},
		),
		notificationsAppended: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "icomsim_notifications_appended_total",
				Help: "Total number of database changes appended to the notification ledger.",
			},
		),
		notificationsDebounced: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "icomsim_notifications_debounced_total",
				Help: "Total number of database changes suppressed by the debounce window.",
			},
		),
		activeConversation: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "icomsim_active_conversation",
				Help: "1 for the middleware currently owning the serial link's conversation, 0 otherwise.",
			},
			[]string{"middleware"},
		),
		dbWrites: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "icomsim_db_writes_total",
				Help: "Total number of tag database writes, by zone.",
			},
			[]string{"zone"},
		),
	}
}

// Handler returns the HTTP handler serving this instance's registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFrameDecoded records one successfully decoded message frame.
func (m *Metrics) ObserveFrameDecoded(tag byte) {
	if m == nil {
		return
	}
	m.framesDecoded.WithLabelValues(tagLabel(tag)).Inc()
}

// ObserveFrameRejected records one frame discarded as junk or malformed.
func (m *Metrics) ObserveFrameRejected() {
	if m == nil {
		return
	}
	m.framesRejected.Inc()
}

// ObserveNotificationAppended records one change appended to the ledger.
func (m *Metrics) ObserveNotificationAppended() {
	if m == nil {
		return
	}
	m.notificationsAppended.Inc()
}

// ObserveNotificationDebounced records one change suppressed by the
// debounce window.
func (m *Metrics) ObserveNotificationDebounced() {
	if m == nil {
		return
	}
	m.notificationsDebounced.Inc()
}

// SetActiveConversation marks which middleware (if any) currently owns the
// serial link's conversation; an empty name clears every gauge to 0.
func (m *Metrics) SetActiveConversation(names []string, active string) {
	if m == nil {
		return
	}
	for _, name := range names {
		value := 0.0
		if name == active {
			value = 1.0
		}
		m.activeConversation.WithLabelValues(name).Set(value)
	}
}

// ObserveDBWrite records one database write against zone.
func (m *Metrics) ObserveDBWrite(zone uint8) {
	if m == nil {
		return
	}
	m.dbWrites.WithLabelValues(zoneLabel(zone)).Inc()
}

func tagLabel(tag byte) string {
	return byteLabel(tag)
}

func zoneLabel(zone uint8) string {
	return byteLabel(zone)
}

func byteLabel(b byte) string {
	const hex = "0123456789abcdef"
	return "0x" + string([]byte{hex[b>>4], hex[b&0x0f]})
}
