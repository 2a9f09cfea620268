package middleware

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ddurler/icomsim/internal/logger"
	"github.com/ddurler/icomsim/internal/telemetry"
	"github.com/ddurler/icomsim/pkg/frame"
	"github.com/ddurler/icomsim/pkg/metrics"
	"github.com/ddurler/icomsim/pkg/tagdb"
	"github.com/ddurler/icomsim/pkg/typedvalue"
)

// middlewareID is a fixed tag over the six middlewares that sit behind the
// dispatcher's "current conversation" slot. MInit is handled inline by the
// dispatcher itself (see HandleRequestRawFrame) and never appears here: it
// is a one-shot reset-and-reply, never a multi-frame conversation.
//
// Representing the middleware set this way (a closed enum dispatched
// through a switch) rather than a slice of boxed interface values avoids
// heap allocation and the lifetime contortions a `[]Middleware` owning a
// `&mut Context` would need; every middleware "method" here is a plain
// function over (*Context, *tagdb.Database, ...).
type middlewareID uint8

const (
	midPackOut middlewareID = iota
	midPackIn
	midDataOut
	midDataIn
	midDataOutTableIndex
	midMenu
)

// middlewareOrder is the fixed routing order used both to offer an
// unclaimed frame to every middleware in turn and to broadcast database
// notifications.
var middlewareOrder = [...]middlewareID{
	midPackOut, midPackIn, midDataOut, midDataIn, midDataOutTableIndex, midMenu,
}

// name is the metrics label identifying this middleware on the
// icomsim_active_conversation gauge.
func (id middlewareID) name() string {
	switch id {
	case midPackOut:
		return "pack_out"
	case midPackIn:
		return "pack_in"
	case midDataOut:
		return "data_out"
	case midDataIn:
		return "data_in"
	case midDataOutTableIndex:
		return "data_out_table_index"
	case midMenu:
		return "menu"
	default:
		return "unknown"
	}
}

var middlewareNames = func() []string {
	names := make([]string, len(middlewareOrder))
	for i, id := range middlewareOrder {
		names[i] = id.name()
	}
	return names
}()

func resetConversation(id middlewareID, ctx *Context) {
	switch id {
	case midPackOut:
		resetPackOut(ctx)
	case midPackIn:
		resetPackIn(ctx)
	case midDataOut:
		resetDataOut(ctx)
	case midDataIn:
		resetDataIn(ctx)
	case midDataOutTableIndex:
		resetDataOutTableIndex(ctx)
	case midMenu:
		resetMenu(ctx)
	}
}

func getConversation(id middlewareID, ctx *Context, db *tagdb.Database, df frame.DataFrame, selfUser tagdb.IdUser) (frame.RawFrame, bool) {
	switch id {
	case midPackOut:
		return getConversationPackOut(ctx, db, df, selfUser)
	case midPackIn:
		return getConversationPackIn(ctx, db, df, selfUser)
	case midDataOut:
		return getConversationDataOut(ctx, db, df, selfUser)
	case midDataIn:
		return getConversationDataIn(ctx, df)
	case midDataOutTableIndex:
		return getConversationDataOutTableIndex(ctx, df)
	case midMenu:
		return getConversationMenu(df)
	default:
		return frame.RawFrame{}, false
	}
}

func notifyMiddleware(id middlewareID, ctx *Context, idUser, selfUser tagdb.IdUser, idTag tagdb.IdTag, value typedvalue.Value) {
	switch id {
	case midPackIn:
		notifyPackIn(ctx, idUser, selfUser, idTag)
	case midDataIn:
		notifyDataIn(ctx, idUser, selfUser, idTag, value)
	}
}

// Dispatcher multiplexes the AFSEC conversations sharing one serial link:
// it owns the Context, tracks which middleware (if any) currently owns the
// conversation, and routes both incoming frames and outgoing database
// change notifications.
type Dispatcher struct {
	ctx     *Context
	current *middlewareID

	// selfUser is the identity the dispatcher writes the database under
	// (MInit, MDataOut and MPackOut writes) and the identity DrainNotifications
	// polls GetChange against. It must have notifications enabled so the
	// ledger actually records changes for it to drain; the loopback this
	// would otherwise cause (AFSEC+'s own writes echoing back to itself via
	// MDataIn) is filtered at the notify step instead, not by disabling
	// notifications on this identity.
	selfUser tagdb.IdUser

	metrics *metrics.Metrics
}

// NewDispatcher returns a Dispatcher registered against db under its own
// notification-ledger identity.
func NewDispatcher(db *tagdb.Database) *Dispatcher {
	return &Dispatcher{
		ctx:      NewContext(),
		selfUser: db.GetIdUser("AFSEC+", true),
	}
}

// SelfUser returns the IdUser the dispatcher writes the database under.
func (d *Dispatcher) SelfUser() tagdb.IdUser { return d.selfUser }

// AttachMetrics wires m into the dispatcher so the active-conversation
// gauge tracks which middleware (if any) currently owns the serial link.
func (d *Dispatcher) AttachMetrics(m *metrics.Metrics) {
	d.metrics = m
}

// setCurrent updates which middleware owns the conversation and reflects
// it onto the active-conversation gauge. A nil mid clears every gauge.
func (d *Dispatcher) setCurrent(mid *middlewareID) {
	d.current = mid
	active := ""
	if mid != nil {
		active = mid.name()
	}
	d.metrics.SetActiveConversation(middlewareNames, active)
}

func (d *Dispatcher) resetAll() {
	for _, id := range middlewareOrder {
		resetConversation(id, d.ctx)
	}
}

// HandleRequestRawFrame parses raw, routes it to the owning conversation
// (or offers it fresh to every middleware in order), and returns the reply
// frame. A raw frame that fails to parse yields an empty reply — the
// caller should emit no bytes and let the transport discard and restart
// its builder.
func (d *Dispatcher) HandleRequestRawFrame(ctx context.Context, db *tagdb.Database, raw frame.RawFrame) frame.RawFrame {
	corrID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanHandleRawFrame, trace.WithAttributes(telemetry.CorrelationID(corrID)))
	defer span.End()

	df, err := frame.NewDataFrame(raw)
	if err != nil {
		logger.Debug("afsec: frame rejected", "correlation_id", corrID, "error", err)
		telemetry.RecordError(ctx, err)
		return frame.RawFrame{}
	}
	telemetry.SetAttributes(ctx, telemetry.MessageTag(df.Tag()))

	if df.IsMessage() && df.Tag() == AfInit {
		d.resetAll()
		d.setCurrent(nil)
		if reply, ok := getConversationInit(d.ctx, db, df, d.selfUser); ok {
			return reply
		}
		return frame.NewNack()
	}

	var reply frame.RawFrame
	claimed := false

	if d.current != nil {
		if r, ok := getConversation(*d.current, d.ctx, db, df, d.selfUser); ok {
			reply, claimed = r, true
		} else {
			d.setCurrent(nil)
		}
	}

	if !claimed && d.current == nil {
		d.resetAll()
		for _, id := range middlewareOrder {
			if r, ok := getConversation(id, d.ctx, db, df, d.selfUser); ok {
				mid := id
				d.setCurrent(&mid)
				reply, claimed = r, true
				break
			}
		}
	}

	if !claimed {
		if df.IsMessage() && df.Tag() == AfAlive {
			return frame.NewMessage(IcAlive)
		}
		logger.Debug("afsec: frame unclaimed by any conversation", "correlation_id", corrID, "tag", df.Tag())
		return frame.NewNack()
	}

	if d.current != nil {
		telemetry.SetAttributes(ctx, telemetry.Middleware(d.current.name()))
	}

	return reply
}

// NotificationChange broadcasts a database write to every middleware so
// each may fold it into its own private state (MDataIn's outgoing queue,
// MPackIn's pending-block set), regardless of which conversation currently
// owns the serial link.
func (d *Dispatcher) NotificationChange(db *tagdb.Database, idUser tagdb.IdUser, idTag tagdb.IdTag, value typedvalue.Value) {
	for _, id := range middlewareOrder {
		notifyMiddleware(id, d.ctx, idUser, d.selfUser, idTag, value)
	}
}

// DrainNotifications forwards every pending change addressed to the
// dispatcher's own identity into NotificationChange, as the periodic
// notification-drain task described for the serial-I/O loop does. It
// returns the number of changes forwarded.
func (d *Dispatcher) DrainNotifications(db *tagdb.Database, includeAnonymousChanges bool) int {
	ctx, span := telemetry.StartSpan(context.Background(), telemetry.SpanDrainNotification)
	defer span.End()

	n := 0
	for {
		change, ok := db.GetChange(d.selfUser, false, includeAnonymousChanges)
		if !ok {
			telemetry.SetAttributes(ctx, telemetry.NotifyCount(n))
			return n
		}
		tag, found := db.GetTagFromIdTag(change.IdTag)
		if !found {
			continue
		}
		d.NotificationChange(db, change.IdUser, change.IdTag, db.GetValueFromTag(tag))
		n++
	}
}
