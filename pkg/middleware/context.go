package middleware

import (
	"sort"

	"github.com/ddurler/icomsim/pkg/tagdb"
	"github.com/ddurler/icomsim/pkg/typedvalue"
)

// RecordData is one DATA_OUT item collected against a TABLE_INDEX, pending
// the END_OF_RECORD sentinel that closes the journal record.
type RecordData struct {
	TableIndex uint64
	IdTag      tagdb.IdTag
	Value      typedvalue.Value
}

// indexRange tracks the min/max table index observed for a zone.
type indexRange struct {
	min, max uint64
	seen     bool
}

// Records remembers, per zone, the range of TABLE_INDEX values MDataOut has
// seen flow through an END_OF_RECORD group.
type Records struct {
	byZone map[uint8]indexRange
}

func newRecords() Records {
	return Records{byZone: make(map[uint8]indexRange)}
}

// SetIndex folds idx into zone's observed [min,max] range.
func (r *Records) SetIndex(zone uint8, idx uint64) {
	rng, ok := r.byZone[zone]
	if !ok {
		r.byZone[zone] = indexRange{min: idx, max: idx, seen: true}
		return
	}
	if idx < rng.min {
		rng.min = idx
	}
	if idx > rng.max {
		rng.max = idx
	}
	r.byZone[zone] = rng
}

// GetIndexMin returns zone's lowest observed table index, or 0 if unset.
func (r Records) GetIndexMin(zone uint8) uint64 {
	return r.byZone[zone].min
}

// GetIndexMax returns zone's highest observed table index, or 0 if unset.
func (r Records) GetIndexMax(zone uint8) uint64 {
	return r.byZone[zone].max
}

// blocSnapshot is one PACK_IN block captured at transaction start: its
// zone-5 sub-block index and a 64-byte copy of the database at that time.
type blocSnapshot struct {
	Bloc uint8
	Data []byte
}

// PackInState is the zone-5 "command" PACK_IN conversation's private state.
type PackInState struct {
	IsTransaction   bool
	SetBlocs        map[uint8]struct{}
	PrivateDatas    []blocSnapshot
	SetPendingBlocs map[uint8]struct{}
}

func newPackInState() PackInState {
	return PackInState{
		SetBlocs:        make(map[uint8]struct{}),
		SetPendingBlocs: make(map[uint8]struct{}),
	}
}

func sortedBlocs(set map[uint8]struct{}) []uint8 {
	out := make([]uint8, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// packetSnapshot is one received zone-4 PACK_OUT packet, staged until the
// transaction's closing packet commits the whole batch.
type packetSnapshot struct {
	WordOffset uint8
	Data       []byte
}

// PackOutState is the zone-4 "supervision" PACK_OUT conversation's private
// state.
type PackOutState struct {
	IsTransaction  bool
	NbTotalPackets *uint8
	LastNumPacket  *uint8
	PrivateDatas   []packetSnapshot
}

// NotificationItem is one database change queued for delivery to the
// AFSEC+ peer via MDataIn.
type NotificationItem struct {
	IdTag tagdb.IdTag
	Value typedvalue.Value
}

// Context is the mutable state shared by every middleware across a single
// conversation. It is owned exclusively by the Dispatcher and borrowed
// mutably into each middleware call; middlewares themselves carry no
// state of their own.
type Context struct {
	NbInit    int
	NbDataOut int
	NbDataIn  int
	NbPackOut int
	NbPackIn  int

	Zone       *uint8
	TableIndex *uint64
	VecU8Tag   *[5]byte
	TValue     *typedvalue.Value

	RecordDatas []RecordData
	Records     Records

	PackIn  PackInState
	PackOut PackOutState

	NotificationChanges []NotificationItem
}

// NewContext returns a freshly reset Context, as it exists right after a
// dispatcher is created or an AF_INIT resets every conversation.
func NewContext() *Context {
	return &Context{
		Records: newRecords(),
		PackIn:  newPackInState(),
	}
}
