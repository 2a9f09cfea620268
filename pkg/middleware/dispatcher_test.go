package middleware

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ddurler/icomsim/pkg/frame"
	"github.com/ddurler/icomsim/pkg/metrics"
	"github.com/ddurler/icomsim/pkg/tagdb"
	"github.com/ddurler/icomsim/pkg/typedvalue"
)

func newTestDispatcher() (*Dispatcher, *tagdb.Database) {
	db := tagdb.New()
	return NewDispatcher(db), db
}

// messageFrame builds a complete Ok-state RawFrame for tag carrying items,
// the same way an outgoing IC_* reply or an incoming AF_* request is built.
func messageFrame(t *testing.T, tag byte, items ...frame.DataItem) frame.RawFrame {
	t.Helper()
	rf := frame.NewMessage(tag)
	for _, it := range items {
		if err := rf.TryExtendDataItem(it); err != nil {
			t.Fatalf("TryExtendDataItem: %v", err)
		}
	}
	return rf
}

// S1: ALIVE handshake with nothing to say.
func TestScenarioS1AliveHandshake(t *testing.T) {
	d, db := newTestDispatcher()

	req := frame.NewMessage(AfAlive)
	if got, want := req.Encode(), []byte{0x02, 0x00, 0x00, 0x00, 0x03}; string(got) != string(want) {
		t.Fatalf("AF_ALIVE encode = % x, want % x", got, want)
	}

	reply := d.HandleRequestRawFrame(context.Background(), db, req)
	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	switch {
	case df.IsSimpleAck():
		// acceptable: bare ACK
	case df.IsMessage() && df.Tag() == IcAlive:
		// acceptable: IC_ALIVE message
	default:
		t.Fatalf("unexpected reply to AF_ALIVE with nothing to say: %+v", reply)
	}
}

// S2: INIT handshake writes the decomposed resident version into zone 0
// and replies with IC_INIT carrying protocol/ICOM version zero.
func TestScenarioS2Init(t *testing.T) {
	d, db := newTestDispatcher()

	idMajor := tagdb.NewIdTag(0, 0x01, [3]uint8{})
	idMinor := tagdb.NewIdTag(0, 0x02, [3]uint8{})
	idEdit := tagdb.NewIdTag(0, 0x03, [3]uint8{})
	db.AddTag(tagdb.Tag{WordAddress: 0, IdTag: idMajor, Format: typedvalue.U16, IsWrite: true})
	db.AddTag(tagdb.Tag{WordAddress: 1, IdTag: idMinor, Format: typedvalue.U16, IsWrite: true})
	db.AddTag(tagdb.Tag{WordAddress: 2, IdTag: idEdit, Format: typedvalue.U16, IsWrite: true})

	req := messageFrame(t, AfInit, frame.NewDataItem(DResidentVersion, typedvalue.FromU32(50200)))
	reply := d.HandleRequestRawFrame(context.Background(), db, req)

	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	if !df.IsMessage() || df.Tag() != IcInit {
		t.Fatalf("reply = %+v, want IC_INIT message", df)
	}
	items := df.DataItems()
	if len(items) != 2 || items[0].Tag != DProtocoleVersion || items[0].Value.ToU16() != 0 ||
		items[1].Tag != DIcomVersion || items[1].Value.ToU16() != 0 {
		t.Fatalf("IC_INIT items = %+v, want protocol/icom version 0", items)
	}

	if got := db.GetU16FromIdTag(d.SelfUser(), idMajor); got != 5 {
		t.Fatalf("resident version major = %d, want 5", got)
	}
	if got := db.GetU16FromIdTag(d.SelfUser(), idMinor); got != 2 {
		t.Fatalf("resident version minor = %d, want 2", got)
	}
	if got := db.GetU16FromIdTag(d.SelfUser(), idEdit); got != 0 {
		t.Fatalf("resident version edit = %d, want 0", got)
	}
}

// S3: a single DATA_OUT frame writing zone 0 / tag 0x0102 to U16(123),
// replying ACK and landing the value in the database.
func TestScenarioS3DataOutWrite(t *testing.T) {
	d, db := newTestDispatcher()

	id := tagdb.NewIdTag(0, 0x0102, [3]uint8{0, 0, 0})
	db.AddTag(tagdb.Tag{WordAddress: 10, IdTag: id, Format: typedvalue.U16, IsWrite: true})

	req := messageFrame(t, AfDataOut,
		frame.NewDataItem(DDataZone, typedvalue.FromU8(0)),
		frame.NewDataItem(DDataTag, typedvalue.FromBytes([]byte{0x01, 0x02, 0, 0, 0})),
		frame.NewDataItem(DDataValue, typedvalue.FromU16(123)),
	)
	reply := d.HandleRequestRawFrame(context.Background(), db, req)

	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	if !df.IsSimpleAck() {
		t.Fatalf("reply = %+v, want ACK", df)
	}
	if got := db.GetU16FromIdTag(d.SelfUser(), id); got != 123 {
		t.Fatalf("GetU16FromIdTag = %d, want 123", got)
	}
}

// S4: after another user writes U16(123) to zone 0 / tag 0x0102, the next
// AF_ALIVE elicits an IC_DATA_IN carrying that change.
func TestScenarioS4DataInNotify(t *testing.T) {
	d, db := newTestDispatcher()

	id := tagdb.NewIdTag(0, 0x0102, [3]uint8{0, 0, 0})
	db.AddTag(tagdb.Tag{WordAddress: 10, IdTag: id, Format: typedvalue.U16, IsWrite: true})

	other := db.GetIdUser("modbus-client", false)
	db.SetU16ToIdTag(other, id, 123)

	if n := d.DrainNotifications(db, true); n != 1 {
		t.Fatalf("DrainNotifications forwarded %d changes, want 1", n)
	}

	req := frame.NewMessage(AfAlive)
	reply := d.HandleRequestRawFrame(context.Background(), db, req)

	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	if !df.IsMessage() || df.Tag() != IcDataIn {
		t.Fatalf("reply = %+v, want IC_DATA_IN message", df)
	}

	items := df.DataItems()
	if len(items) != 3 {
		t.Fatalf("IC_DATA_IN items = %+v, want 3 items", items)
	}
	if items[0].Tag != DDataZone || items[0].Value.ToU8() != 0 {
		t.Fatalf("item 0 = %+v, want D_DATA_ZONE=0", items[0])
	}
	if items[1].Tag != DDataTag || string(items[1].Value.ToBytes()) != string([]byte{0x01, 0x02, 0, 0, 0}) {
		t.Fatalf("item 1 = %+v, want D_DATA_TAG=[01 02 00 00 00]", items[1])
	}
	if items[2].Tag != DDataValue || items[2].Value.ToU16() != 123 {
		t.Fatalf("item 2 = %+v, want D_DATA_VALUE=123", items[2])
	}
}

// S5: a single PACK_OUT packet commits its payload to the database at the
// registered zone-4 base tag's word address plus the packet's word offset.
func TestScenarioS5PackOutSinglePacket(t *testing.T) {
	d, db := newTestDispatcher()

	const wb = tagdb.WordAddress(100)
	baseID := tagdb.NewIdTag(4, TagDataPack, [3]uint8{0, 0, 0})
	db.AddTag(tagdb.Tag{WordAddress: wb, IdTag: baseID, Format: typedvalue.Bytes(0)})

	req := messageFrame(t, AfPackOut,
		frame.NewDataItem(DPackPayload, typedvalue.FromBytes([]byte{0x11, 10, 1, 2, 3, 4})),
	)
	reply := d.HandleRequestRawFrame(context.Background(), db, req)

	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	if !df.IsSimpleAck() {
		t.Fatalf("reply = %+v, want ACK", df)
	}

	got := db.GetBytesFromWordAddress(wb+10, 4)
	want := []byte{1, 2, 3, 4}
	if string(got) != string(want) {
		t.Fatalf("database bytes at WB+10 = % x, want % x", got, want)
	}
}

// S6: a prior anonymous write into zone-5 PACK block 0 is drained into an
// IC_PACK_IN transaction carrying exactly that block's snapshot.
func TestScenarioS6PackInSingleBlock(t *testing.T) {
	d, db := newTestDispatcher()

	const wp = tagdb.WordAddress(200)
	blockID := tagdb.NewIdTag(5, TagDataPack, [3]uint8{0, 0, 0})
	db.AddTag(tagdb.Tag{WordAddress: wp, IdTag: blockID, Format: typedvalue.Bytes(64)})

	db.SetVecU8ToWordAddress(tagdb.AnonymousUser, wp+10, []byte{1, 2, 3, 4})

	if n := d.DrainNotifications(db, true); n != 1 {
		t.Fatalf("DrainNotifications forwarded %d changes, want 1", n)
	}

	req := frame.NewMessage(AfAlive)
	reply := d.HandleRequestRawFrame(context.Background(), db, req)

	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	if !df.IsMessage() || df.Tag() != IcPackIn {
		t.Fatalf("reply = %+v, want IC_PACK_IN message", df)
	}

	items := df.DataItems()
	if len(items) != 1 || items[0].Tag != DPackPayload {
		t.Fatalf("IC_PACK_IN items = %+v, want one D_PACK_PAYLOAD", items)
	}
	payload := items[0].Value.ToBytes()
	if len(payload) != 2+64 {
		t.Fatalf("D_PACK_PAYLOAD length = %d, want 66", len(payload))
	}
	if payload[0] != 0x11 {
		t.Fatalf("header byte = %#x, want 0x11 (block 1/1)", payload[0])
	}
	if payload[1] != 0 {
		t.Fatalf("word-offset byte = %d, want 0", payload[1])
	}
	if got, want := payload[2+20:2+24], []byte{1, 2, 3, 4}; string(got) != string(want) {
		t.Fatalf("block bytes[20:24] = % x, want % x", got, want)
	}
}

// MMenu always refuses AF_MENU.
func TestMMenuAlwaysNacks(t *testing.T) {
	d, db := newTestDispatcher()

	reply := d.HandleRequestRawFrame(context.Background(), db, frame.NewMessage(AfMenu))
	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	if !df.IsSimpleNack() {
		t.Fatalf("reply = %+v, want NACK", df)
	}
}

// An unparseable raw frame yields an empty reply (no bytes on the wire).
func TestUnparseableFrameYieldsEmptyReply(t *testing.T) {
	d, db := newTestDispatcher()

	junk := frame.New([]byte{0x7F}) // neither ACK/NACK/STX: Junk state
	reply := d.HandleRequestRawFrame(context.Background(), db, junk)
	if len(reply.Encode()) != 0 {
		t.Fatalf("reply to unparseable frame = % x, want empty", reply.Encode())
	}
}

// A frame unclaimed by any middleware and not AF_ALIVE gets NACK.
func TestUnclaimedFrameYieldsNack(t *testing.T) {
	d, db := newTestDispatcher()

	reply := d.HandleRequestRawFrame(context.Background(), db, frame.NewMessage(AfDownload))
	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	if !df.IsSimpleNack() {
		t.Fatalf("reply = %+v, want NACK", df)
	}
}

// DATA_OUT_TABLE_INDEX replies NACK when the zone is missing, and with the
// observed [min,max] range (duplicated onto D_DATA_FIRST_TABLE_INDEX per
// the preserved protocol quirk) once a DATA_OUT record group has closed.
func TestDataOutTableIndexMissingZoneNacks(t *testing.T) {
	d, db := newTestDispatcher()

	reply := d.HandleRequestRawFrame(context.Background(), db, frame.NewMessage(AfDataOutTableIndex))
	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	if !df.IsSimpleNack() {
		t.Fatalf("reply = %+v, want NACK", df)
	}
}

func TestDataOutTableIndexAfterRecordGroup(t *testing.T) {
	d, db := newTestDispatcher()

	id := tagdb.NewIdTag(0, 0x0102, [3]uint8{0, 0, 0})
	db.AddTag(tagdb.Tag{WordAddress: 10, IdTag: id, Format: typedvalue.U16, IsWrite: true})
	endID := tagdb.NewIdTag(0, TagNumEndOfRecord, [3]uint8{0, 0, 0})

	req := messageFrame(t, AfDataOut,
		frame.NewDataItem(DDataZone, typedvalue.FromU8(0)),
		frame.NewDataItem(DDataTableIndex, typedvalue.FromU64(7)),
		frame.NewDataItem(DDataTag, typedvalue.FromBytes([]byte{0x01, 0x02, 0, 0, 0})),
		frame.NewDataItem(DDataValue, typedvalue.FromU16(42)),
		frame.NewDataItem(DDataTag, typedvalue.FromBytes([]byte{
			byte(endID.NumTag >> 8), byte(endID.NumTag), 0, 0, 0,
		})),
		frame.NewDataItem(DDataValue, typedvalue.FromU16(0)),
	)
	if _, err := frame.NewDataFrame(req); err != nil {
		t.Fatalf("NewDataFrame(req): %v", err)
	}
	ackReply := d.HandleRequestRawFrame(context.Background(), db, req)
	if df, _ := frame.NewDataFrame(ackReply); !df.IsSimpleAck() {
		t.Fatalf("DATA_OUT reply = %+v, want ACK", df)
	}

	reply := d.HandleRequestRawFrame(context.Background(), db,
		messageFrame(t, AfDataOutTableIndex, frame.NewDataItem(DDataZone, typedvalue.FromU8(0))))
	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	items := df.DataItems()
	if len(items) != 3 {
		t.Fatalf("items = %+v, want 3", items)
	}
	if items[0].Tag != DDataZone || items[0].Value.ToU8() != 0 {
		t.Fatalf("item 0 = %+v", items[0])
	}
	if items[1].Tag != DDataFirstTableIndex || items[1].Value.ToU64() != 7 {
		t.Fatalf("item 1 (min) = %+v, want D_DATA_FIRST_TABLE_INDEX=7", items[1])
	}
	// Preserved protocol quirk: the "last" value also rides on the
	// D_DATA_FIRST_TABLE_INDEX tag, never D_DATA_LAST_TABLE_INDEX.
	if items[2].Tag != DDataFirstTableIndex || items[2].Value.ToU64() != 7 {
		t.Fatalf("item 2 (max) = %+v, want D_DATA_FIRST_TABLE_INDEX=7", items[2])
	}
}

// PackIn completeness: blocks notified before a transaction begins are all
// drained into one transaction, one D_PACK_PAYLOAD per block, numbered in
// the order they were popped off the pending set.
func TestPackInCompleteness(t *testing.T) {
	d, db := newTestDispatcher()

	const wp = tagdb.WordAddress(300)
	for _, bloc := range []uint8{0, 1} {
		id := tagdb.NewIdTag(5, TagDataPack, [3]uint8{0, 0, bloc})
		db.AddTag(tagdb.Tag{WordAddress: wp + tagdb.WordAddress(bloc)*32, IdTag: id, Format: typedvalue.Bytes(64)})
	}

	db.SetVecU8ToWordAddress(tagdb.AnonymousUser, wp, []byte{0xAA})
	db.SetVecU8ToWordAddress(tagdb.AnonymousUser, wp+32, []byte{0xBB})
	d.DrainNotifications(db, true)

	reply := d.HandleRequestRawFrame(context.Background(), db, frame.NewMessage(AfAlive))
	df, err := frame.NewDataFrame(reply)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	items := df.DataItems()
	if len(items) != 2 {
		t.Fatalf("items = %+v, want 2 D_PACK_PAYLOAD entries", items)
	}
	for i, it := range items {
		payload := it.Value.ToBytes()
		wantHeader := byte(16*(i+1) + 2)
		if payload[0] != wantHeader {
			t.Fatalf("item %d header = %#x, want %#x", i, payload[0], wantHeader)
		}
	}
}

// A block notified while a transaction is already in flight is queued as
// pending rather than folded into the current transaction, and only
// becomes eligible once that transaction ends.
func TestPackInDefersMidTransactionNotifications(t *testing.T) {
	ctx := NewContext()
	ctx.PackIn.IsTransaction = true

	notifyPackIn(ctx, tagdb.AnonymousUser, tagdb.IdUser(99), tagdb.NewIdTag(5, TagDataPack, [3]uint8{0, 0, 3}))

	if _, pending := ctx.PackIn.SetPendingBlocs[3]; !pending {
		t.Fatalf("block 3 should be queued pending, got SetPendingBlocs=%v", ctx.PackIn.SetPendingBlocs)
	}
	if _, current := ctx.PackIn.SetBlocs[3]; current {
		t.Fatalf("block 3 should not join the in-flight transaction's SetBlocs")
	}

	endPackInTransaction(ctx)

	if _, current := ctx.PackIn.SetBlocs[3]; !current {
		t.Fatalf("block 3 should move into SetBlocs once the transaction ends")
	}
	if len(ctx.PackIn.SetPendingBlocs) != 0 {
		t.Fatalf("SetPendingBlocs should be empty after the transaction ends, got %v", ctx.PackIn.SetPendingBlocs)
	}
}

// Claiming a conversation sets the active-conversation gauge to the
// claiming middleware; the next AF_INIT reset clears it.
func TestActiveConversationGaugeTracksClaimAndReset(t *testing.T) {
	d, db := newTestDispatcher()
	m := metrics.New()
	d.AttachMetrics(m)

	d.HandleRequestRawFrame(context.Background(), db, frame.NewMessage(AfMenu))
	body := scrapeMetrics(t, m)
	if !strings.Contains(body, `icomsim_active_conversation{middleware="menu"} 1`) {
		t.Fatalf("menu gauge not set after claim:\n%s", body)
	}

	d.HandleRequestRawFrame(context.Background(), db, frame.NewMessage(AfInit))
	body = scrapeMetrics(t, m)
	if !strings.Contains(body, `icomsim_active_conversation{middleware="menu"} 0`) {
		t.Fatalf("menu gauge not cleared after AF_INIT reset:\n%s", body)
	}
}

func scrapeMetrics(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

// Debounce: two identical successive writes to the same tag by the same
// user within the 1-second window produce exactly one ledger entry.
func TestDebounceSuppressesImmediateRepeat(t *testing.T) {
	d, db := newTestDispatcher()

	id := tagdb.NewIdTag(0, 0x0102, [3]uint8{0, 0, 0})
	db.AddTag(tagdb.Tag{WordAddress: 10, IdTag: id, Format: typedvalue.U16, IsWrite: true})

	other := db.GetIdUser("modbus-client", false)
	db.SetU16ToIdTag(other, id, 1)
	db.SetU16ToIdTag(other, id, 1)

	if n := d.DrainNotifications(db, true); n != 1 {
		t.Fatalf("DrainNotifications forwarded %d changes, want 1 (debounced)", n)
	}
	if n := d.DrainNotifications(db, true); n != 0 {
		t.Fatalf("second drain forwarded %d changes, want 0", n)
	}
}
