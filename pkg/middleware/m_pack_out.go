package middleware

import (
	"github.com/ddurler/icomsim/internal/logger"
	"github.com/ddurler/icomsim/pkg/frame"
	"github.com/ddurler/icomsim/pkg/tagdb"
)

// packOutBaseIdTag is the zone-4 "supervision" PACK_OUT block's anchor
// tag; received packets are written at an offset from its word address.
var packOutBaseIdTag = tagdb.NewIdTag(4, TagDataPack, [3]uint8{0, 0, 0})

func resetPackOut(ctx *Context) {
	ctx.PackOut = PackOutState{}
}

// getConversationPackOut handles AF_PACK_OUT: each D_PACK_PAYLOAD item
// carries one numbered packet of a multi-packet transaction; the database
// is mutated only once the packet whose number equals the declared total
// arrives. Sequencing anomalies are logged, never rejected — the source
// this is ported from carries the same open question (see DESIGN.md).
func getConversationPackOut(ctx *Context, db *tagdb.Database, df frame.DataFrame, selfUser tagdb.IdUser) (frame.RawFrame, bool) {
	if !df.IsMessage() || df.Tag() != AfPackOut {
		return frame.RawFrame{}, false
	}
	ctx.NbPackOut++

	if !ctx.PackOut.IsTransaction {
		ctx.PackOut = PackOutState{IsTransaction: true}
	}

	for _, item := range df.DataItems() {
		if item.Tag != DPackPayload {
			continue
		}
		handlePackOutPayload(ctx, db, item.Value.ToBytes(), selfUser)
	}

	return frame.NewAck(), true
}

func handlePackOutPayload(ctx *Context, db *tagdb.Database, raw []byte, selfUser tagdb.IdUser) {
	if len(raw) < 2 {
		logger.Warn("afsec: PACK_OUT payload too short", "length", len(raw))
		return
	}
	header := raw[0]
	numPacket := header >> 4
	totalNbPackets := header & 0x0F
	wordOffset := raw[1]
	data := append([]byte{}, raw[2:]...)

	if ctx.PackOut.NbTotalPackets != nil && *ctx.PackOut.NbTotalPackets != totalNbPackets {
		logger.Warn("afsec: PACK_OUT total packet count changed mid-transaction",
			"previous", *ctx.PackOut.NbTotalPackets, "now", totalNbPackets)
	}
	ctx.PackOut.NbTotalPackets = &totalNbPackets

	expected := uint8(1)
	if ctx.PackOut.LastNumPacket != nil {
		expected = *ctx.PackOut.LastNumPacket + 1
	}
	if numPacket != expected {
		logger.Warn("afsec: PACK_OUT packet out of sequence", "expected", expected, "got", numPacket)
	}
	ctx.PackOut.LastNumPacket = &numPacket

	ctx.PackOut.PrivateDatas = append(ctx.PackOut.PrivateDatas, packetSnapshot{WordOffset: wordOffset, Data: data})

	if numPacket == totalNbPackets {
		commitPackOut(ctx, db, selfUser)
	}
}

func commitPackOut(ctx *Context, db *tagdb.Database, selfUser tagdb.IdUser) {
	base, ok := db.GetTagFromIdTag(packOutBaseIdTag)
	if !ok {
		logger.Warn("afsec: PACK_OUT commit aborted: zone-4 base tag not registered")
	} else {
		for _, pkt := range ctx.PackOut.PrivateDatas {
			wa := base.WordAddress + tagdb.WordAddress(pkt.WordOffset)
			db.SetVecU8ToWordAddress(selfUser, wa, pkt.Data)
		}
	}
	ctx.PackOut = PackOutState{}
}
