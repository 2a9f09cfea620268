package middleware

import (
	"github.com/ddurler/icomsim/internal/logger"
	"github.com/ddurler/icomsim/pkg/frame"
	"github.com/ddurler/icomsim/pkg/tagdb"
)

// resetDataOut clears every DATA_OUT carrier and flushes any record group
// that was left pending mid-conversation (no END_OF_RECORD ever arrived).
func resetDataOut(ctx *Context) {
	flushRecordDatas(ctx, "conversation reset")
	ctx.Zone = nil
	ctx.TableIndex = nil
	ctx.VecU8Tag = nil
	ctx.TValue = nil
}

func flushRecordDatas(ctx *Context, reason string) {
	if len(ctx.RecordDatas) == 0 {
		return
	}
	logger.Debug("afsec: flushing pending DATA_OUT record group", "reason", reason, "count", len(ctx.RecordDatas))
	ctx.RecordDatas = nil
}

// getConversationDataOut handles AF_DATA_OUT: a sequence of DATA_ZONE /
// DATA_TABLE_INDEX / DATA_TAG / DATA_VALUE items that, once zone+tag+value
// are all known, resolve to either a journal record (when a table index is
// in play) or an immediate database write.
func getConversationDataOut(ctx *Context, db *tagdb.Database, df frame.DataFrame, selfUser tagdb.IdUser) (frame.RawFrame, bool) {
	if !df.IsMessage() || df.Tag() != AfDataOut {
		return frame.RawFrame{}, false
	}
	ctx.NbDataOut++

	for _, item := range df.DataItems() {
		switch item.Tag {
		case DDataZone:
			zone := item.Value.ToU8()
			ctx.Zone = &zone
		case DDataTableIndex:
			idx := item.Value.ToU64()
			ctx.TableIndex = &idx
		case DDataTag:
			var tag [5]byte
			raw := item.Value.ToBytes()
			copy(tag[:], raw)
			ctx.VecU8Tag = &tag
		case DDataValue:
			v := item.Value
			ctx.TValue = &v
		}

		if ctx.Zone != nil && ctx.VecU8Tag != nil && ctx.TValue != nil {
			applyDataOutItem(ctx, db, selfUser)
			ctx.VecU8Tag = nil
			ctx.TValue = nil
		}
	}

	return frame.NewAck(), true
}

func applyDataOutItem(ctx *Context, db *tagdb.Database, selfUser tagdb.IdUser) {
	tagBytes := ctx.VecU8Tag
	idTag := tagdb.NewIdTag(*ctx.Zone, uint16(tagBytes[0])<<8|uint16(tagBytes[1]), [3]uint8{tagBytes[2], tagBytes[3], tagBytes[4]})

	if ctx.TableIndex == nil {
		db.SetValueToIdTag(selfUser, idTag, *ctx.TValue)
		return
	}

	record := RecordData{TableIndex: *ctx.TableIndex, IdTag: idTag, Value: *ctx.TValue}
	ctx.RecordDatas = append(ctx.RecordDatas, record)

	if idTag.NumTag == TagNumEndOfRecord {
		zone := *ctx.Zone
		tableIndex := *ctx.TableIndex
		logger.Debug("afsec: committing DATA_OUT record group", "zone", zone, "table_index", tableIndex, "count", len(ctx.RecordDatas))
		for _, rd := range ctx.RecordDatas {
			logger.Debug("afsec: record item", "id_tag", rd.IdTag.String(), "value", rd.Value.String())
		}
		ctx.Records.SetIndex(zone, tableIndex)
		ctx.RecordDatas = nil
	}
}
