package middleware

import (
	"github.com/ddurler/icomsim/pkg/frame"
	"github.com/ddurler/icomsim/pkg/typedvalue"
)

func resetDataOutTableIndex(ctx *Context) {}

// getConversationDataOutTableIndex handles AF_DATA_OUT_TABLE_INDEX,
// replying with the [min,max] table index range observed for the
// requested zone. The reply deliberately emits D_DATA_FIRST_TABLE_INDEX
// twice instead of using D_DATA_LAST_TABLE_INDEX for the second item —
// this mirrors what the peer firmware actually expects (see DESIGN.md).
func getConversationDataOutTableIndex(ctx *Context, df frame.DataFrame) (frame.RawFrame, bool) {
	if !df.IsMessage() || df.Tag() != AfDataOutTableIndex {
		return frame.RawFrame{}, false
	}

	var zone *uint8
	for _, item := range df.DataItems() {
		if item.Tag == DDataZone {
			z := item.Value.ToU8()
			zone = &z
		}
	}
	if zone == nil {
		return frame.NewNack(), true
	}

	reply := frame.NewMessage(IcDataOutTableIndex)
	_ = reply.TryExtendDataItem(frame.NewDataItem(DDataZone, typedvalue.FromU8(*zone)))
	_ = reply.TryExtendDataItem(frame.NewDataItem(DDataFirstTableIndex, typedvalue.FromU64(ctx.Records.GetIndexMin(*zone))))
	_ = reply.TryExtendDataItem(frame.NewDataItem(DDataFirstTableIndex, typedvalue.FromU64(ctx.Records.GetIndexMax(*zone))))
	return reply, true
}
