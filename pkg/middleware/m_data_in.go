package middleware

import (
	"github.com/ddurler/icomsim/pkg/frame"
	"github.com/ddurler/icomsim/pkg/tagdb"
	"github.com/ddurler/icomsim/pkg/typedvalue"
)

// noZoneSentinel is the "no zone emitted yet" marker for the greedy
// IC_DATA_IN packer: no real zone ever equals it.
const noZoneSentinel = 0xFF

func resetDataIn(ctx *Context) {
	// The outgoing notification queue survives a conversation reset: it
	// is fed by database writes, not by the conversation itself.
}

// notifyDataIn queues a database change for delivery to AFSEC+, skipping
// writes the dispatcher itself made (its own INIT/DATA_OUT/PACK_OUT
// writes would otherwise echo straight back) and PACK block writes, which
// MPackIn owns exclusively.
func notifyDataIn(ctx *Context, idUser, selfUser tagdb.IdUser, idTag tagdb.IdTag, value typedvalue.Value) {
	if idUser == selfUser {
		return
	}
	if idTag.NumTag == TagDataPack {
		return
	}
	ctx.NotificationChanges = append(ctx.NotificationChanges, NotificationItem{IdTag: idTag, Value: value})
}

// getConversationDataIn handles AF_ALIVE and AF_DATA_IN by greedily
// packing as many queued notifications as fit into one IC_DATA_IN
// message. It claims the frame only when it actually has something to
// say: an empty queue means "not mine right now".
func getConversationDataIn(ctx *Context, df frame.DataFrame) (frame.RawFrame, bool) {
	if !df.IsMessage() || (df.Tag() != AfAlive && df.Tag() != AfDataIn) {
		return frame.RawFrame{}, false
	}
	if len(ctx.NotificationChanges) == 0 {
		return frame.RawFrame{}, false
	}
	ctx.NbDataIn++

	reply := frame.NewMessage(IcDataIn)
	lastZone := uint8(noZoneSentinel)

	for len(ctx.NotificationChanges) > 0 {
		item := ctx.NotificationChanges[0]
		trial := reply
		ok := true

		if item.IdTag.Zone != lastZone {
			if err := trial.TryExtendDataItem(frame.NewDataItem(DDataZone, typedvalue.FromU8(item.IdTag.Zone))); err != nil {
				ok = false
			}
		}
		if ok {
			tagBytes := []byte{
				byte(item.IdTag.NumTag >> 8), byte(item.IdTag.NumTag),
				item.IdTag.Indices[0], item.IdTag.Indices[1], item.IdTag.Indices[2],
			}
			if err := trial.TryExtendDataItem(frame.NewDataItem(DDataTag, typedvalue.FromBytes(tagBytes))); err != nil {
				ok = false
			}
		}
		if ok {
			if err := trial.TryExtendDataItem(frame.NewDataItem(DDataValue, item.Value)); err != nil {
				ok = false
			}
		}

		if !ok {
			break
		}
		reply = trial
		lastZone = item.IdTag.Zone
		ctx.NotificationChanges = ctx.NotificationChanges[1:]
	}

	return reply, true
}
