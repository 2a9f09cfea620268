package middleware

import (
	"github.com/ddurler/icomsim/pkg/frame"
	"github.com/ddurler/icomsim/pkg/tagdb"
	"github.com/ddurler/icomsim/pkg/typedvalue"
)

// packInIdTag returns the IdTag identifying zone-5 PACK_IN sub-block bloc.
func packInIdTag(bloc uint8) tagdb.IdTag {
	return tagdb.NewIdTag(5, TagDataPack, [3]uint8{0, 0, bloc})
}

func resetPackIn(ctx *Context) {
	ctx.PackIn = newPackInState()
}

// notifyPackIn tracks which zone-5 PACK blocks another user has dirtied,
// queuing newly-dirtied blocks for the next transaction if one is already
// in flight.
func notifyPackIn(ctx *Context, idUser, selfUser tagdb.IdUser, idTag tagdb.IdTag) {
	if idUser == selfUser {
		return
	}
	if idTag.Zone != 5 || idTag.NumTag != TagDataPack {
		return
	}
	bloc := idTag.Indices[2]
	if ctx.PackIn.IsTransaction {
		ctx.PackIn.SetPendingBlocs[bloc] = struct{}{}
	} else {
		ctx.PackIn.SetBlocs[bloc] = struct{}{}
	}
}

// getConversationPackIn handles AF_ALIVE and AF_PACK_IN by snapshotting
// every dirtied block at transaction start and draining the snapshot into
// one or more IC_PACK_IN messages, numbering each payload 1-based against
// the transaction's total block count.
func getConversationPackIn(ctx *Context, db *tagdb.Database, df frame.DataFrame, selfUser tagdb.IdUser) (frame.RawFrame, bool) {
	if !df.IsMessage() || (df.Tag() != AfAlive && df.Tag() != AfPackIn) {
		return frame.RawFrame{}, false
	}
	if !ctx.PackIn.IsTransaction && len(ctx.PackIn.SetBlocs) == 0 {
		return frame.RawFrame{}, false
	}
	// Counted against nb_data_in, not nb_pack_in: a cosmetic counter mixup
	// inherited as-is (see DESIGN.md).
	ctx.NbDataIn++

	if !ctx.PackIn.IsTransaction {
		startPackInTransaction(ctx, db, selfUser)
	}

	totalNbBlocs := len(ctx.PackIn.SetBlocs)
	reply := frame.NewMessage(IcPackIn)

	for len(ctx.PackIn.PrivateDatas) > 0 {
		bd := ctx.PackIn.PrivateDatas[0]
		remaining := ctx.PackIn.PrivateDatas[1:]
		numBloc := totalNbBlocs - len(remaining)

		payload := make([]byte, 0, 2+packBlocBytes)
		payload = append(payload, byte(16*numBloc+totalNbBlocs))
		payload = append(payload, byte(packBlocWords*bd.Bloc))
		payload = append(payload, bd.Data...)

		trial := reply
		if err := trial.TryExtendDataItem(frame.NewDataItem(DPackPayload, typedvalue.FromBytes(payload))); err != nil {
			break
		}
		reply = trial
		ctx.PackIn.PrivateDatas = remaining
	}

	if len(ctx.PackIn.PrivateDatas) == 0 {
		endPackInTransaction(ctx)
	}

	return reply, true
}

func startPackInTransaction(ctx *Context, db *tagdb.Database, selfUser tagdb.IdUser) {
	ctx.PackIn.IsTransaction = true
	ctx.PackIn.PrivateDatas = nil
	for _, bloc := range sortedBlocs(ctx.PackIn.SetBlocs) {
		data := db.GetBytesFromIdTag(packInIdTag(bloc), packBlocBytes)
		ctx.PackIn.PrivateDatas = append(ctx.PackIn.PrivateDatas, blocSnapshot{Bloc: bloc, Data: data})
	}
}

func endPackInTransaction(ctx *Context) {
	ctx.PackIn.SetBlocs = ctx.PackIn.SetPendingBlocs
	ctx.PackIn.SetPendingBlocs = make(map[uint8]struct{})
	ctx.PackIn.IsTransaction = false
}
