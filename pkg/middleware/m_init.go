package middleware

import (
	"github.com/ddurler/icomsim/pkg/frame"
	"github.com/ddurler/icomsim/pkg/tagdb"
	"github.com/ddurler/icomsim/pkg/typedvalue"
)

// Internal zone-0/zone-1 id tags MInit writes on AF_INIT.
var (
	idResidentVersionMajor = tagdb.NewIdTag(0, 0x01, [3]uint8{})
	idResidentVersionMinor = tagdb.NewIdTag(0, 0x02, [3]uint8{})
	idResidentVersionEdit  = tagdb.NewIdTag(0, 0x03, [3]uint8{})
	idAppliNumber          = tagdb.NewIdTag(0, 0x10, [3]uint8{})
	idAppliVersionMajor    = tagdb.NewIdTag(0, 0x11, [3]uint8{})
	idAppliVersionMinor    = tagdb.NewIdTag(0, 0x12, [3]uint8{})
	idAppliVersionEdit     = tagdb.NewIdTag(0, 0x13, [3]uint8{})
	idAppliConfig          = tagdb.NewIdTag(0, 0x14, [3]uint8{})
	idLanguage             = tagdb.NewIdTag(1, 0x2042, [3]uint8{})
)

// splitVersion decomposes a packed BCD-like version number into its
// (version, revision, edition) components, matching the resident/appli
// version encoding: u/10000 mod 100, u/100 mod 100, u mod 100.
func splitVersion(u uint32) (version, revision, edition uint16) {
	return uint16((u / 10000) % 100), uint16((u / 100) % 100), uint16(u % 100)
}

// getConversationInit handles AF_INIT: it is invoked directly by the
// dispatcher (not through the middlewareOrder routing table) since INIT
// always resets every other conversation and is never "claimed" in the
// ordinary sense.
func getConversationInit(ctx *Context, db *tagdb.Database, df frame.DataFrame, selfUser tagdb.IdUser) (frame.RawFrame, bool) {
	if !df.IsMessage() || df.Tag() != AfInit {
		return frame.RawFrame{}, false
	}
	ctx.NbInit++

	for _, item := range df.DataItems() {
		switch item.Tag {
		case DResidentVersion:
			version, revision, edition := splitVersion(item.Value.ToU32())
			db.SetU16ToIdTag(selfUser, idResidentVersionMajor, version)
			db.SetU16ToIdTag(selfUser, idResidentVersionMinor, revision)
			db.SetU16ToIdTag(selfUser, idResidentVersionEdit, edition)
		case DAppliNumber:
			db.SetI16ToIdTag(selfUser, idAppliNumber, item.Value.ToI16())
		case DAppliVersion:
			version, revision, edition := splitVersion(item.Value.ToU32())
			db.SetU16ToIdTag(selfUser, idAppliVersionMajor, version)
			db.SetU16ToIdTag(selfUser, idAppliVersionMinor, revision)
			db.SetU16ToIdTag(selfUser, idAppliVersionEdit, edition)
		case DAppliConfig:
			db.SetVecU8ToIdTag(selfUser, idAppliConfig, item.Value.ToBytes())
		case DLanguage:
			db.SetVecU8ToIdTag(selfUser, idLanguage, item.Value.ToBytes())
		}
	}

	reply := frame.NewMessage(IcInit)
	_ = reply.TryExtendDataItem(frame.NewDataItem(DProtocoleVersion, typedvalue.FromU16(0)))
	_ = reply.TryExtendDataItem(frame.NewDataItem(DIcomVersion, typedvalue.FromU16(0)))
	return reply, true
}
