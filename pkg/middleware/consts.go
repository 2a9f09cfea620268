// Package middleware implements the AFSEC dispatcher: the shared
// conversation Context, the seven middleware conversations (MInit,
// MDataOut, MDataIn, MPackOut, MPackIn, MDataOutTableIndex, MMenu), and the
// Dispatcher that multiplexes them over a single active speaker.
package middleware

// Message tags (frame.DataFrame.Tag()). AF_* travels AFSEC+ -> ICOM, IC_*
// travels ICOM -> AFSEC+.
const (
	AfAlive               byte = 0x00
	IcAlive               byte = 0x80
	AfInit                byte = 0x01
	IcInit                byte = 0x81
	AfMenu                byte = 0x02
	IcMenu                byte = 0x82
	AfDataOut             byte = 0x03
	IcDataOut             byte = 0x83
	AfDataIn              byte = 0x04
	IcDataIn              byte = 0x84
	AfDataOutTableIndex   byte = 0x05
	IcDataOutTableIndex   byte = 0x85
	AfDownload            byte = 0x06
	IcDownload            byte = 0x86
	AfPackOut             byte = 0x0B
	IcPackOut             byte = 0x8B
	AfPackIn              byte = 0x0C
	IcPackIn              byte = 0x8C
	AfTest                byte = 0x7F
	IcTest                byte = 0xFF
)

// Data-item tags carried inside a message's payload.
const (
	DProtocoleVersion     byte = 0x01
	DIcomVersion          byte = 0x02
	DResidentVersion      byte = 0x03
	DAppliNumber          byte = 0x04
	DAppliVersion         byte = 0x05
	DAppliConfig          byte = 0x06
	DModeAfsec            byte = 0x07
	DLanguage             byte = 0x08
	DDataError            byte = 0x30
	DDataZone             byte = 0x31
	DDataTableIndex       byte = 0x32
	DDataTag              byte = 0x33
	DDataValue            byte = 0x35
	DDataFirstTableIndex  byte = 0x50
	DDataLastTableIndex   byte = 0x51
	DPackPayload          byte = 0xB0
)

// TagDataPack is the num_tag shared by every zone-4 (PACK_OUT) and zone-5
// (PACK_IN) block tag. TagNumEndOfRecord marks the sentinel DATA_OUT item
// that closes a journal record.
const (
	TagDataPack       uint16 = 0x0F45
	TagNumEndOfRecord uint16 = 0x7210
)

// packBlocWords and packBlocBytes size one PACK_IN/PACK_OUT sub-block:
// 32 words (64 bytes) out of the 256-word (8-block) PACK zone.
const (
	packBlocWords = 32
	packBlocBytes = 64
	packNbBlocs   = 8
)
