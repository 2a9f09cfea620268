// Package tagdb implements the 64 KiB word-addressed tag database: typed
// byte storage, the WordAddress/IdTag/Tag addressing scheme, the CSV tag
// table loader, and the per-user change-notification ledger.
package tagdb

import "fmt"

// WordAddress is a word-granular offset into the database, always in
// [0, 0x8000). The byte offset of a WordAddress wa is 2*wa.
type WordAddress uint16

// MaxWordAddress is the first word address outside the valid range.
const MaxWordAddress WordAddress = 0x8000

// IdTag is the unique, value-typed key identifying one tag: a zone
// namespace, a 16-bit tag number, and three free-form index bytes. It is
// never looked up via a graph of references — WordAddress maps to IdTag,
// IdTag maps to Tag, and that's the entire addressing scheme (see the
// design note on cyclic references).
type IdTag struct {
	Zone    uint8
	NumTag  uint16
	Indices [3]uint8
}

// NewIdTag builds an IdTag from its four components.
func NewIdTag(zone uint8, numTag uint16, indices [3]uint8) IdTag {
	return IdTag{Zone: zone, NumTag: numTag, Indices: indices}
}

// String renders id as "zone/NNNN:II:II:II".
func (id IdTag) String() string {
	return fmt.Sprintf("%d/%04X:%02X:%02X:%02X", id.Zone, id.NumTag, id.Indices[0], id.Indices[1], id.Indices[2])
}
