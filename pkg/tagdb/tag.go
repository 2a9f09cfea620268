package tagdb

import "github.com/ddurler/icomsim/pkg/typedvalue"

// Tag describes one named, typed cell in the database: where it lives
// (WordAddress), how it's identified by the protocol (IdTag), how wide
// and shaped its value is (Format), and metadata carried through from the
// CSV tag table.
type Tag struct {
	WordAddress  WordAddress
	IdTag        IdTag
	IsInternal   bool
	Format       typedvalue.Format
	Unity        string
	Label        string
	IsWrite      bool
	DefaultValue typedvalue.Value
}

// WordWidth returns the number of words this tag occupies.
func (t Tag) WordWidth() int { return t.Format.WordWidth() }

// wordRange returns [start, end) of the words t occupies.
func (t Tag) wordRange() (WordAddress, WordAddress) {
	start := t.WordAddress
	end := start + WordAddress(t.WordWidth())
	return start, end
}
