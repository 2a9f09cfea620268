package frame

// dfKind distinguishes the three shapes a completed frame can take once
// it's given semantic meaning.
type dfKind uint8

const (
	dfSimpleAck dfKind = iota
	dfSimpleNack
	dfMessage
)

// DataFrame is the semantic view of a completed RawFrame: either a bare
// ACK/NACK, or a tagged message carrying decoded DataItems.
type DataFrame struct {
	k     dfKind
	tag   byte
	items []DataItem
}

// NewDataFrame builds a DataFrame from a completed RawFrame, decoding its
// payload into DataItems for Ok-state message frames.
func NewDataFrame(rf RawFrame) (DataFrame, error) {
	switch rf.State() {
	case StateEmpty:
		return DataFrame{}, ErrIsEmpty
	case StateBuilding:
		return DataFrame{}, ErrIsBuilding
	case StateJunk:
		return DataFrame{}, ErrIsJunk
	}

	switch rf.k {
	case kindAck:
		return DataFrame{k: dfSimpleAck}, nil
	case kindNack:
		return DataFrame{k: dfSimpleNack}, nil
	default: // kindOk
		items, err := DecodeAllDataItems(rf.Payload())
		if err != nil {
			return DataFrame{}, err
		}
		return DataFrame{k: dfMessage, tag: rf.Tag(), items: items}, nil
	}
}

// IsSimpleAck reports whether df is a bare ACK.
func (df DataFrame) IsSimpleAck() bool { return df.k == dfSimpleAck }

// IsSimpleNack reports whether df is a bare NACK.
func (df DataFrame) IsSimpleNack() bool { return df.k == dfSimpleNack }

// IsMessage reports whether df carries a tag and data items.
func (df DataFrame) IsMessage() bool { return df.k == dfMessage }

// Tag returns the message tag, or the ACK/NACK sentinel byte for simple
// frames.
func (df DataFrame) Tag() byte {
	switch df.k {
	case dfSimpleAck:
		return ACK
	case dfSimpleNack:
		return NACK
	default:
		return df.tag
	}
}

// DataItems returns the decoded payload items of a message frame (nil for
// simple ACK/NACK frames).
func (df DataFrame) DataItems() []DataItem { return df.items }
