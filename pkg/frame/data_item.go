package frame

import (
	"bytes"
	"fmt"

	"github.com/ddurler/icomsim/pkg/typedvalue"
)

// DataItem is one tag/format/value triple carried in a message frame's
// payload. Format always equals Value.Format(); there is no way to
// construct a DataItem whose two disagree.
type DataItem struct {
	Tag   byte
	Value typedvalue.Value
}

// NewDataItem returns a DataItem for tag carrying value.
func NewDataItem(tag byte, value typedvalue.Value) DataItem {
	return DataItem{Tag: tag, Value: value}
}

// Encode renders di as [tag, format, value-bytes...].
func (di DataItem) Encode() []byte {
	out := []byte{di.Tag, byte(di.Value.Format())}
	return append(out, typedvalue.Encode(di.Value)...)
}

// DecodeDataItem parses one DataItem from the head of data and returns it
// together with the number of bytes consumed.
func DecodeDataItem(data []byte) (DataItem, int, error) {
	if len(data) < 2 {
		return DataItem{}, 0, ErrBadDataLength
	}
	tag := data[0]
	format := typedvalue.Format(data[1])
	width := format.ByteWidth()
	if len(data) < 2+width {
		return DataItem{}, 0, ErrBadDataLength
	}
	value, err := typedvalue.Decode(format, bytes.NewReader(data[2:2+width]))
	if err != nil {
		return DataItem{}, 0, fmt.Errorf("%w: %v", ErrBadDataItem, err)
	}
	return DataItem{Tag: tag, Value: value}, 2 + width, nil
}

// DecodeAllDataItems consumes data sequentially into a slice of DataItem.
// An empty buffer decodes to an empty, non-nil slice.
func DecodeAllDataItems(data []byte) ([]DataItem, error) {
	items := make([]DataItem, 0)
	for len(data) > 0 {
		item, consumed, err := DecodeDataItem(data)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		data = data[consumed:]
	}
	return items, nil
}
