package frame

import "errors"

var (
	// ErrMaxLengthOverflow is returned by TryExtendDataItem when the new
	// payload would exceed MaxPayloadLen.
	ErrMaxLengthOverflow = errors.New("frame: payload would exceed max length")

	// ErrNotExtendable is returned by TryExtendDataItem on a RawFrame
	// that isn't currently a clean Ok-state message being built.
	ErrNotExtendable = errors.New("frame: not an extendable message frame")

	// ErrBadDataLength is returned when a DataItem's declared width runs
	// past the end of the buffer being decoded.
	ErrBadDataLength = errors.New("frame: data item length exceeds buffer")

	// ErrBadDataItem is returned when a data item's bytes can't be
	// decoded for its declared format.
	ErrBadDataItem = errors.New("frame: malformed data item")

	// ErrIsEmpty is returned when a DataFrame is built from an Empty
	// RawFrame.
	ErrIsEmpty = errors.New("frame: raw frame is empty")

	// ErrIsBuilding is returned when a DataFrame is built from a RawFrame
	// still mid-construction.
	ErrIsBuilding = errors.New("frame: raw frame is still building")

	// ErrIsJunk is returned when a DataFrame is built from a RawFrame
	// that collected junk bytes.
	ErrIsJunk = errors.New("frame: raw frame is junk")
)
