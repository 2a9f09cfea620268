package typedvalue

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Encode renders v as its fixed-width big-endian wire form: u8/i8/bool as
// one byte, u16/i16 as two, u32/i32/f32 as four, u64/i64/f64 as eight, and
// Bytes(n) as its n raw bytes verbatim.
func Encode(v Value) []byte {
	buf := new(bytes.Buffer)
	switch {
	case v.format == Bool:
		buf.WriteByte(v.ToU8())
	case v.format == U8:
		buf.WriteByte(v.ToU8())
	case v.format == I8:
		buf.WriteByte(byte(v.ToI8()))
	case v.format == U16:
		_ = binary.Write(buf, binary.BigEndian, v.ToU16())
	case v.format == I16:
		_ = binary.Write(buf, binary.BigEndian, v.ToI16())
	case v.format == U32:
		_ = binary.Write(buf, binary.BigEndian, v.ToU32())
	case v.format == I32:
		_ = binary.Write(buf, binary.BigEndian, v.ToI32())
	case v.format == F32:
		_ = binary.Write(buf, binary.BigEndian, v.ToF32())
	case v.format == U64:
		_ = binary.Write(buf, binary.BigEndian, v.ToU64())
	case v.format == I64:
		_ = binary.Write(buf, binary.BigEndian, v.ToI64())
	case v.format == F64:
		_ = binary.Write(buf, binary.BigEndian, v.ToF64())
	case v.format.IsBytes():
		buf.Write(v.ToBytes())
	}
	return buf.Bytes()
}

// Decode reads exactly format.ByteWidth() bytes from r and builds the
// corresponding Value. It returns an error when r is exhausted early.
func Decode(format Format, r io.Reader) (Value, error) {
	width := format.ByteWidth()
	if width == 0 && !format.IsBytes() {
		return Value{}, fmt.Errorf("typedvalue: decode: unsupported format %s", format)
	}

	switch {
	case format == Bool:
		var b byte
		if err := binary.Read(r, binary.BigEndian, &b); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode bool: %w", err)
		}
		return FromBool(b != 0), nil
	case format == U8:
		var n uint8
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode u8: %w", err)
		}
		return FromU8(n), nil
	case format == I8:
		var n int8
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode i8: %w", err)
		}
		return FromI8(n), nil
	case format == U16:
		var n uint16
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode u16: %w", err)
		}
		return FromU16(n), nil
	case format == I16:
		var n int16
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode i16: %w", err)
		}
		return FromI16(n), nil
	case format == U32:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode u32: %w", err)
		}
		return FromU32(n), nil
	case format == I32:
		var n int32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode i32: %w", err)
		}
		return FromI32(n), nil
	case format == F32:
		var n float32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode f32: %w", err)
		}
		return FromF32(n), nil
	case format == U64:
		var n uint64
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode u64: %w", err)
		}
		return FromU64(n), nil
	case format == I64:
		var n int64
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode i64: %w", err)
		}
		return FromI64(n), nil
	case format == F64:
		var n float64
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode f64: %w", err)
		}
		return FromF64(n), nil
	case format.IsBytes():
		raw := make([]byte, width)
		if _, err := io.ReadFull(r, raw); err != nil {
			return Value{}, fmt.Errorf("typedvalue: decode bytes(%d): %w", width, err)
		}
		return FromBytes(raw), nil
	default:
		return Value{}, fmt.Errorf("typedvalue: decode: unsupported format %s", format)
	}
}
