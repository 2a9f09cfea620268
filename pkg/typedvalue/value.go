package typedvalue

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value holds one typed reading. Exactly one of its private fields is
// meaningful at a time, selected by Format — a tagged union expressed as a
// flat struct rather than an interface, since every Value is handed by
// value across the database and wire-codec boundaries and none of them
// ever need dynamic dispatch.
type Value struct {
	format Format
	u      uint64
	i      int64
	f      float64
	raw    []byte
}

// Format returns the format tag for v.
func (v Value) Format() Format { return v.format }

func isFloatFormat(f Format) bool { return f == F32 || f == F64 }
func isSignedFormat(f Format) bool {
	return f == I8 || f == I16 || f == I32 || f == I64
}
func isUnsignedOrBoolFormat(f Format) bool {
	return f == U8 || f == U16 || f == U32 || f == U64 || f == Bool
}

// Constructors. Each produces a Value whose Format() is fixed by the name.

func FromU8(n uint8) Value   { return Value{format: U8, u: uint64(n)} }
func FromU16(n uint16) Value { return Value{format: U16, u: uint64(n)} }
func FromU32(n uint32) Value { return Value{format: U32, u: uint64(n)} }
func FromU64(n uint64) Value { return Value{format: U64, u: n} }
func FromI8(n int8) Value    { return Value{format: I8, i: int64(n)} }
func FromI16(n int16) Value  { return Value{format: I16, i: int64(n)} }
func FromI32(n int32) Value  { return Value{format: I32, i: int64(n)} }
func FromI64(n int64) Value  { return Value{format: I64, i: n} }
func FromF32(n float32) Value {
	return Value{format: F32, f: float64(n)}
}
func FromF64(n float64) Value { return Value{format: F64, f: n} }
func FromBool(b bool) Value {
	if b {
		return Value{format: Bool, u: 1}
	}
	return Value{format: Bool, u: 0}
}

// FromBytes returns a Bytes(len(raw)) Value holding a copy of raw.
// len(raw) must be in [0,127]; longer input is truncated.
func FromBytes(raw []byte) Value {
	if len(raw) > maxBytesLen {
		raw = raw[:maxBytesLen]
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Value{format: Bytes(len(cp)), raw: cp}
}

// Zero returns the zero-valued Value for format f.
func Zero(f Format) Value {
	if f.IsBytes() {
		return Value{format: f, raw: make([]byte, f.BytesLen())}
	}
	return Value{format: f}
}

func (v Value) toUint64() uint64 {
	switch {
	case isFloatFormat(v.format):
		if v.f <= 0 {
			return 0
		}
		return saturateF64ToU64(v.f)
	case isSignedFormat(v.format):
		if v.i < 0 {
			return 0
		}
		return uint64(v.i)
	case isUnsignedOrBoolFormat(v.format):
		return v.u
	case v.format.IsBytes():
		n, err := strconv.ParseUint(strings.TrimSpace(string(v.raw)), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func (v Value) toInt64() int64 {
	switch {
	case isFloatFormat(v.format):
		return saturateF64ToI64(v.f)
	case isSignedFormat(v.format):
		return v.i
	case isUnsignedOrBoolFormat(v.format):
		if v.u > math.MaxInt64 {
			return 0
		}
		return int64(v.u)
	case v.format.IsBytes():
		n, err := strconv.ParseInt(strings.TrimSpace(string(v.raw)), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func (v Value) toFloat64() float64 {
	switch {
	case isFloatFormat(v.format):
		return v.f
	case isSignedFormat(v.format):
		return float64(v.i)
	case isUnsignedOrBoolFormat(v.format):
		return float64(v.u)
	case v.format.IsBytes():
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v.raw)), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func saturateF64ToU64(f float64) uint64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f >= math.MaxUint64 {
		return 0
	}
	return uint64(f)
}

func saturateF64ToI64(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt64 {
		return 0
	}
	if f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

func truncU64(v uint64, hi uint64) uint64 {
	if v > hi {
		return 0
	}
	return v
}

func truncI64(v int64, lo, hi int64) int64 {
	if v < lo || v > hi {
		return 0
	}
	return v
}

// Numeric conversions. None of these ever error: a value that doesn't fit
// in the target width converts to the target's zero value (not the
// nearest representable bound), and a Bytes value that doesn't parse as a
// number converts to the target's zero value too.

func (v Value) ToU8() uint8   { return uint8(truncU64(v.toUint64(), math.MaxUint8)) }
func (v Value) ToU16() uint16 { return uint16(truncU64(v.toUint64(), math.MaxUint16)) }
func (v Value) ToU32() uint32 { return uint32(truncU64(v.toUint64(), math.MaxUint32)) }
func (v Value) ToU64() uint64 { return v.toUint64() }

func (v Value) ToI8() int8   { return int8(truncI64(v.toInt64(), math.MinInt8, math.MaxInt8)) }
func (v Value) ToI16() int16 { return int16(truncI64(v.toInt64(), math.MinInt16, math.MaxInt16)) }
func (v Value) ToI32() int32 { return int32(truncI64(v.toInt64(), math.MinInt32, math.MaxInt32)) }
func (v Value) ToI64() int64 { return v.toInt64() }

func (v Value) ToF32() float32 {
	f := v.toFloat64()
	if f > math.MaxFloat32 {
		return 0
	}
	if f < -math.MaxFloat32 {
		return 0
	}
	return float32(f)
}
func (v Value) ToF64() float64 { return v.toFloat64() }

// ToBool reports whether v's numeric content is non-zero. Bytes formats
// are true only when their content parses as a non-zero integer.
func (v Value) ToBool() bool {
	if isFloatFormat(v.format) {
		return v.f != 0
	}
	return v.toInt64() != 0 || v.toUint64() != 0
}

// ToBytes returns the raw content for a Bytes(n) Value, or the textual
// rendering encoded as UTF-8 for any other format.
func (v Value) ToBytes() []byte {
	if v.format.IsBytes() {
		cp := make([]byte, len(v.raw))
		copy(cp, v.raw)
		return cp
	}
	return []byte(v.ToText())
}

// ToText renders v as its canonical decimal/textual form.
func (v Value) ToText() string {
	switch {
	case v.format == Bool:
		return strconv.FormatBool(v.ToBool())
	case isFloatFormat(v.format):
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case isSignedFormat(v.format):
		return strconv.FormatInt(v.i, 10)
	case isUnsignedOrBoolFormat(v.format):
		return strconv.FormatUint(v.u, 10)
	case v.format.IsBytes():
		return strings.ToValidUTF8(string(v.raw), "�")
	default:
		return ""
	}
}

// ParseText builds a Value of the given format by parsing text. It returns
// an error instead of a saturated zero value because this is the one
// construction path a caller (the database's SetValue) must be able to
// reject outright: a bad parse must not silently write a zero.
func ParseText(format Format, text string) (Value, error) {
	switch {
	case format == Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return Value{}, fmt.Errorf("parse bool %q: %w", text, err)
		}
		return FromBool(b), nil
	case format == U8, format == U16, format == U32, format == U64:
		n, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse %s %q: %w", format, text, err)
		}
		return fromUint(format, n), nil
	case format == I8, format == I16, format == I32, format == I64:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse %s %q: %w", format, text, err)
		}
		return fromInt(format, n), nil
	case format == F32:
		n, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
		if err != nil {
			return Value{}, fmt.Errorf("parse f32 %q: %w", text, err)
		}
		return FromF32(float32(n)), nil
	case format == F64:
		n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse f64 %q: %w", text, err)
		}
		return FromF64(n), nil
	case format.IsBytes():
		return FromBytes([]byte(text)), nil
	default:
		return Value{}, fmt.Errorf("parse: unsupported format %s", format)
	}
}

func fromUint(format Format, n uint64) Value {
	switch format {
	case U8:
		return FromU8(uint8(n))
	case U16:
		return FromU16(uint16(n))
	case U32:
		return FromU32(uint32(n))
	default:
		return FromU64(n)
	}
}

func fromInt(format Format, n int64) Value {
	switch format {
	case I8:
		return FromI8(int8(n))
	case I16:
		return FromI16(int16(n))
	case I32:
		return FromI32(int32(n))
	default:
		return FromI64(n)
	}
}

// String implements fmt.Stringer for diagnostic logging.
func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.format, v.ToText())
}
