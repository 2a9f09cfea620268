// Package typedvalue implements the tagged value/format pair used to carry
// a single typed reading anywhere in the AFSEC wire protocol or the tag
// database: a one-byte format discriminant plus a value that can always be
// converted, saturating rather than failing, to any other numeric shape.
package typedvalue

import "fmt"

// Format is the one-byte wire discriminant for a Value's underlying type.
// Bytes(n) formats are encoded as 0x80+n for n in [0,127] and are not named
// constants; use Bytes to build one.
type Format uint8

// Fixed-width formats. Bytes(n) formats start at formatBytesBase.
const (
	Unknown Format = 0x00
	U8      Format = 0x01
	U16     Format = 0x02
	U32     Format = 0x04
	U64     Format = 0x08
	Bool    Format = 0x11
	I8      Format = 0x41
	I16     Format = 0x42
	I32     Format = 0x44
	I64     Format = 0x48
	F32     Format = 0x64
	F64     Format = 0x68

	formatBytesBase Format = 0x80
	maxBytesLen            = 127
)

// Bytes returns the format tag for a fixed-length byte array of n bytes.
// n must be in [0,127]; callers outside that range get a format that will
// report ByteWidth 0 rather than panicking, consistent with the rest of the
// package's no-panic-on-bad-data policy.
func Bytes(n int) Format {
	if n < 0 || n > maxBytesLen {
		return Unknown
	}
	return formatBytesBase + Format(n)
}

// IsBytes reports whether f is a Bytes(n) format.
func (f Format) IsBytes() bool {
	return f >= formatBytesBase
}

// BytesLen returns n for a Bytes(n) format, or 0 otherwise.
func (f Format) BytesLen() int {
	if !f.IsBytes() {
		return 0
	}
	return int(f - formatBytesBase)
}

// ByteWidth returns the fixed wire width of f in bytes, or 0 for Unknown.
func (f Format) ByteWidth() int {
	switch {
	case f.IsBytes():
		return f.BytesLen()
	case f == U8, f == I8, f == Bool:
		return 1
	case f == U16, f == I16:
		return 2
	case f == U32, f == I32, f == F32:
		return 4
	case f == U64, f == I64, f == F64:
		return 8
	default:
		return 0
	}
}

// WordWidth returns the number of 2-byte words f occupies in the database,
// rounding up.
func (f Format) WordWidth() int {
	return (f.ByteWidth() + 1) / 2
}

// String renders f for logging, matching its wire mnemonic.
func (f Format) String() string {
	switch f {
	case Unknown:
		return "Unknown"
	case U8:
		return "U8"
	case U16:
		return "U16"
	case U32:
		return "U32"
	case U64:
		return "U64"
	case Bool:
		return "Bool"
	case I8:
		return "I8"
	case I16:
		return "I16"
	case I32:
		return "I32"
	case I64:
		return "I64"
	case F32:
		return "F32"
	case F64:
		return "F64"
	default:
		if f.IsBytes() {
			return fmt.Sprintf("Bytes(%d)", f.BytesLen())
		}
		return fmt.Sprintf("Format(0x%02X)", uint8(f))
	}
}
