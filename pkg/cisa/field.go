package cisa

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/crypto/cryptobyte"
)

// FieldType tags the encoding of a single field.
type FieldType uint8

const (
	Int8 FieldType = iota
	Int16
	Int32
	Int64
	InlineString
	PoolString
	Blob
	NestedMarker
)

var fieldTypeNames = [...]string{
	Int8:         "int8",
	Int16:        "int16",
	Int32:        "int32",
	Int64:        "int64",
	InlineString: "string",
	PoolString:   "pool-string",
	Blob:         "blob",
	NestedMarker: "nested",
}

func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return "unknown"
}

// IsInt reports whether t is a fixed-width integer.
func (t FieldType) IsInt() bool { return t <= Int64 }

// IsBytes reports whether t carries a variable-length byte payload.
func (t FieldType) IsBytes() bool {
	return t == InlineString || t == PoolString || t == Blob
}

func (t FieldType) width() int {
	switch t {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32:
		return 4
	case Int64:
		return 8
	}
	return 0
}

// Field is one decoded value inside a record. CountField is the index of the
// earlier integer field holding this field's byte length (strings, blobs) or
// element count (nested arrays), or -1 for fixed-width integers.
type Field struct {
	Type       FieldType
	CountField int
	Int        int64
	Data       []byte
}

// cursor is a bounded read window over a borrowed buffer. Offsets are
// absolute within that buffer.
type cursor struct {
	s   cryptobyte.String
	end int
}

func newCursor(buf []byte, start, end int) *cursor {
	return &cursor{s: cryptobyte.String(buf[start:end]), end: end}
}

func (c *cursor) pos() int { return c.end - len(c.s) }

func (c *cursor) remaining() int { return len(c.s) }

// parseField decodes one non-nested field. width applies to integers and
// length to byte payloads; both were resolved by the caller.
func parseField(c *cursor, slot Slot, width int, length int64) (Field, error) {
	f := Field{Type: slot.Type, CountField: slot.ref}
	start := c.pos()

	if slot.Type.IsInt() {
		var raw []byte
		if !c.s.ReadBytes(&raw, width) {
			return Field{}, errorf(ErrTruncatedField, start, "%s needs %d bytes, %d left", slot.Name, width, c.remaining())
		}
		f.Int = decodeInt(raw, slot.Signed)
		return f, nil
	}

	if length < 0 || length > int64(c.remaining()) {
		return Field{}, errorf(ErrTruncatedField, start, "%s needs %d bytes, %d left", slot.Name, length, c.remaining())
	}
	var raw []byte
	if !c.s.ReadBytes(&raw, int(length)) {
		return Field{}, errorf(ErrTruncatedField, start, "%s needs %d bytes, %d left", slot.Name, length, c.remaining())
	}
	// The source buffer may be unmapped before the record tree is dropped.
	f.Data = bytes.Clone(raw)
	if f.Data == nil {
		f.Data = []byte{}
	}
	return f, nil
}

func decodeInt(raw []byte, signed bool) int64 {
	switch len(raw) {
	case 1:
		if signed {
			return int64(int8(raw[0]))
		}
		return int64(raw[0])
	case 2:
		v := binary.LittleEndian.Uint16(raw)
		if signed {
			return int64(int16(v))
		}
		return int64(v)
	case 4:
		v := binary.LittleEndian.Uint32(raw)
		if signed {
			return int64(int32(v))
		}
		return int64(v)
	default:
		return int64(binary.LittleEndian.Uint64(raw))
	}
}

// fitsWidth reports whether v can be stored in width bytes.
func fitsWidth(v int64, width int, signed bool) bool {
	if width >= 8 {
		return true
	}
	bits := uint(width * 8)
	if signed {
		lo := -(int64(1) << (bits - 1))
		hi := int64(1)<<(bits-1) - 1
		return v >= lo && v <= hi
	}
	return v >= 0 && v <= int64(1)<<bits-1
}

// encoder accumulates serialised bytes and tracks the output offset for
// error reporting.
type encoder struct {
	b *cryptobyte.Builder
	n int
}

func newEncoder() *encoder {
	return &encoder{b: cryptobyte.NewBuilder(nil)}
}

func (e *encoder) add(p []byte) {
	e.b.AddBytes(p)
	e.n += len(p)
}

func (e *encoder) bytes() ([]byte, error) {
	return e.b.Bytes()
}

// appendField is the inverse of parseField. Range checks happen before any
// byte is added so a failed field leaves the output untouched.
func appendField(e *encoder, slot Slot, width int, f Field, count int64) error {
	if slot.Type.IsInt() {
		if !fitsWidth(f.Int, width, slot.Signed) {
			return errorf(ErrFieldOverflow, e.n, "%s=%d exceeds %d-byte width", slot.Name, f.Int, width)
		}
		var scratch [8]byte
		binary.LittleEndian.PutUint64(scratch[:], uint64(f.Int))
		e.add(scratch[:width])
		return nil
	}
	if int64(len(f.Data)) != count {
		return errorf(ErrCountMismatch, e.n, "%s has %d bytes, count field says %d", slot.Name, len(f.Data), count)
	}
	e.add(f.Data)
	return nil
}
