package heap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// AttributeKind enumerates the fixed-width primitives plus the two
// variable-capacity string kinds. Values are assigned explicitly and must
// never be renumbered: system_columns.col_type persists this encoding on
// disk.
type AttributeKind uint8

const (
	KindU8 AttributeKind = iota + 1
	KindU16
	KindU32
	KindU64
	KindU128
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindF32
	KindF64
	KindBool
	KindChar
	KindVarchar
)

func (k AttributeKind) String() string {
	switch k {
	case KindU8:
		return "U8"
	case KindU16:
		return "U16"
	case KindU32:
		return "U32"
	case KindU64:
		return "U64"
	case KindU128:
		return "U128"
	case KindI8:
		return "I8"
	case KindI16:
		return "I16"
	case KindI32:
		return "I32"
	case KindI64:
		return "I64"
	case KindI128:
		return "I128"
	case KindF32:
		return "F32"
	case KindF64:
		return "F64"
	case KindBool:
		return "Bool"
	case KindChar:
		return "Char"
	case KindVarchar:
		return "Varchar"
	default:
		return "Unknown"
	}
}

// Attribute describes one schema column.
type Attribute struct {
	Name       string
	Kind       AttributeKind
	MaxLen     uint16 // capacity in bytes for Char(n); unused for everything else
	Nullable   bool
	IsInternal bool
}

// Schema is an ordered list of attributes; tuples are encoded in this order.
type Schema struct {
	Attributes []Attribute
}

// IndexOf returns the position of the named column, or -1.
func (s Schema) IndexOf(name string) int {
	for i, a := range s.Attributes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// Value is one column value tagged with its AttributeKind.
type Value struct {
	Kind AttributeKind
	Val  any
}

func U8(v uint8) Value     { return Value{KindU8, v} }
func U16(v uint16) Value   { return Value{KindU16, v} }
func U32(v uint32) Value   { return Value{KindU32, v} }
func U64(v uint64) Value   { return Value{KindU64, v} }
func U128(v [16]byte) Value { return Value{KindU128, v} }
func I8(v int8) Value      { return Value{KindI8, v} }
func I16(v int16) Value    { return Value{KindI16, v} }
func I32(v int32) Value    { return Value{KindI32, v} }
func I64(v int64) Value    { return Value{KindI64, v} }
func I128(v [16]byte) Value { return Value{KindI128, v} }
func F32(v float32) Value  { return Value{KindF32, v} }
func F64(v float64) Value  { return Value{KindF64, v} }
func BoolVal(v bool) Value { return Value{KindBool, v} }
func CharVal(s string) Value    { return Value{KindChar, s} }
func Varchar(s string) Value    { return Value{KindVarchar, s} }

// Tuple is one row: an ordered list of Values plus, once persisted, the
// RowId it was stored or read under.
type Tuple struct {
	Values []Value
	Rid    *RowId
}

// NewTuple builds a tuple with no RowId (not yet persisted).
func NewTuple(values []Value) Tuple { return Tuple{Values: values} }

// NewTupleWithRid builds a tuple carrying a known RowId.
func NewTupleWithRid(values []Value, rid RowId) Tuple {
	return Tuple{Values: values, Rid: &rid}
}

// ErrSchemaMismatch is returned when a tuple's values don't line up with a
// schema's kinds or count.
var ErrSchemaMismatch = errors.New("heap: tuple does not match schema")

// ErrBadTuple is returned when decoding encounters truncated or corrupted
// bytes.
var ErrBadTuple = errors.New("heap: corrupted tuple bytes")

// ToBytes packs values in schema order, big-endian, fixed types at natural
// width, Char(n) as a 1-byte length plus n zero-padded bytes, Varchar as a
// 2-byte big-endian length prefix plus data. This is the only tuple
// encoding the heap ever produces or consumes.
func (t Tuple) ToBytes(schema Schema) ([]byte, error) {
	if len(t.Values) != len(schema.Attributes) {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrSchemaMismatch, len(schema.Attributes), len(t.Values))
	}
	buf := make([]byte, 0, 32)
	for i, attr := range schema.Attributes {
		v := t.Values[i]
		if v.Kind != attr.Kind {
			return nil, fmt.Errorf("%w: column %q expected %s got %s", ErrSchemaMismatch, attr.Name, attr.Kind, v.Kind)
		}
		switch attr.Kind {
		case KindU8:
			buf = append(buf, v.Val.(uint8))
		case KindU16:
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], v.Val.(uint16))
			buf = append(buf, b[:]...)
		case KindU32:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], v.Val.(uint32))
			buf = append(buf, b[:]...)
		case KindU64:
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], v.Val.(uint64))
			buf = append(buf, b[:]...)
		case KindU128, KindI128:
			raw := v.Val.([16]byte)
			buf = append(buf, raw[:]...)
		case KindI8:
			buf = append(buf, byte(v.Val.(int8)))
		case KindI16:
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], uint16(v.Val.(int16)))
			buf = append(buf, b[:]...)
		case KindI32:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(v.Val.(int32)))
			buf = append(buf, b[:]...)
		case KindI64:
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], uint64(v.Val.(int64)))
			buf = append(buf, b[:]...)
		case KindF32:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], math.Float32bits(v.Val.(float32)))
			buf = append(buf, b[:]...)
		case KindF64:
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], math.Float64bits(v.Val.(float64)))
			buf = append(buf, b[:]...)
		case KindBool:
			if v.Val.(bool) {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		case KindChar:
			s := v.Val.(string)
			if len(s) > int(attr.MaxLen) {
				return nil, fmt.Errorf("%w: column %q: char value longer than capacity", ErrBadTuple, attr.Name)
			}
			buf = append(buf, byte(len(s)))
			start := len(buf)
			buf = append(buf, make([]byte, attr.MaxLen)...)
			copy(buf[start:], s)
		case KindVarchar:
			s := v.Val.(string)
			if len(s) > 0xFFFF {
				return nil, fmt.Errorf("%w: column %q: varchar exceeds 65535 bytes", ErrBadTuple, attr.Name)
			}
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], uint16(len(s)))
			buf = append(buf, b[:]...)
			buf = append(buf, s...)
		default:
			return nil, fmt.Errorf("%w: unknown attribute kind %d", ErrSchemaMismatch, attr.Kind)
		}
	}
	return buf, nil
}

// FromBytes decodes data according to schema, in the same order ToBytes
// wrote it. The returned tuple has no RowId; callers that know it attach
// one separately.
func FromBytes(data []byte, schema Schema) (Tuple, error) {
	values := make([]Value, len(schema.Attributes))
	off := 0
	need := func(n int) error {
		if off+n > len(data) {
			return ErrBadTuple
		}
		return nil
	}
	for i, attr := range schema.Attributes {
		switch attr.Kind {
		case KindU8:
			if err := need(1); err != nil {
				return Tuple{}, err
			}
			values[i] = U8(data[off])
			off++
		case KindU16:
			if err := need(2); err != nil {
				return Tuple{}, err
			}
			values[i] = U16(binary.BigEndian.Uint16(data[off : off+2]))
			off += 2
		case KindU32:
			if err := need(4); err != nil {
				return Tuple{}, err
			}
			values[i] = U32(binary.BigEndian.Uint32(data[off : off+4]))
			off += 4
		case KindU64:
			if err := need(8); err != nil {
				return Tuple{}, err
			}
			values[i] = U64(binary.BigEndian.Uint64(data[off : off+8]))
			off += 8
		case KindU128:
			if err := need(16); err != nil {
				return Tuple{}, err
			}
			var raw [16]byte
			copy(raw[:], data[off:off+16])
			values[i] = U128(raw)
			off += 16
		case KindI8:
			if err := need(1); err != nil {
				return Tuple{}, err
			}
			values[i] = I8(int8(data[off]))
			off++
		case KindI16:
			if err := need(2); err != nil {
				return Tuple{}, err
			}
			values[i] = I16(int16(binary.BigEndian.Uint16(data[off : off+2])))
			off += 2
		case KindI32:
			if err := need(4); err != nil {
				return Tuple{}, err
			}
			values[i] = I32(int32(binary.BigEndian.Uint32(data[off : off+4])))
			off += 4
		case KindI64:
			if err := need(8); err != nil {
				return Tuple{}, err
			}
			values[i] = I64(int64(binary.BigEndian.Uint64(data[off : off+8])))
			off += 8
		case KindI128:
			if err := need(16); err != nil {
				return Tuple{}, err
			}
			var raw [16]byte
			copy(raw[:], data[off:off+16])
			values[i] = I128(raw)
			off += 16
		case KindF32:
			if err := need(4); err != nil {
				return Tuple{}, err
			}
			values[i] = F32(math.Float32frombits(binary.BigEndian.Uint32(data[off : off+4])))
			off += 4
		case KindF64:
			if err := need(8); err != nil {
				return Tuple{}, err
			}
			values[i] = F64(math.Float64frombits(binary.BigEndian.Uint64(data[off : off+8])))
			off += 8
		case KindBool:
			if err := need(1); err != nil {
				return Tuple{}, err
			}
			values[i] = BoolVal(data[off] != 0)
			off++
		case KindChar:
			if err := need(1); err != nil {
				return Tuple{}, fmt.Errorf("%w: buffer overrun reading char length", ErrBadTuple)
			}
			length := int(data[off])
			off++
			if length > int(attr.MaxLen) {
				return Tuple{}, fmt.Errorf("%w: corrupted char length", ErrBadTuple)
			}
			if err := need(int(attr.MaxLen)); err != nil {
				return Tuple{}, fmt.Errorf("%w: buffer overrun reading char data", ErrBadTuple)
			}
			values[i] = CharVal(string(data[off : off+length]))
			off += int(attr.MaxLen)
		case KindVarchar:
			if err := need(2); err != nil {
				return Tuple{}, fmt.Errorf("%w: buffer overrun reading varchar length", ErrBadTuple)
			}
			length := int(binary.BigEndian.Uint16(data[off : off+2]))
			off += 2
			if err := need(length); err != nil {
				return Tuple{}, fmt.Errorf("%w: buffer overrun reading varchar data", ErrBadTuple)
			}
			values[i] = Varchar(string(data[off : off+length]))
			off += length
		default:
			return Tuple{}, fmt.Errorf("%w: unknown attribute kind %d", ErrSchemaMismatch, attr.Kind)
		}
	}
	return Tuple{Values: values}, nil
}
