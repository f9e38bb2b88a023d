package param

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Type is the storage type of a firmware parameter, as announced in the TOC
type Type byte

const (
	TypeInt8   Type = 0x00
	TypeInt16  Type = 0x01
	TypeInt32  Type = 0x02
	TypeInt64  Type = 0x03
	TypeFP16   Type = 0x05
	TypeFloat  Type = 0x06
	TypeDouble Type = 0x07
	TypeUint8  Type = 0x08
	TypeUint16 Type = 0x09
	TypeUint32 Type = 0x0a
	TypeUint64 Type = 0x0b
)

// TOC type byte layout
const (
	typeMask     = 0x0f
	flagReadOnly = 0x40
)

var ErrUnsupportedType = errors.New("unsupported parameter type")

func (t Type) String() string {
	switch t {
	case TypeUint8:
		return "uint8_t"
	case TypeUint16:
		return "uint16_t"
	case TypeUint32:
		return "uint32_t"
	case TypeUint64:
		return "uint64_t"
	case TypeFP16:
		return "FP16"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeInt8:
		return "int8_t"
	case TypeInt16:
		return "int16_t"
	case TypeInt32:
		return "int32_t"
	case TypeInt64:
		return "int64_t"
	default:
		return fmt.Sprintf("type(0x%02x)", byte(t))
	}
}

// Size returns the encoded width in bytes, 0 for unknown types
func (t Type) Size() int {
	switch t {
	case TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16, TypeFP16:
		return 2
	case TypeUint32, TypeInt32, TypeFloat:
		return 4
	case TypeUint64, TypeInt64, TypeDouble:
		return 8
	default:
		return 0
	}
}

// Encode converts v to the little-endian wire form of t. Integer types
// truncate toward zero.
func (t Type) Encode(v float64) ([]byte, error) {
	b := make([]byte, t.Size())
	switch t {
	case TypeUint8:
		b[0] = uint8(v)
	case TypeInt8:
		b[0] = byte(int8(v))
	case TypeUint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case TypeInt16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case TypeUint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case TypeInt32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case TypeUint64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case TypeInt64:
		binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	case TypeFloat:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case TypeDouble:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return b, nil
}

func (t Type) Decode(b []byte) (float64, error) {
	size := t.Size()
	if size == 0 || t == TypeFP16 {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	if len(b) < size {
		return 0, fmt.Errorf("short %s value: %d bytes", t, len(b))
	}
	switch t {
	case TypeUint8:
		return float64(b[0]), nil
	case TypeInt8:
		return float64(int8(b[0])), nil
	case TypeUint16:
		return float64(binary.LittleEndian.Uint16(b)), nil
	case TypeInt16:
		return float64(int16(binary.LittleEndian.Uint16(b))), nil
	case TypeUint32:
		return float64(binary.LittleEndian.Uint32(b)), nil
	case TypeInt32:
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case TypeUint64:
		return float64(binary.LittleEndian.Uint64(b)), nil
	case TypeInt64:
		return float64(int64(binary.LittleEndian.Uint64(b))), nil
	case TypeFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	}
}
