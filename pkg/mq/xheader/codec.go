package xheader

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Codec 一种具体类型的头部编解码。
// Decode 在字节长度或格式不合法时返回 ok=false，调用方据此回退到零值。
type Codec[T any] struct {
	Encode func(v T) []byte
	Decode func(b []byte) (v T, ok bool)
}

// Table 头部编解码表，每种支持的类型一个 Codec。
// 通过值传递给 NewAccessor；需要自定义某个类型的编码时，复制 DefaultTable() 后替换对应字段。
type Table struct {
	Int32   Codec[int32]
	Int64   Codec[int64]
	Bool    Codec[bool]
	Float64 Codec[float64]
	String  Codec[string]
	UUID    Codec[uuid.UUID]
}

// DefaultTable 返回字节精确的默认编解码表。
func DefaultTable() Table {
	return Table{
		Int32:   Codec[int32]{Encode: encodeInt32, Decode: decodeInt32},
		Int64:   Codec[int64]{Encode: encodeInt64, Decode: decodeInt64},
		Bool:    Codec[bool]{Encode: encodeBool, Decode: decodeBool},
		Float64: Codec[float64]{Encode: encodeFloat64, Decode: decodeFloat64},
		String:  Codec[string]{Encode: encodeString, Decode: decodeString},
		UUID:    Codec[uuid.UUID]{Encode: encodeUUID, Decode: decodeUUID},
	}
}

func encodeInt32(v int32) []byte {
	return binary.BigEndian.AppendUint32(make([]byte, 0, 4), uint32(v))
}

func decodeInt32(b []byte) (int32, bool) {
	if len(b) != 4 {
		return 0, false
	}
	return int32(binary.BigEndian.Uint32(b)), true
}

func encodeInt64(v int64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), uint64(v))
}

func decodeInt64(b []byte) (int64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b)), true
}

func encodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func decodeBool(b []byte) (bool, bool) {
	if len(b) != 1 {
		return false, false
	}
	return b[0] != 0, true
}

func encodeFloat64(v float64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), math.Float64bits(v))
}

func decodeFloat64(b []byte) (float64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), true
}

func encodeString(v string) []byte {
	return []byte(v)
}

func decodeString(b []byte) (string, bool) {
	return string(b), true
}

func encodeUUID(v uuid.UUID) []byte {
	b := make([]byte, len(v))
	copy(b, v[:])
	return b
}

func decodeUUID(b []byte) (uuid.UUID, bool) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
