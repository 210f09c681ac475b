package xheader

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
)

// Accessor 基于编解码表对单条消息头的类型化访问。
// Accessor 不做并发保护，与其包装的消息遵循相同的所有权规则。
type Accessor struct {
	msg   *kafka.Message
	table Table
}

// NewAccessor 创建 Accessor。msg 为 nil 时所有读取返回零值，写入被忽略。
func NewAccessor(msg *kafka.Message, table Table) Accessor {
	return Accessor{msg: msg, table: table}
}

// Lookup 返回 key 对应的原始字节；同名 key 出现多次时取最后一个。
func (a Accessor) Lookup(key string) ([]byte, bool) {
	if a.msg == nil {
		return nil, false
	}
	for i := len(a.msg.Headers) - 1; i >= 0; i-- {
		if a.msg.Headers[i].Key == key {
			return a.msg.Headers[i].Value, true
		}
	}
	return nil, false
}

// Has 报告 key 是否存在。
func (a Accessor) Has(key string) bool {
	_, ok := a.Lookup(key)
	return ok
}

// SetBytes 覆盖已存在的 key（保留位置，去除重复），不存在则追加。
// 总是分配新切片，浅拷贝出的消息之间不会互相影响。
func (a Accessor) SetBytes(key string, value []byte) {
	if a.msg == nil {
		return
	}
	replaced := false
	headers := make([]kafka.Header, 0, len(a.msg.Headers)+1)
	for _, h := range a.msg.Headers {
		if h.Key != key {
			headers = append(headers, h)
			continue
		}
		if !replaced {
			headers = append(headers, kafka.Header{Key: key, Value: value})
			replaced = true
		}
	}
	if !replaced {
		headers = append(headers, kafka.Header{Key: key, Value: value})
	}
	a.msg.Headers = headers
}

// Delete 删除 key 的所有出现。
func (a Accessor) Delete(key string) {
	if a.msg == nil {
		return
	}
	headers := make([]kafka.Header, 0, len(a.msg.Headers))
	for _, h := range a.msg.Headers {
		if h.Key != key {
			headers = append(headers, h)
		}
	}
	a.msg.Headers = headers
}

func get[T any](a Accessor, key string, c Codec[T]) T {
	var zero T
	b, ok := a.Lookup(key)
	if !ok || c.Decode == nil {
		return zero
	}
	v, ok := c.Decode(b)
	if !ok {
		return zero
	}
	return v
}

func set[T any](a Accessor, key string, c Codec[T], v T) {
	if c.Encode == nil {
		return
	}
	a.SetBytes(key, c.Encode(v))
}

// 类型化读写。读取在缺失或格式不合法时返回零值。

func (a Accessor) Int32(key string) int32 { return get(a, key, a.table.Int32) }
func (a Accessor) Int64(key string) int64 { return get(a, key, a.table.Int64) }
func (a Accessor) Bool(key string) bool { return get(a, key, a.table.Bool) }
func (a Accessor) Float64(key string) float64 { return get(a, key, a.table.Float64) }
func (a Accessor) String(key string) string { return get(a, key, a.table.String) }
func (a Accessor) UUID(key string) uuid.UUID { return get(a, key, a.table.UUID) }
func (a Accessor) SetInt32(key string, v int32) { set(a, key, a.table.Int32, v) }
func (a Accessor) SetInt64(key string, v int64) { set(a, key, a.table.Int64, v) }
func (a Accessor) SetBool(key string, v bool) { set(a, key, a.table.Bool, v) }
func (a Accessor) SetFloat64(key string, v float64) { set(a, key, a.table.Float64, v) }
func (a Accessor) SetString(key string, v string) { set(a, key, a.table.String, v) }
func (a Accessor) SetUUID(key string, v uuid.UUID) { set(a, key, a.table.UUID, v) }

// Map 以 string 视图返回全部头部，供 Tracer 注入/提取使用。
func (a Accessor) Map() map[string]string {
	if a.msg == nil {
		return map[string]string{}
	}
	m := make(map[string]string, len(a.msg.Headers))
	for _, h := range a.msg.Headers {
		m[h.Key] = string(h.Value)
	}
	return m
}

// SetStrings 将 m 中的每个键值以 UTF-8 写入头部。
func (a Accessor) SetStrings(m map[string]string) {
	for k, v := range m {
		a.SetBytes(k, []byte(v))
	}
}
