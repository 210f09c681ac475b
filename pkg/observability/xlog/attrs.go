package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 Key，与 OpenTelemetry messaging 语义约定保持接近。
const (
	KeyError     = "error"
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyDuration  = "duration"
	KeyCount     = "count"

	KeyTopic     = "topic"
	KeyPartition = "partition"
	KeyOffset    = "offset"
	KeyKey       = "key"
	KeyAttempt   = "attempt"
	KeyBatchID   = "batch_id"
)

// Err 创建错误属性。err 为 nil 时返回空属性（slog 会忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Component 组件名称属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 操作名称属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Duration 耗时属性
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Count 计数属性
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Topic 主题属性
func Topic(topic string) slog.Attr {
	return slog.String(KeyTopic, topic)
}

// Partition 分区属性
func Partition(p int32) slog.Attr {
	return slog.Int(KeyPartition, int(p))
}

// Offset 偏移量属性
func Offset(o int64) slog.Attr {
	return slog.Int64(KeyOffset, o)
}

// Key 消息键属性，按 UTF-8 文本输出
func Key(k []byte) slog.Attr {
	return slog.String(KeyKey, string(k))
}

// Attempt 尝试次数属性
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// BatchID 批次关联 ID 属性
func BatchID(id string) slog.Attr {
	return slog.String(KeyBatchID, id)
}
