package xheader

import (
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
)

// 重试协议头部键名，与已部署的生产者/消费者保持线上兼容。
const (
	// HeaderRetryCount 已转交重试 Topic 的次数，int32 4 字节大端，首次投递时不存在
	HeaderRetryCount = "x-retry-count"
	// HeaderRetryNotBefore 最早可重新处理的时间，epoch 毫秒 int64 8 字节大端
	HeaderRetryNotBefore = "x-retry-not-before"
	// HeaderBatchID 批量发布的关联 ID，16 字节 UUID
	HeaderBatchID = "x-batch-id"
)

// 死信元数据头部键名，值为 UTF-8 文本。
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderFailureReason     = "x-failure-reason"
)

func defaults(msg *kafka.Message) Accessor {
	return NewAccessor(msg, DefaultTable())
}

// RetryCount 读取重试次数，缺失为 0。
func RetryCount(msg *kafka.Message) int {
	return int(defaults(msg).Int32(HeaderRetryCount))
}

// SetRetryCount 写入重试次数。
func SetRetryCount(msg *kafka.Message, n int) {
	defaults(msg).SetInt32(HeaderRetryCount, int32(n)) //nolint:gosec // 重试上限远小于 MaxInt32
}

// RetryNotBefore 读取最早可处理时间；缺失时返回零值 time.Time。
func RetryNotBefore(msg *kafka.Message) time.Time {
	a := defaults(msg)
	if !a.Has(HeaderRetryNotBefore) {
		return time.Time{}
	}
	return time.UnixMilli(a.Int64(HeaderRetryNotBefore))
}

// SetRetryNotBefore 以 epoch 毫秒写入最早可处理时间。
func SetRetryNotBefore(msg *kafka.Message, t time.Time) {
	defaults(msg).SetInt64(HeaderRetryNotBefore, t.UnixMilli())
}

// BatchID 读取批次关联 ID，缺失为 uuid.Nil。
func BatchID(msg *kafka.Message) uuid.UUID {
	return defaults(msg).UUID(HeaderBatchID)
}

// SetBatchID 写入批次关联 ID。
func SetBatchID(msg *kafka.Message, id uuid.UUID) {
	defaults(msg).SetUUID(HeaderBatchID, id)
}
