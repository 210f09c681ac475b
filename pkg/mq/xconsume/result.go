package xconsume

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xbus/pkg/mq/xheader"
)

// Outcome 处理函数对一条消息表达的意图。
type Outcome int

const (
	// OutcomeContinue 正常完成，提交 offset。
	OutcomeContinue Outcome = iota
	// OutcomeRetry 转交重试 Topic。
	OutcomeRetry
	// OutcomeDeadLetter 直接发往死信 Topic。
	OutcomeDeadLetter
)

// String 返回 Outcome 的可读形式。
func (o Outcome) String() string {
	switch o {
	case OutcomeRetry:
		return "retry"
	case OutcomeDeadLetter:
		return "dead_letter"
	default:
		return "continue"
	}
}

// Handler 处理一条消息。
//
// 返回错误等价于请求重试，除非返回前已调用 [Result.DeadLetter]。
// Handler 在独立 goroutine 中运行，ctx 取消时应尽快返回。
type Handler func(ctx context.Context, result *Result) error

// Result 包装一条拉取到的消息及处理函数设置的意图。
// 每条消息新建一个，只在 Handler 内修改，不应跨消息复用。
type Result struct {
	msg        *kafka.Message
	retryLimit int
	outcome    Outcome
}

// NewResult 创建 Result，retryLimit 在创建时快照。
func NewResult(msg *kafka.Message, retryLimit int) *Result {
	return &Result{msg: msg, retryLimit: retryLimit}
}

// Retry 请求将消息转交重试 Topic。已请求死信时不生效。
func (r *Result) Retry() {
	if r.outcome != OutcomeDeadLetter {
		r.outcome = OutcomeRetry
	}
}

// DeadLetter 请求将消息发往死信 Topic，优先级高于重试与返回错误。
func (r *Result) DeadLetter() {
	r.outcome = OutcomeDeadLetter
}

// Outcome 返回当前意图。
func (r *Result) Outcome() Outcome {
	return r.outcome
}

// RetryCount 返回消息已被转交重试的次数。
func (r *Result) RetryCount() int {
	return xheader.RetryCount(r.msg)
}

// RetryLimit 返回创建时快照的重试上限。
func (r *Result) RetryLimit() int {
	return r.retryLimit
}

// RetryLimitExceeded 重试次数是否已达到上限。
func (r *Result) RetryLimitExceeded() bool {
	return r.RetryCount() >= r.retryLimit
}

// Message 返回底层消息。Handler 不应修改其 Headers。
func (r *Result) Message() *kafka.Message {
	return r.msg
}

// Topic 返回消息所在 Topic。
func (r *Result) Topic() string {
	if r.msg.TopicPartition.Topic == nil {
		return ""
	}
	return *r.msg.TopicPartition.Topic
}

// Partition 返回消息所在分区。
func (r *Result) Partition() int32 {
	return r.msg.TopicPartition.Partition
}

// Offset 返回消息 offset。
func (r *Result) Offset() int64 {
	return int64(r.msg.TopicPartition.Offset)
}

// Key 返回消息 key。
func (r *Result) Key() []byte {
	return r.msg.Key
}

// Value 返回消息体。
func (r *Result) Value() []byte {
	return r.msg.Value
}

// Header 返回指定头部的值（同名取最后一个）。
func (r *Result) Header(key string) ([]byte, bool) {
	return xheader.NewAccessor(r.msg, xheader.DefaultTable()).Lookup(key)
}
