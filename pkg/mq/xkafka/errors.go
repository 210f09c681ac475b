package xkafka

import (
	"errors"

	"github.com/omeyang/xbus/internal/mqcore"
)

// 重导出共享错误
var (
	// ErrNilClient 表示传入的客户端为空。
	ErrNilClient = mqcore.ErrNilClient

	// ErrNilMessage 表示传入的消息为空。
	ErrNilMessage = mqcore.ErrNilMessage

	// ErrClosed 表示客户端已关闭。
	ErrClosed = mqcore.ErrClosed
)

// Kafka 特有错误
var (
	// ErrNilConfig 表示传入的配置为空。
	ErrNilConfig = errors.New("xkafka: nil config")

	// ErrEmptyTopic 表示发布目标 Topic 为空。
	ErrEmptyTopic = errors.New("xkafka: empty topic")

	// ErrEmptyTopics 表示订阅的主题列表为空。
	ErrEmptyTopics = errors.New("xkafka: empty topics")

	// ErrFlushTimeout 表示关闭时仍有消息未完成投递。
	ErrFlushTimeout = errors.New("xkafka: flush timeout")

	// ErrDeliveryUnknown 表示投递事件中没有可识别的结果。
	ErrDeliveryUnknown = errors.New("xkafka: unknown delivery event")

	// ErrBreakerOpen 表示熔断器拒绝了本次发布。
	ErrBreakerOpen = errors.New("xkafka: circuit breaker rejected produce")
)
