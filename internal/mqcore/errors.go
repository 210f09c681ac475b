package mqcore

import "errors"

// 共享错误定义。
// 设计决策: 错误前缀使用 "mq:" 而非 "mqcore:"，这些错误由 xkafka/xconsume
// 重导出给终端用户，避免暴露 internal 包名。
var (
	// ErrNilClient 表示传入的客户端为空。
	ErrNilClient = errors.New("mq: nil client")

	// ErrNilMessage 表示传入的消息为空。
	ErrNilMessage = errors.New("mq: nil message")

	// ErrNilHandler 表示传入的处理函数为空。
	ErrNilHandler = errors.New("mq: nil handler")

	// ErrClosed 表示客户端已关闭。
	ErrClosed = errors.New("mq: client closed")

	// ErrBackoffExhausted 表示消费循环连续失败次数达到上限。
	ErrBackoffExhausted = errors.New("mq: consume loop backoff exhausted")
)
