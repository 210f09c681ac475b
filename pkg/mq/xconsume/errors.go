package xconsume

import (
	"errors"

	"github.com/omeyang/xbus/internal/mqcore"
)

// 重导出共享错误
var (
	// ErrNilHandler 表示处理函数为空。
	ErrNilHandler = mqcore.ErrNilHandler

	// ErrClosed 表示引擎已关闭。
	ErrClosed = mqcore.ErrClosed

	// ErrBackoffExhausted 表示消费循环连续失败达到上限。
	ErrBackoffExhausted = mqcore.ErrBackoffExhausted
)

// 配置与处理错误
var (
	// ErrNoTopics 表示没有配置任何主 Topic。
	ErrNoTopics = errors.New("xconsume: no topics configured")

	// ErrEmptyTopicName 表示 Topic 名称为空。
	ErrEmptyTopicName = errors.New("xconsume: empty topic name")

	// ErrTopicConflict 表示主 Topic、重试 Topic、死信 Topic 之间名称冲突。
	ErrTopicConflict = errors.New("xconsume: topic roles must be distinct")

	// ErrInvalidConfig 表示数值型配置非法。
	ErrInvalidConfig = errors.New("xconsume: invalid config")

	// ErrRetryTopicRequired 表示开启了重试 Topic 消费但未配置重试 Topic。
	ErrRetryTopicRequired = errors.New("xconsume: retry topic consumption requires a retry topic")

	// ErrNilFactory 表示消费者或生产者工厂为空。
	ErrNilFactory = errors.New("xconsume: nil factory")

	// ErrHandlerPanic 表示处理函数发生 panic，按处理失败对待。
	ErrHandlerPanic = errors.New("xconsume: handler panicked")
)
