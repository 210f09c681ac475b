package xbus

import "errors"

var (
	// ErrInvalidKafkaValue librdkafka 参数值类型不受支持（嵌套结构、非整数浮点以外的类型等）。
	ErrInvalidKafkaValue = errors.New("xbus: invalid kafka config value")

	// ErrMissingBootstrap 合并后的参数缺少 bootstrap.servers。
	ErrMissingBootstrap = errors.New("xbus: bootstrap.servers is required")

	// ErrMissingGroupID 消费者参数缺少 group.id。
	ErrMissingGroupID = errors.New("xbus: consumer group.id is required")

	// ErrClosed Bus 已关闭。
	ErrClosed = errors.New("xbus: closed")
)
