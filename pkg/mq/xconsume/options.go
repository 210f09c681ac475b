package xconsume

import (
	"github.com/omeyang/xbus/internal/mqcore"
	"github.com/omeyang/xbus/pkg/mq/xkafka"
	"github.com/omeyang/xbus/pkg/observability/xlog"
)

// Clock 时间来源，测试中可替换为固定时钟。
type Clock = mqcore.Clock

// Delayer 可取消的等待原语，测试中可替换为记录型实现。
type Delayer = mqcore.Delayer

// BackoffPolicy 消费循环失败后的退避策略。
type BackoffPolicy = mqcore.BackoffPolicy

// ConsumerFactory 创建引擎独占的消费者，首次拉取时调用一次。
type ConsumerFactory func() (*xkafka.Consumer, error)

// ProducerFactory 创建引擎独占的伴随生产者，首次转交重试或死信时调用一次。
type ProducerFactory func() (*xkafka.Producer, error)

type options struct {
	logger   xlog.Logger
	clock    Clock
	delayer  Delayer
	backoff  BackoffPolicy
	observer xkafka.Observer
	tracer   xkafka.Tracer
}

func defaultOptions() *options {
	return &options{
		logger:   xlog.Discard(),
		clock:    mqcore.SystemClock{},
		delayer:  mqcore.SystemDelayer{},
		backoff:  mqcore.DefaultBackoff(),
		observer: xkafka.NoopObserver{},
		tracer:   xkafka.NoopTracer{},
	}
}

// Option 配置 Engine 与 Subscriber。
type Option func(*options)

// WithLogger 设置日志记录器，nil 忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock 设置时钟，nil 忽略。
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithDelayer 设置等待原语。分区末尾等待、重试轮询等待与循环退避都经由它。
func WithDelayer(delayer Delayer) Option {
	return func(o *options) {
		if delayer != nil {
			o.delayer = delayer
		}
	}
}

// WithBackoff 设置消费循环的退避策略。
func WithBackoff(backoff BackoffPolicy) Option {
	return func(o *options) {
		if backoff != nil {
			o.backoff = backoff
		}
	}
}

// WithObserver 设置观测器。
func WithObserver(observer xkafka.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithTracer 设置链路传播器，用于从消息头恢复上游追踪上下文。
func WithTracer(tracer xkafka.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}
