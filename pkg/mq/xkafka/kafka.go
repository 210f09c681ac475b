package xkafka

import (
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xbus/pkg/observability/xlog"
)

// =============================================================================
// 工厂函数
// =============================================================================

// NewProducer 基于 librdkafka 配置创建 Producer。
// config 必须包含 "bootstrap.servers"；使用事务时还需 "transactional.id"。
func NewProducer(config *kafka.ConfigMap, opts ...ProducerOption) (*Producer, error) {
	cloned, err := cloneConfig(config)
	if err != nil {
		return nil, err
	}
	client, err := kafka.NewProducer(cloned)
	if err != nil {
		return nil, fmt.Errorf("xkafka: create producer: %w", err)
	}
	return NewProducerFromClient(client, opts...)
}

// NewConsumer 基于 librdkafka 配置创建 Consumer。
// config 必须包含 "bootstrap.servers" 和 "group.id"。
// 强制开启 enable.partition.eof，分区末尾作为独立的 Fetch 结果返回。
func NewConsumer(config *kafka.ConfigMap, opts ...ConsumerOption) (*Consumer, error) {
	cloned, err := cloneConfig(config)
	if err != nil {
		return nil, err
	}
	if err := cloned.SetKey("enable.partition.eof", true); err != nil {
		return nil, fmt.Errorf("xkafka: set enable.partition.eof: %w", err)
	}
	client, err := kafka.NewConsumer(cloned)
	if err != nil {
		return nil, fmt.Errorf("xkafka: create consumer: %w", err)
	}
	return NewConsumerFromClient(client, opts...)
}

// cloneConfig 复制配置，避免修改调用方传入的 ConfigMap。
func cloneConfig(config *kafka.ConfigMap) (*kafka.ConfigMap, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	cloned := &kafka.ConfigMap{}
	for k, v := range *config {
		if err := cloned.SetKey(k, v); err != nil {
			return nil, fmt.Errorf("xkafka: clone config key %q: %w", k, err)
		}
	}
	return cloned, nil
}

// =============================================================================
// 选项
// =============================================================================

// producerOptions 包含 Producer 的配置选项。
type producerOptions struct {
	Logger       xlog.Logger
	Tracer       Tracer
	Observer     Observer
	FlushTimeout time.Duration
	Breaker      *gobreaker.TwoStepCircuitBreaker[struct{}]
}

func defaultProducerOptions() *producerOptions {
	return &producerOptions{
		Logger:       xlog.Discard(),
		Tracer:       NoopTracer{},
		Observer:     NoopObserver{},
		FlushTimeout: 10 * time.Second,
	}
}

// ProducerOption 定义 Producer 的配置选项函数类型。
type ProducerOption func(*producerOptions)

// WithProducerLogger 设置日志记录器。
func WithProducerLogger(logger xlog.Logger) ProducerOption {
	return func(o *producerOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithProducerTracer 设置链路追踪器。
func WithProducerTracer(tracer Tracer) ProducerOption {
	return func(o *producerOptions) {
		if tracer != nil {
			o.Tracer = tracer
		}
	}
}

// WithProducerObserver 设置统一观测接口。
func WithProducerObserver(observer Observer) ProducerOption {
	return func(o *producerOptions) {
		if observer != nil {
			o.Observer = observer
		}
	}
}

// WithProducerFlushTimeout 设置 Close 时的刷新超时时间。
func WithProducerFlushTimeout(d time.Duration) ProducerOption {
	return func(o *producerOptions) {
		if d > 0 {
			o.FlushTimeout = d
		}
	}
}

// WithProducerBreaker 为发布启用两阶段熔断器。
// 每次发布在入队前申请许可，在投递结果到达时上报成功或失败；
// 熔断打开期间发布直接返回 ErrBreakerOpen，不触达底层 Producer。
func WithProducerBreaker(settings gobreaker.Settings) ProducerOption {
	return func(o *producerOptions) {
		o.Breaker = gobreaker.NewTwoStepCircuitBreaker[struct{}](settings)
	}
}

// consumerOptions 包含 Consumer 的配置选项。
type consumerOptions struct {
	Logger      xlog.Logger
	PollTimeout time.Duration
}

func defaultConsumerOptions() *consumerOptions {
	return &consumerOptions{
		Logger:      xlog.Discard(),
		PollTimeout: 100 * time.Millisecond,
	}
}

// ConsumerOption 定义 Consumer 的配置选项函数类型。
type ConsumerOption func(*consumerOptions)

// WithConsumerLogger 设置日志记录器。
func WithConsumerLogger(logger xlog.Logger) ConsumerOption {
	return func(o *consumerOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithConsumerPollTimeout 设置单次 Poll 的超时时间，超时无事件时 Fetch 返回 FetchNone。
func WithConsumerPollTimeout(d time.Duration) ConsumerOption {
	return func(o *consumerOptions) {
		if d > 0 {
			o.PollTimeout = d
		}
	}
}

