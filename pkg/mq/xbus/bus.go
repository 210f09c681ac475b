package xbus

import (
	"context"
	"errors"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xbus/pkg/mq/xconsume"
	"github.com/omeyang/xbus/pkg/mq/xkafka"
	"github.com/omeyang/xbus/pkg/mq/xpublish"
	"github.com/omeyang/xbus/pkg/observability/xlog"
)

// ConsumerBuilder 按 librdkafka 参数创建消费者，默认 xkafka.NewConsumer。
type ConsumerBuilder func(cfg *kafka.ConfigMap, opts ...xkafka.ConsumerOption) (*xkafka.Consumer, error)

// ProducerBuilder 按 librdkafka 参数创建生产者，默认 xkafka.NewProducer。
type ProducerBuilder func(cfg *kafka.ConfigMap, opts ...xkafka.ProducerOption) (*xkafka.Producer, error)

type options struct {
	logger      xlog.Logger
	tracer      xkafka.Tracer
	observer    xkafka.Observer
	newConsumer ConsumerBuilder
	newProducer ProducerBuilder
	consumeOpts []xconsume.Option
}

// Option 配置 Bus。
type Option func(*options)

// WithLogger 设置日志记录器，同时传给消费引擎、发布器与底层客户端。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer 设置链路传播器。
func WithTracer(tracer xkafka.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
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

// WithConsumerBuilder 替换消费者创建函数。
func WithConsumerBuilder(fn ConsumerBuilder) Option {
	return func(o *options) {
		if fn != nil {
			o.newConsumer = fn
		}
	}
}

// WithProducerBuilder 替换生产者创建函数。
func WithProducerBuilder(fn ProducerBuilder) Option {
	return func(o *options) {
		if fn != nil {
			o.newProducer = fn
		}
	}
}

// WithConsumeOptions 追加传给消费引擎的选项，例如时钟与退避策略。
func WithConsumeOptions(opts ...xconsume.Option) Option {
	return func(o *options) {
		o.consumeOpts = append(o.consumeOpts, opts...)
	}
}

// Bus 按配置创建消费与发布组件。
//
// 每次 Subscribe 得到一个新的 Subscriber，其引擎各自持有消费者与伴随生产者；
// Publisher 在首次使用时创建并在 Bus 生命周期内复用。
type Bus struct {
	cfg     Config
	options *options

	mu        sync.Mutex
	publisher *xpublish.Publisher
	closed    bool
}

// New 校验配置并创建 Bus，此时不连接 Kafka。
func New(cfg Config, opts ...Option) (*Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{
		logger:      xlog.Discard(),
		tracer:      xkafka.NoopTracer{},
		observer:    xkafka.NoopObserver{},
		newConsumer: xkafka.NewConsumer,
		newProducer: xkafka.NewProducer,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Bus{cfg: cfg, options: o}, nil
}

// Config 返回创建 Bus 时的配置。
func (b *Bus) Config() Config {
	return b.cfg
}

// Subscribe 为 handler 创建 Subscriber，消费者在 Consume 首次拉取时才创建。
func (b *Bus) Subscribe(handler xconsume.Handler) (*xconsume.Subscriber, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	consumerCfg, err := b.cfg.ConsumerKafka()
	if err != nil {
		return nil, err
	}
	producerCfg, err := b.cfg.retryProducerKafka()
	if err != nil {
		return nil, err
	}

	o := b.options
	consumers := func() (*xkafka.Consumer, error) {
		return o.newConsumer(&consumerCfg,
			xkafka.WithConsumerLogger(o.logger),
			xkafka.WithConsumerPollTimeout(b.cfg.Consumer.PollTimeout),
		)
	}
	producers := func() (*xkafka.Producer, error) {
		return o.newProducer(&producerCfg,
			xkafka.WithProducerLogger(o.logger),
			xkafka.WithProducerTracer(o.tracer),
			xkafka.WithProducerObserver(o.observer),
			xkafka.WithProducerFlushTimeout(b.cfg.Publisher.FlushTimeout),
		)
	}

	consumeOpts := append([]xconsume.Option{
		xconsume.WithLogger(o.logger),
		xconsume.WithTracer(o.tracer),
		xconsume.WithObserver(o.observer),
	}, o.consumeOpts...)
	return xconsume.NewSubscriber(b.cfg.Consumer.Config, handler, consumers, producers, consumeOpts...)
}

// Consume 创建 Subscriber 并阻塞消费，直到 ctx 取消或消费循环放弃。
func (b *Bus) Consume(ctx context.Context, handler xconsume.Handler) error {
	sub, err := b.Subscribe(handler)
	if err != nil {
		return err
	}
	return sub.Consume(ctx)
}

// Publisher 返回共享的发布器，首次调用时创建生产者。
func (b *Bus) Publisher() (*xpublish.Publisher, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if b.publisher != nil {
		return b.publisher, nil
	}

	cm, err := b.cfg.ProducerKafka()
	if err != nil {
		return nil, err
	}
	o := b.options
	producerOpts := []xkafka.ProducerOption{
		xkafka.WithProducerLogger(o.logger),
		xkafka.WithProducerTracer(o.tracer),
		xkafka.WithProducerObserver(o.observer),
		xkafka.WithProducerFlushTimeout(b.cfg.Publisher.FlushTimeout),
	}
	if settings, ok := b.cfg.Publisher.Breaker.BreakerSettings("xbus-publisher"); ok {
		producerOpts = append(producerOpts, xkafka.WithProducerBreaker(settings))
	}
	producer, err := o.newProducer(&cm, producerOpts...)
	if err != nil {
		return nil, err
	}
	publisher, err := xpublish.New(producer, b.cfg.Publisher.Config, xpublish.WithLogger(o.logger))
	if err != nil {
		return nil, errors.Join(err, producer.Close())
	}
	b.publisher = publisher
	return publisher, nil
}

// Close 关闭发布器。Subscriber 在 Consume 返回时自行释放资源，不受 Close 影响。
// 重复调用返回 nil。
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.publisher == nil {
		return nil
	}
	return b.publisher.Close()
}
