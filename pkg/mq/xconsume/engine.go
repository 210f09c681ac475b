package xconsume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xbus/internal/mqcore"
	"github.com/omeyang/xbus/pkg/mq/xkafka"
	"github.com/omeyang/xbus/pkg/observability/xlog"
)

const componentName = "xconsume"

// Role 引擎在订阅中承担的角色。
type Role string

const (
	// RolePrimary 消费主 Topic。
	RolePrimary Role = "primary"
	// RoleRetry 消费重试 Topic。
	RoleRetry Role = "retry"
)

// Stats 引擎统计信息。
type Stats struct {
	// Processed 交给 Handler 的消息数量。
	Processed int64
	// HandlerErrors Handler 返回错误或 panic 的次数。
	HandlerErrors int64
	// Committed 显式提交成功次数。
	Committed int64
	// Retried 成功转交重试 Topic 的次数。
	Retried int64
	// RetryPublishFailures 转交重试 Topic 失败的次数。
	RetryPublishFailures int64
	// DeadLettered 成功发往死信 Topic 的次数。
	DeadLettered int64
	// DeadLetterFailures 发往死信 Topic 失败的次数。
	DeadLetterFailures int64
	// Deferred 重试消息未到期被推迟的次数。
	Deferred int64
	// Seeks 成功 Seek 的次数。
	Seeks int64
	// InFlight 当前在途处理数量。
	InFlight int
}

// Engine 单个消费循环的核心：拉取、并发控制与单消息决策。
//
// Engine 独占一个消费者与一个伴随生产者，两者都在首次使用时通过工厂创建。
// Run 系列方法与 Close 不应并发调用：Close 应在 Run 返回之后调用。
type Engine struct {
	cfg     Config
	role    Role
	handler Handler
	options *options
	logger  xlog.Logger

	newConsumer ConsumerFactory
	newProducer ProducerFactory

	mu       sync.Mutex
	consumer *xkafka.Consumer
	producer *xkafka.Producer
	closed   bool

	registry *registry

	processed          atomic.Int64
	handlerErrors      atomic.Int64
	committed          atomic.Int64
	retried            atomic.Int64
	retryFailures      atomic.Int64
	deadLettered       atomic.Int64
	deadLetterFailures atomic.Int64
	deferred           atomic.Int64
	seeks              atomic.Int64
}

// NewEngine 创建引擎。cfg 会先经过 Validate。
func NewEngine(cfg Config, role Role, handler Handler, consumers ConsumerFactory, producers ProducerFactory, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	if consumers == nil || producers == nil {
		return nil, ErrNilFactory
	}
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Engine{
		cfg:         cfg,
		role:        role,
		handler:     handler,
		options:     options,
		logger:      options.logger.With(xlog.Component(componentName), slog.String("role", string(role))),
		newConsumer: consumers,
		newProducer: producers,
		registry:    newRegistry(),
	}, nil
}

// Stats 返回统计快照。
func (e *Engine) Stats() Stats {
	return Stats{
		Processed:            e.processed.Load(),
		HandlerErrors:        e.handlerErrors.Load(),
		Committed:            e.committed.Load(),
		Retried:              e.retried.Load(),
		RetryPublishFailures: e.retryFailures.Load(),
		DeadLettered:         e.deadLettered.Load(),
		DeadLetterFailures:   e.deadLetterFailures.Load(),
		Deferred:             e.deferred.Load(),
		Seeks:                e.seeks.Load(),
		InFlight:             e.registry.len(),
	}
}

// Close 等待在途处理结束，然后依次关闭消费者与生产者。
// 重复调用返回 nil。
func (e *Engine) Close() error {
	// 先等在途处理结束再关闭消费者，在途消息的提交仍需可用的句柄
	e.registry.drain()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	consumer, producer := e.consumer, e.producer
	e.mu.Unlock()

	var errs []error
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("xconsume: close consumer: %w", err))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("xconsume: close producer: %w", err))
		}
	}
	e.logger.Info(context.Background(), "engine closed")
	return errors.Join(errs...)
}

func (e *Engine) getConsumer() (*xkafka.Consumer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if e.consumer == nil {
		c, err := e.newConsumer()
		if err != nil {
			return nil, fmt.Errorf("xconsume: create consumer: %w", err)
		}
		e.consumer = c
	}
	return e.consumer, nil
}

func (e *Engine) getProducer() (*xkafka.Producer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if e.producer == nil {
		p, err := e.newProducer()
		if err != nil {
			return nil, fmt.Errorf("xconsume: create producer: %w", err)
		}
		e.producer = p
	}
	return e.producer, nil
}

// handle 处理一次拉取结果。
func (e *Engine) handle(ctx context.Context, f xkafka.Fetch) error {
	switch f.Kind {
	case xkafka.FetchEndOfPartition:
		return e.endOfPartition(ctx, f.Partition)
	case xkafka.FetchMessage:
		if err := ctx.Err(); err != nil {
			return err
		}
		e.dispatch(ctx, f.Message)
		return nil
	default:
		return nil
	}
}

// endOfPartition 等待全部在途处理结束，再按配置等待。
func (e *Engine) endOfPartition(ctx context.Context, tp kafka.TopicPartition) error {
	e.registry.drain()
	e.logger.Debug(ctx, "end of partition reached",
		xlog.Topic(stringOf(tp.Topic)), xlog.Partition(tp.Partition), xlog.Offset(int64(tp.Offset)))
	if d := e.cfg.EndOfPartitionDelay; d > 0 {
		return e.options.delayer.Delay(ctx, d)
	}
	return nil
}

// dispatch 在独立 goroutine 中处理 msg。
//
// 同一分区同时最多一个在途处理：派发前先等待该分区已登记的处理结束。
// 逐条模式下派发后立即等待本次处理；并发模式下在途数量达到上限时等待全部结束。
func (e *Engine) dispatch(ctx context.Context, msg *kafka.Message) {
	key := keyOf(msg.TopicPartition)
	e.registry.wait(key)

	o := e.registry.start(key)
	go func() {
		defer e.registry.finish(key, o)
		e.process(ctx, msg)
	}()

	if e.cfg.MaxConcurrentMessages <= 1 {
		<-o.done
		return
	}
	if e.registry.len() >= e.cfg.MaxConcurrentMessages {
		e.registry.drain()
	}
}

// process 调用 Handler 并执行决策。
func (e *Engine) process(ctx context.Context, msg *kafka.Message) {
	ctx = xkafka.ExtractContext(ctx, e.options.tracer, msg)
	ctx, span := mqcore.StartSpan(ctx, e.options.observer, mqcore.SpanOptions{
		Component: componentName,
		Operation: "process",
		Kind:      mqcore.KindConsumer,
		Attrs:     messageAttrs(e.role, msg),
	})

	e.processed.Add(1)
	result := NewResult(msg, e.cfg.RetryLimit)
	err := e.invoke(ctx, result)
	if err != nil {
		e.handlerErrors.Add(1)
		e.logger.Warn(ctx, "handler failed",
			xlog.Topic(result.Topic()), xlog.Partition(result.Partition()),
			xlog.Offset(result.Offset()), xlog.Key(result.Key()),
			xlog.Attempt(result.RetryCount()), xlog.Err(err))
	}
	e.decide(ctx, result, err)
	span.End(err)
}

func (e *Engine) invoke(ctx context.Context, result *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return e.handler(ctx, result)
}

// send 通过伴随生产者同步发送并等待回执。
func (e *Engine) send(ctx context.Context, topic string, msg *kafka.Message) error {
	producer, err := e.getProducer()
	if err != nil {
		return err
	}
	_, err = producer.Send(ctx, topic, msg)
	return err
}

// commit 提交 msg 的 offset。自动提交模式下只记录日志。
func (e *Engine) commit(ctx context.Context, msg *kafka.Message) {
	if e.cfg.AutoCommit {
		e.logger.Debug(ctx, "auto commit enabled, skip explicit commit",
			xlog.Key(msg.Key), xlog.Offset(int64(msg.TopicPartition.Offset)))
		return
	}
	consumer, err := e.getConsumer()
	if err == nil {
		err = consumer.Commit(msg)
	}
	if err != nil {
		e.logger.Error(ctx, "commit failed",
			xlog.Topic(stringOf(msg.TopicPartition.Topic)), xlog.Partition(msg.TopicPartition.Partition),
			xlog.Offset(int64(msg.TopicPartition.Offset)), xlog.Key(msg.Key), xlog.Err(err))
		return
	}
	e.committed.Add(1)
	e.logger.Debug(ctx, "offset committed",
		xlog.Topic(stringOf(msg.TopicPartition.Topic)), xlog.Partition(msg.TopicPartition.Partition),
		xlog.Offset(int64(msg.TopicPartition.Offset)), xlog.Key(msg.Key))
}

// seek 将消费者重定位到 tp，失败只记录日志。
func (e *Engine) seek(ctx context.Context, tp kafka.TopicPartition) {
	consumer, err := e.getConsumer()
	if err == nil {
		err = consumer.Seek(tp)
	}
	if err != nil {
		e.logger.Warn(ctx, "seek failed",
			xlog.Topic(stringOf(tp.Topic)), xlog.Partition(tp.Partition),
			xlog.Offset(int64(tp.Offset)), xlog.Err(err))
		return
	}
	e.seeks.Add(1)
}

func messageAttrs(role Role, msg *kafka.Message) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", stringOf(msg.TopicPartition.Topic)),
		attribute.Int("messaging.kafka.destination.partition", int(msg.TopicPartition.Partition)),
		attribute.Int64("messaging.kafka.message.offset", int64(msg.TopicPartition.Offset)),
		attribute.String("xbus.consumer.role", string(role)),
	}
}

func stringOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func slogReason(reason string) slog.Attr {
	return slog.String("reason", reason)
}
