package xpublish

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"

	"github.com/omeyang/xbus/pkg/mq/xheader"
	"github.com/omeyang/xbus/pkg/mq/xkafka"
	"github.com/omeyang/xbus/pkg/observability/xlog"
)

const componentName = "xpublish"

// Config 发布配置。
type Config struct {
	// FlushTimeout PublishBatch 与 PublishAtomic 等待回执的上限。
	FlushTimeout time.Duration `koanf:"flush_timeout"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{FlushTimeout: 10 * time.Second}
}

type options struct {
	logger xlog.Logger
	newID  func() uuid.UUID
}

// Option 配置 Publisher。
type Option func(*options)

// WithLogger 设置日志记录器，nil 忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBatchIDGenerator 替换批次 ID 生成函数，默认 uuid.New。
func WithBatchIDGenerator(fn func() uuid.UUID) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// Publisher 组合单条发布与三种批量策略。
//
// Publisher 持有 producer，Close 时一并关闭。PublishAtomic 要求 producer
// 配置了 transactional.id，且同一 Publisher 上的事务不应并发执行。
type Publisher struct {
	producer *xkafka.Producer
	cfg      Config
	options  *options
	logger   xlog.Logger

	txnMu    sync.Mutex
	txnReady bool
}

// New 创建 Publisher。cfg.FlushTimeout <= 0 时使用默认值。
func New(producer *xkafka.Producer, cfg Config, opts ...Option) (*Publisher, error) {
	if producer == nil {
		return nil, ErrNilProducer
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultConfig().FlushTimeout
	}
	o := &options{logger: xlog.Discard(), newID: uuid.New}
	for _, opt := range opts {
		opt(o)
	}
	return &Publisher{
		producer: producer,
		cfg:      cfg,
		options:  o,
		logger:   o.logger.With(xlog.Component(componentName)),
	}, nil
}

// Producer 返回底层生产者。
func (p *Publisher) Producer() *xkafka.Producer {
	return p.producer
}

// Publish 发送单条消息并等待回执。
func (p *Publisher) Publish(ctx context.Context, topic string, msg *kafka.Message) (xkafka.DeliveryReport, error) {
	return p.producer.Send(ctx, topic, msg)
}

// PublishBatchAsync 逐条发送并等待各自的回执，部分成功是预期结果。
func (p *Publisher) PublishBatchAsync(ctx context.Context, topic string, msgs []*kafka.Message) BatchResult {
	result := BatchResult{BatchID: p.options.newID()}
	for i, msg := range msgs {
		if msg == nil {
			result.add(failure(i, nil, xkafka.ErrNilMessage))
			continue
		}
		xheader.SetBatchID(msg, result.BatchID)
		report, err := p.producer.Send(ctx, topic, msg)
		if err != nil && report.Err == nil {
			report.Err = err
		}
		result.add(outcomeOf(i, report))
	}
	p.logBatch(ctx, "async", topic, result)
	return result
}

// PublishBatch 全部入队后统一 Flush，Flush 返回时仍未回执的消息记为
// ReasonUncertain 失败。之后迟到的回执被忽略。
func (p *Publisher) PublishBatch(ctx context.Context, topic string, msgs []*kafka.Message) BatchResult {
	id := p.options.newID()

	var (
		mu       sync.Mutex
		sealed   bool
		outcomes = make([]*Outcome, len(msgs))
	)
	record := func(i int, o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		if !sealed {
			outcomes[i] = &o
		}
	}

	for i, msg := range msgs {
		if msg == nil {
			record(i, failure(i, nil, xkafka.ErrNilMessage))
			continue
		}
		xheader.SetBatchID(msg, id)
		err := p.producer.Produce(ctx, topic, msg, func(report xkafka.DeliveryReport) {
			record(i, outcomeOf(i, report))
		})
		if err != nil {
			record(i, failure(i, msg.Key, err))
		}
	}

	if remaining := p.producer.Flush(p.cfg.FlushTimeout); remaining > 0 {
		p.logger.Warn(ctx, "flush returned with undelivered messages",
			xlog.Topic(topic), xlog.Count(remaining), xlog.Duration(p.cfg.FlushTimeout))
	}

	mu.Lock()
	sealed = true
	result := BatchResult{BatchID: id}
	for i, o := range outcomes {
		if o == nil {
			result.add(uncertain(i, msgs[i].Key))
			continue
		}
		result.add(*o)
	}
	mu.Unlock()

	p.logBatch(ctx, "sync", topic, result)
	return result
}

// PublishAtomic 在一个事务内发送全部消息。
//
// 首次调用时初始化事务。任一消息入队失败、回执报错或 Flush 后仍未回执时
// 回滚并返回 false；全部成功且提交成功时返回 true。
func (p *Publisher) PublishAtomic(ctx context.Context, topic string, msgs []*kafka.Message) bool {
	p.txnMu.Lock()
	defer p.txnMu.Unlock()

	if !p.txnReady {
		if err := p.producer.InitTransactions(ctx); err != nil {
			return false
		}
		p.txnReady = true
	}
	if err := p.producer.BeginTransaction(ctx); err != nil {
		return false
	}

	id := p.options.newID()
	var faulted atomic.Bool
	for i, msg := range msgs {
		if msg == nil {
			p.logger.Error(ctx, "nil message in atomic batch", slog.Int("index", i))
			faulted.Store(true)
			break
		}
		xheader.SetBatchID(msg, id)
		err := p.producer.Produce(ctx, topic, msg, func(report xkafka.DeliveryReport) {
			if report.Err != nil {
				faulted.Store(true)
			}
		})
		if err != nil {
			faulted.Store(true)
			break
		}
	}

	if !faulted.Load() {
		if remaining := p.producer.Flush(p.cfg.FlushTimeout); remaining > 0 {
			p.logger.Warn(ctx, "transaction flush timed out",
				xlog.Topic(topic), xlog.Count(remaining))
			faulted.Store(true)
		}
	}

	if !faulted.Load() {
		if err := p.producer.CommitTransaction(ctx); err == nil {
			p.logger.Info(ctx, "atomic batch committed",
				xlog.Topic(topic), xlog.BatchID(id.String()), xlog.Count(len(msgs)))
			return true
		}
	}

	p.abort(ctx, topic, id)
	return false
}

func (p *Publisher) abort(ctx context.Context, topic string, id uuid.UUID) {
	if err := p.producer.AbortTransaction(ctx); err != nil {
		p.logger.Error(ctx, "abort transaction failed",
			xlog.Topic(topic), xlog.BatchID(id.String()), xlog.Err(err))
		return
	}
	p.logger.Warn(ctx, "atomic batch aborted", xlog.Topic(topic), xlog.BatchID(id.String()))
}

// Close 关闭底层生产者。
func (p *Publisher) Close() error {
	return p.producer.Close()
}

func (p *Publisher) logBatch(ctx context.Context, mode, topic string, result BatchResult) {
	attrs := []slog.Attr{
		slog.String("mode", mode),
		xlog.Topic(topic),
		xlog.BatchID(result.BatchID.String()),
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
	}
	if result.OK() {
		p.logger.Info(ctx, "batch published", attrs...)
		return
	}
	p.logger.Warn(ctx, "batch published with failures", attrs...)
}
