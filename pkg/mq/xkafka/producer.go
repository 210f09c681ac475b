package xkafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xbus/internal/mqcore"
	"github.com/omeyang/xbus/pkg/observability/xlog"
)

// DeliveryReport 一条消息的投递结果。
type DeliveryReport struct {
	Topic     string
	Partition int32
	Offset    kafka.Offset
	Key       []byte
	// Err 为 Broker 返回的投递错误，成功时为 nil。
	Err error
}

// DeliveryFunc 投递结果回调，在 Producer 的事件循环 goroutine 上执行。
type DeliveryFunc func(report DeliveryReport)

// ProducerStats 生产者统计信息。
type ProducerStats struct {
	// Produced 成功入队的消息数量（入队成功不等于投递成功）。
	Produced int64
	// Delivered Broker 确认成功的消息数量。
	Delivered int64
	// Failed 入队失败或投递失败的消息数量。
	Failed int64
	// Pending 已入队、回调尚未执行的 Produce 消息数量。
	Pending int64
	// QueueLength 底层队列中等待发送的消息数量，关闭后为 0。
	QueueLength int
}

// deliveryState 通过 msg.Opaque 随消息流转，投递事件到达时取回。
type deliveryState struct {
	ctx         context.Context
	onDelivery  DeliveryFunc
	span        mqcore.Span
	breakerDone func(error)
}

// Producer 封装 ProducerClient，提供带回调与带回执的两种发布方式、事务控制和 Flush。
//
// Produce 会占用 msg.Opaque 传递回调状态，调用方不应依赖该字段。
type Producer struct {
	client  ProducerClient
	options *producerOptions

	// closeMu 保证 Close 与入队互斥：入队持读锁，Close 持写锁标记关闭。
	closeMu sync.RWMutex
	closed  atomic.Bool

	stop     chan struct{}
	loopDone chan struct{}

	pending atomic.Int64
	settled broadcast

	produced  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

// NewProducerFromClient 基于已有客户端创建 Producer，并启动投递事件循环。
// client 的生命周期转交给 Producer，由 Close 释放。
func NewProducerFromClient(client ProducerClient, opts ...ProducerOption) (*Producer, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	options := defaultProducerOptions()
	for _, opt := range opts {
		opt(options)
	}
	p := &Producer{
		client:   client,
		options:  options,
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go p.eventLoop(client.Events())
	return p, nil
}

// Client 返回底层客户端。
func (p *Producer) Client() ProducerClient {
	return p.client
}

// Produce 将 msg 发往 topic 并立即返回，投递结果通过 onDelivery 通知（可为 nil）。
// 入队失败时直接返回错误，此时 onDelivery 不会被调用。
func (p *Producer) Produce(ctx context.Context, topic string, msg *kafka.Message, onDelivery DeliveryFunc) error {
	if err := validate(topic, msg); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed.Load() {
		return ErrClosed
	}

	breakerDone, err := p.allow()
	if err != nil {
		p.failed.Add(1)
		p.logFailure(ctx, topic, msg.Key, err)
		return err
	}

	route(msg, topic)
	InjectContext(ctx, p.options.Tracer, msg)
	spanCtx, span := mqcore.StartSpan(ctx, p.options.Observer, mqcore.SpanOptions{
		Component: componentName,
		Operation: "produce",
		Kind:      mqcore.KindProducer,
		Attrs:     kafkaAttrs(topic),
	})

	msg.Opaque = &deliveryState{
		ctx:         spanCtx,
		onDelivery:  onDelivery,
		span:        span,
		breakerDone: breakerDone,
	}
	p.pending.Add(1)
	if err := p.client.Produce(msg, nil); err != nil {
		p.pending.Add(-1)
		p.failed.Add(1)
		breakerDone(err)
		span.End(err)
		p.logFailure(ctx, topic, msg.Key, err)
		return fmt.Errorf("xkafka: produce to %s: %w", topic, err)
	}
	p.produced.Add(1)
	return nil
}

// Send 将 msg 发往 topic 并等待 Broker 回执。
// ctx 在回执到达前取消时返回 ctx.Err()，此时消息是否送达不确定。
func (p *Producer) Send(ctx context.Context, topic string, msg *kafka.Message) (DeliveryReport, error) {
	if err := validate(topic, msg); err != nil {
		return DeliveryReport{Topic: topic, Err: err}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	deliveryChan := make(chan kafka.Event, 1)
	breakerDone, span, err := p.enqueue(ctx, topic, msg, deliveryChan)
	if err != nil {
		return DeliveryReport{Topic: topic, Key: msg.Key, Err: err}, err
	}

	select {
	case <-ctx.Done():
		breakerDone(nil)
		span.End(ctx.Err())
		p.options.Logger.Warn(ctx, "kafka delivery status unknown: context done",
			xlog.Topic(topic), xlog.Key(msg.Key), xlog.Err(ctx.Err()))
		return DeliveryReport{Topic: topic, Key: msg.Key, Err: ctx.Err()}, ctx.Err()
	case ev := <-deliveryChan:
		report := reportOf(topic, msg.Key, ev)
		breakerDone(report.Err)
		span.End(report.Err)
		p.settle(ctx, report)
		return report, report.Err
	}
}

func (p *Producer) enqueue(ctx context.Context, topic string, msg *kafka.Message, deliveryChan chan kafka.Event) (func(error), mqcore.Span, error) {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed.Load() {
		return nil, nil, ErrClosed
	}

	breakerDone, err := p.allow()
	if err != nil {
		p.failed.Add(1)
		p.logFailure(ctx, topic, msg.Key, err)
		return nil, nil, err
	}

	route(msg, topic)
	InjectContext(ctx, p.options.Tracer, msg)
	_, span := mqcore.StartSpan(ctx, p.options.Observer, mqcore.SpanOptions{
		Component: componentName,
		Operation: "send",
		Kind:      mqcore.KindProducer,
		Attrs:     kafkaAttrs(topic),
	})

	if err := p.client.Produce(msg, deliveryChan); err != nil {
		p.failed.Add(1)
		breakerDone(err)
		span.End(err)
		p.logFailure(ctx, topic, msg.Key, err)
		return nil, nil, fmt.Errorf("xkafka: produce to %s: %w", topic, err)
	}
	p.produced.Add(1)
	return breakerDone, span, nil
}

// Flush 等待队列中的消息发送完成，最长 timeout。
// 底层 Flush 返回后继续等待已投递消息的回调执行完毕，返回仍未完成投递的消息数量。
func (p *Producer) Flush(timeout time.Duration) int {
	if p.closed.Load() {
		return 0
	}
	return p.flush(timeout)
}

func (p *Producer) flush(timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	remaining := p.client.Flush(int(timeout.Milliseconds()))
	p.awaitCallbacks(deadline, int64(remaining))
	return remaining
}

// awaitCallbacks 等待未执行的回调数量降到 limit 以下，或到达 deadline。
func (p *Producer) awaitCallbacks(deadline time.Time, limit int64) {
	for {
		wake := p.settled.wait()
		if p.pending.Load() <= limit {
			return
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return
		}
		timer := time.NewTimer(wait)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
			return
		}
	}
}

// InitTransactions 初始化事务，每个 transactional.id 只需调用一次。
func (p *Producer) InitTransactions(ctx context.Context) error {
	return p.txn(ctx, "init", func() error { return p.client.InitTransactions(ctx) })
}

// BeginTransaction 开始事务。
func (p *Producer) BeginTransaction(ctx context.Context) error {
	return p.txn(ctx, "begin", p.client.BeginTransaction)
}

// CommitTransaction 提交事务，内部会先 flush 事务内的消息。
func (p *Producer) CommitTransaction(ctx context.Context) error {
	return p.txn(ctx, "commit", func() error { return p.client.CommitTransaction(ctx) })
}

// AbortTransaction 中止事务，丢弃事务内所有未提交的消息。
func (p *Producer) AbortTransaction(ctx context.Context) error {
	return p.txn(ctx, "abort", func() error { return p.client.AbortTransaction(ctx) })
}

func (p *Producer) txn(ctx context.Context, op string, fn func() error) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(); err != nil {
		p.options.Logger.Error(ctx, "kafka transaction failed",
			xlog.Operation(op), xlog.Err(err))
		return fmt.Errorf("xkafka: %s transaction: %w", op, err)
	}
	p.options.Logger.Debug(ctx, "kafka transaction", xlog.Operation(op))
	return nil
}

// Stats 返回生产者统计信息。
func (p *Producer) Stats() ProducerStats {
	stats := ProducerStats{
		Produced:  p.produced.Load(),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
		Pending:   p.pending.Load(),
	}
	p.closeMu.RLock()
	if !p.closed.Load() {
		stats.QueueLength = p.client.Len()
	}
	p.closeMu.RUnlock()
	return stats
}

// Close 先 Flush（受 FlushTimeout 限制）再释放底层 Producer。
// 重复调用 Close 直接返回 nil。Close 之后仍未确认的消息不再回调。
func (p *Producer) Close() error {
	p.closeMu.Lock()
	if p.closed.Load() {
		p.closeMu.Unlock()
		return nil
	}
	p.closed.Store(true)
	p.closeMu.Unlock()

	remaining := p.flush(p.options.FlushTimeout)
	close(p.stop)
	<-p.loopDone
	p.client.Close()

	if remaining > 0 {
		return fmt.Errorf("%w: %d messages still in queue", ErrFlushTimeout, remaining)
	}
	return nil
}

func (p *Producer) eventLoop(events chan kafka.Event) {
	defer close(p.loopDone)
	for {
		select {
		case <-p.stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.handleEvent(ev)
		}
	}
}

func (p *Producer) handleEvent(ev kafka.Event) {
	switch e := ev.(type) {
	case *kafka.Message:
		state, ok := e.Opaque.(*deliveryState)
		if !ok {
			p.options.Logger.Debug(context.Background(), "kafka delivery report without callback state",
				xlog.Topic(topicOf(e)))
			return
		}
		e.Opaque = nil
		report := reportOf(topicOf(e), e.Key, e)
		state.breakerDone(report.Err)
		state.span.End(report.Err)
		p.settle(state.ctx, report)
		p.invoke(state, report)
		p.pending.Add(-1)
		p.settled.notify()

	case kafka.Error:
		if e.IsFatal() {
			p.options.Logger.Error(context.Background(), "kafka producer fatal error",
				xlog.Err(e), slog.String("code", e.Code().String()))
			return
		}
		p.options.Logger.Warn(context.Background(), "kafka producer error",
			xlog.Err(e), slog.String("code", e.Code().String()))

	default:
		p.options.Logger.Debug(context.Background(), "kafka producer event ignored",
			slog.String("event", ev.String()))
	}
}

// invoke 执行用户回调，回调 panic 不会终止事件循环。
func (p *Producer) invoke(state *deliveryState, report DeliveryReport) {
	if state.onDelivery == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.options.Logger.Error(state.ctx, "kafka delivery callback panicked",
				xlog.Topic(report.Topic), slog.Any("panic", r))
		}
	}()
	state.onDelivery(report)
}

// settle 统计并记录一次投递结果。
func (p *Producer) settle(ctx context.Context, report DeliveryReport) {
	if report.Err != nil {
		p.failed.Add(1)
		p.logFailure(ctx, report.Topic, report.Key, report.Err)
		return
	}
	p.delivered.Add(1)
	p.options.Logger.Debug(ctx, "kafka delivery succeeded",
		xlog.Topic(report.Topic),
		xlog.Partition(report.Partition),
		xlog.Offset(int64(report.Offset)),
		xlog.Key(report.Key),
	)
}

func (p *Producer) logFailure(ctx context.Context, topic string, key []byte, err error) {
	p.options.Logger.Error(ctx, "kafka delivery failed",
		xlog.Topic(topic), xlog.Key(key), xlog.Err(err))
}

func (p *Producer) allow() (func(error), error) {
	if p.options.Breaker == nil {
		return func(error) {}, nil
	}
	done, err := p.options.Breaker.Allow()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBreakerOpen, err)
	}
	return done, nil
}

func validate(topic string, msg *kafka.Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if topic == "" {
		return ErrEmptyTopic
	}
	return nil
}

// route 设置目标 topic；仅当消息已指向同一 topic 且指定了分区时保留该分区。
func route(msg *kafka.Message, topic string) {
	partition := kafka.PartitionAny
	if msg.TopicPartition.Topic != nil && *msg.TopicPartition.Topic == topic && msg.TopicPartition.Partition >= 0 {
		partition = msg.TopicPartition.Partition
	}
	t := topic
	msg.TopicPartition = kafka.TopicPartition{Topic: &t, Partition: partition}
}

func reportOf(topic string, key []byte, ev kafka.Event) DeliveryReport {
	m, ok := ev.(*kafka.Message)
	if !ok {
		return DeliveryReport{Topic: topic, Key: key, Err: fmt.Errorf("%w: %v", ErrDeliveryUnknown, ev)}
	}
	report := DeliveryReport{
		Topic:     topic,
		Partition: m.TopicPartition.Partition,
		Offset:    m.TopicPartition.Offset,
		Key:       key,
		Err:       m.TopicPartition.Error,
	}
	if t := topicOf(m); t != "" {
		report.Topic = t
	}
	return report
}

// broadcast 一次性唤醒所有等待者的信号。
type broadcast struct {
	mu sync.Mutex
	ch chan struct{}
}

func (b *broadcast) wait() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch == nil {
		b.ch = make(chan struct{})
	}
	return b.ch
}

func (b *broadcast) notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil {
		close(b.ch)
		b.ch = nil
	}
}
