package xkafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xbus/pkg/observability/xlog"
)

// FetchKind 一次 Fetch 的结果类型。
type FetchKind int

const (
	// FetchNone 本次没有可处理的事件（Poll 超时、非致命错误、重平衡通知等）。
	FetchNone FetchKind = iota
	// FetchMessage 拉取到一条消息。
	FetchMessage
	// FetchEndOfPartition 某个分区已读到末尾。
	FetchEndOfPartition
)

// String 返回 FetchKind 的可读形式。
func (k FetchKind) String() string {
	switch k {
	case FetchMessage:
		return "message"
	case FetchEndOfPartition:
		return "end_of_partition"
	default:
		return "none"
	}
}

// Fetch 一次拉取的结果。
type Fetch struct {
	Kind FetchKind
	// Message 仅在 Kind == FetchMessage 时非 nil。
	Message *kafka.Message
	// Partition 在 Kind == FetchEndOfPartition 时为到达末尾的分区及其 offset。
	Partition kafka.TopicPartition
}

// ConsumerStats 消费者统计信息。
type ConsumerStats struct {
	// MessagesConsumed 已拉取的消息数量。
	MessagesConsumed int64
	// EndOfPartition 分区末尾事件数量。
	EndOfPartition int64
	// Commits 成功提交次数。
	Commits int64
	// Seeks 成功重定位次数。
	Seeks int64
	// Errors Poll 返回的错误事件数量（含非致命）。
	Errors int64
}

// Consumer 封装 ConsumerClient，提供可取消的 Fetch 与幂等关闭。
//
// 底层 *kafka.Consumer 的方法是并发安全的：Fetch 在拉取 goroutine 上调用，
// Commit 在各消息处理 goroutine 上调用。
type Consumer struct {
	client  ConsumerClient
	options *consumerOptions
	closed  atomic.Bool

	messages atomic.Int64
	eofs     atomic.Int64
	commits  atomic.Int64
	seeks    atomic.Int64
	errors   atomic.Int64
}

// NewConsumerFromClient 基于已有客户端创建 Consumer。
// client 的生命周期转交给 Consumer，由 Close 释放。
func NewConsumerFromClient(client ConsumerClient, opts ...ConsumerOption) (*Consumer, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	options := defaultConsumerOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Consumer{client: client, options: options}, nil
}

// Client 返回底层客户端。
func (c *Consumer) Client() ConsumerClient {
	return c.client
}

// Subscribe 按名称订阅主题，分区由 Broker 分配。
func (c *Consumer) Subscribe(topics []string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if len(topics) == 0 {
		return ErrEmptyTopics
	}
	if err := c.client.SubscribeTopics(topics, nil); err != nil {
		return fmt.Errorf("xkafka: subscribe %v: %w", topics, err)
	}
	return nil
}

// Assign 手动分配分区。
func (c *Consumer) Assign(partitions []kafka.TopicPartition) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if len(partitions) == 0 {
		return ErrEmptyTopics
	}
	if err := c.client.Assign(partitions); err != nil {
		return fmt.Errorf("xkafka: assign %d partitions: %w", len(partitions), err)
	}
	return nil
}

// Fetch 执行一次 Poll。
//
// ctx 已取消时直接返回 ctx.Err()，不触达底层客户端。
// 非致命 kafka.Error 记录日志后返回 FetchNone；致命错误作为 error 返回。
func (c *Consumer) Fetch(ctx context.Context) (Fetch, error) {
	if c.closed.Load() {
		return Fetch{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Fetch{}, err
	}

	ev := c.client.Poll(int(c.options.PollTimeout.Milliseconds()))
	switch e := ev.(type) {
	case nil:
		return Fetch{Kind: FetchNone}, nil

	case *kafka.Message:
		if e.TopicPartition.Error != nil {
			c.errors.Add(1)
			c.options.Logger.Warn(ctx, "kafka message carries partition error",
				xlog.Topic(topicOf(e)),
				xlog.Partition(e.TopicPartition.Partition),
				xlog.Err(e.TopicPartition.Error),
			)
			return Fetch{Kind: FetchNone}, nil
		}
		c.messages.Add(1)
		return Fetch{Kind: FetchMessage, Message: e}, nil

	case kafka.PartitionEOF:
		c.eofs.Add(1)
		return Fetch{Kind: FetchEndOfPartition, Partition: kafka.TopicPartition(e)}, nil

	case kafka.Error:
		c.errors.Add(1)
		if e.IsFatal() {
			return Fetch{}, fmt.Errorf("xkafka: fatal consumer error: %w", e)
		}
		c.options.Logger.Warn(ctx, "kafka consumer error",
			xlog.Err(e), slog.String("code", e.Code().String()))
		return Fetch{Kind: FetchNone}, nil

	default:
		c.options.Logger.Debug(ctx, "kafka consumer event ignored", slog.String("event", e.String()))
		return Fetch{Kind: FetchNone}, nil
	}
}

// Commit 同步提交 msg 的下一个 offset。
func (c *Consumer) Commit(msg *kafka.Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if _, err := c.client.CommitMessage(msg); err != nil {
		return fmt.Errorf("xkafka: commit %s[%d]@%d: %w",
			topicOf(msg), msg.TopicPartition.Partition, msg.TopicPartition.Offset, err)
	}
	c.commits.Add(1)
	return nil
}

// Seek 将分区的拉取位置重定位到 tp.Offset，下一次 Fetch 从该 offset 开始。
func (c *Consumer) Seek(tp kafka.TopicPartition) error {
	if c.closed.Load() {
		return ErrClosed
	}
	// confluent-kafka-go v2 忽略 Seek 的超时参数
	if err := c.client.Seek(tp, 0); err != nil {
		return fmt.Errorf("xkafka: seek %s[%d]@%d: %w",
			stringOr(tp.Topic), tp.Partition, tp.Offset, err)
	}
	c.seeks.Add(1)
	return nil
}

// Stats 返回消费者统计信息。
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		MessagesConsumed: c.messages.Load(),
		EndOfPartition:   c.eofs.Load(),
		Commits:          c.commits.Load(),
		Seeks:            c.seeks.Load(),
		Errors:           c.errors.Load(),
	}
}

// Close 取消订阅并关闭底层客户端。
// 重复调用 Close 直接返回 nil，不会再次触达底层客户端。
func (c *Consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	var unsubErr error
	if err := c.client.Unsubscribe(); err != nil {
		unsubErr = fmt.Errorf("xkafka: unsubscribe: %w", err)
	}
	return errors.Join(unsubErr, c.client.Close())
}

func stringOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
