package xkafka

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

//go:generate mockgen -destination=xkafkamock/client_mock.go -package=xkafkamock . ConsumerClient,ProducerClient

// ConsumerClient 是 *kafka.Consumer 中被本模块使用的方法子集。
// 测试中以假实现替换，生产环境直接使用 *kafka.Consumer。
type ConsumerClient interface {
	SubscribeTopics(topics []string, rebalanceCb kafka.RebalanceCb) error
	Assign(partitions []kafka.TopicPartition) error
	Poll(timeoutMs int) kafka.Event
	CommitMessage(msg *kafka.Message) ([]kafka.TopicPartition, error)
	Seek(partition kafka.TopicPartition, ignoredTimeoutMs int) error
	Unsubscribe() error
	Close() error
}

// ProducerClient 是 *kafka.Producer 中被本模块使用的方法子集。
type ProducerClient interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Len() int
	InitTransactions(ctx context.Context) error
	BeginTransaction() error
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
	Close()
}

var (
	_ ConsumerClient = (*kafka.Consumer)(nil)
	_ ProducerClient = (*kafka.Producer)(nil)
)
