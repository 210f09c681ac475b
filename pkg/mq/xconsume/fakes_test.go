package xconsume

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xbus/internal/mqcore"
	"github.com/omeyang/xbus/pkg/mq/xkafka"
)

// fakeClock 固定时钟。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// recordingDelayer 记录每次等待的时长，不真正等待。
type recordingDelayer struct {
	mu    sync.Mutex
	calls []time.Duration
	hook  func(d time.Duration)
}

func (d *recordingDelayer) Delay(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	d.calls = append(d.calls, dur)
	hook := d.hook
	d.mu.Unlock()
	if hook != nil {
		hook(dur)
	}
	return ctx.Err()
}

func (d *recordingDelayer) Calls() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

// fakeConsumerClient 按脚本返回事件；脚本耗尽时调用 onDrained 一次。
type fakeConsumerClient struct {
	mu           sync.Mutex
	script       []kafka.Event
	onDrained    func()
	subscribed   [][]string
	assigned     []kafka.TopicPartition
	commits      []*kafka.Message
	seeks        []kafka.TopicPartition
	unsubscribed int
	closed       int
}

func newFakeConsumerClient(onDrained func(), script ...kafka.Event) *fakeConsumerClient {
	return &fakeConsumerClient{script: script, onDrained: onDrained}
}

func (f *fakeConsumerClient) SubscribeTopics(topics []string, _ kafka.RebalanceCb) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, topics)
	return nil
}

func (f *fakeConsumerClient) Assign(partitions []kafka.TopicPartition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned = append(f.assigned, partitions...)
	return nil
}

func (f *fakeConsumerClient) Poll(int) kafka.Event {
	f.mu.Lock()
	if len(f.script) == 0 {
		drained := f.onDrained
		f.onDrained = nil
		f.mu.Unlock()
		if drained != nil {
			drained()
		}
		return nil
	}
	ev := f.script[0]
	f.script = f.script[1:]
	f.mu.Unlock()
	return ev
}

func (f *fakeConsumerClient) CommitMessage(msg *kafka.Message) ([]kafka.TopicPartition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, msg)
	return nil, nil
}

func (f *fakeConsumerClient) Seek(tp kafka.TopicPartition, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, tp)
	return nil
}

func (f *fakeConsumerClient) Unsubscribe() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed++
	return nil
}

func (f *fakeConsumerClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeConsumerClient) Commits() []*kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.commits)
}

// fakeProducerClient 立即回执；failures 中的 topic 回执携带对应错误。
type fakeProducerClient struct {
	mu       sync.Mutex
	events   chan kafka.Event
	failures map[string]error
	produced []*kafka.Message
	closed   int
}

func newFakeProducerClient() *fakeProducerClient {
	return &fakeProducerClient{
		events:   make(chan kafka.Event, 64),
		failures: make(map[string]error),
	}
}

func (f *fakeProducerClient) fail(topic string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[topic] = err
}

func (f *fakeProducerClient) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	f.mu.Lock()
	cp := *msg
	cp.Headers = slices.Clone(msg.Headers)
	f.produced = append(f.produced, &cp)
	report := cp
	report.TopicPartition.Partition = 0
	report.TopicPartition.Offset = kafka.Offset(len(f.produced))
	report.TopicPartition.Error = f.failures[*msg.TopicPartition.Topic]
	f.mu.Unlock()

	if deliveryChan == nil {
		deliveryChan = f.events
	}
	deliveryChan <- &report
	return nil
}

func (f *fakeProducerClient) Events() chan kafka.Event { return f.events }
func (f *fakeProducerClient) Flush(int) int { return 0 }
func (f *fakeProducerClient) Len() int { return 0 }
func (f *fakeProducerClient) InitTransactions(context.Context) error { return nil }
func (f *fakeProducerClient) BeginTransaction() error { return nil }
func (f *fakeProducerClient) CommitTransaction(context.Context) error { return nil }
func (f *fakeProducerClient) AbortTransaction(context.Context) error { return nil }

func (f *fakeProducerClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

// To 返回发往 topic 的消息。
func (f *fakeProducerClient) To(topic string) []*kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*kafka.Message
	for _, m := range f.produced {
		if *m.TopicPartition.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

var (
	_ xkafka.ConsumerClient = (*fakeConsumerClient)(nil)
	_ xkafka.ProducerClient = (*fakeProducerClient)(nil)
)

// harness 组装一个使用假客户端的引擎。
type harness struct {
	ctx       context.Context
	cancel    context.CancelFunc
	consumer  *fakeConsumerClient
	producer  *fakeProducerClient
	clock     *fakeClock
	delayer   *recordingDelayer
	engine    *Engine
	producers atomic.Int32
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, cfg Config, role Role, handler Handler, script ...kafka.Event) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		ctx:      ctx,
		cancel:   cancel,
		producer: newFakeProducerClient(),
		clock:    newFakeClock(testNow),
		delayer:  &recordingDelayer{},
	}
	h.consumer = newFakeConsumerClient(cancel, script...)

	e, err := NewEngine(cfg, role, handler,
		func() (*xkafka.Consumer, error) { return xkafka.NewConsumerFromClient(h.consumer) },
		func() (*xkafka.Producer, error) {
			h.producers.Add(1)
			return xkafka.NewProducerFromClient(h.producer)
		},
		WithClock(h.clock),
		WithDelayer(h.delayer),
		WithBackoff(mqcore.NewFixedBackoff(time.Millisecond)),
	)
	require.NoError(t, err)
	h.engine = e
	t.Cleanup(func() {
		cancel()
		_ = e.Close()
	})
	return h
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Topics = []TopicSpec{{Name: "orders"}}
	cfg.RetryTopic = "orders.retry"
	cfg.DeadLetterTopic = "orders.dlq"
	cfg.RetryLimit = 3
	cfg.RetryDelay = 30 * time.Second
	return cfg
}

func message(topic string, partition int32, offset kafka.Offset, key string) *kafka.Message {
	t := topic
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &t, Partition: partition, Offset: offset},
		Key:            []byte(key),
		Value:          []byte("payload-" + key),
	}
}

func eof(topic string, partition int32, offset kafka.Offset) kafka.PartitionEOF {
	t := topic
	return kafka.PartitionEOF{Topic: &t, Partition: partition, Offset: offset}
}
