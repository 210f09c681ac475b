package xconsume

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xbus/pkg/mq/xheader"
)

var errBoom = errors.New("boom")

func TestEngine_SuccessCommits(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, testConfig(), RolePrimary, func(_ context.Context, r *Result) error {
		calls.Add(1)
		assert.Equal(t, "orders", r.Topic())
		assert.Equal(t, []byte("k1"), r.Key())
		return nil
	}, message("orders", 0, 10, "k1"))

	require.NoError(t, h.engine.RunPrimary(h.ctx))

	assert.Equal(t, int32(1), calls.Load())
	commits := h.consumer.Commits()
	require.Len(t, commits, 1)
	assert.Equal(t, kafka.Offset(10), commits[0].TopicPartition.Offset)
	assert.Zero(t, h.producers.Load(), "producer is created lazily")

	stats := h.engine.Stats()
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(1), stats.Committed)
	assert.Zero(t, stats.InFlight)
}

func TestEngine_AutoCommitSkipsExplicitCommit(t *testing.T) {
	cfg := testConfig()
	cfg.AutoCommit = true
	h := newHarness(t, cfg, RolePrimary, func(context.Context, *Result) error { return nil },
		message("orders", 0, 1, "a"))

	require.NoError(t, h.engine.RunPrimary(h.ctx))
	assert.Empty(t, h.consumer.Commits())
}

func TestEngine_RetryHandOffStampsHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.RetryDelay = 5 * time.Second
	in := message("orders", 2, 40, "k")
	xheader.SetRetryCount(in, 1)

	h := newHarness(t, cfg, RolePrimary, func(context.Context, *Result) error { return errBoom }, in)
	require.NoError(t, h.engine.RunPrimary(h.ctx))

	retries := h.producer.To("orders.retry")
	require.Len(t, retries, 1)
	out := retries[0]
	assert.Equal(t, 2, xheader.RetryCount(out))
	assert.Equal(t, testNow.Add(5*time.Second).UnixMilli(), xheader.RetryNotBefore(out).UnixMilli())
	assert.Equal(t, in.Value, out.Value)

	a := xheader.NewAccessor(out, xheader.DefaultTable())
	assert.Equal(t, "orders", a.String(xheader.HeaderOriginalTopic))
	assert.Equal(t, "2", a.String(xheader.HeaderOriginalPartition))
	assert.Equal(t, "40", a.String(xheader.HeaderOriginalOffset))

	// 原消息不被修改
	assert.Equal(t, 1, xheader.RetryCount(in))
	assert.Empty(t, h.producer.To("orders.dlq"))
	require.Len(t, h.consumer.Commits(), 1)
	assert.Equal(t, int64(1), h.engine.Stats().Retried)
}

func TestEngine_RetryRequestedWithoutError(t *testing.T) {
	h := newHarness(t, testConfig(), RolePrimary, func(_ context.Context, r *Result) error {
		r.Retry()
		return nil
	}, message("orders", 0, 1, "a"))

	require.NoError(t, h.engine.RunPrimary(h.ctx))
	retries := h.producer.To("orders.retry")
	require.Len(t, retries, 1)
	assert.Equal(t, 1, xheader.RetryCount(retries[0]))
	assert.Len(t, h.consumer.Commits(), 1)
}

func TestEngine_RetryPublishExhaustedFallsBackToDeadLetter(t *testing.T) {
	cfg := testConfig()
	cfg.RetryLimit = 2

	var calls atomic.Int32
	h := newHarness(t, cfg, RolePrimary, func(_ context.Context, r *Result) error {
		calls.Add(1)
		r.Retry()
		return nil
	}, message("orders", 0, 7, "k"))
	h.producer.fail("orders.retry", kafka.NewError(kafka.ErrMsgTimedOut, "timed out", false))

	require.NoError(t, h.engine.RunPrimary(h.ctx))

	assert.Equal(t, int32(1), calls.Load())
	retries := h.producer.To("orders.retry")
	require.Len(t, retries, 2)
	assert.Equal(t, 1, xheader.RetryCount(retries[0]))
	assert.Equal(t, 2, xheader.RetryCount(retries[1]))

	dlq := h.producer.To("orders.dlq")
	require.Len(t, dlq, 1)
	reason := xheader.NewAccessor(dlq[0], xheader.DefaultTable()).String(xheader.HeaderFailureReason)
	assert.Contains(t, reason, "retry publish failed")

	require.Len(t, h.consumer.Commits(), 1)
	stats := h.engine.Stats()
	assert.Equal(t, int64(1), stats.DeadLettered)
	assert.Zero(t, stats.Retried)
}

func TestEngine_RetryLimitReachedRoutesToDeadLetter(t *testing.T) {
	cfg := testConfig()
	cfg.RetryLimit = 2
	in := message("orders.retry", 0, 3, "k")
	xheader.SetRetryCount(in, 2)

	h := newHarness(t, cfg, RolePrimary, func(_ context.Context, r *Result) error {
		assert.True(t, r.RetryLimitExceeded())
		return errBoom
	}, in)

	require.NoError(t, h.engine.RunPrimary(h.ctx))

	assert.Empty(t, h.producer.To("orders.retry"))
	require.Len(t, h.producer.To("orders.dlq"), 1)
	assert.Len(t, h.consumer.Commits(), 1)
}

func TestEngine_DeadLetterWinsOverErrorAndRetry(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
		reason  string
	}{
		{
			name: "dead letter then error",
			handler: func(_ context.Context, r *Result) error {
				r.DeadLetter()
				return errBoom
			},
			reason: "boom",
		},
		{
			name: "dead letter then retry",
			handler: func(_ context.Context, r *Result) error {
				r.DeadLetter()
				r.Retry()
				return nil
			},
			reason: reasonDeadLetterRequested,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig(), RolePrimary, tt.handler, message("orders", 1, 9, "k"))
			require.NoError(t, h.engine.RunPrimary(h.ctx))

			dlq := h.producer.To("orders.dlq")
			require.Len(t, dlq, 1)
			a := xheader.NewAccessor(dlq[0], xheader.DefaultTable())
			assert.Equal(t, tt.reason, a.String(xheader.HeaderFailureReason))
			assert.Equal(t, "orders", a.String(xheader.HeaderOriginalTopic))
			assert.Empty(t, h.producer.To("orders.retry"))
			assert.Len(t, h.consumer.Commits(), 1)
		})
	}
}

func TestEngine_DeadLetterKeepsOriginalPosition(t *testing.T) {
	// 来自重试 Topic 的消息转死信时，原始位置仍指向主 Topic
	in := message("orders.retry", 0, 100, "k")
	a := xheader.NewAccessor(in, xheader.DefaultTable())
	a.SetString(xheader.HeaderOriginalTopic, "orders")
	a.SetString(xheader.HeaderOriginalOffset, "5")

	h := newHarness(t, testConfig(), RolePrimary, func(_ context.Context, r *Result) error {
		r.DeadLetter()
		return nil
	}, in)
	require.NoError(t, h.engine.RunPrimary(h.ctx))

	dlq := h.producer.To("orders.dlq")
	require.Len(t, dlq, 1)
	out := xheader.NewAccessor(dlq[0], xheader.DefaultTable())
	assert.Equal(t, "orders", out.String(xheader.HeaderOriginalTopic))
	assert.Equal(t, "5", out.String(xheader.HeaderOriginalOffset))
}

func TestEngine_DeadLetterFailureStillCommits(t *testing.T) {
	h := newHarness(t, testConfig(), RolePrimary, func(_ context.Context, r *Result) error {
		r.DeadLetter()
		return nil
	}, message("orders", 0, 1, "k"))
	h.producer.fail("orders.dlq", kafka.NewError(kafka.ErrUnknownTopicOrPart, "no such topic", false))

	require.NoError(t, h.engine.RunPrimary(h.ctx))

	assert.Len(t, h.producer.To("orders.dlq"), 1)
	assert.Len(t, h.consumer.Commits(), 1)
	assert.Equal(t, int64(1), h.engine.Stats().DeadLetterFailures)
}

func TestEngine_NoRetryTopic(t *testing.T) {
	t.Run("dead letter configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.RetryTopic = ""
		h := newHarness(t, cfg, RolePrimary, func(context.Context, *Result) error { return errBoom },
			message("orders", 0, 1, "k"))
		require.NoError(t, h.engine.RunPrimary(h.ctx))
		assert.Zero(t, h.producers.Load(), "failed message is not forwarded anywhere")
		assert.Len(t, h.consumer.Commits(), 1)
		assert.Zero(t, h.engine.Stats().DeadLettered)
	})

	t.Run("retry requested", func(t *testing.T) {
		cfg := testConfig()
		cfg.RetryTopic = ""
		h := newHarness(t, cfg, RolePrimary, func(_ context.Context, r *Result) error {
			r.Retry()
			return nil
		}, message("orders", 0, 1, "k"))
		require.NoError(t, h.engine.RunPrimary(h.ctx))
		assert.Zero(t, h.producers.Load())
		assert.Len(t, h.consumer.Commits(), 1)
	})

	t.Run("dead letter requested still publishes", func(t *testing.T) {
		cfg := testConfig()
		cfg.RetryTopic = ""
		h := newHarness(t, cfg, RolePrimary, func(_ context.Context, r *Result) error {
			r.DeadLetter()
			return nil
		}, message("orders", 0, 1, "k"))
		require.NoError(t, h.engine.RunPrimary(h.ctx))
		assert.Len(t, h.producer.To("orders.dlq"), 1)
		assert.Len(t, h.consumer.Commits(), 1)
	})

	t.Run("nothing configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.RetryTopic = ""
		cfg.DeadLetterTopic = ""
		h := newHarness(t, cfg, RolePrimary, func(context.Context, *Result) error { return errBoom },
			message("orders", 0, 1, "k"))
		require.NoError(t, h.engine.RunPrimary(h.ctx))
		assert.Zero(t, h.producers.Load())
		assert.Len(t, h.consumer.Commits(), 1, "failed message must not block the partition")
	})
}

func TestEngine_HandlerPanicIsRetried(t *testing.T) {
	h := newHarness(t, testConfig(), RolePrimary, func(context.Context, *Result) error {
		panic("handler bug")
	}, message("orders", 0, 1, "k"))

	require.NoError(t, h.engine.RunPrimary(h.ctx))
	assert.Len(t, h.producer.To("orders.retry"), 1)
	assert.Len(t, h.consumer.Commits(), 1)
	assert.Equal(t, int64(1), h.engine.Stats().HandlerErrors)
}

func TestEngine_EndOfPartitionDelay(t *testing.T) {
	t.Run("zero delay never waits", func(t *testing.T) {
		h := newHarness(t, testConfig(), RolePrimary, func(context.Context, *Result) error { return nil },
			message("orders", 0, 1, "a"), eof("orders", 0, 2))
		require.NoError(t, h.engine.RunPrimary(h.ctx))
		assert.Empty(t, h.delayer.Calls())
	})

	t.Run("positive delay after drain", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxConcurrentMessages = 4
		cfg.EndOfPartitionDelay = 250 * time.Millisecond

		var finished atomic.Int32
		h := newHarness(t, cfg, RolePrimary, func(context.Context, *Result) error {
			time.Sleep(10 * time.Millisecond)
			finished.Add(1)
			return nil
		}, message("orders", 0, 1, "a"), message("orders", 1, 1, "b"), eof("orders", 0, 2))

		var inFlightAtDelay, finishedAtDelay atomic.Int32
		h.delayer.hook = func(time.Duration) {
			inFlightAtDelay.Store(int32(h.engine.registry.len()))
			finishedAtDelay.Store(finished.Load())
		}

		require.NoError(t, h.engine.RunPrimary(h.ctx))
		assert.Equal(t, []time.Duration{250 * time.Millisecond}, h.delayer.Calls())
		assert.Zero(t, inFlightAtDelay.Load())
		assert.Equal(t, int32(2), finishedAtDelay.Load())
	})
}

func TestEngine_ConcurrencyCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentMessages = 2

	var (
		e       *Engine
		maxSeen atomic.Int32
	)
	handler := func(context.Context, *Result) error {
		n := int32(e.registry.len())
		for {
			cur := maxSeen.Load()
			if n <= cur || maxSeen.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return nil
	}
	var script []kafka.Event
	for p := range int32(6) {
		script = append(script, message("orders", p, 1, "k"))
	}
	h := newHarness(t, cfg, RolePrimary, handler, script...)
	e = h.engine

	require.NoError(t, h.engine.RunPrimary(h.ctx))
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
	assert.Len(t, h.consumer.Commits(), 6)
	assert.Zero(t, h.engine.registry.len())
}

func TestEngine_SamePartitionNeverOverlaps(t *testing.T) {
	for _, limit := range []int{1, 4} {
		cfg := testConfig()
		cfg.MaxConcurrentMessages = limit

		var (
			mu     sync.Mutex
			order  []int64
			active atomic.Int32
		)
		handler := func(_ context.Context, r *Result) error {
			assert.Equal(t, int32(1), active.Add(1))
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, r.Offset())
			mu.Unlock()
			active.Add(-1)
			return nil
		}
		h := newHarness(t, cfg, RolePrimary, handler,
			message("orders", 0, 1, "a"), message("orders", 0, 2, "b"), message("orders", 0, 3, "c"))

		require.NoError(t, h.engine.RunPrimary(h.ctx))
		assert.Equal(t, []int64{1, 2, 3}, order, "limit %d", limit)

		var committed []kafka.Offset
		for _, m := range h.consumer.Commits() {
			committed = append(committed, m.TopicPartition.Offset)
		}
		assert.Equal(t, []kafka.Offset{1, 2, 3}, committed, "limit %d", limit)
	}
}

func TestEngine_SubscribesAndAssigns(t *testing.T) {
	cfg := testConfig()
	cfg.Topics = []TopicSpec{
		{Name: "orders"},
		{Name: "payments", Partitions: []int32{0, 2}},
		{Name: "refunds"},
	}
	h := newHarness(t, cfg, RolePrimary, func(context.Context, *Result) error { return nil })

	require.NoError(t, h.engine.RunPrimary(h.ctx))

	assert.Equal(t, [][]string{{"orders", "refunds"}}, h.consumer.subscribed)
	require.Len(t, h.consumer.assigned, 2)
	for i, p := range []int32{0, 2} {
		assert.Equal(t, "payments", *h.consumer.assigned[i].Topic)
		assert.Equal(t, p, h.consumer.assigned[i].Partition)
	}
}

func TestEngine_BackoffExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLoopAttempts = 3
	fatal := kafka.NewError(kafka.ErrFatal, "fenced", true)
	h := newHarness(t, cfg, RolePrimary, func(context.Context, *Result) error { return nil },
		fatal, fatal, fatal)

	err := h.engine.RunPrimary(h.ctx)
	require.ErrorIs(t, err, ErrBackoffExhausted)
	var kerr kafka.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, h.delayer.Calls())
}

func TestEngine_BackoffResetsOnSuccess(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLoopAttempts = 2
	fatal := kafka.NewError(kafka.ErrFatal, "fenced", true)
	h := newHarness(t, cfg, RolePrimary, func(context.Context, *Result) error { return nil },
		fatal, message("orders", 0, 1, "a"), fatal, nil)

	require.NoError(t, h.engine.RunPrimary(h.ctx))
	assert.Len(t, h.consumer.Commits(), 1)
}

func TestEngine_RetryLoopPostponesNotDue(t *testing.T) {
	cfg := testConfig()
	cfg.RetryPollDelay = 2 * time.Second
	in := message("orders.retry", 3, 17, "k")
	xheader.SetRetryCount(in, 1)
	xheader.SetRetryNotBefore(in, testNow.Add(time.Minute))

	var calls atomic.Int32
	h := newHarness(t, cfg, RoleRetry, func(context.Context, *Result) error {
		calls.Add(1)
		return nil
	}, in)

	require.NoError(t, h.engine.RunRetry(h.ctx))

	assert.Zero(t, calls.Load())
	assert.Empty(t, h.consumer.Commits())
	assert.Zero(t, h.producers.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, h.delayer.Calls())
	require.Len(t, h.consumer.seeks, 1)
	seek := h.consumer.seeks[0]
	assert.Equal(t, "orders.retry", *seek.Topic)
	assert.Equal(t, int32(3), seek.Partition)
	assert.Equal(t, kafka.Offset(17), seek.Offset)
	assert.Equal(t, [][]string{{"orders.retry"}}, h.consumer.subscribed)

	stats := h.engine.Stats()
	assert.Equal(t, int64(1), stats.Deferred)
	assert.Equal(t, int64(1), stats.Seeks)
}

func TestEngine_RetryLoopProcessesDue(t *testing.T) {
	in := message("orders.retry", 0, 5, "k")
	xheader.SetRetryCount(in, 1)
	xheader.SetRetryNotBefore(in, testNow.Add(-time.Second))

	var seen atomic.Int32
	h := newHarness(t, testConfig(), RoleRetry, func(_ context.Context, r *Result) error {
		seen.Store(int32(r.RetryCount()))
		return nil
	}, in)

	require.NoError(t, h.engine.RunRetry(h.ctx))
	assert.Equal(t, int32(1), seen.Load())
	assert.Len(t, h.consumer.Commits(), 1)
	assert.Empty(t, h.consumer.seeks)
}

func TestEngine_CloseOrderAndIdempotence(t *testing.T) {
	h := newHarness(t, testConfig(), RolePrimary, func(context.Context, *Result) error { return errBoom },
		message("orders", 0, 1, "k"))
	require.NoError(t, h.engine.RunPrimary(h.ctx))
	require.Equal(t, int32(1), h.producers.Load())

	require.NoError(t, h.engine.Close())
	assert.Equal(t, 1, h.consumer.unsubscribed)
	assert.Equal(t, 1, h.consumer.closed)
	assert.Equal(t, 1, h.producer.closed)

	require.NoError(t, h.engine.Close(), "second close is a no-op")
	assert.Equal(t, 1, h.consumer.closed)
	assert.Equal(t, 1, h.producer.closed)

	_, err := h.engine.getProducer()
	require.ErrorIs(t, err, ErrClosed)
}

func TestEngine_CloseWaitsForInFlightCommit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentMessages = 2
	entered := make(chan struct{})
	release := make(chan struct{})
	h := newHarness(t, cfg, RolePrimary, func(context.Context, *Result) error {
		close(entered)
		<-release
		return nil
	}, message("orders", 0, 1, "k"))

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = h.engine.RunPrimary(h.ctx)
	}()
	<-entered

	closeDone := make(chan error, 1)
	go func() { closeDone <- h.engine.Close() }()

	select {
	case <-closeDone:
		t.Fatal("Close returned while a message was still being handled")
	case <-time.After(50 * time.Millisecond):
	}
	h.consumer.mu.Lock()
	closed := h.consumer.closed
	h.consumer.mu.Unlock()
	assert.Zero(t, closed)

	close(release)
	require.NoError(t, <-closeDone)
	<-runDone

	assert.Len(t, h.consumer.Commits(), 1, "in-flight message committed before the consumer closed")
	assert.Equal(t, int64(1), h.engine.Stats().Committed)
}

func TestNewEngine_Validation(t *testing.T) {
	handler := func(context.Context, *Result) error { return nil }

	_, err := NewEngine(Config{}, RolePrimary, handler, nil, nil)
	require.ErrorIs(t, err, ErrNoTopics)

	_, err = NewEngine(testConfig(), RolePrimary, nil, nil, nil)
	require.ErrorIs(t, err, ErrNilHandler)

	_, err = NewEngine(testConfig(), RolePrimary, handler, nil, nil)
	require.ErrorIs(t, err, ErrNilFactory)
}
