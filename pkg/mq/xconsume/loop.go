package xconsume

import (
	"context"
	"errors"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xbus/internal/mqcore"
	"github.com/omeyang/xbus/pkg/mq/xheader"
	"github.com/omeyang/xbus/pkg/mq/xkafka"
	"github.com/omeyang/xbus/pkg/observability/xlog"
)

// RunPrimary 订阅主 Topic 并运行消费循环，直到 ctx 取消或连续失败达到上限。
//
// 指定了分区的 Topic 手动分配，其余按名称订阅，两者各在启动时调用一次。
// ctx 取消时返回 nil；返回前等待全部在途处理结束。
func (e *Engine) RunPrimary(ctx context.Context) error {
	consumer, err := e.getConsumer()
	if err != nil {
		return err
	}
	if err := e.subscribePrimary(ctx, consumer); err != nil {
		return err
	}
	return e.run(ctx, func(ctx context.Context) error {
		f, err := consumer.Fetch(ctx)
		if err != nil {
			return err
		}
		return e.handle(ctx, f)
	})
}

// RunRetry 订阅重试 Topic 并运行消费循环。
//
// not-before 未到期的消息不提交也不交给 Handler：等待 RetryPollDelay 后
// Seek 回该消息自身的位置，下次拉取重新得到它。
func (e *Engine) RunRetry(ctx context.Context) error {
	consumer, err := e.getConsumer()
	if err != nil {
		return err
	}
	if err := consumer.Subscribe([]string{e.cfg.RetryTopic}); err != nil {
		return err
	}
	e.logger.Info(ctx, "subscribed", xlog.Topic(e.cfg.RetryTopic))
	return e.run(ctx, func(ctx context.Context) error {
		f, err := consumer.Fetch(ctx)
		if err != nil {
			return err
		}
		if f.Kind == xkafka.FetchMessage {
			if due := xheader.RetryNotBefore(f.Message); e.options.clock.Now().Before(due) {
				return e.postpone(ctx, f.Message, due)
			}
		}
		return e.handle(ctx, f)
	})
}

func (e *Engine) subscribePrimary(ctx context.Context, consumer *xkafka.Consumer) error {
	var (
		assigned []kafka.TopicPartition
		named    []string
	)
	for _, t := range e.cfg.Topics {
		if len(t.Partitions) == 0 {
			named = append(named, t.Name)
			continue
		}
		name := t.Name
		for _, p := range t.Partitions {
			assigned = append(assigned, kafka.TopicPartition{
				Topic:     &name,
				Partition: p,
				Offset:    kafka.OffsetStored,
			})
		}
	}
	if len(assigned) > 0 {
		if err := consumer.Assign(assigned); err != nil {
			return err
		}
		e.logger.Info(ctx, "partitions assigned", xlog.Count(len(assigned)))
	}
	if len(named) > 0 {
		if err := consumer.Subscribe(named); err != nil {
			return err
		}
		for _, name := range named {
			e.logger.Info(ctx, "subscribed", xlog.Topic(name))
		}
	}
	return nil
}

// postpone 推迟未到期的重试消息。
func (e *Engine) postpone(ctx context.Context, msg *kafka.Message, due time.Time) error {
	e.deferred.Add(1)
	e.logger.Debug(ctx, "retry not yet due",
		xlog.Partition(msg.TopicPartition.Partition), xlog.Offset(int64(msg.TopicPartition.Offset)),
		xlog.Duration(due.Sub(e.options.clock.Now())))
	if err := e.options.delayer.Delay(ctx, e.cfg.RetryPollDelay); err != nil {
		return err
	}
	e.seek(ctx, msg.TopicPartition)
	return nil
}

// run 在退避包络中反复执行 step。
func (e *Engine) run(ctx context.Context, step mqcore.ConsumeFunc) error {
	defer e.registry.drain()

	err := mqcore.RunConsumeLoop(ctx, step,
		mqcore.WithBackoff(e.options.backoff),
		mqcore.WithMaxAttempts(e.cfg.MaxLoopAttempts),
		mqcore.WithDelayer(e.options.delayer),
		mqcore.WithOnError(func(err error, attempt int) {
			e.logger.Error(ctx, "consume step failed", xlog.Attempt(attempt), xlog.Err(err))
		}),
	)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		e.logger.Info(ctx, "consume loop stopped")
		return nil
	}
	e.logger.Error(ctx, "consume loop terminated", xlog.Err(err))
	return err
}
