package xconsume

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/avast/retry-go/v5"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xbus/pkg/mq/xheader"
	"github.com/omeyang/xbus/pkg/observability/xlog"
)

const reasonDeadLetterRequested = "dead letter requested by handler"

// decide 根据 Handler 的意图与返回值执行后续动作。
//
//   - 请求死信：发往死信后提交，与是否返回错误无关
//   - 返回错误或请求重试：进入转交重试流程
//   - 其他：直接提交
func (e *Engine) decide(ctx context.Context, result *Result, err error) {
	switch {
	case result.Outcome() == OutcomeDeadLetter:
		reason := reasonDeadLetterRequested
		if err != nil {
			reason = err.Error()
		}
		e.deadLetterAndCommit(ctx, result.Message(), reason)
	case err != nil:
		e.retry(ctx, result, err.Error())
	case result.Outcome() == OutcomeRetry:
		e.retry(ctx, result, "retry requested by handler")
	default:
		e.commit(ctx, result.Message())
	}
}

// retry 将消息转交重试 Topic。未配置重试 Topic 时记录错误后直接提交。
//
// 从当前重试次数开始，每次尝试次数 +1 并写入新的 not-before，最多尝试
// RetryLimit - 当前次数 次。成功则提交；预算耗尽则转死信并提交；
// ctx 取消时直接返回，不提交。
func (e *Engine) retry(ctx context.Context, result *Result, reason string) {
	msg := result.Message()
	if e.cfg.RetryTopic == "" {
		// 未配置重试 Topic 时不转交任何 Topic，只记录并提交，避免阻塞分区
		e.logger.Error(ctx, "no retry topic configured, committing failed message",
			xlog.Topic(result.Topic()), xlog.Partition(result.Partition()),
			xlog.Offset(result.Offset()), xlog.Key(result.Key()), slogReason(reason))
		e.commit(ctx, msg)
		return
	}

	count := result.RetryCount()
	remaining := result.RetryLimit() - count
	if remaining <= 0 {
		e.deadLetterAndCommit(ctx, msg,
			fmt.Sprintf("retry limit %d exceeded: %s", result.RetryLimit(), reason))
		return
	}

	next := count
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(uint(remaining)), //nolint:gosec // remaining > 0
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, err error) {
			e.retryFailures.Add(1)
			e.logger.Warn(ctx, "retry topic publish failed",
				xlog.Topic(e.cfg.RetryTopic), xlog.Key(msg.Key), xlog.Attempt(next), xlog.Err(err))
		}),
	).Do(func() error {
		next++
		return e.handOff(ctx, msg, next)
	})
	if err == nil {
		e.commit(ctx, msg)
		return
	}
	if ctx.Err() != nil {
		e.logger.Info(ctx, "retry hand-off interrupted, offset not committed",
			xlog.Topic(result.Topic()), xlog.Offset(result.Offset()), xlog.Key(result.Key()))
		return
	}
	e.deadLetterAndCommit(ctx, msg,
		fmt.Sprintf("retry publish failed after %d attempts: %v", remaining, err))
}

// handOff 以重试次数 count 发送一份副本到重试 Topic。
func (e *Engine) handOff(ctx context.Context, msg *kafka.Message, count int) error {
	out := copyMessage(msg)
	stampOrigin(out, msg)
	xheader.SetRetryCount(out, count)
	xheader.SetRetryNotBefore(out, e.options.clock.Now().Add(e.cfg.RetryDelay))

	if err := e.send(ctx, e.cfg.RetryTopic, out); err != nil {
		return err
	}
	e.retried.Add(1)
	e.logger.Info(ctx, "message handed to retry topic",
		xlog.Topic(e.cfg.RetryTopic), xlog.Key(msg.Key), xlog.Attempt(count))
	return nil
}

// deadLetterAndCommit 发往死信后提交。
// 死信发送失败仍然提交，只有 ctx 取消导致的失败不提交。
func (e *Engine) deadLetterAndCommit(ctx context.Context, msg *kafka.Message, reason string) {
	if err := e.deadLetter(ctx, msg, reason); err != nil && ctx.Err() != nil {
		e.logger.Info(ctx, "dead letter publish interrupted, offset not committed",
			xlog.Key(msg.Key), xlog.Offset(int64(msg.TopicPartition.Offset)))
		return
	}
	e.commit(ctx, msg)
}

func (e *Engine) deadLetter(ctx context.Context, msg *kafka.Message, reason string) error {
	if e.cfg.DeadLetterTopic == "" {
		e.logger.Error(ctx, "no dead letter topic configured, dropping message",
			xlog.Topic(stringOf(msg.TopicPartition.Topic)), xlog.Offset(int64(msg.TopicPartition.Offset)),
			xlog.Key(msg.Key), slogReason(reason))
		return nil
	}

	out := copyMessage(msg)
	stampOrigin(out, msg)
	xheader.NewAccessor(out, xheader.DefaultTable()).SetString(xheader.HeaderFailureReason, reason)

	if err := e.send(ctx, e.cfg.DeadLetterTopic, out); err != nil {
		e.deadLetterFailures.Add(1)
		e.logger.Error(ctx, "dead letter publish failed",
			xlog.Topic(e.cfg.DeadLetterTopic), xlog.Key(msg.Key), slogReason(reason), xlog.Err(err))
		return err
	}
	e.deadLettered.Add(1)
	e.logger.Warn(ctx, "message sent to dead letter topic",
		xlog.Topic(e.cfg.DeadLetterTopic), xlog.Key(msg.Key),
		xlog.Attempt(xheader.RetryCount(msg)), slogReason(reason))
	return nil
}

// copyMessage 复制待转发的消息，目标 Topic 由生产者设置。
func copyMessage(msg *kafka.Message) *kafka.Message {
	return &kafka.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: slices.Clone(msg.Headers),
	}
}

// stampOrigin 记录消息最初的位置。已有记录时保留，保证重试 Topic 来的消息仍指向主 Topic。
func stampOrigin(out, src *kafka.Message) {
	a := xheader.NewAccessor(out, xheader.DefaultTable())
	if a.Has(xheader.HeaderOriginalTopic) {
		return
	}
	a.SetString(xheader.HeaderOriginalTopic, stringOf(src.TopicPartition.Topic))
	a.SetString(xheader.HeaderOriginalPartition, strconv.Itoa(int(src.TopicPartition.Partition)))
	a.SetString(xheader.HeaderOriginalOffset, strconv.FormatInt(int64(src.TopicPartition.Offset), 10))
}
