package mqcore

import (
	"context"
	"fmt"
)

// ConsumeFunc 一次消费步骤（拉取 + 处理）。
// 返回 error 时触发退避重试，返回 nil 时重置退避。
type ConsumeFunc func(ctx context.Context) error

// ConsumeLoopOptions 消费循环配置选项。
type ConsumeLoopOptions struct {
	// Backoff 退避策略，默认 DefaultBackoff()。
	Backoff BackoffPolicy

	// OnError 每次步骤失败时回调（取消引起的失败除外），attempt 为连续失败次数。
	OnError func(err error, attempt int)

	// MaxAttempts 连续失败次数上限，<= 0 表示不限。
	MaxAttempts int

	// Delayer 退避等待原语，默认 SystemDelayer。
	Delayer Delayer
}

// ConsumeLoopOption 配置函数类型。
type ConsumeLoopOption func(*ConsumeLoopOptions)

// WithBackoff 设置退避策略，nil 时忽略。
func WithBackoff(backoff BackoffPolicy) ConsumeLoopOption {
	return func(o *ConsumeLoopOptions) {
		if backoff != nil {
			o.Backoff = backoff
		}
	}
}

// WithOnError 设置错误回调。
func WithOnError(onError func(err error, attempt int)) ConsumeLoopOption {
	return func(o *ConsumeLoopOptions) {
		o.OnError = onError
	}
}

// WithMaxAttempts 设置连续失败次数上限。
func WithMaxAttempts(n int) ConsumeLoopOption {
	return func(o *ConsumeLoopOptions) {
		o.MaxAttempts = n
	}
}

// WithDelayer 设置退避等待原语，nil 时忽略。
func WithDelayer(d Delayer) ConsumeLoopOption {
	return func(o *ConsumeLoopOptions) {
		if d != nil {
			o.Delayer = d
		}
	}
}

// RunConsumeLoop 运行消费循环，使用退避策略处理错误。
//
// 循环逻辑：
//  1. 调用 consume 执行一次消费步骤
//  2. 成功时重置连续失败计数
//  3. 失败时计数加一；达到 MaxAttempts 则返回包装了最后一次错误的 ErrBackoffExhausted，
//     否则按退避策略等待后继续
//  4. ctx 取消时返回 ctx.Err()；取消后的失败不计入尝试次数，也不回调 OnError
func RunConsumeLoop(ctx context.Context, consume ConsumeFunc, opts ...ConsumeLoopOption) error {
	options := &ConsumeLoopOptions{
		Backoff: DefaultBackoff(),
		Delayer: SystemDelayer{},
	}
	for _, opt := range opts {
		opt(options)
	}

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := consume(ctx)
		if err == nil {
			attempt = 0
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		if options.OnError != nil {
			options.OnError(err, attempt)
		}
		if options.MaxAttempts > 0 && attempt >= options.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrBackoffExhausted, attempt, err)
		}

		if derr := options.Delayer.Delay(ctx, options.Backoff.NextDelay(attempt)); derr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return derr
		}
	}
}
