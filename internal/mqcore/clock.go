package mqcore

import (
	"context"
	"time"
)

// Clock 时钟原语，测试中替换为固定时间。
type Clock interface {
	Now() time.Time
}

// Delayer 可取消的等待原语。
// ctx 取消时立即返回 ctx.Err()；d <= 0 时立即返回 nil。
type Delayer interface {
	Delay(ctx context.Context, d time.Duration) error
}

// SystemClock 使用 time.Now。
type SystemClock struct{}

// Now 返回当前时间。
func (SystemClock) Now() time.Time { return time.Now() }

// SystemDelayer 基于 time.Timer 的等待实现。
type SystemDelayer struct{}

// Delay 等待 d 或 ctx 取消。
func (SystemDelayer) Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var (
	_ Clock   = SystemClock{}
	_ Delayer = SystemDelayer{}
)

// OrSystemClock 在 c 为 nil 时返回 SystemClock。
func OrSystemClock(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}

// OrSystemDelayer 在 d 为 nil 时返回 SystemDelayer。
func OrSystemDelayer(d Delayer) Delayer {
	if d == nil {
		return SystemDelayer{}
	}
	return d
}
