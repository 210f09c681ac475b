package xrun_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xbus/pkg/lifecycle/xrun"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGroup_ErrorCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	g, _ := xrun.NewGroup(context.Background(), xrun.WithName("test"))

	var cancelled atomic.Bool
	g.GoWithName("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return nil
	})
	g.GoWithName("failer", func(context.Context) error { return boom })

	require.ErrorIs(t, g.Wait(), boom)
	assert.True(t, cancelled.Load())
}

func TestGroup_ParentCancelReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g, _ := xrun.NewGroup(ctx)
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()
	require.NoError(t, g.Wait())
}

func TestGroup_CancelCause(t *testing.T) {
	cause := &xrun.SignalError{Signal: syscall.SIGTERM}
	g, _ := xrun.NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	g.Cancel(cause)

	err := g.Wait()
	require.ErrorIs(t, err, xrun.ErrSignal)
	var sigErr *xrun.SignalError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, syscall.SIGTERM, sigErr.Signal)
	assert.Equal(t, "received signal terminated", err.Error())
}

func TestGroup_NilFunc(t *testing.T) {
	g, _ := xrun.NewGroup(context.Background())
	g.Go(nil)
	require.ErrorIs(t, g.Wait(), xrun.ErrNilFunc)
}

func TestRun_Signal(t *testing.T) {
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- xrun.Run(context.Background(), []xrun.Option{xrun.WithSignals(syscall.SIGUSR1)},
			func(ctx context.Context) error {
				close(started)
				<-ctx.Done()
				return nil
			})
	}()

	<-started
	// 等待信号处理函数完成注册
	time.Sleep(50 * time.Millisecond)
	p, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, p.Signal(syscall.SIGUSR1))

	select {
	case err := <-done:
		require.ErrorIs(t, err, xrun.ErrSignal)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on signal")
	}
}

func TestRun_WithoutSignalHandler(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := xrun.Run(ctx, []xrun.Option{xrun.WithoutSignalHandler()}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	// 超时不是 Canceled，作为普通错误返回
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTicker(t *testing.T) {
	var n atomic.Int32
	stop := errors.New("stop")
	err := xrun.Ticker(time.Millisecond, func(context.Context) error {
		if n.Add(1) == 3 {
			return stop
		}
		return nil
	})(context.Background())
	require.ErrorIs(t, err, stop)
	assert.Equal(t, int32(3), n.Load())

	require.ErrorIs(t, xrun.Ticker(0, func(context.Context) error { return nil })(context.Background()), xrun.ErrInvalidInterval)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, xrun.Ticker(time.Hour, func(context.Context) error { return nil })(ctx))
}
