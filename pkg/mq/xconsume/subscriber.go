package xconsume

import (
	"context"
	"errors"

	"github.com/omeyang/xbus/pkg/lifecycle/xrun"
)

// Subscriber 组合主循环与重试循环，对外提供单一的 Consume。
type Subscriber struct {
	primary *Engine
	retry   *Engine
}

// NewSubscriber 创建订阅。
//
// consumers 与 producers 为每个引擎各调用一次：开启重试 Topic 消费时，
// 主循环与重试循环各自独占一个消费者和一个伴随生产者。
func NewSubscriber(cfg Config, handler Handler, consumers ConsumerFactory, producers ProducerFactory, opts ...Option) (*Subscriber, error) {
	primary, err := NewEngine(cfg, RolePrimary, handler, consumers, producers, opts...)
	if err != nil {
		return nil, err
	}
	s := &Subscriber{primary: primary}
	if cfg.RetryTopicConsumption {
		s.retry, err = NewEngine(cfg, RoleRetry, handler, consumers, producers, opts...)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Consume 运行消费直到 ctx 取消或某个循环连续失败达到上限，返回前释放全部资源。
//
// ctx 取消时返回 nil；循环耗尽退避上限时返回包装了 ErrBackoffExhausted 的错误。
// Consume 只应调用一次。
func (s *Subscriber) Consume(ctx context.Context) error {
	g, _ := xrun.NewGroup(ctx, xrun.WithName("xconsume"), xrun.WithLogger(s.primary.options.logger))
	g.GoWithName(string(RolePrimary), s.primary.RunPrimary)
	if s.retry != nil {
		g.GoWithName(string(RoleRetry), s.retry.RunRetry)
	}
	runErr := g.Wait()
	// 调用方取消（含 WithCancelCause 附带的原因）属于正常退出
	if runErr != nil && ctx.Err() != nil && !errors.Is(runErr, ErrBackoffExhausted) {
		runErr = nil
	}

	closeErr := s.close()
	if runErr != nil {
		return errors.Join(runErr, closeErr)
	}
	return closeErr
}

// Stats 返回主循环与重试循环的统计，未开启重试消费时 retry 为零值。
func (s *Subscriber) Stats() (primary, retry Stats) {
	primary = s.primary.Stats()
	if s.retry != nil {
		retry = s.retry.Stats()
	}
	return primary, retry
}

func (s *Subscriber) close() error {
	errs := []error{s.primary.Close()}
	if s.retry != nil {
		errs = append(errs, s.retry.Close())
	}
	return errors.Join(errs...)
}
