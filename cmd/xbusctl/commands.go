package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xbus/pkg/config/xconf"
	"github.com/omeyang/xbus/pkg/lifecycle/xrun"
	"github.com/omeyang/xbus/pkg/mq/xbus"
	"github.com/omeyang/xbus/pkg/mq/xconsume"
	"github.com/omeyang/xbus/pkg/mq/xkafka"
	"github.com/omeyang/xbus/pkg/mq/xpublish"
	"github.com/omeyang/xbus/pkg/observability/xlog"
)

// 发布模式。
const (
	modeAsync  = "async"
	modeSync   = "sync"
	modeAtomic = "atomic"
)

// env 单次命令执行所需的配置与日志。
type env struct {
	cfg           xbus.Config
	src           *xconf.Source
	logger        xlog.LoggerWithLevel
	cleanup       func() error
	levelOverride bool
}

// setup 加载配置并构建日志记录器。配置错误按参数错误处理。
func setup(cmd *cli.Command) (*env, error) {
	cfg, src, err := xbus.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, usage(err)
	}
	override := cmd.String("log-level")
	if override != "" {
		cfg.Log.Level = override
	}
	logger, cleanup, err := xbus.NewLogger(cfg.Log)
	if err != nil {
		return nil, usage(err)
	}
	return &env{cfg: cfg, src: src, logger: logger, cleanup: cleanup, levelOverride: override != ""}, nil
}

func (e *env) close() {
	_ = e.cleanup()
}

// newBus 按配置创建 Bus，链路与观测使用 OTel 全局 Provider。
func (e *env) newBus() (*xbus.Bus, error) {
	observer, err := xkafka.NewOTelObserver()
	if err != nil {
		return nil, err
	}
	bus, err := xbus.New(e.cfg,
		xbus.WithLogger(e.logger),
		xbus.WithTracer(xkafka.NewOTelTracer()),
		xbus.WithObserver(observer),
	)
	if err != nil {
		return nil, usage(err)
	}
	return bus, nil
}

// onReload 配置文件变化后重新应用日志级别，其余字段需要重启生效。
func (e *env) onReload(ctx context.Context) xconf.ReloadFunc {
	return func(src *xconf.Source, err error) {
		if err != nil {
			e.logger.Warn(ctx, "config reload failed, keeping previous config", xlog.Err(err))
			return
		}
		if e.levelOverride {
			return
		}
		cfg, err := xbus.Decode(src)
		if err == nil {
			err = xbus.ApplyLevel(e.logger, cfg.Log)
		}
		if err != nil {
			e.logger.Warn(ctx, "config reload rejected", xlog.Err(err))
			return
		}
		e.logger.Info(ctx, "config reloaded", slog.String("level", e.logger.GetLevel().String()))
	}
}

func createConsumeCommand() *cli.Command {
	return &cli.Command{
		Name:  "consume",
		Usage: "消费配置中的主 Topic，直到收到 SIGINT/SIGTERM",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "fail-every",
				Usage: "每 N 条消息返回一次错误，触发重试流程（0 关闭）",
			},
			&cli.IntFlag{
				Name:  "dead-letter-every",
				Usage: "每 N 条消息请求一次死信（0 关闭）",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "监视配置文件，变化时热更新日志级别",
			},
			&cli.DurationFlag{
				Name:  "stats-interval",
				Usage: "周期输出消费统计（0 关闭）",
			},
		},
		Action: cmdConsume,
	}
}

func cmdConsume(ctx context.Context, cmd *cli.Command) error {
	if cmd.Int("fail-every") < 0 || cmd.Int("dead-letter-every") < 0 {
		return usagef("--fail-every and --dead-letter-every must not be negative")
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	bus, err := e.newBus()
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	h := &demoHandler{
		logger:          e.logger,
		failEvery:       int64(cmd.Int("fail-every")),
		deadLetterEvery: int64(cmd.Int("dead-letter-every")),
	}
	sub, err := bus.Subscribe(h.handle)
	if err != nil {
		return usage(err)
	}

	fns := []func(context.Context) error{sub.Consume}
	if cmd.Bool("watch") {
		w, err := xconf.NewWatcher(e.src, e.onReload(ctx))
		if err != nil {
			return err
		}
		fns = append(fns, w.Run)
	}
	if interval := cmd.Duration("stats-interval"); interval > 0 {
		fns = append(fns, xrun.Ticker(interval, func(ctx context.Context) error {
			logStats(ctx, e.logger, sub)
			return nil
		}))
	}

	e.logger.Info(ctx, "consuming", slog.Any("topics", e.cfg.Consumer.TopicNames()),
		slog.Bool("retry_topic_consumption", e.cfg.Consumer.RetryTopicConsumption))
	err = xrun.Run(ctx, []xrun.Option{xrun.WithName("xbusctl"), xrun.WithLogger(e.logger)}, fns...)
	logStats(ctx, e.logger, sub)
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

func logStats(ctx context.Context, logger xlog.Logger, sub *xconsume.Subscriber) {
	primary, retry := sub.Stats()
	logger.Info(ctx, "consume stats", statsGroup("primary", primary), statsGroup("retry", retry))
}

func statsGroup(name string, s xconsume.Stats) slog.Attr {
	return slog.Group(name,
		slog.Int64("processed", s.Processed),
		slog.Int64("handler_errors", s.HandlerErrors),
		slog.Int64("committed", s.Committed),
		slog.Int64("retried", s.Retried),
		slog.Int64("dead_lettered", s.DeadLettered),
		slog.Int64("deferred", s.Deferred),
		slog.Int("in_flight", s.InFlight),
	)
}

func createPublishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "向 Topic 发布一批消息",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "topic",
				Aliases:  []string{"t"},
				Usage:    "目标 Topic",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "消息数量",
				Value:   1,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "批量策略: async（逐条等待确认）、sync（并发入队后统一刷新）、atomic（事务）",
				Value: modeSync,
			},
			&cli.StringFlag{
				Name:  "key-prefix",
				Usage: "消息 Key 前缀，实际 Key 为 前缀+序号",
				Value: "key-",
			},
			&cli.StringFlag{
				Name:  "value",
				Usage: "消息内容",
				Value: "hello",
			},
		},
		Action: cmdPublish,
	}
}

func cmdPublish(ctx context.Context, cmd *cli.Command) error {
	mode := cmd.String("mode")
	if mode != modeAsync && mode != modeSync && mode != modeAtomic {
		return usagef("unknown mode %q (want %s, %s or %s)", mode, modeAsync, modeSync, modeAtomic)
	}
	count := cmd.Int("count")
	if count <= 0 {
		return usagef("--count must be positive")
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	bus, err := e.newBus()
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	publisher, err := bus.Publisher()
	if err != nil {
		return err
	}

	topic := cmd.String("topic")
	msgs := buildMessages(cmd.String("key-prefix"), cmd.String("value"), count)
	out := cmd.Root().Writer

	switch mode {
	case modeAtomic:
		if !publisher.PublishAtomic(ctx, topic, msgs) {
			fmt.Fprintf(out, "transaction aborted: %d messages discarded\n", len(msgs))
			return &exitError{code: 1}
		}
		fmt.Fprintf(out, "transaction committed: %d messages\n", len(msgs))
		return nil
	case modeAsync:
		return printBatch(out, publisher.PublishBatchAsync(ctx, topic, msgs))
	default:
		return printBatch(out, publisher.PublishBatch(ctx, topic, msgs))
	}
}

// buildMessages 生成 n 条消息，Key 为 prefix+序号。
func buildMessages(prefix, value string, n int) []*kafka.Message {
	msgs := make([]*kafka.Message, n)
	for i := range msgs {
		msgs[i] = &kafka.Message{
			Key:   fmt.Appendf(nil, "%s%d", prefix, i),
			Value: []byte(value),
		}
	}
	return msgs
}

// printBatch 输出批次结果，存在失败时返回退出码 1。
func printBatch(out io.Writer, result xpublish.BatchResult) error {
	fmt.Fprintf(out, "batch %s: %d succeeded, %d failed\n",
		result.BatchID, len(result.Succeeded), len(result.Failed))
	for _, o := range result.Failed {
		fmt.Fprintf(out, "  #%d key=%s: %s\n", o.Index, o.Key, o.Reason)
	}
	if !result.OK() {
		return &exitError{code: 1}
	}
	return nil
}

func createCheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "校验配置并打印生效的参数",
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.cfg.Validate(); err != nil {
				return usage(err)
			}
			return printConfig(cmd.Root().Writer, e.cfg)
		},
	}
}

// printConfig 输出消费拓扑与合并后的 librdkafka 参数，敏感值打码。
func printConfig(out io.Writer, cfg xbus.Config) error {
	c := cfg.Consumer
	fmt.Fprintf(out, "topics:            %s\n", strings.Join(c.TopicNames(), ", "))
	fmt.Fprintf(out, "retry topic:       %s\n", orNone(c.RetryTopic))
	fmt.Fprintf(out, "dead letter topic: %s\n", orNone(c.DeadLetterTopic))
	fmt.Fprintf(out, "retry limit:       %d (delay %s)\n", c.RetryLimit, c.RetryDelay)
	fmt.Fprintf(out, "concurrency:       %d\n", c.MaxConcurrentMessages)

	consumer, err := cfg.ConsumerKafka()
	if err != nil {
		return usage(err)
	}
	producer, err := cfg.ProducerKafka()
	if err != nil {
		return usage(err)
	}
	printKafka(out, "consumer", consumer)
	printKafka(out, "producer", producer)
	return nil
}

func printKafka(out io.Writer, name string, cm kafka.ConfigMap) {
	fmt.Fprintf(out, "%s kafka:\n", name)
	for _, k := range slices.Sorted(maps.Keys(cm)) {
		v := fmt.Sprint(cm[k])
		if sensitive(k) {
			v = "******"
		}
		fmt.Fprintf(out, "  %s = %s\n", k, v)
	}
}

func sensitive(key string) bool {
	return strings.Contains(key, "password") || strings.Contains(key, "secret")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// demoHandler 记录收到的消息，并按参数模拟失败与死信，用于演练重试链路。
type demoHandler struct {
	logger          xlog.Logger
	failEvery       int64
	deadLetterEvery int64
	seen            atomic.Int64
}

func (h *demoHandler) handle(ctx context.Context, r *xconsume.Result) error {
	n := h.seen.Add(1)
	h.logger.Info(ctx, "message received",
		xlog.Topic(r.Topic()), xlog.Partition(r.Partition()), xlog.Offset(r.Offset()),
		xlog.Key(r.Key()), xlog.Attempt(r.RetryCount()))

	if h.deadLetterEvery > 0 && n%h.deadLetterEvery == 0 {
		r.DeadLetter()
		return nil
	}
	if h.failEvery > 0 && n%h.failEvery == 0 {
		return fmt.Errorf("simulated failure on message %d", n)
	}
	return nil
}
