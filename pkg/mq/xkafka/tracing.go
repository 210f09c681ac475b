package xkafka

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xbus/internal/mqcore"
	"github.com/omeyang/xbus/pkg/mq/xheader"
)

// InjectContext 将 ctx 中的追踪信息写入消息头。tracer 或 msg 为 nil 时不做任何操作。
func InjectContext(ctx context.Context, tracer Tracer, msg *kafka.Message) {
	if tracer == nil || msg == nil {
		return
	}
	carrier := map[string]string{}
	tracer.Inject(ctx, carrier)
	if len(carrier) == 0 {
		return
	}
	xheader.NewAccessor(msg, xheader.DefaultTable()).SetStrings(carrier)
}

// ExtractContext 从消息头提取追踪信息并合并到 ctx，ctx 的取消信号保持不变。
func ExtractContext(ctx context.Context, tracer Tracer, msg *kafka.Message) context.Context {
	if tracer == nil || msg == nil || len(msg.Headers) == 0 {
		return ctx
	}
	extracted := tracer.Extract(xheader.NewAccessor(msg, xheader.DefaultTable()).Map())
	return mqcore.MergeTraceContext(ctx, extracted)
}
