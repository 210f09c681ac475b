package mqcore

import (
	"context"

	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
)

// Tracer 定义链路追踪接口。
// 用于在消息生产/消费时注入和提取追踪信息。
//
// 实现者应使用 W3C Trace Context 标准的 Header 名称：
//   - traceparent: 追踪 ID 和 Span ID
//   - tracestate: 厂商特定信息
type Tracer interface {
	// Inject 将 ctx 中的追踪信息注入到 headers。
	Inject(ctx context.Context, headers map[string]string)

	// Extract 从 headers 提取追踪信息，返回携带远端 SpanContext 的 Context。
	Extract(headers map[string]string) context.Context
}

// NoopTracer 是 Tracer 的空实现。
type NoopTracer struct{}

// Inject 空实现。
func (NoopTracer) Inject(_ context.Context, _ map[string]string) {}

// Extract 返回 context.Background()。
func (NoopTracer) Extract(_ map[string]string) context.Context {
	return context.Background()
}

var _ Tracer = NoopTracer{}

// MergeTraceContext 将 extracted 中的 SpanContext 与 Baggage 合并到 base。
// base 提供取消信号，extracted 通常来自 Tracer.Extract。
// extracted 没有有效 SpanContext 时 base 原样返回（Baggage 仍会合并）。
func MergeTraceContext(base, extracted context.Context) context.Context {
	if base == nil {
		base = context.Background()
	}
	if extracted == nil {
		return base
	}
	if sc := trace.SpanContextFromContext(extracted); sc.IsValid() {
		base = trace.ContextWithRemoteSpanContext(base, sc)
	}
	if bag := baggage.FromContext(extracted); bag.Len() > 0 {
		base = baggage.ContextWithBaggage(base, bag)
	}
	return base
}
