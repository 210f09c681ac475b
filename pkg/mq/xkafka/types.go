package xkafka

import (
	"github.com/omeyang/xbus/internal/mqcore"
)

// Tracer 定义链路追踪接口，在消息头上注入和提取追踪信息。
type Tracer = mqcore.Tracer

// NoopTracer 是 Tracer 的空实现。
type NoopTracer = mqcore.NoopTracer

// OTelTracer 基于 OpenTelemetry 的链路追踪实现。
type OTelTracer = mqcore.OTelTracer

// OTelTracerOption 定义 OTelTracer 的配置选项。
type OTelTracerOption = mqcore.OTelTracerOption

// Observer 统一观测接口，见 NewOTelObserver。
type Observer = mqcore.Observer

// NoopObserver 是 Observer 的空实现。
type NoopObserver = mqcore.NoopObserver

// 设计决策: 使用 var 重导出 mqcore 函数，而非函数包装，
// 避免本包直接依赖 otel propagation / sdk 选项类型。

// NewOTelTracer 创建 OTelTracer。
var NewOTelTracer = mqcore.NewOTelTracer

// WithOTelPropagator 设置自定义的 Propagator。
var WithOTelPropagator = mqcore.WithOTelPropagator

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
var NewOTelObserver = mqcore.NewOTelObserver

// MergeTraceContext 将提取出的追踪信息合并到调用方 ctx。
var MergeTraceContext = mqcore.MergeTraceContext
