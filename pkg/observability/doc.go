// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持文件轮转与动态级别
//
// 消息链路的追踪与指标见 internal/mqcore 的 Observer。
package observability
