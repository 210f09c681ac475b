// Package mqcore 提供 xbus 消息运行时的共享内核。
//
// 本包是 internal 包，仅供 pkg/mq 下各包（xkafka、xconsume、xpublish）内部使用，
// 公开类型通过这些包的类型别名重导出。
//
// 主要功能：
//   - RunConsumeLoop：带指数退避与尝试上限的消费循环
//   - BackoffPolicy / ExponentialBackoff / FixedBackoff：退避策略
//   - Clock / Delayer：时间与等待原语，测试中可替换
//   - Tracer / OTelTracer：通过消息头传播 W3C Trace Context
//   - Observer / OTelObserver：消费、生产、处理的 span 与指标
//   - 共享错误定义
package mqcore
