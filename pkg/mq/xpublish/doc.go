// Package xpublish 在 xkafka.Producer 之上提供批量发布策略。
//
// 三种策略都为批次生成一个 UUID，写入每条消息的 x-batch-id 头部：
//
//   - PublishBatchAsync：逐条发送并等待回执，收集成功与失败，不回滚
//   - PublishBatch：逐条入队后统一 Flush，超时未回执的消息记为失败
//   - PublishAtomic：在一个事务内发送全部消息，任一失败即回滚
//
// 批量策略不向调用方返回 error：失败体现在 [BatchResult] 中，
// 事务策略只返回是否提交成功。
package xpublish
