// Package xconsume 提供基于重试 Topic 的 Kafka 消费引擎。
//
// 一个 [Subscriber] 持有两个 [Engine]：主循环消费业务 Topic，重试循环消费
// 重试 Topic。两者共享同一套单消息决策逻辑：
//
//   - 处理成功且未请求重试：提交 offset
//   - 请求死信（无论是否同时返回错误）：发往死信 Topic 后提交
//   - 返回错误或请求重试：重试次数 +1、写入 not-before 后发往重试 Topic，
//     成功则提交；预算耗尽则转死信
//
// 重试循环在消息 not-before 未到期时等待固定间隔并 Seek 回该消息，
// 既不提交也不交给回调，以此实现延迟重投而无需额外的延迟存储。
//
// 并发控制：MaxConcurrentMessages <= 1 时逐条处理；大于 1 时每个分区最多
// 一个在途消息，在途总数达到上限时等待全部完成。
//
// 基本用法：
//
//	sub, err := xconsume.NewSubscriber(cfg, handler, consumers, producers,
//	    xconsume.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	return sub.Consume(ctx)
package xconsume
