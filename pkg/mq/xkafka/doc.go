// Package xkafka 提供 confluent-kafka-go 之上的投递封装。
//
// 本包只做两件事：把 *kafka.Consumer / *kafka.Producer 收敛为可替换的最小接口
// （ConsumerClient / ProducerClient），以及在其上提供带日志、追踪与统计的 Consumer、Producer。
// 重试、死信、并发控制等处理语义不在本包，见 xconsume。
//
// # Producer
//
// 两种发布方式：
//   - Produce：非阻塞入队，投递结果通过回调通知（回调在事件循环 goroutine 上执行，应尽快返回）
//   - Send：入队后等待 Broker 回执，返回 DeliveryReport
//
// 每次发布结果都会记录日志：成功带 topic/partition/offset/key，失败带 Broker 返回的错误。
// 本层不做任何重试，重试由调用方决定。
//
// 事务控制：InitTransactions / BeginTransaction / CommitTransaction / AbortTransaction，
// 需要在配置中设置 transactional.id。
//
// Flush(timeout) 在底层 Flush 返回后，继续等待已投递消息的回调执行完毕（受同一超时约束），
// 因此 Flush 返回时，未触发回调的消息即为未确认的消息。
//
// Close 先 Flush 再释放底层句柄，只执行一次；重复调用返回 nil。
//
// # Consumer
//
// Fetch 执行一次 Poll，将结果归为三类：消息、分区末尾（需要 enable.partition.eof=true，
// NewConsumer 会强制开启）与空结果。非致命的 kafka.Error 记录日志后作为空结果返回，
// 致命错误作为 error 返回，由上层退避循环处理。
//
// # 链路追踪
//
// 发布时通过 Tracer 将 W3C Trace Context 注入消息头；消费时提取并与调用方 ctx 合并，
// 见 ExtractContext。
package xkafka
