// Package mq 提供消息队列相关的子包。
//
// 子包列表：
//   - xkafka: confluent-kafka-go 客户端封装（拉取结果分类、投递回执、事务）
//   - xheader: 消息头编解码与重试相关头
//   - xconsume: 重试 Topic 消费引擎（主循环与重试循环）
//   - xpublish: 单条、批量与事务发布
//   - xbus: 按配置组装上述组件
//
// 内部包：
//   - internal/mqcore: 消费循环退避、追踪与观测
//
// 设计原则：
//   - 处理失败的消息转交重试 Topic，超过上限进入死信 Topic，不阻塞分区
//   - 同一分区同一时刻最多一条消息在处理中
//   - 内置追踪上下文传播（W3C Trace Context）
package mq
