// Package xheader 提供 Kafka 消息头的类型化读写。
//
// 消息头本质是 key → []byte 的列表。xheader 通过显式的编解码表（Table）
// 为每种具体类型注册一个 Codec，Accessor 在构造时接收该表，不存在进程级的全局注册表。
//
// 默认编码（DefaultTable）：
//   - int32：4 字节大端
//   - int64：8 字节大端
//   - bool：1 字节，0x01 为 true
//   - float64：8 字节大端 IEEE 754
//   - string：UTF-8 原始字节
//   - uuid.UUID：16 字节二进制
//
// 读取约定：key 不存在或值长度不合法时返回该类型零值，从不返回错误。
//
// 重试协议使用的头部：
//
//	count := xheader.RetryCount(msg)            // x-retry-count，缺失为 0
//	xheader.SetRetryCount(msg, count+1)
//	xheader.SetRetryNotBefore(msg, now.Add(d))  // x-retry-not-before，epoch 毫秒
//	xheader.SetBatchID(msg, uuid.New())         // x-batch-id，16 字节
package xheader
