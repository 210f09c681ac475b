// Package xconf 基于 koanf 加载 YAML/JSON 配置，支持并发安全的重载与文件监视。
//
// xconf 只负责加载、反序列化与热重载；默认值与校验由使用方的配置结构体负责
// （例如 xconsume.Config.Validate）。
//
// # 键分隔符
//
// 默认分隔符为 "."。若配置中含有本身带点号的键（例如 librdkafka 的
// "bootstrap.servers"），应通过 WithDelim 换用不会出现在键中的分隔符，
// 否则这些键会被拆成嵌套结构。
//
// # 并发
//
// Reload 解析成功后原子替换底层 koanf 实例，失败时保留旧配置。
// Client 返回当前实例的快照，Reload 之后旧快照仍可读但不再更新。
//
// # 监视
//
// Watcher 监视配置文件所在目录（兼容编辑器先写临时文件再 rename 的保存方式），
// 多次变更在防抖窗口内合并为一次 Reload。Run 阻塞直到 ctx 取消，
// 可直接交给 xrun.Group 管理。
package xconf
