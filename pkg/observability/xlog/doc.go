// Package xlog 是 xbus 各组件共用的结构化日志封装，基于 log/slog。
//
// # 设计
//
//   - 所有日志方法强制传入 context.Context，trace_id/span_id 从 ctx 中的
//     OpenTelemetry SpanContext 自动注入
//   - 方法签名只接受 slog.Attr，避免隐式 key-value 转换
//   - 级别可在运行时调整（[Leveler]），xbusctl 通过配置热加载使用该能力
//   - 消息相关的标准属性（[Topic]、[Partition]、[Offset]、[Key]）保证各组件字段名一致
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xbus/app.log", xlog.RotationConfig{MaxSizeMB: 100}).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// 组件未注入 Logger 时使用 [Discard]，不会输出任何内容。
package xlog
