// Package xrun 基于 errgroup 管理一组长期运行的函数及其协调关闭。
//
// 任一函数返回错误或父 ctx 取消时，其余函数都会收到取消信号。
// Run 额外监听系统信号，收到信号后以 *SignalError 作为退出原因：
//
//	err := xrun.Run(ctx, nil,
//	    subscriber.Consume,
//	    watcher.Run,
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常退出
//	}
package xrun
