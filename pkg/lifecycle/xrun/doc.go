// Package xrun 提供基于 errgroup + context 的进程生命周期管理。
//
// # 概述
//
// xrun 基于 Go 官方扩展库 [errgroup] 构建，提供：
//   - 多服务并发运行和协调关闭
//   - 信号处理（SIGINT、SIGTERM 等）
//   - 周期任务辅助函数（Ticker、Timer、Schedule）
//
// 当任一服务返回错误或收到终止信号时，context 会被取消，
// 所有服务应该监听 ctx.Done() 并优雅退出。
//
// # 快速开始
//
//	err := xrun.Run(context.Background(),
//	    engine.Run,
//	    xrun.Ticker(30*time.Second, true, func(ctx context.Context) error {
//	        return monitor.Check(ctx)
//	    }),
//	)
//	var sigErr *xrun.SignalError
//	if errors.As(err, &sigErr) {
//	    log.Printf("received signal: %v", sigErr.Signal)
//	}
//
// 使用 Group 管理多个服务：
//
//	g, ctx := xrun.NewGroup(ctx, xrun.WithName("sync-engine"))
//	g.GoWithName("coordinator", coordinator.Run)
//	g.GoWithName("purger", xrun.Schedule("@every 1m", purge))
//	if err := g.Wait(); err != nil {
//	    log.Fatal(err)
//	}
//
// # 错误处理
//
// Wait() 仅返回第一个非 nil 错误。context.Canceled 会被过滤，
// 但通过 Cancel(cause) 或信号处理设置的显式退出原因会被保留，
// 调用方可以基于退出原因做分类决策。
//
// [errgroup]: https://pkg.go.dev/golang.org/x/sync/errgroup
package xrun
