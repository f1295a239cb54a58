// Package xengine 是弹性离线引擎的组装根。
//
// Engine 从一份 Config 出发，显式装配熔断注册表、重试执行器、离线队列、
// 同步协调器、冲突解决器、降级内容、连通性监控和事件总线，
// 不依赖任何全局单例。调用方持有 Engine 即持有全部依赖。
//
// # 快速开始
//
//	cfg := xengine.DefaultConfig()
//	cfg.DataDir = "/var/lib/app/engine"
//
//	eng, err := xengine.New(cfg, applier)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	// 受保护的远端调用：失败时按类别入队或降级
//	res, err := eng.GuardedExecute(ctx, "remote", saveReading,
//	    xengine.WithQueueDraft(draft),
//	)
//	if res.Queued {
//	    // 变更已持久化，等待连通恢复后同步
//	}
//
//	// 后台任务：连通性探测、重连触发同步、过期清理
//	go eng.Run(ctx)
package xengine
