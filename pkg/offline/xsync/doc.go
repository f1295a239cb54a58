// Package xsync 提供离线操作队列的排空协调器。
//
// 连通性恢复信号（或手动触发）调用 Sync，协调器按入队顺序
// 分批取出待同步操作，每条操作经由熔断器与重试器重放到远端
// 应用端点。服务端报告版本冲突的操作交给冲突解决器处理，
// 解决结果需要时会发起一次补写。
//
// Sync 带重入保护：排空进行中时新调用立即返回空结果。
// 排空可因连通性丢失或熔断打开而中止，已取出未完成的操作
// 回滚到 pending，下一轮重试。每轮排空的起止、进度与每条
// 操作的结局都通过事件总线广播，整体结果落盘为同步元数据。
package xsync
