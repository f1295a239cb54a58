// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xevent: 进程内事件总线，广播熔断状态迁移、连通性变化、同步进度等领域事件
//
// 设计原则：
//   - 发布端不因慢订阅者阻塞
//   - 订阅者 panic 不影响其他订阅者
package observability
