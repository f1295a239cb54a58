// Package xevent 提供引擎内部事件的类型化定义与进程内事件总线。
//
// 引擎各阶段（连通性变化、同步进度、冲突处理、熔断器状态迁移）
// 通过总线向外广播类型化事件，表示层据此渲染提示而无须感知
// 引擎内部结构。
//
// 投递是同步的：Publish 在调用方 goroutine 上依次执行全部订阅者，
// 单个订阅者 panic 会被隔离并记录日志，不影响其余订阅者。
// 订阅者回调内不得再调用 Publish 之外的总线方法。
package xevent
