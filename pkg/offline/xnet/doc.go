// Package xnet 提供连通性状态跟踪与探测。
//
// Monitor 维护当前在线状态，外部信号通过 Set 汇报。
// 状态迁移带去抖：两次已生效的迁移之间至少间隔一个去抖窗口
// （默认 500ms），短暂的抖动不会触发回调风暴。每次生效的
// 迁移同步调用 OnChange 回调，同步协调器据此启动或中止排空。
//
// HTTPProbe 以一次带超时（默认 5s）的 HTTP 请求探测连通性，
// 可由引擎的周期任务驱动，探测结果回写 Monitor。
package xnet
