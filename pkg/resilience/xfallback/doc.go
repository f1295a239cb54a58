// Package xfallback 提供远端服务降级时的本地内容兜底。
//
// Provider 维护一张按内容类型与上下文键索引的静态内容表，
// 以及一层 ristretto 缓存保存最近一次成功获取的真实内容。
// Get 的查找顺序为：缓存命中的最近真实内容、静态表条目、
// 内容类型默认值、全局通用提示。Get 永不失败，总是同步
// 返回一条可直接展示的文案。
//
// 熔断器打开或离线期间，读路径由 Provider 供给降级内容，
// 写路径由离线队列承接，两者共同保证调用方的可用性。
package xfallback
