// Package xbreaker 提供按服务维度管理的熔断器与降级执行。
//
// # 设计理念
//
// 底层使用 [sony/gobreaker/v2]，通过 TripPolicy 接口抽象熔断判定。
// Registry 按服务名惰性创建熔断器，Execute 在熔断打开时走降级函数，
// 无降级时返回实现 Retryable() false 的 BreakerError，
// 与 xretry 组合使用时熔断错误不会被重试。
//
// # 熔断器状态
//
//   - StateClosed（关闭）：正常状态，失败被统计
//   - StateOpen（打开）：熔断状态，请求直接失败或走降级
//   - StateHalfOpen（半开）：探测状态，放行有限请求
//
// 状态迁移：连续失败达到阈值后 Closed 转 Open；Open 超时后转
// HalfOpen；半开探测连续成功达到上限后转 Closed，任一失败立即
// 回到 Open。每次迁移都会触发状态变化回调。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
