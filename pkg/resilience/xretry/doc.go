// Package xretry 提供带退避与抖动的重试执行器。
//
// 接口驱动设计：
//   - RetryPolicy 决定是否继续重试（次数上限与逐次条件判断）
//   - BackoffPolicy 决定两次尝试之间的延迟
//
// 底层使用 [avast/retry-go/v5] 驱动重试循环，执行器只返回最后一次
// 的原始错误，不做包装，调用方可以直接检视错误类别。
//
// 错误分类约定：实现 RetryableError 接口的错误按 Retryable() 判定，
// 未实现该接口的未知错误默认可重试。NewPermanentError 可将任意错误
// 标记为不可重试。
//
// 默认退避为指数退避：初始 1s，倍率 2.0，上限 30s，并将每次延迟
// 乘以 [0.5, 1.0] 内的均匀随机因子以打散重试风暴。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
