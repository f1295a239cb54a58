// Package xfault 定义引擎的失败分类体系。
//
// 同一个底层错误在不同组件眼里含义不同：重试器关心"还值不值得再试"，
// 熔断器关心"算不算一次失败"，上层关心"给用户什么选项"。
// xfault 把这三层信息统一挂在一个错误类型上：
//
//   - Kind：失败类别（瞬时网络 / 校验 / 服务不可用 / 冲突 / 过期 / 恢复失败）
//   - Retryable()：只有瞬时类失败可重试，与 xretry 的判定接口对接
//   - SuggestedActions：给展示层的动作建议，引擎不感知 UI
//
// 传播策略：可本地恢复的失败（瞬时网络、半开探测）在引擎内部消化，
// 不可恢复的失败携带 Kind 和建议动作上抛，永远不是裸堆栈。
package xfault
