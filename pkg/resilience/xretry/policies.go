package xretry

import "context"

// FixedRetryPolicy 固定次数重试策略
type FixedRetryPolicy struct {
	maxAttempts int
}

// NewFixedRetry 创建固定次数重试策略
// maxAttempts: 最大尝试次数（包含首次尝试），最小为 1
func NewFixedRetry(maxAttempts int) *FixedRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FixedRetryPolicy{maxAttempts: maxAttempts}
}

func (p *FixedRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

func (p *FixedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	return IsRetryable(err)
}

// Condition 逐次重试条件。返回 false 立即停止重试并
// 原样传播最近一次的错误。
type Condition func(err error, attempt int) bool

// ConditionalRetryPolicy 带自定义条件的重试策略。
// 在次数上限与错误可重试性之外再叠加一层调用方条件，
// 例如已知处于离线状态时不再重试网络调用。
type ConditionalRetryPolicy struct {
	maxAttempts int
	cond        Condition
}

// NewConditionalRetry 创建条件重试策略。
// cond 为 nil 时等价于 NewFixedRetry(maxAttempts)。
func NewConditionalRetry(maxAttempts int, cond Condition) *ConditionalRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ConditionalRetryPolicy{maxAttempts: maxAttempts, cond: cond}
}

func (p *ConditionalRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

func (p *ConditionalRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if !IsRetryable(err) {
		return false
	}
	if p.cond != nil && !p.cond(err, attempt) {
		return false
	}
	return true
}

// NeverRetryPolicy 永不重试策略
type NeverRetryPolicy struct{}

// NewNeverRetry 创建永不重试策略
func NewNeverRetry() *NeverRetryPolicy {
	return &NeverRetryPolicy{}
}

func (p *NeverRetryPolicy) MaxAttempts() int {
	return 1
}

func (p *NeverRetryPolicy) ShouldRetry(_ context.Context, _ int, _ error) bool {
	return false
}

// 确保实现了 RetryPolicy 接口
var (
	_ RetryPolicy = (*FixedRetryPolicy)(nil)
	_ RetryPolicy = (*ConditionalRetryPolicy)(nil)
	_ RetryPolicy = (*NeverRetryPolicy)(nil)
)
