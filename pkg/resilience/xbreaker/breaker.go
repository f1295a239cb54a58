package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// SuccessPolicy 成功判定策略接口（可选）。
// 默认情况下 err == nil 即为成功。
type SuccessPolicy interface {
	IsSuccessful(err error) bool
}

// Breaker 熔断器执行器，封装 gobreaker 并以 TripPolicy 抽象熔断判定。
type Breaker struct {
	name          string
	tripPolicy    TripPolicy
	successPolicy SuccessPolicy
	timeout       time.Duration
	maxRequests   uint32
	onStateChange func(name string, from, to State)

	cb *gobreaker.CircuitBreaker[any]
}

// BreakerOption 熔断器配置选项
type BreakerOption func(*Breaker)

// WithTripPolicy 设置熔断判定策略
// 默认策略：连续失败 5 次触发熔断
func WithTripPolicy(p TripPolicy) BreakerOption {
	return func(b *Breaker) {
		if p != nil {
			b.tripPolicy = p
		}
	}
}

// WithSuccessPolicy 设置成功判定策略。
// 例如 HTTP 5xx 算失败但 4xx 算成功的场景。
func WithSuccessPolicy(p SuccessPolicy) BreakerOption {
	return func(b *Breaker) {
		b.successPolicy = p
	}
}

// WithTimeout 设置 Open 状态转入 HalfOpen 的超时时间
// 默认值：60 秒
func WithTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithMaxRequests 设置 HalfOpen 状态下放行的最大请求数。
// gobreaker 在半开状态连续成功 MaxRequests 次后闭合，
// 这个值同时就是半开探测的成功阈值。
// 默认值：3
func WithMaxRequests(n uint32) BreakerOption {
	return func(b *Breaker) {
		if n > 0 {
			b.maxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调，可用于事件发布与监控。
func WithOnStateChange(f func(name string, from, to State)) BreakerOption {
	return func(b *Breaker) {
		b.onStateChange = f
	}
}

// NewBreaker 创建熔断器执行器
//
// 默认配置：
//   - 熔断策略：连续失败 5 次触发熔断
//   - Open 超时：60 秒
//   - HalfOpen 放行数（即探测成功阈值）：3
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:        name,
		tripPolicy:  NewConsecutiveFailures(5),
		timeout:     60 * time.Second,
		maxRequests: 3,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.cb = gobreaker.NewCircuitBreaker[any](b.buildSettings())
	return b
}

func (b *Breaker) buildSettings() gobreaker.Settings {
	st := gobreaker.Settings{
		Name:        b.name,
		MaxRequests: b.maxRequests,
		Timeout:     b.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return b.tripPolicy.ReadyToTrip(counts)
		},
	}
	if b.successPolicy != nil {
		st.IsSuccessful = func(err error) bool {
			return b.successPolicy.IsSuccessful(err)
		}
	}
	if b.onStateChange != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			b.onStateChange(name, from, to)
		}
	}
	return st
}

// Do 执行受熔断器保护的操作。
// context 已取消时直接返回 context 错误；熔断打开时操作不会
// 被执行，返回包装后的 BreakerError（Retryable() 为 false）。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	if b == nil {
		return ErrNilBreaker
	}
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return wrapBreakerError(err, b.name)
}

// Execute 执行受熔断器保护的操作（泛型版本）。
// 包级函数，因为 Go 不支持方法的类型参数。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return zero, ErrNilBreaker
	}
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, wrapBreakerError(err, b.name)
	}
	if typed, ok := result.(T); ok {
		return typed, nil
	}
	return zero, nil
}

// State 返回熔断器当前状态
func (b *Breaker) State() State {
	return b.cb.State()
}

// Name 返回熔断器名称
func (b *Breaker) Name() string {
	return b.name
}

// Counts 返回当前统计计数
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}
