package xretry

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy 重试策略接口
//
// 通过 Retryer 使用时：
//   - MaxAttempts() 设置尝试次数硬上限
//   - ShouldRetry() 在每次失败后被调用，可提前终止但不会突破上限
type RetryPolicy interface {
	// MaxAttempts 返回最大尝试次数（包含首次尝试）
	// 返回 0 表示无限重试
	MaxAttempts() int

	// ShouldRetry 判断本次失败后是否继续重试
	//
	// attempt: 已失败的尝试次数（从 1 开始）
	ShouldRetry(ctx context.Context, attempt int, err error) bool
}

// BackoffPolicy 退避策略接口
type BackoffPolicy interface {
	// NextDelay 返回第 attempt 次失败后的重试延迟（attempt 从 1 开始）
	NextDelay(attempt int) time.Duration
}

// Executor 重试执行器接口，供调用方做 mock 抽象。
type Executor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// RetryableError 可重试错误接口。
// 实现此接口的错误按 Retryable() 的返回值分类。
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 永久性错误，永不重试。
type PermanentError struct {
	Err error
}

// NewPermanentError 将 err 标记为不可重试。
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

func (e *PermanentError) Retryable() bool { return false }

// IsRetryable 判断错误是否可重试。
//   - nil：视为成功，不重试
//   - 实现 RetryableError：按 Retryable() 判定
//   - 其他错误：默认可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}
