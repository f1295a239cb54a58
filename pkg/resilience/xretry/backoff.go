package xretry

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

// FixedBackoff 固定延迟退避策略
type FixedBackoff struct {
	delay time.Duration
}

// NewFixedBackoff 创建固定延迟退避策略
func NewFixedBackoff(delay time.Duration) *FixedBackoff {
	if delay < 0 {
		delay = 0
	}
	return &FixedBackoff{delay: delay}
}

func (b *FixedBackoff) NextDelay(_ int) time.Duration {
	return b.delay
}

// NoBackoff 无延迟退避策略
type NoBackoff struct{}

// NewNoBackoff 创建无延迟退避策略
func NewNoBackoff() *NoBackoff {
	return &NoBackoff{}
}

func (b *NoBackoff) NextDelay(_ int) time.Duration {
	return 0
}

// ExponentialBackoff 带抖动的指数退避策略。
// 抖动前 delay = min(baseDelay * multiplier^(attempt-1), maxDelay)，
// 该序列随 attempt 单调不减且不超过 maxDelay。
// 抖动将 delay 乘以 [1 - jitter/2, 1] 内的均匀随机因子，
// jitter 取默认值 1.0 时即 [0.5, 1.0]。
type ExponentialBackoff struct {
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     float64
}

// ExponentialBackoffOption 指数退避配置选项
type ExponentialBackoffOption func(*ExponentialBackoff)

// WithBaseDelay 设置初始延迟，非正值被忽略
func WithBaseDelay(d time.Duration) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.baseDelay = d
		}
	}
}

// WithMaxDelay 设置最大延迟，非正值被忽略
func WithMaxDelay(d time.Duration) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.maxDelay = d
		}
	}
}

// WithMultiplier 设置倍率因子（>= 1.0），1.0 表示固定延迟
func WithMultiplier(m float64) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if m >= 1 {
			b.multiplier = m
		}
	}
}

// WithJitter 设置抖动系数，取值截断到 [0, 1]。
// 0 表示无抖动，延迟完全确定。
func WithJitter(j float64) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if j < 0 {
			j = 0
		} else if j > 1 {
			j = 1
		}
		b.jitter = j
	}
}

// NewExponentialBackoff 创建指数退避策略
// 默认值：
//   - baseDelay: 1s
//   - maxDelay: 30s
//   - multiplier: 2.0
//   - jitter: 1.0（延迟落在 [0.5, 1.0] 倍区间）
func NewExponentialBackoff(opts ...ExponentialBackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
		multiplier: 2.0,
		jitter:     1.0,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxDelay < b.baseDelay {
		b.maxDelay = b.baseDelay
	}
	return b
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(b.baseDelay) * math.Pow(b.multiplier, float64(attempt-1))
	// attempt 极大时 math.Pow 溢出为 +Inf，先截到上限再抖动
	if math.IsNaN(delay) || delay < 0 || delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	if b.jitter > 0 {
		factor := 1 - b.jitter/2*randomFloat64()
		delay *= factor
	}

	return time.Duration(delay)
}

// 确保实现了接口
var (
	_ BackoffPolicy = (*FixedBackoff)(nil)
	_ BackoffPolicy = (*NoBackoff)(nil)
	_ BackoffPolicy = (*ExponentialBackoff)(nil)
)

const (
	floatBits  = 53
	floatScale = 1.0 / (1 << floatBits)
)

// randomFloat64 返回 [0, 1) 内的均匀随机数。
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand 失败时退化为无抖动
		return 0
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) * floatScale
}
