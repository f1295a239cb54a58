package xbreaker

import "github.com/sony/gobreaker/v2"

// 以下是 sony/gobreaker/v2 的类型别名，调用方无需直接导入 gobreaker

type (
	// Counts 统计计数，用于熔断判定
	Counts = gobreaker.Counts

	// State 熔断器状态
	State = gobreaker.State
)

// 熔断器状态常量
const (
	// StateClosed 关闭状态（正常）
	StateClosed = gobreaker.StateClosed

	// StateHalfOpen 半开状态（探测）
	StateHalfOpen = gobreaker.StateHalfOpen

	// StateOpen 打开状态（熔断）
	StateOpen = gobreaker.StateOpen
)

// 熔断器错误
var (
	// ErrTooManyRequests 半开状态下请求过多
	ErrTooManyRequests = gobreaker.ErrTooManyRequests

	// ErrOpenState 熔断器处于打开状态
	ErrOpenState = gobreaker.ErrOpenState
)
