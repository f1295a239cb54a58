package xnet

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultDebounce = 500 * time.Millisecond

// MonitorOption 配置连通性监视器的函数式选项
type MonitorOption func(*Monitor)

// WithLogger 设置日志记录器，nil 时回退到 slog.Default()
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDebounce 设置状态迁移的去抖窗口，非正值被忽略
func WithDebounce(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithOnChange 设置状态迁移回调。
// 每次生效的迁移在锁外同步调用一次，回调内可以再调用监视器方法。
func WithOnChange(fn func(online bool)) MonitorOption {
	return func(m *Monitor) {
		m.onChange = fn
	}
}

// WithProber 设置连通性探测器，Check 使用
func WithProber(p Prober) MonitorOption {
	return func(m *Monitor) {
		if p != nil {
			m.prober = p
		}
	}
}

// WithInitialOnline 设置初始在线状态，默认在线
func WithInitialOnline(online bool) MonitorOption {
	return func(m *Monitor) {
		m.online = online
	}
}

// Monitor 连通性监视器，并发安全。
type Monitor struct {
	logger   *slog.Logger
	debounce time.Duration
	onChange func(online bool)
	prober   Prober

	mu         sync.Mutex
	online     bool
	lastCommit time.Time
	pending    *time.Timer
	closed     bool
}

// NewMonitor 创建连通性监视器。
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		logger:   slog.Default(),
		debounce: defaultDebounce,
		online:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsOnline 返回当前已生效的在线状态。
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set 汇报一次连通性观测。
// 与当前状态相同的观测会取消尚未生效的迁移；不同的观测
// 立即生效或在去抖窗口结束时生效，保证两次生效迁移之间
// 至少间隔一个去抖窗口。
func (m *Monitor) Set(online bool) {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	if online == m.online {
		m.mu.Unlock()
		return
	}

	if wait := m.debounce - time.Since(m.lastCommit); wait > 0 {
		m.pending = time.AfterFunc(wait, func() {
			m.commitPending(online)
		})
		m.mu.Unlock()
		return
	}
	m.commitLocked(online)
	m.mu.Unlock()
	m.notify(online)
}

func (m *Monitor) commitPending(online bool) {
	m.mu.Lock()
	m.pending = nil
	if m.closed || online == m.online {
		m.mu.Unlock()
		return
	}
	m.commitLocked(online)
	m.mu.Unlock()
	m.notify(online)
}

// commitLocked 记录一次生效的迁移，调用方必须持有 m.mu，
// 并在解锁后自行调用 notify。
func (m *Monitor) commitLocked(online bool) {
	m.online = online
	m.lastCommit = time.Now()
	m.logger.Info("connectivity changed", slog.Bool("online", online))
}

// notify 在不持锁的状态下执行迁移回调，
// 回调内可以安全调用监视器方法。
func (m *Monitor) notify(online bool) {
	if m.onChange != nil {
		m.onChange(online)
	}
}

// HasProber 报告是否配置了探测器。
func (m *Monitor) HasProber() bool {
	return m.prober != nil
}

// Check 执行一次连通性探测并把结果写回监视器，
// 返回探测到的在线状态。未配置探测器时返回当前状态。
func (m *Monitor) Check(ctx context.Context) bool {
	if m.prober == nil {
		return m.IsOnline()
	}
	err := m.prober.Probe(ctx)
	online := err == nil
	if err != nil {
		m.logger.Debug("connectivity probe failed", slog.Any("error", err))
	}
	m.Set(online)
	return online
}

// Close 停止尚未生效的迁移，之后的 Set 调用被忽略。
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}
