package xbreaker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

// snapshotPrefix 熔断器状态快照在存储中的公共前缀
const snapshotPrefix = "breaker/"

// BreakerSnapshot 熔断器状态快照，随状态迁移持久化，
// 供诊断工具离线查看。
type BreakerSnapshot struct {
	Service   string    `json:"service"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegistryOption 注册表配置选项
type RegistryOption func(*Registry)

// WithLogger 设置日志记录器，nil 时回退到 slog.Default()
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDefaults 设置新建熔断器的默认选项，
// 对已存在的熔断器不生效。
func WithDefaults(opts ...BreakerOption) RegistryOption {
	return func(r *Registry) {
		r.defaults = opts
	}
}

// WithStore 设置状态快照存储。配置后每次状态迁移都会
// 以 breaker/<service> 为键持久化一条快照，写失败只记日志。
func WithStore(store xstore.Store) RegistryOption {
	return func(r *Registry) {
		r.store = store
	}
}

// WithStateChangeHook 设置全局状态变化回调，
// 对注册表创建的每个熔断器生效。
func WithStateChangeHook(f func(service string, from, to State)) RegistryOption {
	return func(r *Registry) {
		r.onStateChange = f
	}
}

// Registry 按服务维度管理熔断器。
// 每个服务名对应一个进程生命周期内常驻的熔断器，
// 首次使用时按默认配置惰性创建。
type Registry struct {
	logger        *slog.Logger
	defaults      []BreakerOption
	store         xstore.Store
	onStateChange func(service string, from, to State)

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry 创建熔断器注册表。
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:   slog.Default(),
		breakers: make(map[string]*Breaker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Breaker 返回服务对应的熔断器，不存在时创建。
func (r *Registry) Breaker(service string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[service]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[service]; ok {
		return b
	}

	opts := make([]BreakerOption, 0, len(r.defaults)+1)
	opts = append(opts, r.defaults...)
	opts = append(opts, WithOnStateChange(func(name string, from, to State) {
		r.handleStateChange(name, from, to)
	}))
	b = NewBreaker(service, opts...)
	r.breakers[service] = b
	return b
}

// Execute 通过服务对应的熔断器执行 op。
// 任何失败（包括熔断打开）在记账后走 fallback（若提供），
// 否则原样返回错误。熔断打开时 op 不会被执行。
func (r *Registry) Execute(ctx context.Context, service string, op func(ctx context.Context) error, fallback func(ctx context.Context) error) error {
	if r == nil {
		return ErrNilRegistry
	}
	if ctx == nil {
		return ErrNilContext
	}
	if service == "" {
		return ErrEmptyService
	}
	if op == nil {
		return ErrNilFunc
	}

	err := r.Breaker(service).Do(ctx, func() error {
		return op(ctx)
	})
	if err == nil {
		return nil
	}
	if fallback != nil {
		r.logger.DebugContext(ctx, "falling back after guarded call failed",
			slog.String("service", service),
			slog.Any("error", err))
		return fallback(ctx)
	}
	return err
}

// ExecuteWithResult 通过服务对应的熔断器执行 op（有返回值）。
// 泛型函数，必须作为包级函数使用。
func ExecuteWithResult[T any](ctx context.Context, r *Registry, service string, op func(ctx context.Context) (T, error), fallback func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNilRegistry
	}
	if ctx == nil {
		return zero, ErrNilContext
	}
	if service == "" {
		return zero, ErrEmptyService
	}
	if op == nil {
		return zero, ErrNilFunc
	}

	result, err := Execute(ctx, r.Breaker(service), func() (T, error) {
		return op(ctx)
	})
	if err == nil {
		return result, nil
	}
	if fallback != nil {
		return fallback(ctx)
	}
	return zero, err
}

// States 返回全部已创建熔断器的当前状态。
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}

// Services 返回全部已创建熔断器的服务名，按字典序。
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) handleStateChange(service string, from, to State) {
	r.logger.Info("breaker state changed",
		slog.String("service", service),
		slog.String("from", from.String()),
		slog.String("to", to.String()))

	if r.store != nil {
		snap := BreakerSnapshot{
			Service:   service,
			State:     to.String(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := r.persistSnapshot(snap); err != nil {
			r.logger.Warn("persist breaker snapshot failed",
				slog.String("service", service),
				slog.Any("error", err))
		}
	}

	if r.onStateChange != nil {
		r.onStateChange(service, from, to)
	}
}

func (r *Registry) persistSnapshot(snap BreakerSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("xbreaker: encode snapshot: %w", err)
	}
	return r.store.Put(context.Background(), snapshotPrefix+snap.Service, raw)
}

// LoadSnapshots 从存储读取全部持久化的熔断器快照。
func LoadSnapshots(ctx context.Context, store xstore.Store) ([]BreakerSnapshot, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if store == nil {
		return nil, fmt.Errorf("xbreaker: store cannot be nil")
	}
	var out []BreakerSnapshot
	err := store.Scan(ctx, snapshotPrefix, func(_ string, value []byte) error {
		var snap BreakerSnapshot
		if err := json.Unmarshal(value, &snap); err != nil {
			return fmt.Errorf("xbreaker: decode snapshot: %w", err)
		}
		out = append(out, snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
