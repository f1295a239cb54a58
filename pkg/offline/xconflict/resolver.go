package xconflict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xqueue"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

// keyPrefix 冲突记录在存储中的公共前缀
const keyPrefix = "conflict/"

const (
	defaultHistorySize = 256
	defaultHistoryTTL  = 24 * time.Hour
)

// ResolverOption 配置冲突解决器的函数式选项
type ResolverOption func(*Resolver)

// WithStrategy 设置解决策略，默认 StrategyServerWins
func WithStrategy(s Strategy) ResolverOption {
	return func(r *Resolver) {
		if s.valid() {
			r.strategy = s
		}
	}
}

// WithLogger 设置日志记录器，nil 时回退到 slog.Default()
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock 设置时钟函数，仅测试使用
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithHistory 设置内存镜像的容量与过期时间
func WithHistory(size int, ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if size > 0 {
			r.historySize = size
		}
		if ttl > 0 {
			r.historyTTL = ttl
		}
	}
}

// Resolver 冲突解决器。持久化每一条冲突记录，
// 并在内存中镜像近期冲突供快速查询。
type Resolver struct {
	store    xstore.Store
	strategy Strategy
	logger   *slog.Logger
	now      func() time.Time

	historySize int
	historyTTL  time.Duration
	history     *expirable.LRU[string, Conflict]

	mu sync.Mutex
}

// New 创建冲突解决器。store 不能为 nil。
func New(store xstore.Store, opts ...ResolverOption) (*Resolver, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	r := &Resolver{
		store:       store,
		strategy:    StrategyServerWins,
		logger:      slog.Default(),
		now:         time.Now,
		historySize: defaultHistorySize,
		historyTTL:  defaultHistoryTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.history = expirable.NewLRU[string, Conflict](r.historySize, nil, r.historyTTL)
	return r, nil
}

// Strategy 返回当前配置的解决策略。
func (r *Resolver) Strategy() Strategy {
	return r.strategy
}

// Resolve 比较排队操作的客户端意图与服务端当前记录，
// 按配置策略计算解决结果并持久化完整的冲突记录。
// 策略计算失败时仍会持久化一条 Resolved 为 false 的记录，
// 然后返回原始错误。
func (r *Resolver) Resolve(ctx context.Context, op xqueue.Operation, serverData json.RawMessage) (Conflict, error) {
	if ctx == nil {
		return Conflict{}, ErrNilContext
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := Conflict{
		ID:          uuid.NewString(),
		Table:       op.Table,
		RecordKey:   op.RecordKey,
		OperationID: op.ID,
		ClientData:  op.Payload,
		ServerData:  serverData,
		Strategy:    r.strategy,
		DetectedAt:  r.now().UTC(),
	}

	resolved, resolveErr := Merge(op.Payload, serverData, r.strategy)
	if resolveErr == nil {
		c.ResolvedData = resolved
		c.Resolved = true
		c.Digest = fmt.Sprintf("%016x", xxhash.Sum64(resolved))
	}

	if err := r.persist(ctx, c); err != nil {
		return Conflict{}, err
	}
	r.history.Add(c.ID, c)

	if resolveErr != nil {
		r.logger.ErrorContext(ctx, "conflict resolution failed",
			slog.String("conflict_id", c.ID),
			slog.String("record", op.Record()),
			slog.String("strategy", string(r.strategy)),
			slog.Any("error", resolveErr))
		return c, resolveErr
	}
	r.logger.InfoContext(ctx, "conflict resolved",
		slog.String("conflict_id", c.ID),
		slog.String("record", op.Record()),
		slog.String("strategy", string(r.strategy)),
		slog.String("digest", c.Digest))
	return c, nil
}

// Get 按 ID 查询单条冲突记录，优先命中内存镜像。
func (r *Resolver) Get(ctx context.Context, id string) (Conflict, error) {
	if ctx == nil {
		return Conflict{}, ErrNilContext
	}
	if c, ok := r.history.Get(id); ok {
		return c, nil
	}
	raw, err := r.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, xstore.ErrNotFound) {
			return Conflict{}, fmt.Errorf("%w: id=%s", ErrNotFound, id)
		}
		return Conflict{}, fmt.Errorf("xconflict: load conflict: %w", err)
	}
	var c Conflict
	if err := json.Unmarshal(raw, &c); err != nil {
		return Conflict{}, fmt.Errorf("xconflict: decode conflict: %w", err)
	}
	return c, nil
}

// List 返回全部持久化的冲突记录，按检测时间升序。
func (r *Resolver) List(ctx context.Context) ([]Conflict, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	var out []Conflict
	err := r.store.Scan(ctx, keyPrefix, func(_ string, value []byte) error {
		var c Conflict
		if err := json.Unmarshal(value, &c); err != nil {
			return fmt.Errorf("xconflict: decode conflict: %w", err)
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out, nil
}

// Clear 删除全部冲突记录，返回删除数量。
func (r *Resolver) Clear(ctx context.Context) (int, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []string
	err := r.store.Scan(ctx, keyPrefix, func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := r.store.Delete(ctx, k); err != nil {
			return 0, fmt.Errorf("xconflict: delete conflict: %w", err)
		}
	}
	r.history.Purge()
	return len(keys), nil
}

func (r *Resolver) persist(ctx context.Context, c Conflict) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("xconflict: encode conflict: %w", err)
	}
	if err := r.store.Put(ctx, keyPrefix+c.ID, raw); err != nil {
		return fmt.Errorf("xconflict: persist conflict: %w", err)
	}
	return nil
}
