package xqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/util/xid"
)

// keyPrefix 操作记录在存储中的公共前缀。
// ID 由 sonyflake 生成且随时间递增，配合定宽十进制键，
// 按前缀顺序扫描即为入队顺序。
const keyPrefix = "op/"

// FailureKindConflict 冲突类失败的标记值。
// 带该标记的失败操作不会被 RequeueFailed 自动重新入队。
const FailureKindConflict = "conflict"

// Queue 持久化离线操作队列。
// 所有变更都先落盘再返回，崩溃重启后队列内容完整保留。
type Queue struct {
	store  xstore.Store
	gen    *xid.Generator
	logger *slog.Logger
	now    func() time.Time

	onExpire func(op Operation)

	// mu 串行化所有读写，保证 dequeue 的按记录阻塞判断
	// 与状态迁移之间不会交错。
	mu sync.Mutex
}

// New 创建离线队列。store 不能为 nil。
func New(store xstore.Store, opts ...QueueOption) (*Queue, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	q := &Queue{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.gen == nil {
		gen, err := xid.NewGenerator()
		if err != nil {
			return nil, fmt.Errorf("xqueue: create id generator: %w", err)
		}
		q.gen = gen
	}
	return q, nil
}

// Enqueue 将一次本地变更写入队列，返回落盘后的完整操作记录。
func (q *Queue) Enqueue(ctx context.Context, draft Draft) (Operation, error) {
	if ctx == nil {
		return Operation{}, ErrNilContext
	}
	if err := validateDraft(draft); err != nil {
		return Operation{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	id, err := q.gen.Next(ctx)
	if err != nil {
		return Operation{}, fmt.Errorf("xqueue: generate operation id: %w", err)
	}
	op := Operation{
		ID:              id,
		Table:           draft.Table,
		RecordKey:       draft.RecordKey,
		Kind:            draft.Kind,
		Payload:         draft.Payload,
		BaselineVersion: draft.BaselineVersion,
		EnqueuedAt:      q.now().UTC(),
		Status:          StatusPending,
	}
	if err := q.put(ctx, op); err != nil {
		return Operation{}, err
	}
	q.logger.DebugContext(ctx, "operation enqueued",
		slog.Int64("id", op.ID),
		slog.String("record", op.Record()),
		slog.String("kind", string(op.Kind)))
	return op, nil
}

// DequeueBatch 按入队顺序取出至多 limit 条待同步操作并标记为 in-flight。
// 同一条业务记录上存在 in-flight 或 failed 操作时，
// 该记录后续的 pending 操作会被跳过，保证单记录内的应用顺序。
// 每次取出都会使 AttemptCount 加一并落盘。
func (q *Queue) DequeueBatch(ctx context.Context, limit int) ([]Operation, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	all, err := q.scanAll(ctx)
	if err != nil {
		return nil, err
	}

	blocked := make(map[string]bool)
	var batch []Operation
	for _, op := range all {
		switch op.Status {
		case StatusInFlight, StatusFailed:
			blocked[op.Record()] = true
		case StatusPending:
			if blocked[op.Record()] {
				continue
			}
			if len(batch) >= limit {
				// 不能提前 break：后面的记录仍可能被此前的
				// in-flight/failed 操作阻塞，但 batch 已满时
				// 剩余 pending 一律留待下一批，直接结束即可。
				return batch, nil
			}
			op.Status = StatusInFlight
			op.AttemptCount++
			blocked[op.Record()] = true
			if err := q.put(ctx, op); err != nil {
				return nil, err
			}
			batch = append(batch, op)
		}
	}
	return batch, nil
}

// MarkSynced 确认操作已在服务端生效并将其从队列中删除。
func (q *Queue) MarkSynced(ctx context.Context, id int64) error {
	if ctx == nil {
		return ErrNilContext
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	op, err := q.get(ctx, id)
	if err != nil {
		return err
	}
	if op.Status != StatusInFlight {
		return fmt.Errorf("%w: id=%d status=%s", ErrNotInFlight, id, op.Status)
	}
	if err := q.store.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("xqueue: delete synced operation: %w", err)
	}
	q.logger.DebugContext(ctx, "operation synced",
		slog.Int64("id", id), slog.String("record", op.Record()))
	return nil
}

// MarkFailed 将 in-flight 操作标记为 failed，并记录失败原因。
// failureKind 为 FailureKindConflict 时，该操作需要显式调用
// RequeueConflicts 才会回到 pending。
func (q *Queue) MarkFailed(ctx context.Context, id int64, cause error, failureKind string) error {
	if ctx == nil {
		return ErrNilContext
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	op, err := q.get(ctx, id)
	if err != nil {
		return err
	}
	if op.Status != StatusInFlight {
		return fmt.Errorf("%w: id=%d status=%s", ErrNotInFlight, id, op.Status)
	}
	op.Status = StatusFailed
	op.FailureKind = failureKind
	if cause != nil {
		op.LastError = cause.Error()
	}
	if err := q.put(ctx, op); err != nil {
		return err
	}
	q.logger.WarnContext(ctx, "operation failed",
		slog.Int64("id", id),
		slog.String("record", op.Record()),
		slog.String("failure_kind", failureKind),
		slog.String("error", op.LastError))
	return nil
}

// Release 将一批 in-flight 操作放回 pending。
// 同步被中断（断网、排空取消）时由协调器调用。
// 不处于 in-flight 的 ID 被忽略。
func (q *Queue) Release(ctx context.Context, ids []int64) error {
	if ctx == nil {
		return ErrNilContext
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, id := range ids {
		op, err := q.get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		if op.Status != StatusInFlight {
			continue
		}
		op.Status = StatusPending
		if err := q.put(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseInFlight 将全部 in-flight 操作放回 pending，返回回收数量。
//
// 进程在同步中途退出会把已取出的操作永久留在 in-flight，
// 并阻塞同一条记录的后续操作。协调器在每轮排空开始时调用
// 本方法回收残留，保证重启后这些操作仍会被重放。
func (q *Queue) ReleaseInFlight(ctx context.Context) (int, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	all, err := q.scanAll(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	for _, op := range all {
		if op.Status != StatusInFlight {
			continue
		}
		op.Status = StatusPending
		if err := q.put(ctx, op); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// RequeueFailed 将失败操作放回 pending，返回重新入队的数量。
// 冲突类失败需要人工处理，不在此恢复。
func (q *Queue) RequeueFailed(ctx context.Context) (int, error) {
	return q.requeue(ctx, func(op Operation) bool {
		return op.Status == StatusFailed && op.FailureKind != FailureKindConflict
	})
}

// RequeueConflicts 将冲突类失败操作放回 pending，返回重新入队的数量。
func (q *Queue) RequeueConflicts(ctx context.Context) (int, error) {
	return q.requeue(ctx, func(op Operation) bool {
		return op.Status == StatusFailed && op.FailureKind == FailureKindConflict
	})
}

func (q *Queue) requeue(ctx context.Context, match func(Operation) bool) (int, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	all, err := q.scanAll(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	for _, op := range all {
		if !match(op) {
			continue
		}
		op.Status = StatusPending
		op.FailureKind = ""
		op.LastError = ""
		if err := q.put(ctx, op); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// PurgeExpired 删除入队时长已达到 ttl 的 pending 与 failed 操作，
// 返回删除数量。in-flight 操作正在同步中，不参与过期。
// 每删除一条，同步调用 OnExpire 回调。
func (q *Queue) PurgeExpired(ctx context.Context, ttl time.Duration) (int, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}
	if ttl <= 0 {
		return 0, ErrInvalidTTL
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	all, err := q.scanAll(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := q.now().UTC().Add(-ttl)
	var n int
	for _, op := range all {
		if op.Status == StatusInFlight {
			continue
		}
		// 恰好达到 ttl 的操作也视为过期
		if op.EnqueuedAt.After(cutoff) {
			continue
		}
		if err := q.store.Delete(ctx, key(op.ID)); err != nil {
			return n, fmt.Errorf("xqueue: delete expired operation: %w", err)
		}
		n++
		q.logger.InfoContext(ctx, "operation expired",
			slog.Int64("id", op.ID),
			slog.String("record", op.Record()),
			slog.Time("enqueued_at", op.EnqueuedAt))
		if q.onExpire != nil {
			op.Status = StatusExpired
			q.onExpire(op)
		}
	}
	return n, nil
}

// Count 返回各状态的操作数量统计。
func (q *Queue) Count(ctx context.Context) (map[Status]int, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	all, err := q.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[Status]int)
	for _, op := range all {
		counts[op.Status]++
	}
	return counts, nil
}

// List 按入队顺序返回全部操作的快照。
func (q *Queue) List(ctx context.Context) ([]Operation, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.scanAll(ctx)
}

// Get 按 ID 查询单条操作。
func (q *Queue) Get(ctx context.Context, id int64) (Operation, error) {
	if ctx == nil {
		return Operation{}, ErrNilContext
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.get(ctx, id)
}

func (q *Queue) get(ctx context.Context, id int64) (Operation, error) {
	raw, err := q.store.Get(ctx, key(id))
	if err != nil {
		if errors.Is(err, xstore.ErrNotFound) {
			return Operation{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
		}
		return Operation{}, fmt.Errorf("xqueue: load operation: %w", err)
	}
	var op Operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return Operation{}, fmt.Errorf("xqueue: decode operation: %w", err)
	}
	return op, nil
}

func (q *Queue) put(ctx context.Context, op Operation) error {
	raw, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("xqueue: encode operation: %w", err)
	}
	if err := q.store.Put(ctx, key(op.ID), raw); err != nil {
		return fmt.Errorf("xqueue: persist operation: %w", err)
	}
	return nil
}

// scanAll 按键序扫描全部操作，键序即入队顺序。
func (q *Queue) scanAll(ctx context.Context) ([]Operation, error) {
	var ops []Operation
	err := q.store.Scan(ctx, keyPrefix, func(_ string, value []byte) error {
		var op Operation
		if err := json.Unmarshal(value, &op); err != nil {
			return fmt.Errorf("xqueue: decode operation: %w", err)
		}
		ops = append(ops, op)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func key(id int64) string {
	return keyPrefix + xid.Format(id)
}

func validateDraft(d Draft) error {
	if d.Table == "" {
		return fmt.Errorf("%w: table is required", ErrInvalidDraft)
	}
	if d.RecordKey == "" {
		return fmt.Errorf("%w: record key is required", ErrInvalidDraft)
	}
	if !d.Kind.valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDraft, d.Kind)
	}
	return nil
}
