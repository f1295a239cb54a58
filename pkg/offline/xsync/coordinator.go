package xsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/observability/xevent"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xconflict"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xfault"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xqueue"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xbreaker"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xretry"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

const (
	defaultBatchSize = 10
	defaultService   = "remote"
)

// Result 一轮排空的结果统计。
// ConflictCount 统计已解决的冲突，它们同时计入 SyncedCount。
type Result struct {
	SyncedCount   int
	FailedCount   int
	ConflictCount int
}

// CoordinatorOption 配置同步协调器的函数式选项
type CoordinatorOption func(*Coordinator)

// WithRegistry 设置熔断器注册表，默认新建一个缺省配置的注册表
func WithRegistry(r *xbreaker.Registry) CoordinatorOption {
	return func(c *Coordinator) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithRetryer 设置重试执行器，默认 xretry.NewRetryer()
func WithRetryer(r *xretry.Retryer) CoordinatorOption {
	return func(c *Coordinator) {
		if r != nil {
			c.retryer = r
		}
	}
}

// WithResolver 设置冲突解决器。
// 未设置时冲突响应按失败处理，不做解决。
func WithResolver(r *xconflict.Resolver) CoordinatorOption {
	return func(c *Coordinator) {
		c.resolver = r
	}
}

// WithBus 设置事件总线，默认新建一个
func WithBus(b *xevent.Bus) CoordinatorOption {
	return func(c *Coordinator) {
		if b != nil {
			c.bus = b
		}
	}
}

// WithStore 设置同步元数据存储，未设置时元数据不落盘
func WithStore(s xstore.Store) CoordinatorOption {
	return func(c *Coordinator) {
		c.store = s
	}
}

// WithOnline 设置连通性查询函数。
// 排空过程中每条操作前都会检查，返回 false 立即中止。
func WithOnline(fn func() bool) CoordinatorOption {
	return func(c *Coordinator) {
		if fn != nil {
			c.online = fn
		}
	}
}

// WithLogger 设置日志记录器，nil 时回退到 slog.Default()
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics 设置指标收集器，nil 表示不收集
func WithMetrics(m *Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTracerProvider 设置追踪提供者，nil 表示不追踪
func WithTracerProvider(tp trace.TracerProvider) CoordinatorOption {
	return func(c *Coordinator) {
		if tp != nil {
			c.tracer = tp.Tracer("xsync")
		}
	}
}

// WithBatchSize 设置每批取出的操作数，默认 10
func WithBatchSize(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithService 设置远端服务在熔断器注册表中的名字，默认 "remote"
func WithService(name string) CoordinatorOption {
	return func(c *Coordinator) {
		if name != "" {
			c.service = name
		}
	}
}

// Coordinator 同步协调器。
type Coordinator struct {
	queue    *xqueue.Queue
	applier  Applier
	registry *xbreaker.Registry
	retryer  *xretry.Retryer
	resolver *xconflict.Resolver
	bus      *xevent.Bus
	store    xstore.Store
	online   func() bool
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer

	batchSize int
	service   string

	// draining 重入保护：同一时刻至多一轮排空。
	draining atomic.Bool
}

// New 创建同步协调器。queue 与 applier 不能为 nil。
func New(queue *xqueue.Queue, applier Applier, opts ...CoordinatorOption) (*Coordinator, error) {
	if queue == nil {
		return nil, ErrNilQueue
	}
	if applier == nil {
		return nil, ErrNilApplier
	}
	c := &Coordinator{
		queue:     queue,
		applier:   applier,
		logger:    slog.Default(),
		online:    func() bool { return true },
		batchSize: defaultBatchSize,
		service:   defaultService,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = xbreaker.NewRegistry()
	}
	if c.retryer == nil {
		c.retryer = xretry.NewRetryer()
	}
	if c.bus == nil {
		c.bus = xevent.NewBus()
	}
	return c, nil
}

// Draining 返回是否有排空正在进行。
func (c *Coordinator) Draining() bool {
	return c.draining.Load()
}

// Sync 排空离线队列。
// 已有排空进行中时立即返回空结果（幂等重入）。
// 排空中止时返回 ErrAborted，已取出未完成的操作回滚到 pending。
func (c *Coordinator) Sync(ctx context.Context) (Result, error) {
	if ctx == nil {
		return Result{}, ErrNilContext
	}
	if !c.draining.CompareAndSwap(false, true) {
		return Result{}, nil
	}
	defer c.draining.Store(false)

	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.Start(ctx, "xsync.Sync")
	}

	start := time.Now()
	res, err := c.drain(ctx)
	c.metrics.RecordDrain(ctx, time.Since(start), err != nil)

	if span != nil {
		span.SetAttributes(
			attribute.Int("sync.synced", res.SyncedCount),
			attribute.Int("sync.failed", res.FailedCount),
			attribute.Int("sync.conflicts", res.ConflictCount),
		)
		span.End()
	}
	return res, err
}

func (c *Coordinator) drain(ctx context.Context) (Result, error) {
	var res Result

	// draining 标志保证此刻没有其他同步持有 in-flight 操作，
	// 残留只可能来自中途退出的进程，先回收再排空。
	if n, err := c.queue.ReleaseInFlight(ctx); err != nil {
		return res, err
	} else if n > 0 {
		c.logger.WarnContext(ctx, "recovered stranded in-flight operations", slog.Int("count", n))
	}

	// 上一轮的非冲突失败操作先回到 pending 再参与本轮
	if _, err := c.queue.RequeueFailed(ctx); err != nil {
		return res, err
	}

	counts, err := c.queue.Count(ctx)
	if err != nil {
		return res, err
	}
	total := counts[xqueue.StatusPending]
	totalBatches := (total + c.batchSize - 1) / c.batchSize

	c.bus.Publish(xevent.SyncStarted{TotalOperations: total})
	c.logger.InfoContext(ctx, "sync started", slog.Int("total", total))

	if total == 0 {
		return res, c.finish(ctx, res, total)
	}

	completed := 0
	batchNum := 0
	// 本轮内已失败的记录，其后续操作跳过并放回 pending，
	// 保证单记录内的应用顺序。
	failedRecords := make(map[string]bool)

	for {
		if !c.online() {
			return res, c.abort(ctx, res, "connectivity lost", nil)
		}
		batch, err := c.queue.DequeueBatch(ctx, c.batchSize)
		if err != nil {
			return res, c.abort(ctx, res, "dequeue failed: "+err.Error(), nil)
		}
		if len(batch) == 0 {
			break
		}
		batchNum++

		for i, op := range batch {
			if !c.online() {
				return res, c.abort(ctx, res, "connectivity lost", batch[i:])
			}
			if failedRecords[op.Record()] {
				if err := c.queue.Release(ctx, []int64{op.ID}); err != nil {
					c.logger.WarnContext(ctx, "release blocked operation failed",
						slog.Int64("id", op.ID), slog.Any("error", err))
				}
				continue
			}

			outcome, opErr := c.applyOne(ctx, op)
			if opErr != nil {
				if xbreaker.IsBreakerError(opErr) {
					return res, c.abort(ctx, res, "breaker open for "+c.service, batch[i:])
				}
				// 本地落账失败，该操作已回到 pending
				return res, c.abort(ctx, res, "storage failed: "+opErr.Error(), batch[i+1:])
			}
			switch outcome {
			case "synced":
				res.SyncedCount++
			case "conflict":
				res.SyncedCount++
				res.ConflictCount++
			case "failed":
				res.FailedCount++
				failedRecords[op.Record()] = true
			}
			c.metrics.RecordOperation(ctx, op.Table, outcome)
		}

		completed += len(batch)
		c.bus.Publish(xevent.SyncProgress{
			Completed:    completed,
			Total:        total,
			Percentage:   float64(completed) / float64(total) * 100,
			CurrentBatch: batchNum,
			TotalBatches: totalBatches,
		})
	}

	return res, c.finish(ctx, res, total)
}

// applyOne 将一条操作经熔断器与重试器重放到远端，
// 返回结局："synced"、"conflict" 或 "failed"。
// 熔断打开或本地落账失败时返回错误，由调用方中止本轮排空。
func (c *Coordinator) applyOne(ctx context.Context, op xqueue.Operation) (string, error) {
	result, err := c.guardedApply(ctx, op)
	if err != nil {
		if xbreaker.IsBreakerError(err) {
			return "", err
		}
		kind := xfault.KindOf(err)
		if mErr := c.queue.MarkFailed(ctx, op.ID, err, kind.String()); mErr != nil {
			c.logger.ErrorContext(ctx, "mark operation failed",
				slog.Int64("id", op.ID), slog.Any("error", mErr))
		}
		c.bus.Publish(xevent.OperationFailed{Operation: op})
		c.logger.WarnContext(ctx, "operation sync failed",
			slog.Int64("id", op.ID),
			slog.String("record", op.Record()),
			slog.Any("error", err))
		return "failed", nil
	}

	if result.Status == StatusConflict {
		return c.handleConflict(ctx, op, result)
	}

	if err := c.markSynced(ctx, op); err != nil {
		return "", err
	}
	c.bus.Publish(xevent.OperationSynced{Operation: op, Table: op.Table})
	return "synced", nil
}

// markSynced 落账同步完成。落账失败说明本地存储出了问题，
// 先把操作放回 pending 避免留在 in-flight 无人回收，
// 再把错误上抛由调用方中止本轮排空。
func (c *Coordinator) markSynced(ctx context.Context, op xqueue.Operation) error {
	err := c.queue.MarkSynced(ctx, op.ID)
	if err == nil {
		return nil
	}
	c.logger.ErrorContext(ctx, "mark operation synced",
		slog.Int64("id", op.ID), slog.Any("error", err))
	if rErr := c.queue.Release(ctx, []int64{op.ID}); rErr != nil {
		c.logger.ErrorContext(ctx, "release unacknowledged operation",
			slog.Int64("id", op.ID), slog.Any("error", rErr))
	}
	return fmt.Errorf("mark synced: %w", err)
}

// handleConflict 把冲突响应交给解决器。
// 解决成功且结果与服务端不一致时做一次补写；补写仍冲突或
// 失败则操作保持 failed，等待人工处理。
func (c *Coordinator) handleConflict(ctx context.Context, op xqueue.Operation, result ApplyResult) (string, error) {
	fail := func(cause error) (string, error) {
		if mErr := c.queue.MarkFailed(ctx, op.ID, cause, xqueue.FailureKindConflict); mErr != nil {
			c.logger.ErrorContext(ctx, "mark conflict failed",
				slog.Int64("id", op.ID), slog.Any("error", mErr))
		}
		c.bus.Publish(xevent.ConflictHandlingFailed{Operation: op})
		return "failed", nil
	}

	if c.resolver == nil {
		return fail(xfault.Conflict(ErrNoResolver))
	}

	conflict, err := c.resolver.Resolve(ctx, op, result.Record)
	if err != nil {
		return fail(err)
	}

	if conflict.FollowUpRequired() {
		followUp := op
		followUp.Payload = conflict.ResolvedData
		followUp.BaselineVersion = result.CurrentVersion

		fuResult, fuErr := c.guardedApply(ctx, followUp)
		if fuErr != nil {
			if xbreaker.IsBreakerError(fuErr) {
				return "", fuErr
			}
			return fail(fuErr)
		}
		if fuResult.Status == StatusConflict {
			// 补写再次冲突，不再级联解决
			return fail(xfault.Conflict(ErrFollowUpConflict))
		}
	}

	if err := c.markSynced(ctx, op); err != nil {
		return "", err
	}
	c.bus.Publish(xevent.ConflictDetected{Conflict: conflict})
	c.logger.InfoContext(ctx, "conflict resolved during sync",
		slog.Int64("id", op.ID),
		slog.String("record", op.Record()),
		slog.String("conflict_id", conflict.ID))
	return "conflict", nil
}

func (c *Coordinator) guardedApply(ctx context.Context, op xqueue.Operation) (ApplyResult, error) {
	return xbreaker.ExecuteWithResult(ctx, c.registry, c.service,
		func(ctx context.Context) (ApplyResult, error) {
			return xretry.DoWithResult(ctx, c.retryer,
				func(ctx context.Context) (ApplyResult, error) {
					return c.applier.Apply(ctx, op)
				})
		}, nil)
}

// abort 中止排空：把剩余 in-flight 操作放回 pending，
// 广播 SyncFailed 并落盘带中止标记的元数据。
func (c *Coordinator) abort(ctx context.Context, res Result, reason string, remaining []xqueue.Operation) error {
	if len(remaining) > 0 {
		ids := make([]int64, 0, len(remaining))
		for _, op := range remaining {
			ids = append(ids, op.ID)
		}
		if err := c.queue.Release(ctx, ids); err != nil {
			c.logger.ErrorContext(ctx, "release in-flight operations failed",
				slog.Any("error", err))
		}
	}

	c.bus.Publish(xevent.SyncFailed{Reason: reason})
	c.logger.WarnContext(ctx, "sync aborted",
		slog.String("reason", reason),
		slog.Int("synced", res.SyncedCount),
		slog.Int("failed", res.FailedCount))

	c.saveMetadata(ctx, res, true, reason)
	return ErrAborted
}

func (c *Coordinator) finish(ctx context.Context, res Result, total int) error {
	c.bus.Publish(xevent.SyncCompleted{SyncedCount: res.SyncedCount})
	c.logger.InfoContext(ctx, "sync completed",
		slog.Int("total", total),
		slog.Int("synced", res.SyncedCount),
		slog.Int("failed", res.FailedCount),
		slog.Int("conflicts", res.ConflictCount))

	c.saveMetadata(ctx, res, false, "")
	return nil
}

func (c *Coordinator) saveMetadata(ctx context.Context, res Result, aborted bool, reason string) {
	if c.store == nil {
		return
	}
	pending := 0
	if counts, err := c.queue.Count(ctx); err == nil {
		pending = counts[xqueue.StatusPending]
	}
	md := Metadata{
		LastSyncAt:    time.Now().UTC(),
		SyncedCount:   res.SyncedCount,
		FailedCount:   res.FailedCount,
		ConflictCount: res.ConflictCount,
		PendingCount:  pending,
		Aborted:       aborted,
		AbortReason:   reason,
	}
	if err := saveMetadata(ctx, c.store, md); err != nil {
		c.logger.ErrorContext(ctx, "persist sync metadata failed", slog.Any("error", err))
	}
}
