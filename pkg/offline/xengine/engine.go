package xengine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/lifecycle/xrun"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/observability/xevent"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xconflict"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xfault"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xnet"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xqueue"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xsync"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xbreaker"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xfallback"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xretry"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

// Engine 弹性离线引擎。通过 New 显式装配，不使用全局状态。
type Engine struct {
	cfg Config
	log *slog.Logger

	store     xstore.Store
	ownsStore bool

	bus         *xevent.Bus
	queue       *xqueue.Queue
	registry    *xbreaker.Registry
	retryer     *xretry.Retryer
	resolver    *xconflict.Resolver
	fallback    *xfallback.Provider
	monitor     *xnet.Monitor
	coordinator *xsync.Coordinator

	// syncCh 连通恢复时的同步触发信号，容量 1，多次触发合并
	syncCh chan struct{}
}

// New 按配置装配引擎。applier 负责把队列操作下发到远端服务。
func New(cfg Config, applier xsync.Applier, opts ...Option) (*Engine, error) {
	if applier == nil {
		return nil, ErrNilApplier
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{
		cfg:    cfg,
		log:    o.logger,
		syncCh: make(chan struct{}, 1),
		bus:    xevent.NewBus(xevent.WithLogger(o.logger)),
	}

	if err := e.buildStore(o); err != nil {
		return nil, err
	}
	if err := e.buildComponents(o, applier); err != nil {
		e.closePartial()
		return nil, err
	}
	return e, nil
}

func (e *Engine) buildStore(o *engineOptions) error {
	if o.store != nil {
		e.store = o.store
		return nil
	}
	var storeOpts []xstore.BadgerOption
	if e.cfg.DataDir == "" {
		storeOpts = append(storeOpts, xstore.WithInMemory())
	} else {
		storeOpts = append(storeOpts, xstore.WithDir(e.cfg.DataDir))
	}
	storeOpts = append(storeOpts, xstore.WithLogger(e.log))

	store, err := xstore.NewBadger(storeOpts...)
	if err != nil {
		return err
	}
	e.store = store
	e.ownsStore = true
	return nil
}

func (e *Engine) buildComponents(o *engineOptions, applier xsync.Applier) error {
	queue, err := xqueue.New(e.store,
		xqueue.WithLogger(e.log),
		xqueue.WithOnExpire(func(op xqueue.Operation) {
			e.bus.Publish(xevent.OperationExpired{Operation: op})
		}),
	)
	if err != nil {
		return err
	}
	e.queue = queue

	e.registry = o.registry
	if e.registry == nil {
		e.registry = xbreaker.NewRegistry(
			xbreaker.WithLogger(e.log),
			xbreaker.WithStore(e.store),
			xbreaker.WithStateChangeHook(func(service string, from, to xbreaker.State) {
				e.bus.Publish(xevent.BreakerStateChanged{
					Service: service,
					From:    from.String(),
					To:      to.String(),
				})
			}),
		)
	}

	e.retryer = o.retryer
	if e.retryer == nil {
		e.retryer = xretry.NewRetryer()
	}

	resolverOpts := []xconflict.ResolverOption{xconflict.WithLogger(e.log)}
	if o.strategy != "" {
		resolverOpts = append(resolverOpts, xconflict.WithStrategy(o.strategy))
	}
	resolver, err := xconflict.New(e.store, resolverOpts...)
	if err != nil {
		return err
	}
	e.resolver = resolver

	e.fallback = o.fallback
	if e.fallback == nil {
		fallback, err := xfallback.New()
		if err != nil {
			return err
		}
		e.fallback = fallback
	}

	monitorOpts := []xnet.MonitorOption{
		xnet.WithLogger(e.log),
		xnet.WithOnChange(e.onConnectivityChange),
	}
	if e.cfg.Debounce > 0 {
		monitorOpts = append(monitorOpts, xnet.WithDebounce(e.cfg.Debounce))
	}
	switch {
	case o.prober != nil:
		monitorOpts = append(monitorOpts, xnet.WithProber(o.prober))
	case e.cfg.ProbeURL != "":
		monitorOpts = append(monitorOpts, xnet.WithProber(xnet.NewHTTPProbe(e.cfg.ProbeURL)))
	}
	e.monitor = xnet.NewMonitor(monitorOpts...)

	coordOpts := []xsync.CoordinatorOption{
		xsync.WithLogger(e.log),
		xsync.WithRegistry(e.registry),
		xsync.WithRetryer(e.retryer),
		xsync.WithResolver(e.resolver),
		xsync.WithBus(e.bus),
		xsync.WithStore(e.store),
		xsync.WithOnline(e.monitor.IsOnline),
		xsync.WithBatchSize(e.cfg.BatchSize),
		xsync.WithService(e.cfg.Service),
	}
	if o.meterProvider != nil {
		metrics, err := xsync.NewMetrics(o.meterProvider)
		if err != nil {
			return err
		}
		coordOpts = append(coordOpts, xsync.WithMetrics(metrics))
	}
	if o.tracer != nil {
		coordOpts = append(coordOpts, xsync.WithTracerProvider(o.tracer))
	}
	coordinator, err := xsync.New(e.queue, applier, coordOpts...)
	if err != nil {
		return err
	}
	e.coordinator = coordinator
	return nil
}

// onConnectivityChange 发布连通性事件，恢复在线时触发一轮同步。
func (e *Engine) onConnectivityChange(online bool) {
	e.bus.Publish(xevent.ConnectivityChanged{Online: online})
	if online {
		e.TriggerSync()
	}
}

// TriggerSync 请求一轮后台同步。非阻塞，重复触发会被合并。
// 仅在 Run 运行期间生效。
func (e *Engine) TriggerSync() {
	select {
	case e.syncCh <- struct{}{}:
	default:
	}
}

// Sync 立即执行一轮队列排空。
func (e *Engine) Sync(ctx context.Context) (xsync.Result, error) {
	return e.coordinator.Sync(ctx)
}

// Metadata 返回最近一轮同步的持久化元数据。
func (e *Engine) Metadata(ctx context.Context) (xsync.Metadata, error) {
	return xsync.LoadMetadata(ctx, e.store)
}

// Run 运行引擎后台任务直到 ctx 被取消：
// 周期连通性探测（配置了探测器时）、重连触发同步、过期操作清理。
func (e *Engine) Run(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	g, _ := xrun.NewGroup(ctx,
		xrun.WithName("xengine"),
		xrun.WithLogger(e.log),
	)

	if e.monitor.HasProber() {
		g.GoWithName("connectivity-probe", xrun.Ticker(e.cfg.ProbeInterval, true,
			func(ctx context.Context) error {
				e.monitor.Check(ctx)
				return nil
			},
		))
	}

	g.GoWithName("sync-trigger", func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-e.syncCh:
				if _, err := e.coordinator.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
					e.log.Warn("background sync failed", slog.Any("error", err))
				}
			}
		}
	})

	g.GoWithName("queue-purge", xrun.Schedule(e.cfg.PurgeSchedule,
		func(ctx context.Context) error {
			n, err := e.queue.PurgeExpired(ctx, e.cfg.QueueTTL)
			if err != nil {
				e.log.Warn("purge failed", slog.Any("error", err))
				return nil
			}
			if n > 0 {
				e.log.Info("purged expired operations", slog.Int("count", n))
			}
			return nil
		},
	))

	return g.Wait()
}

// Queue 返回离线操作队列。
func (e *Engine) Queue() *xqueue.Queue { return e.queue }

// Registry 返回熔断注册表。
func (e *Engine) Registry() *xbreaker.Registry { return e.registry }

// Resolver 返回冲突解决器。
func (e *Engine) Resolver() *xconflict.Resolver { return e.resolver }

// Fallback 返回降级内容提供器。
func (e *Engine) Fallback() *xfallback.Provider { return e.fallback }

// Monitor 返回连通性监控。
func (e *Engine) Monitor() *xnet.Monitor { return e.monitor }

// Bus 返回事件总线。
func (e *Engine) Bus() *xevent.Bus { return e.bus }

// Store 返回底层存储。
func (e *Engine) Store() xstore.Store { return e.store }

// Remember 记住一次成功的实时响应，作为后续降级内容。
func (e *Engine) Remember(contentType, contextKey, value string) {
	e.fallback.Remember(contentType, contextKey, value)
}

// Close 释放引擎资源。外部注入的存储不会被关闭。
func (e *Engine) Close() error {
	if e.monitor != nil {
		e.monitor.Close()
	}
	if e.fallback != nil {
		e.fallback.Close()
	}
	if e.ownsStore && e.store != nil {
		return e.store.Close()
	}
	return nil
}

func (e *Engine) closePartial() {
	if e.fallback != nil {
		e.fallback.Close()
	}
	if e.ownsStore && e.store != nil {
		_ = e.store.Close()
	}
}

// classifyGuardFailure 判断失败是否属于连通性类（值得入队或降级）。
// 校验、冲突、过期、恢复类失败有明确语义，直接上抛。
func classifyGuardFailure(err error) bool {
	switch xfault.KindOf(err) {
	case xfault.KindValidation, xfault.KindConflict, xfault.KindStale, xfault.KindRecovery:
		return false
	}
	return true
}

// ExecuteOption 配置单次受保护执行
type ExecuteOption func(*executeOptions)

type executeOptions struct {
	draft       *xqueue.Draft
	contentType string
	contextKey  string
}

// WithQueueDraft 附加一份变更草稿。连通性类失败时草稿会被持久化入队，
// GuardedExecute 返回入队确认而非错误。
func WithQueueDraft(draft xqueue.Draft) ExecuteOption {
	return func(o *executeOptions) {
		o.draft = &draft
	}
}

// WithFallbackContent 附加降级内容类型。连通性类失败且没有变更草稿时，
// GuardedExecute 返回降级内容而非错误。
func WithFallbackContent(contentType, contextKey string) ExecuteOption {
	return func(o *executeOptions) {
		o.contentType = contentType
		o.contextKey = contextKey
	}
}

// ExecuteResult 受保护执行的结果。
// 三种形态互斥：直接成功（零值）、入队确认（Queued）、降级内容（Degraded）。
type ExecuteResult struct {
	// Queued 操作因连通性失败已入队等待同步
	Queued bool

	// Operation 入队后的队列记录（仅 Queued 为 true 时有效）
	Operation xqueue.Operation

	// Degraded 返回的是降级内容
	Degraded bool

	// Content 降级内容文本（仅 Degraded 为 true 时有效）
	Content string
}

// GuardedExecute 在熔断器和重试执行器的保护下执行 op。
//
// op 成功时返回零值结果。失败时按类别处理：
//   - 校验、冲突等有明确语义的失败直接上抛
//   - 连通性类失败（瞬时网络、熔断打开、离线）优先消费附加的
//     变更草稿（入队并发布 OfflineOperationQueued），
//     其次消费附加的降级内容类型，两者都没有时上抛分类后的错误
func (e *Engine) GuardedExecute(ctx context.Context, service string, op func(ctx context.Context) error, opts ...ExecuteOption) (ExecuteResult, error) {
	if ctx == nil {
		return ExecuteResult{}, ErrNilContext
	}
	if op == nil {
		return ExecuteResult{}, ErrNilOperation
	}
	eo := &executeOptions{}
	for _, opt := range opts {
		opt(eo)
	}

	err := e.registry.Execute(ctx, service, func(ctx context.Context) error {
		return e.retryer.Do(ctx, op)
	}, nil)
	if err == nil {
		return ExecuteResult{}, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ExecuteResult{}, err
	}
	if !classifyGuardFailure(err) {
		return ExecuteResult{}, err
	}

	if eo.draft != nil {
		queued, qerr := e.queue.Enqueue(ctx, *eo.draft)
		if qerr != nil {
			e.log.Error("enqueue after guard failure",
				slog.String("service", service),
				slog.Any("error", qerr),
			)
			return ExecuteResult{}, xfault.Recovery(qerr)
		}
		e.bus.Publish(xevent.OfflineOperationQueued{Operation: queued})
		e.log.Info("operation queued offline",
			slog.String("service", service),
			slog.String("table", queued.Table),
			slog.Int64("id", queued.ID),
		)
		return ExecuteResult{Queued: true, Operation: queued}, nil
	}

	if eo.contentType != "" {
		return ExecuteResult{
			Degraded: true,
			Content:  e.fallback.Get(eo.contentType, eo.contextKey),
		}, nil
	}

	if xbreaker.IsBreakerError(err) {
		return ExecuteResult{}, xfault.Unavailable(service, err)
	}
	var fe *xfault.Error
	if errors.As(err, &fe) {
		return ExecuteResult{}, err
	}
	return ExecuteResult{}, xfault.Transient(err)
}
