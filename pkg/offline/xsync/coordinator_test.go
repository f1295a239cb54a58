package xsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/observability/xevent"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xconflict"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xfault"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xqueue"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xretry"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	store    xstore.Store
	queue    *xqueue.Queue
	resolver *xconflict.Resolver
	bus      *xevent.Bus
	events   *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []xevent.Event
}

func (l *eventLog) record(ev xevent.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Name()
	}
	return out
}

func newFixture(t *testing.T, strategy xconflict.Strategy) *fixture {
	t.Helper()
	st, err := xstore.NewBadger(xstore.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	q, err := xqueue.New(st)
	require.NoError(t, err)

	resolver, err := xconflict.New(st, xconflict.WithStrategy(strategy))
	require.NoError(t, err)

	log := &eventLog{}
	bus := xevent.NewBus()
	bus.Subscribe(log.record)

	return &fixture{store: st, queue: q, resolver: resolver, bus: bus, events: log}
}

func (f *fixture) coordinator(t *testing.T, applier Applier, opts ...CoordinatorOption) *Coordinator {
	t.Helper()
	base := []CoordinatorOption{
		WithResolver(f.resolver),
		WithBus(f.bus),
		WithStore(f.store),
		WithRetryer(xretry.NewRetryer(
			xretry.WithRetryPolicy(xretry.NewFixedRetry(1)),
			xretry.WithBackoffPolicy(xretry.NewNoBackoff()),
		)),
	}
	c, err := New(f.queue, applier, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func enqueue(t *testing.T, q *xqueue.Queue, table, key string) xqueue.Operation {
	t.Helper()
	op, err := q.Enqueue(context.Background(), xqueue.Draft{
		Table:           table,
		RecordKey:       key,
		Kind:            xqueue.KindUpdate,
		Payload:         json.RawMessage(`{"value":1}`),
		BaselineVersion: "v1",
	})
	require.NoError(t, err)
	return op
}

func applied() ApplyResult {
	return ApplyResult{Status: StatusApplied}
}

func TestSyncHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, xconflict.StrategyServerWins)

	for _, key := range []string{"a", "b", "c"} {
		enqueue(t, f.queue, "glucose_readings", key)
	}

	var mu sync.Mutex
	var appliedOps []int64
	c := f.coordinator(t, ApplierFunc(func(_ context.Context, op xqueue.Operation) (ApplyResult, error) {
		mu.Lock()
		appliedOps = append(appliedOps, op.ID)
		mu.Unlock()
		return applied(), nil
	}))

	res, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{SyncedCount: 3}, res)
	assert.Len(t, appliedOps, 3)

	counts, err := f.queue.Count(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	assert.Equal(t, []string{
		"sync_started",
		"operation_synced", "operation_synced", "operation_synced",
		"sync_progress",
		"sync_completed",
	}, f.events.names())

	md, err := LoadMetadata(ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, 3, md.SyncedCount)
	assert.Zero(t, md.PendingCount)
	assert.False(t, md.Aborted)
}

func TestSyncEmptyQueue(t *testing.T) {
	f := newFixture(t, xconflict.StrategyServerWins)
	c := f.coordinator(t, ApplierFunc(func(context.Context, xqueue.Operation) (ApplyResult, error) {
		return applied(), nil
	}))

	res, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res)
	assert.Equal(t, []string{"sync_started", "sync_completed"}, f.events.names())
}

func TestSyncReentrancy(t *testing.T) {
	f := newFixture(t, xconflict.StrategyServerWins)
	enqueue(t, f.queue, "moods", "m1")

	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	c := f.coordinator(t, ApplierFunc(func(context.Context, xqueue.Operation) (ApplyResult, error) {
		once.Do(func() { close(entered) })
		<-release
		return applied(), nil
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Sync(context.Background())
	}()

	<-entered
	assert.True(t, c.Draining())
	res, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res)

	close(release)
	<-done
	assert.False(t, c.Draining())
}

func TestSyncConflictServerWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, xconflict.StrategyServerWins)
	op := enqueue(t, f.queue, "glucose_readings", "r1")

	var applies int
	c := f.coordinator(t, ApplierFunc(func(context.Context, xqueue.Operation) (ApplyResult, error) {
		applies++
		return ApplyResult{
			Status:         StatusConflict,
			Record:         json.RawMessage(`{"value":99}`),
			CurrentVersion: "v2",
		}, nil
	}))

	res, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{SyncedCount: 1, ConflictCount: 1}, res)
	// server wins 无须补写
	assert.Equal(t, 1, applies)

	_, err = f.queue.Get(ctx, op.ID)
	assert.ErrorIs(t, err, xqueue.ErrNotFound)

	conflicts, err := f.resolver.List(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.True(t, conflicts[0].Resolved)
	assert.Contains(t, f.events.names(), "conflict_detected")
}

func TestSyncConflictClientWinsFollowUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, xconflict.StrategyClientWins)
	enqueue(t, f.queue, "glucose_readings", "r1")

	var mu sync.Mutex
	var baselines []string
	c := f.coordinator(t, ApplierFunc(func(_ context.Context, op xqueue.Operation) (ApplyResult, error) {
		mu.Lock()
		defer mu.Unlock()
		baselines = append(baselines, op.BaselineVersion)
		if len(baselines) == 1 {
			return ApplyResult{
				Status:         StatusConflict,
				Record:         json.RawMessage(`{"value":99}`),
				CurrentVersion: "v2",
			}, nil
		}
		return applied(), nil
	}))

	res, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{SyncedCount: 1, ConflictCount: 1}, res)
	// 补写带服务端当前版本作为新基线
	assert.Equal(t, []string{"v1", "v2"}, baselines)
}

func TestSyncOperationFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, xconflict.StrategyServerWins)
	bad := enqueue(t, f.queue, "moods", "m1")
	blocked := enqueue(t, f.queue, "moods", "m1")
	good := enqueue(t, f.queue, "moods", "m2")

	c := f.coordinator(t, ApplierFunc(func(_ context.Context, op xqueue.Operation) (ApplyResult, error) {
		if op.ID == bad.ID {
			return ApplyResult{}, xfault.Validation(errors.New("bad payload"), map[string]string{"value": "required"})
		}
		return applied(), nil
	}))

	res, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{SyncedCount: 1, FailedCount: 1}, res)

	got, err := f.queue.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, xqueue.StatusFailed, got.Status)
	assert.Equal(t, xfault.KindValidation.String(), got.FailureKind)

	// 同一记录的后续操作保持 pending，不同记录的操作正常同步
	got, err = f.queue.Get(ctx, blocked.ID)
	require.NoError(t, err)
	assert.Equal(t, xqueue.StatusPending, got.Status)
	_, err = f.queue.Get(ctx, good.ID)
	assert.ErrorIs(t, err, xqueue.ErrNotFound)

	assert.Contains(t, f.events.names(), "operation_failed")
}

func TestSyncAbortOnConnectivityLoss(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, xconflict.StrategyServerWins)
	enqueue(t, f.queue, "meals", "a")
	enqueue(t, f.queue, "meals", "b")
	enqueue(t, f.queue, "meals", "c")

	var online = true
	var applies int
	c := f.coordinator(t, ApplierFunc(func(context.Context, xqueue.Operation) (ApplyResult, error) {
		applies++
		online = false // 首条同步后断网
		return applied(), nil
	}), WithOnline(func() bool { return online }))

	res, err := c.Sync(ctx)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 1, res.SyncedCount)
	assert.Equal(t, 1, applies)

	// 剩余操作回滚到 pending，下一轮重试
	counts, err := f.queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[xqueue.StatusPending])
	assert.Zero(t, counts[xqueue.StatusInFlight])

	assert.Contains(t, f.events.names(), "sync_failed")

	md, err := LoadMetadata(ctx, f.store)
	require.NoError(t, err)
	assert.True(t, md.Aborted)
	assert.Equal(t, "connectivity lost", md.AbortReason)
}

func TestSyncRequeuesPriorFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, xconflict.StrategyServerWins)
	op := enqueue(t, f.queue, "meals", "a")

	// 人为制造一次失败，下一轮应自动重新入队
	_, err := f.queue.DequeueBatch(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, f.queue.MarkFailed(ctx, op.ID, errors.New("boom"), xfault.KindTransient.String()))

	c := f.coordinator(t, ApplierFunc(func(context.Context, xqueue.Operation) (ApplyResult, error) {
		return applied(), nil
	}))

	res, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{SyncedCount: 1}, res)
}

func TestSyncRecoversStrandedInFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, xconflict.StrategyServerWins)
	enqueue(t, f.queue, "glucose_readings", "r1")

	// 模拟进程在同步中途退出：操作已取出但从未落账
	stranded, err := f.queue.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stranded, 1)

	var mu sync.Mutex
	var appliedOps []int64
	c := f.coordinator(t, ApplierFunc(func(_ context.Context, op xqueue.Operation) (ApplyResult, error) {
		mu.Lock()
		appliedOps = append(appliedOps, op.ID)
		mu.Unlock()
		return applied(), nil
	}))

	res, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{SyncedCount: 1}, res)
	assert.Equal(t, []int64{stranded[0].ID}, appliedOps)

	counts, err := f.queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[xqueue.StatusInFlight])
}

// failDeleteStore 在第一次 Delete 时报错，模拟落账阶段的存储故障。
type failDeleteStore struct {
	xstore.Store
	failed bool
}

func (s *failDeleteStore) Delete(ctx context.Context, key string) error {
	if !s.failed {
		s.failed = true
		return errors.New("disk full")
	}
	return s.Store.Delete(ctx, key)
}

func TestSyncAbortsOnBookkeepingFailure(t *testing.T) {
	ctx := context.Background()
	st, err := xstore.NewBadger(xstore.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	flaky := &failDeleteStore{Store: st}
	q, err := xqueue.New(flaky)
	require.NoError(t, err)
	op, err := q.Enqueue(ctx, xqueue.Draft{
		Table:     "moods",
		RecordKey: "m1",
		Kind:      xqueue.KindCreate,
		Payload:   json.RawMessage(`{"level":3}`),
	})
	require.NoError(t, err)

	c, err := New(q, ApplierFunc(func(context.Context, xqueue.Operation) (ApplyResult, error) {
		return applied(), nil
	}))
	require.NoError(t, err)

	_, err = c.Sync(ctx)
	assert.ErrorIs(t, err, ErrAborted)

	// 远端已应用但本地删除失败的操作不能留在 in-flight
	got, err := q.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, xqueue.StatusPending, got.Status)
}

func TestLoadMetadataMissing(t *testing.T) {
	st, err := xstore.NewBadger(xstore.WithInMemory())
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	md, err := LoadMetadata(context.Background(), st)
	require.NoError(t, err)
	assert.Zero(t, md)
}
