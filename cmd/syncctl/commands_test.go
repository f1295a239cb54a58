package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xconflict"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xqueue"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

func newTestStore(t *testing.T) xstore.Store {
	t.Helper()
	store, err := xstore.NewBadger(xstore.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func enqueue(t *testing.T, store xstore.Store, table, key string) xqueue.Operation {
	t.Helper()
	queue, err := xqueue.New(store)
	require.NoError(t, err)
	op, err := queue.Enqueue(context.Background(), xqueue.Draft{
		Table:     table,
		RecordKey: key,
		Kind:      xqueue.KindUpdate,
		Payload:   json.RawMessage(`{"value":5}`),
	})
	require.NoError(t, err)
	return op
}

func TestCmdPending(t *testing.T) {
	ctx := context.Background()

	t.Run("empty queue", func(t *testing.T) {
		store := newTestStore(t)
		var out bytes.Buffer
		require.NoError(t, cmdPending(ctx, &out, store))
		assert.Contains(t, out.String(), "队列为空")
	})

	t.Run("lists operations with counts", func(t *testing.T) {
		store := newTestStore(t)
		enqueue(t, store, "glucose_readings", "r1")
		enqueue(t, store, "moods", "m1")

		var out bytes.Buffer
		require.NoError(t, cmdPending(ctx, &out, store))
		assert.Contains(t, out.String(), "glucose_readings")
		assert.Contains(t, out.String(), "moods")
		assert.Contains(t, out.String(), "pending=2")
	})
}

func TestCmdConflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("no conflicts", func(t *testing.T) {
		store := newTestStore(t)
		var out bytes.Buffer
		require.NoError(t, cmdConflicts(ctx, &out, store, false))
		assert.Contains(t, out.String(), "没有冲突记录")
	})

	t.Run("lists and clears", func(t *testing.T) {
		store := newTestStore(t)
		resolver, err := xconflict.New(store)
		require.NoError(t, err)

		op := enqueue(t, store, "meals", "lunch-1")
		_, err = resolver.Resolve(ctx, op, json.RawMessage(`{"value":9}`))
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, cmdConflicts(ctx, &out, store, false))
		assert.Contains(t, out.String(), "meals")
		assert.Contains(t, out.String(), "共 1 条冲突")

		out.Reset()
		require.NoError(t, cmdConflicts(ctx, &out, store, true))
		assert.Contains(t, out.String(), "已清空 1 条冲突记录")

		out.Reset()
		require.NoError(t, cmdConflicts(ctx, &out, store, false))
		assert.Contains(t, out.String(), "没有冲突记录")
	})
}

func TestCmdMeta(t *testing.T) {
	ctx := context.Background()

	t.Run("never synced", func(t *testing.T) {
		store := newTestStore(t)
		var out bytes.Buffer
		require.NoError(t, cmdMeta(ctx, &out, store))
		assert.Contains(t, out.String(), "尚未执行过同步")
	})

	t.Run("renders persisted metadata", func(t *testing.T) {
		store := newTestStore(t)
		md := map[string]any{
			"last_sync_at":   time.Now().UTC().Format(time.RFC3339Nano),
			"synced_count":   7,
			"failed_count":   1,
			"conflict_count": 2,
			"pending_count":  3,
			"aborted":        true,
			"abort_reason":   "connectivity lost",
		}
		data, err := json.Marshal(md)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, "sync/metadata", data))

		var out bytes.Buffer
		require.NoError(t, cmdMeta(ctx, &out, store))
		assert.Contains(t, out.String(), "已同步:     7")
		assert.Contains(t, out.String(), "connectivity lost")
	})
}

func TestCmdBreakers(t *testing.T) {
	ctx := context.Background()

	t.Run("no snapshots", func(t *testing.T) {
		store := newTestStore(t)
		var out bytes.Buffer
		require.NoError(t, cmdBreakers(ctx, &out, store))
		assert.Contains(t, out.String(), "没有熔断器快照")
	})

	t.Run("lists snapshots", func(t *testing.T) {
		store := newTestStore(t)
		snap := map[string]any{
			"service":    "remote",
			"state":      "open",
			"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
		}
		data, err := json.Marshal(snap)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, "breaker/remote", data))

		var out bytes.Buffer
		require.NoError(t, cmdBreakers(ctx, &out, store))
		assert.Contains(t, out.String(), "remote")
		assert.Contains(t, out.String(), "open")
	})
}

func TestCmdPurge(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing to purge", func(t *testing.T) {
		store := newTestStore(t)
		enqueue(t, store, "moods", "m1")

		var out bytes.Buffer
		require.NoError(t, cmdPurge(ctx, &out, store, time.Hour))
		assert.Contains(t, out.String(), "已标记 0 条过期操作")
	})

	t.Run("purges stale operations", func(t *testing.T) {
		store := newTestStore(t)
		queue, err := xqueue.New(store, xqueue.WithClock(func() time.Time {
			return time.Now().Add(-time.Hour)
		}))
		require.NoError(t, err)
		_, err = queue.Enqueue(ctx, xqueue.Draft{
			Table:     "moods",
			RecordKey: "m1",
			Kind:      xqueue.KindCreate,
			Payload:   json.RawMessage(`{"level":3}`),
		})
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, cmdPurge(ctx, &out, store, 30*time.Minute))
		assert.Contains(t, out.String(), "已标记 1 条过期操作")
	})
}

func TestUsageErrors(t *testing.T) {
	t.Run("missing data dir maps to exit 2", func(t *testing.T) {
		app := createApp()
		err := app.Run(context.Background(), []string{"syncctl", "pending"})
		var ue *usageError
		require.ErrorAs(t, err, &ue)
	})
}
