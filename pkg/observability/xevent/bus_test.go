package xevent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublish(t *testing.T) {
	t.Run("delivers to all subscribers in order of publish", func(t *testing.T) {
		b := NewBus()
		var got []Event
		b.Subscribe(func(ev Event) { got = append(got, ev) })

		b.Publish(SyncStarted{TotalOperations: 3})
		b.Publish(SyncCompleted{SyncedCount: 3})

		require.Len(t, got, 2)
		assert.Equal(t, "sync_started", got[0].Name())
		assert.Equal(t, "sync_completed", got[1].Name())
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		b := NewBus()
		var n int
		unsub := b.Subscribe(func(Event) { n++ })

		b.Publish(ConnectivityChanged{Online: true})
		unsub()
		unsub() // 幂等
		b.Publish(ConnectivityChanged{Online: false})

		assert.Equal(t, 1, n)
	})

	t.Run("panicking subscriber does not block others", func(t *testing.T) {
		b := NewBus()
		var n int
		b.Subscribe(func(Event) { panic("boom") })
		b.Subscribe(func(Event) { n++ })

		assert.NotPanics(t, func() {
			b.Publish(SyncFailed{Reason: "connectivity lost"})
		})
		assert.Equal(t, 1, n)
	})

	t.Run("nil event and nil handler are no-ops", func(t *testing.T) {
		b := NewBus()
		unsub := b.Subscribe(nil)
		assert.NotPanics(t, func() {
			b.Publish(nil)
			unsub()
		})
	})

	t.Run("concurrent publish and subscribe", func(t *testing.T) {
		b := NewBus()
		var mu sync.Mutex
		var n int
		b.Subscribe(func(Event) {
			mu.Lock()
			n++
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					b.Publish(SyncProgress{Completed: j, Total: 50})
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 8*50, n)
	})
}
