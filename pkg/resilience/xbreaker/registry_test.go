package xbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

func TestRegistryExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("creates breaker lazily per service", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Execute(ctx, "remote", func(context.Context) error { return nil }, nil))
		require.NoError(t, r.Execute(ctx, "storage", func(context.Context) error { return nil }, nil))

		assert.Equal(t, []string{"remote", "storage"}, r.Services())
		assert.Same(t, r.Breaker("remote"), r.Breaker("remote"))
	})

	t.Run("failure invokes fallback after bookkeeping", func(t *testing.T) {
		r := NewRegistry()
		var usedFallback bool
		err := r.Execute(ctx, "remote",
			func(context.Context) error { return errors.New("boom") },
			func(context.Context) error {
				usedFallback = true
				return nil
			})
		require.NoError(t, err)
		assert.True(t, usedFallback)
		assert.Equal(t, uint32(1), r.Breaker("remote").Counts().TotalFailures)
	})

	t.Run("open breaker skips operation and uses fallback", func(t *testing.T) {
		r := NewRegistry(WithDefaults(WithTripPolicy(NewConsecutiveFailures(1))))
		require.Error(t, r.Execute(ctx, "remote",
			func(context.Context) error { return errors.New("boom") }, nil))
		require.Equal(t, StateOpen, r.Breaker("remote").State())

		var opCalls, fallbackCalls int
		err := r.Execute(ctx, "remote",
			func(context.Context) error {
				opCalls++
				return nil
			},
			func(context.Context) error {
				fallbackCalls++
				return nil
			})
		require.NoError(t, err)
		assert.Zero(t, opCalls)
		assert.Equal(t, 1, fallbackCalls)
	})

	t.Run("open breaker without fallback surfaces breaker error", func(t *testing.T) {
		r := NewRegistry(WithDefaults(WithTripPolicy(NewConsecutiveFailures(1))))
		require.Error(t, r.Execute(ctx, "remote",
			func(context.Context) error { return errors.New("boom") }, nil))

		err := r.Execute(ctx, "remote", func(context.Context) error { return nil }, nil)
		assert.True(t, IsOpen(err))
	})

	t.Run("argument validation", func(t *testing.T) {
		r := NewRegistry()
		assert.ErrorIs(t, r.Execute(ctx, "", func(context.Context) error { return nil }, nil), ErrEmptyService)
		assert.ErrorIs(t, r.Execute(ctx, "svc", nil, nil), ErrNilFunc)

		var nilRegistry *Registry
		assert.ErrorIs(t, nilRegistry.Execute(ctx, "svc", func(context.Context) error { return nil }, nil), ErrNilRegistry)
	})

	t.Run("concurrent access to same service", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = r.Execute(ctx, "remote", func(context.Context) error { return nil }, nil)
			}()
		}
		wg.Wait()
		assert.Len(t, r.Services(), 1)
	})
}

func TestExecuteWithResult(t *testing.T) {
	ctx := context.Background()

	t.Run("result flows through", func(t *testing.T) {
		r := NewRegistry()
		v, err := ExecuteWithResult(ctx, r, "remote",
			func(context.Context) (int, error) { return 7, nil }, nil)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("fallback value on failure", func(t *testing.T) {
		r := NewRegistry()
		v, err := ExecuteWithResult(ctx, r, "remote",
			func(context.Context) (string, error) { return "", errors.New("boom") },
			func(context.Context) (string, error) { return "degraded", nil })
		require.NoError(t, err)
		assert.Equal(t, "degraded", v)
	})
}

func TestRegistrySnapshots(t *testing.T) {
	ctx := context.Background()

	st, err := xstore.NewBadger(xstore.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	var hookCalls int
	r := NewRegistry(
		WithStore(st),
		WithDefaults(WithTripPolicy(NewConsecutiveFailures(1))),
		WithStateChangeHook(func(service string, from, to State) {
			hookCalls++
			assert.Equal(t, "remote", service)
			assert.Equal(t, StateClosed, from)
			assert.Equal(t, StateOpen, to)
		}),
	)
	require.Error(t, r.Execute(ctx, "remote",
		func(context.Context) error { return errors.New("boom") }, nil))

	assert.Equal(t, 1, hookCalls)

	snaps, err := LoadSnapshots(ctx, st)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "remote", snaps[0].Service)
	assert.Equal(t, StateOpen.String(), snaps[0].State)
	assert.False(t, snaps[0].UpdatedAt.IsZero())
}
