package xretry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryerDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds on first attempt", func(t *testing.T) {
		r := NewRetryer(WithBackoffPolicy(NewNoBackoff()))
		var calls int
		err := r.Do(ctx, func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient failures up to max attempts", func(t *testing.T) {
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetry(3)),
			WithBackoffPolicy(NewNoBackoff()),
		)
		boom := errors.New("boom")
		var calls int
		err := r.Do(ctx, func(context.Context) error {
			calls++
			return boom
		})
		assert.Equal(t, 3, calls)
		// 最终错误原样返回，不做包装
		assert.Equal(t, boom, err)
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetry(5)),
			WithBackoffPolicy(NewNoBackoff()),
		)
		var calls int
		err := r.Do(ctx, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetry(5)),
			WithBackoffPolicy(NewNoBackoff()),
		)
		var calls int
		err := r.Do(ctx, func(context.Context) error {
			calls++
			return NewPermanentError(errors.New("bad request"))
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("condition can veto retries", func(t *testing.T) {
		online := false
		r := NewRetryer(
			WithRetryPolicy(NewConditionalRetry(5, func(error, int) bool {
				return online
			})),
			WithBackoffPolicy(NewNoBackoff()),
		)
		var calls int
		err := r.Do(ctx, func(context.Context) error {
			calls++
			return errors.New("network down")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("on retry callback sees one-based attempts", func(t *testing.T) {
		var attempts []int
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetry(3)),
			WithBackoffPolicy(NewNoBackoff()),
			WithOnRetry(func(attempt int, _ error) {
				attempts = append(attempts, attempt)
			}),
		)
		_ = r.Do(ctx, func(context.Context) error {
			return errors.New("boom")
		})
		assert.Equal(t, []int{1, 2}, attempts)
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetry(10)),
			WithBackoffPolicy(NewNoBackoff()),
		)
		cctx, cancel := context.WithCancel(ctx)
		var calls int
		err := r.Do(cctx, func(context.Context) error {
			calls++
			cancel()
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("nil guards", func(t *testing.T) {
		var nilRetryer *Retryer
		assert.ErrorIs(t, nilRetryer.Do(ctx, func(context.Context) error { return nil }), ErrNilRetryer)

		r := NewRetryer()
		assert.ErrorIs(t, r.Do(nil, func(context.Context) error { return nil }), ErrNilContext) //nolint:staticcheck
		assert.ErrorIs(t, r.Do(ctx, nil), ErrNilFunc)
	})
}

func TestDoWithResult(t *testing.T) {
	ctx := context.Background()

	t.Run("returns value after retries", func(t *testing.T) {
		r := NewRetryer(
			WithRetryPolicy(NewFixedRetry(3)),
			WithBackoffPolicy(NewNoBackoff()),
		)
		var calls int
		v, err := DoWithResult(ctx, r, func(context.Context) (int, error) {
			calls++
			if calls < 2 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("nil retryer returns zero value", func(t *testing.T) {
		v, err := DoWithResult(ctx, nil, func(context.Context) (string, error) {
			return "x", nil
		})
		assert.ErrorIs(t, err, ErrNilRetryer)
		assert.Empty(t, v)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("unknown")))
	assert.False(t, IsRetryable(NewPermanentError(errors.New("bad"))))

	// 包装后的永久性错误仍可被识别
	wrapped := errors.Join(errors.New("outer"), NewPermanentError(errors.New("inner")))
	assert.False(t, IsRetryable(wrapped))
}

func TestNeverRetryPolicy(t *testing.T) {
	p := NewNeverRetry()
	assert.Equal(t, 1, p.MaxAttempts())
	assert.False(t, p.ShouldRetry(context.Background(), 1, errors.New("boom")))
}
