package xid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	t.Run("default settings", func(t *testing.T) {
		gen, err := NewGenerator()
		require.NoError(t, err)
		assert.NotNil(t, gen)
	})

	t.Run("with custom machine id", func(t *testing.T) {
		gen, err := NewGenerator(WithMachineID(func() (int, error) {
			return 42, nil
		}))
		require.NoError(t, err)
		assert.NotNil(t, gen)
	})

	t.Run("with start time", func(t *testing.T) {
		gen, err := NewGenerator(WithStartTime(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		assert.NotNil(t, gen)
	})
}

func TestGenerator_Next(t *testing.T) {
	t.Run("monotonic increase", func(t *testing.T) {
		gen, err := NewGenerator()
		require.NoError(t, err)

		ctx := context.Background()
		var prev int64
		for i := 0; i < 100; i++ {
			id, err := gen.Next(ctx)
			require.NoError(t, err)
			assert.Greater(t, id, prev)
			prev = id
		}
	})

	t.Run("nil generator", func(t *testing.T) {
		var gen *Generator
		_, err := gen.Next(context.Background())
		assert.ErrorIs(t, err, ErrNilGenerator)
	})

	t.Run("nil context", func(t *testing.T) {
		gen, err := NewGenerator()
		require.NoError(t, err)
		_, err = gen.Next(nil) //nolint:staticcheck // 故意传 nil 验证防御
		assert.ErrorIs(t, err, ErrNilContext)
	})

	t.Run("canceled context", func(t *testing.T) {
		gen, err := NewGenerator()
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = gen.Next(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFormat(t *testing.T) {
	t.Run("fixed width", func(t *testing.T) {
		assert.Len(t, Format(1), formatWidth)
		assert.Len(t, Format(1<<62), formatWidth)
	})

	t.Run("lexicographic order matches numeric order", func(t *testing.T) {
		gen, err := NewGenerator()
		require.NoError(t, err)

		a, err := gen.Next(context.Background())
		require.NoError(t, err)
		b, err := gen.Next(context.Background())
		require.NoError(t, err)

		assert.Less(t, Format(a), Format(b))
	})

	t.Run("round trip", func(t *testing.T) {
		id, err := Parse(Format(123456789))
		require.NoError(t, err)
		assert.Equal(t, int64(123456789), id)
	})

	t.Run("parse garbage", func(t *testing.T) {
		_, err := Parse("not-a-number")
		assert.Error(t, err)
	})
}
