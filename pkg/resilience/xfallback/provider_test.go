package xfallback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, opts ...ProviderOption) *Provider {
	t.Helper()
	p, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestGet(t *testing.T) {
	p := newTestProvider(t)

	t.Run("static entry match", func(t *testing.T) {
		got := p.Get(ContentRiskExplanation, "high")
		assert.Contains(t, got, "high risk")
	})

	t.Run("unknown context key falls back to type default", func(t *testing.T) {
		got := p.Get(ContentRiskExplanation, "no-such-category")
		assert.Contains(t, got, "temporarily unavailable")
	})

	t.Run("unknown content type falls back to generic message", func(t *testing.T) {
		got := p.Get("no-such-type", "whatever")
		assert.Equal(t, genericMessage, got)
	})

	t.Run("never returns empty", func(t *testing.T) {
		for _, ct := range []string{ContentRiskExplanation, ContentMoodSupport, ContentMealSuggestion, "bogus"} {
			for _, key := range []string{"low", "1", "breakfast", ""} {
				assert.NotEmpty(t, p.Get(ct, key))
			}
		}
	})
}

func TestRemember(t *testing.T) {
	t.Run("remembered content wins over static table", func(t *testing.T) {
		p := newTestProvider(t)
		p.Remember(ContentMealSuggestion, "lunch", "fresh content from last successful call")
		p.Wait()

		assert.Equal(t, "fresh content from last successful call", p.Get(ContentMealSuggestion, "lunch"))
	})

	t.Run("empty value is ignored", func(t *testing.T) {
		p := newTestProvider(t)
		p.Remember(ContentMealSuggestion, "lunch", "")
		p.Wait()

		assert.Contains(t, p.Get(ContentMealSuggestion, "lunch"), "vegetables")
	})

	t.Run("expired content falls back to static table", func(t *testing.T) {
		p := newTestProvider(t, WithCacheTTL(10*time.Millisecond))
		p.Remember(ContentMoodSupport, "3", "short lived")
		p.Wait()

		time.Sleep(30 * time.Millisecond)
		assert.NotEqual(t, "short lived", p.Get(ContentMoodSupport, "3"))
	})
}

func TestOptions(t *testing.T) {
	t.Run("custom entry", func(t *testing.T) {
		p := newTestProvider(t, WithEntry("greeting", "morning", "Good morning"))
		assert.Equal(t, "Good morning", p.Get("greeting", "morning"))
	})

	t.Run("custom type default", func(t *testing.T) {
		p := newTestProvider(t, WithTypeDefault("greeting", "Hello"))
		assert.Equal(t, "Hello", p.Get("greeting", "anything"))
	})
}
