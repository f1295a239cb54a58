package xfallback

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// 内置内容类型
const (
	// ContentRiskExplanation 健康风险解读，按风险档位索引
	ContentRiskExplanation = "risk_explanation"

	// ContentMoodSupport 情绪支持文案，按情绪等级索引
	ContentMoodSupport = "mood_support"

	// ContentMealSuggestion 膳食建议
	ContentMealSuggestion = "meal_suggestion"
)

// genericMessage 所有查找都未命中时的最终兜底
const genericMessage = "This information is temporarily unavailable. Your data is safe and will sync when the connection is restored."

const (
	defaultCacheSize = 1 << 20 // 1 MiB 成本上限
	defaultCacheTTL  = time.Hour
)

// ProviderOption 配置降级内容提供者的函数式选项
type ProviderOption func(*Provider)

// WithEntry 覆盖或新增一条静态内容
func WithEntry(contentType, contextKey, value string) ProviderOption {
	return func(p *Provider) {
		table, ok := p.static[contentType]
		if !ok {
			table = make(map[string]string)
			p.static[contentType] = table
		}
		table[contextKey] = value
	}
}

// WithTypeDefault 设置某一内容类型的默认文案，
// 该类型下无匹配的上下文键时使用。
func WithTypeDefault(contentType, value string) ProviderOption {
	return func(p *Provider) {
		p.typeDefaults[contentType] = value
	}
}

// WithCacheTTL 设置记住的真实内容的过期时间
func WithCacheTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) {
		if ttl > 0 {
			p.cacheTTL = ttl
		}
	}
}

// Provider 降级内容提供者，并发安全。
type Provider struct {
	static       map[string]map[string]string
	typeDefaults map[string]string
	cacheTTL     time.Duration
	cache        *ristretto.Cache[string, string]
}

// New 创建降级内容提供者，内置一套默认静态内容。
func New(opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		static:       defaultStaticTable(),
		typeDefaults: defaultTypeDefaults(),
		cacheTTL:     defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(p)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 1e4,
		MaxCost:     defaultCacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("xfallback: create cache: %w", err)
	}
	p.cache = cache
	return p, nil
}

// Get 返回指定内容类型与上下文键的降级内容。
// 永不失败：未命中任何条目时返回通用提示。
func (p *Provider) Get(contentType, contextKey string) string {
	if v, ok := p.cache.Get(cacheKey(contentType, contextKey)); ok {
		return v
	}
	if table, ok := p.static[contentType]; ok {
		if v, ok := table[contextKey]; ok {
			return v
		}
	}
	if v, ok := p.typeDefaults[contentType]; ok {
		return v
	}
	return genericMessage
}

// Remember 缓存一条最近成功获取的真实内容，
// 后续同键的 Get 优先返回它，直到过期。
// ristretto 的写入是异步的，刚写入的值可能短暂不可见。
func (p *Provider) Remember(contentType, contextKey, value string) {
	if value == "" {
		return
	}
	p.cache.SetWithTTL(cacheKey(contentType, contextKey), value, int64(len(value)), p.cacheTTL)
}

// Close 释放缓存资源。
func (p *Provider) Close() {
	p.cache.Close()
}

// Wait 等待缓存写入生效，仅测试使用。
func (p *Provider) Wait() {
	p.cache.Wait()
}

func cacheKey(contentType, contextKey string) string {
	return contentType + "/" + contextKey
}

func defaultStaticTable() map[string]map[string]string {
	return map[string]map[string]string{
		ContentRiskExplanation: {
			"low":      "Your assessment indicates a low risk. Keep up your current habits and re-test periodically.",
			"moderate": "Your assessment indicates a moderate risk. Small changes to diet and activity can make a real difference.",
			"high":     "Your assessment indicates a high risk. Consider discussing these results with a healthcare professional.",
			"critical": "Your assessment indicates a very high risk. Please consult a healthcare professional soon.",
		},
		ContentMoodSupport: {
			"1": "Rough days happen. Be kind to yourself, and consider reaching out to someone you trust.",
			"2": "It sounds like a difficult moment. A short walk or a few deep breaths can help.",
			"3": "A steady day. Logging how you feel is already a good step.",
			"4": "Glad you are feeling good. Notice what contributed to it today.",
			"5": "Wonderful! Celebrate what is working and keep it going.",
		},
		ContentMealSuggestion: {
			"breakfast": "A balanced breakfast with protein, fiber and healthy fats helps keep glucose steady through the morning.",
			"lunch":     "For lunch, aim for half vegetables, a quarter lean protein and a quarter whole grains.",
			"dinner":    "A lighter dinner eaten earlier in the evening supports better overnight glucose control.",
			"snack":     "Pair carbohydrates with protein or fat, like an apple with a handful of nuts.",
		},
	}
}

func defaultTypeDefaults() map[string]string {
	return map[string]string{
		ContentRiskExplanation: "Personalized insights are temporarily unavailable. General guidance: balanced meals, regular activity and good sleep all lower diabetes risk.",
		ContentMoodSupport:     "Tracking your mood helps you understand your patterns. Detailed support content will return once you are back online.",
		ContentMealSuggestion:  "Detailed meal plans are temporarily unavailable. Favor vegetables, lean protein and whole grains.",
	}
}
