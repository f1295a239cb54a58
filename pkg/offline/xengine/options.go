package xengine

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xconflict"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xnet"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xbreaker"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xfallback"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xretry"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

// Option 配置 Engine 的选项函数
type Option func(*engineOptions)

type engineOptions struct {
	logger        *slog.Logger
	store         xstore.Store
	prober        xnet.Prober
	registry      *xbreaker.Registry
	retryer       *xretry.Retryer
	fallback      *xfallback.Provider
	strategy      xconflict.Strategy
	meterProvider metric.MeterProvider
	tracer        trace.TracerProvider
}

// WithLogger 设置日志记录器，默认 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStore 注入外部存储。引擎不负责关闭外部注入的存储。
// 未注入时引擎按 Config.DataDir 自建 badger 存储并在 Close 时关闭。
func WithStore(store xstore.Store) Option {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithProber 设置连通性探测器。优先于 Config.ProbeURL。
func WithProber(p xnet.Prober) Option {
	return func(o *engineOptions) {
		o.prober = p
	}
}

// WithRegistry 注入外部熔断注册表。
// 注入后引擎不再接管状态变化事件的发布。
func WithRegistry(r *xbreaker.Registry) Option {
	return func(o *engineOptions) {
		o.registry = r
	}
}

// WithRetryer 注入外部重试执行器，默认使用指数退避。
func WithRetryer(r *xretry.Retryer) Option {
	return func(o *engineOptions) {
		o.retryer = r
	}
}

// WithFallbackProvider 注入外部降级内容提供器。
func WithFallbackProvider(p *xfallback.Provider) Option {
	return func(o *engineOptions) {
		o.fallback = p
	}
}

// WithConflictStrategy 设置冲突解决策略，默认服务端优先。
func WithConflictStrategy(s xconflict.Strategy) Option {
	return func(o *engineOptions) {
		o.strategy = s
	}
}

// WithMeterProvider 启用同步指标上报。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *engineOptions) {
		o.meterProvider = mp
	}
}

// WithTracerProvider 启用排空过程的链路追踪。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *engineOptions) {
		o.tracer = tp
	}
}
