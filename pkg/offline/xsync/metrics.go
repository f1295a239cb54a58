package xsync

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称常量
const (
	// metricNameSyncedTotal 同步成功的操作计数器
	metricNameSyncedTotal = "xsync.operations.synced"
	// metricNameFailedTotal 同步失败的操作计数器
	metricNameFailedTotal = "xsync.operations.failed"
	// metricNameConflictsTotal 检测到的冲突计数器
	metricNameConflictsTotal = "xsync.conflicts.detected"
	// metricNameDrainDuration 整轮排空耗时直方图
	metricNameDrainDuration = "xsync.drain.duration"
)

// Metrics 同步指标收集器
type Metrics struct {
	meter          metric.Meter
	syncedTotal    metric.Int64Counter
	failedTotal    metric.Int64Counter
	conflictsTotal metric.Int64Counter
	drainDuration  metric.Float64Histogram
}

// NewMetrics 创建指标收集器
// 如果 meterProvider 为 nil，返回 nil（不收集指标）
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xsync",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	syncedTotal, err := meter.Int64Counter(
		metricNameSyncedTotal,
		metric.WithDescription("同步成功的操作数"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	failedTotal, err := meter.Int64Counter(
		metricNameFailedTotal,
		metric.WithDescription("同步失败的操作数"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	conflictsTotal, err := meter.Int64Counter(
		metricNameConflictsTotal,
		metric.WithDescription("检测到的基线版本冲突数"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, err
	}

	drainDuration, err := meter.Float64Histogram(
		metricNameDrainDuration,
		metric.WithDescription("整轮排空耗时"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0,
		),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:          meter,
		syncedTotal:    syncedTotal,
		failedTotal:    failedTotal,
		conflictsTotal: conflictsTotal,
		drainDuration:  drainDuration,
	}, nil
}

// RecordOperation 记录单条操作的同步结局
// table: 操作所属业务表
// outcome: "synced"、"failed" 或 "conflict"
func (m *Metrics) RecordOperation(ctx context.Context, table, outcome string) {
	if m == nil {
		return
	}

	// 使用 context.WithoutCancel 确保即使 ctx 被取消，指标仍能记录
	metricsCtx := context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(
		attribute.String("table", table),
		attribute.String("outcome", outcome),
	)

	switch outcome {
	case "synced":
		m.syncedTotal.Add(metricsCtx, 1, attrs)
	case "failed":
		m.failedTotal.Add(metricsCtx, 1, attrs)
	case "conflict":
		m.conflictsTotal.Add(metricsCtx, 1, attrs)
		m.syncedTotal.Add(metricsCtx, 1, attrs)
	}
}

// RecordDrain 记录一轮排空的耗时与结局
func (m *Metrics) RecordDrain(ctx context.Context, duration time.Duration, aborted bool) {
	if m == nil {
		return
	}

	metricsCtx := context.WithoutCancel(ctx)
	m.drainDuration.Record(metricsCtx, duration.Seconds(), metric.WithAttributes(
		attribute.Bool("aborted", aborted),
	))
}
