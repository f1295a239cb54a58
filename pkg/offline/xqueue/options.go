package xqueue

import (
	"log/slog"
	"time"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/util/xid"
)

// QueueOption 配置离线队列的函数式选项
type QueueOption func(*Queue)

// WithLogger 设置日志记录器，nil 时回退到 slog.Default()
func WithLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithGenerator 设置操作 ID 生成器，默认使用 xid.NewGenerator 的缺省配置
func WithGenerator(gen *xid.Generator) QueueOption {
	return func(q *Queue) {
		if gen != nil {
			q.gen = gen
		}
	}
}

// WithClock 设置时钟函数，仅测试使用
func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithOnExpire 设置操作过期回调。
// PurgeExpired 删除一条过期操作后同步调用该回调，
// 回调内不得再调用队列方法，否则会死锁。
func WithOnExpire(fn func(op Operation)) QueueOption {
	return func(q *Queue) {
		q.onExpire = fn
	}
}
