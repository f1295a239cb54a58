package xsync

import "errors"

var (
	// ErrNilQueue 传入的队列为 nil
	ErrNilQueue = errors.New("xsync: queue cannot be nil")

	// ErrNilApplier 传入的应用端点为 nil
	ErrNilApplier = errors.New("xsync: applier cannot be nil")

	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xsync: context cannot be nil")

	// ErrAborted 排空因连通性丢失或熔断打开而中止
	ErrAborted = errors.New("xsync: sync aborted")

	// ErrNoResolver 收到冲突响应但未配置冲突解决器
	ErrNoResolver = errors.New("xsync: no conflict resolver configured")

	// ErrFollowUpConflict 冲突解决后的补写再次冲突
	ErrFollowUpConflict = errors.New("xsync: follow-up write conflicted again")
)
