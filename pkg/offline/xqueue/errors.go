package xqueue

import "errors"

var (
	// ErrNilStore 传入的存储为 nil
	ErrNilStore = errors.New("xqueue: store cannot be nil")

	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xqueue: context cannot be nil")

	// ErrNotFound 指定 ID 的操作不存在
	ErrNotFound = errors.New("xqueue: operation not found")

	// ErrInvalidDraft 入队请求缺少必填字段或变更类型非法
	ErrInvalidDraft = errors.New("xqueue: invalid draft")

	// ErrInvalidLimit 批次大小必须为正数
	ErrInvalidLimit = errors.New("xqueue: limit must be positive")

	// ErrInvalidTTL TTL 必须为正数
	ErrInvalidTTL = errors.New("xqueue: ttl must be positive")

	// ErrNotInFlight 操作不处于 in-flight 状态，不能做该状态迁移
	ErrNotInFlight = errors.New("xqueue: operation is not in-flight")
)
