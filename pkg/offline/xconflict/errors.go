package xconflict

import "errors"

var (
	// ErrNilStore 传入的存储为 nil
	ErrNilStore = errors.New("xconflict: store cannot be nil")

	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xconflict: context cannot be nil")

	// ErrNotFound 指定 ID 的冲突记录不存在
	ErrNotFound = errors.New("xconflict: conflict not found")

	// ErrUnknownStrategy 未知的解决策略
	ErrUnknownStrategy = errors.New("xconflict: unknown strategy")

	// ErrInvalidPayload 客户端或服务端数据不是合法 JSON
	ErrInvalidPayload = errors.New("xconflict: invalid payload")
)
