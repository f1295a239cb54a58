package xengine

import "errors"

var (
	// ErrNilApplier 同步下发器为 nil
	ErrNilApplier = errors.New("xengine: applier cannot be nil")

	// ErrNilContext context 参数为 nil
	ErrNilContext = errors.New("xengine: context cannot be nil")

	// ErrNilOperation 受保护执行的操作函数为 nil
	ErrNilOperation = errors.New("xengine: operation cannot be nil")

	// ErrInvalidConfig 配置校验失败
	ErrInvalidConfig = errors.New("xengine: invalid config")
)
