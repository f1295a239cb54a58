package xretry

import "errors"

var (
	// ErrNilRetryer 接收者为 nil
	ErrNilRetryer = errors.New("xretry: retryer cannot be nil")

	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xretry: context cannot be nil")

	// ErrNilFunc 传入的操作函数为 nil
	ErrNilFunc = errors.New("xretry: fn cannot be nil")
)
