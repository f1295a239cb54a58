package xstore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound key 不存在。
	// 调用方用 errors.Is 判断"不存在"并走正常控制流，而非异常路径。
	ErrNotFound = errors.New("xstore: key not found")

	// ErrClosed 存储已关闭。
	ErrClosed = errors.New("xstore: store is closed")

	// ErrInvalidKey key 为空字符串。
	ErrInvalidKey = errors.New("xstore: key cannot be empty")

	// ErrNilContext context 参数为 nil。
	ErrNilContext = errors.New("xstore: context cannot be nil")

	// ErrNilFunc 回调函数为 nil。
	ErrNilFunc = errors.New("xstore: callback cannot be nil")
)

// Store 定义持久化 key/record 存储接口。
// 所有实现必须并发安全，且数据在进程重启后仍然可读。
type Store interface {
	io.Closer

	// Get 读取 key 对应的值。key 不存在时返回 ErrNotFound。
	// 返回的切片是副本，调用方可自由修改。
	Get(ctx context.Context, key string) ([]byte, error)

	// Put 写入键值对，已存在时覆盖。
	Put(ctx context.Context, key string, value []byte) error

	// Delete 删除 key。key 不存在时不报错（删除是幂等的）。
	Delete(ctx context.Context, key string) error

	// Scan 按字典序遍历指定前缀下的所有键值对。
	// fn 返回非 nil 错误时停止遍历并原样返回该错误。
	// 遍历期间看到的是一致性快照。
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error
}
