package xstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"context"

	"github.com/dgraph-io/badger/v4"
)

// 编译时接口检查
var _ Store = (*badgerStore)(nil)

// BadgerOption BadgerDB 存储配置选项
type BadgerOption func(*badgerOptions)

type badgerOptions struct {
	dir        string
	inMemory   bool
	syncWrites bool
	logger     *slog.Logger
}

// WithDir 设置数据目录。持久化模式下必须设置。
func WithDir(dir string) BadgerOption {
	return func(o *badgerOptions) {
		o.dir = dir
	}
}

// WithInMemory 启用内存模式（不落盘）。
// 仅用于测试；内存模式下数据不会跨重启存活。
func WithInMemory() BadgerOption {
	return func(o *badgerOptions) {
		o.inMemory = true
	}
}

// WithSyncWrites 设置是否同步写盘。
// 默认开启：队列里的操作是用户尚未同步的数据，丢失即数据丢失。
func WithSyncWrites(sync bool) BadgerOption {
	return func(o *badgerOptions) {
		o.syncWrites = sync
	}
}

// WithLogger 设置日志记录器。
// 传入 nil 时禁用 Badger 内部日志（其输出过于冗长）。
func WithLogger(logger *slog.Logger) BadgerOption {
	return func(o *badgerOptions) {
		o.logger = logger
	}
}

// badgerStore Store 接口的 BadgerDB 实现
type badgerStore struct {
	db     *badger.DB
	closed atomic.Bool
}

// NewBadger 创建 BadgerDB 存储。
// 未启用内存模式且未设置数据目录时返回错误。
func NewBadger(opts ...BadgerOption) (Store, error) {
	o := &badgerOptions{syncWrites: true}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	var bopts badger.Options
	if o.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if o.dir == "" {
			return nil, fmt.Errorf("xstore: dir is required for persistent store")
		}
		bopts = badger.DefaultOptions(o.dir).WithSyncWrites(o.syncWrites)
	}
	bopts = bopts.WithNumVersionsToKeep(1)

	if o.logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: o.logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("xstore: open badger: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(ctx, key); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("xstore: get %s: %w", key, err)
	}
	return value, nil
}

func (s *badgerStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("xstore: put %s: %w", key, err)
	}
	return nil
}

func (s *badgerStore) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("xstore: delete %s: %w", key, err)
	}
	return nil
}

func (s *badgerStore) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	if s.closed.Load() {
		return ErrClosed
	}

	return s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = []byte(prefix)
		it := txn.NewIterator(iopts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("xstore: scan %s: %w", prefix, err)
			}
			if err := fn(string(item.Key()), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close 关闭存储。幂等：重复关闭返回 nil。
func (s *badgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *badgerStore) check(ctx context.Context, key string) error {
	if ctx == nil {
		return ErrNilContext
	}
	if key == "" {
		return ErrInvalidKey
	}
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

// badgerLogger 将 slog.Logger 适配到 Badger 的 Logger 接口。
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
