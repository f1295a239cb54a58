package xevent

import (
	"log/slog"
	"sync"
)

// BusOption 配置事件总线的函数式选项
type BusOption func(*Bus)

// WithLogger 设置日志记录器，nil 时回退到 slog.Default()
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Handler 事件订阅回调
type Handler func(Event)

// Bus 进程内事件总线，并发安全。
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
}

// NewBus 创建事件总线。
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		logger: slog.Default(),
		subs:   make(map[int]Handler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe 注册订阅者，返回取消订阅函数。
// nil 回调返回空操作的取消函数。
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish 同步投递事件给全部订阅者。
// 订阅者 panic 会被捕获并记录，不会打断其余订阅者。
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		b.deliver(fn, ev)
	}
}

func (b *Bus) deliver(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				slog.String("event", ev.Name()),
				slog.Any("panic", r))
		}
	}()
	fn(ev)
}
