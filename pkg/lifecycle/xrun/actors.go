package xrun

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSignals 返回默认监听的系统信号列表。
//
// 包含 SIGHUP、SIGINT、SIGTERM、SIGQUIT。注意 SIGHUP 在终端断开
// （如 SSH 断连）时会触发，容器化部署中通常无此问题。如需排除 SIGHUP，
// 可通过 [WithSignals] 自定义信号列表。
//
// 每次调用返回新的切片，调用者可安全修改。
func DefaultSignals() []os.Signal {
	return []os.Signal{
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	}
}

// testSigChanKey 用于在测试中通过 context 注入信号通道，
// 避免在测试中发送真实系统信号。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, ok := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	if !ok {
		return nil
	}
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// Ticker 返回周期性执行任务的服务函数。
//
// interval 必须为正数，否则返回的服务函数会返回 ErrInvalidInterval。
// fn 会在每个周期执行。当 ctx 被取消时，返回 ctx.Err()。
// immediate 为 true 时，会在启动时立即执行一次。
//
// 示例：
//
//	g.Go(xrun.Ticker(time.Minute, true, func(ctx context.Context) error {
//	    return doPeriodicWork(ctx)
//	}))
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}

		// 已取消的 context 不触发业务副作用
		if immediate {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Timer 返回延迟执行一次任务的服务函数。
//
// delay 不能为负数，否则返回的服务函数会返回 ErrInvalidDelay。
// delay 为 0 时表示立即执行。当 ctx 被取消时，返回 ctx.Err()。
func Timer(delay time.Duration, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if delay < 0 {
			return ErrInvalidDelay
		}
		if fn == nil {
			return ErrNilFunc
		}
		if delay == 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fn(ctx)
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			return fn(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// scheduleParser 支持标准五字段 cron 表达式及 @every/@hourly 等描述符。
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule 返回按 cron 表达式执行任务的服务函数。
//
// spec 支持标准五字段 cron 表达式（如 "0 3 * * *"）和描述符
// （如 "@every 1m"、"@hourly"）。表达式无效时返回的服务函数
// 会返回 ErrInvalidSchedule。当 ctx 被取消时，返回 ctx.Err()。
//
// 示例：
//
//	g.Go(xrun.Schedule("@every 5m", func(ctx context.Context) error {
//	    return purgeExpired(ctx)
//	}))
func Schedule(spec string, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if fn == nil {
			return ErrNilFunc
		}
		sched, err := scheduleParser.Parse(spec)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
		}

		for {
			next := sched.Next(time.Now())
			timer := time.NewTimer(time.Until(next))

			select {
			case <-timer.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
}

// WaitForDone 返回等待 context 取消的服务函数。
//
// 这是一个占位服务，用于保持 Group 运行直到收到取消信号。
func WaitForDone() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
}
