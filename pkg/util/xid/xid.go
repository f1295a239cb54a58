package xid

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"time"

	"github.com/sony/sonyflake/v2"
)

var (
	// ErrNilGenerator 生成器实例为 nil。
	// 请始终通过 NewGenerator 创建生成器实例。
	ErrNilGenerator = errors.New("xid: nil generator (use NewGenerator to create)")

	// ErrNilContext context 参数为 nil。
	ErrNilContext = errors.New("xid: nil context")

	// ErrInvalidConfig 配置参数无效，或底层 sonyflake 初始化失败。
	ErrInvalidConfig = errors.New("xid: invalid config")
)

// defaultStartTime 是 ID 时间分量的纪元起点。
// 固定常量而非进程启动时间：重启后生成的 ID 仍大于重启前的 ID，
// 这是离线队列 FIFO 顺序跨重启成立的前提。
var defaultStartTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// formatWidth 定宽编码位数。Sonyflake v2 的 ID 是 63 位正整数，
// 十进制最长 19 位，取 20 位留余量。
const formatWidth = 20

// Generator 单调 ID 生成器。
// 并发安全，所有方法可被多个 goroutine 同时调用。
type Generator struct {
	sf *sonyflake.Sonyflake
}

// GeneratorOption 生成器配置选项
type GeneratorOption func(*generatorOptions)

type generatorOptions struct {
	startTime time.Time
	machineID func() (int, error)
}

// WithStartTime 设置 ID 时间分量的纪元起点。
// 同一份持久化数据必须始终使用同一起点，否则跨重启的顺序性被破坏。
func WithStartTime(t time.Time) GeneratorOption {
	return func(o *generatorOptions) {
		if !t.IsZero() {
			o.startTime = t
		}
	}
}

// WithMachineID 设置机器 ID 获取函数。
// 默认从主机名哈希派生。引擎是单机客户端核心，机器 ID 只需
// 在同一台设备上稳定，不要求全局唯一。
func WithMachineID(f func() (int, error)) GeneratorOption {
	return func(o *generatorOptions) {
		if f != nil {
			o.machineID = f
		}
	}
}

// NewGenerator 创建 ID 生成器。
func NewGenerator(opts ...GeneratorOption) (*Generator, error) {
	o := &generatorOptions{
		startTime: defaultStartTime,
		machineID: hostMachineID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	sf, err := sonyflake.New(sonyflake.Settings{
		StartTime: o.startTime,
		MachineID: o.machineID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Generator{sf: sf}, nil
}

// Next 生成下一个 ID。
// 保证同一生成器内严格递增；时钟回拨时 sonyflake 内部会等待，
// ctx 取消可提前返回。
func (g *Generator) Next(ctx context.Context) (int64, error) {
	if g == nil || g.sf == nil {
		return 0, ErrNilGenerator
	}
	if ctx == nil {
		return 0, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return g.sf.NextID()
}

// Format 将 ID 编码为定宽十进制字符串。
// 定宽保证字典序与数值序一致，可直接拼接为存储 key 做前缀扫描。
func Format(id int64) string {
	return fmt.Sprintf("%0*d", formatWidth, id)
}

// Parse 解析 Format 的输出。
func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("xid: parse %q: %w", s, err)
	}
	return id, nil
}

// hostMachineID 从主机名哈希派生机器 ID。
// 主机名不可用时退回固定值（单机场景下仍然可用）。
func hostMachineID() (int, error) {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return 1, nil
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() & 0xffff), nil
}
