package xengine

import (
	"fmt"
	"time"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/config/xconf"
)

// Config 引擎配置。
// 所有时长字段在 YAML/JSON 中使用 Go duration 字符串（如 "5m"、"30s"）。
type Config struct {
	// DataDir badger 数据目录，为空时使用内存存储（仅适合测试）
	DataDir string `koanf:"data_dir"`

	// Service 同步目标服务名，对应熔断器的 key
	Service string `koanf:"service"`

	// BatchSize 每批排空的操作数
	BatchSize int `koanf:"batch_size"`

	// QueueTTL 队列操作的存活时间，超过后被标记为过期
	QueueTTL time.Duration `koanf:"queue_ttl"`

	// PurgeSchedule 过期清理的 cron 表达式
	PurgeSchedule string `koanf:"purge_schedule"`

	// ProbeURL 连通性探测地址，为空时禁用周期探测
	ProbeURL string `koanf:"probe_url"`

	// ProbeInterval 探测周期
	ProbeInterval time.Duration `koanf:"probe_interval"`

	// Debounce 连通性状态去抖窗口
	Debounce time.Duration `koanf:"debounce"`
}

// DefaultConfig 返回带默认值的配置。
func DefaultConfig() Config {
	return Config{
		Service:       "remote",
		BatchSize:     10,
		QueueTTL:      5 * time.Minute,
		PurgeSchedule: "@every 1m",
		ProbeInterval: 30 * time.Second,
		Debounce:      500 * time.Millisecond,
	}
}

// LoadConfig 从 YAML/JSON 文件加载配置，未设置的字段取默认值。
func LoadConfig(path string) (Config, error) {
	c, err := xconf.New(path)
	if err != nil {
		return Config{}, err
	}
	return unmarshalConfig(c)
}

// ParseConfig 从字节数据解析配置，未设置的字段取默认值。
func ParseConfig(data []byte, format xconf.Format) (Config, error) {
	c, err := xconf.NewFromBytes(data, format)
	if err != nil {
		return Config{}, err
	}
	return unmarshalConfig(c)
}

func unmarshalConfig(c xconf.Config) (Config, error) {
	cfg := DefaultConfig()
	if err := c.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Service == "" {
		return fmt.Errorf("%w: service cannot be empty", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.QueueTTL <= 0 {
		return fmt.Errorf("%w: queue_ttl must be positive, got %s", ErrInvalidConfig, c.QueueTTL)
	}
	if c.PurgeSchedule == "" {
		return fmt.Errorf("%w: purge_schedule cannot be empty", ErrInvalidConfig)
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("%w: probe_interval must be positive, got %s", ErrInvalidConfig, c.ProbeInterval)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: debounce must not be negative, got %s", ErrInvalidConfig, c.Debounce)
	}
	return nil
}
