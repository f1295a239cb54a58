package xbreaker

// TripPolicy 熔断判定策略接口。
// ReadyToTrip 返回 true 时，熔断器从 Closed 转换为 Open。
type TripPolicy interface {
	ReadyToTrip(counts Counts) bool
}

// ConsecutiveFailuresPolicy 连续失败熔断策略，最常用的策略。
type ConsecutiveFailuresPolicy struct {
	threshold uint32
}

// NewConsecutiveFailures 创建连续失败熔断策略
// threshold: 触发熔断的连续失败次数
func NewConsecutiveFailures(threshold uint32) *ConsecutiveFailuresPolicy {
	return &ConsecutiveFailuresPolicy{threshold: threshold}
}

func (p *ConsecutiveFailuresPolicy) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= p.threshold
}

// Threshold 返回阈值
func (p *ConsecutiveFailuresPolicy) Threshold() uint32 {
	return p.threshold
}

// FailureRatioPolicy 失败率熔断策略。
// 请求数达到 minRequests 后才开始计算失败率。
type FailureRatioPolicy struct {
	ratio       float64
	minRequests uint32
}

// NewFailureRatio 创建失败率熔断策略
// ratio 截断到 [0, 1]
func NewFailureRatio(ratio float64, minRequests uint32) *FailureRatioPolicy {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return &FailureRatioPolicy{ratio: ratio, minRequests: minRequests}
}

func (p *FailureRatioPolicy) ReadyToTrip(counts Counts) bool {
	if counts.Requests == 0 || counts.Requests < p.minRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= p.ratio
}

// NeverTripPolicy 永不熔断策略，用于测试或特殊场景。
type NeverTripPolicy struct{}

// NewNeverTrip 创建永不熔断策略
func NewNeverTrip() *NeverTripPolicy {
	return &NeverTripPolicy{}
}

func (p *NeverTripPolicy) ReadyToTrip(_ Counts) bool {
	return false
}

// 确保实现了 TripPolicy 接口
var (
	_ TripPolicy = (*ConsecutiveFailuresPolicy)(nil)
	_ TripPolicy = (*FailureRatioPolicy)(nil)
	_ TripPolicy = (*NeverTripPolicy)(nil)
)
