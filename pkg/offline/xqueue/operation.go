package xqueue

import (
	"encoding/json"
	"time"
)

// Kind 变更类型
type Kind string

const (
	// KindCreate 新建记录
	KindCreate Kind = "create"
	// KindUpdate 更新记录
	KindUpdate Kind = "update"
	// KindDelete 删除记录
	KindDelete Kind = "delete"
)

// valid 判断变更类型是否合法。
func (k Kind) valid() bool {
	switch k {
	case KindCreate, KindUpdate, KindDelete:
		return true
	default:
		return false
	}
}

// Status 操作状态
type Status string

const (
	// StatusPending 等待同步
	StatusPending Status = "pending"
	// StatusInFlight 已被某个同步批次取走
	StatusInFlight Status = "in-flight"
	// StatusFailed 同步失败，留待下轮重试
	StatusFailed Status = "failed"
	// StatusExpired 超过 TTL 过期，不再尝试同步
	StatusExpired Status = "expired"
)

// Operation 一条排队中的变更意图。
//
// 入队后 ID/Table/RecordKey/Kind/Payload/BaselineVersion/EnqueuedAt
// 不再变化；只有 Status、AttemptCount、FailureKind、LastError
// 会被同步协调器更新，且 AttemptCount 只增不减。
// 同步成功的操作直接从存储中删除，不存在"已同步但可变"的窗口。
type Operation struct {
	// ID 入队时分配的单调递增 ID。
	ID int64 `json:"id"`

	// Table 逻辑资源名（如 "glucose_readings"、"mood_entries"）。
	Table string `json:"table"`

	// RecordKey 逻辑记录主键。顺序保证以 (Table, RecordKey) 为粒度。
	RecordKey string `json:"record_key"`

	// Kind 变更类型。
	Kind Kind `json:"kind"`

	// Payload 变更载荷（JSON）。删除操作可为空。
	Payload json.RawMessage `json:"payload,omitempty"`

	// BaselineVersion 客户端最后已知的服务端版本号。
	// create 操作为空字符串。
	BaselineVersion string `json:"baseline_version,omitempty"`

	// EnqueuedAt 入队时间，过期判定以此为基准。
	EnqueuedAt time.Time `json:"enqueued_at"`

	// AttemptCount 已尝试的同步次数。
	AttemptCount int `json:"attempt_count"`

	// Status 当前状态。
	Status Status `json:"status"`

	// FailureKind 最后一次失败的类别（xfault.Kind 的字符串形式）。
	// 冲突类失败不参与自动重新入队。
	FailureKind string `json:"failure_kind,omitempty"`

	// LastError 最后一次失败的描述，仅用于诊断。
	LastError string `json:"last_error,omitempty"`
}

// Record 返回顺序保证的粒度 key。
func (op Operation) Record() string {
	return op.Table + "/" + op.RecordKey
}

// Draft 入队请求。ID、时间戳和状态由队列在入队时填充。
type Draft struct {
	Table           string          `json:"table"`
	RecordKey       string          `json:"record_key"`
	Kind            Kind            `json:"kind"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	BaselineVersion string          `json:"baseline_version,omitempty"`
}
