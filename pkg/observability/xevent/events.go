package xevent

import (
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xconflict"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xqueue"
)

// Event 引擎事件。Name 返回稳定的事件标识，可用于日志与过滤。
type Event interface {
	Name() string
}

// ConnectivityChanged 连通性状态变化
type ConnectivityChanged struct {
	Online bool
}

func (ConnectivityChanged) Name() string { return "connectivity_changed" }

// SyncStarted 一轮队列排空开始
type SyncStarted struct {
	TotalOperations int
}

func (SyncStarted) Name() string { return "sync_started" }

// SyncProgress 排空进度，每处理完一批发布一次
type SyncProgress struct {
	Completed    int
	Total        int
	Percentage   float64
	CurrentBatch int
	TotalBatches int
}

func (SyncProgress) Name() string { return "sync_progress" }

// SyncCompleted 一轮排空正常结束
type SyncCompleted struct {
	SyncedCount int
}

func (SyncCompleted) Name() string { return "sync_completed" }

// SyncFailed 整轮排空中止（断网、存储故障等）
type SyncFailed struct {
	Reason string
}

func (SyncFailed) Name() string { return "sync_failed" }

// OperationSynced 单条操作在服务端生效
type OperationSynced struct {
	Operation xqueue.Operation
	Table     string
}

func (OperationSynced) Name() string { return "operation_synced" }

// OperationFailed 单条操作同步失败，留在队列中等待下一轮
type OperationFailed struct {
	Operation xqueue.Operation
}

func (OperationFailed) Name() string { return "operation_failed" }

// OperationExpired 队列操作超过 TTL 被清除
type OperationExpired struct {
	Operation xqueue.Operation
}

func (OperationExpired) Name() string { return "operation_expired" }

// OfflineOperationQueued 离线变更已持久化入队
type OfflineOperationQueued struct {
	Operation xqueue.Operation
}

func (OfflineOperationQueued) Name() string { return "offline_operation_queued" }

// ConflictDetected 检测到基线版本冲突且解决器已给出结果
type ConflictDetected struct {
	Conflict xconflict.Conflict
}

func (ConflictDetected) Name() string { return "conflict_detected" }

// ConflictHandlingFailed 解决器处理冲突失败，操作保持 failed
type ConflictHandlingFailed struct {
	Operation xqueue.Operation
}

func (ConflictHandlingFailed) Name() string { return "conflict_handling_failed" }

// BreakerStateChanged 某服务的熔断器发生状态迁移
type BreakerStateChanged struct {
	Service string
	From    string
	To      string
}

func (BreakerStateChanged) Name() string { return "breaker_state_changed" }
