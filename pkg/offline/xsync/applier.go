package xsync

import (
	"context"
	"encoding/json"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xqueue"
)

// ApplyStatus 远端应用结果状态
type ApplyStatus string

const (
	// StatusApplied 操作已在服务端生效
	StatusApplied ApplyStatus = "applied"

	// StatusConflict 服务端当前版本与操作基线不一致
	StatusConflict ApplyStatus = "conflict"
)

// ApplyResult 远端应用端点的响应。
// Status 为 StatusConflict 时 Record 携带服务端当前记录，
// CurrentVersion 为服务端当前版本号。
type ApplyResult struct {
	Status         ApplyStatus     `json:"status"`
	Record         json.RawMessage `json:"record,omitempty"`
	CurrentVersion string          `json:"current_version,omitempty"`
}

// Applier 远端应用端点接口。
// Apply 必须是原子的：一条操作要么完整生效要么完全不生效。
type Applier interface {
	Apply(ctx context.Context, op xqueue.Operation) (ApplyResult, error)
}

// ApplierFunc 将函数适配为 Applier 接口。
type ApplierFunc func(ctx context.Context, op xqueue.Operation) (ApplyResult, error)

func (f ApplierFunc) Apply(ctx context.Context, op xqueue.Operation) (ApplyResult, error) {
	return f(ctx, op)
}
