package xconflict

import (
	"bytes"
	"encoding/json"
	"time"
)

// Strategy 冲突解决策略标识
type Strategy string

const (
	// StrategyServerWins 以服务端记录为准，默认策略
	StrategyServerWins Strategy = "server_wins"

	// StrategyClientWins 以客户端意图为准
	StrategyClientWins Strategy = "client_wins"

	// StrategyFieldMerge 字段级合并，服务端为底座，客户端字段覆盖
	StrategyFieldMerge Strategy = "field_merge"
)

func (s Strategy) valid() bool {
	switch s {
	case StrategyServerWins, StrategyClientWins, StrategyFieldMerge:
		return true
	}
	return false
}

// Conflict 一次基线版本不一致的完整记录。
// Resolved 为 true 时 ResolvedData 必定非空，
// 且相同输入与策略下内容字节一致。
type Conflict struct {
	ID           string          `json:"id"`
	Table        string          `json:"table"`
	RecordKey    string          `json:"record_key"`
	OperationID  int64           `json:"operation_id"`
	ClientData   json.RawMessage `json:"client_data"`
	ServerData   json.RawMessage `json:"server_data"`
	ResolvedData json.RawMessage `json:"resolved_data,omitempty"`
	Resolved     bool            `json:"resolved"`
	Strategy     Strategy        `json:"strategy"`
	Digest       string          `json:"digest,omitempty"`
	DetectedAt   time.Time       `json:"detected_at"`
}

// FollowUpRequired 解决结果与服务端当前记录不一致时，
// 需要协调器发起一次补写，把解决结果推送到服务端。
func (c Conflict) FollowUpRequired() bool {
	if !c.Resolved {
		return false
	}
	server, err := canonicalize(c.ServerData)
	if err != nil {
		return true
	}
	return !bytes.Equal(c.ResolvedData, server)
}
