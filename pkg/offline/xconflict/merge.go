package xconflict

import (
	"encoding/json"
	"fmt"
)

// Merge 按策略计算解决后的数据。
// 纯函数：相同的 (clientData, serverData, strategy) 必然
// 产出字节一致的结果，调用多少次都一样。
//
// 字段级合并以服务端记录为底座，客户端出现的字段覆盖同名
// 服务端字段，仅支持顶层 JSON 对象；任一侧不是对象时退化为
// 服务端优先。
func Merge(clientData, serverData json.RawMessage, strategy Strategy) (json.RawMessage, error) {
	switch strategy {
	case StrategyServerWins:
		return canonicalize(serverData)
	case StrategyClientWins:
		return canonicalize(clientData)
	case StrategyFieldMerge:
		return fieldMerge(clientData, serverData)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

func fieldMerge(clientData, serverData json.RawMessage) (json.RawMessage, error) {
	server, sok := asObject(serverData)
	client, cok := asObject(clientData)
	if !sok || !cok {
		return canonicalize(serverData)
	}
	merged := make(map[string]any, len(server)+len(client))
	for k, v := range server {
		merged[k] = v
	}
	for k, v := range client {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return out, nil
}

// canonicalize 将 JSON 重新编码为键序稳定的规范形式。
// encoding/json 对 map 键排序输出，往返一次即可得到
// 与字段原始顺序无关的字节表示。
func canonicalize(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return out, nil
}

func asObject(raw json.RawMessage) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}
