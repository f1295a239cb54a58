package xsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

// metadataKey 同步元数据在存储中的键
const metadataKey = "sync/metadata"

// Metadata 最近一轮排空的结果摘要，随每轮排空落盘。
type Metadata struct {
	LastSyncAt    time.Time `json:"last_sync_at"`
	SyncedCount   int       `json:"synced_count"`
	FailedCount   int       `json:"failed_count"`
	ConflictCount int       `json:"conflict_count"`
	PendingCount  int       `json:"pending_count"`
	Aborted       bool      `json:"aborted"`
	AbortReason   string    `json:"abort_reason,omitempty"`
}

// LoadMetadata 从存储读取同步元数据。
// 从未同步过时返回零值 Metadata 与 nil 错误。
func LoadMetadata(ctx context.Context, store xstore.Store) (Metadata, error) {
	if ctx == nil {
		return Metadata{}, ErrNilContext
	}
	raw, err := store.Get(ctx, metadataKey)
	if err != nil {
		if errors.Is(err, xstore.ErrNotFound) {
			return Metadata{}, nil
		}
		return Metadata{}, fmt.Errorf("xsync: load metadata: %w", err)
	}
	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return Metadata{}, fmt.Errorf("xsync: decode metadata: %w", err)
	}
	return md, nil
}

func saveMetadata(ctx context.Context, store xstore.Store, md Metadata) error {
	raw, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("xsync: encode metadata: %w", err)
	}
	if err := store.Put(ctx, metadataKey, raw); err != nil {
		return fmt.Errorf("xsync: persist metadata: %w", err)
	}
	return nil
}
