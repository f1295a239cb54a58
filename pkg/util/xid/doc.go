// Package xid 基于 Sonyflake 生成单调递增的操作 ID。
//
// 离线队列依赖 ID 的时间有序性：按 ID 排序即按入队顺序排序，
// 因此持久化 key 可以直接用定宽编码的 ID 做字典序扫描。
//
// 使用方式：
//
//	gen, err := xid.NewGenerator()
//	id, err := gen.Next(ctx)
//	key := xid.Format(id) // 定宽十进制，适合做存储 key
package xid
