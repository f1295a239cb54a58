// Package xqueue 提供持久化的离线操作队列。
//
// 断网期间（或受保护调用失败后）产生的变更意图以 Operation 的形式
// 持久化入队，网络恢复后由同步协调器按入队顺序批量重放。
//
// # 顺序保证
//
// Operation ID 由 Sonyflake 生成，时间有序；持久化 key 用定宽编码，
// 因此存储层的字典序扫描即入队顺序。DequeueBatch 按 FIFO 出队，
// 并保证同一逻辑记录（table + record key）的操作之间绝不乱序：
// 若某记录有更早的操作仍在 in-flight 或 failed 状态，
// 该记录后续的所有操作都会被跳过，直到前序操作出清。
// 不同记录之间允许跨批次重排。
//
// # 状态机
//
//	pending → in-flight → (删除，已同步)
//	   ↑          |
//	   └──────────┴→ failed（下轮同步重新入队；冲突类失败除外）
//	pending/failed → expired（超过 TTL，通过 OnExpire 钩子显式上报）
//
// 所有变更方法串行化在同一把互斥锁之下：任意时刻只有一个入队或
// 出清步骤在修改队列状态。
package xqueue
