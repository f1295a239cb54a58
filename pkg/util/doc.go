// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xid: 分布式唯一 ID 生成，基于 Sonyflake 算法
//
// 设计原则：
//   - 无外部服务依赖，进程内自持
//   - 生成的 ID 单调递增，可直接用作存储排序键
package util
