// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xstore: 本地持久化键值存储，基于 BadgerDB，支持前缀扫描和内存模式
//
// 设计原则：
//   - 提供统一的接口抽象，便于测试时替换为内存实现
//   - 前缀扫描支持队列和快照的范围读取
package storage
