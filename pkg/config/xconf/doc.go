// Package xconf 提供基于 koanf 的配置加载。
//
// 支持从 YAML/JSON 文件或字节数据创建配置实例，格式按文件
// 扩展名自动检测。Config 只提供增值封装（带锁的 Unmarshal、
// Reload），其余操作请直接使用 Client() 返回的 koanf 实例。
package xconf
