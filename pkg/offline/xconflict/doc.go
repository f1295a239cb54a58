// Package xconflict 提供同步冲突的检测结果建模与解决策略。
//
// 当一条排队操作携带的基线版本与服务端当前版本不一致时，
// 协调器会把客户端意图与服务端记录一并交给 Resolver。
// Resolver 按配置的策略计算出解决后的数据，策略计算是
// (clientData, serverData, strategy) 的纯函数，相同输入
// 必然产出字节一致的结果。
//
// 每次解决都会生成一条 Conflict 记录并持久化，无论自动
// 解决成功与否，冲突历史都保留到显式清除为止，供用户检视。
// 近期冲突另有一份内存镜像，读路径不必每次落盘扫描。
package xconflict
