// Package xstore 提供引擎的本地持久化层：一个跨进程重启存活的
// key/record 存储。
//
// 离线队列、冲突记录、熔断器快照和同步元数据都通过 Store 接口持久化，
// 默认实现基于 BadgerDB（嵌入式 LSM 存储，纯本地文件，无外部服务依赖）。
//
// # 使用方式
//
//	st, err := xstore.NewBadger(xstore.WithDir("/var/lib/app/sync"))
//	defer st.Close()
//
//	err = st.Put(ctx, "op/00000000000000000001", payload)
//	err = st.Scan(ctx, "op/", func(key string, value []byte) error { ... })
//
// 测试场景使用内存模式，无磁盘 I/O：
//
//	st, err := xstore.NewBadger(xstore.WithInMemory())
package xstore
