// syncctl 是离线同步引擎数据目录的巡检工具。
//
// 用法:
//
//	syncctl --data-dir <目录> <命令> [命令参数]
//
// 全局选项:
//
//	-d, --data-dir  引擎 badger 数据目录（必填）
//
// 命令:
//
//	pending         列出队列中的操作和状态统计
//	conflicts       列出已记录的冲突（--clear 清空）
//	meta            查看最近一轮同步的元数据
//	breakers        查看各服务熔断器的持久化快照
//	purge           清理超过 TTL 的队列操作（--ttl，默认 5m）
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败（目录无法打开、存储读写错误等）
//	2: 参数错误（缺少数据目录、无效 TTL、未知命令等）
//
// 示例:
//
//	syncctl -d /var/lib/app/engine pending
//	syncctl -d /var/lib/app/engine conflicts --clear
//	syncctl -d /var/lib/app/engine purge --ttl 1h
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "syncctl",
		Usage:   "离线同步引擎数据目录巡检工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "引擎 badger 数据目录",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 退出码映射由 run() 统一处理，不让框架直接 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	if err := app.Run(ctx, os.Args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr.msg)
			return 2
		}
		if _, ok := err.(cli.ExitCoder); ok {
			// 框架产生的参数错误（未知命令等），详情已输出
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// setupSignalHandler 第一次信号优雅取消，第二次信号强制退出。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
