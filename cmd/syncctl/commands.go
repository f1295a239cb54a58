package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xconflict"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xqueue"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/offline/xsync"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/resilience/xbreaker"
	"github.com/allroundedgrowth-commits/GlucoBalance-sub002/pkg/storage/xstore"
)

const defaultPurgeTTL = 5 * time.Minute

const timeLayout = "2006-01-02 15:04:05"

// usageError 参数错误，映射到退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:    "pending",
			Aliases: []string{"p"},
			Usage:   "列出队列中的操作和状态统计",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withStore(cmd, func(store xstore.Store) error {
					return cmdPending(ctx, os.Stdout, store)
				})
			},
		},
		{
			Name:    "conflicts",
			Aliases: []string{"c"},
			Usage:   "列出已记录的冲突",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "clear",
					Usage: "清空冲突记录",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withStore(cmd, func(store xstore.Store) error {
					return cmdConflicts(ctx, os.Stdout, store, cmd.Bool("clear"))
				})
			},
		},
		{
			Name:    "meta",
			Aliases: []string{"m"},
			Usage:   "查看最近一轮同步的元数据",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withStore(cmd, func(store xstore.Store) error {
					return cmdMeta(ctx, os.Stdout, store)
				})
			},
		},
		{
			Name:    "breakers",
			Aliases: []string{"b"},
			Usage:   "查看各服务熔断器的持久化快照",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withStore(cmd, func(store xstore.Store) error {
					return cmdBreakers(ctx, os.Stdout, store)
				})
			},
		},
		{
			Name:  "purge",
			Usage: "清理超过 TTL 的队列操作",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "ttl",
					Usage: "操作存活时间",
					Value: defaultPurgeTTL,
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				ttl := cmd.Duration("ttl")
				if ttl <= 0 {
					return &usageError{msg: fmt.Sprintf("ttl 必须为正数: %s", ttl)}
				}
				return withStore(cmd, func(store xstore.Store) error {
					return cmdPurge(ctx, os.Stdout, store, ttl)
				})
			},
		},
	}
}

// withStore 打开数据目录并保证关闭。
func withStore(cmd *cli.Command, fn func(store xstore.Store) error) error {
	dataDir := cmd.String("data-dir")
	if dataDir == "" {
		return &usageError{msg: "必须通过 --data-dir 指定数据目录"}
	}
	store, err := openStore(dataDir)
	if err != nil {
		return fmt.Errorf("打开数据目录 %s: %w", dataDir, err)
	}
	defer store.Close()
	return fn(store)
}

func openStore(dataDir string) (xstore.Store, error) {
	return xstore.NewBadger(xstore.WithDir(dataDir))
}

func cmdPending(ctx context.Context, out io.Writer, store xstore.Store) error {
	queue, err := xqueue.New(store)
	if err != nil {
		return err
	}
	ops, err := queue.List(ctx)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		fmt.Fprintln(out, "队列为空")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTABLE\tRECORD\tKIND\tSTATUS\tATTEMPTS\tENQUEUED\tFAILURE")
	for _, op := range ops {
		failure := op.FailureKind
		if failure == "" {
			failure = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			op.ID, op.Table, op.RecordKey, op.Kind, op.Status,
			op.AttemptCount, op.EnqueuedAt.Format(timeLayout), failure,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	counts, err := queue.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n共 %d 条: pending=%d in-flight=%d failed=%d expired=%d\n",
		len(ops),
		counts[xqueue.StatusPending],
		counts[xqueue.StatusInFlight],
		counts[xqueue.StatusFailed],
		counts[xqueue.StatusExpired],
	)
	return nil
}

func cmdConflicts(ctx context.Context, out io.Writer, store xstore.Store, clear bool) error {
	resolver, err := xconflict.New(store)
	if err != nil {
		return err
	}

	if clear {
		n, err := resolver.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "已清空 %d 条冲突记录\n", n)
		return nil
	}

	conflicts, err := resolver.List(ctx)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		fmt.Fprintln(out, "没有冲突记录")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTABLE\tRECORD\tSTRATEGY\tRESOLVED\tDIGEST\tDETECTED")
	for _, c := range conflicts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			c.ID, c.Table, c.RecordKey, c.Strategy, c.Resolved,
			c.Digest, c.DetectedAt.Format(timeLayout),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n共 %d 条冲突\n", len(conflicts))
	return nil
}

func cmdMeta(ctx context.Context, out io.Writer, store xstore.Store) error {
	md, err := xsync.LoadMetadata(ctx, store)
	if err != nil {
		return err
	}

	if md.LastSyncAt.IsZero() {
		fmt.Fprintln(out, "尚未执行过同步")
		return nil
	}
	fmt.Fprintf(out, "最近同步:   %s\n", md.LastSyncAt.Format(timeLayout))
	fmt.Fprintf(out, "已同步:     %d\n", md.SyncedCount)
	fmt.Fprintf(out, "失败:       %d\n", md.FailedCount)
	fmt.Fprintf(out, "冲突:       %d\n", md.ConflictCount)
	fmt.Fprintf(out, "待同步:     %d\n", md.PendingCount)
	if md.Aborted {
		fmt.Fprintf(out, "中止原因:   %s\n", md.AbortReason)
	}
	return nil
}

func cmdBreakers(ctx context.Context, out io.Writer, store xstore.Store) error {
	snaps, err := xbreaker.LoadSnapshots(ctx, store)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(out, "没有熔断器快照")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATE\tUPDATED")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Service, s.State, s.UpdatedAt.Format(timeLayout))
	}
	return w.Flush()
}

func cmdPurge(ctx context.Context, out io.Writer, store xstore.Store, ttl time.Duration) error {
	queue, err := xqueue.New(store)
	if err != nil {
		return err
	}
	n, err := queue.PurgeExpired(ctx, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "已标记 %d 条过期操作 (ttl=%s)\n", n, ttl)
	return nil
}
