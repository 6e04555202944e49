package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohit83k/aaabridge/internal/collector"
	"github.com/mohit83k/aaabridge/internal/command"
	"github.com/mohit83k/aaabridge/internal/logs"
	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/mohit83k/aaabridge/internal/redisclient"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Fetch and classify device log lines",
}

var (
	logsKindFlag     string
	logsTopicsFlag   []string
	logsContainsFlag []string
	logsSinceFlag    string
	logsUntilFlag    string
	logsCountFlag    int
)

func parseFlagTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, logs.DeviceTimeLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse time %q (want RFC 3339 or %q)", s, logs.DeviceTimeLayout)
}

var logsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch log lines matching topics and filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		var kind model.EventKind
		switch logsKindFlag {
		case "", "all":
		case "nat":
			kind = model.EventNAT
		case "aaa":
			kind = model.EventAAA
		default:
			return fmt.Errorf("unknown kind %q (want nat, aaa or all)", logsKindFlag)
		}

		since, err := parseFlagTime(logsSinceFlag)
		if err != nil {
			return err
		}
		until, err := parseFlagTime(logsUntilFlag)
		if err != nil {
			return err
		}

		q := logs.Query{
			Topics:   logsTopicsFlag,
			Contains: logsContainsFlag,
			Since:    since,
			Until:    until,
			Count:    logsCountFlag,
		}
		res := logs.NewFetcher(exec, logs.WithLogger(log)).FetchResult(cmd.Context(), q, kind)
		return printResult(cmd.OutOrStdout(), res)
	},
}

var (
	collectOnceFlag     bool
	collectScheduleFlag string
)

var logsCollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Store NAT and AAA events in Redis, once or on a cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := redisclient.NewRedisStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.EventTTL)
		defer store.Close()

		c := collector.New(deviceLabel(),
			logs.NewFetcher(exec, logs.WithLogger(log)),
			store,
			collector.WithLogger(log),
			collector.WithObserver(recorder),
			collector.WithCount(logsCountFlag),
		)

		if collectOnceFlag {
			sum, err := c.RunOnce(cmd.Context())
			if err != nil {
				return printResult(cmd.OutOrStdout(), model.Fail("collection incomplete", err))
			}
			return printResult(cmd.OutOrStdout(), model.OK("collection finished", sum))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		serveMetrics(ctx)

		schedule := collectScheduleFlag
		if schedule == "" {
			schedule = cfg.CollectSchedule
		}
		if err := c.Start(schedule); err != nil {
			return err
		}
		<-ctx.Done()
		c.Stop()
		return nil
	},
}

func init() {
	logsCmd.PersistentFlags().IntVar(&logsCountFlag, "count", 0, fmt.Sprintf("lines per fetch, at most %d (default %d)", command.MaxLogLines, logs.DefaultCount))

	logsFetchCmd.Flags().StringVar(&logsKindFlag, "kind", "all", "classification: nat, aaa or all")
	logsFetchCmd.Flags().StringSliceVar(&logsTopicsFlag, "topics", nil, "device log topics (default depends on --kind)")
	logsFetchCmd.Flags().StringSliceVar(&logsContainsFlag, "contains", nil, "only lines whose message contains this text (repeatable)")
	logsFetchCmd.Flags().StringVar(&logsSinceFlag, "since", "", "only lines at or after this time")
	logsFetchCmd.Flags().StringVar(&logsUntilFlag, "until", "", "only lines at or before this time")

	logsCollectCmd.Flags().BoolVar(&collectOnceFlag, "once", false, "run a single collection and exit")
	logsCollectCmd.Flags().StringVar(&collectScheduleFlag, "schedule", "", "cron spec (default COLLECT_SCHEDULE)")

	logsCmd.AddCommand(logsFetchCmd, logsCollectCmd)
	rootCmd.AddCommand(logsCmd)
}
