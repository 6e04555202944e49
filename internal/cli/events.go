package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohit83k/aaabridge/internal/redisclient"
)

var watchScopeFlag string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect stored events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print keys of events and sync records as Redis stores them",
	Long: `Tails Redis keyspace notifications for SET commands. The server must
have notify-keyspace-events enabled, for example "E$".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch watchScopeFlag {
		case "", "log", "sync":
		default:
			return fmt.Errorf("unknown scope %q (want log or sync)", watchScopeFlag)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store := redisclient.NewRedisStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.EventTTL)
		defer store.Close()

		log.Info("Started Redis subscriber for SET events")
		out := cmd.OutOrStdout()
		err := store.Watch(ctx, watchScopeFlag, func(key string) {
			log.WithFields(map[string]any{
				"timestamp": time.Now().Format("2006-01-02 15:04:05.000000"),
				"key":       key,
			}).Info("Received update for bridge key")
			fmt.Fprintln(out, key)
		})
		log.Info("Shutting down Redis subscriber")
		return err
	},
}

func init() {
	eventsWatchCmd.Flags().StringVar(&watchScopeFlag, "scope", "", "only log or sync keys (default both)")
	eventsCmd.AddCommand(eventsWatchCmd)
	rootCmd.AddCommand(eventsCmd)
}
