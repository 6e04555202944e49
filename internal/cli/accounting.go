package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohit83k/aaabridge/internal/redisclient"
	"github.com/mohit83k/aaabridge/internal/server"
)

var acctPortFlag string

var accountingCmd = &cobra.Command{
	Use:   "accounting",
	Short: "RADIUS accounting from the device",
}

var accountingServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive Accounting-Request packets and store them as AAA events",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store := redisclient.NewRedisStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.EventTTL)
		defer store.Close()
		serveMetrics(ctx)

		port := acctPortFlag
		if port == "" {
			port = cfg.RadiusAcctPort
		}
		return server.NewServer(":"+port, cfg.RadiusSecret, store, log).ListenAndServe(ctx)
	},
}

func init() {
	accountingServeCmd.Flags().StringVar(&acctPortFlag, "port", "", "UDP port (default RADIUS_ACCT_PORT)")
	accountingCmd.AddCommand(accountingServeCmd)
	rootCmd.AddCommand(accountingCmd)
}
