package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohit83k/aaabridge/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and disconnect live sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		res := session.NewReader(exec, log).ListResult(cmd.Context(), service)
		return printResult(cmd.OutOrStdout(), res)
	},
}

var (
	coaFlag       bool
	coaUserFlag   string
	coaSessionArg string
)

var sessionsDisconnectCmd = &cobra.Command{
	Use:   "disconnect [id]",
	Short: "Disconnect a session by device id, or by user with --coa",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if coaFlag {
			d := session.NewCoADisconnector(device.Host, cfg.RadiusCoAPort, cfg.RadiusSecret, device.Timeout, log)
			return printResult(cmd.OutOrStdout(), d.Disconnect(cmd.Context(), coaUserFlag, coaSessionArg))
		}
		if len(args) != 1 {
			return fmt.Errorf("session id is required unless --coa is set")
		}
		res := session.NewReader(exec, log).Disconnect(cmd.Context(), args[0], service)
		return printResult(cmd.OutOrStdout(), res)
	},
}

func init() {
	sessionsDisconnectCmd.Flags().BoolVar(&coaFlag, "coa", false, "send a RADIUS Disconnect-Request instead of using the API")
	sessionsDisconnectCmd.Flags().StringVar(&coaUserFlag, "user", "", "username for --coa")
	sessionsDisconnectCmd.Flags().StringVar(&coaSessionArg, "acct-session-id", "", "accounting session id for --coa")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsDisconnectCmd)
	rootCmd.AddCommand(sessionsCmd)
}
