package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/mohit83k/aaabridge/internal/profile"
	"github.com/mohit83k/aaabridge/internal/provision"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and remove bandwidth profiles",
}

var showPkg model.Package

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the device profile a package translates to (no device call)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showPkg.Name == "" {
			return fmt.Errorf("--name is required")
		}
		bp := profile.Build(showPkg, service)
		return printResult(cmd.OutOrStdout(), model.OK("profile "+bp.Name, bp))
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a bandwidth profile from the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := provision.New(exec, provision.WithLogger(log)).RemoveProfile(cmd.Context(), args[0], service)
		return printResult(cmd.OutOrStdout(), res)
	},
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage device accounts",
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove an account from the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := provision.New(exec, provision.WithLogger(log)).RemoveAccount(cmd.Context(), args[0], service)
		return printResult(cmd.OutOrStdout(), res)
	},
}

func init() {
	f := profileShowCmd.Flags()
	f.StringVar(&showPkg.Name, "name", "", "package name")
	f.Float64Var(&showPkg.DownloadMbps, "down", 0, "download rate in Mbps")
	f.Float64Var(&showPkg.UploadMbps, "up", 0, "upload rate in Mbps")
	f.BoolVar(&showPkg.BurstEnabled, "burst", false, "enable burst")
	f.Float64Var(&showPkg.BurstDownloadMbps, "burst-down", 0, "burst download rate in Mbps")
	f.Float64Var(&showPkg.BurstUploadMbps, "burst-up", 0, "burst upload rate in Mbps")
	f.Float64Var(&showPkg.BurstThresholdDownMbps, "threshold-down", 0, "burst threshold download in Mbps")
	f.Float64Var(&showPkg.BurstThresholdUpMbps, "threshold-up", 0, "burst threshold upload in Mbps")
	f.IntVar(&showPkg.BurstTimeSeconds, "burst-time", 0, "burst time in seconds")
	f.StringVar(&showPkg.AddressPool, "pool", "", "address pool")

	profileCmd.AddCommand(profileShowCmd, profileRemoveCmd)
	accountCmd.AddCommand(accountRemoveCmd)
	rootCmd.AddCommand(profileCmd, accountCmd)
}
