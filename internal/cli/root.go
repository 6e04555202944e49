// Package cli is the aaabridge command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohit83k/aaabridge/internal/config"
	"github.com/mohit83k/aaabridge/internal/logger"
	"github.com/mohit83k/aaabridge/internal/metrics"
	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/mohit83k/aaabridge/internal/routeros"
)

var (
	// Global flags
	deviceFlag   string
	serviceFlag  string
	outputFormat string
	timeoutFlag  time.Duration

	// Shared state set during PersistentPreRunE
	cfg      config.Config
	device   config.DeviceConfig
	service  model.ServiceType
	log      logger.Logger
	recorder *metrics.Recorder
	exec     routeros.Executor

	// injected is set by SetExecutor so PersistentPreRunE keeps the fake.
	injected routeros.Executor
)

var rootCmd = &cobra.Command{
	Use:   "aaabridge",
	Short: "Keep subscriber accounts and bandwidth profiles in sync with an access device",
	Long: `aaabridge talks to a RouterOS-style access device over its API port.
It provisions PPPoE and Hotspot accounts from subscriber and package
records, lists and disconnects live sessions, and pulls NAT and AAA log
lines into structured events.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		var err error
		log, err = logger.NewLogrusLoggerTo(cmd.ErrOrStderr(), cfg.LogFilePath, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}

		s := serviceFlag
		if s == "" {
			s = cfg.ServiceType
		}
		if service, err = model.ParseServiceType(s); err != nil {
			return err
		}

		device, err = cfg.Resolve(deviceFlag)
		if err != nil {
			return err
		}
		if timeoutFlag > 0 {
			device.Timeout = timeoutFlag
		}

		recorder = metrics.NewRecorder()
		if injected != nil {
			exec = injected
			return nil
		}
		exec = routeros.NewClient(device.ClientConfig(),
			routeros.WithObserver(recorder),
			routeros.WithLogger(log),
		)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// SetExecutor allows tests to replace the device client. Nil restores the
// real client.
func SetExecutor(e routeros.Executor) {
	injected = e
}

// RootCmd returns the root cobra.Command for testing purposes.
func RootCmd() *cobra.Command {
	return rootCmd
}

// deviceLabel names the device in stored keys and log fields.
func deviceLabel() string {
	if device.Name != "" {
		return device.Name
	}
	return device.Host
}

// serveMetrics exposes the recorder when METRICS_ADDR is set. It runs for
// the lifetime of ctx.
func serveMetrics(ctx context.Context) {
	if cfg.MetricsAddr == "" {
		return
	}
	go func() {
		if err := recorder.Serve(ctx, cfg.MetricsAddr); err != nil {
			log.Error(fmt.Errorf("metrics server: %w", err))
		}
	}()
	log.Info("metrics listening on " + cfg.MetricsAddr)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceFlag, "device", "", "device name from DEVICES_FILE (default is the DEVICE_* environment)")
	rootCmd.PersistentFlags().StringVar(&serviceFlag, "service", "", "service type: pppoe or hotspot (default SERVICE_TYPE)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "per-command device timeout (default DEVICE_TIMEOUT)")
}
