package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/mohit83k/aaabridge/internal/provision"
	"github.com/mohit83k/aaabridge/internal/redisclient"
)

// Batch is the input file for the sync commands.
type Batch struct {
	Packages    []model.Package    `yaml:"packages"`
	Subscribers []model.Subscriber `yaml:"subscribers"`
}

func loadBatch(path string) (Batch, error) {
	var b Batch
	if path == "" {
		return b, fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("read batch file: %w", err)
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("parse batch file %s: %w", path, err)
	}
	return b, nil
}

// syncAudit counts every sync result and, with --audit, stores it.
type syncAudit struct {
	store *redisclient.RedisStore
}

func (a syncAudit) SaveSyncResult(ctx context.Context, res model.SyncResult) error {
	switch {
	case !res.Success:
		recorder.ObserveSync("failed")
	case res.Created > 0:
		recorder.ObserveSync("created")
	default:
		recorder.ObserveSync("updated")
	}
	if a.store == nil {
		return nil
	}
	return a.store.SaveSyncResult(ctx, res)
}

var (
	syncFileFlag    string
	syncWorkersFlag int
	syncAuditFlag   bool
)

func newSynchronizer() (*provision.Synchronizer, func()) {
	audit := syncAudit{}
	closeFn := func() {}
	if syncAuditFlag {
		store := redisclient.NewRedisStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.EventTTL)
		audit.store = store
		closeFn = func() { _ = store.Close() }
	}
	s := provision.New(exec,
		provision.WithWorkers(syncWorkersFlag),
		provision.WithAudit(audit),
		provision.WithLogger(log),
	)
	return s, closeFn
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create or update device accounts from subscriber records",
}

var syncOneCmd = &cobra.Command{
	Use:   "one <username>",
	Short: "Sync the subscriber with the given device username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := loadBatch(syncFileFlag)
		if err != nil {
			return err
		}

		var (
			sub   model.Subscriber
			found bool
		)
		for _, s := range batch.Subscribers {
			if s.Username() == args[0] {
				sub, found = s, true
				break
			}
		}
		if !found {
			return printResult(cmd.OutOrStdout(), model.Fail(fmt.Sprintf("subscriber %q not in %s", args[0], syncFileFlag), nil))
		}

		var pkg *model.Package
		for i := range batch.Packages {
			if batch.Packages[i].Name == sub.PackageName {
				pkg = &batch.Packages[i]
				break
			}
		}
		if pkg == nil {
			return printResult(cmd.OutOrStdout(), model.Fail(fmt.Sprintf("package %q not found", sub.PackageName), nil))
		}

		s, closeFn := newSynchronizer()
		defer closeFn()

		res := s.SyncOne(cmd.Context(), sub, *pkg, service)
		return printResult(cmd.OutOrStdout(), res.Envelope())
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Sync every subscriber in the batch file",
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := loadBatch(syncFileFlag)
		if err != nil {
			return err
		}
		s, closeFn := newSynchronizer()
		defer closeFn()

		res := s.SyncMany(cmd.Context(), batch.Subscribers, batch.Packages, service)
		return printResult(cmd.OutOrStdout(), res.Envelope())
	},
}

func init() {
	syncCmd.PersistentFlags().StringVarP(&syncFileFlag, "file", "f", "", "YAML file with packages and subscribers")
	syncCmd.PersistentFlags().BoolVar(&syncAuditFlag, "audit", false, "store each sync result in Redis")
	syncAllCmd.Flags().IntVar(&syncWorkersFlag, "workers", 0, "sync this many subscribers concurrently (0 = sequential)")

	syncCmd.AddCommand(syncOneCmd, syncAllCmd)
	rootCmd.AddCommand(syncCmd)
}
