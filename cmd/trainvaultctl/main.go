package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/feliperosa/trainvault/internal/admin"
	"github.com/feliperosa/trainvault/internal/config"
	"github.com/feliperosa/trainvault/internal/model"
	"github.com/feliperosa/trainvault/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:           "trainvaultctl",
		Short:         "Administer the shared model's training data and its backups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newListCmd(),
		newBackupCmd(),
		newRemoveCmd(),
		newRestoreCmd(),
		newSyncCmd(),
		newCompareCmd(),
		newStatusCmd(),
		newListBackupsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newAdminService wires a Service from the environment, the same way the
// daemon does.
func newAdminService(ctx context.Context) (*admin.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	backend, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("store: %w", err)
	}
	if cfg.DatabaseURL == "" {
		log.Printf("[ctl] no DATABASE_URL configured, using in-memory store")
	}

	handle, err := model.NewHandle(model.Config{
		Mode:    cfg.ModelMode,
		HTTPURL: cfg.ModelHTTPURL,
		APIKey:  cfg.ModelAPIKey,
	})
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("model handle: %w", err)
	}

	svc := admin.NewService(backend, handle, cfg.BackupDir)
	closer := func() { _ = backend.Close() }
	return svc, closer, nil
}
