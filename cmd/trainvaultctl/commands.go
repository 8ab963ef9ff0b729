package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/feliperosa/trainvault/internal/admin"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the live model's training data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := newAdminService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			records, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				cmd.Println("no training data in the live model")
				return nil
			}

			byType := map[string]int{}
			for _, r := range records {
				byType[string(r.Type)]++
			}
			cmd.Printf("%d records in the live model\n", len(records))
			for typ, count := range byType {
				cmd.Printf("  %-14s %d\n", typ, count)
			}
			for i, r := range records {
				if i >= 3 {
					cmd.Printf("  ... and %d more\n", len(records)-3)
					break
				}
				cmd.Printf("  [%s] %s %s\n", r.RecordID, r.Type, truncate(r.Content, 50))
			}
			return nil
		},
	}
}

func newBackupCmd() *cobra.Command {
	var (
		tenant     string
		backupType string
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the live model's training data to JSON and/or the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			typ, err := admin.ParseBackupType(backupType)
			if err != nil {
				return err
			}

			svc, closer, err := newAdminService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			res, err := svc.Backup(cmd.Context(), tenant, typ)
			if err != nil {
				return err
			}
			cmd.Printf("backed up %d records (tenant: %s)\n", res.RecordsCount, orGlobal(tenant))
			if res.JSONPath != "" {
				cmd.Printf("  json: %s\n", res.JSONPath)
			}
			if res.DBSaved {
				cmd.Println("  database: saved")
			}
			for _, e := range res.Errors {
				cmd.Printf("  warning: %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (empty = global scope)")
	cmd.Flags().StringVar(&backupType, "type", "both", "backup target: json|db|both")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove ALL training data from the live model (destructive)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := newAdminService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			res, err := svc.RemoveAll(cmd.Context(), confirm)
			if err != nil {
				return err
			}
			cmd.Printf("removed %d/%d records", res.RemovedCount, res.TotalFound)
			if res.FailedCount > 0 {
				cmd.Printf(" (%d failed)", res.FailedCount)
			}
			cmd.Println()
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required: confirm removal of ALL training data")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	var (
		tenant   string
		fromFile string
	)
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Re-train the live model from a JSON backup file or the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := newAdminService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			res, err := svc.Restore(cmd.Context(), tenant, fromFile)
			if err != nil {
				return err
			}
			cmd.Printf("restored %d/%d records from %s\n", res.TrainedCount, res.RecordsLoaded, res.Source)
			for _, e := range res.Errors {
				cmd.Printf("  warning: %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (empty = global scope)")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "path to a JSON backup file")
	return cmd
}

func newSyncCmd() *cobra.Command {
	var (
		tenant    string
		direction string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize training data between the live model and the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := admin.ParseSyncDirection(direction)
			if err != nil {
				return err
			}

			svc, closer, err := newAdminService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			res, err := svc.Sync(cmd.Context(), dir, tenant)
			if err != nil {
				return err
			}
			cmd.Printf("synced %d/%d records (%s, tenant: %s)\n", res.SyncedCount, res.SourceCount, res.Direction, orGlobal(tenant))
			for _, e := range res.Errors {
				cmd.Printf("  warning: %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (empty = global scope)")
	cmd.Flags().StringVar(&direction, "direction", "", "A_to_B (model to store) or B_to_A (store to model)")
	_ = cmd.MarkFlagRequired("direction")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Diff the live model against a database scope",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := newAdminService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			res, err := svc.Compare(cmd.Context(), tenant)
			if err != nil {
				return err
			}
			cmd.Printf("model: %d records, store: %d records (tenant: %s)\n", res.ModelCount, res.StoreCount, orGlobal(tenant))
			cmd.Printf("  only in model:     %d\n", res.OnlyInModel)
			cmd.Printf("  only in store:     %d\n", res.OnlyInStore)
			cmd.Printf("  content mismatch:  %d\n", res.ContentMismatch)
			if res.OnlyInModel == 0 && res.OnlyInStore == 0 && res.ContentMismatch == 0 {
				cmd.Println("data sources are in sync")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (empty = global scope)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := newAdminService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			st := svc.Status(cmd.Context())
			cmd.Printf("model:       %s (%d records)\n", reachable(st.ModelReachable), st.ModelCount)
			cmd.Printf("store:       %s (%d global ids)\n", reachable(st.StoreReachable), st.GlobalIDCount)
			cmd.Printf("json backups: %d\n", st.JSONBackups)
			return nil
		},
	}
}

func newListBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-backups",
		Short: "List JSON backup files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closer, err := newAdminService(cmd.Context())
			if err != nil {
				return err
			}
			defer closer()

			backups, err := svc.ListBackups()
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				cmd.Println("no backups found")
				return nil
			}
			for _, b := range backups {
				cmd.Printf("%s  %8d bytes  %s\n", b.Modified.Format("2006-01-02 15:04:05"), b.SizeBytes, b.Filename)
			}
			return nil
		},
	}
}

func orGlobal(tenant string) string {
	if strings.TrimSpace(tenant) == "" {
		return "global"
	}
	return tenant
}

func reachable(ok bool) string {
	if ok {
		return "reachable"
	}
	return "unreachable"
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
