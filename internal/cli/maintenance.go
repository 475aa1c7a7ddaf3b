package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"metinanaliz/internal/uploads"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the SQLite database into the backup directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, svc, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		path, err := svc.Backup(cmd.Context(), cfg.Paths.BackupDir, cfg.Processing.BackupKeep)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var cleanupMaxAge time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove duplicate records and expired upload batches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, svc, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		report, err := svc.Deduplicate(cmd.Context())
		if err != nil {
			return fmt.Errorf("deduplicate: %w", err)
		}
		ttl := cleanupMaxAge
		if ttl <= 0 {
			ttl = cfg.Processing.UploadTTL()
		}
		removed, err := uploads.NewSweeper(cfg.Paths.UploadDir, ttl).Sweep()
		if err != nil {
			return fmt.Errorf("sweep uploads: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved results removed: %d\nlogs removed: %d\nupload batches removed: %d\n",
			report.SavedResults, report.Logs, removed)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupMaxAge, "max-age", 0, "remove upload batches older than this (default from config)")
	rootCmd.AddCommand(backupCmd, cleanupCmd)
}
