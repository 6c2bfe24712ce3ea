package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete tickets older than the retention age",
	Long:  `Runs one retention sweep: tickets older than retention.max_age are deleted together with their uploaded attachments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, nil, slog.Default())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.retention.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d ticket(s), removed %d file(s), %d file error(s), %d foreign file(s) kept\n",
			report.Deleted, report.FilesRemoved, report.FileErrors, report.FilesSkipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
