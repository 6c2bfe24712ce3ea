package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giho-tech/helpdesk/internal/knowledge"
	"github.com/giho-tech/helpdesk/internal/progress"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the knowledge base with starter solutions",
	Long:  `Deletes every knowledge-base entry and inserts the built-in robot troubleshooting solutions, or the entries of a YAML file given with --file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sols := knowledge.DefaultSolutions()
		if seedFile != "" {
			if sols, err = knowledge.LoadSeedFile(seedFile); err != nil {
				return err
			}
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		reporter := progress.NewReporter(cmd.ErrOrStderr(), "Seeding knowledge base")
		reporter.Start(len(sols))
		done := 0
		err = knowledge.NewStore(database).Seed(cmd.Context(), sols, func(sol knowledge.Solution) {
			done++
			reporter.Update(done, sol.Title)
		})
		reporter.Finish()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d solution(s)\n", done)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML file with solutions (title, keywords, description, video_url)")
	rootCmd.AddCommand(seedCmd)
}
