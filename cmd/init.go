package cmd

import (
	"github.com/spf13/cobra"

	"github.com/giho-tech/helpdesk/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create helpdesk.yml with an interactive wizard",
	Long:  `Runs an interactive wizard for AI providers, warranty registry, attachment storage and the first admin account, then writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
