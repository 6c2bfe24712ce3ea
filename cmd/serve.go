package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/giho-tech/helpdesk/internal/knowledge"
	mcpserver "github.com/giho-tech/helpdesk/internal/mcp"
	"github.com/giho-tech/helpdesk/internal/tickets"
	"github.com/giho-tech/helpdesk/internal/warranty"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing knowledge-base search, warranty lookup and ticket retrieval to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		kb := knowledge.NewStore(database)
		var checker warranty.Checker
		if cfg.Warranty.RegistryURL != "" {
			checker = warranty.NewClient(cfg.Warranty.RegistryURL, cfg.Warranty.APIKey, cfg.Warranty.Timeout, slog.Default())
		}

		count, err := kb.Count(cmd.Context())
		if err != nil {
			return err
		}
		mcpserver.Version = Version
		slog.Info("helpdesk MCP server started on stdio", "solutions", count)

		return mcpserver.NewServer(kb, checker, tickets.NewStore(database)).Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
