package main

import (
	"github.com/spf13/cobra"

	"kaizen/internal/mcp"
	"kaizen/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server. It speaks JSON-RPC 2.0 over stdio
and exposes retrieval and curation tools such as get_task_context,
lookup_knowledge, write_knowledge and resolve_knowledge_conflict.

Logs go to stderr, and to <data-dir>/logs/mcp.log when mcp.logFile is set.

This command is normally launched by an MCP client rather than by hand.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(mcpLogs)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcp.NewMCPServer(version.Version, mcp.Deps{
		DB:     a.db,
		Repos:  a.repos,
		Engine: a.engine,
		Guard:  a.guard,
	}, a.logger)

	if err := server.Start(); err != nil {
		a.logger.Error("MCP server error", "error", err.Error())
		return err
	}
	return nil
}
