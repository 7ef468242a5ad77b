// Package cli implements the promptops command line interface.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "promptops",
	Short: "Prompt management MCP server",
	Long: "Promptops serves a prompt library over MCP: composition with " +
		"deduplication and token budgets, semantic search, a cross-session " +
		"progress queue, and a duplicate-call guard. Single Go binary.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Best-effort: a missing .env file is not an error.
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
