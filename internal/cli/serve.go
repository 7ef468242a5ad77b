package cli

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	promptserver "github.com/shippopotamus/promptops/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	s, cleanup, err := promptserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check prints to stderr so it cannot interfere
	// with the stdio transport on stdout.
	go checkForUpdates()

	// The stdio transport owns stdout; everything else goes to stderr.
	// ServeStdio returns when stdin closes or the process is signaled.
	return server.ServeStdio(s)
}
