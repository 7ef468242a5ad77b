// Promptops: Prompt Management MCP Server
//
// An MCP server that gives AI coding tools a managed prompt library:
// save, compose, and search prompts, track work across sessions, and
// guard against duplicate tool calls.
//
// Usage:
//
//	promptops serve      # Start MCP server (stdio transport)
//	promptops version    # Print version information
package main

import (
	"fmt"
	"os"

	"github.com/shippopotamus/promptops/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
