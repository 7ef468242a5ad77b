package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	promptserver "github.com/shippopotamus/promptops/internal/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("promptops %s\n", promptserver.Version)
	},
}
