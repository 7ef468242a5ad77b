package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	promptserver "github.com/shippopotamus/promptops/internal/server"
	"github.com/shippopotamus/promptops/internal/updater"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update to the latest released version",
	Run: func(cmd *cobra.Command, args []string) {
		runUpdate()
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "Checking for updates...\n")

	result := updater.CheckVersion(promptserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s -> v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Downloading...\n")

	if err := updater.SelfUpdate(promptserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart promptops to use the new version.\n")
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. Best-effort: network failures
// are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(promptserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s -> v%s\n"+
				"     Run: promptops update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}
