package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, injected via ldflags.
var (
	version   = "development"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(*cobra.Command, []string) {
		fmt.Printf("chatrelay %s\n", version)
		fmt.Printf("  build time: %s\n", buildTime)
		fmt.Printf("  git commit: %s\n", gitCommit)
		fmt.Printf("  go version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
