// Package cmd wires the chatrelay CLI: serve runs the HTTP backend,
// migrate applies schema migrations, version prints build info.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "chatrelay - streaming chat backend",
	Long: `chatrelay is a chat backend that persists conversations in PostgreSQL
and relays streaming responses from an OpenAI-compatible model provider
over server-sent events.

Run "chatrelay serve" to start the HTTP server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
