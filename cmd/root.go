// Package cmd wires the CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qametric",
	Short: "Natural-language QA metrics assistant",
	Long: `qametric answers natural-language questions about QA metrics
(test projects, cases, runs and results) stored in an external
test-management service, by routing each question through an
LLM-backed tool-calling agent.

Run "qametric serve" to start the HTTP API, or "qametric ask" for a
one-shot question from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
