// Package cmd implements the prodmap command line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/prodmap/prodmap/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "0.0.1"
	GitCommit = "unknown"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "prodmap",
	Short: "prodmap - RAG engine for product management data",
	Long: `prodmap manages context spaces, feature requests and their embeddings,
and answers questions over them with a configurable AI provider.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

// newLogger builds the process logger. Logs go to stderr so command
// output stays clean on stdout.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if debugFlag || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}
