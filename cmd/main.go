// cmd/main.go

// command caspack manages msx cassette images (.cas files): it lists and
// extracts their files, adds host files to them and converts them into audio
// that a real msx can load from its cassette port.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// set by the release build
var version = "dev"

var (
	verbose bool
	logger  = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:           "caspack",
	Short:         "Manage MSX cassette images (.cas) and convert them to audio",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(os.Stderr, verbose)
	},
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every step to stderr")
	rootCmd.AddCommand(listCmd, addCmd, extractCmd, exportCmd, shellCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
