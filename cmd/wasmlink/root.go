package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "wasmlink",
	Short: "Read, validate, and link raw WebAssembly binaries",
	Long: `wasmlink is a toolkit for working with WebAssembly modules at the
binary level: a streaming section reader, a validating compiler that
lowers function bodies to a flat instruction stream, and a linker that
merges several relocatable modules into one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level trace logging")
	rootCmd.AddCommand(validateCmd, compileCmd, linkCmd)
}

// newLogger returns a console-encoded zap logger at Info level, or Debug
// when --verbose is set. Kept separate from zap.NewDevelopment so the CLI
// controls its own encoder config rather than inheriting zap's defaults.
func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// printError writes a red-highlighted failure line to stderr, falling back
// to plain text when fatih/color has detected a non-terminal output (a
// pipe or redirect) and disabled itself.
func printError(cmd *cobra.Command, err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintln(cmd.ErrOrStderr(), "error:", err)
}

// printSection writes a dim trace line, used by validate's --trace flag
// to print the input path and size before reading; no per-section lines
// are printed.
func printSection(cmd *cobra.Command, format string, args ...interface{}) {
	dim := color.New(color.FgHiBlack)
	dim.Fprintln(cmd.OutOrStdout(), fmt.Sprintf(format, args...))
}
