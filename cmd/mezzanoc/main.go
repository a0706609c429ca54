package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AdamKing07/Mezzano/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "mezzanoc",
	Short: "Mezzano compiler backend toolchain",
	Long:  `mezzanoc drives the register-IR backend passes: SSA construction, verification, and phi deconstruction`,
}

// main registers subcommands and persistent flags, then executes the root
// command. A command error exits with status code 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(ssaCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 256, "maximum number of diagnostics to keep")
	rootCmd.PersistentFlags().String("trace", "", "trace level (off|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-out", "", "trace output path (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-format", "", "trace output format (auto|text|ndjson|chrome)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage mode (stream|ring|both)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this path")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this path")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime execution trace to this path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
