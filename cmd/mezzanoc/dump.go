package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AdamKing07/Mezzano/internal/config"
	"github.com/AdamKing07/Mezzano/internal/ir"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <input.mzs|input.mzi>",
	Short: "Print a module as textual IR",
	Long:  `Read a module snapshot or textual IR file and print every function as a numbered instruction listing`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringP("out", "o", "", "write the listing to this path instead of stdout")
}

func runDump(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}

	cfg, _, err := config.FromDir(filepath.Dir(inputPath))
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = cfg.Dump.Out
	}

	m, err := loadModule(inputPath)
	if err != nil {
		return err
	}

	// The printer follows Next links, so refuse streams the validator rejects.
	for _, f := range m.Funcs {
		if err := ir.ValidateFunc(f); err != nil {
			return fmt.Errorf("%s: invalid instruction stream: %w", f.Name, err)
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath) // #nosec G304 -- path comes from the user's flag or manifest
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				fmt.Fprintf(os.Stderr, "dump: close error: %v\n", cerr)
			}
		}()
		w = f
	}

	return ir.DumpModule(w, m, ir.DumpOptions{})
}
