package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/AdamKing07/Mezzano/internal/config"
	"github.com/AdamKing07/Mezzano/internal/diag"
	"github.com/AdamKing07/Mezzano/internal/ir"
	"github.com/AdamKing07/Mezzano/internal/irtext"
	"github.com/AdamKing07/Mezzano/internal/pipeline"
	"github.com/AdamKing07/Mezzano/internal/snapshot"
	"github.com/AdamKing07/Mezzano/internal/trace"
)

var ssaCmd = &cobra.Command{
	Use:   "ssa [flags] <input.mzs|input.mzi>",
	Short: "Convert module functions to SSA form",
	Long:  `Run candidate discovery, SSA construction, and optionally verification and phi deconstruction over every function in a module`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSSA,
}

// init registers the flags of the ssa command. Unset flags fall back to the
// manifest's [pipeline] section.
func init() {
	ssaCmd.Flags().Bool("deconstruct", false, "lower phi joins back to moves after construction")
	ssaCmd.Flags().Bool("no-verify", false, "skip the SSA verifier")
	ssaCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	ssaCmd.Flags().String("ui", "auto", "interactive progress display (auto|on|off)")
	ssaCmd.Flags().Bool("dump", false, "print the transformed module as textual IR")
	ssaCmd.Flags().StringP("out", "o", "", "write the transformed module snapshot to this path")
}

func runSSA(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	deconstruct, err := cmd.Flags().GetBool("deconstruct")
	if err != nil {
		return fmt.Errorf("failed to get deconstruct flag: %w", err)
	}
	noVerify, err := cmd.Flags().GetBool("no-verify")
	if err != nil {
		return fmt.Errorf("failed to get no-verify flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	dumpModule, err := cmd.Flags().GetBool("dump")
	if err != nil {
		return fmt.Errorf("failed to get dump flag: %w", err)
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	cfg, _, err := config.FromDir(filepath.Dir(inputPath))
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Verify:         cfg.Pipeline.Verify,
		Deconstruct:    cfg.Pipeline.Deconstruct,
		Jobs:           cfg.Pipeline.Jobs,
		MaxDiagnostics: cfg.Pipeline.MaxDiagnostics,
	}
	if cmd.Flags().Changed("no-verify") {
		opts.Verify = !noVerify
	}
	if cmd.Flags().Changed("deconstruct") {
		opts.Deconstruct = deconstruct
	}
	if cmd.Flags().Changed("jobs") {
		opts.Jobs = jobs
	}
	if cmd.Root().PersistentFlags().Changed("max-diagnostics") {
		opts.MaxDiagnostics = maxDiagnostics
	}

	traceCleanup, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}
	defer traceCleanup()

	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer profCleanup()

	opts.Tracer = trace.FromContext(cmd.Context())

	m, err := loadModule(inputPath)
	if err != nil {
		return err
	}

	if bag := validateModule(m, opts.MaxDiagnostics); bag.HasErrors() {
		printDiagnostics(cmd.OutOrStdout(), bag, quiet)
		// Suppress cobra usage output on diagnostic errors
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("") // Silent error - diagnostics already printed
	}

	title := fmt.Sprintf("ssa %s", filepath.Base(inputPath))
	var res pipeline.Result
	var runErr error
	if shouldUseTUI(mode) && len(m.Funcs) > 0 {
		res, runErr = runPipelineWithUI(cmd.Context(), title, m, opts)
	} else {
		res, runErr = pipeline.Run(cmd.Context(), m, opts)
	}

	printDiagnostics(cmd.OutOrStdout(), res.Bag, quiet)
	if !quiet {
		printRunSummary(cmd.OutOrStdout(), res, useColor(cmd))
	}
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}

	if dumpModule {
		if err := ir.DumpModule(cmd.OutOrStdout(), m, ir.DumpOptions{}); err != nil {
			return fmt.Errorf("failed to dump module: %w", err)
		}
	}

	if runErr != nil {
		cmd.SilenceUsage = true
		return runErr
	}

	if outPath != "" {
		if err := snapshot.Write(outPath, m); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}

	return nil
}

// loadModule reads a module from a snapshot (.mzs) or textual IR (.mzi).
func loadModule(path string) (*ir.Module, error) {
	switch filepath.Ext(path) {
	case ".mzs":
		m, err := snapshot.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot: %w", err)
		}
		return m, nil
	case ".mzi":
		data, err := os.ReadFile(path) // #nosec G304 -- path is the user-supplied input argument
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return irtext.ParseModule(path, string(data))
	default:
		return nil, fmt.Errorf("unsupported input %q (expected .mzs or .mzi)", path)
	}
}

// validateModule runs the structural validator over every function and
// collects the failures as findings.
func validateModule(m *ir.Module, maxDiagnostics int) *diag.Bag {
	bag := diag.NewBag(maxDiagnostics)
	rep := diag.BagReporter{Bag: bag}
	for _, f := range m.Funcs {
		if err := ir.ValidateFunc(f); err != nil {
			diag.ReportError(rep, diag.IRInvalidStream, diag.FuncSite(f.Name), err.Error()).Emit()
		}
	}
	return bag
}

func printDiagnostics(out io.Writer, bag *diag.Bag, quiet bool) {
	items := bag.Items()
	if quiet {
		filtered := make([]diag.Diagnostic, 0, len(items))
		for _, d := range items {
			if d.Severity >= diag.SevError {
				filtered = append(filtered, d)
			}
		}
		items = filtered
	}
	if output := diag.FormatDiagnostics(items, true); output != "" {
		fmt.Fprintln(out, output)
	}
}

func printRunSummary(out io.Writer, res pipeline.Result, colored bool) {
	var converted, rejected, moves int
	for _, fr := range res.Funcs {
		converted += fr.Stats.Simple + fr.Stats.Full
		rejected += fr.Stats.Rejected
		moves += fr.Moves
	}

	status := "ok"
	if res.Bag.HasErrors() {
		status = "failed"
	}
	if colored {
		c := color.New(color.FgGreen)
		if status == "failed" {
			c = color.New(color.FgRed)
		}
		status = c.Sprint(status)
	}

	line := fmt.Sprintf("%s: %d functions, %d candidates converted, %d rejected",
		status, len(res.Funcs), converted, rejected)
	if res.Timings.Has(pipeline.StageDeconstruct) {
		line += fmt.Sprintf(", %d moves inserted", moves)
	}
	fmt.Fprintln(out, line)
}

func useColor(cmd *cobra.Command) bool {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false
	}
	return colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))
}
