package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AdamKing07/Mezzano/internal/config"
	"github.com/AdamKing07/Mezzano/internal/trace"
)

// setupTracing initializes the tracer from the manifest's [trace] section
// overlaid with the trace flags, attaches it to the command context, and
// returns a cleanup function.
func setupTracing(cmd *cobra.Command, cfg config.Config) (func(), error) {
	root := cmd.Root()

	levelStr := cfg.Trace.Level
	if root.PersistentFlags().Changed("trace") {
		v, err := root.PersistentFlags().GetString("trace")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace flag: %w", err)
		}
		levelStr = v
	}

	outputPath := cfg.Trace.Output
	if root.PersistentFlags().Changed("trace-out") {
		v, err := root.PersistentFlags().GetString("trace-out")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace-out flag: %w", err)
		}
		outputPath = v
	}

	formatStr := cfg.Trace.Format
	if root.PersistentFlags().Changed("trace-format") {
		v, err := root.PersistentFlags().GetString("trace-format")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
		}
		formatStr = v
	}

	modeStr := cfg.Trace.Mode
	if root.PersistentFlags().Changed("trace-mode") {
		v, err := root.PersistentFlags().GetString("trace-mode")
		if err != nil {
			return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
		}
		modeStr = v
	}

	level := trace.LevelOff
	if levelStr != "" {
		var err error
		level, err = trace.ParseLevel(levelStr)
		if err != nil {
			return nil, fmt.Errorf("invalid trace level: %w", err)
		}
	}

	if level == trace.LevelOff {
		ctx := trace.WithTracer(cmd.Context(), trace.Nop)
		cmd.SetContext(ctx)
		cmd.Root().SetContext(ctx)
		return func() {}, nil
	}

	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace format: %w", err)
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	if outputPath == "" {
		outputPath = "-"
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: outputPath,
		RingSize:   cfg.Trace.RingSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	cleanup := func() {
		dumpTraceRings(cmd, tracer, mode, format, outputPath)
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}

	return cleanup, nil
}

// dumpTraceRings writes the buffered ring events out at the end of a run.
// In ring mode nothing was streamed, so the dump goes to the configured
// output; in both mode the stream owns the output and the ring tail is
// recapped to stderr instead.
func dumpTraceRings(cmd *cobra.Command, tracer trace.Tracer, mode trace.StorageMode, format trace.Format, outputPath string) {
	var rings []*trace.RingTracer
	switch t := tracer.(type) {
	case *trace.RingTracer:
		rings = append(rings, t)
	case *trace.MultiTracer:
		rings = t.Rings()
	}
	if len(rings) == 0 {
		return
	}
	if format == trace.FormatAuto {
		format = trace.DetectFormat(outputPath)
	}

	var w io.Writer = cmd.ErrOrStderr()
	if mode == trace.ModeRing && outputPath != "" && outputPath != "-" {
		f, err := os.Create(outputPath) // #nosec G304 -- path comes from the user's flag or manifest
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: ring dump: %v\n", err)
			return
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: ring dump close: %v\n", cerr)
			}
		}()
		w = f
	}

	for _, r := range rings {
		if err := r.Dump(w, format); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: ring dump: %v\n", err)
			return
		}
	}
}
