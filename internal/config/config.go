// Package config reads the optional mezzano.toml manifest. File values
// overlay the defaults; command-line flags overlay both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/AdamKing07/Mezzano/internal/trace"
)

// Manifest is the file name looked up by Find.
const Manifest = "mezzano.toml"

// Config mirrors the mezzano.toml layout.
type Config struct {
	Pipeline PipelineConfig `toml:"pipeline"`
	Trace    TraceConfig    `toml:"trace"`
	Dump     DumpConfig     `toml:"dump"`
}

// PipelineConfig configures the pass pipeline.
type PipelineConfig struct {
	// Jobs bounds the number of functions processed concurrently.
	// 0 means one worker per CPU.
	Jobs int `toml:"jobs"`
	// Verify runs the SSA checker after construction.
	Verify bool `toml:"verify"`
	// Deconstruct lowers phi merges back to moves after construction.
	Deconstruct bool `toml:"deconstruct"`
	// MaxDiagnostics caps the diagnostics kept per run.
	MaxDiagnostics int `toml:"max_diagnostics"`
}

// TraceConfig configures the tracer.
type TraceConfig struct {
	// Level is off, phase, detail, or debug.
	Level string `toml:"level"`
	// Output is the trace sink path; empty means stderr.
	Output string `toml:"output"`
	// Format is text, ndjson, or chrome; empty picks by file extension.
	Format string `toml:"format"`
	// Mode is stream, ring, or both; empty means stream. Ring keeps the
	// last events in memory and writes them only when the run ends.
	Mode string `toml:"mode"`
	// RingSize bounds the events kept in ring and both modes. 0 means
	// the tracer default.
	RingSize int `toml:"ring_size"`
}

// DumpConfig configures the dump command.
type DumpConfig struct {
	// Out is the output path; empty means stdout.
	Out string `toml:"out"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			Jobs:           0,
			Verify:         true,
			Deconstruct:    false,
			MaxDiagnostics: 256,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find walks from startDir toward the filesystem root looking for the
// manifest. ok is false when no manifest exists on the path.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, Manifest)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FromDir finds and loads the nearest manifest. Without a manifest the
// defaults come back with an empty path.
func FromDir(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Validate checks field ranges and enum values.
func (c *Config) Validate() error {
	var errs []error
	if c.Pipeline.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[pipeline].jobs must not be negative, got %d", c.Pipeline.Jobs))
	}
	if c.Pipeline.MaxDiagnostics < 0 {
		errs = append(errs, fmt.Errorf("[pipeline].max_diagnostics must not be negative, got %d", c.Pipeline.MaxDiagnostics))
	}
	if c.Trace.Level != "" {
		if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
			errs = append(errs, fmt.Errorf("[trace].level: %w", err))
		}
	}
	if c.Trace.Format != "" {
		if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
			errs = append(errs, fmt.Errorf("[trace].format: %w", err))
		}
	}
	if c.Trace.Mode != "" {
		if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
			errs = append(errs, fmt.Errorf("[trace].mode: %w", err))
		}
	}
	if c.Trace.RingSize < 0 {
		errs = append(errs, fmt.Errorf("[trace].ring_size must not be negative, got %d", c.Trace.RingSize))
	}
	return errors.Join(errs...)
}
