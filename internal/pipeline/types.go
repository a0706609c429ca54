package pipeline

import (
	"time"

	"github.com/AdamKing07/Mezzano/internal/diag"
	"github.com/AdamKing07/Mezzano/internal/ssa"
	"github.com/AdamKing07/Mezzano/internal/trace"
)

// Stage describes one pass over a function.
type Stage string

const (
	// StageConstruct is SSA construction: discovery, simple, full.
	StageConstruct Stage = "construct"
	// StageVerify is the SSA verifier.
	StageVerify Stage = "verify"
	// StageDeconstruct is phi deconstruction back to explicit moves.
	StageDeconstruct Stage = "deconstruct"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the function is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is currently running.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished.
	StatusDone Status = "done"
	// StatusError indicates the stage failed.
	StatusError Status = "error"
)

// Event reports progress for one function.
type Event struct {
	Func    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Options configures a pipeline run. The zero value constructs without
// verification or deconstruction and reports nothing.
type Options struct {
	Verify         bool         // assert the SSA post-condition after construction
	Deconstruct    bool         // lower phi joins back to moves afterwards
	Jobs           int          // worker limit; 0 means GOMAXPROCS
	MaxDiagnostics int          // findings cap per function; 0 means 256
	Progress       ProgressSink // per-function stage events; nil disables
	Tracer         trace.Tracer // span recording; nil disables
}

// FuncResult captures one function's passage through the pipeline.
type FuncResult struct {
	Name    string
	Stats   ssa.Stats
	Moves   int // moves inserted by deconstruction
	Bag     *diag.Bag
	Timings Timings
	Err     error
}

// Result captures a whole-module run.
type Result struct {
	Funcs   []FuncResult
	Timings Timings   // stage durations summed across functions
	Bag     *diag.Bag // per-function findings merged in module order
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Add accumulates a duration onto the given stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] += dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
