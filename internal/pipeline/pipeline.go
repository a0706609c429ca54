// Package pipeline orchestrates the SSA passes over whole modules.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AdamKing07/Mezzano/internal/diag"
	"github.com/AdamKing07/Mezzano/internal/ir"
	"github.com/AdamKing07/Mezzano/internal/ssa"
	"github.com/AdamKing07/Mezzano/internal/trace"
)

const defaultMaxDiagnostics = 256

var stageOrder = []Stage{StageConstruct, StageVerify, StageDeconstruct}

// Run executes the configured stages for every function in the module,
// bounded by opts.Jobs workers. Functions are independent; each gets its own
// diagnostics bag, merged into Result.Bag in module order afterwards. A
// verification failure cancels outstanding work and surfaces as the returned
// error; the partial Result is still populated.
func Run(ctx context.Context, m *ir.Module, opts Options) (Result, error) {
	var result Result
	if ctx == nil {
		ctx = context.Background()
	}
	if m == nil {
		return result, fmt.Errorf("missing module")
	}

	maxDiag := opts.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = defaultMaxDiagnostics
	}

	funcs := m.Funcs
	if len(funcs) == 0 {
		result.Bag = diag.NewBag(maxDiag)
		return result, nil
	}

	runSpan := trace.Begin(opts.Tracer, trace.ScopeDriver, "pipeline_run", 0)

	results := make([]FuncResult, len(funcs))
	for i, f := range funcs {
		results[i] = FuncResult{Name: f.Name}
		emit(opts.Progress, Event{Func: f.Name, Stage: StageConstruct, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(funcs)))

	for i, f := range funcs {
		g.Go(func(i int, f *ir.Func) func() error {
			return func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				// Index i is unique per goroutine, so no mutex is needed.
				results[i] = runFunc(f, opts, maxDiag, runSpan.ID())
				if err := results[i].Err; err != nil {
					return fmt.Errorf("%s: %w", f.Name, err)
				}
				return nil
			}
		}(i, f))
	}

	waitErr := g.Wait()
	runSpan.End(fmt.Sprintf("funcs=%d", len(funcs)))

	result.Funcs = results
	result.Bag = diag.NewBag(maxDiag)
	for i := range results {
		if results[i].Bag != nil {
			result.Bag.Merge(results[i].Bag)
		}
	}
	for _, stage := range stageOrder {
		for i := range results {
			if results[i].Timings.Has(stage) {
				result.Timings.Add(stage, results[i].Timings.Duration(stage))
			}
		}
	}

	if waitErr != nil {
		return result, waitErr
	}
	return result, nil
}

// RunFunc executes the configured stages for a single function. Stage events
// go to opts.Progress; findings land in the returned FuncResult.Bag. A
// verification failure is recorded in FuncResult.Err and skips any remaining
// stages.
func RunFunc(f *ir.Func, opts Options) FuncResult {
	maxDiag := opts.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = defaultMaxDiagnostics
	}
	return runFunc(f, opts, maxDiag, 0)
}

func runFunc(f *ir.Func, opts Options, maxDiag int, parent uint64) FuncResult {
	fr := FuncResult{Name: f.Name, Bag: diag.NewBag(maxDiag)}
	rep := diag.BagReporter{Bag: fr.Bag}
	passOpts := ssa.Options{Tracer: opts.Tracer, Reporter: rep}

	sp := trace.Begin(opts.Tracer, trace.ScopePass, "construct", parent)
	emit(opts.Progress, Event{Func: f.Name, Stage: StageConstruct, Status: StatusWorking})
	start := time.Now()
	fr.Stats = ssa.Construct(f, passOpts)
	dur := time.Since(start)
	sp.End(f.Name)
	fr.Timings.Set(StageConstruct, dur)
	reportConverted(rep, f.Name, fr.Stats)
	emit(opts.Progress, Event{Func: f.Name, Stage: StageConstruct, Status: StatusDone, Elapsed: dur})

	if opts.Verify {
		sp = trace.Begin(opts.Tracer, trace.ScopePass, "verify", parent)
		emit(opts.Progress, Event{Func: f.Name, Stage: StageVerify, Status: StatusWorking})
		start = time.Now()
		err := ssa.Check(f)
		dur = time.Since(start)
		sp.End(f.Name)
		fr.Timings.Set(StageVerify, dur)
		if err != nil {
			diag.ReportError(rep, diag.SSAVerifyFailed, diag.FuncSite(f.Name), err.Error()).Emit()
			fr.Err = fmt.Errorf("ssa verification failed: %w", err)
			emit(opts.Progress, Event{Func: f.Name, Stage: StageVerify, Status: StatusError, Err: err, Elapsed: dur})
			return fr
		}
		emit(opts.Progress, Event{Func: f.Name, Stage: StageVerify, Status: StatusDone, Elapsed: dur})
	}

	if opts.Deconstruct {
		sp = trace.Begin(opts.Tracer, trace.ScopePass, "deconstruct", parent)
		emit(opts.Progress, Event{Func: f.Name, Stage: StageDeconstruct, Status: StatusWorking})
		start = time.Now()
		fr.Moves = ssa.Deconstruct(f, passOpts)
		dur = time.Since(start)
		sp.End(f.Name)
		fr.Timings.Set(StageDeconstruct, dur)
		reportInserted(rep, f.Name, fr.Moves)
		emit(opts.Progress, Event{Func: f.Name, Stage: StageDeconstruct, Status: StatusDone, Elapsed: dur})
	}

	return fr
}

func reportConverted(rep diag.Reporter, fn string, stats ssa.Stats) {
	converted := stats.Simple + stats.Full
	total := converted + stats.Rejected
	diag.ReportInfo(rep, diag.SSAConverted, diag.FuncSite(fn),
		fmt.Sprintf("converted %d of %d candidates (%d simple, %d full)",
			converted, total, stats.Simple, stats.Full)).Emit()
}

func reportInserted(rep diag.Reporter, fn string, moves int) {
	diag.ReportInfo(rep, diag.SSADeconInserted, diag.FuncSite(fn),
		fmt.Sprintf("inserted %d moves while lowering phi joins", moves)).Emit()
}

func emit(sink ProgressSink, evt Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(evt)
}
