// Package trace provides a tracing subsystem for the Mezzano backend.
//
// The trace package records pass boundaries, per-function processing, and
// per-candidate conversion decisions to help diagnose slow or misbehaving
// pipeline runs.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	mezzanoc ssa --trace=- --trace-level=phase prog.mzir
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - NopTracer: Zero-overhead no-op tracer when disabled
//   - StreamTracer: Immediate write to output (file/stderr)
//   - RingTracer: Circular buffer for crash dumps
//   - MultiTracer: Combines multiple tracers
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: No tracing
//   - LevelPhase: Driver and pass boundaries
//   - LevelDetail: Function-level events
//   - LevelDebug: Everything including per-candidate decisions
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeDriver: Top-level CLI operations
//   - ScopePass: Pipeline passes (construct, verify, deconstruct)
//   - ScopeFunction: Per-function processing
//   - ScopeCandidate: Per-candidate conversion detail
//
// # Context Propagation
//
// Tracers are propagated through the pipeline via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "construct", parentID)
//	defer span.End("")
package trace
