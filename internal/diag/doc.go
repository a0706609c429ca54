// Package diag defines the diagnostic model shared by all backend passes.
//
// # Purpose
//
//   - Provide deterministic, serialisable data structures that capture findings
//     produced by the reader, validator, and SSA passes.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to concrete storage or formatting layers.
//
// # Scope
//
// Diagnostics here are observational: per-candidate SSA rejections, conversion
// counts, and structural findings. They are never part of a pass's functional
// contract — callers must not branch on them. Pass failures that must abort
// the pipeline travel as ordinary errors, not diagnostics.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary site – the function and instruction the finding points at.
//   - Notes – optional secondary sites/messages for additional context.
//
// # Emitting diagnostics
//
// Passes should use a diag.Reporter to decouple emission from storage. A pass
// constructs a ReportBuilder via NewReportBuilder (or the helper functions
// ReportError/ReportWarning/ReportInfo) and chains WithNote before calling
// Emit. When no additional metadata is needed, passes may call
// Reporter.Report(...) directly. diag.BagReporter aggregates diagnostics into
// a Bag for later sorting and rendering.
package diag
