// Package ssa converts mutable locals to static single-assignment form and
// later lowers the resulting phi merges back to ordinary moves.
//
// Construction partitions a function's locals into simple, full, and
// rejected candidates (DiscoverCandidates), inlines the simple ones
// (ConvertSimple), and runs dominance-frontier phi placement plus
// dominator-tree renaming over the full ones (ConvertFull). Phi results live
// in label phi lists, positionally paired with the value lists of the jumps
// that target them. Check asserts the SSA post-condition afterwards; a
// violation is a defect in an upstream pass, never bad input.
//
// Deconstruction (Deconstruct) turns each jump/label pair back into an
// explicit parallel assignment, saving conflicting sources to temporaries
// and eliding self-assignments, leaving every edge value-free for linear
// code generation.
//
// Passes mutate the function in place and assume exclusive ownership while
// running. Distinct functions share nothing and may be processed
// concurrently on separate workers.
package ssa
