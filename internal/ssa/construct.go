package ssa

import "github.com/AdamKing07/Mezzano/internal/ir"

// Stats summarises one function's SSA construction.
type Stats struct {
	Simple   int // simple locals inlined
	Full     int // full candidates converted
	Rejected int // candidates left as ordinary loads and stores
}

// Construct runs candidate discovery, simple conversion, and full conversion
// over one function. The stream must be structurally valid on entry; callers
// that want the SSA post-condition asserted run Check afterwards.
func Construct(f *ir.Func, opts Options) Stats {
	cands := DiscoverCandidates(f, opts)
	simple := ConvertSimple(f, cands.Simple, opts)
	full := ConvertFull(f, cands.Full, opts)
	return Stats{
		Simple:   simple,
		Full:     full,
		Rejected: len(cands.Rejected) + (len(cands.Full) - full),
	}
}
