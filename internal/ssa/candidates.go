package ssa

import (
	"fmt"

	"github.com/AdamKing07/Mezzano/internal/diag"
	"github.com/AdamKing07/Mezzano/internal/ir"
	"github.com/AdamKing07/Mezzano/internal/trace"
)

// Candidates partitions a function's locals by how SSA construction may
// treat them. The three sets are disjoint; a local that is never bound
// appears in none of them.
type Candidates struct {
	// Simple locals are bound once and never stored into.
	Simple []ir.LocalID
	// Full locals are stored into and need phi placement.
	Full []ir.LocalID
	// Rejected locals stay as ordinary loads and stores.
	Rejected []ir.LocalID
}

type localUsage struct {
	bound   bool
	stored  bool
	bindOrd int
	lastOrd int
}

// DiscoverCandidates scans the stream once and classifies every bound local.
// A local that is never stored into is simple. A stored-into local is full
// unless its live range spans a begin-NLX marker: an unwind can leave that
// region through an edge the CFG does not model, so dominance-based value
// tracking cannot see it and the local is rejected instead.
func DiscoverCandidates(f *ir.Func, opts Options) Candidates {
	sp := trace.Begin(opts.Tracer, trace.ScopeFunction, "ssa_discover", 0)

	type nlxMarker struct {
		ord int
		id  ir.InstrID
	}
	usage := make([]localUsage, len(f.Locals))
	binds := make([]ir.InstrID, len(f.Locals))
	for i := range binds {
		binds[i] = ir.NoInstrID
	}
	var markers []nlxMarker

	ord := 0
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		switch in := &f.Instrs[id]; in.Kind {
		case ir.InstrBind:
			u := &usage[in.Bind.Local]
			u.bound = true
			u.bindOrd = ord
			u.lastOrd = ord
			binds[in.Bind.Local] = id
		case ir.InstrLoad:
			usage[in.Load.Local].lastOrd = ord
		case ir.InstrStore:
			u := &usage[in.Store.Local]
			u.stored = true
			u.lastOrd = ord
		case ir.InstrUnbind:
			usage[in.Unbind.Local].lastOrd = ord
		case ir.InstrBeginNLX:
			markers = append(markers, nlxMarker{ord: ord, id: id})
		}
		ord++
	}

	var c Candidates
	for l := range usage {
		u := &usage[l]
		if !u.bound {
			continue
		}
		lid := ir.LocalID(l) //nolint:gosec // G115: bounded by NewLocal
		if !u.stored {
			c.Simple = append(c.Simple, lid)
			continue
		}
		marker := ir.NoInstrID
		for _, m := range markers {
			if u.bindOrd < m.ord && m.ord < u.lastOrd {
				marker = m.id
				break
			}
		}
		if marker == ir.NoInstrID {
			c.Full = append(c.Full, lid)
			continue
		}
		c.Rejected = append(c.Rejected, lid)
		trace.Point(opts.Tracer, trace.ScopeCandidate, "reject_nlx", f.LocalName(lid), sp.ID())
		diag.ReportInfo(opts.Reporter, diag.SSARejectNLX, diag.InstrSite(f.Name, binds[l]),
			fmt.Sprintf("local %s not converted: live range crosses a non-local-exit region", f.LocalName(lid))).
			WithNote(diag.InstrSite(f.Name, marker), "region begins here").
			Emit()
	}

	sp.End(fmt.Sprintf("simple=%d full=%d rejected=%d", len(c.Simple), len(c.Full), len(c.Rejected)))
	return c
}
