package ssa

import (
	"fmt"

	"github.com/AdamKing07/Mezzano/internal/ir"
	"github.com/AdamKing07/Mezzano/internal/trace"
)

// ConvertSimple inlines every simple candidate: each load's result register
// is redirected to the value the local was bound with and the load is
// deleted. No dominance is needed; a never-stored local's value is invariant
// from its binding to any reachable load.
//
// Returns the number of locals inlined. Bindings stay in place for a later
// dead-code pass.
func ConvertSimple(f *ir.Func, simple []ir.LocalID, opts Options) int {
	if len(simple) == 0 {
		return 0
	}
	sp := trace.Begin(opts.Tracer, trace.ScopeFunction, "ssa_convert_simple", 0)

	want := make(map[ir.LocalID]bool, len(simple))
	for _, l := range simple {
		want[l] = true
	}

	binds := make(map[ir.LocalID]ir.InstrID, len(simple))
	loads := make(map[ir.LocalID][]ir.InstrID)
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		switch in := &f.Instrs[id]; in.Kind {
		case ir.InstrBind:
			if want[in.Bind.Local] {
				binds[in.Bind.Local] = id
			}
		case ir.InstrLoad:
			if want[in.Load.Local] {
				loads[in.Load.Local] = append(loads[in.Load.Local], id)
			}
		}
	}

	ud := ir.BuildUseDef(f)
	converted := 0
	for _, l := range simple {
		bind, ok := binds[l]
		if !ok {
			continue
		}
		// Read the bound value now, not at scan time: when the binding used
		// an earlier simple local's load result, the redirect above has
		// already rewritten it.
		value := f.Instrs[bind].Bind.Value
		for _, loadID := range loads[l] {
			ud.RedirectUses(f, f.Instrs[loadID].Load.Dst, value)
			f.Remove(loadID)
		}
		converted++
	}

	sp.End(fmt.Sprintf("converted=%d", converted))
	return converted
}
