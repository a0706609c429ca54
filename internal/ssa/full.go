package ssa

import (
	"fmt"
	"slices"

	"github.com/AdamKing07/Mezzano/internal/cfg"
	"github.com/AdamKing07/Mezzano/internal/diag"
	"github.com/AdamKing07/Mezzano/internal/ir"
	"github.com/AdamKing07/Mezzano/internal/trace"
)

// ConvertFull runs dominance-frontier phi placement and dominator-tree
// renaming for every full candidate. A candidate whose phi sites violate the
// predecessor shape rule is skipped before anything is mutated and stays as
// ordinary loads and stores; other candidates are unaffected.
//
// Returns the number of candidates actually converted.
func ConvertFull(f *ir.Func, full []ir.LocalID, opts Options) int {
	if len(full) == 0 {
		return 0
	}
	sp := trace.Begin(opts.Tracer, trace.ScopeFunction, "ssa_convert_full", 0)

	// Phi insertion only splices loads and stores into block interiors, so
	// the graph and dominator tree stay valid across candidates.
	g := cfg.Build(f)
	dom := cfg.ComputeDominance(g)

	// Loads whose uses have been redirected. Removed only after every
	// candidate has been processed, keeping the def-site scans over one and
	// the same stream.
	var deadLoads []ir.InstrID

	converted := 0
	for _, l := range full {
		csp := trace.Begin(opts.Tracer, trace.ScopeCandidate, "ssa_candidate", sp.ID())
		redirected, ok := convertCandidate(f, g, dom, l, opts, csp.ID())
		if ok {
			converted++
			deadLoads = append(deadLoads, redirected...)
		}
		csp.WithExtra("local", f.LocalName(l)).End(fmt.Sprintf("converted=%t", ok))
	}

	for _, id := range deadLoads {
		f.Remove(id)
	}

	sp.End(fmt.Sprintf("converted=%d of %d", converted, len(full)))
	return converted
}

func convertCandidate(f *ir.Func, g *cfg.Graph, dom *cfg.Dominance, l ir.LocalID, opts Options, span uint64) (redirected []ir.InstrID, ok bool) {
	defSites, bindBlock, bindInstr := collectDefSites(f, g, l)
	if bindBlock == cfg.NoBlockID {
		return nil, false
	}

	phiSites := placePhis(dom, defSites, bindBlock)

	for _, pb := range phiSites {
		if reason := checkPhiSiteShape(f, g, pb); reason != "" {
			trace.Point(opts.Tracer, trace.ScopeCandidate, "reject_shape", reason, span)
			diag.ReportInfo(opts.Reporter, diag.SSARejectShape,
				diag.InstrSite(f.Name, g.Blocks[pb].First),
				fmt.Sprintf("local %s not converted: %s", f.LocalName(l), reason)).
				Emit()
			return nil, false
		}
	}

	insertPhis(f, g, phiSites, l)

	// Rebuild after insertion: the phi registers, temporaries, and argument
	// loads must be visible to the renaming redirects.
	ud := ir.BuildUseDef(f)
	return rename(f, ud, g, dom, l, bindBlock, bindInstr), true
}

// collectDefSites walks the stream tracking the current block and records
// every block that stores to l, plus the block holding l's binding.
func collectDefSites(f *ir.Func, g *cfg.Graph, l ir.LocalID) (defs []cfg.BlockID, bindBlock cfg.BlockID, bindInstr ir.InstrID) {
	bindBlock = cfg.NoBlockID
	bindInstr = ir.NoInstrID

	seen := make([]bool, g.NumBlocks())
	record := func(b cfg.BlockID) {
		if !seen[b] {
			seen[b] = true
			defs = append(defs, b)
		}
	}

	cur := cfg.NoBlockID
	next := 0
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		if next < len(g.Blocks) && g.Blocks[next].First == id {
			cur = g.Blocks[next].ID
			next++
		}
		switch in := &f.Instrs[id]; {
		case in.Kind == ir.InstrStore && in.Store.Local == l:
			record(cur)
		case in.Kind == ir.InstrBind && in.Bind.Local == l:
			record(cur)
			bindBlock = cur
			bindInstr = id
		}
	}
	return defs, bindBlock, bindInstr
}

// placePhis computes the iterated dominance frontier of the def sites,
// restricted to blocks dominated by the binding block: outside that region
// the local has no meaningful value. A newly placed phi is itself a new
// definition, so it joins the worklist.
func placePhis(dom *cfg.Dominance, defSites []cfg.BlockID, bindBlock cfg.BlockID) []cfg.BlockID {
	isDef := make(map[cfg.BlockID]bool, len(defSites))
	for _, b := range defSites {
		isDef[b] = true
	}
	isPhi := make(map[cfg.BlockID]bool)
	var sites []cfg.BlockID

	work := slices.Clone(defSites)
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, fb := range dom.Frontier(b) {
			if isPhi[fb] || !dom.Dominates(bindBlock, fb) {
				continue
			}
			isPhi[fb] = true
			sites = append(sites, fb)
			if !isDef[fb] {
				isDef[fb] = true
				work = append(work, fb)
			}
		}
	}

	slices.Sort(sites)
	return sites
}

// checkPhiSiteShape enforces the placement precondition: a phi site must be
// a label block and every predecessor must end in an unconditional jump. Phi
// arguments travel positionally in jump value lists; no other terminator
// carries one.
func checkPhiSiteShape(f *ir.Func, g *cfg.Graph, pb cfg.BlockID) string {
	b := &g.Blocks[pb]
	if b.Label == ir.NoInstrID {
		return fmt.Sprintf("phi site i%d is not a label block", b.First)
	}
	for _, p := range g.Preds(pb) {
		if last := g.Blocks[p].Last; f.Instrs[last].Kind != ir.InstrJump {
			return fmt.Sprintf("phi site predecessor i%d ends in %s, not a jump", last, f.Instrs[last].Kind)
		}
	}
	return ""
}

// insertPhis gives every phi site a fresh phi register appended to its label
// and, per predecessor, a placeholder load of l feeding the jump's value
// list at the matching position. A synthetic store of the phi result right
// after the label keeps local-based reasoning consistent; renaming treats it
// as the phi's definition point.
func insertPhis(f *ir.Func, g *cfg.Graph, sites []cfg.BlockID, l ir.LocalID) {
	name := f.LocalName(l)
	for _, pb := range sites {
		label := g.Blocks[pb].Label
		phi := f.NewReg(name)
		f.Instrs[label].Label.Phis = append(f.Instrs[label].Label.Phis, phi)
		f.InsertAfter(label, ir.Instr{
			Kind:  ir.InstrStore,
			Store: ir.StoreInstr{Local: l, Value: phi},
		})

		for _, p := range g.Preds(pb) {
			jump := g.Blocks[p].Last
			tmp := f.NewReg("")
			f.InsertBefore(jump, ir.Instr{
				Kind: ir.InstrLoad,
				Load: ir.LoadInstr{Dst: tmp, Local: l},
			})
			f.Instrs[jump].Jump.Values = append(f.Instrs[jump].Jump.Values, tmp)
		}
	}
}

// rename walks the dominator tree from the binding block carrying the
// reaching value. A load of l redirects its result's uses to the current
// value and is recorded for deletion; a store swaps in a new current value
// for the rest of the block and its dominator subtree, never for siblings.
func rename(f *ir.Func, ud *ir.UseDefMap, g *cfg.Graph, dom *cfg.Dominance, l ir.LocalID, bindBlock cfg.BlockID, bindInstr ir.InstrID) []ir.InstrID {
	var redirected []ir.InstrID

	var walk func(b cfg.BlockID, start ir.InstrID, cur ir.RegID)
	walk = func(b cfg.BlockID, start ir.InstrID, cur ir.RegID) {
		last := g.Blocks[b].Last
		for id := start; id != ir.NoInstrID; id = f.Instrs[id].Next {
			switch in := &f.Instrs[id]; {
			case in.Kind == ir.InstrLoad && in.Load.Local == l:
				ud.RedirectUses(f, in.Load.Dst, cur)
				redirected = append(redirected, id)
			case in.Kind == ir.InstrStore && in.Store.Local == l:
				cur = in.Store.Value
			}
			if id == last {
				break
			}
		}
		for _, c := range dom.Children(b) {
			walk(c, g.Blocks[c].First, cur)
		}
	}

	walk(bindBlock, f.Instrs[bindInstr].Next, f.Instrs[bindInstr].Bind.Value)
	return redirected
}
