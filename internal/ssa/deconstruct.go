package ssa

import (
	"fmt"

	"github.com/AdamKing07/Mezzano/internal/ir"
	"github.com/AdamKing07/Mezzano/internal/trace"
)

// Deconstruct lowers every phi merge back to ordinary moves. For each jump
// carrying values, the jump's value list and the target's phi list form one
// parallel assignment: sources that are themselves phis of the target at a
// different position are saved to fresh temporaries before any phi is
// overwritten, self-assignments are elided, and each remaining position
// becomes one move in front of the jump. Afterwards every jump value list
// and label phi list is empty and the stream is ready for linear code
// generation.
//
// SSA form (Check) is a precondition. Returns the number of moves inserted.
func Deconstruct(f *ir.Func, opts Options) int {
	sp := trace.Begin(opts.Tracer, trace.ScopeFunction, "ssa_deconstruct", 0)

	moves := 0
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		if f.Instrs[id].Kind != ir.InstrJump || len(f.Instrs[id].Jump.Values) == 0 {
			continue
		}
		moves += lowerJump(f, id)
	}

	// Phi lists are cleared only after every incoming jump has been
	// lowered against them.
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		if f.Instrs[id].Kind == ir.InstrLabel {
			f.Instrs[id].Label.Phis = nil
		}
	}

	sp.End(fmt.Sprintf("moves=%d", moves))
	return moves
}

func lowerJump(f *ir.Func, id ir.InstrID) int {
	target := f.Instrs[id].Jump.Target
	phis := f.Instrs[target].Label.Phis
	values := append([]ir.RegID(nil), f.Instrs[id].Jump.Values...)

	inserted := 0
	for i, v := range values {
		if j := phiPosition(phis, v); j >= 0 && j != i {
			tmp := f.NewReg("")
			f.InsertBefore(id, ir.Instr{
				Kind: ir.InstrMove,
				Move: ir.MoveInstr{Dst: tmp, Src: v},
			})
			values[i] = tmp
			inserted++
		}
	}
	for i, v := range values {
		if v == phis[i] {
			continue
		}
		f.InsertBefore(id, ir.Instr{
			Kind: ir.InstrMove,
			Move: ir.MoveInstr{Dst: phis[i], Src: v},
		})
		inserted++
	}

	f.Instrs[id].Jump.Values = nil
	return inserted
}

func phiPosition(phis []ir.RegID, v ir.RegID) int {
	for i, p := range phis {
		if p == v {
			return i
		}
	}
	return -1
}
