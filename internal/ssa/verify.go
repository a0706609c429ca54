package ssa

import (
	"fmt"

	"github.com/AdamKing07/Mezzano/internal/cfg"
	"github.com/AdamKing07/Mezzano/internal/ir"
)

// Check verifies the SSA post-condition: no register has more than one
// definition, and along every dominator-tree path each use is preceded by a
// definition. A non-nil error means an upstream pass is defective, not that
// the input was malformed; the pipeline treats it as fatal.
//
// Registers with no remaining definition and no uses are permitted: deleting
// redirected loads legitimately orphans their result registers. A register
// that still has uses must have a definition, even in unreachable code.
func Check(f *ir.Func) error {
	ud := ir.BuildUseDef(f)
	for r := range f.Regs {
		rid := ir.RegID(r) //nolint:gosec // G115: bounded by NewReg
		defs := ud.Defs(rid)
		if len(defs) > 1 {
			return fmt.Errorf("ssa: function %s: register %s has %d definitions", f.Name, f.RegName(rid), len(defs))
		}
		// The dominator walk below never visits unreachable blocks, so a
		// use whose definition was deleted outright is caught here.
		if uses := ud.Uses(rid); len(defs) == 0 && len(uses) > 0 {
			return fmt.Errorf("ssa: function %s: register %s is used at %s but never defined",
				f.Name, f.RegName(rid), ir.FormatInstr(f, uses[0]))
		}
	}

	g := cfg.Build(f)
	if g.Entry == cfg.NoBlockID {
		return nil
	}
	dom := cfg.ComputeDominance(g)

	defined := make([]bool, len(f.Regs))
	var ibuf, obuf []ir.RegID

	// Pre-order dominator-tree walk: definitions pushed in a block are
	// popped when backing out of its subtree, so they are never visible to
	// siblings.
	var walk func(b cfg.BlockID) error
	walk = func(b cfg.BlockID) error {
		var pushed []ir.RegID
		last := g.Blocks[b].Last
		for id := g.Blocks[b].First; id != ir.NoInstrID; id = f.Instrs[id].Next {
			in := &f.Instrs[id]
			ibuf = in.Inputs(ibuf[:0])
			for _, r := range ibuf {
				if !defined[r] {
					return fmt.Errorf("ssa: function %s: i%d uses %s before any dominating definition", f.Name, id, f.RegName(r))
				}
			}
			obuf = in.Outputs(obuf[:0])
			for _, r := range obuf {
				if !defined[r] {
					defined[r] = true
					pushed = append(pushed, r)
				}
			}
			if id == last {
				break
			}
		}
		for _, c := range dom.Children(b) {
			if err := walk(c); err != nil {
				return err
			}
		}
		for _, r := range pushed {
			defined[r] = false
		}
		return nil
	}

	return walk(g.Entry)
}

// MustCheck panics when Check fails.
func MustCheck(f *ir.Func) {
	if err := Check(f); err != nil {
		panic(err)
	}
}
