package cfg_test

import (
	"testing"

	"github.com/AdamKing07/Mezzano/internal/cfg"
	"github.com/AdamKing07/Mezzano/internal/ir"
)

// diamondFunc builds:
//
//	b0: argsetup %c / branch %c .t .e
//	b1: label .t / jump .m
//	b2: label .e / jump .m
//	b3: label .m / return
func diamondFunc() *ir.Func {
	f := ir.NewFunc("diamond")
	c := f.NewReg("c")

	f.Append(ir.Instr{Kind: ir.InstrArgSetup, ArgSetup: ir.ArgSetupInstr{Args: []ir.RegID{c}}})
	br := f.Append(ir.Instr{Kind: ir.InstrBranch, Branch: ir.BranchInstr{Cond: c}})
	lt := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "t"}})
	j1 := f.Append(ir.Instr{Kind: ir.InstrJump})
	le := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "e"}})
	j2 := f.Append(ir.Instr{Kind: ir.InstrJump})
	lm := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "m"}})
	f.Append(ir.Instr{Kind: ir.InstrReturn})

	f.Instrs[br].Branch.Then = lt
	f.Instrs[br].Branch.Else = le
	f.Instrs[j1].Jump.Target = lm
	f.Instrs[j2].Jump.Target = lm
	return f
}

// loopFunc builds:
//
//	b0: argsetup %n / jump .head
//	b1: label .head / branch %n .body .exit
//	b2: label .body / jump .head
//	b3: label .exit / return
func loopFunc() *ir.Func {
	f := ir.NewFunc("loop")
	n := f.NewReg("n")

	f.Append(ir.Instr{Kind: ir.InstrArgSetup, ArgSetup: ir.ArgSetupInstr{Args: []ir.RegID{n}}})
	j0 := f.Append(ir.Instr{Kind: ir.InstrJump})
	head := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "head"}})
	br := f.Append(ir.Instr{Kind: ir.InstrBranch, Branch: ir.BranchInstr{Cond: n}})
	body := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "body"}})
	j1 := f.Append(ir.Instr{Kind: ir.InstrJump})
	exit := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "exit"}})
	f.Append(ir.Instr{Kind: ir.InstrReturn})

	f.Instrs[j0].Jump.Target = head
	f.Instrs[br].Branch.Then = body
	f.Instrs[br].Branch.Else = exit
	f.Instrs[j1].Jump.Target = head
	return f
}

// TestBuild_PartitionsDiamond tests block boundaries and edges of a diamond.
func TestBuild_PartitionsDiamond(t *testing.T) {
	f := diamondFunc()
	g := cfg.Build(f)

	if g.NumBlocks() != 4 {
		t.Fatalf("expected 4 blocks, got %d", g.NumBlocks())
	}
	if g.Entry != 0 {
		t.Errorf("expected entry b0, got b%d", g.Entry)
	}

	b0 := g.Blocks[0]
	if b0.Label != ir.NoInstrID {
		t.Errorf("expected entry block without label, got i%d", b0.Label)
	}
	if b0.First != f.Head {
		t.Errorf("expected entry block to start at head")
	}
	if f.Instrs[b0.Last].Kind != ir.InstrBranch {
		t.Errorf("expected entry block to end at branch, got %v", f.Instrs[b0.Last].Kind)
	}

	for _, b := range g.Blocks[1:] {
		if b.Label == ir.NoInstrID || b.First != b.Label {
			t.Errorf("expected b%d to start at its label", b.ID)
		}
	}

	if s := g.Succs(0); len(s) != 2 {
		t.Errorf("expected 2 successors of b0, got %v", s)
	}
	if p := g.Preds(3); len(p) != 2 {
		t.Errorf("expected 2 predecessors of b3, got %v", p)
	}
	if s := g.Succs(3); len(s) != 0 {
		t.Errorf("expected no successors of return block, got %v", s)
	}
}

// TestBuild_MapsLabelsToBlocks tests label-to-block resolution.
func TestBuild_MapsLabelsToBlocks(t *testing.T) {
	f := loopFunc()
	g := cfg.Build(f)

	for i, b := range g.Blocks {
		if b.Label == ir.NoInstrID {
			continue
		}
		if got := g.BlockByLabel(b.Label); got != cfg.BlockID(i) {
			t.Errorf("expected label i%d to map to b%d, got b%d", b.Label, i, got)
		}
	}
	if got := g.BlockByLabel(f.Head); got != cfg.NoBlockID {
		t.Errorf("expected non-label lookup to fail, got b%d", got)
	}
}

// TestBuild_BeginNLXSuccessors tests that an NLX region entry has both its
// continuation and its landing pads as successors.
func TestBuild_BeginNLXSuccessors(t *testing.T) {
	f := ir.NewFunc("nlx")
	ctx := f.NewReg("ctx")

	nlx := f.Append(ir.Instr{Kind: ir.InstrBeginNLX, BeginNLX: ir.BeginNLXInstr{Context: ctx}})
	cont := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "cont"}})
	f.Append(ir.Instr{Kind: ir.InstrReturn})
	pad := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "pad"}})
	f.Append(ir.Instr{Kind: ir.InstrReturn})

	f.Instrs[nlx].BeginNLX.Next = cont
	f.Instrs[nlx].BeginNLX.Targets = []ir.InstrID{pad}

	g := cfg.Build(f)
	if g.NumBlocks() != 3 {
		t.Fatalf("expected 3 blocks, got %d", g.NumBlocks())
	}
	if s := g.Succs(0); len(s) != 2 {
		t.Errorf("expected 2 successors of the NLX block, got %v", s)
	}
}
