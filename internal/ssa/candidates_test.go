package ssa_test

import (
	"slices"
	"testing"

	"github.com/AdamKing07/Mezzano/internal/diag"
	"github.com/AdamKing07/Mezzano/internal/ir"
	"github.com/AdamKing07/Mezzano/internal/ssa"
)

// TestDiscoverCandidates_ClassifiesByStores checks the basic partition: a
// never-stored local is simple, a stored-into local is full.
func TestDiscoverCandidates_ClassifiesByStores(t *testing.T) {
	f := ir.NewFunc("classify")
	x := f.NewReg("x")
	ls := f.NewReg("ls")
	lm := f.NewReg("lm")
	s := f.NewLocal("s")
	m := f.NewLocal("m")

	f.Append(ir.Instr{Kind: ir.InstrArgSetup, ArgSetup: ir.ArgSetupInstr{Args: []ir.RegID{x}}})
	f.Append(ir.Instr{Kind: ir.InstrBind, Bind: ir.BindInstr{Local: s, Value: x}})
	f.Append(ir.Instr{Kind: ir.InstrBind, Bind: ir.BindInstr{Local: m, Value: x}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: ls, Local: s}})
	f.Append(ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Local: m, Value: ls}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: lm, Local: m}})
	f.Append(ir.Instr{Kind: ir.InstrReturn, Return: ir.ReturnInstr{HasValue: true, Value: lm}})

	cands := ssa.DiscoverCandidates(f, ssa.Options{})
	if !slices.Equal(cands.Simple, []ir.LocalID{s}) {
		t.Errorf("expected simple = [s], got %v", cands.Simple)
	}
	if !slices.Equal(cands.Full, []ir.LocalID{m}) {
		t.Errorf("expected full = [m], got %v", cands.Full)
	}
	if len(cands.Rejected) != 0 {
		t.Errorf("expected no rejected locals, got %v", cands.Rejected)
	}
}

// nlxFunc builds a function with a begin-NLX region. Local a is live across
// the marker, local c dies before it, and local b is born after it.
func nlxFunc() (*ir.Func, [3]ir.LocalID) {
	f := ir.NewFunc("nlx")
	x := f.NewReg("x")
	lc := f.NewReg("lc")
	ctx := f.NewReg("ctx")
	la := f.NewReg("la")
	lb := f.NewReg("lb")
	a := f.NewLocal("a")
	b := f.NewLocal("b")
	c := f.NewLocal("c")

	f.Append(ir.Instr{Kind: ir.InstrArgSetup, ArgSetup: ir.ArgSetupInstr{Args: []ir.RegID{x}}})
	f.Append(ir.Instr{Kind: ir.InstrBind, Bind: ir.BindInstr{Local: a, Value: x}})
	f.Append(ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Local: a, Value: x}})
	f.Append(ir.Instr{Kind: ir.InstrBind, Bind: ir.BindInstr{Local: c, Value: x}})
	f.Append(ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Local: c, Value: x}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: lc, Local: c}})
	nlx := f.Append(ir.Instr{Kind: ir.InstrBeginNLX, BeginNLX: ir.BeginNLXInstr{Context: ctx}})

	cont := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "cont"}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: la, Local: a}})
	f.Append(ir.Instr{Kind: ir.InstrBind, Bind: ir.BindInstr{Local: b, Value: x}})
	f.Append(ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Local: b, Value: la}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: lb, Local: b}})
	f.Append(ir.Instr{Kind: ir.InstrReturn, Return: ir.ReturnInstr{HasValue: true, Value: lb}})

	pad := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "pad"}})
	f.Append(ir.Instr{Kind: ir.InstrReturn, Return: ir.ReturnInstr{HasValue: true, Value: x}})

	f.Instrs[nlx].BeginNLX.Next = cont
	f.Instrs[nlx].BeginNLX.Targets = []ir.InstrID{pad}
	return f, [3]ir.LocalID{a, b, c}
}

// TestDiscoverCandidates_RejectsLiveAcrossNLX checks the non-local-exit
// rule: a full candidate is rejected exactly when its live range spans the
// marker, not when it dies before it or is born after it.
func TestDiscoverCandidates_RejectsLiveAcrossNLX(t *testing.T) {
	f, locals := nlxFunc()
	a, b, c := locals[0], locals[1], locals[2]

	bag := diag.NewBag(8)
	cands := ssa.DiscoverCandidates(f, ssa.Options{Reporter: diag.BagReporter{Bag: bag}})

	if !slices.Equal(cands.Rejected, []ir.LocalID{a}) {
		t.Errorf("expected rejected = [a], got %v", cands.Rejected)
	}
	if !slices.Equal(cands.Full, []ir.LocalID{b, c}) {
		t.Errorf("expected full = [b, c], got %v", cands.Full)
	}
	if len(cands.Simple) != 0 {
		t.Errorf("expected no simple locals, got %v", cands.Simple)
	}

	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Code != diag.SSARejectNLX {
		t.Errorf("expected code %s, got %s", diag.SSARejectNLX.ID(), d.Code.ID())
	}
	if d.Severity != diag.SevInfo {
		t.Errorf("expected info severity, got %v", d.Severity)
	}
	if d.Primary.Func != "nlx" {
		t.Errorf("expected site in function nlx, got %q", d.Primary.Func)
	}
	if len(d.Notes) != 1 {
		t.Errorf("expected a note pointing at the region start, got %d notes", len(d.Notes))
	}
}

// TestConstruct_RejectedLocalStaysLoadStore runs full construction over the
// NLX fixture: the rejected local keeps its loads and stores and the
// function still computes the same value, while the other candidates
// convert.
func TestConstruct_RejectedLocalStaysLoadStore(t *testing.T) {
	f, locals := nlxFunc()
	a, b, c := locals[0], locals[1], locals[2]

	before := exec(t, f, 42)

	stats := ssa.Construct(f, ssa.Options{})
	if stats.Full != 2 {
		t.Errorf("expected 2 full conversions, got %d", stats.Full)
	}
	if stats.Rejected != 1 {
		t.Errorf("expected 1 rejection, got %d", stats.Rejected)
	}

	if n := loadsOf(f, a); n != 1 {
		t.Errorf("rejected local should keep its load, found %d", n)
	}
	if n := loadsOf(f, b); n != 0 {
		t.Errorf("converted local b still has %d loads", n)
	}
	if n := loadsOf(f, c); n != 0 {
		t.Errorf("converted local c still has %d loads", n)
	}

	if after := exec(t, f, 42); after != before {
		t.Errorf("construction changed the result: %d != %d", after, before)
	}
	if err := ssa.Check(f); err != nil {
		t.Errorf("verifier rejected converted function: %v", err)
	}
}
