package ssa_test

import (
	"testing"

	"github.com/AdamKing07/Mezzano/internal/ir"
)

// exec interprets a function over int64 values. It understands all three
// stream shapes the passes produce: mutable locals before construction, phi
// lists paired with jump value lists after construction, and plain moves
// after deconstruction. Jumps assign their target's phis in parallel, which
// is the semantics deconstruction must reproduce with sequential moves.
func exec(t *testing.T, f *ir.Func, args ...int64) int64 {
	t.Helper()

	const maxSteps = 10000
	regs := make(map[ir.RegID]int64)
	locals := make(map[ir.LocalID]int64)

	id := f.Head
	for steps := 0; ; steps++ {
		if steps > maxSteps {
			t.Fatalf("execution exceeded %d steps", maxSteps)
		}
		if id == ir.NoInstrID {
			t.Fatalf("execution ran off the end of the stream")
		}
		in := &f.Instrs[id]
		switch in.Kind {
		case ir.InstrLabel:
			// phis were assigned by the incoming jump
		case ir.InstrArgSetup:
			if len(args) != len(in.ArgSetup.Args) {
				t.Fatalf("expected %d arguments, got %d", len(in.ArgSetup.Args), len(args))
			}
			for i, r := range in.ArgSetup.Args {
				regs[r] = args[i]
			}
		case ir.InstrBind:
			locals[in.Bind.Local] = regs[in.Bind.Value]
		case ir.InstrUnbind:
			delete(locals, in.Unbind.Local)
		case ir.InstrLoad:
			regs[in.Load.Dst] = locals[in.Load.Local]
		case ir.InstrStore:
			locals[in.Store.Local] = regs[in.Store.Value]
		case ir.InstrMove:
			regs[in.Move.Dst] = regs[in.Move.Src]
		case ir.InstrConst:
			regs[in.Const.Dst] = in.Const.Value
		case ir.InstrCall:
			res := evalCall(t, in.Call.Callee, in.Call.Args, regs)
			if in.Call.HasDst {
				regs[in.Call.Dst] = res
			}
		case ir.InstrJump:
			phis := f.Instrs[in.Jump.Target].Label.Phis
			vals := make([]int64, len(in.Jump.Values))
			for i, v := range in.Jump.Values {
				vals[i] = regs[v]
			}
			for i, val := range vals {
				regs[phis[i]] = val
			}
			id = in.Jump.Target
			continue
		case ir.InstrBranch:
			if regs[in.Branch.Cond] != 0 {
				id = in.Branch.Then
			} else {
				id = in.Branch.Else
			}
			continue
		case ir.InstrBeginNLX:
			// only the normal continuation is executed here
			regs[in.BeginNLX.Context] = 0
			id = in.BeginNLX.Next
			continue
		case ir.InstrReturn:
			if in.Return.HasValue {
				return regs[in.Return.Value]
			}
			return 0
		default:
			t.Fatalf("i%d: cannot execute %s", id, in.Kind)
		}
		id = in.Next
	}
}

func evalCall(t *testing.T, callee string, args []ir.RegID, regs map[ir.RegID]int64) int64 {
	t.Helper()
	a := make([]int64, len(args))
	for i, r := range args {
		a[i] = regs[r]
	}
	switch callee {
	case "add":
		return a[0] + a[1]
	case "sub":
		return a[0] - a[1]
	case "mul":
		return a[0] * a[1]
	case "less":
		if a[0] < a[1] {
			return 1
		}
		return 0
	}
	t.Fatalf("unknown callee %q", callee)
	return 0
}

// factFunc builds an iterative factorial. The accumulator and the counter
// are mutable locals updated in the loop body, so both become full
// candidates needing a phi at the loop header.
//
//	fn fact
//	  argsetup %n
//	  %one = const 1
//	  bind $acc = %one
//	  bind $i = %one
//	  jump .loop ()
//	  label .loop ()
//	  %t1 = load $i
//	  %c = call less(%n, %t1)
//	  branch %c .done .body
//	  label .body ()
//	  ... acc := acc*i, i := i+1 ...
//	  jump .loop ()
//	  label .done ()
//	  %r = load $acc
//	  return %r
func factFunc() *ir.Func {
	f := ir.NewFunc("fact")
	n := f.NewReg("n")
	one := f.NewReg("one")
	t1 := f.NewReg("t1")
	c := f.NewReg("c")
	t2 := f.NewReg("t2")
	t3 := f.NewReg("t3")
	t4 := f.NewReg("t4")
	t5 := f.NewReg("t5")
	t6 := f.NewReg("t6")
	r := f.NewReg("r")
	acc := f.NewLocal("acc")
	i := f.NewLocal("i")

	f.Append(ir.Instr{Kind: ir.InstrArgSetup, ArgSetup: ir.ArgSetupInstr{Args: []ir.RegID{n}}})
	f.Append(ir.Instr{Kind: ir.InstrConst, Const: ir.ConstInstr{Dst: one, Value: 1}})
	f.Append(ir.Instr{Kind: ir.InstrBind, Bind: ir.BindInstr{Local: acc, Value: one}})
	f.Append(ir.Instr{Kind: ir.InstrBind, Bind: ir.BindInstr{Local: i, Value: one}})
	entryJump := f.Append(ir.Instr{Kind: ir.InstrJump})

	loop := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "loop"}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: t1, Local: i}})
	f.Append(ir.Instr{Kind: ir.InstrCall, Call: ir.CallInstr{HasDst: true, Dst: c, Callee: "less", Args: []ir.RegID{n, t1}}})
	branch := f.Append(ir.Instr{Kind: ir.InstrBranch, Branch: ir.BranchInstr{Cond: c}})

	body := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "body"}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: t2, Local: acc}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: t3, Local: i}})
	f.Append(ir.Instr{Kind: ir.InstrCall, Call: ir.CallInstr{HasDst: true, Dst: t4, Callee: "mul", Args: []ir.RegID{t2, t3}}})
	f.Append(ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Local: acc, Value: t4}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: t5, Local: i}})
	f.Append(ir.Instr{Kind: ir.InstrCall, Call: ir.CallInstr{HasDst: true, Dst: t6, Callee: "add", Args: []ir.RegID{t5, one}}})
	f.Append(ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Local: i, Value: t6}})
	backJump := f.Append(ir.Instr{Kind: ir.InstrJump})

	done := f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: "done"}})
	f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: r, Local: acc}})
	f.Append(ir.Instr{Kind: ir.InstrReturn, Return: ir.ReturnInstr{HasValue: true, Value: r}})

	f.Instrs[entryJump].Jump.Target = loop
	f.Instrs[backJump].Jump.Target = loop
	f.Instrs[branch].Branch.Then = done
	f.Instrs[branch].Branch.Else = body
	return f
}

func countKind(f *ir.Func, k ir.InstrKind) int {
	n := 0
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		if f.Instrs[id].Kind == k {
			n++
		}
	}
	return n
}

func loadsOf(f *ir.Func, l ir.LocalID) int {
	n := 0
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		if in := &f.Instrs[id]; in.Kind == ir.InstrLoad && in.Load.Local == l {
			n++
		}
	}
	return n
}

func findKind(t *testing.T, f *ir.Func, k ir.InstrKind) ir.InstrID {
	t.Helper()
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		if f.Instrs[id].Kind == k {
			return id
		}
	}
	t.Fatalf("no %s instruction in stream", k)
	return ir.NoInstrID
}

func findLabel(t *testing.T, f *ir.Func, name string) ir.InstrID {
	t.Helper()
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		if in := &f.Instrs[id]; in.Kind == ir.InstrLabel && in.Label.Name == name {
			return id
		}
	}
	t.Fatalf("no label %q in stream", name)
	return ir.NoInstrID
}

func jumpsTo(f *ir.Func, target ir.InstrID) []ir.InstrID {
	var out []ir.InstrID
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		if in := &f.Instrs[id]; in.Kind == ir.InstrJump && in.Jump.Target == target {
			out = append(out, id)
		}
	}
	return out
}
