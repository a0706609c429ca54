package ir

// InstrKind enumerates instruction kinds in the backend IR.
type InstrKind uint8

const (
	// InstrNone marks an unset or removed arena slot.
	InstrNone InstrKind = iota
	// InstrLabel marks a basic-block entry and owns the block's phi list.
	InstrLabel
	// InstrArgSetup defines the function's incoming argument registers.
	InstrArgSetup
	// InstrBind creates a local and gives it its initial value.
	InstrBind
	// InstrUnbind closes a local's binding scope.
	InstrUnbind
	// InstrLoad reads a local's current value into a fresh register.
	InstrLoad
	// InstrStore writes a register's value into a local.
	InstrStore
	// InstrMove copies one register into another.
	InstrMove
	// InstrConst materializes an immediate value.
	InstrConst
	// InstrCall is an opaque computation consuming and producing registers.
	InstrCall
	// InstrJump is an unconditional terminator carrying phi arguments.
	InstrJump
	// InstrBranch is a conditional two-target terminator. It carries no
	// value list.
	InstrBranch
	// InstrBeginNLX opens a non-local-exit region. Its successors are the
	// continuation label and the landing pads; the unwind edges from inside
	// the region are not modeled.
	InstrBeginNLX
	// InstrReturn leaves the function.
	InstrReturn
)

// String returns the mnemonic used by the textual IR.
func (k InstrKind) String() string {
	switch k {
	case InstrNone:
		return "none"
	case InstrLabel:
		return "label"
	case InstrArgSetup:
		return "argsetup"
	case InstrBind:
		return "bind"
	case InstrUnbind:
		return "unbind"
	case InstrLoad:
		return "load"
	case InstrStore:
		return "store"
	case InstrMove:
		return "move"
	case InstrConst:
		return "const"
	case InstrCall:
		return "call"
	case InstrJump:
		return "jump"
	case InstrBranch:
		return "branch"
	case InstrBeginNLX:
		return "beginnlx"
	case InstrReturn:
		return "return"
	default:
		return "unknown"
	}
}

// Instr is one instruction in a function's stream. Kind selects which payload
// field is meaningful. Prev/Next are the intrusive list links; they are
// maintained by Func and must not be modified directly.
type Instr struct {
	Kind InstrKind

	Prev InstrID
	Next InstrID

	Label    LabelInstr
	ArgSetup ArgSetupInstr
	Bind     BindInstr
	Unbind   UnbindInstr
	Load     LoadInstr
	Store    StoreInstr
	Move     MoveInstr
	Const    ConstInstr
	Call     CallInstr
	Jump     JumpInstr
	Branch   BranchInstr
	BeginNLX BeginNLXInstr
	Return   ReturnInstr
}

// LabelInstr marks a basic-block entry. Phis is the ordered list of phi
// placeholder registers, positionally paired with the value list of every
// jump targeting this label.
type LabelInstr struct {
	Name string
	Phis []RegID
}

// ArgSetupInstr defines the incoming argument registers.
type ArgSetupInstr struct {
	Args []RegID
}

// BindInstr binds a local to its initial value.
type BindInstr struct {
	Local LocalID
	Value RegID
}

// UnbindInstr closes a local's binding scope.
type UnbindInstr struct {
	Local LocalID
}

// LoadInstr reads a local into Dst.
type LoadInstr struct {
	Dst   RegID
	Local LocalID
}

// StoreInstr writes Value into a local.
type StoreInstr struct {
	Local LocalID
	Value RegID
}

// MoveInstr copies Src into Dst.
type MoveInstr struct {
	Dst RegID
	Src RegID
}

// ConstInstr materializes an immediate into Dst.
type ConstInstr struct {
	Dst   RegID
	Value int64
}

// CallInstr invokes a named function. HasDst reports whether the call
// produces a value.
type CallInstr struct {
	HasDst bool
	Dst    RegID
	Callee string
	Args   []RegID
}

// JumpInstr transfers control to Target, a label instruction. Values are the
// phi arguments for the target, positionally paired with the target's phi
// list.
type JumpInstr struct {
	Target InstrID
	Values []RegID
}

// BranchInstr transfers control to Then or Else depending on Cond. Branches
// carry no value list, so a label with phis cannot be branched to.
type BranchInstr struct {
	Cond RegID
	Then InstrID
	Else InstrID
}

// BeginNLXInstr opens a non-local-exit region. Context receives the region
// descriptor. Next is the label where normal execution continues; Targets are
// the landing-pad labels an unwind may reach.
type BeginNLXInstr struct {
	Context RegID
	Next    InstrID
	Targets []InstrID
}

// ReturnInstr leaves the function, optionally with a value.
type ReturnInstr struct {
	HasValue bool
	Value    RegID
}

// IsTerminator reports whether the instruction ends a basic block.
func (in *Instr) IsTerminator() bool {
	switch in.Kind {
	case InstrJump, InstrBranch, InstrBeginNLX, InstrReturn:
		return true
	default:
		return false
	}
}

// Inputs appends the registers the instruction reads to buf and returns the
// extended slice. Jump phi arguments count as inputs of the jump.
func (in *Instr) Inputs(buf []RegID) []RegID {
	switch in.Kind {
	case InstrBind:
		buf = append(buf, in.Bind.Value)
	case InstrStore:
		buf = append(buf, in.Store.Value)
	case InstrMove:
		buf = append(buf, in.Move.Src)
	case InstrCall:
		buf = append(buf, in.Call.Args...)
	case InstrJump:
		buf = append(buf, in.Jump.Values...)
	case InstrBranch:
		buf = append(buf, in.Branch.Cond)
	case InstrReturn:
		if in.Return.HasValue {
			buf = append(buf, in.Return.Value)
		}
	}
	return buf
}

// Outputs appends the registers the instruction defines to buf and returns
// the extended slice. A label defines its phi registers.
func (in *Instr) Outputs(buf []RegID) []RegID {
	switch in.Kind {
	case InstrLabel:
		buf = append(buf, in.Label.Phis...)
	case InstrArgSetup:
		buf = append(buf, in.ArgSetup.Args...)
	case InstrLoad:
		buf = append(buf, in.Load.Dst)
	case InstrMove:
		buf = append(buf, in.Move.Dst)
	case InstrConst:
		buf = append(buf, in.Const.Dst)
	case InstrCall:
		if in.Call.HasDst {
			buf = append(buf, in.Call.Dst)
		}
	case InstrBeginNLX:
		buf = append(buf, in.BeginNLX.Context)
	}
	return buf
}

// Targets appends the label instruction IDs the terminator may transfer
// control to. Non-terminators and returns append nothing.
func (in *Instr) Targets(buf []InstrID) []InstrID {
	switch in.Kind {
	case InstrJump:
		buf = append(buf, in.Jump.Target)
	case InstrBranch:
		buf = append(buf, in.Branch.Then, in.Branch.Else)
	case InstrBeginNLX:
		buf = append(buf, in.BeginNLX.Next)
		buf = append(buf, in.BeginNLX.Targets...)
	}
	return buf
}

// ReplaceInputs rewrites every input occurrence of from to to. Outputs are
// never touched.
func (in *Instr) ReplaceInputs(from, to RegID) {
	switch in.Kind {
	case InstrBind:
		if in.Bind.Value == from {
			in.Bind.Value = to
		}
	case InstrStore:
		if in.Store.Value == from {
			in.Store.Value = to
		}
	case InstrMove:
		if in.Move.Src == from {
			in.Move.Src = to
		}
	case InstrCall:
		for i, r := range in.Call.Args {
			if r == from {
				in.Call.Args[i] = to
			}
		}
	case InstrJump:
		for i, r := range in.Jump.Values {
			if r == from {
				in.Jump.Values[i] = to
			}
		}
	case InstrBranch:
		if in.Branch.Cond == from {
			in.Branch.Cond = to
		}
	case InstrReturn:
		if in.Return.HasValue && in.Return.Value == from {
			in.Return.Value = to
		}
	}
}
