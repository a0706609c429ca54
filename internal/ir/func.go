package ir

import (
	"fmt"

	"fortio.org/safecast"
)

// Func is one backend function: a linear instruction stream plus the
// register and local tables it references.
//
// Instructions live in the Instrs arena and are threaded into a doubly-linked
// list through their Prev/Next fields. Arena slots are stable: inserting or
// removing an instruction never moves another one, so InstrIDs held by passes
// stay valid across splices. Removed slots are left in place with
// Kind == InstrNone.
type Func struct {
	Name string

	Instrs []Instr
	Head   InstrID
	Tail   InstrID

	Regs   []Reg
	Locals []Local
}

// Module is a named set of functions, processed independently of each other.
type Module struct {
	Funcs []*Func
}

// Func returns the function with the given name, or nil.
func (m *Module) Func(name string) *Func {
	if m == nil {
		return nil
	}
	for _, f := range m.Funcs {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}

// NewFunc returns an empty function.
func NewFunc(name string) *Func {
	return &Func{
		Name: name,
		Head: NoInstrID,
		Tail: NoInstrID,
	}
}

// NewReg allocates a virtual register. name is a debug label and may be
// empty or duplicated.
func (f *Func) NewReg(name string) RegID {
	raw, err := safecast.Conv[int32](len(f.Regs))
	if err != nil {
		panic(fmt.Errorf("ir: register id overflow: %w", err))
	}
	f.Regs = append(f.Regs, Reg{Name: name})
	return RegID(raw)
}

// NewLocal allocates a local slot.
func (f *Func) NewLocal(name string) LocalID {
	raw, err := safecast.Conv[int32](len(f.Locals))
	if err != nil {
		panic(fmt.Errorf("ir: local id overflow: %w", err))
	}
	f.Locals = append(f.Locals, Local{Name: name})
	return LocalID(raw)
}

// RegName returns the debug label of r, or an empty string.
func (f *Func) RegName(r RegID) string {
	if r < 0 || int(r) >= len(f.Regs) {
		return ""
	}
	return f.Regs[r].Name
}

// LocalName returns the debug label of l, or an empty string.
func (f *Func) LocalName(l LocalID) string {
	if l < 0 || int(l) >= len(f.Locals) {
		return ""
	}
	return f.Locals[l].Name
}

func (f *Func) alloc(in Instr) InstrID {
	raw, err := safecast.Conv[int32](len(f.Instrs))
	if err != nil {
		panic(fmt.Errorf("ir: instruction id overflow: %w", err))
	}
	in.Prev = NoInstrID
	in.Next = NoInstrID
	f.Instrs = append(f.Instrs, in)
	return InstrID(raw)
}

// Append adds an instruction at the end of the stream and returns its ID.
func (f *Func) Append(in Instr) InstrID {
	id := f.alloc(in)
	if f.Tail == NoInstrID {
		f.Head = id
		f.Tail = id
		return id
	}
	f.Instrs[id].Prev = f.Tail
	f.Instrs[f.Tail].Next = id
	f.Tail = id
	return id
}

// InsertBefore splices a new instruction immediately before at. at must be a
// live instruction of this function.
func (f *Func) InsertBefore(at InstrID, in Instr) InstrID {
	id := f.alloc(in)
	prev := f.Instrs[at].Prev
	f.Instrs[id].Prev = prev
	f.Instrs[id].Next = at
	f.Instrs[at].Prev = id
	if prev == NoInstrID {
		f.Head = id
	} else {
		f.Instrs[prev].Next = id
	}
	return id
}

// InsertAfter splices a new instruction immediately after at. at must be a
// live instruction of this function.
func (f *Func) InsertAfter(at InstrID, in Instr) InstrID {
	id := f.alloc(in)
	next := f.Instrs[at].Next
	f.Instrs[id].Prev = at
	f.Instrs[id].Next = next
	f.Instrs[at].Next = id
	if next == NoInstrID {
		f.Tail = id
	} else {
		f.Instrs[next].Prev = id
	}
	return id
}

// Remove unlinks an instruction from the stream. The arena slot is retired,
// not reused; other instruction IDs are unaffected.
func (f *Func) Remove(id InstrID) {
	prev := f.Instrs[id].Prev
	next := f.Instrs[id].Next
	if prev == NoInstrID {
		f.Head = next
	} else {
		f.Instrs[prev].Next = next
	}
	if next == NoInstrID {
		f.Tail = prev
	} else {
		f.Instrs[next].Prev = prev
	}
	f.Instrs[id] = Instr{Kind: InstrNone, Prev: NoInstrID, Next: NoInstrID}
}

// NumInstrs counts the live instructions in the stream.
func (f *Func) NumInstrs() int {
	n := 0
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		n++
	}
	return n
}
