package ir

import (
	"errors"
	"fmt"
)

// Validate checks structural invariants of a module.
// Returns error if any invariant is violated.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := ValidateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks structural invariants of one function's stream.
func ValidateFunc(f *Func) error {
	if f == nil {
		return nil
	}

	var errs []error

	// 1. Check stream links are consistent
	if err := validateLinks(f); err != nil {
		errs = append(errs, err)
		// The remaining checks walk the stream; a broken list would loop.
		return errors.Join(errs...)
	}

	// 2. Check terminator and label placement
	if err := validateShape(f); err != nil {
		errs = append(errs, err)
	}

	// 3. Check register and local IDs exist
	if err := validateOperands(f); err != nil {
		errs = append(errs, err)
	}

	// 4. Check branch targets are labels
	if err := validateTargets(f); err != nil {
		errs = append(errs, err)
	}

	// 5. Check jump values pair with target phis
	if err := validateJumpValues(f); err != nil {
		errs = append(errs, err)
	}

	// 6. Check each local is bound at most once
	if err := validateBinds(f); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// validateLinks checks Head/Tail and Prev/Next symmetry, and that the live
// stream contains no retired slots and no cycles.
func validateLinks(f *Func) error {
	var errs []error

	inRange := func(id InstrID) bool {
		return id >= 0 && int(id) < len(f.Instrs)
	}

	if f.Head == NoInstrID && f.Tail != NoInstrID {
		return fmt.Errorf("head is none but tail is i%d", f.Tail)
	}
	if f.Head != NoInstrID && f.Tail == NoInstrID {
		return fmt.Errorf("tail is none but head is i%d", f.Head)
	}
	if f.Head == NoInstrID {
		return nil
	}
	if !inRange(f.Head) {
		return fmt.Errorf("head i%d out of range", f.Head)
	}
	if !inRange(f.Tail) {
		return fmt.Errorf("tail i%d out of range", f.Tail)
	}
	if f.Instrs[f.Head].Prev != NoInstrID {
		errs = append(errs, fmt.Errorf("head i%d has prev i%d", f.Head, f.Instrs[f.Head].Prev))
	}
	if f.Instrs[f.Tail].Next != NoInstrID {
		errs = append(errs, fmt.Errorf("tail i%d has next i%d", f.Tail, f.Instrs[f.Tail].Next))
	}

	seen := make(map[InstrID]bool, len(f.Instrs))
	last := NoInstrID
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		if !inRange(id) {
			errs = append(errs, fmt.Errorf("link to i%d out of range", id))
			break
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("i%d: stream cycles", id))
			break
		}
		seen[id] = true
		in := &f.Instrs[id]
		if in.Kind == InstrNone {
			errs = append(errs, fmt.Errorf("i%d: retired slot linked into stream", id))
		}
		if in.Prev != last {
			errs = append(errs, fmt.Errorf("i%d: prev is i%d, expected i%d", id, in.Prev, last))
		}
		last = id
	}
	if len(errs) == 0 && last != f.Tail {
		errs = append(errs, fmt.Errorf("stream ends at i%d, tail is i%d", last, f.Tail))
	}

	return errors.Join(errs...)
}

// validateShape checks that the stream ends with a terminator and that
// control never falls through into or out of a block: any instruction after
// a terminator must be a label, and a label may only start the stream or
// follow a terminator.
func validateShape(f *Func) error {
	var errs []error

	prev := NoInstrID
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		if prev != NoInstrID {
			afterTerm := f.Instrs[prev].IsTerminator()
			if afterTerm && in.Kind != InstrLabel {
				errs = append(errs, fmt.Errorf("i%d: %s after terminator, expected label", id, in.Kind))
			}
			if !afterTerm && in.Kind == InstrLabel {
				errs = append(errs, fmt.Errorf("i%d: fallthrough into label %s", id, f.Instrs[id].Label.Name))
			}
		}
		prev = id
	}
	if prev != NoInstrID && !f.Instrs[prev].IsTerminator() {
		errs = append(errs, fmt.Errorf("i%d: stream ends without terminator", prev))
	}

	return errors.Join(errs...)
}

// validateOperands checks that all RegID and LocalID references are valid.
func validateOperands(f *Func) error {
	var errs []error

	regExists := func(r RegID) bool {
		return r >= 0 && int(r) < len(f.Regs)
	}
	localExists := func(l LocalID) bool {
		return l >= 0 && int(l) < len(f.Locals)
	}

	var buf []RegID
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]

		buf = in.Inputs(buf[:0])
		for _, r := range buf {
			if !regExists(r) {
				errs = append(errs, fmt.Errorf("i%d: input register v%d does not exist", id, r))
			}
		}
		buf = in.Outputs(buf[:0])
		for _, r := range buf {
			if !regExists(r) {
				errs = append(errs, fmt.Errorf("i%d: output register v%d does not exist", id, r))
			}
		}

		switch in.Kind {
		case InstrBind:
			if !localExists(in.Bind.Local) {
				errs = append(errs, fmt.Errorf("i%d: bind of local l%d which does not exist", id, in.Bind.Local))
			}
		case InstrUnbind:
			if !localExists(in.Unbind.Local) {
				errs = append(errs, fmt.Errorf("i%d: unbind of local l%d which does not exist", id, in.Unbind.Local))
			}
		case InstrLoad:
			if !localExists(in.Load.Local) {
				errs = append(errs, fmt.Errorf("i%d: load of local l%d which does not exist", id, in.Load.Local))
			}
		case InstrStore:
			if !localExists(in.Store.Local) {
				errs = append(errs, fmt.Errorf("i%d: store to local l%d which does not exist", id, in.Store.Local))
			}
		}
	}

	return errors.Join(errs...)
}

// validateTargets checks that every control transfer names a live label.
func validateTargets(f *Func) error {
	var errs []error

	isLabel := func(id InstrID) bool {
		return id >= 0 && int(id) < len(f.Instrs) && f.Instrs[id].Kind == InstrLabel
	}

	var buf []InstrID
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		buf = in.Targets(buf[:0])
		for _, t := range buf {
			if !isLabel(t) {
				errs = append(errs, fmt.Errorf("i%d: %s target i%d is not a label", id, in.Kind, t))
			}
		}
	}

	return errors.Join(errs...)
}

// validateJumpValues checks that a jump carrying values targets a label
// declaring the same number of phis, positionally.
func validateJumpValues(f *Func) error {
	var errs []error

	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		if in.Kind != InstrJump {
			continue
		}
		t := in.Jump.Target
		if t < 0 || int(t) >= len(f.Instrs) || f.Instrs[t].Kind != InstrLabel {
			continue // reported by validateTargets
		}
		nv := len(in.Jump.Values)
		np := len(f.Instrs[t].Label.Phis)
		if nv != np {
			errs = append(errs, fmt.Errorf("i%d: jump carries %d values, label %s declares %d phis",
				id, nv, f.Instrs[t].Label.Name, np))
		}
	}

	return errors.Join(errs...)
}

// validateBinds checks that no local is bound twice and that every local
// accessed by a load, store, or unbind has a bind somewhere in the stream.
func validateBinds(f *Func) error {
	var errs []error

	bound := make([]bool, len(f.Locals))
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		if in.Kind != InstrBind {
			continue
		}
		l := in.Bind.Local
		if l < 0 || int(l) >= len(f.Locals) {
			continue // reported by validateOperands
		}
		if bound[l] {
			errs = append(errs, fmt.Errorf("i%d: local %s bound twice", id, f.Locals[l].Name))
		}
		bound[l] = true
	}

	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		var l LocalID
		switch in.Kind {
		case InstrLoad:
			l = in.Load.Local
		case InstrStore:
			l = in.Store.Local
		case InstrUnbind:
			l = in.Unbind.Local
		default:
			continue
		}
		if l < 0 || int(l) >= len(f.Locals) {
			continue
		}
		if !bound[l] {
			errs = append(errs, fmt.Errorf("i%d: local %s accessed but never bound", id, f.Locals[l].Name))
		}
	}

	return errors.Join(errs...)
}
