package ir

// UseDefMap indexes instructions by the registers they define and use.
// It is a snapshot of the stream: passes that add or remove instructions
// must either rebuild it or keep it current through RedirectUses.
type UseDefMap struct {
	defs [][]InstrID
	uses [][]InstrID
}

// BuildUseDef scans the stream once and records, per register, the
// instructions that define it and the instructions that read it, in
// stream order.
func BuildUseDef(f *Func) *UseDefMap {
	m := &UseDefMap{
		defs: make([][]InstrID, len(f.Regs)),
		uses: make([][]InstrID, len(f.Regs)),
	}
	var buf []RegID
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		buf = in.Outputs(buf[:0])
		for _, r := range buf {
			m.defs[r] = append(m.defs[r], id)
		}
		buf = in.Inputs(buf[:0])
		for _, r := range buf {
			m.uses[r] = append(m.uses[r], id)
		}
	}
	return m
}

// Defs returns the instructions defining r, in stream order.
func (m *UseDefMap) Defs(r RegID) []InstrID { return m.defs[r] }

// Uses returns the instructions reading r, in stream order. An instruction
// that reads r more than once appears once per read.
func (m *UseDefMap) Uses(r RegID) []InstrID { return m.uses[r] }

// RedirectUses rewrites every use of from into a use of to, both in the
// instructions themselves and in the map. Definitions are untouched.
func (m *UseDefMap) RedirectUses(f *Func, from, to RegID) {
	if from == to {
		return
	}
	for _, id := range m.uses[from] {
		f.Instrs[id].ReplaceInputs(from, to)
	}
	m.uses[to] = append(m.uses[to], m.uses[from]...)
	m.uses[from] = nil
}
