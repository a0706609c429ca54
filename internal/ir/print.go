package ir

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// DumpOptions configures module dumping.
type DumpOptions struct{}

// DumpModule writes a textual rendering of every function, sorted by name.
// The output parses back through the textual reader.
func DumpModule(w io.Writer, m *Module, _ DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}

	funcs := make([]*Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if f != nil {
			funcs = append(funcs, f)
		}
	}
	slices.SortStableFunc(funcs, func(a, b *Func) int {
		return strings.Compare(a.Name, b.Name)
	})

	for i, f := range funcs {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, Format(f)); err != nil {
			return err
		}
	}
	return nil
}

// Format renders one function in the textual syntax. Register, local, and
// label debug names are used when unique; otherwise positional fallbacks
// (v<id>, l<id>, L<id>) keep the output unambiguous.
func Format(f *Func) string {
	if f == nil {
		return ""
	}
	p := newPrinter(f)
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn %s\n", f.Name)
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		fmt.Fprintf(&sb, "  %s\n", p.instr(id))
	}
	return sb.String()
}

// FormatInstr renders a single instruction, mostly for diagnostics.
func FormatInstr(f *Func, id InstrID) string {
	p := newPrinter(f)
	return p.instr(id)
}

type printer struct {
	f      *Func
	regs   []string
	locals []string
	labels map[InstrID]string
}

func newPrinter(f *Func) *printer {
	p := &printer{
		f:      f,
		regs:   make([]string, len(f.Regs)),
		labels: make(map[InstrID]string),
	}

	count := make(map[string]int, len(f.Regs))
	for i := range f.Regs {
		if n := f.Regs[i].Name; n != "" {
			count[n]++
		}
	}
	for i := range f.Regs {
		if n := f.Regs[i].Name; n != "" && count[n] == 1 {
			p.regs[i] = n
		} else {
			p.regs[i] = fallback(count, "v", i)
		}
	}

	p.locals = make([]string, len(f.Locals))
	count = make(map[string]int, len(f.Locals))
	for i := range f.Locals {
		if n := f.Locals[i].Name; n != "" {
			count[n]++
		}
	}
	for i := range f.Locals {
		if n := f.Locals[i].Name; n != "" && count[n] == 1 {
			p.locals[i] = n
		} else {
			p.locals[i] = fallback(count, "l", i)
		}
	}

	count = make(map[string]int)
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		if f.Instrs[id].Kind == InstrLabel {
			if n := f.Instrs[id].Label.Name; n != "" {
				count[n]++
			}
		}
	}
	for id := f.Head; id != NoInstrID; id = f.Instrs[id].Next {
		if f.Instrs[id].Kind != InstrLabel {
			continue
		}
		if n := f.Instrs[id].Label.Name; n != "" && count[n] == 1 {
			p.labels[id] = n
		} else {
			p.labels[id] = fallback(count, "L", int(id))
		}
	}

	return p
}

// fallback builds a positional name that cannot shadow a taken unique name.
func fallback(taken map[string]int, prefix string, i int) string {
	n := fmt.Sprintf("%s%d", prefix, i)
	for taken[n] == 1 {
		n = "_" + n
	}
	return n
}

func (p *printer) reg(r RegID) string {
	if r < 0 || int(r) >= len(p.regs) {
		return fmt.Sprintf("%%v?%d", r)
	}
	return "%" + p.regs[r]
}

func (p *printer) local(l LocalID) string {
	if l < 0 || int(l) >= len(p.locals) {
		return fmt.Sprintf("$l?%d", l)
	}
	return "$" + p.locals[l]
}

func (p *printer) label(id InstrID) string {
	if n, ok := p.labels[id]; ok {
		return "." + n
	}
	return fmt.Sprintf(".i?%d", id)
}

func (p *printer) regList(rs []RegID) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = p.reg(r)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) instr(id InstrID) string {
	in := &p.f.Instrs[id]
	switch in.Kind {
	case InstrLabel:
		if len(in.Label.Phis) == 0 {
			return fmt.Sprintf("label %s", p.label(id))
		}
		return fmt.Sprintf("label %s (%s)", p.label(id), p.regList(in.Label.Phis))
	case InstrArgSetup:
		if len(in.ArgSetup.Args) == 0 {
			return "argsetup"
		}
		parts := make([]string, len(in.ArgSetup.Args))
		for i, r := range in.ArgSetup.Args {
			parts[i] = p.reg(r)
		}
		return "argsetup " + strings.Join(parts, " ")
	case InstrBind:
		return fmt.Sprintf("bind %s = %s", p.local(in.Bind.Local), p.reg(in.Bind.Value))
	case InstrUnbind:
		return fmt.Sprintf("unbind %s", p.local(in.Unbind.Local))
	case InstrLoad:
		return fmt.Sprintf("%s = load %s", p.reg(in.Load.Dst), p.local(in.Load.Local))
	case InstrStore:
		return fmt.Sprintf("store %s = %s", p.local(in.Store.Local), p.reg(in.Store.Value))
	case InstrMove:
		return fmt.Sprintf("%s = move %s", p.reg(in.Move.Dst), p.reg(in.Move.Src))
	case InstrConst:
		return fmt.Sprintf("%s = const %d", p.reg(in.Const.Dst), in.Const.Value)
	case InstrCall:
		dst := ""
		if in.Call.HasDst {
			dst = p.reg(in.Call.Dst) + " = "
		}
		return fmt.Sprintf("%scall %s(%s)", dst, in.Call.Callee, p.regList(in.Call.Args))
	case InstrJump:
		if len(in.Jump.Values) == 0 {
			return fmt.Sprintf("jump %s", p.label(in.Jump.Target))
		}
		return fmt.Sprintf("jump %s (%s)", p.label(in.Jump.Target), p.regList(in.Jump.Values))
	case InstrBranch:
		return fmt.Sprintf("branch %s %s %s", p.reg(in.Branch.Cond), p.label(in.Branch.Then), p.label(in.Branch.Else))
	case InstrBeginNLX:
		parts := make([]string, len(in.BeginNLX.Targets))
		for i, t := range in.BeginNLX.Targets {
			parts[i] = p.label(t)
		}
		return fmt.Sprintf("%s = beginnlx %s [%s]", p.reg(in.BeginNLX.Context), p.label(in.BeginNLX.Next), strings.Join(parts, ", "))
	case InstrReturn:
		if !in.Return.HasValue {
			return "return"
		}
		return fmt.Sprintf("return %s", p.reg(in.Return.Value))
	default:
		return "<instr?>"
	}
}
