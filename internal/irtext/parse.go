// Package irtext parses the textual instruction syntax that ir.Format
// writes. The format is line oriented: a fn header opens a function, every
// following non-blank line is one instruction, and ; starts a comment.
// Identifiers are NFC-normalised on the way in, so visually identical names
// written with different Unicode compositions resolve to the same entity.
package irtext

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/AdamKing07/Mezzano/internal/ir"
)

// Parse reads exactly one function. name identifies the input in error
// messages. The stream is returned as written; run ir.ValidateFunc to check
// shape invariants.
func Parse(name, src string) (*ir.Func, error) {
	m, err := ParseModule(name, src)
	if err != nil {
		return nil, err
	}
	if len(m.Funcs) != 1 {
		return nil, fmt.Errorf("%s: expected one function, found %d", name, len(m.Funcs))
	}
	return m.Funcs[0], nil
}

// ParseModule reads any number of fn blocks into a module.
func ParseModule(name, src string) (*ir.Module, error) {
	p := &parser{input: name}
	m := &ir.Module{}
	for i, line := range strings.Split(src, "\n") {
		p.line = i + 1
		toks := tokenize(line)
		if len(toks) == 0 {
			continue
		}
		if toks[0] == "fn" {
			if err := p.finish(m); err != nil {
				return nil, err
			}
			if err := p.beginFunc(toks); err != nil {
				return nil, err
			}
			continue
		}
		if p.f == nil {
			return nil, p.errf("instruction outside fn block")
		}
		if err := p.instr(toks); err != nil {
			return nil, err
		}
	}
	if err := p.finish(m); err != nil {
		return nil, err
	}
	return m, nil
}

type parser struct {
	input string
	line  int

	f      *ir.Func
	regs   map[string]ir.RegID
	locals map[string]ir.LocalID
	labels map[string]ir.InstrID
	refs   []labelRef
}

// labelRef is a forward reference to a label, patched once the whole
// function has been read. slot selects the field within the instruction:
// 0 is the jump target, the branch then-arm, or the beginnlx continuation;
// 1 is the branch else-arm; n >= 1 on a beginnlx is unwind target n-1.
type labelRef struct {
	instr ir.InstrID
	slot  int
	name  string
	line  int
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", p.input, p.line, fmt.Sprintf(format, args...))
}

func (p *parser) beginFunc(toks []string) error {
	if len(toks) != 2 {
		return p.errf("fn wants exactly one name")
	}
	p.f = ir.NewFunc(ident(toks[1]))
	p.regs = make(map[string]ir.RegID)
	p.locals = make(map[string]ir.LocalID)
	p.labels = make(map[string]ir.InstrID)
	p.refs = nil
	return nil
}

// finish patches the label references of the current function and appends
// it to the module. A no-op when no function is open.
func (p *parser) finish(m *ir.Module) error {
	if p.f == nil {
		return nil
	}
	for _, ref := range p.refs {
		target, ok := p.labels[ref.name]
		if !ok {
			return fmt.Errorf("%s:%d: undefined label .%s", p.input, ref.line, ref.name)
		}
		in := &p.f.Instrs[ref.instr]
		switch in.Kind {
		case ir.InstrJump:
			in.Jump.Target = target
		case ir.InstrBranch:
			if ref.slot == 0 {
				in.Branch.Then = target
			} else {
				in.Branch.Else = target
			}
		case ir.InstrBeginNLX:
			if ref.slot == 0 {
				in.BeginNLX.Next = target
			} else {
				in.BeginNLX.Targets[ref.slot-1] = target
			}
		}
	}
	m.Funcs = append(m.Funcs, p.f)
	p.f = nil
	return nil
}

func (p *parser) ref(instr ir.InstrID, slot int, name string) {
	p.refs = append(p.refs, labelRef{instr: instr, slot: slot, name: name, line: p.line})
}

func (p *parser) instr(toks []string) error {
	c := &cursor{p: p, toks: toks}
	op, err := c.next()
	if err != nil {
		return err
	}
	switch op {
	case "label":
		return p.parseLabel(c)
	case "argsetup":
		return p.parseArgSetup(c)
	case "bind":
		return p.parseBind(c)
	case "unbind":
		return p.parseUnbind(c)
	case "store":
		return p.parseStore(c)
	case "call":
		return p.parseCall(c, false, ir.NoRegID)
	case "jump":
		return p.parseJump(c)
	case "branch":
		return p.parseBranch(c)
	case "return":
		return p.parseReturn(c)
	}
	if strings.HasPrefix(op, "%") {
		return p.parseAssign(c, op)
	}
	return p.errf("unknown instruction %q", op)
}

func (p *parser) parseLabel(c *cursor) error {
	name, err := c.labelName()
	if err != nil {
		return err
	}
	if _, dup := p.labels[name]; dup {
		return p.errf("label .%s defined twice", name)
	}
	var phis []ir.RegID
	if c.peek() == "(" {
		phis, err = c.regList()
		if err != nil {
			return err
		}
	}
	if err := c.done(); err != nil {
		return err
	}
	id := p.f.Append(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: name, Phis: phis}})
	p.labels[name] = id
	return nil
}

func (p *parser) parseArgSetup(c *cursor) error {
	var args []ir.RegID
	for c.pos < len(c.toks) {
		r, err := c.reg()
		if err != nil {
			return err
		}
		args = append(args, r)
	}
	p.f.Append(ir.Instr{Kind: ir.InstrArgSetup, ArgSetup: ir.ArgSetupInstr{Args: args}})
	return nil
}

func (p *parser) parseBind(c *cursor) error {
	l, err := c.local()
	if err != nil {
		return err
	}
	if err := c.expect("="); err != nil {
		return err
	}
	v, err := c.reg()
	if err != nil {
		return err
	}
	if err := c.done(); err != nil {
		return err
	}
	p.f.Append(ir.Instr{Kind: ir.InstrBind, Bind: ir.BindInstr{Local: l, Value: v}})
	return nil
}

func (p *parser) parseUnbind(c *cursor) error {
	l, err := c.local()
	if err != nil {
		return err
	}
	if err := c.done(); err != nil {
		return err
	}
	p.f.Append(ir.Instr{Kind: ir.InstrUnbind, Unbind: ir.UnbindInstr{Local: l}})
	return nil
}

func (p *parser) parseStore(c *cursor) error {
	l, err := c.local()
	if err != nil {
		return err
	}
	if err := c.expect("="); err != nil {
		return err
	}
	v, err := c.reg()
	if err != nil {
		return err
	}
	if err := c.done(); err != nil {
		return err
	}
	p.f.Append(ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Local: l, Value: v}})
	return nil
}

func (p *parser) parseCall(c *cursor, hasDst bool, dst ir.RegID) error {
	callee, err := c.next()
	if err != nil {
		return err
	}
	if strings.HasPrefix(callee, "%") || strings.HasPrefix(callee, "$") || strings.HasPrefix(callee, ".") || isPunct(callee[0]) {
		return p.errf("expected callee name, found %q", callee)
	}
	args, err := c.regList()
	if err != nil {
		return err
	}
	if err := c.done(); err != nil {
		return err
	}
	p.f.Append(ir.Instr{Kind: ir.InstrCall, Call: ir.CallInstr{
		HasDst: hasDst, Dst: dst, Callee: ident(callee), Args: args,
	}})
	return nil
}

func (p *parser) parseJump(c *cursor) error {
	name, err := c.labelName()
	if err != nil {
		return err
	}
	var values []ir.RegID
	if c.peek() == "(" {
		values, err = c.regList()
		if err != nil {
			return err
		}
	}
	if err := c.done(); err != nil {
		return err
	}
	id := p.f.Append(ir.Instr{Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: ir.NoInstrID, Values: values}})
	p.ref(id, 0, name)
	return nil
}

func (p *parser) parseBranch(c *cursor) error {
	cond, err := c.reg()
	if err != nil {
		return err
	}
	then, err := c.labelName()
	if err != nil {
		return err
	}
	els, err := c.labelName()
	if err != nil {
		return err
	}
	if err := c.done(); err != nil {
		return err
	}
	id := p.f.Append(ir.Instr{Kind: ir.InstrBranch, Branch: ir.BranchInstr{
		Cond: cond, Then: ir.NoInstrID, Else: ir.NoInstrID,
	}})
	p.ref(id, 0, then)
	p.ref(id, 1, els)
	return nil
}

func (p *parser) parseReturn(c *cursor) error {
	if c.pos == len(c.toks) {
		p.f.Append(ir.Instr{Kind: ir.InstrReturn})
		return nil
	}
	v, err := c.reg()
	if err != nil {
		return err
	}
	if err := c.done(); err != nil {
		return err
	}
	p.f.Append(ir.Instr{Kind: ir.InstrReturn, Return: ir.ReturnInstr{HasValue: true, Value: v}})
	return nil
}

// parseAssign handles the "%dst = op ..." forms: load, move, const, call,
// and beginnlx.
func (p *parser) parseAssign(c *cursor, dstTok string) error {
	dst, err := p.regNamed(dstTok)
	if err != nil {
		return err
	}
	if err := c.expect("="); err != nil {
		return err
	}
	op, err := c.next()
	if err != nil {
		return err
	}
	switch op {
	case "load":
		l, err := c.local()
		if err != nil {
			return err
		}
		if err := c.done(); err != nil {
			return err
		}
		p.f.Append(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Dst: dst, Local: l}})
		return nil
	case "move":
		src, err := c.reg()
		if err != nil {
			return err
		}
		if err := c.done(); err != nil {
			return err
		}
		p.f.Append(ir.Instr{Kind: ir.InstrMove, Move: ir.MoveInstr{Dst: dst, Src: src}})
		return nil
	case "const":
		tok, err := c.next()
		if err != nil {
			return err
		}
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return p.errf("bad constant %q", tok)
		}
		if err := c.done(); err != nil {
			return err
		}
		p.f.Append(ir.Instr{Kind: ir.InstrConst, Const: ir.ConstInstr{Dst: dst, Value: v}})
		return nil
	case "call":
		return p.parseCall(c, true, dst)
	case "beginnlx":
		next, err := c.labelName()
		if err != nil {
			return err
		}
		names, err := c.labelList()
		if err != nil {
			return err
		}
		if err := c.done(); err != nil {
			return err
		}
		targets := make([]ir.InstrID, len(names))
		for i := range targets {
			targets[i] = ir.NoInstrID
		}
		id := p.f.Append(ir.Instr{Kind: ir.InstrBeginNLX, BeginNLX: ir.BeginNLXInstr{
			Context: dst, Next: ir.NoInstrID, Targets: targets,
		}})
		p.ref(id, 0, next)
		for i, n := range names {
			p.ref(id, i+1, n)
		}
		return nil
	}
	return p.errf("unknown instruction %q", op)
}

func ident(s string) string {
	return norm.NFC.String(s)
}

func (p *parser) regNamed(tok string) (ir.RegID, error) {
	name, ok := strings.CutPrefix(tok, "%")
	if !ok || name == "" {
		return ir.NoRegID, p.errf("expected register, found %q", tok)
	}
	name = ident(name)
	if r, ok := p.regs[name]; ok {
		return r, nil
	}
	r := p.f.NewReg(name)
	p.regs[name] = r
	return r, nil
}

func (p *parser) localNamed(tok string) (ir.LocalID, error) {
	name, ok := strings.CutPrefix(tok, "$")
	if !ok || name == "" {
		return ir.NoLocalID, p.errf("expected local, found %q", tok)
	}
	name = ident(name)
	if l, ok := p.locals[name]; ok {
		return l, nil
	}
	l := p.f.NewLocal(name)
	p.locals[name] = l
	return l, nil
}

// cursor walks the tokens of one line.
type cursor struct {
	p    *parser
	toks []string
	pos  int
}

func (c *cursor) next() (string, error) {
	if c.pos >= len(c.toks) {
		return "", c.p.errf("unexpected end of line")
	}
	t := c.toks[c.pos]
	c.pos++
	return t, nil
}

func (c *cursor) peek() string {
	if c.pos >= len(c.toks) {
		return ""
	}
	return c.toks[c.pos]
}

func (c *cursor) expect(want string) error {
	t, err := c.next()
	if err != nil {
		return err
	}
	if t != want {
		return c.p.errf("expected %q, found %q", want, t)
	}
	return nil
}

func (c *cursor) done() error {
	if c.pos != len(c.toks) {
		return c.p.errf("unexpected %q after instruction", c.toks[c.pos])
	}
	return nil
}

func (c *cursor) reg() (ir.RegID, error) {
	t, err := c.next()
	if err != nil {
		return ir.NoRegID, err
	}
	return c.p.regNamed(t)
}

func (c *cursor) local() (ir.LocalID, error) {
	t, err := c.next()
	if err != nil {
		return ir.NoLocalID, err
	}
	return c.p.localNamed(t)
}

func (c *cursor) labelName() (string, error) {
	t, err := c.next()
	if err != nil {
		return "", err
	}
	name, ok := strings.CutPrefix(t, ".")
	if !ok || name == "" {
		return "", c.p.errf("expected label, found %q", t)
	}
	return ident(name), nil
}

// regList reads a parenthesised, comma-separated register list, which may
// be empty.
func (c *cursor) regList() ([]ir.RegID, error) {
	if err := c.expect("("); err != nil {
		return nil, err
	}
	var regs []ir.RegID
	for {
		if c.peek() == ")" {
			c.pos++
			return regs, nil
		}
		if len(regs) > 0 {
			if err := c.expect(","); err != nil {
				return nil, err
			}
		}
		r, err := c.reg()
		if err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
}

// labelList reads a bracketed, comma-separated label name list, which may
// be empty.
func (c *cursor) labelList() ([]string, error) {
	if err := c.expect("["); err != nil {
		return nil, err
	}
	var names []string
	for {
		if c.peek() == "]" {
			c.pos++
			return names, nil
		}
		if len(names) > 0 {
			if err := c.expect(","); err != nil {
				return nil, err
			}
		}
		n, err := c.labelName()
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
}
