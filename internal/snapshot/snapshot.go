// Package snapshot serializes backend modules to versioned .mzs files.
// Snapshots store the live instruction stream only: retired arena slots are
// compacted away and label references are rewritten to stream positions, so
// a loaded module is equivalent to the saved one but not arena-identical.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/AdamKing07/Mezzano/internal/ir"
)

// Current schema version - increment when the payload format changes.
const schemaVersion uint16 = 1

type payload struct {
	Schema uint16
	Funcs  []funcPayload
}

type funcPayload struct {
	Name   string
	Regs   []string
	Locals []string
	Instrs []instrPayload
}

// instrPayload is one live instruction. Label-typed fields hold positions
// in the function's live stream, register and local fields hold table
// indexes. Unused fields stay at their zero value for the kind.
type instrPayload struct {
	Kind     uint8
	Dst      int32
	Src      int32
	Local    int32
	Value    int64
	Name     string
	Callee   string
	Args     []int32
	Targets  []int32
	Target   int32
	Then     int32
	Else     int32
	Next     int32
	HasDst   bool
	HasValue bool
}

// Encode writes the module to w.
func Encode(w io.Writer, m *ir.Module) error {
	p := payload{Schema: schemaVersion}
	if m != nil {
		for _, f := range m.Funcs {
			if f == nil {
				continue
			}
			fp, err := encodeFunc(f)
			if err != nil {
				return err
			}
			p.Funcs = append(p.Funcs, fp)
		}
	}
	return msgpack.NewEncoder(w).Encode(&p)
}

// Decode reads a module from r and rejects snapshots with a different
// schema version.
func Decode(r io.Reader) (*ir.Module, error) {
	var p payload
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, err
	}
	if p.Schema != schemaVersion {
		return nil, fmt.Errorf("snapshot schema %d, want %d", p.Schema, schemaVersion)
	}
	m := &ir.Module{}
	for i := range p.Funcs {
		f, err := decodeFunc(&p.Funcs[i])
		if err != nil {
			return nil, err
		}
		m.Funcs = append(m.Funcs, f)
	}
	return m, nil
}

// Write saves the module to path atomically: the payload goes to a temp
// file in the target directory first and is renamed over path.
func Write(path string, m *ir.Module) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	if err := Encode(f, m); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Read loads a module from path. A missing file is reported as
// os.ErrNotExist, which callers may treat as cache miss.
func Read(path string) (*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			panic(closeErr)
		}
	}()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return m, nil
}

func encodeFunc(f *ir.Func) (funcPayload, error) {
	fp := funcPayload{Name: f.Name}
	for i := range f.Regs {
		fp.Regs = append(fp.Regs, f.Regs[i].Name)
	}
	for i := range f.Locals {
		fp.Locals = append(fp.Locals, f.Locals[i].Name)
	}

	// Live-stream positions; InstrID is int32 so the count is bounded.
	pos := make(map[ir.InstrID]int32)
	n := int32(0)
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		pos[id] = n
		n++
	}
	labelPos := func(id ir.InstrID) (int32, error) {
		p, ok := pos[id]
		if !ok {
			return 0, fmt.Errorf("function %s: reference to i%d which is not in the stream", f.Name, id)
		}
		return p, nil
	}

	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		rec := instrPayload{Kind: uint8(in.Kind)}
		var err error
		switch in.Kind {
		case ir.InstrLabel:
			rec.Name = in.Label.Name
			rec.Args = regIndexes(in.Label.Phis)
		case ir.InstrArgSetup:
			rec.Args = regIndexes(in.ArgSetup.Args)
		case ir.InstrBind:
			rec.Local = int32(in.Bind.Local)
			rec.Src = int32(in.Bind.Value)
		case ir.InstrUnbind:
			rec.Local = int32(in.Unbind.Local)
		case ir.InstrLoad:
			rec.Dst = int32(in.Load.Dst)
			rec.Local = int32(in.Load.Local)
		case ir.InstrStore:
			rec.Local = int32(in.Store.Local)
			rec.Src = int32(in.Store.Value)
		case ir.InstrMove:
			rec.Dst = int32(in.Move.Dst)
			rec.Src = int32(in.Move.Src)
		case ir.InstrConst:
			rec.Dst = int32(in.Const.Dst)
			rec.Value = in.Const.Value
		case ir.InstrCall:
			rec.HasDst = in.Call.HasDst
			rec.Dst = int32(in.Call.Dst)
			rec.Callee = in.Call.Callee
			rec.Args = regIndexes(in.Call.Args)
		case ir.InstrJump:
			rec.Target, err = labelPos(in.Jump.Target)
			if err != nil {
				return funcPayload{}, err
			}
			rec.Args = regIndexes(in.Jump.Values)
		case ir.InstrBranch:
			rec.Src = int32(in.Branch.Cond)
			rec.Then, err = labelPos(in.Branch.Then)
			if err != nil {
				return funcPayload{}, err
			}
			rec.Else, err = labelPos(in.Branch.Else)
			if err != nil {
				return funcPayload{}, err
			}
		case ir.InstrBeginNLX:
			rec.Dst = int32(in.BeginNLX.Context)
			rec.Next, err = labelPos(in.BeginNLX.Next)
			if err != nil {
				return funcPayload{}, err
			}
			for _, t := range in.BeginNLX.Targets {
				p, err := labelPos(t)
				if err != nil {
					return funcPayload{}, err
				}
				rec.Targets = append(rec.Targets, p)
			}
		case ir.InstrReturn:
			rec.HasValue = in.Return.HasValue
			rec.Src = int32(in.Return.Value)
		default:
			return funcPayload{}, fmt.Errorf("function %s: cannot snapshot %s", f.Name, in.Kind)
		}
		fp.Instrs = append(fp.Instrs, rec)
	}
	return fp, nil
}

func regIndexes(rs []ir.RegID) []int32 {
	if len(rs) == 0 {
		return nil
	}
	out := make([]int32, len(rs))
	for i, r := range rs {
		out[i] = int32(r)
	}
	return out
}

func decodeFunc(fp *funcPayload) (*ir.Func, error) {
	f := ir.NewFunc(fp.Name)
	for _, n := range fp.Regs {
		f.NewReg(n)
	}
	for _, n := range fp.Locals {
		f.NewLocal(n)
	}

	fail := func(i int, format string, args ...any) error {
		return fmt.Errorf("snapshot function %s, instruction %d: %s", fp.Name, i, fmt.Sprintf(format, args...))
	}
	reg := func(i int, raw int32) (ir.RegID, error) {
		if raw < 0 || int(raw) >= len(f.Regs) {
			return ir.NoRegID, fail(i, "register index %d out of range", raw)
		}
		return ir.RegID(raw), nil
	}
	local := func(i int, raw int32) (ir.LocalID, error) {
		if raw < 0 || int(raw) >= len(f.Locals) {
			return ir.NoLocalID, fail(i, "local index %d out of range", raw)
		}
		return ir.LocalID(raw), nil
	}
	regList := func(i int, raw []int32) ([]ir.RegID, error) {
		if len(raw) == 0 {
			return nil, nil
		}
		out := make([]ir.RegID, len(raw))
		for j, r := range raw {
			rr, err := reg(i, r)
			if err != nil {
				return nil, err
			}
			out[j] = rr
		}
		return out, nil
	}

	// First pass appends with unresolved label references, second pass
	// patches them through the position table.
	ids := make([]ir.InstrID, len(fp.Instrs))
	for i := range fp.Instrs {
		rec := &fp.Instrs[i]
		in := ir.Instr{Kind: ir.InstrKind(rec.Kind)}
		var err error
		switch in.Kind {
		case ir.InstrLabel:
			in.Label.Name = rec.Name
			in.Label.Phis, err = regList(i, rec.Args)
		case ir.InstrArgSetup:
			in.ArgSetup.Args, err = regList(i, rec.Args)
		case ir.InstrBind:
			in.Bind.Local, err = local(i, rec.Local)
			if err == nil {
				in.Bind.Value, err = reg(i, rec.Src)
			}
		case ir.InstrUnbind:
			in.Unbind.Local, err = local(i, rec.Local)
		case ir.InstrLoad:
			in.Load.Dst, err = reg(i, rec.Dst)
			if err == nil {
				in.Load.Local, err = local(i, rec.Local)
			}
		case ir.InstrStore:
			in.Store.Local, err = local(i, rec.Local)
			if err == nil {
				in.Store.Value, err = reg(i, rec.Src)
			}
		case ir.InstrMove:
			in.Move.Dst, err = reg(i, rec.Dst)
			if err == nil {
				in.Move.Src, err = reg(i, rec.Src)
			}
		case ir.InstrConst:
			in.Const.Dst, err = reg(i, rec.Dst)
			in.Const.Value = rec.Value
		case ir.InstrCall:
			in.Call.HasDst = rec.HasDst
			in.Call.Callee = rec.Callee
			if rec.HasDst {
				in.Call.Dst, err = reg(i, rec.Dst)
			}
			if err == nil {
				in.Call.Args, err = regList(i, rec.Args)
			}
		case ir.InstrJump:
			in.Jump.Target = ir.NoInstrID
			in.Jump.Values, err = regList(i, rec.Args)
		case ir.InstrBranch:
			in.Branch.Cond, err = reg(i, rec.Src)
			in.Branch.Then = ir.NoInstrID
			in.Branch.Else = ir.NoInstrID
		case ir.InstrBeginNLX:
			in.BeginNLX.Context, err = reg(i, rec.Dst)
			in.BeginNLX.Next = ir.NoInstrID
			if len(rec.Targets) > 0 {
				in.BeginNLX.Targets = make([]ir.InstrID, len(rec.Targets))
				for j := range in.BeginNLX.Targets {
					in.BeginNLX.Targets[j] = ir.NoInstrID
				}
			}
		case ir.InstrReturn:
			in.Return.HasValue = rec.HasValue
			if rec.HasValue {
				in.Return.Value, err = reg(i, rec.Src)
			}
		default:
			err = fail(i, "unknown instruction kind %d", rec.Kind)
		}
		if err != nil {
			return nil, err
		}
		ids[i] = f.Append(in)
	}

	at := func(i int, p int32) (ir.InstrID, error) {
		if p < 0 || int(p) >= len(ids) {
			return ir.NoInstrID, fail(i, "label position %d out of range", p)
		}
		return ids[p], nil
	}
	for i := range fp.Instrs {
		rec := &fp.Instrs[i]
		in := &f.Instrs[ids[i]]
		var err error
		switch in.Kind {
		case ir.InstrJump:
			in.Jump.Target, err = at(i, rec.Target)
		case ir.InstrBranch:
			in.Branch.Then, err = at(i, rec.Then)
			if err == nil {
				in.Branch.Else, err = at(i, rec.Else)
			}
		case ir.InstrBeginNLX:
			in.BeginNLX.Next, err = at(i, rec.Next)
			for j := 0; err == nil && j < len(rec.Targets); j++ {
				in.BeginNLX.Targets[j], err = at(i, rec.Targets[j])
			}
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// IsNotExist reports whether err means the snapshot file was absent.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
