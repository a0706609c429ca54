package diag

import (
	"fmt"

	"github.com/AdamKing07/Mezzano/internal/ir"
)

// Site locates a finding in the instruction stream. Instr is NoInstrID for
// function-level findings, and Func is empty for module-level ones.
type Site struct {
	Func  string
	Instr ir.InstrID
}

// FuncSite builds a function-level site.
func FuncSite(fn string) Site {
	return Site{Func: fn, Instr: ir.NoInstrID}
}

// InstrSite builds an instruction-level site.
func InstrSite(fn string, instr ir.InstrID) Site {
	return Site{Func: fn, Instr: instr}
}

func (s Site) String() string {
	if s.Func == "" {
		return "<module>"
	}
	if s.Instr == ir.NoInstrID {
		return s.Func
	}
	return fmt.Sprintf("%s:i%d", s.Func, s.Instr)
}
