package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/AdamKing07/Mezzano/internal/ir"
)

// CheckStreamInvariants runs a minimal set of stream invariants on a function:
// 1) the structural validator passes
// 2) the live stream length matches the arena's live count
// 3) a label declaring phis is entered only by jumps, so every merge has a
//    value list to pair with
func CheckStreamInvariants(f *ir.Func) error {
	if f == nil {
		return fmt.Errorf("nil function")
	}
	if err := ir.ValidateFunc(f); err != nil {
		return fmt.Errorf("structural validation: %w", err)
	}

	// 2) stream walk agrees with the arena
	walked := 0
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		walked++
	}
	if walked != f.NumInstrs() {
		return fmt.Errorf("stream walk found %d instructions, arena counts %d", walked, f.NumInstrs())
	}
	if _, err := safecast.Conv[uint32](len(f.Instrs)); err != nil {
		return fmt.Errorf("arena size overflow: %w", err)
	}

	// 3) phi-declaring labels have only jump predecessors
	var buf []ir.InstrID
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		if !in.IsTerminator() {
			continue
		}
		buf = in.Targets(buf[:0])
		for _, tgt := range buf {
			if f.Instrs[tgt].Kind != ir.InstrLabel {
				continue // reported by the validator
			}
			if len(f.Instrs[tgt].Label.Phis) > 0 && in.Kind != ir.InstrJump {
				return fmt.Errorf("i%d: %s enters label %s which declares phis", id, in.Kind, f.Instrs[tgt].Label.Name)
			}
		}
	}
	return nil
}
