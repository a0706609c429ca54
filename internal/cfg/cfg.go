// Package cfg derives basic-block structure and dominance information from a
// function's instruction stream. Blocks are views over the stream, not owned
// objects: a Graph stays valid while passes splice instructions inside a
// block, and is rebuilt after anything that moves a block boundary.
package cfg

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/AdamKing07/Mezzano/internal/ir"
)

// BlockID indexes a basic block within one Graph.
type BlockID int32

// NoBlockID marks the absence of a block.
const NoBlockID BlockID = -1

// Block is a maximal straight-line run: it starts at the function entry or
// at a label and ends at the next terminator, inclusive. For a label block,
// First is the label itself.
type Block struct {
	ID    BlockID
	Label ir.InstrID
	First ir.InstrID
	Last  ir.InstrID
}

// Graph is the control-flow graph of one function, derived purely from
// label, jump, and terminator placement.
type Graph struct {
	Blocks []Block
	Entry  BlockID

	preds   [][]BlockID
	succs   [][]BlockID
	byLabel map[ir.InstrID]BlockID
}

// Build partitions the stream into blocks and records predecessor and
// successor edges. The stream is expected to be structurally valid.
func Build(f *ir.Func) *Graph {
	g := &Graph{
		Entry:   NoBlockID,
		byLabel: make(map[ir.InstrID]BlockID),
	}

	open := false
	for id := f.Head; id != ir.NoInstrID; id = f.Instrs[id].Next {
		in := &f.Instrs[id]
		if in.Kind == ir.InstrLabel || !open {
			bid := g.newBlock()
			b := &g.Blocks[bid]
			b.First = id
			if in.Kind == ir.InstrLabel {
				b.Label = id
				g.byLabel[id] = bid
			}
			open = true
		}
		g.Blocks[len(g.Blocks)-1].Last = id
		if in.IsTerminator() {
			open = false
		}
	}
	if len(g.Blocks) > 0 {
		g.Entry = 0
	}

	g.preds = make([][]BlockID, len(g.Blocks))
	g.succs = make([][]BlockID, len(g.Blocks))
	var tbuf []ir.InstrID
	for i := range g.Blocks {
		src := BlockID(i) //nolint:gosec // G115: bounded by newBlock
		last := &f.Instrs[g.Blocks[i].Last]
		tbuf = last.Targets(tbuf[:0])
		for _, t := range tbuf {
			dst, ok := g.byLabel[t]
			if !ok {
				continue
			}
			g.succs[src] = append(g.succs[src], dst)
			g.preds[dst] = append(g.preds[dst], src)
		}
	}

	return g
}

func (g *Graph) newBlock() BlockID {
	raw, err := safecast.Conv[int32](len(g.Blocks))
	if err != nil {
		panic(fmt.Errorf("cfg: block id overflow: %w", err))
	}
	id := BlockID(raw)
	g.Blocks = append(g.Blocks, Block{
		ID:    id,
		Label: ir.NoInstrID,
		First: ir.NoInstrID,
		Last:  ir.NoInstrID,
	})
	return id
}

// NumBlocks returns the number of blocks, reachable or not.
func (g *Graph) NumBlocks() int { return len(g.Blocks) }

// Preds returns the predecessor blocks of b. An edge appears once per
// terminator target, so a two-way branch into b contributes two entries.
func (g *Graph) Preds(b BlockID) []BlockID { return g.preds[b] }

// Succs returns the successor blocks of b.
func (g *Graph) Succs(b BlockID) []BlockID { return g.succs[b] }

// BlockByLabel returns the block opened by the given label instruction, or
// NoBlockID.
func (g *Graph) BlockByLabel(l ir.InstrID) BlockID {
	if b, ok := g.byLabel[l]; ok {
		return b
	}
	return NoBlockID
}
