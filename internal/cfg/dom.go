package cfg

// Dominance answers dominator-tree and dominance-frontier queries for one
// Graph. It is computed once per pass invocation and never mutated by
// queries; rebuild it together with the Graph.
type Dominance struct {
	g        *Graph
	idom     []BlockID
	children [][]BlockID
	frontier [][]BlockID

	// Preorder intervals over the dominator tree; tin < 0 marks a block
	// unreachable from the entry.
	tin  []int32
	tout []int32
}

// ComputeDominance builds immediate dominators with the Cooper-Harvey-Kennedy
// iterative algorithm, then derives tree children, dominance frontiers, and
// the preorder intervals backing Dominates.
func ComputeDominance(g *Graph) *Dominance {
	n := g.NumBlocks()
	d := &Dominance{
		g:        g,
		idom:     make([]BlockID, n),
		children: make([][]BlockID, n),
		frontier: make([][]BlockID, n),
		tin:      make([]int32, n),
		tout:     make([]int32, n),
	}
	for i := range d.idom {
		d.idom[i] = NoBlockID
		d.tin[i] = -1
		d.tout[i] = -1
	}
	if n == 0 || g.Entry == NoBlockID {
		return d
	}

	rpo := reversePostOrder(g)
	rpoNum := make([]int, n)
	for i := range rpoNum {
		rpoNum[i] = -1
	}
	for i, b := range rpo {
		rpoNum[b] = i
	}

	intersect := func(b1, b2 BlockID) BlockID {
		for b1 != b2 {
			for rpoNum[b1] > rpoNum[b2] {
				b1 = d.idom[b1]
			}
			for rpoNum[b2] > rpoNum[b1] {
				b2 = d.idom[b2]
			}
		}
		return b1
	}

	// Entry dominates itself while iterating; reset below.
	d.idom[g.Entry] = g.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			newIdom := NoBlockID
			for _, p := range g.Preds(b) {
				if d.idom[p] == NoBlockID {
					continue
				}
				if newIdom == NoBlockID {
					newIdom = p
					continue
				}
				newIdom = intersect(p, newIdom)
			}
			if newIdom == NoBlockID {
				continue
			}
			if d.idom[b] != newIdom {
				d.idom[b] = newIdom
				changed = true
			}
		}
	}

	d.idom[g.Entry] = NoBlockID

	// Children in RPO order keeps walks deterministic.
	for _, b := range rpo[1:] {
		if p := d.idom[b]; p != NoBlockID {
			d.children[p] = append(d.children[p], b)
		}
	}

	d.computeFrontiers(rpo)
	d.numberTree()
	return d
}

// reversePostOrder returns the blocks reachable from the entry, entry first.
func reversePostOrder(g *Graph) []BlockID {
	visited := make([]bool, g.NumBlocks())
	order := make([]BlockID, 0, g.NumBlocks())

	var dfs func(b BlockID)
	dfs = func(b BlockID) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range g.Succs(b) {
			dfs(s)
		}
		order = append(order, b)
	}
	dfs(g.Entry)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// computeFrontiers runs the standard runner walk: for each join block, each
// predecessor's dominator chain up to (excluding) the join's idom has the
// join in its frontier.
func (d *Dominance) computeFrontiers(rpo []BlockID) {
	for _, b := range rpo {
		preds := d.g.Preds(b)
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			if d.idom[p] == NoBlockID && p != d.g.Entry {
				continue
			}
			runner := p
			for runner != NoBlockID && runner != d.idom[b] {
				d.frontier[runner] = appendUnique(d.frontier[runner], b)
				runner = d.idom[runner]
			}
		}
	}
}

func appendUnique(list []BlockID, b BlockID) []BlockID {
	for _, x := range list {
		if x == b {
			return list
		}
	}
	return append(list, b)
}

// numberTree assigns preorder entry/exit numbers over the dominator tree.
func (d *Dominance) numberTree() {
	var clock int32

	var walk func(b BlockID)
	walk = func(b BlockID) {
		d.tin[b] = clock
		clock++
		for _, c := range d.children[b] {
			walk(c)
		}
		d.tout[b] = clock
		clock++
	}
	walk(d.g.Entry)
}

// Idom returns the immediate dominator of b, or NoBlockID for the entry and
// for unreachable blocks.
func (d *Dominance) Idom(b BlockID) BlockID { return d.idom[b] }

// Children returns b's dominator-tree children in reverse post-order.
func (d *Dominance) Children(b BlockID) []BlockID { return d.children[b] }

// Frontier returns b's dominance frontier.
func (d *Dominance) Frontier(b BlockID) []BlockID { return d.frontier[b] }

// Reachable reports whether b is reachable from the entry.
func (d *Dominance) Reachable(b BlockID) bool { return d.tin[b] >= 0 }

// Dominates reports whether a dominates b. A block dominates itself.
// Unreachable blocks dominate nothing and are dominated by nothing.
func (d *Dominance) Dominates(a, b BlockID) bool {
	if d.tin[a] < 0 || d.tin[b] < 0 {
		return false
	}
	return d.tin[a] <= d.tin[b] && d.tout[b] <= d.tout[a]
}
