package dualinterface

import (
	"fmt"

	"github.com/katalvlaran/mwpm/dualnode"
)

// SanityCheck verifies every invariant listed in §3, returning a wrapped
// ErrSanityCheck naming the offending index on the first violation found.
// Called at every visualizer snapshot per §7, so a visualizer run acts as a
// continuous integrity monitor.
func (itf *Interface) SanityCheck() error {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	seenVertex := make(map[dualnode.VertexIndex]dualnode.NodeIndex)
	sumDual := int64(0)

	for i := 0; i < itf.nodesLength; i++ {
		n := itf.nodes[i]
		if n == nil {
			continue
		}

		// Invariant 1: slot i holds the node with index i.
		if int(n.Index) != i {
			return fmt.Errorf("%w: slot %d holds node index %d", ErrSanityCheck, i, n.Index)
		}

		// Invariant: parent implies Stay (also §8 invariant 2).
		if n.ParentBlossom != dualnode.NoNode && n.GrowState != dualnode.Stay {
			return fmt.Errorf("%w: node %d has parent %d but grow_state=%v", ErrSanityCheck, n.Index, n.ParentBlossom, n.GrowState)
		}

		if n.IsBlossom() {
			if err := itf.checkBlossomLocked(n); err != nil {
				return err
			}
		}

		if n.IsSyndromeVertex() {
			// Invariant 6: syndrome vertex indices are unique.
			if prev, dup := seenVertex[n.Vertex]; dup {
				return fmt.Errorf("%w: vertex %d tracked by nodes %d and %d", ErrSanityCheck, n.Vertex, prev, n.Index)
			}
			seenVertex[n.Vertex] = n.Index
		}

		sumDual += n.DualVariable(itf.globalProgress)
	}

	// Invariant 5: sum_dual_variables equals the recomputed total.
	if sumDual != itf.sumDualVariables {
		return fmt.Errorf("%w: sum_dual_variables=%d recomputed=%d", ErrSanityCheck, itf.sumDualVariables, sumDual)
	}

	// Invariant 4: the parent_blossom relation forms a forest (no cycles).
	for i := 0; i < itf.nodesLength; i++ {
		n := itf.nodes[i]
		if n == nil {
			continue
		}
		visited := map[dualnode.NodeIndex]bool{n.Index: true}
		cur := n.ParentBlossom
		for cur != dualnode.NoNode {
			if visited[cur] {
				return fmt.Errorf("%w: cycle through node %d", ErrSanityCheck, n.Index)
			}
			visited[cur] = true
			p := itf.get(cur)
			if p == nil {
				return fmt.Errorf("%w: node %d has dangling parent %d", ErrSanityCheck, n.Index, cur)
			}
			cur = p.ParentBlossom
		}
	}

	return nil
}

// checkBlossomLocked verifies invariants 2 and 3 for a single blossom node.
// Requires itf.mu held for reading.
func (itf *Interface) checkBlossomLocked(b *dualnode.Node) error {
	if len(b.NodesCircle) == 0 || len(b.NodesCircle)%2 == 0 {
		return fmt.Errorf("%w: blossom %d has circle length %d", ErrSanityCheck, b.Index, len(b.NodesCircle))
	}
	if len(b.TouchingChildren) != len(b.NodesCircle) {
		return fmt.Errorf("%w: blossom %d touching length %d != circle length %d", ErrSanityCheck, b.Index, len(b.TouchingChildren), len(b.NodesCircle))
	}

	for i, cIdx := range b.NodesCircle {
		c := itf.get(cIdx)
		if c == nil {
			return fmt.Errorf("%w: blossom %d circle member %d not tracked", ErrSanityCheck, b.Index, cIdx)
		}
		// Invariant 2 (post-creation half): every current member is Stay
		// with parent b.
		if c.ParentBlossom != b.Index {
			return fmt.Errorf("%w: blossom %d circle member %d has parent %d", ErrSanityCheck, b.Index, cIdx, c.ParentBlossom)
		}
		if c.GrowState != dualnode.Stay {
			return fmt.Errorf("%w: blossom %d circle member %d grow_state=%v", ErrSanityCheck, b.Index, cIdx, c.GrowState)
		}

		// Invariant 3: touching_children[i] references nodes whose
		// ancestor-blossom equals nodes_circle[i]'s ancestor-blossom
		// (which, right after creation and while still enclosed by b, is
		// b itself); for syndrome-vertex children both entries equal the
		// child itself.
		tc := b.TouchingChildren[i]
		if c.IsSyndromeVertex() {
			if tc[0] != cIdx || tc[1] != cIdx {
				return fmt.Errorf("%w: blossom %d touching[%d]=%v, want (%d,%d)", ErrSanityCheck, b.Index, i, tc, cIdx, cIdx)
			}
		}
		for _, endpoint := range tc {
			if itf.ancestorLocked(endpoint) != b.Index && itf.ancestorLocked(endpoint) != itf.ancestorLocked(cIdx) {
				return fmt.Errorf("%w: blossom %d touching[%d]=%v not under circle member %d's ancestor", ErrSanityCheck, b.Index, i, tc, cIdx)
			}
		}
	}

	return nil
}

// ancestorLocked requires itf.mu held (read or write).
func (itf *Interface) ancestorLocked(n dualnode.NodeIndex) dualnode.NodeIndex {
	cur := n
	for {
		node := itf.get(cur)
		if node == nil || node.ParentBlossom == dualnode.NoNode {
			return cur
		}
		cur = node.ParentBlossom
	}
}
