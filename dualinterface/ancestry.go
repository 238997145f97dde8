package dualinterface

import "github.com/katalvlaran/mwpm/dualnode"

// GetAncestorBlossom walks parent_blossom from n until null and returns the
// outermost enclosing node (§4.2). If n is untracked, n is returned as-is.
func (itf *Interface) GetAncestorBlossom(n dualnode.NodeIndex) dualnode.NodeIndex {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	return itf.ancestorLocked(n)
}

// GetSecondaryAncestorBlossom returns the parent one below the outermost
// (§4.2), used when expanding the outermost blossom to point at the next.
// Per §9 Open Question 2, callers must guarantee n has at least one parent;
// GetSecondaryAncestorBlossom returns NoNode rather than panicking when that
// precondition is violated.
func (itf *Interface) GetSecondaryAncestorBlossom(n dualnode.NodeIndex) dualnode.NodeIndex {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	node := itf.get(n)
	if node == nil || node.ParentBlossom == dualnode.NoNode {
		return dualnode.NoNode
	}

	cur := n
	for {
		curNode := itf.get(cur)
		parent := curNode.ParentBlossom
		parentNode := itf.get(parent)
		if parentNode == nil || parentNode.ParentBlossom == dualnode.NoNode {
			return cur
		}
		cur = parent
	}
}

// GetAllVertices flattens to all syndrome vertex indices beneath n (§4.2).
func (itf *Interface) GetAllVertices(n dualnode.NodeIndex) []dualnode.VertexIndex {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	var out []dualnode.VertexIndex
	itf.collectVertices(n, &out)

	return out
}

func (itf *Interface) collectVertices(n dualnode.NodeIndex, out *[]dualnode.VertexIndex) {
	node := itf.get(n)
	if node == nil {
		return
	}
	if node.IsSyndromeVertex() {
		*out = append(*out, node.Vertex)
		return
	}
	for _, c := range node.NodesCircle {
		itf.collectVertices(c, out)
	}
}

// GetRepresentativeVertex returns the first syndrome vertex found by
// descending the first child of each blossom (§4.2).
func (itf *Interface) GetRepresentativeVertex(n dualnode.NodeIndex) (dualnode.VertexIndex, bool) {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	cur := n
	for {
		node := itf.get(cur)
		if node == nil {
			return 0, false
		}
		if node.IsSyndromeVertex() {
			return node.Vertex, true
		}
		if len(node.NodesCircle) == 0 {
			return 0, false
		}
		cur = node.NodesCircle[0]
	}
}
