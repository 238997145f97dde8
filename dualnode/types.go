// Package dualnode defines the DualNode entity and its grow-state machine:
// the smallest unit the blossom algorithm's dual module tracks (§3 of the
// decoder's design — a syndrome vertex or a blossom, never both).
//
// A DualNode never resolves its own ancestry: walking parent_blossom chains,
// flattening to syndrome vertices, and ordering by identity all require the
// owning arena (see package dualinterface), because a "weak reference" here
// is just a NodeIndex that only the arena can resolve to a live node or to
// "gone".
package dualnode

import "fmt"

// NodeIndex identifies a DualNode within a single DualInterface's arena.
// It is assigned once, never reused, and never renumbered except by the
// explicit index-rebase a DualInterface performs during fuse.
type NodeIndex int

// NoNode is the zero-value-free sentinel for "no parent blossom" / "not a
// node". Using -1 rather than a pointer means a stale reference always
// resolves through the arena, never dereferences garbage.
const NoNode NodeIndex = -1

// VertexIndex identifies a syndrome vertex in the decoding graph. Vertex
// indices are assigned once for the lifetime of a decode and are never
// rebased by fuse (only NodeIndex values are).
type VertexIndex int

// GrowState is the direction of change of a node's dual variable per unit
// of growth (§3, §8 invariant 2: a node with a parent must be Stay).
type GrowState int8

const (
	Shrink GrowState = -1
	Stay   GrowState = 0
	Grow   GrowState = 1
)

func (gs GrowState) String() string {
	switch gs {
	case Grow:
		return "grow"
	case Shrink:
		return "shrink"
	case Stay:
		return "stay"
	default:
		return fmt.Sprintf("GrowState(%d)", int8(gs))
	}
}

// Kind tags the two DualNode variants.
type Kind uint8

const (
	KindSyndromeVertex Kind = iota
	KindBlossom
)

// Node is a dual node: either a syndrome vertex (a leaf) or a blossom (an
// odd cycle of other nodes, possibly themselves blossoms).
//
// Fields not meaningful for the node's Kind are left at their zero value;
// see IsSyndromeVertex / IsBlossom before reading Vertex / NodesCircle.
type Node struct {
	Index NodeIndex
	Kind  Kind

	// Vertex is valid iff Kind == KindSyndromeVertex.
	Vertex VertexIndex

	// NodesCircle and TouchingChildren are valid iff Kind == KindBlossom.
	// NodesCircle alternates Grow,Shrink,Grow,...,Grow at creation time;
	// TouchingChildren[i] records the descendant pair through which
	// NodesCircle[i] touches NodesCircle[i+1 mod len] (§3 invariant 3).
	NodesCircle      []NodeIndex
	TouchingChildren [][2]NodeIndex

	GrowState GrowState

	// ParentBlossom is the immediately enclosing blossom, or NoNode.
	// Invariant: ParentBlossom != NoNode implies GrowState == Stay.
	ParentBlossom NodeIndex

	cacheValue    int64
	cacheProgress int64
}

// NewSyndromeNode creates a Grow-state syndrome-vertex node with its dual
// variable cache anchored at the interface's current global progress.
func NewSyndromeNode(idx NodeIndex, v VertexIndex, globalProgress int64) *Node {
	return &Node{
		Index:         idx,
		Kind:          KindSyndromeVertex,
		Vertex:        v,
		GrowState:     Grow,
		ParentBlossom: NoNode,
		cacheProgress: globalProgress,
	}
}

// NewBlossomNode creates a Grow-state blossom node over circle, owning a
// defensive copy of circle and touching so callers may reuse their slices.
func NewBlossomNode(idx NodeIndex, circle []NodeIndex, touching [][2]NodeIndex, globalProgress int64) *Node {
	c := make([]NodeIndex, len(circle))
	copy(c, circle)
	t := make([][2]NodeIndex, len(touching))
	copy(t, touching)

	return &Node{
		Index:            idx,
		Kind:             KindBlossom,
		NodesCircle:      c,
		TouchingChildren: t,
		GrowState:        Grow,
		ParentBlossom:    NoNode,
		cacheProgress:    globalProgress,
	}
}

// IsSyndromeVertex reports whether n is a leaf syndrome-vertex node.
func (n *Node) IsSyndromeVertex() bool { return n.Kind == KindSyndromeVertex }

// IsBlossom reports whether n is a blossom node.
func (n *Node) IsBlossom() bool { return n.Kind == KindBlossom }

// DualVariable returns n's current dual variable given the owning
// interface's global progress counter, applying the cached value plus the
// elapsed growth since the last cache refresh (§3 "Invariant").
func (n *Node) DualVariable(globalProgress int64) int64 {
	elapsed := globalProgress - n.cacheProgress
	switch n.GrowState {
	case Grow:
		return n.cacheValue + elapsed
	case Shrink:
		return n.cacheValue - elapsed
	default:
		return n.cacheValue
	}
}

// RefreshCache snapshots the current dual variable against globalProgress
// using n's state as it stands *before* the caller changes it. The owning
// interface calls this immediately before any grow-state transition so the
// cache always reflects the most recent state change.
func (n *Node) RefreshCache(globalProgress int64) {
	n.cacheValue = n.DualVariable(globalProgress)
	n.cacheProgress = globalProgress
}

// Rebase returns a copy of n shifted by base (added to Index, ParentBlossom,
// and every NodesCircle/TouchingChildren entry) with its dual-variable cache
// re-anchored to snapshotValue at newProgress. Used by DualInterface.Fuse to
// splice another interface's arena into this one (§4.1).
func (n *Node) Rebase(base NodeIndex, snapshotValue int64, newProgress int64) *Node {
	out := &Node{
		Index:         n.Index + base,
		Kind:          n.Kind,
		Vertex:        n.Vertex,
		GrowState:     n.GrowState,
		cacheValue:    snapshotValue,
		cacheProgress: newProgress,
	}
	if n.ParentBlossom == NoNode {
		out.ParentBlossom = NoNode
	} else {
		out.ParentBlossom = n.ParentBlossom + base
	}
	if n.Kind == KindBlossom {
		out.NodesCircle = make([]NodeIndex, len(n.NodesCircle))
		for i, c := range n.NodesCircle {
			out.NodesCircle[i] = c + base
		}
		out.TouchingChildren = make([][2]NodeIndex, len(n.TouchingChildren))
		for i, tc := range n.TouchingChildren {
			out.TouchingChildren[i] = [2]NodeIndex{tc[0] + base, tc[1] + base}
		}
	}

	return out
}
