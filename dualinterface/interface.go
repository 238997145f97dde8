// Package dualinterface implements the DualInterface arena (§3, §4.1): the
// ordered collection of dual nodes a dual backend grows, with blossom
// creation/expansion, grow-state transitions, the lazy global-progress
// growth counter, fusion, and the sanity check tying every invariant in §3
// back to a single entry point.
package dualinterface

import (
	"fmt"
	"sync"

	"github.com/katalvlaran/mwpm/dualmodule"
	"github.com/katalvlaran/mwpm/dualnode"
)

// Interface is DualInterface: an ordered arena of dual nodes plus the
// accumulators §3 requires for O(1) growth (sum_grow_speed,
// sum_dual_variables, dual_variable_global_progress).
//
// Interface carries its own sync.RWMutex, mirroring core.Graph's
// muVert/muEdgeAdj split collapsed to a single lock here because dual
// nodes, unlike vertices and edges, are always mutated together. Per §5 the
// owning partition unit already serializes access to a unit's whole solve
// step; this lock is defense in depth for read-only callers (SanityCheck,
// visualization snapshots) that may run concurrently with nothing else,
// the same posture core.Graph takes for its own readers.
type Interface struct {
	mu sync.RWMutex

	nodes       []*dualnode.Node
	nodesLength int

	sumGrowSpeed     int64
	sumDualVariables int64
	globalProgress   int64

	vertexIndex map[dualnode.VertexIndex]dualnode.NodeIndex
}

// NewEmpty returns an interface tracking no nodes (§4.1 "new_empty").
func NewEmpty() *Interface {
	return &Interface{vertexIndex: make(map[dualnode.VertexIndex]dualnode.NodeIndex)}
}

// Clear resets nodes_length to zero — and, since no node remains tracked,
// the derived accumulators sum_grow_speed/sum_dual_variables along with
// them — while leaving the backing arena allocated for reuse (§4.1, §8
// boundary behavior). dual_variable_global_progress is left untouched: it
// is a program-lifetime timeline, not a per-load counter.
func (itf *Interface) Clear() {
	itf.mu.Lock()
	defer itf.mu.Unlock()

	itf.nodesLength = 0
	itf.sumGrowSpeed = 0
	itf.sumDualVariables = 0
	itf.vertexIndex = make(map[dualnode.VertexIndex]dualnode.NodeIndex)
}

// NodesLength returns the arena's logical length.
func (itf *Interface) NodesLength() int {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	return itf.nodesLength
}

// SumGrowSpeed returns the algebraic sum of root-level grow states.
func (itf *Interface) SumGrowSpeed() int64 {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	return itf.sumGrowSpeed
}

// SumDualVariables returns the running total of all tracked dual variables.
func (itf *Interface) SumDualVariables() int64 {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	return itf.sumDualVariables
}

// GlobalProgress returns dual_variable_global_progress.
func (itf *Interface) GlobalProgress() int64 {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	return itf.globalProgress
}

// Get resolves a NodeIndex to its live node, or nil if the slot is out of
// range or vacated — the deterministic "gone" resolution a stale weak
// reference gets after expand_blossom or Clear (§4.1 Rationale).
func (itf *Interface) Get(n dualnode.NodeIndex) *dualnode.Node {
	itf.mu.RLock()
	defer itf.mu.RUnlock()

	return itf.get(n)
}

func (itf *Interface) get(n dualnode.NodeIndex) *dualnode.Node {
	if n < 0 || int(n) >= itf.nodesLength {
		return nil
	}

	return itf.nodes[n]
}

// pushSlot appends n (which may be nil, a vacated slot) at the arena's
// current end, extending the backing slice only when required.
func (itf *Interface) pushSlot(n *dualnode.Node) {
	idx := itf.nodesLength
	if idx < len(itf.nodes) {
		itf.nodes[idx] = n
	} else {
		itf.nodes = append(itf.nodes, n)
	}
	itf.nodesLength = idx + 1
}

// Load creates one syndrome-vertex dual node per vertex in pattern and, if
// erasures are present, forwards them to backend (§4.1 "load").
func (itf *Interface) Load(pattern dualmodule.SyndromePattern, backend dualmodule.Backend) error {
	for _, v := range pattern.SyndromeVertices {
		if _, err := itf.CreateSyndromeNode(v, backend); err != nil {
			return err
		}
	}
	if len(pattern.Erasures) > 0 {
		if err := backend.LoadErasures(pattern.Erasures); err != nil {
			return err
		}
	}

	return nil
}

// CreateSyndromeNode assigns the next index, pushes a Grow-state syndrome
// node, and invokes backend.AddSyndromeNode (§4.1).
func (itf *Interface) CreateSyndromeNode(v dualnode.VertexIndex, backend dualmodule.Backend) (dualnode.NodeIndex, error) {
	itf.mu.Lock()
	defer itf.mu.Unlock()

	if _, exists := itf.vertexIndex[v]; exists {
		return dualnode.NoNode, fmt.Errorf("%w: vertex %d", ErrDuplicateVertex, v)
	}

	idx := dualnode.NodeIndex(itf.nodesLength)
	node := dualnode.NewSyndromeNode(idx, v, itf.globalProgress)
	itf.pushSlot(node)
	itf.vertexIndex[v] = idx

	if err := backend.AddSyndromeNode(idx, v); err != nil {
		return dualnode.NoNode, err
	}
	itf.sumGrowSpeed += int64(dualnode.Grow)

	return idx, nil
}

// CreateBlossom implements §4.1's create_blossom.
func (itf *Interface) CreateBlossom(circle []dualnode.NodeIndex, touching [][2]dualnode.NodeIndex, backend dualmodule.Backend) (dualnode.NodeIndex, error) {
	itf.mu.Lock()
	defer itf.mu.Unlock()

	if len(circle) == 0 || len(circle)%2 == 0 {
		return dualnode.NoNode, fmt.Errorf("%w: length %d", ErrBadCircleParity, len(circle))
	}

	members := make([]*dualnode.Node, len(circle))
	for i, idx := range circle {
		m := itf.get(idx)
		if m == nil {
			return dualnode.NoNode, fmt.Errorf("%w: node %d", ErrNotTracked, idx)
		}
		if m.ParentBlossom != dualnode.NoNode {
			return dualnode.NoNode, fmt.Errorf("%w: node %d", ErrHasParent, idx)
		}
		members[i] = m
	}

	for i, m := range members {
		want := dualnode.Grow
		if i%2 == 1 {
			want = dualnode.Shrink
		}
		if m.GrowState != want {
			return dualnode.NoNode, fmt.Errorf("%w: position %d is %v, want %v", ErrBadCircleAlternation, i, m.GrowState, want)
		}
	}

	if len(touching) == 0 {
		for _, m := range members {
			if !m.IsSyndromeVertex() {
				return dualnode.NoNode, fmt.Errorf("%w: node %d", ErrBadTouchingDefault, m.Index)
			}
		}
		touching = make([][2]dualnode.NodeIndex, len(circle))
		for i, idx := range circle {
			touching[i] = [2]dualnode.NodeIndex{idx, idx}
		}
	} else if len(touching) != len(circle) {
		return dualnode.NoNode, fmt.Errorf("%w: touching=%d circle=%d", ErrTouchingLengthMismatch, len(touching), len(circle))
	}

	for _, m := range members {
		if err := itf.setGrowStateLocked(m, dualnode.Stay, backend); err != nil {
			return dualnode.NoNode, err
		}
	}

	blossomIdx := dualnode.NodeIndex(itf.nodesLength)
	for _, m := range members {
		m.ParentBlossom = blossomIdx
	}
	blossom := dualnode.NewBlossomNode(blossomIdx, circle, touching, itf.globalProgress)
	itf.pushSlot(blossom)
	itf.sumGrowSpeed += int64(dualnode.Grow)

	if err := backend.PrepareNodesShrink(circle); err != nil {
		return dualnode.NoNode, err
	}
	if err := backend.AddBlossom(blossomIdx, circle); err != nil {
		return dualnode.NoNode, err
	}

	return blossomIdx, nil
}

// ExpandBlossom implements §4.1's expand_blossom.
func (itf *Interface) ExpandBlossom(b dualnode.NodeIndex, backend dualmodule.Backend) error {
	itf.mu.Lock()
	defer itf.mu.Unlock()

	node := itf.get(b)
	if node == nil || !node.IsBlossom() {
		return fmt.Errorf("%w: node %d is not a tracked blossom", ErrExpandPrecondition, b)
	}
	for _, idx := range node.NodesCircle {
		m := itf.get(idx)
		if m == nil || m.ParentBlossom != b || m.GrowState != dualnode.Stay {
			return fmt.Errorf("%w: member %d of blossom %d", ErrExpandPrecondition, idx, b)
		}
	}

	if err := backend.RemoveBlossom(b); err != nil {
		return err
	}

	switch node.GrowState {
	case dualnode.Grow:
		itf.sumGrowSpeed -= int64(dualnode.Grow)
	case dualnode.Shrink:
		itf.sumGrowSpeed -= int64(dualnode.Shrink)
	}
	itf.nodes[b] = nil

	for _, idx := range node.NodesCircle {
		m := itf.get(idx)
		m.ParentBlossom = dualnode.NoNode
		if err := itf.setGrowStateLocked(m, dualnode.Grow, backend); err != nil {
			return err
		}
	}

	return nil
}

// SetGrowState implements §4.1's set_grow_state.
func (itf *Interface) SetGrowState(n dualnode.NodeIndex, gs dualnode.GrowState, backend dualmodule.Backend) error {
	itf.mu.Lock()
	defer itf.mu.Unlock()

	node := itf.get(n)
	if node == nil {
		return fmt.Errorf("%w: node %d", ErrNotTracked, n)
	}

	return itf.setGrowStateLocked(node, gs, backend)
}

// setGrowStateLocked requires itf.mu already held for writing.
func (itf *Interface) setGrowStateLocked(n *dualnode.Node, gs dualnode.GrowState, backend dualmodule.Backend) error {
	if err := backend.SetGrowState(n.Index, gs); err != nil {
		return err
	}

	delta := int64(gs) - int64(n.GrowState)
	n.RefreshCache(itf.globalProgress)
	n.GrowState = gs
	itf.sumGrowSpeed += delta

	return nil
}

// Grow implements §4.1's grow(Δ, backend).
func (itf *Interface) Grow(delta int64, backend dualmodule.Backend) error {
	itf.mu.Lock()
	defer itf.mu.Unlock()

	if delta <= 0 {
		return fmt.Errorf("%w: delta=%d", ErrNonPositiveGrowth, delta)
	}
	if err := backend.Grow(delta); err != nil {
		return err
	}

	itf.sumDualVariables += delta * itf.sumGrowSpeed
	itf.globalProgress += delta

	return nil
}

// GrowIterative implements §4.1's grow_iterative(Δ, backend): repeatedly
// asks the backend for the maximum update length and grows by the smaller
// of what remains and what the backend allows, failing loudly the moment
// the backend reports conflicts instead of a bound. Δ = 0 is a no-op
// (§8 boundary behavior).
func (itf *Interface) GrowIterative(delta int64, backend dualmodule.Backend) error {
	remaining := delta
	for remaining > 0 {
		group, err := backend.ComputeMaximumUpdateLength()
		if err != nil {
			return err
		}
		w, ok := group.NonZeroGrowWeight()
		if !ok {
			return fmt.Errorf("%w", ErrUnexpectedConflict)
		}

		step := w
		if remaining < step {
			step = remaining
		}
		if err := itf.Grow(step, backend); err != nil {
			return err
		}
		remaining -= step
	}

	return nil
}

// Fuse appends left's and right's nodes into itf, rebasing each node's
// index by itf's current nodes_length and re-anchoring its dual-variable
// cache onto itf's global progress, then accumulates totals (§4.1 "fuse").
// itf must be empty; left and right are left unmodified.
func (itf *Interface) Fuse(left, right *Interface) {
	itf.mu.Lock()
	defer itf.mu.Unlock()
	left.mu.RLock()
	defer left.mu.RUnlock()
	right.mu.RLock()
	defer right.mu.RUnlock()

	itf.absorb(left)
	itf.absorb(right)
}

func (itf *Interface) absorb(other *Interface) {
	base := dualnode.NodeIndex(itf.nodesLength)
	otherProgress := other.globalProgress

	for i := 0; i < other.nodesLength; i++ {
		n := other.nodes[i]
		if n == nil {
			itf.pushSlot(nil)
			continue
		}

		value := n.DualVariable(otherProgress)
		rebased := n.Rebase(base, value, itf.globalProgress)
		itf.pushSlot(rebased)
		if rebased.IsSyndromeVertex() {
			itf.vertexIndex[rebased.Vertex] = rebased.Index
		}
	}

	itf.sumDualVariables += other.sumDualVariables
	itf.sumGrowSpeed += other.sumGrowSpeed
}
