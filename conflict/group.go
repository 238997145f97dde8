package conflict

import (
	"container/heap"

	"github.com/katalvlaran/mwpm/dualnode"
)

// state is which of the two GroupMaxUpdateLength shapes a Group currently
// holds: a single scalar bound, or a set of ranked conflicts.
type state uint8

const (
	stateGrow state = iota
	stateConflicts
)

// Group is GroupMaxUpdateLength (§3, §4.3): either NonZeroGrow(w) with w the
// minimum of every bound added, or Conflicts — a max-heap of resolvable
// conflicts plus a map of pending VertexShrinkStops awaiting rendezvous.
// The zero value is not valid; use NewEmpty.
type Group struct {
	state  state
	weight int64 // valid iff state == stateGrow

	heap    conflictHeap
	pending map[dualnode.VertexIndex]MaxUpdateLength // valid iff state == stateConflicts
}

// NewEmpty returns a group with no additions yet: NonZeroGrow(NoWeight).
func NewEmpty() *Group {
	return &Group{state: stateGrow, weight: NoWeight}
}

// IsConflicts reports whether the group holds one or more conflicts.
func (g *Group) IsConflicts() bool { return g.state == stateConflicts }

// NonZeroGrowWeight returns the group's bound and true iff the group has
// not been promoted to conflicts.
func (g *Group) NonZeroGrowWeight() (int64, bool) {
	if g.state != stateGrow {
		return 0, false
	}

	return g.weight, true
}

// Add folds m into the group per §4.3: a NonZeroGrow addition tightens the
// scalar bound while the group is still in that state and is silently
// ignored once conflicts dominate; any other variant promotes the group
// to Conflicts, with VertexShrinkStop routed through rendezvous merging.
func (g *Group) Add(m MaxUpdateLength) {
	if m.Kind == KindNonZeroGrow {
		if g.state == stateGrow && m.Weight < g.weight {
			g.weight = m.Weight
		}

		return
	}

	g.promote()
	if m.Kind == KindVertexShrinkStop {
		g.addPendingStop(m)

		return
	}

	heap.Push(&g.heap, m)
}

func (g *Group) promote() {
	if g.state == stateConflicts {
		return
	}
	g.state = stateConflicts
	g.weight = 0
	g.pending = make(map[dualnode.VertexIndex]MaxUpdateLength)
}

// addPendingStop performs the shrink-stop rendezvous described in §4.3 and
// tested by §8 invariant 6: the first observation at a vertex is held; a
// second observation whose pair differs in its reporting node merges the
// two into a Conflicting event pushed onto the heap.
func (g *Group) addPendingStop(m MaxUpdateLength) {
	existing, ok := g.pending[m.Vertex]
	if !ok {
		g.pending[m.Vertex] = m

		return
	}

	if m.Pair == nil {
		// Arriving without a pair never upgrades an existing entry.
		return
	}

	if existing.Pair != nil && existing.Pair[0] != m.Pair[0] {
		heap.Push(&g.heap, Conflicting(*existing.Pair, *m.Pair))
		delete(g.pending, m.Vertex)

		return
	}

	// Same reporting node seen again, or the existing entry lacked a pair:
	// the newer, possibly better-informed observation replaces it.
	g.pending[m.Vertex] = m
}

// Extend merges other into g following the same rules Add would apply to
// each of other's elements (§4.3 "extend(other)").
func (g *Group) Extend(other *Group) {
	if other.state == stateGrow {
		g.Add(NonZeroGrow(other.weight))

		return
	}

	g.promote()
	for _, c := range other.heap {
		heap.Push(&g.heap, c)
	}
	for _, p := range other.pending {
		g.addPendingStop(p)
	}
}

// Peek returns the top-priority conflict without removing it: from the
// heap first, falling back to an arbitrary pending shrink-stop.
func (g *Group) Peek() (MaxUpdateLength, bool) {
	if g.state != stateConflicts {
		return MaxUpdateLength{}, false
	}
	if len(g.heap) > 0 {
		return g.heap[0], true
	}
	for _, p := range g.pending {
		return p, true
	}

	return MaxUpdateLength{}, false
}

// Pop removes and returns the top-priority conflict, preferring the heap
// over an arbitrary pending shrink-stop (§4.3 "pop()").
func (g *Group) Pop() (MaxUpdateLength, bool) {
	if g.state != stateConflicts {
		return MaxUpdateLength{}, false
	}
	if len(g.heap) > 0 {
		return heap.Pop(&g.heap).(MaxUpdateLength), true
	}
	for v, p := range g.pending {
		delete(g.pending, v)

		return p, true
	}

	return MaxUpdateLength{}, false
}
