// Package conflict implements MaxUpdateLength and GroupMaxUpdateLength
// (§3, §4.3): the tagged value a dual backend reports to explain why
// growth cannot continue, and the per-call aggregation of those reports
// into either a common growth bound or a ranked set of conflicts.
package conflict

import (
	"fmt"
	"math"

	"github.com/katalvlaran/mwpm/dualnode"
)

// Kind tags a MaxUpdateLength variant. Priority order (highest first):
// Conflicting > TouchingVirtual > BlossomNeedExpand > VertexShrinkStop.
// NonZeroGrow is never ranked — a group holding it carries no conflicts.
type Kind uint8

const (
	KindNonZeroGrow Kind = iota
	KindConflicting
	KindTouchingVirtual
	KindBlossomNeedExpand
	KindVertexShrinkStop
)

func (k Kind) String() string {
	switch k {
	case KindNonZeroGrow:
		return "non_zero_grow"
	case KindConflicting:
		return "conflicting"
	case KindTouchingVirtual:
		return "touching_virtual"
	case KindBlossomNeedExpand:
		return "blossom_need_expand"
	case KindVertexShrinkStop:
		return "vertex_shrink_stop"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) rank() int {
	switch k {
	case KindConflicting:
		return 4
	case KindTouchingVirtual:
		return 3
	case KindBlossomNeedExpand:
		return 2
	case KindVertexShrinkStop:
		return 1
	default:
		return 0
	}
}

// NoWeight is the "empty" sentinel for a NonZeroGrow weight (spec's MAX):
// no addition has yet bounded growth.
const NoWeight int64 = math.MaxInt64

// ShrinkStopPair is the (a, a') identity pair a VertexShrinkStop optionally
// carries, letting two one-sided observations at the same vertex merge into
// a Conflicting (§3, §8 invariant 6). Index 0 is the reporting node, index 1
// its touching descendant.
type ShrinkStopPair [2]dualnode.NodeIndex

// MaxUpdateLength is a tagged union over the five variants in §3. Only the
// fields documented for m.Kind are meaningful; constructors below are the
// supported way to build one.
type MaxUpdateLength struct {
	Kind   Kind
	Weight int64 // KindNonZeroGrow

	// KindConflicting: two dual nodes P1[0],P2[0] touch at descendants
	// P1[1],P2[1]. KindTouchingVirtual reuses P1 for (a,a') and Virtual/IsMirror
	// for (v,is_mirror).
	P1, P2   ShrinkStopPair
	Virtual  dualnode.VertexIndex
	IsMirror bool

	Blossom dualnode.NodeIndex // KindBlossomNeedExpand

	Node   dualnode.NodeIndex   // KindVertexShrinkStop: "a"
	Vertex dualnode.VertexIndex // KindVertexShrinkStop: rendezvous key
	Pair   *ShrinkStopPair      // KindVertexShrinkStop: optional (a,a')
}

// NonZeroGrow reports that every tracked constraint still allows w further
// units of growth.
func NonZeroGrow(w int64) MaxUpdateLength {
	return MaxUpdateLength{Kind: KindNonZeroGrow, Weight: w}
}

// Conflicting reports that (a,aDescendant) and (b,bDescendant) have
// collided: their combined growth would drive the connecting edge's slack
// negative.
func Conflicting(a ShrinkStopPair, b ShrinkStopPair) MaxUpdateLength {
	return MaxUpdateLength{Kind: KindConflicting, P1: a, P2: b}
}

// TouchingVirtual reports that node a, through descendant aDescendant,
// touches virtual (boundary) vertex v.
func TouchingVirtual(a ShrinkStopPair, v dualnode.VertexIndex, isMirror bool) MaxUpdateLength {
	return MaxUpdateLength{Kind: KindTouchingVirtual, P1: a, Virtual: v, IsMirror: isMirror}
}

// BlossomNeedExpand reports that shrinking blossom b has hit a zero dual
// variable and must be expanded before growth can resume.
func BlossomNeedExpand(b dualnode.NodeIndex) MaxUpdateLength {
	return MaxUpdateLength{Kind: KindBlossomNeedExpand, Blossom: b}
}

// VertexShrinkStop reports that shrinking syndrome-owner a reached a zero
// dual variable at vertex (the rendezvous key for mirrored partitions).
// pair may be nil when the reporting backend cannot supply enough
// information to participate in rendezvous merging.
func VertexShrinkStop(a dualnode.NodeIndex, vertex dualnode.VertexIndex, pair *ShrinkStopPair) MaxUpdateLength {
	return MaxUpdateLength{Kind: KindVertexShrinkStop, Node: a, Vertex: vertex, Pair: pair}
}

// identityKey returns the dual-node identity used to break ties between two
// MaxUpdateLength values of the same Kind (§4.2 "ordering on dual-node
// identities is by index").
func identityKey(m MaxUpdateLength) dualnode.NodeIndex {
	switch m.Kind {
	case KindConflicting:
		a, b := m.P1[0], m.P2[0]
		if a < b {
			return a
		}
		return b
	case KindTouchingVirtual:
		return m.P1[0]
	case KindBlossomNeedExpand:
		return m.Blossom
	case KindVertexShrinkStop:
		return m.Node
	default:
		return dualnode.NoNode
	}
}

// less reports whether m1 should be popped before m2: higher kind rank
// pops first; within a kind, Conflicting/TouchingVirtual reverse identity
// order (smaller ids first) while BlossomNeedExpand/VertexShrinkStop use
// the non-reversed direction (larger ids first) — §9 Open Question 1,
// preserved as-is rather than "corrected", since §8 invariant 5 only
// requires the ordering be internally consistent, not match any external
// reference bit-for-bit.
func less(m1, m2 MaxUpdateLength) bool {
	if m1.Kind.rank() != m2.Kind.rank() {
		return m1.Kind.rank() > m2.Kind.rank()
	}
	k1, k2 := identityKey(m1), identityKey(m2)
	switch m1.Kind {
	case KindConflicting, KindTouchingVirtual:
		return k1 < k2
	default:
		return k1 > k2
	}
}
