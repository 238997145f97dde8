// Package dualmodule defines the dual-module backend contract (§4.4): the
// abstract operations DualInterface invokes on a concrete dual backend, plus
// the shared input types (SyndromePattern, EdgeModifier) those operations
// exchange. A concrete implementation lives in dualmodule/serial.
package dualmodule

import (
	"errors"

	"github.com/katalvlaran/mwpm/conflict"
	"github.com/katalvlaran/mwpm/dualnode"
)

// ErrUnsupportedOperation is returned by a backend that does not implement
// an optional capability (§4.4 "any operation a concrete backend does not
// support must fail loudly... a 'use another dual module' message"; §7
// "Capability gaps").
var ErrUnsupportedOperation = errors.New("dualmodule: operation not supported by this dual module; use another dual module")

// EdgeIndex identifies an edge of the decoding graph a backend was
// initialized with.
type EdgeIndex int

// SyndromePattern is the decode input (§6): an ordered set of syndrome
// vertices plus the edges erasure-flattened to zero weight.
type SyndromePattern struct {
	SyndromeVertices []dualnode.VertexIndex
	Erasures         []EdgeIndex
}

// EdgeModifier overrides a single edge's weight, the general mechanism
// load_erasures is defined in terms of (§4.4).
type EdgeModifier struct {
	Edge   EdgeIndex
	Weight int64
}

// Backend is the dual-module contract every concrete implementation must
// satisfy (§4.4). DualInterface holds no backend field of its own: every
// interface operation that needs one takes it as an explicit parameter, so
// a backend can be swapped or shared across calls without the interface
// caring which concrete type it is.
type Backend interface {
	// Clear discards all backend-tracked state (companion to
	// DualInterface.Clear).
	Clear()

	// AddDualNode registers a node the interface just created, regardless
	// of its concrete kind. DualInterface itself does not call it; its
	// create operations call the kind-specific Add* methods below.
	AddDualNode(n dualnode.NodeIndex) error

	// AddSyndromeNode registers a newly created syndrome-vertex node.
	AddSyndromeNode(n dualnode.NodeIndex, v dualnode.VertexIndex) error

	// AddBlossom registers a newly created blossom over circle.
	AddBlossom(b dualnode.NodeIndex, circle []dualnode.NodeIndex) error

	// PrepareNodesShrink is invoked on a blossom's circle immediately
	// before AddBlossom, after every member has already been set to Stay
	// (each through SetGrowState) and attached to the new blossom.
	PrepareNodesShrink(circle []dualnode.NodeIndex) error

	// RemoveBlossom retracts a blossom from tracking (expand_blossom).
	RemoveBlossom(b dualnode.NodeIndex) error

	// SetGrowState receives a node's state transition before the interface
	// mutates the node, so the backend may still inspect the prior state.
	SetGrowState(n dualnode.NodeIndex, gs dualnode.GrowState) error

	// ComputeMaximumUpdateLength is the core oracle: returns either the
	// largest common growth length, or a non-empty set of conflicts. Must
	// never return NonZeroGrow(NoWeight) alongside conflicts.
	ComputeMaximumUpdateLength() (*conflict.Group, error)

	// Grow advances every tracked node according to its current grow state
	// by delta, which must be positive.
	Grow(delta int64) error

	// LoadErasures flattens the named edges' weight to zero. The default
	// semantics (§4.4) are DefaultLoadErasures, which every backend is
	// expected to delegate to unless it has a faster specialized path.
	LoadErasures(edges []EdgeIndex) error

	// LoadEdgeModifier applies arbitrary per-edge weight overrides.
	LoadEdgeModifier(mods []EdgeModifier) error
}

// DefaultLoadErasures implements §4.4's "load_erasures delegates to
// load_edge_modifier([(e, 0) for e in es])": erasure sets edge weight to 0
// (ln((1-p)/p) at p=0.5).
func DefaultLoadErasures(b Backend, edges []EdgeIndex) error {
	mods := make([]EdgeModifier, len(edges))
	for i, e := range edges {
		mods[i] = EdgeModifier{Edge: e, Weight: 0}
	}

	return b.LoadEdgeModifier(mods)
}

// SyncRequest proposes propagation of a dual-node state change to a
// mirrored vertex in another partition (§4.4, GLOSSARY "Sync request").
type SyncRequest struct {
	Vertex   dualnode.VertexIndex
	Proposed dualnode.GrowState
}

// PartitionedBackend extends Backend with the operations only a
// partition-aware implementation must support (§4.4 "Partitioned-only").
// parallel.BackendFactory returns this interface, so every unit of a
// partition tree is built on a PartitionedBackend.
type PartitionedBackend interface {
	Backend

	// PrepareAll returns the queue of SyncRequests triggered by pending
	// state transitions at mirrored vertices since the last call.
	PrepareAll() ([]SyncRequest, error)

	// ExecuteSyncEvent applies a single sync request from another
	// partition's prepare_all call.
	ExecuteSyncEvent(req SyncRequest) error

	// ContainsDualNode reports whether n is tracked by this backend.
	ContainsDualNode(n dualnode.NodeIndex) bool

	// ContainsVertex reports whether v belongs to this backend's vertex
	// range.
	ContainsVertex(v dualnode.VertexIndex) bool

	// BiasDualNodeIndex shifts every NodeIndex this backend tracks
	// internally by delta, mirroring the index-rebase DualInterface.Fuse
	// performs on its own arena, so the two stay addressed consistently
	// after a fuse.
	BiasDualNodeIndex(delta dualnode.NodeIndex)
}

// Fusable is an optional capability a PartitionedBackend may implement to
// fuse its own internal bookkeeping alongside DualInterface.Fuse (§4.5
// "call backend fuse(u.interface, (left.interface, right.interface))").
// Concrete backend state (union-find membership, per-vertex root maps, ...)
// is backend-specific, so fusing it cannot be expressed generically at the
// contract level; a backend that holds no such state may simply not
// implement Fusable, and callers fail loudly via ErrUnsupportedOperation.
type Fusable interface {
	PartitionedBackend

	// Fuse absorbs left and right's tracked state into the receiver, which
	// must already have had DualInterface.Fuse applied so its NodeIndex
	// space matches.
	Fuse(left, right PartitionedBackend) error
}
