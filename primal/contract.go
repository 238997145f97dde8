// Package primal defines the serial primal module contract (§4.6): the
// external collaborator driven by DualInterface that interprets conflicts
// into blossom creation/expansion, match flipping, and tree restructuring.
// A concrete implementation lives in primal/serial.
package primal

import (
	"github.com/katalvlaran/mwpm/dualinterface"
	"github.com/katalvlaran/mwpm/dualmodule"
	"github.com/katalvlaran/mwpm/dualnode"
)

// Engine is the serial primal module's contract (§4.6, §4.5). A
// parallel.unit owns exactly one Engine and drives it against its own
// dualinterface.Interface and dualmodule.Backend pair.
type Engine interface {
	// Clear discards all primal-side bookkeeping (companion to
	// DualInterface.Clear / Backend.Clear).
	Clear()

	// SolveStepCallback runs the loop in §4.6 to completion: repeatedly ask
	// backend for a GroupMaxUpdateLength; grow by its bound, or pop and
	// resolve its top conflict; stop once no further growth or conflict
	// remains.
	SolveStepCallback(itf *dualinterface.Interface, backend dualmodule.Backend) error

	// LoadSyndrome creates one new dual node for v on itf and folds it into
	// the engine's own bookkeeping (§4.5 step 4, "load_syndrome").
	LoadSyndrome(itf *dualinterface.Interface, backend dualmodule.Backend, v dualnode.VertexIndex) error

	// Fuse merges left's and right's primal-side bookkeeping into the
	// receiver, rebasing node identities the same way DualInterface.Fuse
	// rebases the arena (§4.5 "fuse(u)" calling "serial_primal
	// fuse(left.serial, right.serial)"). leftNodeCount is the number of
	// nodes left's owning interface held before the fuse, i.e. the base
	// right's identities must be shifted by.
	Fuse(left, right Engine, leftNodeCount int) error

	// Matching returns the engine's current pairing of dual-node
	// identities. A node absent from the map is currently unmatched.
	Matching() map[dualnode.NodeIndex]dualnode.NodeIndex

	// PossibleBreak returns primal nodes temporarily matched to a virtual
	// vertex pending fusion resolution (§4.5 "possible_break").
	PossibleBreak() map[dualnode.NodeIndex]dualnode.VertexIndex

	// BreakMatchWithMirror implements §4.5's break_matching_with_mirror:
	// for each entry in PossibleBreak whose virtual vertex isOwned reports
	// true for (no longer mirrored — owned outright by this unit), clears
	// the temporary match and sets the origin dual node back to Grow.
	// Remaining entries are left in PossibleBreak for a later parent.
	BreakMatchWithMirror(itf *dualinterface.Interface, backend dualmodule.Backend, isOwned func(dualnode.VertexIndex) bool) error
}
