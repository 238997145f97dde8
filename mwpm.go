// Package mwpm is the parallel minimum-weight perfect-matching decoder core
// (§1): it wires dualmodule.Backend and primal.Engine construction to
// parallel.Tree, exposing a single SyndromePattern-in, matching-out entry
// point (Decoder.Solve).
package mwpm

import (
	"context"

	"github.com/katalvlaran/mwpm/dualinterface"
	"github.com/katalvlaran/mwpm/dualmodule"
	"github.com/katalvlaran/mwpm/dualnode"
	"github.com/katalvlaran/mwpm/parallel"
	"github.com/katalvlaran/mwpm/primal"
	primalserial "github.com/katalvlaran/mwpm/primal/serial"
	"github.com/katalvlaran/mwpm/viz"
)

// Decoder runs the full parallel solve over one decoding graph. Each Solve
// call derives a fresh parallel.Tree from the Decoder's configuration
// (§4.5 Non-goals: "undoing a completed fusion" means a tree is single-use).
type Decoder struct {
	config         parallel.PartitionConfig
	backendFactory parallel.BackendFactory
	parallelConfig parallel.PrimalModuleParallelConfig
	snapshotHook   func(unitIndex int, snap viz.Snapshot)

	tree *parallel.Tree
}

// New builds a Decoder over the given partition layout, using backendFactory
// to construct each unit's dual backend (§4.4a "the concrete dual backend
// is an external collaborator with only its contract specified").
func New(config parallel.PartitionConfig, backendFactory parallel.BackendFactory, parallelConfig parallel.PrimalModuleParallelConfig) *Decoder {
	return &Decoder{config: config, backendFactory: backendFactory, parallelConfig: parallelConfig}
}

// SetSnapshotHook installs a visualization callback invoked at every unit's
// fusion point (§4.5 step 4: "between fuse and syndrome loading"); it must
// not mutate state.
func (d *Decoder) SetSnapshotHook(h func(unitIndex int, snap viz.Snapshot)) {
	d.snapshotHook = h
}

// Solve builds a fresh parallel.Tree from the Decoder's configuration and
// runs the partition tree's fuse-and-resume orchestration to completion
// (§4.5, §4.6).
func (d *Decoder) Solve(ctx context.Context, pattern dualmodule.SyndromePattern) error {
	engineFactory := func() primal.Engine { return primalserial.New() }

	tree, err := parallel.NewTree(d.config, d.backendFactory, engineFactory, d.parallelConfig)
	if err != nil {
		return err
	}
	if d.snapshotHook != nil {
		hook := d.snapshotHook
		tree.SetSnapshotHook(func(unitIndex int, itf *dualinterface.Interface) {
			hook(unitIndex, viz.Capture(itf))
		})
	}

	d.tree = tree

	return tree.Solve(ctx, pattern)
}

// Matching returns the NodeIndex-level matching produced by the most recent
// Solve call (§4.6 "Matching()").
func (d *Decoder) Matching() map[dualnode.NodeIndex]dualnode.NodeIndex {
	if d.tree == nil {
		return nil
	}

	return d.tree.Matching()
}

// VertexMatching resolves the root matching down to one representative
// vertex per matched dual-node identity (§6's matching output, simplified:
// a matched blossom that was never re-expanded contributes its single
// GetRepresentativeVertex rather than every vertex beneath it — recovering
// the full internal pairing of a contracted blossom is not attempted by
// this reference decoder).
func (d *Decoder) VertexMatching() map[dualnode.VertexIndex]dualnode.VertexIndex {
	if d.tree == nil {
		return nil
	}

	itf := d.tree.RootInterface()
	out := make(map[dualnode.VertexIndex]dualnode.VertexIndex)
	for a, b := range d.tree.Matching() {
		va, okA := itf.GetRepresentativeVertex(a)
		vb, okB := itf.GetRepresentativeVertex(b)
		if !okA || !okB {
			continue
		}
		out[va] = vb
	}

	return out
}

// Profile returns the most recent Solve's profiler report (§6, SPEC_FULL.md
// §10).
func (d *Decoder) Profile() viz.ProfilerReport {
	if d.tree == nil {
		return viz.ProfilerReport{}
	}

	return d.tree.Profile()
}

// RootInterface returns the dual interface of the most recent Solve's root
// unit, e.g. for a caller-driven SanityCheck.
func (d *Decoder) RootInterface() *dualinterface.Interface {
	if d.tree == nil {
		return nil
	}

	return d.tree.RootInterface()
}
