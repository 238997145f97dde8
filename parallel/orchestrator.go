package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/katalvlaran/mwpm/dualinterface"
	"github.com/katalvlaran/mwpm/dualmodule"
	"github.com/katalvlaran/mwpm/dualnode"
	"github.com/katalvlaran/mwpm/primal"
	"github.com/katalvlaran/mwpm/viz"
)

// Additional sentinel errors for the orchestrator, alongside config.go's.
var (
	ErrUnitNotActive     = errors.New("parallel: leaf unit is not active")
	ErrUnitAlreadyActive = errors.New("parallel: internal unit is already active")
)

// PrimalModuleParallelConfig is §6's "PrimalModuleParallelConfig": the
// thread-pool sizing and debug-sequential toggle governing fork/join.
type PrimalModuleParallelConfig struct {
	ThreadPoolSize  int
	DebugSequential bool
}

// BackendFactory builds a fresh, empty dual-module backend tracking exactly
// the vertices in r. The orchestrator calls it once per unit — leaves get
// their own Range, internal units get their full Span — since an internal
// unit's backend must already exist, empty, before Fuse absorbs its
// children's state into it (dualmodule.Fusable's precondition).
type BackendFactory func(r VertexRange) (dualmodule.PartitionedBackend, error)

// EngineFactory builds a fresh primal engine for one unit.
type EngineFactory func() primal.Engine

// SnapshotHook is the optional visualization callback invoked between a
// unit's fuse and its interface-range syndrome loading (§4.5 step 4); it
// must not mutate state.
type SnapshotHook func(unitIndex int, itf *dualinterface.Interface)

// Tree is the partition tree (§4.5): every unit's backend/engine pair plus
// the worker pool driving fork/join fusion.
type Tree struct {
	units []*unit
	infos []PartitionInfo
	cfg   PrimalModuleParallelConfig
	sem   *semaphore.Weighted
	hook  SnapshotHook

	solveStart time.Time
}

// NewTree derives the partition metadata from cfg, builds one unit per
// entry via backendFactory/engineFactory, and sizes the worker pool
// (§5 "data-parallel over a fixed-size worker pool").
func NewTree(cfg PartitionConfig, backendFactory BackendFactory, engineFactory EngineFactory, parCfg PrimalModuleParallelConfig) (*Tree, error) {
	infos, err := DerivePartitionInfo(cfg)
	if err != nil {
		return nil, err
	}

	units := make([]*unit, len(infos))
	for i, info := range infos {
		r := info.Range
		if !info.Leaf {
			r = info.Span
		}
		backend, err := backendFactory(r)
		if err != nil {
			return nil, fmt.Errorf("parallel: building backend for unit %d: %w", i, err)
		}
		units[i] = newUnit(info, backend, engineFactory())
	}

	poolSize := parCfg.ThreadPoolSize
	if poolSize <= 0 {
		poolSize = runtime.GOMAXPROCS(0)
	}

	return &Tree{units: units, infos: infos, cfg: parCfg, sem: semaphore.NewWeighted(int64(poolSize))}, nil
}

// SetSnapshotHook installs the optional visualization callback.
func (t *Tree) SetSnapshotHook(h SnapshotHook) { t.hook = h }

// RootIndex returns the root unit's index.
func (t *Tree) RootIndex() int { return RootIndex(t.infos) }

// Solve runs §4.5's iterative_solve_step_callback from the root down
// (the entry point Decoder.Solve calls). ctx is observed between unit solves, never
// mid-unit (§5 "Cancellation/timeout").
func (t *Tree) Solve(ctx context.Context, pattern dualmodule.SyndromePattern) error {
	t.solveStart = time.Now()

	return t.solveUnit(ctx, t.RootIndex(), pattern)
}

func filterVertices(vs []dualnode.VertexIndex, r VertexRange) []dualnode.VertexIndex {
	var out []dualnode.VertexIndex
	for _, v := range vs {
		if r.Contains(v) {
			out = append(out, v)
		}
	}

	return out
}

// solveUnit implements §4.5's iterative_solve_step_callback on unit idx.
func (t *Tree) solveUnit(ctx context.Context, idx int, pattern dualmodule.SyndromePattern) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u := t.units[idx]
	u.mu.Lock()
	defer u.mu.Unlock()
	u.events.start = time.Now()

	if u.info.Leaf {
		if !u.isActive {
			return fmt.Errorf("%w: unit %d", ErrUnitNotActive, idx)
		}
		if err := t.solveLeaf(u, pattern); err != nil {
			return err
		}
	} else {
		if u.isActive {
			return fmt.Errorf("%w: unit %d", ErrUnitAlreadyActive, idx)
		}
		if err := t.solveInternal(ctx, idx, u, pattern); err != nil {
			return err
		}
	}

	u.isActive = true
	u.events.end = time.Now()

	return nil
}

func (t *Tree) solveLeaf(u *unit, pattern dualmodule.SyndromePattern) error {
	for _, v := range filterVertices(pattern.SyndromeVertices, u.info.Range) {
		if err := u.engine.LoadSyndrome(u.itf, u.backend, v); err != nil {
			return err
		}
	}
	if len(pattern.Erasures) > 0 {
		if err := u.backend.LoadErasures(pattern.Erasures); err != nil {
			return err
		}
	}

	return u.engine.SolveStepCallback(u.itf, u.backend)
}

func (t *Tree) solveInternal(ctx context.Context, idx int, u *unit, pattern dualmodule.SyndromePattern) error {
	leftIdx, rightIdx := u.info.Children[0], u.info.Children[1]

	if t.cfg.DebugSequential {
		if err := t.solveUnit(ctx, leftIdx, pattern); err != nil {
			return err
		}
		if err := t.solveUnit(ctx, rightIdx, pattern); err != nil {
			return err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := t.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer t.sem.Release(1)

			return t.solveUnit(gctx, leftIdx, pattern)
		})
		g.Go(func() error {
			if err := t.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer t.sem.Release(1)

			return t.solveUnit(gctx, rightIdx, pattern)
		})
		if err := g.Wait(); err != nil {
			return err
		}
	}

	u.events.childrenReturn = time.Now()
	u.events.hasChildren = true

	left, right := t.units[leftIdx], t.units[rightIdx]
	left.mu.Lock()
	right.mu.Lock()
	defer left.mu.Unlock()
	defer right.mu.Unlock()

	left.isActive = false
	right.isActive = false

	leftCount := left.itf.NodesLength()
	right.backend.BiasDualNodeIndex(dualnode.NodeIndex(leftCount))
	u.itf.Fuse(left.itf, right.itf)

	fusable, ok := u.backend.(dualmodule.Fusable)
	if !ok {
		return fmt.Errorf("%w: unit %d backend does not implement Fusable", dualmodule.ErrUnsupportedOperation, idx)
	}
	if err := fusable.Fuse(left.backend, right.backend); err != nil {
		return err
	}

	if err := u.engine.Fuse(left.engine, right.engine, leftCount); err != nil {
		return err
	}

	span := u.info.Span
	isOwned := func(v dualnode.VertexIndex) bool { return span.Contains(v) }
	if err := u.engine.BreakMatchWithMirror(u.itf, u.backend, isOwned); err != nil {
		return err
	}

	if t.hook != nil {
		t.hook(idx, u.itf)
	}

	for _, v := range filterVertices(pattern.SyndromeVertices, u.info.InterfaceRange) {
		if err := u.engine.LoadSyndrome(u.itf, u.backend, v); err != nil {
			return err
		}
	}

	return u.engine.SolveStepCallback(u.itf, u.backend)
}

// Matching returns the root unit's current NodeIndex-level pairing
// (primal.Engine's own contract output, §4.6).
func (t *Tree) Matching() map[dualnode.NodeIndex]dualnode.NodeIndex {
	return t.units[t.RootIndex()].engine.Matching()
}

// RootInterface returns the root unit's dual interface, e.g. for
// SanityCheck or visualization snapshots after Solve completes.
func (t *Tree) RootInterface() *dualinterface.Interface {
	return t.units[t.RootIndex()].itf
}

// RootBackend returns the root unit's dual backend.
func (t *Tree) RootBackend() dualmodule.PartitionedBackend {
	return t.units[t.RootIndex()].backend
}

// Profile returns the partition tree's profiler report, one entry per unit
// indexed by unit index, implementing SPEC_FULL.md §10's "expose profiling
// as a first-class output".
func (t *Tree) Profile() viz.ProfilerReport {
	vec := make([]*viz.EventTime, len(t.units))
	for i, u := range t.units {
		u.mu.RLock()
		e := &viz.EventTime{
			Start: u.events.start.Sub(t.solveStart).Seconds(),
			End:   u.events.end.Sub(t.solveStart).Seconds(),
		}
		if u.events.hasChildren {
			v := u.events.childrenReturn.Sub(t.solveStart).Seconds()
			e.ChildrenReturn = &v
		}
		u.mu.RUnlock()
		vec[i] = e
	}

	return viz.ProfilerReport{EventTimeVec: vec}
}
