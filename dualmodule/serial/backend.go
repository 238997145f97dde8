// Package serial provides the reference dual-module backend SPEC_FULL.md
// §4.4a calls for: a graph-backed implementation of dualmodule.Backend (and
// dualmodule.PartitionedBackend) built on core.Graph, the same weighted
// decoding-graph substrate the rest of the lvlath family uses. spec.md §1
// treats the concrete dual backend as an external collaborator with only
// its contract specified; this package is the buildable instance the rest
// of the module tests against.
package serial

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/katalvlaran/mwpm/conflict"
	"github.com/katalvlaran/mwpm/core"
	"github.com/katalvlaran/mwpm/dualmodule"
	"github.com/katalvlaran/mwpm/dualnode"
)

// EdgeSpec describes one edge of the decoding graph at backend
// construction time.
type EdgeSpec struct {
	From, To dualnode.VertexIndex
	Weight   int64
}

// Initializer supplies the decoding graph a Backend grows dual variables
// over (§4.4 "new(initializer)").
type Initializer struct {
	VertexCount     int
	Edges           []EdgeSpec
	VirtualVertices map[dualnode.VertexIndex]bool
}

// vid is the core.Graph vertex-ID encoding for a VertexIndex.
func vid(v dualnode.VertexIndex) string { return fmt.Sprintf("v%d", int(v)) }

// fromVid inverts vid, recovering the VertexIndex a core.Graph vertex or
// edge endpoint ID encodes.
func fromVid(id string) (dualnode.VertexIndex, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "v"))
	if err != nil {
		return 0, fmt.Errorf("dualmodule/serial: malformed vertex id %q: %w", id, err)
	}

	return dualnode.VertexIndex(n), nil
}

// Backend is the reference serial dual module. It tracks, independently of
// dualinterface's own lazy cache, a per-node dual variable and grow state,
// and answers ComputeMaximumUpdateLength by walking g's adjacency via
// g.Neighbors(u) from every vertex with a known root — the same traversal
// dijkstra.Dijkstra uses for its relaxation loop (§4.4a). Edge weights live
// in g itself; edgeID only remembers each EdgeIndex's current g edge ID so
// LoadEdgeModifier can find and replace it.
type Backend struct {
	mu sync.RWMutex

	g       *core.Graph
	virtual map[dualnode.VertexIndex]bool
	edgeID  []string // indexed by EdgeIndex, as given to the initializer

	growState    map[dualnode.NodeIndex]dualnode.GrowState
	dualVariable map[dualnode.NodeIndex]int64
	circleOf     map[dualnode.NodeIndex][]dualnode.NodeIndex // blossom -> members
	vertexOf     map[dualnode.NodeIndex]dualnode.VertexIndex // syndrome node -> vertex

	// rootOf[v] is the current outermost tracked node owning vertex v;
	// nodeForVertex[v] is the original leaf syndrome node for v, immutable
	// once set. (rootOf[v], nodeForVertex[v]) is exactly the (a, a') pair
	// §3 describes for a touch through vertex v.
	rootOf        map[dualnode.VertexIndex]dualnode.NodeIndex
	nodeForVertex map[dualnode.VertexIndex]dualnode.NodeIndex
}

var (
	_ dualmodule.Backend           = (*Backend)(nil)
	_ dualmodule.PartitionedBackend = (*Backend)(nil)
)

// buildGraph constructs the full, unpartitioned decoding graph init
// describes, returning it alongside edgeID, the EdgeIndex -> g edge ID
// table every Backend keeps to address g.AddEdge/RemoveEdge by the
// original edge ordering.
func buildGraph(init Initializer) (*core.Graph, []string, error) {
	g := core.NewGraph(core.WithWeighted(), core.WithLoops())
	for v := 0; v < init.VertexCount; v++ {
		if err := g.AddVertex(vid(dualnode.VertexIndex(v))); err != nil {
			return nil, nil, err
		}
	}
	edgeID := make([]string, len(init.Edges))
	for i, e := range init.Edges {
		id, err := g.AddEdge(vid(e.From), vid(e.To), e.Weight)
		if err != nil {
			return nil, nil, err
		}
		edgeID[i] = id
	}

	return g, edgeID, nil
}

func newBackend(g *core.Graph, edgeID []string, virtualSrc map[dualnode.VertexIndex]bool) *Backend {
	virtual := make(map[dualnode.VertexIndex]bool, len(virtualSrc))
	for v, isVirtual := range virtualSrc {
		if isVirtual {
			virtual[v] = true
		}
	}

	return &Backend{
		g:             g,
		virtual:       virtual,
		edgeID:        edgeID,
		growState:     make(map[dualnode.NodeIndex]dualnode.GrowState),
		dualVariable:  make(map[dualnode.NodeIndex]int64),
		circleOf:      make(map[dualnode.NodeIndex][]dualnode.NodeIndex),
		vertexOf:      make(map[dualnode.NodeIndex]dualnode.VertexIndex),
		rootOf:        make(map[dualnode.VertexIndex]dualnode.NodeIndex),
		nodeForVertex: make(map[dualnode.VertexIndex]dualnode.NodeIndex),
	}
}

// New builds a Backend over the given decoding graph (§4.4 "new").
func New(init Initializer) (*Backend, error) {
	g, edgeID, err := buildGraph(init)
	if err != nil {
		return nil, err
	}

	return newBackend(g, edgeID, init.VirtualVertices), nil
}

// NewPartitioned builds a Backend restricted to a vertex subset, the
// partitioned counterpart of New (§4.4 "new_partitioned"). It builds the
// full graph once, then hands it to core.InducedSubgraph to take the
// vertex-restricted view (§9's view.go, the same non-mutating subgraph
// operation the teacher offers for exactly this purpose) rather than
// re-filtering the edge list by hand; edgeID entries whose edge fell
// outside the induced subgraph become "", which LoadEdgeModifier treats as
// "not owned by this partition" and silently skips (ComputeMaximumUpdateLength
// walks the subgraph and never meets them), so EdgeIndex positions stay addressed consistently
// with the unpartitioned initializer the caller's erasures reference.
func NewPartitioned(init Initializer, vertices map[dualnode.VertexIndex]bool) (*Backend, error) {
	g, edgeID, err := buildGraph(init)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(vertices))
	for v, isIn := range vertices {
		if isIn {
			keep[vid(v)] = true
		}
	}
	sub := core.InducedSubgraph(g, keep)

	subEdgeID := make([]string, len(edgeID))
	for i, id := range edgeID {
		if _, err := sub.GetEdge(id); err == nil {
			subEdgeID[i] = id
		}
	}

	return newBackend(sub, subEdgeID, init.VirtualVertices), nil
}

func (b *Backend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.growState = make(map[dualnode.NodeIndex]dualnode.GrowState)
	b.dualVariable = make(map[dualnode.NodeIndex]int64)
	b.circleOf = make(map[dualnode.NodeIndex][]dualnode.NodeIndex)
	b.vertexOf = make(map[dualnode.NodeIndex]dualnode.VertexIndex)
	b.rootOf = make(map[dualnode.VertexIndex]dualnode.NodeIndex)
	b.nodeForVertex = make(map[dualnode.VertexIndex]dualnode.NodeIndex)
}

// AddDualNode registers generic bookkeeping common to every node kind.
// dualinterface's own create_syndrome_node/create_blossom call the more
// specific Add* methods below directly (§4.1); AddDualNode exists for
// backends restored from a partitioned initializer that need a single
// uniform registration hook.
func (b *Backend) AddDualNode(n dualnode.NodeIndex) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.growState[n]; !ok {
		b.growState[n] = dualnode.Grow
	}

	return nil
}

func (b *Backend) AddSyndromeNode(n dualnode.NodeIndex, v dualnode.VertexIndex) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.growState[n] = dualnode.Grow
	b.dualVariable[n] = 0
	b.vertexOf[n] = v
	b.rootOf[v] = n
	b.nodeForVertex[v] = n

	return nil
}

func (b *Backend) PrepareNodesShrink([]dualnode.NodeIndex) error { return nil }

func (b *Backend) AddBlossom(blossom dualnode.NodeIndex, circle []dualnode.NodeIndex) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.growState[blossom] = dualnode.Grow
	b.dualVariable[blossom] = 0
	b.circleOf[blossom] = append([]dualnode.NodeIndex(nil), circle...)

	for _, v := range b.verticesBeneathLocked(blossom) {
		b.rootOf[v] = blossom
	}

	return nil
}

func (b *Backend) RemoveBlossom(blossom dualnode.NodeIndex) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	members := b.circleOf[blossom]
	for _, m := range members {
		for _, v := range b.verticesBeneathLocked(m) {
			b.rootOf[v] = m
		}
	}

	delete(b.circleOf, blossom)
	delete(b.growState, blossom)
	delete(b.dualVariable, blossom)

	return nil
}

func (b *Backend) SetGrowState(n dualnode.NodeIndex, gs dualnode.GrowState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.growState[n] = gs

	return nil
}

func (b *Backend) Grow(delta int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for n, gs := range b.growState {
		switch gs {
		case dualnode.Grow:
			b.dualVariable[n] += delta
		case dualnode.Shrink:
			b.dualVariable[n] -= delta
		}
	}

	return nil
}

func (b *Backend) LoadErasures(edges []dualmodule.EdgeIndex) error {
	return dualmodule.DefaultLoadErasures(b, edges)
}

// LoadEdgeModifier overwrites an edge's weight in g directly: core.Graph
// exposes no in-place weight setter, so the edge is removed and re-added
// with the new weight, and edgeID is updated to the freshly assigned ID. A
// "" entry (the edge fell outside this partition's induced subgraph) is
// silently skipped, since a partitioned backend may legitimately be handed
// an erasure set scoped to the whole decoding graph.
func (b *Backend) LoadEdgeModifier(mods []dualmodule.EdgeModifier) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, m := range mods {
		idx := int(m.Edge)
		if idx < 0 || idx >= len(b.edgeID) {
			return fmt.Errorf("dualmodule/serial: edge index %d out of range", m.Edge)
		}

		oldID := b.edgeID[idx]
		if oldID == "" {
			continue
		}

		edge, err := b.g.GetEdge(oldID)
		if err != nil {
			return err
		}
		if err := b.g.RemoveEdge(oldID); err != nil {
			return err
		}
		newID, err := b.g.AddEdge(edge.From, edge.To, m.Weight)
		if err != nil {
			return err
		}
		b.edgeID[idx] = newID
	}

	return nil
}

// verticesBeneathLocked returns every syndrome vertex under n, recursing
// through circleOf. Requires b.mu held.
func (b *Backend) verticesBeneathLocked(n dualnode.NodeIndex) []dualnode.VertexIndex {
	if v, ok := b.vertexOf[n]; ok {
		return []dualnode.VertexIndex{v}
	}

	var out []dualnode.VertexIndex
	for _, c := range b.circleOf[n] {
		out = append(out, b.verticesBeneathLocked(c)...)
	}

	return out
}

// growthRate returns the algebraic contribution of n's current grow state.
func (b *Backend) growthRate(n dualnode.NodeIndex) int64 {
	return int64(b.growState[n])
}

// ComputeMaximumUpdateLength is the core oracle (§4.4). For every shrinking
// node already at zero it reports the corresponding conflict; otherwise it
// walks g's adjacency outward from every vertex with a known root via
// g.Neighbors (deduplicating edges reached from both endpoints), and for
// each incident decoding-graph edge with slack under active combined growth
// reports either a bound (slack remaining) or an immediate conflict (slack
// exhausted), routed through conflict.Conflicting or conflict.TouchingVirtual
// depending on whether the far endpoint is virtual. A real-but-unrooted
// vertex never seeds a walk, but any edge touching it is still found from
// its known-rooted neighbor, the same way an edge with two unrooted
// endpoints is correctly never visited at all.
func (b *Backend) ComputeMaximumUpdateLength() (*conflict.Group, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	group := conflict.NewEmpty()

	for n, gs := range b.growState {
		if gs != dualnode.Shrink {
			continue
		}
		if b.dualVariable[n] > 0 {
			group.Add(conflict.NonZeroGrow(b.dualVariable[n]))
			continue
		}
		if _, isBlossom := b.circleOf[n]; isBlossom {
			group.Add(conflict.BlossomNeedExpand(n))
		} else {
			v := b.vertexOf[n]
			pair := conflict.ShrinkStopPair{n, n}
			group.Add(conflict.VertexShrinkStop(n, v, &pair))
		}
	}

	visited := make(map[string]bool)
	for v := range b.rootOf {
		incident, err := b.g.Neighbors(vid(v))
		if err != nil {
			return nil, fmt.Errorf("dualmodule/serial: walking neighbors of vertex %d: %w", v, err)
		}

		for _, e := range incident {
			if visited[e.ID] {
				continue
			}
			visited[e.ID] = true

			from, err := fromVid(e.From)
			if err != nil {
				return nil, err
			}
			to, err := fromVid(e.To)
			if err != nil {
				return nil, err
			}
			if err := b.considerEdge(from, to, e.Weight, group); err != nil {
				return nil, err
			}
		}
	}

	return group, nil
}

func (b *Backend) considerEdge(from, to dualnode.VertexIndex, weight int64, group *conflict.Group) error {
	ru, uKnown := b.rootOf[from]
	rv, vKnown := b.rootOf[to]

	uVirtual := b.virtual[from]
	vVirtual := b.virtual[to]

	var rateU, rateV int64
	if uKnown {
		rateU = b.growthRate(ru)
	}
	if vKnown {
		rateV = b.growthRate(rv)
	}
	combined := rateU + rateV
	if combined <= 0 {
		return nil
	}

	yu := int64(0)
	if uKnown {
		yu = b.dualVariable[ru]
	}
	yv := int64(0)
	if vKnown {
		yv = b.dualVariable[rv]
	}
	slack := weight - yu - yv
	if slack < 0 {
		slack = 0
	}

	switch {
	case uKnown && vKnown && ru == rv:
		// Same root on both sides: an internal edge, never a conflict.
		return nil
	case uVirtual == vVirtual && !uVirtual:
		if !uKnown || !vKnown {
			return nil
		}
		a := conflict.ShrinkStopPair{ru, b.nodeForVertex[from]}
		c := conflict.ShrinkStopPair{rv, b.nodeForVertex[to]}
		if slack == 0 {
			group.Add(conflict.Conflicting(a, c))
		} else {
			group.Add(conflict.NonZeroGrow(slack / combined))
		}
	case uVirtual && !vVirtual:
		if !vKnown {
			return nil
		}
		a := conflict.ShrinkStopPair{rv, b.nodeForVertex[to]}
		if slack == 0 {
			group.Add(conflict.TouchingVirtual(a, from, false))
		} else {
			group.Add(conflict.NonZeroGrow(slack / combined))
		}
	case vVirtual && !uVirtual:
		if !uKnown {
			return nil
		}
		a := conflict.ShrinkStopPair{ru, b.nodeForVertex[from]}
		if slack == 0 {
			group.Add(conflict.TouchingVirtual(a, to, false))
		} else {
			group.Add(conflict.NonZeroGrow(slack / combined))
		}
	}

	return nil
}

// ContainsDualNode reports whether n is currently tracked.
func (b *Backend) ContainsDualNode(n dualnode.NodeIndex) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.growState[n]

	return ok
}

// ContainsVertex reports whether v belongs to this backend's decoding graph.
func (b *Backend) ContainsVertex(v dualnode.VertexIndex) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.g.HasVertex(vid(v))
}

// PrepareAll returns no sync requests: this reference backend does not
// model partition-boundary mirroring itself (§4.4a) — that behavior is
// exercised at the parallel-orchestration layer instead, via
// DualInterface.Fuse and the primal engine's BreakMatchWithMirror.
func (b *Backend) PrepareAll() ([]dualmodule.SyncRequest, error) { return nil, nil }

// ExecuteSyncEvent is a no-op for the same reason PrepareAll returns
// nothing: see PrepareAll's doc comment.
func (b *Backend) ExecuteSyncEvent(dualmodule.SyncRequest) error { return nil }

// BiasDualNodeIndex shifts every NodeIndex this backend tracks by delta, so
// its keys stay addressed consistently with a DualInterface.Fuse performed
// on the same rebase (§4.4 "bias_dual_node_index").
func (b *Backend) BiasDualNodeIndex(delta dualnode.NodeIndex) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.growState = biasNodeKeyed(b.growState, delta)
	b.dualVariable = biasInt64Keyed(b.dualVariable, delta)
	b.vertexOf = biasVertexValued(b.vertexOf, delta)

	newCircle := make(map[dualnode.NodeIndex][]dualnode.NodeIndex, len(b.circleOf))
	for k, members := range b.circleOf {
		shifted := make([]dualnode.NodeIndex, len(members))
		for i, m := range members {
			shifted[i] = m + delta
		}
		newCircle[k+delta] = shifted
	}
	b.circleOf = newCircle

	for v, n := range b.rootOf {
		b.rootOf[v] = n + delta
	}
	for v, n := range b.nodeForVertex {
		b.nodeForVertex[v] = n + delta
	}
}

func biasNodeKeyed(m map[dualnode.NodeIndex]dualnode.GrowState, delta dualnode.NodeIndex) map[dualnode.NodeIndex]dualnode.GrowState {
	out := make(map[dualnode.NodeIndex]dualnode.GrowState, len(m))
	for k, v := range m {
		out[k+delta] = v
	}

	return out
}

func biasInt64Keyed(m map[dualnode.NodeIndex]int64, delta dualnode.NodeIndex) map[dualnode.NodeIndex]int64 {
	out := make(map[dualnode.NodeIndex]int64, len(m))
	for k, v := range m {
		out[k+delta] = v
	}

	return out
}

func biasVertexValued(m map[dualnode.NodeIndex]dualnode.VertexIndex, delta dualnode.NodeIndex) map[dualnode.NodeIndex]dualnode.VertexIndex {
	out := make(map[dualnode.NodeIndex]dualnode.VertexIndex, len(m))
	for k, v := range m {
		out[k+delta] = v
	}

	return out
}

// Fuse absorbs left's and right's tracked state into b, satisfying
// dualmodule.Fusable. b must already be empty (a fresh Backend covering the
// union of left and right's vertices); left and right are expected to have
// had BiasDualNodeIndex applied by the caller beforehand, the same rebase
// order DualInterface.Fuse uses for its own arena (§4.5).
func (b *Backend) Fuse(left, right dualmodule.PartitionedBackend) error {
	lb, ok := left.(*Backend)
	if !ok {
		return fmt.Errorf("%w: left is not a *serial.Backend", dualmodule.ErrUnsupportedOperation)
	}
	rb, ok := right.(*Backend)
	if !ok {
		return fmt.Errorf("%w: right is not a *serial.Backend", dualmodule.ErrUnsupportedOperation)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	for _, src := range []*Backend{lb, rb} {
		for k, v := range src.growState {
			b.growState[k] = v
		}
		for k, v := range src.dualVariable {
			b.dualVariable[k] = v
		}
		for k, v := range src.circleOf {
			b.circleOf[k] = v
		}
		for k, v := range src.vertexOf {
			b.vertexOf[k] = v
		}
		for k, v := range src.rootOf {
			b.rootOf[k] = v
		}
		for k, v := range src.nodeForVertex {
			b.nodeForVertex[k] = v
		}
	}

	return nil
}

var _ dualmodule.Fusable = (*Backend)(nil)
