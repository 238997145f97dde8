package serial

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/mwpm/conflict"
	"github.com/katalvlaran/mwpm/dualinterface"
	"github.com/katalvlaran/mwpm/dualmodule"
	"github.com/katalvlaran/mwpm/dualnode"
	"github.com/katalvlaran/mwpm/primal"
)

// Sentinel errors for primal/serial. Only these variables are exposed;
// callers branch with errors.Is. See dualinterface/errors.go for the same
// policy this package follows.
var (
	// ErrUnresolvedShrinkStop is returned when SolveStepCallback pops a
	// standalone VertexShrinkStop that never rendezvoused into a
	// Conflicting (§4.3 "Rationale"). In a non-partitioned engine this
	// should never happen; partitioned rendezvous is the parallel layer's
	// concern (§4.5), not this reference engine's.
	ErrUnresolvedShrinkStop = errors.New("primal/serial: popped an unresolved vertex shrink-stop")

	// ErrUnknownBlossom is returned when BlossomNeedExpand names a blossom
	// this engine did not itself create (e.g. a bug in the dual backend).
	ErrUnknownBlossom = errors.New("primal/serial: blossom need-expand for an untracked blossom")

	// ErrUnknownNode is returned when a conflict names a node this engine
	// has no bookkeeping for (a dual backend / interface desync).
	ErrUnknownNode = errors.New("primal/serial: conflict references an untracked node")
)

// maxIterations bounds SolveStepCallback's resolution loop (§7 "Recoverable
// states: none"; this is a defensive backstop, not a spec-mandated limit —
// see ErrConvergenceLimit in errors.go).
const maxIterations = 1 << 20

// nodeInfo is the per-dual-node bookkeeping the alternating-tree formulation
// needs: exactly one of (root set), (match or matchVirtual set) holds at a
// time; neither set means the node is exposed/free and untouched so far.
type nodeInfo struct {
	parent dualnode.NodeIndex // tree parent; NoNode if tree root or not in a tree
	root   dualnode.NodeIndex // tree root if this node is an active tree member; else NoNode

	match        dualnode.NodeIndex    // matched-idle partner; NoNode if not matched to a real node
	matchVirtual *dualnode.VertexIndex // non-nil if matched to a virtual boundary vertex instead
}

func freshNodeInfo() *nodeInfo {
	return &nodeInfo{parent: dualnode.NoNode, root: dualnode.NoNode, match: dualnode.NoNode}
}

// blossomInfo records enough of a contracted blossom's pre-image to restore
// primal bookkeeping on expansion (§4.5 "expand_blossom"): the circle as
// built at creation time, the index within it of the lowest common ancestor
// (the member that keeps the blossom's external tree attachment, if any),
// and that attachment itself.
type blossomInfo struct {
	circle         []dualnode.NodeIndex
	lcaIndex       int
	externalParent dualnode.NodeIndex // NoNode if the LCA was itself a tree root
	root           dualnode.NodeIndex // the overall tree root the blossom belonged to (== circle[lcaIndex] if externalParent is NoNode)
}

// Engine is the reference serial primal module (§4.6a): a classic
// alternating-tree blossom-algorithm driver built directly against
// dualinterface.Interface and dualmodule.Backend.
type Engine struct {
	info     map[dualnode.NodeIndex]*nodeInfo
	matching map[dualnode.NodeIndex]dualnode.NodeIndex
	blossoms map[dualnode.NodeIndex]blossomInfo

	possibleBreak map[dualnode.NodeIndex]dualnode.VertexIndex
}

var _ primal.Engine = (*Engine)(nil)

// New returns an Engine with no bookkeeping yet.
func New() *Engine {
	return &Engine{
		info:          make(map[dualnode.NodeIndex]*nodeInfo),
		matching:      make(map[dualnode.NodeIndex]dualnode.NodeIndex),
		blossoms:      make(map[dualnode.NodeIndex]blossomInfo),
		possibleBreak: make(map[dualnode.NodeIndex]dualnode.VertexIndex),
	}
}

// Clear discards all primal-side bookkeeping.
func (e *Engine) Clear() {
	e.info = make(map[dualnode.NodeIndex]*nodeInfo)
	e.matching = make(map[dualnode.NodeIndex]dualnode.NodeIndex)
	e.blossoms = make(map[dualnode.NodeIndex]blossomInfo)
	e.possibleBreak = make(map[dualnode.NodeIndex]dualnode.VertexIndex)
}

// Matching returns the engine's current real-to-real pairing. Nodes matched
// to a virtual boundary vertex (tracked in PossibleBreak) are not included,
// matching primal.Engine's documented contract.
func (e *Engine) Matching() map[dualnode.NodeIndex]dualnode.NodeIndex {
	out := make(map[dualnode.NodeIndex]dualnode.NodeIndex, len(e.matching))
	for k, v := range e.matching {
		out[k] = v
	}

	return out
}

// PossibleBreak returns primal nodes temporarily matched to a virtual
// vertex pending fusion resolution (§4.5).
func (e *Engine) PossibleBreak() map[dualnode.NodeIndex]dualnode.VertexIndex {
	out := make(map[dualnode.NodeIndex]dualnode.VertexIndex, len(e.possibleBreak))
	for k, v := range e.possibleBreak {
		out[k] = v
	}

	return out
}

// LoadSyndrome creates a new dual node for v and registers it as exposed
// (§4.5 step 4, "load_syndrome").
func (e *Engine) LoadSyndrome(itf *dualinterface.Interface, backend dualmodule.Backend, v dualnode.VertexIndex) error {
	idx, err := itf.CreateSyndromeNode(v, backend)
	if err != nil {
		return err
	}
	e.info[idx] = freshNodeInfo()

	return nil
}

// SolveStepCallback runs §4.6's loop to completion.
func (e *Engine) SolveStepCallback(itf *dualinterface.Interface, backend dualmodule.Backend) error {
	for i := 0; i < maxIterations; i++ {
		group, err := backend.ComputeMaximumUpdateLength()
		if err != nil {
			return err
		}

		if w, ok := group.NonZeroGrowWeight(); ok {
			if w == conflict.NoWeight {
				return nil // nothing left bounds growth: converged.
			}
			if err := itf.Grow(w, backend); err != nil {
				return err
			}

			continue
		}

		top, ok := group.Pop()
		if !ok {
			return nil
		}
		if err := e.resolve(itf, backend, top); err != nil {
			return err
		}
	}

	return ErrConvergenceLimit
}

func (e *Engine) resolve(itf *dualinterface.Interface, backend dualmodule.Backend, m conflict.MaxUpdateLength) error {
	switch m.Kind {
	case conflict.KindConflicting:
		return e.handleConflicting(itf, backend, m.P1[0], m.P2[0])
	case conflict.KindTouchingVirtual:
		return e.handleTouchingVirtual(itf, backend, m.P1[0], m.Virtual)
	case conflict.KindBlossomNeedExpand:
		return e.handleBlossomNeedExpand(itf, backend, m.Blossom)
	case conflict.KindVertexShrinkStop:
		return fmt.Errorf("%w: vertex %d", ErrUnresolvedShrinkStop, m.Vertex)
	default:
		return fmt.Errorf("primal/serial: unexpected conflict kind %v", m.Kind)
	}
}

// status classifies a dual-node identity for primal resolution purposes.
type status uint8

const (
	statusFree status = iota
	statusMatchedIdle
	statusTreeMember
)

func (e *Engine) classify(n dualnode.NodeIndex) (status, *nodeInfo, error) {
	info, ok := e.info[n]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %d", ErrUnknownNode, n)
	}
	switch {
	case info.root != dualnode.NoNode:
		return statusTreeMember, info, nil
	case info.match != dualnode.NoNode || info.matchVirtual != nil:
		return statusMatchedIdle, info, nil
	default:
		return statusFree, info, nil
	}
}

// handleConflicting resolves §3's Conflicting(a,b): two Grow-state dual
// nodes (free, tree-outer, or matched-idle absorbed into an outer touch)
// have collided.
func (e *Engine) handleConflicting(itf *dualinterface.Interface, backend dualmodule.Backend, a, b dualnode.NodeIndex) error {
	sa, ia, err := e.classify(a)
	if err != nil {
		return err
	}
	sb, ib, err := e.classify(b)
	if err != nil {
		return err
	}

	switch {
	case sa == statusFree && sb == statusFree:
		return e.matchPair(itf, backend, a, b)

	case sa == statusFree && sb == statusMatchedIdle:
		return e.absorbIntoNewTree(itf, backend, a, b, ib)
	case sb == statusFree && sa == statusMatchedIdle:
		return e.absorbIntoNewTree(itf, backend, b, a, ia)

	case sa == statusFree && sb == statusTreeMember:
		return e.augmentToReal(itf, backend, b, a)
	case sb == statusFree && sa == statusTreeMember:
		return e.augmentToReal(itf, backend, a, b)

	case sa == statusTreeMember && sb == statusMatchedIdle:
		return e.absorbIntoTree(itf, backend, a, ia, b, ib)
	case sb == statusTreeMember && sa == statusMatchedIdle:
		return e.absorbIntoTree(itf, backend, b, ib, a, ia)

	case sa == statusTreeMember && sb == statusTreeMember:
		if ia.root == ib.root {
			return e.createBlossom(itf, backend, a, b)
		}

		return e.mergeTrees(itf, backend, a, b)

	default:
		return fmt.Errorf("primal/serial: unexpected conflict between statuses %v and %v", sa, sb)
	}
}

// handleTouchingVirtual resolves §3's TouchingVirtual: node a touches a
// virtual boundary vertex v. a is always Free or a tree member (§4.4a's
// backend never reports this for a matched-idle node).
func (e *Engine) handleTouchingVirtual(itf *dualinterface.Interface, backend dualmodule.Backend, a dualnode.NodeIndex, v dualnode.VertexIndex) error {
	sa, _, err := e.classify(a)
	if err != nil {
		return err
	}

	switch sa {
	case statusFree:
		return e.matchVirtualLeaf(itf, backend, a, v)
	case statusTreeMember:
		return e.augmentToVirtual(itf, backend, a, v)
	default:
		return fmt.Errorf("primal/serial: touching-virtual reported for matched-idle node %d", a)
	}
}

// handleBlossomNeedExpand resolves §3's BlossomNeedExpand.
func (e *Engine) handleBlossomNeedExpand(itf *dualinterface.Interface, backend dualmodule.Backend, b dualnode.NodeIndex) error {
	bi, ok := e.blossoms[b]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBlossom, b)
	}

	if err := itf.ExpandBlossom(b, backend); err != nil {
		return err
	}
	delete(e.blossoms, b)
	delete(e.info, b)

	lca := bi.circle[bi.lcaIndex]
	lcaInfo := freshNodeInfo()
	if bi.externalParent == dualnode.NoNode {
		lcaInfo.root = lca
	} else {
		lcaInfo.parent = bi.externalParent
		lcaInfo.root = bi.root
	}
	e.info[lca] = lcaInfo
	// lca's grow state is already Grow from ExpandBlossom; nothing more to set.

	for _, pair := range blossomPairs(bi.circle, bi.lcaIndex) {
		if err := e.matchPair(itf, backend, pair[0], pair[1]); err != nil {
			return err
		}
	}

	return nil
}

// matchPair directly matches two currently-exposed (Grow) nodes, the base
// case of augmenting (§4.6's "match flipping").
func (e *Engine) matchPair(itf *dualinterface.Interface, backend dualmodule.Backend, a, b dualnode.NodeIndex) error {
	if err := itf.SetGrowState(a, dualnode.Stay, backend); err != nil {
		return err
	}
	if err := itf.SetGrowState(b, dualnode.Stay, backend); err != nil {
		return err
	}
	e.info[a] = &nodeInfo{parent: dualnode.NoNode, root: dualnode.NoNode, match: b}
	e.info[b] = &nodeInfo{parent: dualnode.NoNode, root: dualnode.NoNode, match: a}
	e.matching[a] = b
	e.matching[b] = a

	return nil
}

// matchVirtualLeaf matches a free node directly to a virtual boundary
// vertex, recording it in PossibleBreak per §4.5.
func (e *Engine) matchVirtualLeaf(itf *dualinterface.Interface, backend dualmodule.Backend, a dualnode.NodeIndex, v dualnode.VertexIndex) error {
	if err := itf.SetGrowState(a, dualnode.Stay, backend); err != nil {
		return err
	}
	vv := v
	e.info[a] = &nodeInfo{parent: dualnode.NoNode, root: dualnode.NoNode, match: dualnode.NoNode, matchVirtual: &vv}
	delete(e.matching, a)
	e.possibleBreak[a] = v

	return nil
}

// absorbIntoNewTree handles a free node f touching a matched-idle node m
// (currently paired with partner): f becomes a fresh tree root, m joins as
// its Inner child, and m's old partner is pulled in as the tree's next
// Outer member (§4.6's tree-growth step).
func (e *Engine) absorbIntoNewTree(itf *dualinterface.Interface, backend dualmodule.Backend, f, m dualnode.NodeIndex, mInfo *nodeInfo) error {
	partner := mInfo.match
	var partnerVirtual *dualnode.VertexIndex
	if partner == dualnode.NoNode {
		partnerVirtual = mInfo.matchVirtual
	}

	delete(e.matching, m)
	if partner != dualnode.NoNode {
		delete(e.matching, partner)
	}

	if err := itf.SetGrowState(m, dualnode.Shrink, backend); err != nil {
		return err
	}
	e.info[m] = &nodeInfo{parent: f, root: f}

	if partnerVirtual != nil {
		// m was matched to a virtual vertex, not a real partner: there is
		// no node to pull in as the next Outer. The tree simply ends here
		// with m as its sole Inner leaf until BreakMatchWithMirror or
		// further growth resolves it.
		delete(e.possibleBreak, m)

		return nil
	}

	if err := itf.SetGrowState(partner, dualnode.Grow, backend); err != nil {
		return err
	}
	e.info[partner] = &nodeInfo{parent: m, root: f}

	return nil
}

// absorbIntoTree is absorbIntoNewTree's counterpart when the touching node
// is already an Outer member of an existing tree rather than a fresh free
// root.
func (e *Engine) absorbIntoTree(itf *dualinterface.Interface, backend dualmodule.Backend, outer dualnode.NodeIndex, outerInfo *nodeInfo, m dualnode.NodeIndex, mInfo *nodeInfo) error {
	return e.absorbIntoNewTree(itf, backend, outer, m, mInfo)
}

// pathToRoot returns n's tree ancestry from its root down to n, inclusive.
func (e *Engine) pathToRoot(n dualnode.NodeIndex) []dualnode.NodeIndex {
	var rev []dualnode.NodeIndex
	cur := n
	for {
		rev = append(rev, cur)
		info := e.info[cur]
		if info.parent == dualnode.NoNode {
			break
		}
		cur = info.parent
	}
	path := make([]dualnode.NodeIndex, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = v
	}

	return path
}

// pairAlongPath matches every consecutive pair (path[0],path[1]),
// (path[2],path[3]), ... of a root-to-node path, leaving the final element
// (always present since path has odd length) unpaired for the caller to
// match against whatever ended the augmenting path.
func (e *Engine) pairAlongPath(itf *dualinterface.Interface, backend dualmodule.Backend, path []dualnode.NodeIndex) error {
	for i := 0; i+1 < len(path); i += 2 {
		if err := e.matchPair(itf, backend, path[i], path[i+1]); err != nil {
			return err
		}
	}

	return nil
}

// augmentToReal implements the classic augmenting-path step: Outer leaf
// touches an exposed free vertex, completing an alternating path from the
// tree's root. Every tree edge along the path flips matched/unmatched.
func (e *Engine) augmentToReal(itf *dualinterface.Interface, backend dualmodule.Backend, leaf, free dualnode.NodeIndex) error {
	path := e.pathToRoot(leaf)
	if err := e.pairAlongPath(itf, backend, path); err != nil {
		return err
	}

	return e.matchPair(itf, backend, leaf, free)
}

// augmentToVirtual is augmentToReal's counterpart when the augmenting path
// terminates at a virtual boundary vertex instead of a real exposed node.
func (e *Engine) augmentToVirtual(itf *dualinterface.Interface, backend dualmodule.Backend, leaf dualnode.NodeIndex, v dualnode.VertexIndex) error {
	path := e.pathToRoot(leaf)
	if err := e.pairAlongPath(itf, backend, path); err != nil {
		return err
	}

	return e.matchVirtualLeaf(itf, backend, leaf, v)
}

// mergeTrees implements the two-tree augmenting case: Outer leaves a and b
// belong to different trees; the new edge (a,b) joins their two root-to-leaf
// paths into one augmenting path spanning both roots.
func (e *Engine) mergeTrees(itf *dualinterface.Interface, backend dualmodule.Backend, a, b dualnode.NodeIndex) error {
	pathA := e.pathToRoot(a)
	pathB := e.pathToRoot(b)
	if err := e.pairAlongPath(itf, backend, pathA); err != nil {
		return err
	}
	if err := e.pairAlongPath(itf, backend, pathB); err != nil {
		return err
	}

	return e.matchPair(itf, backend, a, b)
}

// createBlossom implements §4.1's odd-cycle contraction: Outer leaves a and
// b belong to the same tree; the tree path between them through their
// lowest common ancestor closes into an odd cycle around the new edge
// (a,b).
func (e *Engine) createBlossom(itf *dualinterface.Interface, backend dualmodule.Backend, a, b dualnode.NodeIndex) error {
	pathA := e.pathToRoot(a) // root..a
	pathB := e.pathToRoot(b) // root..b

	i := 0
	for i < len(pathA) && i < len(pathB) && pathA[i] == pathB[i] {
		i++
	}
	lcaIdx := i - 1
	if lcaIdx < 0 {
		return fmt.Errorf("primal/serial: nodes %d and %d share no common tree ancestor", a, b)
	}

	armA := pathA[lcaIdx:] // LCA..a
	armB := pathB[lcaIdx:] // LCA..b

	circle := make([]dualnode.NodeIndex, 0, len(armA)+len(armB)-1)
	for i := len(armA) - 1; i >= 0; i-- {
		circle = append(circle, armA[i]) // a,...,LCA
	}
	circle = append(circle, armB[1:]...) // child-of-LCA,...,b

	circleLCAIndex := len(armA) - 1

	lca := armA[0]
	externalParent := e.info[lca].parent
	root := e.info[lca].root

	touching := make([][2]dualnode.NodeIndex, len(circle))
	for i, c := range circle {
		touching[i] = [2]dualnode.NodeIndex{c, c}
	}

	blossomIdx, err := itf.CreateBlossom(circle, touching, backend)
	if err != nil {
		return err
	}

	e.blossoms[blossomIdx] = blossomInfo{
		circle:         append([]dualnode.NodeIndex(nil), circle...),
		lcaIndex:       circleLCAIndex,
		externalParent: externalParent,
		root:           root,
	}
	e.info[blossomIdx] = &nodeInfo{parent: externalParent, root: root}
	for _, c := range circle {
		delete(e.info, c)
	}

	return nil
}

// blossomPairs returns the matched-idle pairs a blossom's circle decomposes
// into once its LCA member (at lcaIndex) is pulled back out to resume tree
// membership (§4.5 expand_blossom, mirroring createBlossom's construction).
func blossomPairs(circle []dualnode.NodeIndex, lcaIndex int) [][2]dualnode.NodeIndex {
	var pairs [][2]dualnode.NodeIndex
	for i := 0; i < lcaIndex; i += 2 {
		pairs = append(pairs, [2]dualnode.NodeIndex{circle[i], circle[i+1]})
	}
	for i := lcaIndex + 1; i < len(circle); i += 2 {
		pairs = append(pairs, [2]dualnode.NodeIndex{circle[i], circle[i+1]})
	}

	return pairs
}

// BreakMatchWithMirror implements §4.5's break_matching_with_mirror.
func (e *Engine) BreakMatchWithMirror(itf *dualinterface.Interface, backend dualmodule.Backend, isOwned func(dualnode.VertexIndex) bool) error {
	for node, v := range e.possibleBreak {
		if !isOwned(v) {
			continue
		}
		if err := itf.SetGrowState(node, dualnode.Grow, backend); err != nil {
			return err
		}
		e.info[node] = freshNodeInfo()
		delete(e.possibleBreak, node)
	}

	return nil
}

// shift rebases a NodeIndex by delta, preserving the NoNode sentinel.
func shift(n dualnode.NodeIndex, delta dualnode.NodeIndex) dualnode.NodeIndex {
	if n == dualnode.NoNode {
		return dualnode.NoNode
	}

	return n + delta
}

// Fuse merges left's and right's bookkeeping into e, rebasing right's node
// identities by leftNodeCount — the same base DualInterface.Fuse applies to
// the right operand's arena (§4.5 "fuse(u)").
func (e *Engine) Fuse(left, right primal.Engine, leftNodeCount int) error {
	le, ok := left.(*Engine)
	if !ok {
		return fmt.Errorf("primal/serial: left is not a *serial.Engine")
	}
	re, ok := right.(*Engine)
	if !ok {
		return fmt.Errorf("primal/serial: right is not a *serial.Engine")
	}

	base := dualnode.NodeIndex(leftNodeCount)

	for k, v := range le.info {
		e.info[k] = &nodeInfo{parent: v.parent, root: v.root, match: v.match, matchVirtual: v.matchVirtual}
	}
	for k, v := range le.matching {
		e.matching[k] = v
	}
	for k, v := range le.blossoms {
		e.blossoms[k] = v
	}
	for k, v := range le.possibleBreak {
		e.possibleBreak[k] = v
	}

	for k, v := range re.info {
		e.info[shift(k, base)] = &nodeInfo{
			parent:       shift(v.parent, base),
			root:         shift(v.root, base),
			match:        shift(v.match, base),
			matchVirtual: v.matchVirtual,
		}
	}
	for k, v := range re.matching {
		e.matching[shift(k, base)] = shift(v, base)
	}
	for k, v := range re.blossoms {
		shiftedCircle := make([]dualnode.NodeIndex, len(v.circle))
		for i, c := range v.circle {
			shiftedCircle[i] = shift(c, base)
		}
		e.blossoms[shift(k, base)] = blossomInfo{
			circle:         shiftedCircle,
			lcaIndex:       v.lcaIndex,
			externalParent: shift(v.externalParent, base),
			root:           shift(v.root, base),
		}
	}
	for k, v := range re.possibleBreak {
		e.possibleBreak[shift(k, base)] = v
	}

	return nil
}
