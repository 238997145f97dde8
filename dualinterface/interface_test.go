package dualinterface_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/mwpm/conflict"
	"github.com/katalvlaran/mwpm/dualinterface"
	"github.com/katalvlaran/mwpm/dualmodule"
	"github.com/katalvlaran/mwpm/dualnode"
)

// stubBackend is a no-op dualmodule.Backend recording nothing beyond what
// the interface needs it to answer, enough to exercise dualinterface in
// isolation from any real decoding-graph oracle.
type stubBackend struct {
	growCalls int
}

func (s *stubBackend) Clear()                                                            {}
func (s *stubBackend) AddDualNode(dualnode.NodeIndex) error                               { return nil }
func (s *stubBackend) AddSyndromeNode(dualnode.NodeIndex, dualnode.VertexIndex) error     { return nil }
func (s *stubBackend) AddBlossom(dualnode.NodeIndex, []dualnode.NodeIndex) error          { return nil }
func (s *stubBackend) PrepareNodesShrink([]dualnode.NodeIndex) error                      { return nil }
func (s *stubBackend) RemoveBlossom(dualnode.NodeIndex) error                             { return nil }
func (s *stubBackend) SetGrowState(dualnode.NodeIndex, dualnode.GrowState) error          { return nil }
func (s *stubBackend) ComputeMaximumUpdateLength() (*conflict.Group, error) {
	g := conflict.NewEmpty()
	g.Add(conflict.NonZeroGrow(5))

	return g, nil
}
func (s *stubBackend) Grow(int64) error                            { s.growCalls++; return nil }
func (s *stubBackend) LoadErasures(es []dualmodule.EdgeIndex) error { return dualmodule.DefaultLoadErasures(s, es) }
func (s *stubBackend) LoadEdgeModifier([]dualmodule.EdgeModifier) error { return nil }

var _ dualmodule.Backend = (*stubBackend)(nil)

func TestCreateSyndromeNode_RejectsDuplicateVertex(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}

	_, err := itf.CreateSyndromeNode(7, backend)
	require.NoError(t, err)

	_, err = itf.CreateSyndromeNode(7, backend)
	require.ErrorIs(t, err, dualinterface.ErrDuplicateVertex)
}

func TestCreateBlossom_RoundTripRestoresGrowSpeed(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}

	var circle []dualnode.NodeIndex
	for v := dualnode.VertexIndex(0); v < 3; v++ {
		idx, err := itf.CreateSyndromeNode(v, backend)
		require.NoError(t, err)
		circle = append(circle, idx)
	}
	require.NoError(t, itf.SetGrowState(circle[1], dualnode.Shrink, backend))

	before := itf.SumGrowSpeed()

	b, err := itf.CreateBlossom(circle, nil, backend)
	require.NoError(t, err)
	require.NoError(t, itf.SanityCheck())

	require.NoError(t, itf.ExpandBlossom(b, backend))
	require.NoError(t, itf.SanityCheck())

	for _, idx := range circle {
		node := itf.Get(idx)
		require.Equal(t, dualnode.Grow, node.GrowState)
		require.Equal(t, dualnode.NoNode, node.ParentBlossom)
	}
	require.Equal(t, before, itf.SumGrowSpeed())
	require.Nil(t, itf.Get(b))
}

func TestCreateBlossom_RejectsBadAlternation(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}

	a, _ := itf.CreateSyndromeNode(0, backend)
	b, _ := itf.CreateSyndromeNode(1, backend)
	require.NoError(t, itf.SetGrowState(b, dualnode.Shrink, backend))
	c, _ := itf.CreateSyndromeNode(2, backend)
	require.NoError(t, itf.SetGrowState(c, dualnode.Shrink, backend))

	_, err := itf.CreateBlossom([]dualnode.NodeIndex{a, b, c}, nil, backend)
	require.ErrorIs(t, err, dualinterface.ErrBadCircleAlternation)
}

func TestCreateBlossom_RejectsEvenLengthCircle(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}

	a, _ := itf.CreateSyndromeNode(0, backend)
	b, _ := itf.CreateSyndromeNode(1, backend)
	require.NoError(t, itf.SetGrowState(b, dualnode.Shrink, backend))

	_, err := itf.CreateBlossom([]dualnode.NodeIndex{a, b}, nil, backend)
	require.ErrorIs(t, err, dualinterface.ErrBadCircleParity)
}

func TestGrow_UpdatesTotalsAndProgress(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}

	_, err := itf.CreateSyndromeNode(0, backend)
	require.NoError(t, err)
	_, err = itf.CreateSyndromeNode(1, backend)
	require.NoError(t, err)

	require.NoError(t, itf.Grow(3, backend))
	require.Equal(t, int64(6), itf.SumDualVariables())
	require.Equal(t, int64(3), itf.GlobalProgress())
	require.NoError(t, itf.SanityCheck())
}

func TestGrow_RejectsNonPositiveDelta(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}

	err := itf.Grow(0, backend)
	require.ErrorIs(t, err, dualinterface.ErrNonPositiveGrowth)
}

func TestGrowIterative_ZeroIsNoOp(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}

	require.NoError(t, itf.GrowIterative(0, backend))
	require.Equal(t, 0, backend.growCalls)
}

func TestGrowIterative_StepsByBackendBound(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}
	_, err := itf.CreateSyndromeNode(0, backend)
	require.NoError(t, err)

	require.NoError(t, itf.GrowIterative(12, backend))
	require.Equal(t, int64(12), itf.GlobalProgress())
	require.Equal(t, 3, backend.growCalls) // 5 + 5 + 2
}

func TestClear_ResetsNodesLengthAndTotals(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}
	_, err := itf.CreateSyndromeNode(0, backend)
	require.NoError(t, err)
	require.NoError(t, itf.Grow(2, backend))

	itf.Clear()
	require.Equal(t, 0, itf.NodesLength())
	require.Equal(t, int64(0), itf.SumGrowSpeed())
	require.Equal(t, int64(0), itf.SumDualVariables())

	// vertex 0 is trackable again post-clear.
	_, err = itf.CreateSyndromeNode(0, backend)
	require.NoError(t, err)
}

func TestFuse_RebasesIndicesAndAccumulatesTotals(t *testing.T) {
	left := dualinterface.NewEmpty()
	right := dualinterface.NewEmpty()
	backend := &stubBackend{}

	la, err := left.CreateSyndromeNode(0, backend)
	require.NoError(t, err)
	require.NoError(t, left.Grow(4, backend))

	ra, err := right.CreateSyndromeNode(1, backend)
	require.NoError(t, err)
	require.NoError(t, right.Grow(7, backend))

	fused := dualinterface.NewEmpty()
	fused.Fuse(left, right)

	require.Equal(t, 2, fused.NodesLength())
	require.Equal(t, int64(4+7), fused.SumDualVariables())
	require.Equal(t, int64(2), fused.SumGrowSpeed())
	require.NoError(t, fused.SanityCheck())

	leftNode := fused.Get(la)
	require.NotNil(t, leftNode)
	require.Equal(t, dualnode.VertexIndex(0), leftNode.Vertex)

	rightNode := fused.Get(dualnode.NodeIndex(int(ra) + left.NodesLength()))
	require.NotNil(t, rightNode)
	require.Equal(t, dualnode.VertexIndex(1), rightNode.Vertex)
}

func TestFuse_AssociativityOfTotals(t *testing.T) {
	build := func(v dualnode.VertexIndex, delta int64) *dualinterface.Interface {
		itf := dualinterface.NewEmpty()
		_, err := itf.CreateSyndromeNode(v, &stubBackend{})
		require.NoError(t, err)
		require.NoError(t, itf.Grow(delta, &stubBackend{}))

		return itf
	}

	a, b, c := build(0, 2), build(1, 3), build(2, 5)

	ab := dualinterface.NewEmpty()
	ab.Fuse(a, b)
	left := dualinterface.NewEmpty()
	left.Fuse(ab, c)

	bc := dualinterface.NewEmpty()
	bc.Fuse(b, c)
	right := dualinterface.NewEmpty()
	right.Fuse(a, bc)

	require.Equal(t, left.SumDualVariables(), right.SumDualVariables())
}

func TestGetAncestryWalks(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}

	var circle []dualnode.NodeIndex
	for v := dualnode.VertexIndex(0); v < 3; v++ {
		idx, err := itf.CreateSyndromeNode(v, backend)
		require.NoError(t, err)
		circle = append(circle, idx)
	}
	require.NoError(t, itf.SetGrowState(circle[1], dualnode.Shrink, backend))
	b, err := itf.CreateBlossom(circle, nil, backend)
	require.NoError(t, err)

	require.Equal(t, b, itf.GetAncestorBlossom(circle[0]))
	require.Equal(t, circle[0], itf.GetSecondaryAncestorBlossom(circle[0]))

	vertices := itf.GetAllVertices(b)
	require.ElementsMatch(t, []dualnode.VertexIndex{0, 1, 2}, vertices)

	rep, ok := itf.GetRepresentativeVertex(b)
	require.True(t, ok)
	require.Equal(t, dualnode.VertexIndex(0), rep)
}

func TestCreateBlossom_RejectsTouchingLengthMismatch(t *testing.T) {
	itf := dualinterface.NewEmpty()
	backend := &stubBackend{}

	var circle []dualnode.NodeIndex
	for v := dualnode.VertexIndex(0); v < 3; v++ {
		idx, err := itf.CreateSyndromeNode(v, backend)
		require.NoError(t, err)
		circle = append(circle, idx)
	}
	require.NoError(t, itf.SetGrowState(circle[1], dualnode.Shrink, backend))

	_, err := itf.CreateBlossom(circle, [][2]dualnode.NodeIndex{{circle[0], circle[0]}}, backend)
	require.ErrorIs(t, err, dualinterface.ErrTouchingLengthMismatch)
}
