// Package parallel implements the partition tree and fuse-and-resume
// orchestration (§4.5): a binary tree of units, each owning a serial primal
// engine and dual-interface/backend pair over a disjoint vertex range, fused
// pairwise up to a root that holds the complete matching.
package parallel

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/mwpm/dualnode"
)

// Sentinel errors for package parallel (§7 "Only sentinel variables are
// exposed").
var (
	ErrEmptyPartitionConfig  = errors.New("parallel: partition config has no partitions")
	ErrUnknownFusionOperand  = errors.New("parallel: fusion references an unknown unit index")
	ErrFusionOperandNotIdle  = errors.New("parallel: fusion references a unit already consumed by an earlier fusion")
	ErrNonContiguousFusion   = errors.New("parallel: fusion operands' vertex spans overlap")
	ErrOverlappingPartitions = errors.New("parallel: partitions overlap")
	ErrUnsortedPartitions    = errors.New("parallel: partitions must be given in ascending vertex order")
)

// VertexRange is a half-open range of vertex indices [Start, End).
type VertexRange struct {
	Start, End dualnode.VertexIndex
}

// Len returns the number of vertices the range covers.
func (r VertexRange) Len() int { return int(r.End - r.Start) }

// Empty reports whether the range covers no vertices.
func (r VertexRange) Empty() bool { return r.End <= r.Start }

// Contains reports whether v falls within the range.
func (r VertexRange) Contains(v dualnode.VertexIndex) bool { return v >= r.Start && v < r.End }

func (r VertexRange) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// span merges two ranges into their full covering range, regardless of any
// gap between them.
func span(a, b VertexRange) VertexRange {
	s := VertexRange{Start: a.Start, End: a.End}
	if b.Start < s.Start {
		s.Start = b.Start
	}
	if b.End > s.End {
		s.End = b.End
	}

	return s
}

// gap returns the (possibly empty) range strictly between two disjoint,
// non-overlapping ranges.
func gap(a, b VertexRange) VertexRange {
	if a.End <= b.Start {
		return VertexRange{Start: a.End, End: b.Start}
	}

	return VertexRange{Start: b.End, End: a.Start}
}

// FusionPair is one entry of PartitionConfig.Fusions: the indices of the
// two units a new unit fuses. Indices below len(Partitions) name leaves;
// indices at or above name an earlier fusion's resulting unit.
type FusionPair struct {
	Left, Right int
}

// PartitionConfig is the partition-tree input (§6 "PartitionConfig"):
// disjoint leaf vertex ranges plus the ordered fusion sequence that builds
// the tree above them. The config is silent about vertices between
// partitions — those become interface vertices, loaded only once their
// covering fusion occurs.
type PartitionConfig struct {
	Partitions []VertexRange
	Fusions    []FusionPair
}

// PartitionInfo is one unit's derived tree metadata (§6 "PartitionInfo"):
// children/parent indices, whether it is a leaf, its owned range (leaves
// only), the full span of vertices underneath it, and — for internal
// units — the interface range first loaded at this unit's fusion step.
type PartitionInfo struct {
	Index    int
	Leaf     bool
	Children [2]int // [-1,-1] for a leaf
	Parent   int    // -1 for the root

	Range          VertexRange // meaningful only when Leaf
	Span           VertexRange // full vertex coverage of this unit and its descendants
	InterfaceRange VertexRange // vertices first loaded at this unit's fusion (empty for leaves)
}

// DerivePartitionInfo builds the tree metadata table (§6 "PartitionInfo
// (derived)") from a PartitionConfig, validating that partitions are sorted
// and disjoint and that every fusion's operands are unconsumed and have
// non-overlapping spans. The gap between two operands' spans becomes the
// new unit's interface range; it is not checked against other units' spans.
func DerivePartitionInfo(cfg PartitionConfig) ([]PartitionInfo, error) {
	if len(cfg.Partitions) == 0 {
		return nil, ErrEmptyPartitionConfig
	}

	n := len(cfg.Partitions) + len(cfg.Fusions)
	infos := make([]PartitionInfo, n)
	consumed := make([]bool, n)

	var prevEnd dualnode.VertexIndex
	for i, r := range cfg.Partitions {
		if i > 0 && r.Start < cfg.Partitions[i-1].Start {
			return nil, fmt.Errorf("%w: partition %d starts at %d before partition %d starts at %d", ErrUnsortedPartitions, i, r.Start, i-1, cfg.Partitions[i-1].Start)
		}
		if i > 0 && r.Start < prevEnd {
			return nil, fmt.Errorf("%w: partition %d", ErrOverlappingPartitions, i)
		}
		infos[i] = PartitionInfo{Index: i, Leaf: true, Children: [2]int{-1, -1}, Parent: -1, Range: r, Span: r}
		prevEnd = r.End
	}

	for i, f := range cfg.Fusions {
		idx := len(cfg.Partitions) + i
		for _, operand := range []int{f.Left, f.Right} {
			if operand < 0 || operand >= idx {
				return nil, fmt.Errorf("%w: fusion %d references %d", ErrUnknownFusionOperand, idx, operand)
			}
			if consumed[operand] {
				return nil, fmt.Errorf("%w: unit %d", ErrFusionOperandNotIdle, operand)
			}
		}

		left, right := infos[f.Left], infos[f.Right]
		if left.Span.End > right.Span.Start && right.Span.End > left.Span.Start {
			return nil, fmt.Errorf("%w: units %d and %d", ErrNonContiguousFusion, f.Left, f.Right)
		}

		consumed[f.Left] = true
		consumed[f.Right] = true
		infos[f.Left].Parent = idx
		infos[f.Right].Parent = idx

		infos[idx] = PartitionInfo{
			Index:          idx,
			Leaf:           false,
			Children:       [2]int{f.Left, f.Right},
			Parent:         -1,
			Span:           span(left.Span, right.Span),
			InterfaceRange: gap(left.Span, right.Span),
		}
	}

	return infos, nil
}

// RootIndex returns the index of the partition tree's root: the unit the
// last fusion produces (§6 "the last entry's unit is the root"), or the
// sole leaf if there are no fusions.
func RootIndex(infos []PartitionInfo) int { return len(infos) - 1 }

// BuildPartitionConfigVertical builds a left-fold chain of numPartitions
// contiguous vertical stripes over [0, totalVertices), separated by
// single-vertex interface gaps, mirroring the S2–S4 scenario shapes
// (spec.md §8, SPEC_FULL.md §10).
func BuildPartitionConfigVertical(totalVertices, numPartitions int) (PartitionConfig, error) {
	if numPartitions <= 0 || totalVertices <= 0 {
		return PartitionConfig{}, fmt.Errorf("parallel: invalid vertical partition request (total=%d, partitions=%d)", totalVertices, numPartitions)
	}

	stripeWidth := totalVertices / numPartitions
	if stripeWidth < 1 {
		return PartitionConfig{}, fmt.Errorf("parallel: %d vertices cannot be split into %d non-empty stripes", totalVertices, numPartitions)
	}

	cfg := PartitionConfig{Partitions: make([]VertexRange, 0, numPartitions)}
	cursor := dualnode.VertexIndex(0)
	for i := 0; i < numPartitions; i++ {
		end := cursor + dualnode.VertexIndex(stripeWidth)
		if i == numPartitions-1 {
			end = dualnode.VertexIndex(totalVertices)
		}
		cfg.Partitions = append(cfg.Partitions, VertexRange{Start: cursor, End: end})
		cursor = end + 1 // one-vertex interface gap before the next stripe
	}

	for i := 1; i < numPartitions; i++ {
		left := i - 1
		if i > 1 {
			left = len(cfg.Partitions) + i - 2
		}
		cfg.Fusions = append(cfg.Fusions, FusionPair{Left: left, Right: i})
	}

	return cfg, nil
}

// BuildPartitionConfigHorizontal builds a left-fold chain of row-band
// partitions over a row-major rows×cols decoding graph (vertex index
// row*cols+col), separated by single-row interface gaps, mirroring the S5
// scenario shape (spec.md §8, SPEC_FULL.md §10).
func BuildPartitionConfigHorizontal(rows, cols, rowsPerBand int) (PartitionConfig, error) {
	if rows <= 0 || cols <= 0 || rowsPerBand <= 0 {
		return PartitionConfig{}, fmt.Errorf("parallel: invalid horizontal partition request (rows=%d, cols=%d, band=%d)", rows, cols, rowsPerBand)
	}

	var bands [][2]int // [startRow, endRow) pairs
	for start := 0; start < rows; start += rowsPerBand + 1 {
		end := start + rowsPerBand
		if end > rows {
			end = rows
		}
		bands = append(bands, [2]int{start, end})
	}
	bands[len(bands)-1][1] = rows // last band absorbs any trailing rows, like the last vertical stripe

	cfg := PartitionConfig{Partitions: make([]VertexRange, 0, len(bands))}
	for _, b := range bands {
		cfg.Partitions = append(cfg.Partitions, VertexRange{
			Start: dualnode.VertexIndex(b[0] * cols),
			End:   dualnode.VertexIndex(b[1] * cols),
		})
	}

	for i := 1; i < len(bands); i++ {
		left := i - 1
		if i > 1 {
			left = len(cfg.Partitions) + i - 2
		}
		cfg.Fusions = append(cfg.Fusions, FusionPair{Left: left, Right: i})
	}

	return cfg, nil
}
