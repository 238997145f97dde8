// Package viz implements the visualization snapshot and profiler report
// output shapes (§6): a JSON-serializable view of a DualInterface's current
// state, and a per-unit event-timing report, both encoded via goccy/go-json
// (SPEC_FULL.md §6a) in either the mandated one-letter or long-form key
// style.
package viz

import (
	"github.com/goccy/go-json"

	"github.com/katalvlaran/mwpm/dualinterface"
	"github.com/katalvlaran/mwpm/dualnode"
)

// KeyStyle selects which JSON key names Marshal emits (§6 "Abbreviated key
// names are one-letter... long key names spell them out; both forms are
// mandated for interoperability with external viewers").
type KeyStyle int

const (
	// LongKeys spells out every field name.
	LongKeys KeyStyle = iota
	// ShortKeys abbreviates every per-field key to a single letter
	// (o,t,s,g,u,p for dual nodes; g,s for the interface section); no "d"
	// key is emitted, and the two structural wrapper keys, "interface" and
	// "dual_nodes", are not abbreviated in either style.
	ShortKeys
)

// InterfaceSnapshot is the "interface" section of a visualization snapshot.
type InterfaceSnapshot struct {
	SumGrowSpeed     int64
	SumDualVariables int64
}

// DualNodeSnapshot is one entry of the "dual_nodes" array. A nil entry in
// Snapshot.DualNodes represents a vacated arena slot (§4.1's post-expand
// "gone" resolution).
type DualNodeSnapshot struct {
	Blossom          []dualnode.NodeIndex    // non-nil iff the node is a blossom
	TouchingChildren [][2]dualnode.NodeIndex // non-nil iff the node is a blossom
	SyndromeVertex   *dualnode.VertexIndex   // non-nil iff the node is a syndrome vertex
	GrowState        string
	UnitGrowth       int8 // +1, -1, or 0, matching GrowState's sign
	ParentBlossom    *dualnode.NodeIndex
}

// Snapshot is the full visualization record taken of a DualInterface (§6
// "Visualization snapshot").
type Snapshot struct {
	Interface InterfaceSnapshot
	DualNodes []*DualNodeSnapshot
}

// Capture builds a Snapshot of itf's current state. Callers are expected to
// invoke dualinterface.Interface.SanityCheck beforehand in debug/trace runs
// (spec.md §7 "every snapshot validates invariants first").
func Capture(itf *dualinterface.Interface) Snapshot {
	length := itf.NodesLength()
	snap := Snapshot{
		Interface: InterfaceSnapshot{
			SumGrowSpeed:     itf.SumGrowSpeed(),
			SumDualVariables: itf.SumDualVariables(),
		},
		DualNodes: make([]*DualNodeSnapshot, length),
	}

	for i := 0; i < length; i++ {
		n := itf.Get(dualnode.NodeIndex(i))
		if n == nil {
			continue
		}
		snap.DualNodes[i] = captureNode(n)
	}

	return snap
}

func captureNode(n *dualnode.Node) *DualNodeSnapshot {
	d := &DualNodeSnapshot{
		GrowState:  n.GrowState.String(),
		UnitGrowth: int8(n.GrowState),
	}
	if n.ParentBlossom != dualnode.NoNode {
		p := n.ParentBlossom
		d.ParentBlossom = &p
	}
	if n.IsSyndromeVertex() {
		v := n.Vertex
		d.SyndromeVertex = &v
	} else {
		d.Blossom = n.NodesCircle
		d.TouchingChildren = n.TouchingChildren
	}

	return d
}

// keyed builds the ordered key/value pairs for one DualNodeSnapshot in the
// given style, sharing the same Snapshot data for either encoding per
// SPEC_FULL.md §6a ("the same struct using two encodings").
func (d *DualNodeSnapshot) keyed(style KeyStyle) map[string]interface{} {
	out := make(map[string]interface{}, 6)
	key := func(short, long string) string {
		if style == ShortKeys {
			return short
		}

		return long
	}

	if d.Blossom != nil {
		out[key("o", "blossom")] = d.Blossom
		out[key("t", "touching_children")] = d.TouchingChildren
	}
	if d.SyndromeVertex != nil {
		out[key("s", "syndrome_vertex")] = *d.SyndromeVertex
	}
	out[key("g", "grow_state")] = d.GrowState
	out[key("u", "unit_growth")] = d.UnitGrowth
	if d.ParentBlossom != nil {
		out[key("p", "parent_blossom")] = *d.ParentBlossom
	}

	return out
}

func (i InterfaceSnapshot) keyed(style KeyStyle) map[string]interface{} {
	key := func(short, long string) string {
		if style == ShortKeys {
			return short
		}

		return long
	}

	return map[string]interface{}{
		key("g", "sum_grow_speed"):     i.SumGrowSpeed,
		key("s", "sum_dual_variables"): i.SumDualVariables,
	}
}

// Marshal encodes the snapshot as JSON using the requested key style.
func (snap Snapshot) Marshal(style KeyStyle) ([]byte, error) {
	nodes := make([]map[string]interface{}, len(snap.DualNodes))
	for i, n := range snap.DualNodes {
		if n == nil {
			continue
		}
		nodes[i] = n.keyed(style)
	}

	return json.Marshal(map[string]interface{}{
		"interface":  snap.Interface.keyed(style),
		"dual_nodes": nodes,
	})
}
