// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package instgraph

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-axprof/pkg/util"
	"github.com/consensys/go-axprof/pkg/util/collection/stack"
	"github.com/consensys/go-axprof/pkg/z3log"
)

// View is a visibility mask over the nodes of a full graph, together with the
// most recently reduced visible graph.  A view is owned by a single session;
// to reduce on another goroutine, hand a snapshot of the mask to
// ReduceSnapshot.
type View struct {
	graph *Graph
	mask  *bitset.BitSet
	// Visible graph from the last reduction.
	visible *VisibleGraph
	// Counts from the last reduction.
	nodes uint
	edges uint
}

// NewView constructs a view of a given graph in which all nodes are visible.
// Counts of the previous reduction are initialised to those of the full
// graph.
func NewView(g *Graph) *View {
	view := &View{
		graph: g,
		mask:  bitset.New(g.NumNodes()),
		nodes: g.NumNodes(),
		edges: g.NumEdges(),
	}
	//
	view.Reset()
	//
	return view
}

// Graph returns the full graph underlying this view.
func (p *View) Graph() *Graph {
	return p.graph
}

// Reset makes every node visible.
func (p *View) Reset() {
	p.mask.ClearAll()
	p.mask.FlipRange(0, p.graph.NumNodes())
}

// Visible determines whether a given node is currently visible.
func (p *View) Visible(n NodeIdx) bool {
	return p.mask.Test(uint(n))
}

// NumVisible returns the number of currently visible nodes.
func (p *View) NumVisible() uint {
	return p.mask.Count()
}

// Mask returns a copy of the current visibility mask.
func (p *View) Mask() *bitset.BitSet {
	return p.mask.Clone()
}

// SetMask replaces the visibility mask, for example with one computed from a
// snapshot elsewhere.
func (p *View) SetMask(mask *bitset.BitSet) {
	p.mask = mask.Clone()
}

// HasHiddenChildren determines whether any child of a node is hidden.
func (p *View) HasHiddenChildren(n NodeIdx) bool {
	return p.anyHidden(p.graph.Children(n))
}

// HasHiddenParents determines whether any parent of a node is hidden.
func (p *View) HasHiddenParents(n NodeIdx) bool {
	return p.anyHidden(p.graph.Parents(n))
}

func (p *View) anyHidden(nodes []NodeIdx) bool {
	for _, n := range nodes {
		if !p.mask.Test(uint(n)) {
			return true
		}
	}
	//
	return false
}

// VisibleGraph returns the visible graph from the most recent reduction, or
// nil if there has been none.
func (p *View) VisibleGraph() *VisibleGraph {
	return p.visible
}

// Reduction summarises the outcome of reducing a view.
type Reduction struct {
	Nodes uint
	Edges uint
	// Whether either count decreased relative to the previous reduction.
	NodesDecreased bool
	EdgesDecreased bool
}

// RetainVisibleNodesAndReconnect reduces the full graph to its visible nodes,
// replacing chains of hidden nodes with indirect edges.  Counts are compared
// against the previous reduction, hence reducing twice without changing the
// mask reports no decrease the second time.
func (p *View) RetainVisibleNodesAndReconnect() Reduction {
	p.visible = ReduceSnapshot(p.graph, p.mask)
	//
	r := Reduction{
		Nodes:          uint(len(p.visible.Nodes)),
		Edges:          uint(len(p.visible.Edges)),
		NodesDecreased: uint(len(p.visible.Nodes)) < p.nodes,
		EdgesDecreased: uint(len(p.visible.Edges)) < p.edges,
	}
	//
	p.nodes, p.edges = r.Nodes, r.Edges
	//
	return r
}

// ============================================================================
// Visible graph
// ============================================================================

// EdgeKind distinguishes edges of the full graph from synthetic edges.
type EdgeKind uint8

const (
	// Direct edges exist in the full graph.
	Direct EdgeKind = iota
	// Indirect edges replace a chain of hidden nodes.
	Indirect
)

func (p EdgeKind) String() string {
	if p == Direct {
		return "direct"
	}
	//
	return "indirect"
}

// VisibleEdge connects two visible nodes (identified by their full graph
// indices).
type VisibleEdge struct {
	From NodeIdx
	To   NodeIdx
	Kind EdgeKind
	// Underlying edge of the full graph (direct edges only).
	Edge util.Option[EdgeIdx]
	// Dependency kind of the underlying edge (direct edges only).
	Dep z3log.DepKind
}

// VisibleGraph is the result of reducing a full graph with a given mask.
type VisibleGraph struct {
	// Visible nodes, in ascending order.
	Nodes []NodeIdx
	Edges []VisibleEdge
}

// ReduceSnapshot computes the visible graph for a given mask.  This neither
// modifies its arguments nor depends on any view state, and so can be run on
// a copy of the mask off the interactive goroutine.  Direct edges are listed
// in the order of their source node and then of the full graph.  Each visible
// pair connected only through hidden nodes gets exactly one indirect edge,
// unless a direct edge already connects them.
func ReduceSnapshot(g *Graph, mask *bitset.BitSet) *VisibleGraph {
	var (
		c       = contraction{g, mask, make(map[NodeIdx][]NodeIdx)}
		visible = &VisibleGraph{}
		// Targets of direct edges from the current node.
		direct = bitset.New(g.NumNodes())
		// Targets of indirect edges from the current node.
		indirect = bitset.New(g.NumNodes())
	)
	//
	for i, ok := mask.NextSet(0); ok && i < g.NumNodes(); i, ok = mask.NextSet(i + 1) {
		n := NodeIdx(i)
		visible.Nodes = append(visible.Nodes, n)
		//
		direct.ClearAll()
		indirect.ClearAll()
		//
		for _, e := range g.Outgoing(n) {
			edge := g.Edge(e)
			//
			if mask.Test(uint(edge.To)) {
				direct.Set(uint(edge.To))
				visible.Edges = append(visible.Edges, VisibleEdge{n, edge.To, Direct, util.Some(e), edge.Kind})
			} else {
				for _, m := range c.frontier(edge.To) {
					indirect.Set(uint(m))
				}
			}
		}
		//
		indirect.InPlaceDifference(direct)
		//
		for j, ok := indirect.NextSet(0); ok; j, ok = indirect.NextSet(j + 1) {
			visible.Edges = append(visible.Edges, VisibleEdge{n, NodeIdx(j), Indirect, util.None[EdgeIdx](), z3log.DepNone})
		}
	}
	//
	return visible
}

// contraction memoises, for each hidden node, the visible nodes reachable
// from it through hidden nodes only.
type contraction struct {
	graph *Graph
	mask  *bitset.BitSet
	memo  map[NodeIdx][]NodeIdx
}

func (p *contraction) frontier(hidden NodeIdx) []NodeIdx {
	if f, ok := p.memo[hidden]; ok {
		return f
	}
	// Post-order traversal over hidden nodes.  The graph is acyclic, hence
	// this terminates.
	work := stack.NewStack[NodeIdx]()
	work.Push(hidden)
	//
	for !work.IsEmpty() {
		n, _ := work.Top()
		//
		if _, done := p.memo[n]; done {
			work.Pop()
			continue
		}
		//
		pending := false
		//
		for _, child := range p.graph.Children(n) {
			if _, done := p.memo[child]; !done && !p.mask.Test(uint(child)) {
				work.Push(child)
				//
				pending = true
			}
		}
		//
		if !pending {
			work.Pop()
			p.memo[n] = p.merge(n)
		}
	}
	//
	return p.memo[hidden]
}

// merge the frontiers of a hidden node's children, all of which are either
// visible or already memoised.
func (p *contraction) merge(n NodeIdx) []NodeIdx {
	var frontier []NodeIdx
	//
	for _, child := range p.graph.Children(n) {
		if p.mask.Test(uint(child)) {
			frontier = append(frontier, child)
		} else {
			frontier = append(frontier, p.memo[child]...)
		}
	}
	//
	return sortedUnique(frontier)
}

// ============================================================================
// Render gate
// ============================================================================

const (
	// EdgeLimit is the number of edges beyond which rendering is slow.
	EdgeLimit = 500
	// DefaultNodeCount is the number of nodes beyond which rendering is slow.
	DefaultNodeCount = 125
)

// RenderLimits determines when rendering a reduced graph needs confirmation.
type RenderLimits struct {
	EdgeLimit        uint
	DefaultNodeCount uint
}

// DefaultRenderLimits returns the standard render limits.
func DefaultRenderLimits() RenderLimits {
	return RenderLimits{EdgeLimit, DefaultNodeCount}
}

// SafeToRender determines whether a reduced graph can be rendered without
// asking first.  This is the case unless either count exceeds its limit and
// neither count has decreased since the previous reduction.
func (p RenderLimits) SafeToRender(r Reduction) bool {
	exceeded := r.Edges > p.EdgeLimit || r.Nodes > p.DefaultNodeCount
	//
	return !exceeded || r.NodesDecreased || r.EdgesDecreased
}
