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
	"slices"
	"strings"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-axprof/pkg/util"
	"github.com/consensys/go-axprof/pkg/z3log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One quantifier instantiated twice, where the second instantiation blames
// the term yielded by the first.
const twoNodeLog = `[mk-app] #1 f
[mk-var] #2 0
[mk-app] #3 f #2
[mk-app] #4 pattern #3
[mk-quant] #5 q1 1 #4 #3
[mk-app] #6 a
[new-match] 0x1 #5 #4 #6 ;
[instance] 0x1 ; 1
[mk-app] #7 f #6
[attach-enode] #7 1
[end-of-instance]
[new-match] 0x2 #5 #4 #7 ; #7
[instance] 0x2 ; 2
[end-of-instance]
`

func Test_Graph_TwoNodes(t *testing.T) {
	p, err := z3log.ParseString(twoNodeLog)
	require.NoError(t, err)
	//
	g := New(p)
	//
	require.Equal(t, uint(2), g.NumNodes())
	require.Equal(t, uint(1), g.NumEdges())
	assert.Equal(t, Edge{0, 1, z3log.DepTerm, p.Dependencies()[1].Blamed}, *g.Edge(0))
	// Node 0 is a root
	assert.Equal(t, z3log.DepNone, p.Dependencies()[0].Kind)
	assert.Empty(t, g.Incoming(0))
	assert.Equal(t, []NodeIdx{0}, g.Parents(1))
	assert.Equal(t, uint(1), g.Node(1).Depth)
	// Line bijection
	for i := range g.NumNodes() {
		n, ok := g.NodeOfLine(g.Node(NodeIdx(i)).Line)
		assert.True(t, ok)
		assert.Equal(t, NodeIdx(i), n)
	}
	//
	_, ok := g.NodeOfLine(1)
	assert.False(t, ok)
}

func Test_Graph_Deterministic(t *testing.T) {
	p, err := z3log.ParseString(twoNodeLog)
	require.NoError(t, err)
	//
	g1, g2 := New(p), New(p)
	//
	assert.Equal(t, g1.Nodes(), g2.Nodes())
	assert.Equal(t, g1.Edges(), g2.Edges())
	//
	g3 := sample()
	g4 := sample()
	assert.Equal(t, g3.Nodes(), g4.Nodes())
	assert.Equal(t, g3.Edges(), g4.Edges())
}

func Test_Graph_Depth(t *testing.T) {
	g := sample()
	//
	depths := make([]uint, g.NumNodes())
	//
	for i, n := range g.Nodes() {
		depths[i] = n.Depth
	}
	//
	assert.Equal(t, []uint{0, 1, 1, 2, 3, 0, 1}, depths)
}

func Test_Graph_Reachability(t *testing.T) {
	g := sample()
	//
	assert.Equal(t, []NodeIdx{1, 3, 4}, g.Descendants(1))
	assert.Equal(t, []NodeIdx{0, 1, 2, 3, 4}, g.Ancestors(4))
	assert.Equal(t, []NodeIdx{5}, g.Ancestors(5))
	assert.Equal(t, []NodeIdx{0, 1, 3, 4}, g.LongestPath(1))
	assert.Equal(t, []NodeIdx{5, 6}, g.LongestPath(6))
}

func Test_Filter_Hide(t *testing.T) {
	v := NewView(sample())
	//
	assert.Nil(t, v.Apply(Hide{1}))
	assert.Equal(t, []NodeIdx{0, 2, 5, 6}, visibleNodes(v))
	assert.True(t, v.HasHiddenChildren(0))
	assert.False(t, v.HasHiddenParents(0))
	assert.True(t, v.HasHiddenChildren(2))
	// Hiding again is a no-op
	v.Apply(Hide{3})
	assert.Equal(t, []NodeIdx{0, 2, 5, 6}, visibleNodes(v))
}

func Test_Filter_HideReset(t *testing.T) {
	var (
		g     = sample()
		v     = NewView(g)
		full  = v.RetainVisibleNodesAndReconnect()
		chain = NewFilterChain(Hide{0})
	)
	//
	assert.Equal(t, Reduction{g.NumNodes(), g.NumEdges(), false, false}, full)
	//
	chain.ApplyTo(v)
	hidden := v.RetainVisibleNodesAndReconnect()
	assert.Equal(t, Reduction{2, 1, true, true}, hidden)
	//
	v.Apply(Reset{})
	r := v.RetainVisibleNodesAndReconnect()
	assert.Equal(t, g.NumNodes(), r.Nodes)
	assert.Equal(t, g.NumEdges(), r.Edges)
	assert.False(t, r.NodesDecreased || r.EdgesDecreased)
}

func Test_Filter_SourceTree(t *testing.T) {
	g := sample()
	//
	for i := range g.NumNodes() {
		v := NewView(g)
		n := NodeIdx(i)
		// Start from an arbitrary mask
		v.Apply(Hide{0})
		v.Apply(ShowSourceTree{n})
		//
		assert.Equal(t, naiveAncestors(g, n), visibleNodes(v), "node %d", n)
	}
}

func Test_Filter_Neighbours(t *testing.T) {
	v := NewView(sample())
	v.Apply(Hide{0})
	//
	assert.Equal(t, []NodeIdx{1, 2}, v.Apply(ShowNeighbours{0, Outgoing}))
	assert.Equal(t, []NodeIdx{1, 2, 5, 6}, visibleNodes(v))
	//
	assert.Equal(t, []NodeIdx{1, 2}, v.Apply(ShowNeighbours{3, Incoming}))
	assert.Equal(t, []NodeIdx{3}, v.Apply(ShowNeighbours{1, Outgoing}))
	assert.Equal(t, []NodeIdx{1, 2, 3, 5, 6}, visibleNodes(v))
	//
	assert.Empty(t, v.Apply(ShowNeighbours{5, Incoming}))
}

func Test_Filter_OutOfRange(t *testing.T) {
	v := NewView(sample())
	//
	for _, f := range []Filter{Hide{99}, ShowNeighbours{99, Incoming}, ShowSourceTree{99}, ShowLongestPath{99}} {
		assert.Nil(t, v.Apply(f))
		assert.Equal(t, uint(7), v.NumVisible(), f.String())
	}
}

func Test_Filter_Supplementary(t *testing.T) {
	g := sample()
	v := NewView(g)
	//
	v.Apply(HideQuantifier{1})
	assert.Equal(t, []NodeIdx{0, 1, 2, 3, 4}, visibleNodes(v))
	//
	v.Apply(Reset{})
	v.Apply(HideDiscovered{})
	assert.Equal(t, []NodeIdx{0, 1, 2, 3, 4, 5}, visibleNodes(v))
	//
	v.Apply(Reset{})
	v.Apply(MaxNodeIdx{3})
	assert.Equal(t, []NodeIdx{0, 1, 2}, visibleNodes(v))
	//
	v.Apply(Reset{})
	v.Apply(MaxDepth{1})
	assert.Equal(t, []NodeIdx{0, 1, 2, 5, 6}, visibleNodes(v))
	//
	assert.Equal(t, []NodeIdx{0, 1, 3, 4}, v.Apply(ShowLongestPath{3}))
	assert.Equal(t, []NodeIdx{0, 1, 3, 4}, visibleNodes(v))
}

func Test_Reduce_Indirect(t *testing.T) {
	g := sample()
	v := NewView(g)
	// Hide the intermediate nodes 1 and 2
	v.SetMask(maskOf(g, 0, 3, 4, 5, 6))
	v.RetainVisibleNodesAndReconnect()
	//
	expected := []VisibleEdge{
		{0, 3, Indirect, util.None[EdgeIdx](), z3log.DepNone},
		{3, 4, Direct, util.Some[EdgeIdx](4), z3log.DepTerm},
		{5, 6, Direct, util.Some[EdgeIdx](5), z3log.DepEquality},
	}
	assert.Equal(t, []NodeIdx{0, 3, 4, 5, 6}, v.VisibleGraph().Nodes)
	assert.Equal(t, expected, v.VisibleGraph().Edges)
	// Hide 3 as well, giving a two-step chain
	v.SetMask(maskOf(g, 0, 4))
	v.RetainVisibleNodesAndReconnect()
	assert.Equal(t, []VisibleEdge{{0, 4, Indirect, util.None[EdgeIdx](), z3log.DepNone}}, v.VisibleGraph().Edges)
}

func Test_Reduce_DirectShadowsIndirect(t *testing.T) {
	g := fromEdges(3, []int{0, 0, 0}, [][2]int{{0, 1}, {1, 2}, {0, 2}})
	v := NewView(g)
	v.SetMask(maskOf(g, 0, 2))
	//
	r := v.RetainVisibleNodesAndReconnect()
	//
	assert.Equal(t, Reduction{2, 1, true, true}, r)
	assert.Equal(t, []VisibleEdge{{0, 2, Direct, util.Some[EdgeIdx](2), z3log.DepTerm}}, v.VisibleGraph().Edges)
}

func Test_Reduce_Idempotent(t *testing.T) {
	g := sample()
	v := NewView(g)
	v.Apply(HideQuantifier{1})
	//
	r1 := v.RetainVisibleNodesAndReconnect()
	e1 := v.VisibleGraph()
	r2 := v.RetainVisibleNodesAndReconnect()
	e2 := v.VisibleGraph()
	//
	assert.Equal(t, r1.Nodes, r2.Nodes)
	assert.Equal(t, r1.Edges, r2.Edges)
	assert.Equal(t, e1, e2)
	assert.False(t, r2.NodesDecreased || r2.EdgesDecreased)
	// Snapshot agrees with the view
	assert.Equal(t, e1, ReduceSnapshot(g, v.Mask()))
}

func Test_Gate_01(t *testing.T) {
	limits := DefaultRenderLimits()
	//
	assert.True(t, limits.SafeToRender(Reduction{Nodes: 125, Edges: 500}))
	assert.False(t, limits.SafeToRender(Reduction{Nodes: 10, Edges: 501}))
	assert.False(t, limits.SafeToRender(Reduction{Nodes: 126, Edges: 10}))
	assert.True(t, limits.SafeToRender(Reduction{Nodes: 10, Edges: 501, EdgesDecreased: true}))
	assert.True(t, limits.SafeToRender(Reduction{Nodes: 1000, Edges: 5000, NodesDecreased: true}))
}

func Test_Gate_02(t *testing.T) {
	// Large fan-out graph: one root with 600 children
	n := 601
	edges := make([][2]int, 0, n-1)
	//
	for i := 1; i < n; i++ {
		edges = append(edges, [2]int{0, i})
	}
	//
	g := fromEdges(n, make([]int, n), edges)
	v := NewView(g)
	// Unfiltered graph is no smaller than itself
	r := v.RetainVisibleNodesAndReconnect()
	assert.False(t, DefaultRenderLimits().SafeToRender(r))
	// Filtering reduces the graph
	v.Apply(MaxNodeIdx{100})
	r = v.RetainVisibleNodesAndReconnect()
	assert.True(t, DefaultRenderLimits().SafeToRender(r))
	// Revealing everything again needs confirmation
	v.Apply(Reset{})
	r = v.RetainVisibleNodesAndReconnect()
	assert.False(t, DefaultRenderLimits().SafeToRender(r))
}

func Test_FilterChain(t *testing.T) {
	g := sample()
	v := NewView(g)
	chain := NewFilterChain()
	//
	chain.Push(Hide{1})
	chain.Push(ShowNeighbours{0, Outgoing})
	assert.Equal(t, []NodeIdx{1, 2}, chain.ApplyTo(v))
	assert.Equal(t, []NodeIdx{0, 1, 2, 5, 6}, visibleNodes(v))
	assert.Equal(t, "hide:1 neighbours:0:out", chain.String())
	//
	assert.True(t, chain.SetToPrevious())
	chain.ApplyTo(v)
	assert.Equal(t, []NodeIdx{0, 2, 5, 6}, visibleNodes(v))
	//
	chain.Push(Reset{})
	assert.Equal(t, uint(0), chain.Len())
	assert.False(t, chain.SetToPrevious())
}

func Test_Info(t *testing.T) {
	p, err := z3log.ParseString(twoNodeLog)
	require.NoError(t, err)
	//
	g := New(p)
	info := g.InstInfo(1, p, z3log.DefaultPrintOptions())
	//
	assert.Equal(t, "q1", info.Quant)
	assert.Equal(t, "0x2", info.Fingerprint)
	assert.Equal(t, uint(12), info.MatchLine)
	assert.Equal(t, uint(13), info.Line)
	assert.Equal(t, "pattern(f(qvar_0))", info.Pattern)
	assert.Equal(t, []string{"f(a)"}, info.Blamed)
	assert.Equal(t, []NodeIdx{0}, info.Parents)
	assert.Empty(t, info.Children)
	//
	edge := g.EdgeInfo(0, p, z3log.DefaultPrintOptions())
	assert.Equal(t, "f(a)", edge.Blamed)
	assert.Equal(t, z3log.DepTerm, edge.Kind)
	assert.Equal(t, "q1", edge.FromQuant)
}

func Test_WriteDot(t *testing.T) {
	g := sample()
	v := NewView(g)
	v.SetMask(maskOf(g, 0, 3, 4, 5, 6))
	v.RetainVisibleNodesAndReconnect()
	//
	var out strings.Builder
	require.NoError(t, WriteDot(&out, v, 2))
	dot := out.String()
	//
	assert.True(t, strings.HasPrefix(dot, "digraph {\n"))
	assert.Contains(t, dot, "0 -> 3 [ id=indirect style=dashed class=indirect arrowhead=normal ]")
	assert.Contains(t, dot, "3 -> 4 [ id=edge4 style=solid class=direct arrowhead=normal ]")
	assert.Contains(t, dot, "5 -> 6 [ id=edge5 style=solid class=direct arrowhead=empty ]")
	assert.Contains(t, dot, "id=node3 label=\"3\"")
	assert.Equal(t, 5, strings.Count(dot, "shape=oval"))
}

func Test_Coprime(t *testing.T) {
	assert.Equal(t, uint(13), findCoprime(2))
	assert.Equal(t, uint(17), findCoprime(13))
	assert.Equal(t, uint(19), findCoprime(13*17))
	assert.Equal(t, uint(1), findCoprime(0))
}

// ===================================================================
// Test Helpers
// ===================================================================

// sample constructs the following graph, where nodes 0-4 instantiate
// quantifier 0 and nodes 5-6 instantiate quantifier 1 (discovered for 6):
//
//	0 -> 1 -> 3 -> 4
//	0 -> 2 -> 3
//	5 => 6 (equality)
func sample() *Graph {
	return fromEdges(7, []int{0, 0, 0, 0, 0, 1, 1}, [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}, {3, 4}, {5, 6}})
}

// fakeSource stands in for a parser.
type fakeSource struct {
	insts []z3log.Instantiation
	deps  []z3log.Dependency
}

func (p *fakeSource) Instantiations() []z3log.Instantiation {
	return p.insts
}

func (p *fakeSource) Dependencies() []z3log.Dependency {
	return p.deps
}

// fromEdges constructs a graph whose node i has instance line 10*(i+1).
// The last node is discovered when it belongs to quantifier 1, and edges
// ending there are equalities.
func fromEdges(n int, quants []int, edges [][2]int) *Graph {
	src := &fakeSource{}
	//
	for i := range n {
		src.insts = append(src.insts, z3log.Instantiation{
			MatchLine:  uint(10*(i+1) - 1),
			Line:       util.Some(uint(10 * (i + 1))),
			Quant:      z3log.QuantIdx(quants[i]),
			Discovered: i == n-1 && quants[i] == 1,
		})
		// Roots are documented with causeless dependencies
		src.deps = append(src.deps, z3log.Dependency{To: util.Some(uint(10 * (i + 1)))})
	}
	//
	for _, e := range edges {
		kind := z3log.DepTerm
		//
		if e[1] == n-1 && quants[e[1]] == 1 {
			kind = z3log.DepEquality
		}
		//
		src.deps = append(src.deps, z3log.Dependency{
			From: util.Some(uint(10 * (e[0] + 1))),
			To:   util.Some(uint(10 * (e[1] + 1))),
			Kind: kind,
		})
	}
	//
	return New(src)
}

func maskOf(g *Graph, nodes ...NodeIdx) *bitset.BitSet {
	mask := bitset.New(g.NumNodes())
	//
	for _, n := range nodes {
		mask.Set(uint(n))
	}
	//
	return mask
}

func visibleNodes(v *View) []NodeIdx {
	var nodes []NodeIdx
	//
	for i := range v.Graph().NumNodes() {
		if v.Visible(NodeIdx(i)) {
			nodes = append(nodes, NodeIdx(i))
		}
	}
	//
	return nodes
}

// naiveAncestors computes ancestors by repeatedly scanning all edges until a
// fixed point is reached.
func naiveAncestors(g *Graph, n NodeIdx) []NodeIdx {
	set := map[NodeIdx]bool{n: true}
	//
	for changed := true; changed; {
		changed = false
		//
		for _, e := range g.Edges() {
			if set[e.To] && !set[e.From] {
				set[e.From] = true
				changed = true
			}
		}
	}
	//
	var nodes []NodeIdx
	//
	for m := range set {
		nodes = append(nodes, m)
	}
	//
	slices.Sort(nodes)
	//
	return nodes
}
