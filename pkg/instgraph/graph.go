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
	"github.com/consensys/go-axprof/pkg/util"
	"github.com/consensys/go-axprof/pkg/z3log"
	log "github.com/sirupsen/logrus"
)

// NodeIdx identifies a node of the full instantiation graph.  Nodes are
// numbered in the same order as the instantiations they represent.
type NodeIdx uint

// EdgeIdx identifies an edge of the full instantiation graph.
type EdgeIdx uint

// Source provides the finalised results of parsing a log.  This is satisfied
// by *z3log.Parser.
type Source interface {
	Instantiations() []z3log.Instantiation
	Dependencies() []z3log.Dependency
}

// Node of the full graph, corresponding to exactly one instantiation.
type Node struct {
	Inst z3log.InstIdx
	// Line of the instance event.
	Line       uint
	Quant      z3log.QuantIdx
	Discovered bool
	Cost       float64
	// Length of the longest path from a root to this node.
	Depth uint
}

// Edge of the full graph, corresponding to exactly one causal dependency.
type Edge struct {
	From   NodeIdx
	To     NodeIdx
	Kind   z3log.DepKind
	Blamed util.Option[z3log.TermIdx]
}

// Graph is the immutable instantiation graph built from a finalised parser
// state.  Filtering never modifies a graph, instead it operates on a View.
type Graph struct {
	nodes []Node
	edges []Edge
	// Outgoing and incoming edges for each node.
	outgoing [][]EdgeIdx
	incoming [][]EdgeIdx
	// Maps instance lines to nodes.
	lines map[uint]NodeIdx
}

// New builds the full graph for a given source.  One node is allocated per
// instantiation (in index order) and then one edge per dependency which
// records a cause.
func New(src Source) *Graph {
	var (
		insts = src.Instantiations()
		deps  = src.Dependencies()
		g     = &Graph{
			nodes:    make([]Node, len(insts)),
			outgoing: make([][]EdgeIdx, len(insts)),
			incoming: make([][]EdgeIdx, len(insts)),
			lines:    make(map[uint]NodeIdx, len(insts)),
		}
	)
	//
	for i, inst := range insts {
		line := inst.Line.UnwrapOr(inst.MatchLine)
		//
		g.nodes[i] = Node{
			Inst:       z3log.InstIdx(i),
			Line:       line,
			Quant:      inst.Quant,
			Discovered: inst.Discovered,
			Cost:       inst.Cost,
		}
		g.lines[line] = NodeIdx(i)
	}
	//
	for _, dep := range deps {
		if dep.Kind == z3log.DepNone {
			continue
		}
		//
		from, ok1 := g.lookup(dep.From)
		to, ok2 := g.lookup(dep.To)
		// Dependencies of blocks which never closed have no destination.
		if !ok1 || !ok2 {
			log.Debugf("skipping dependency %v -> %v", dep.From, dep.To)
			continue
		}
		//
		g.addEdge(Edge{from, to, dep.Kind, dep.Blamed})
	}
	//
	g.computeDepths()
	//
	return g
}

// NumNodes returns the number of nodes in the full graph.
func (p *Graph) NumNodes() uint {
	return uint(len(p.nodes))
}

// NumEdges returns the number of edges in the full graph.
func (p *Graph) NumEdges() uint {
	return uint(len(p.edges))
}

// Node returns the node with the given index.
func (p *Graph) Node(n NodeIdx) *Node {
	return &p.nodes[n]
}

// Nodes returns all nodes of the graph.
func (p *Graph) Nodes() []Node {
	return p.nodes
}

// Edge returns the edge with the given index.
func (p *Graph) Edge(e EdgeIdx) *Edge {
	return &p.edges[e]
}

// Edges returns all edges of the graph, in dependency order.
func (p *Graph) Edges() []Edge {
	return p.edges
}

// Outgoing returns the edges leaving a given node.
func (p *Graph) Outgoing(n NodeIdx) []EdgeIdx {
	return p.outgoing[n]
}

// Incoming returns the edges entering a given node.
func (p *Graph) Incoming(n NodeIdx) []EdgeIdx {
	return p.incoming[n]
}

// Children returns the targets of all edges leaving a given node (which may
// contain duplicates).
func (p *Graph) Children(n NodeIdx) []NodeIdx {
	children := make([]NodeIdx, len(p.outgoing[n]))
	//
	for i, e := range p.outgoing[n] {
		children[i] = p.edges[e].To
	}
	//
	return children
}

// Parents returns the sources of all edges entering a given node (which may
// contain duplicates).
func (p *Graph) Parents(n NodeIdx) []NodeIdx {
	parents := make([]NodeIdx, len(p.incoming[n]))
	//
	for i, e := range p.incoming[n] {
		parents[i] = p.edges[e].From
	}
	//
	return parents
}

// NodeOfLine returns the node whose instance event occurred on a given line.
func (p *Graph) NodeOfLine(line uint) (NodeIdx, bool) {
	n, ok := p.lines[line]
	return n, ok
}

// Contains checks whether a given node index is within range.
func (p *Graph) Contains(n NodeIdx) bool {
	return uint(n) < uint(len(p.nodes))
}

func (p *Graph) lookup(line util.Option[uint]) (NodeIdx, bool) {
	if l, ok := line.Get(); ok {
		return p.NodeOfLine(l)
	}
	//
	return 0, false
}

func (p *Graph) addEdge(edge Edge) {
	idx := EdgeIdx(len(p.edges))
	p.edges = append(p.edges, edge)
	p.outgoing[edge.From] = append(p.outgoing[edge.From], idx)
	p.incoming[edge.To] = append(p.incoming[edge.To], idx)
}

// computeDepths relies on node order being topological: a blamed term is
// always produced by an earlier instantiation.
func (p *Graph) computeDepths() {
	for n := range p.nodes {
		var depth uint
		//
		for _, e := range p.incoming[n] {
			from := p.edges[e].From
			//
			if int(from) < n {
				depth = max(depth, p.nodes[from].Depth+1)
			}
		}
		//
		p.nodes[n].Depth = depth
	}
}
