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
	"fmt"

	"github.com/consensys/go-axprof/pkg/z3log"
)

// Direction of a node's neighbours.
type Direction uint8

const (
	// Incoming neighbours are the causes of a node.
	Incoming Direction = iota
	// Outgoing neighbours are the effects of a node.
	Outgoing
)

func (p Direction) String() string {
	if p == Incoming {
		return "in"
	}
	//
	return "out"
}

// Filter is an operation which changes the visibility of nodes in a view.
// The set of filters is closed, and they are applied by View.Apply.
type Filter interface {
	fmt.Stringer
	// Prevents implementations outside this package.
	isFilter()
}

// Hide a node along with all of its descendants.
type Hide struct {
	Node NodeIdx
}

// ShowNeighbours makes visible every node adjacent to a given node in a given
// direction, without affecting any other node.
type ShowNeighbours struct {
	Node      NodeIdx
	Direction Direction
}

// ShowSourceTree makes visible exactly a node and its ancestors.
type ShowSourceTree struct {
	Node NodeIdx
}

// Reset restores full visibility.
type Reset struct{}

// HideQuantifier hides every instantiation of a given quantifier.
type HideQuantifier struct {
	Quant z3log.QuantIdx
}

// HideDiscovered hides every instantiation found by theory solving or MBQI.
type HideDiscovered struct{}

// MaxNodeIdx hides every node whose index is at least the given limit.
type MaxNodeIdx struct {
	Limit uint
}

// MaxDepth hides every node deeper than a given depth.
type MaxDepth struct {
	Depth uint
}

// ShowLongestPath makes visible exactly the longest path through a given
// node, from a root to a leaf.
type ShowLongestPath struct {
	Node NodeIdx
}

func (Hide) isFilter()            {}
func (ShowNeighbours) isFilter()  {}
func (ShowSourceTree) isFilter()  {}
func (Reset) isFilter()           {}
func (HideQuantifier) isFilter()  {}
func (HideDiscovered) isFilter()  {}
func (MaxNodeIdx) isFilter()      {}
func (MaxDepth) isFilter()        {}
func (ShowLongestPath) isFilter() {}

func (p Hide) String() string {
	return fmt.Sprintf("hide:%d", p.Node)
}

func (p ShowNeighbours) String() string {
	return fmt.Sprintf("neighbours:%d:%s", p.Node, p.Direction)
}

func (p ShowSourceTree) String() string {
	return fmt.Sprintf("source:%d", p.Node)
}

func (p Reset) String() string {
	return "reset"
}

func (p HideQuantifier) String() string {
	return fmt.Sprintf("hide-quant:%d", p.Quant)
}

func (p HideDiscovered) String() string {
	return "hide-discovered"
}

func (p MaxNodeIdx) String() string {
	return fmt.Sprintf("max-node:%d", p.Limit)
}

func (p MaxDepth) String() string {
	return fmt.Sprintf("max-depth:%d", p.Depth)
}

func (p ShowLongestPath) String() string {
	return fmt.Sprintf("longest:%d", p.Node)
}

// Apply a filter to this view, returning the nodes it revealed for those
// filters which reveal specific nodes (otherwise nil).  Filters referring to
// nodes outside the graph have no effect.
func (p *View) Apply(filter Filter) []NodeIdx {
	g := p.graph
	//
	switch f := filter.(type) {
	case Hide:
		if g.Contains(f.Node) {
			for _, n := range g.Descendants(f.Node) {
				p.mask.Clear(uint(n))
			}
		}
	case ShowNeighbours:
		if g.Contains(f.Node) {
			return p.showNeighbours(f.Node, f.Direction)
		}
	case ShowSourceTree:
		if g.Contains(f.Node) {
			p.mask.ClearAll()
			//
			for _, n := range g.Ancestors(f.Node) {
				p.mask.Set(uint(n))
			}
		}
	case Reset:
		p.Reset()
	case HideQuantifier:
		p.hideWhere(func(n *Node) bool { return n.Quant == f.Quant })
	case HideDiscovered:
		p.hideWhere(func(n *Node) bool { return n.Discovered })
	case MaxNodeIdx:
		p.hideWhere(func(n *Node) bool { return uint(n.Inst) >= f.Limit })
	case MaxDepth:
		p.hideWhere(func(n *Node) bool { return n.Depth > f.Depth })
	case ShowLongestPath:
		if g.Contains(f.Node) {
			path := g.LongestPath(f.Node)
			//
			p.mask.ClearAll()
			//
			for _, n := range path {
				p.mask.Set(uint(n))
			}
			//
			return path
		}
	default:
		panic(fmt.Sprintf("unknown filter %s", filter))
	}
	//
	return nil
}

func (p *View) showNeighbours(node NodeIdx, dir Direction) []NodeIdx {
	var neighbours []NodeIdx
	//
	if dir == Incoming {
		neighbours = p.graph.Parents(node)
	} else {
		neighbours = p.graph.Children(node)
	}
	//
	neighbours = sortedUnique(neighbours)
	//
	for _, n := range neighbours {
		p.mask.Set(uint(n))
	}
	//
	return neighbours
}

func (p *View) hideWhere(pred func(*Node) bool) {
	for i := range p.graph.nodes {
		if pred(&p.graph.nodes[i]) {
			p.mask.Clear(uint(i))
		}
	}
}
