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

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-axprof/pkg/util/collection/stack"
)

// Descendants returns a node together with every node reachable from it by
// following edges forwards, in ascending order.
func (p *Graph) Descendants(n NodeIdx) []NodeIdx {
	return p.reachable(n, p.Children)
}

// Ancestors returns a node together with every node reachable from it by
// following edges backwards, in ascending order.
func (p *Graph) Ancestors(n NodeIdx) []NodeIdx {
	return p.reachable(n, p.Parents)
}

func (p *Graph) reachable(start NodeIdx, next func(NodeIdx) []NodeIdx) []NodeIdx {
	var (
		seen  = bitset.New(p.NumNodes())
		work  = stack.NewStack[NodeIdx]()
		nodes []NodeIdx
	)
	//
	work.Push(start)
	seen.Set(uint(start))
	//
	for !work.IsEmpty() {
		n := work.Pop()
		//
		for _, m := range next(n) {
			if !seen.Test(uint(m)) {
				seen.Set(uint(m))
				work.Push(m)
			}
		}
	}
	//
	for i, ok := seen.NextSet(0); ok; i, ok = seen.NextSet(i + 1) {
		nodes = append(nodes, NodeIdx(i))
	}
	//
	return nodes
}

// LongestPath returns a longest path from a root to a leaf which passes
// through a given node.  Ties are broken in favour of the earliest edge.
func (p *Graph) LongestPath(n NodeIdx) []NodeIdx {
	var (
		heights = p.heights()
		path    []NodeIdx
	)
	// Walk backwards to a root
	for cur := n; ; {
		path = append(path, cur)
		//
		if p.nodes[cur].Depth == 0 {
			break
		}
		//
		for _, parent := range p.Parents(cur) {
			if p.nodes[parent].Depth+1 == p.nodes[cur].Depth {
				cur = parent
				break
			}
		}
	}
	//
	slices.Reverse(path)
	// Walk forwards to a leaf
	for cur := n; heights[cur] != 0; {
		for _, child := range p.Children(cur) {
			if heights[child]+1 == heights[cur] {
				cur = child
				break
			}
		}
		//
		path = append(path, cur)
	}
	//
	return path
}

// heights computes the length of the longest path from each node to a leaf.
func (p *Graph) heights() []uint {
	heights := make([]uint, len(p.nodes))
	//
	for i := len(p.nodes) - 1; i >= 0; i-- {
		for _, child := range p.Children(NodeIdx(i)) {
			if int(child) > i {
				heights[i] = max(heights[i], heights[child]+1)
			}
		}
	}
	//
	return heights
}

func sortedUnique(nodes []NodeIdx) []NodeIdx {
	slices.Sort(nodes)
	return slices.Compact(nodes)
}
