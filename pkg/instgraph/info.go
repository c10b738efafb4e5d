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

// InstInfo describes a node in terms of the log it was built from, for
// display in an inspection panel.
type InstInfo struct {
	Node        NodeIdx
	Line        uint
	MatchLine   uint
	Fingerprint string
	Quant       string
	Discovered  bool
	Depth       uint
	Cost        float64
	// Rendered terms (empty when absent)
	Resulting     string
	Pattern       string
	Bound         []string
	Yields        []string
	Blamed        []string
	EqualityExpls []string
	// Nodes of the instantiations this one depends upon.
	Parents  []NodeIdx
	Children []NodeIdx
}

// InstInfo describes a given node, rendering terms with given options.
func (p *Graph) InstInfo(n NodeIdx, log *z3log.Parser, opts z3log.PrintOptions) InstInfo {
	var (
		node = &p.nodes[n]
		inst = log.Instantiation(node.Inst)
		info = InstInfo{
			Node:        n,
			Line:        node.Line,
			MatchLine:   inst.MatchLine,
			Fingerprint: inst.Fingerprint.String(),
			Quant:       log.QuantName(inst.Quant),
			Discovered:  inst.Discovered,
			Depth:       node.Depth,
			Cost:        inst.Cost,
			Parents:     sortedUnique(p.Parents(n)),
			Children:    sortedUnique(p.Children(n)),
		}
	)
	//
	if t, ok := inst.ResultingTerm.Get(); ok {
		info.Resulting = log.PrettyTerm(t, opts)
	}
	//
	if t, ok := inst.Pattern.Get(); ok {
		info.Pattern = log.PrettyTerm(t, opts)
	}
	//
	info.Bound = prettyTerms(log, inst.BoundTerms, opts)
	info.Yields = prettyTerms(log, inst.YieldsTerms, opts)
	info.EqualityExpls = prettyTerms(log, inst.EqualityExpls, opts)
	//
	for _, b := range inst.BlamedTerms {
		info.Blamed = append(info.Blamed, prettyBlamed(log, b, opts))
	}
	//
	return info
}

// EdgeInfo describes an edge of the full graph for display.
type EdgeInfo struct {
	Edge   EdgeIdx
	From   NodeIdx
	To     NodeIdx
	Kind   z3log.DepKind
	Blamed string
	// Quantifiers of the two instantiations.
	FromQuant string
	ToQuant   string
}

// EdgeInfo describes a given edge, rendering terms with given options.
func (p *Graph) EdgeInfo(e EdgeIdx, log *z3log.Parser, opts z3log.PrintOptions) EdgeInfo {
	edge := &p.edges[e]
	info := EdgeInfo{
		Edge:      e,
		From:      edge.From,
		To:        edge.To,
		Kind:      edge.Kind,
		FromQuant: log.QuantName(p.nodes[edge.From].Quant),
		ToQuant:   log.QuantName(p.nodes[edge.To].Quant),
	}
	//
	if t, ok := edge.Blamed.Get(); ok {
		info.Blamed = log.PrettyTerm(t, opts)
	}
	//
	return info
}

func prettyTerms(log *z3log.Parser, terms []z3log.TermIdx, opts z3log.PrintOptions) []string {
	var strs []string
	//
	for _, t := range terms {
		strs = append(strs, log.PrettyTerm(t, opts))
	}
	//
	return strs
}

func prettyBlamed(log *z3log.Parser, b z3log.BlamedTerm, opts z3log.PrintOptions) string {
	if second, ok := b.Second.Get(); ok {
		return fmt.Sprintf("%s = %s", log.PrettyTerm(b.First, opts), log.PrettyTerm(second, opts))
	}
	//
	return log.PrettyTerm(b.First, opts)
}
