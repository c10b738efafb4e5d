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
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/consensys/go-axprof/pkg/z3log"
)

// Layout settings which keep layout time reasonable for large graphs.
var dotSettings = []string{"ranksep=1.0;", "splines=false;", "nslimit=6;", "mclimit=0.6;"}

// WriteDot writes the most recently reduced visible graph of a view in the
// graphviz DOT format.  Nodes are coloured by quantifier, with a gradient
// towards any side on which neighbours are hidden.  Direct edges are solid
// and indirect edges dashed.
func WriteDot(w io.Writer, view *View, numQuants uint) error {
	var (
		out     = bufio.NewWriter(w)
		colours = newColourMap(numQuants)
		visible = view.VisibleGraph()
	)
	//
	if visible == nil {
		visible = ReduceSnapshot(view.graph, view.mask)
	}
	//
	fmt.Fprintln(out, "digraph {")
	fmt.Fprintln(out, strings.Join(dotSettings, "\n"))
	//
	for _, n := range visible.Nodes {
		var (
			quant  = view.graph.nodes[n].Quant
			colour string
		)
		//
		switch children, parents := view.HasHiddenChildren(n), view.HasHiddenParents(n); {
		case children && parents:
			colour = colours.get(quant, 0.3)
		case children:
			colour = colours.get(quant, 0.1) + ":" + colours.get(quant, 1.0)
		case parents:
			colour = colours.get(quant, 1.0) + ":" + colours.get(quant, 0.1)
		default:
			colour = colours.get(quant, 0.7)
		}
		//
		fmt.Fprintf(out, "    %d [ id=node%d label=\"%d\" style=filled shape=oval fillcolor=\"%s\" "+
			"fontcolor=black gradientangle=90 ]\n", n, n, n, colour)
	}
	//
	for _, e := range visible.Edges {
		id, style, class, arrow := "indirect", "dashed", "indirect", "normal"
		//
		if idx, ok := e.Edge.Get(); ok {
			id, style, class = fmt.Sprintf("edge%d", idx), "solid", "direct"
			//
			if e.Dep == z3log.DepEquality {
				arrow = "empty"
			}
		}
		//
		fmt.Fprintf(out, "    %d -> %d [ id=%s style=%s class=%s arrowhead=%s ]\n", e.From, e.To, id, style, class, arrow)
	}
	//
	fmt.Fprintln(out, "}")
	//
	return out.Flush()
}

// colourMap assigns each quantifier a hue, permuting indices so that
// consecutive quantifiers receive distinct hues.
type colourMap struct {
	total   uint
	coprime uint
}

func newColourMap(total uint) colourMap {
	return colourMap{total, findCoprime(total)}
}

// get returns an HSV colour in graphviz notation.
func (p colourMap) get(quant z3log.QuantIdx, sat float64) string {
	if p.total == 0 {
		return fmt.Sprintf("0 %g 0.95", sat)
	}
	//
	perm := (uint(quant) * p.coprime) % p.total
	//
	return fmt.Sprintf("%g %g 0.95", float64(perm)/float64(p.total), sat)
}

// findCoprime returns the smallest prime from 13 upwards which does not
// divide n.
func findCoprime(n uint) uint {
	if n == 0 {
		return 1
	}
	//
	for p := uint(13); ; p += 2 {
		if isPrime(p) && n%p != 0 {
			return p
		}
	}
}

func isPrime(n uint) bool {
	for d := uint(2); d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	//
	return n >= 2
}
