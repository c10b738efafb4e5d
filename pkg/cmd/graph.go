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
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/consensys/go-axprof/pkg/instgraph"
	"github.com/consensys/go-axprof/pkg/util"
	"github.com/consensys/go-axprof/pkg/z3log"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

var graphCmd = &cobra.Command{
	Use:   "graph [flags] log_file",
	Short: "build the instantiation graph of a log and write it as DOT.",
	Long: `Build the instantiation graph of a log, apply a chain of filters
	to it and write the visible graph in the graphviz DOT format.  Hidden
	chains between visible nodes are shown as dashed (indirect) edges.
	Filters are applied in the order given, and are written as follows:

	hide:N              hide node N and its descendants
	neighbours:N:in|out show the parents (in) or children (out) of node N
	source:N            show only node N and its ancestors
	reset               show all nodes
	hide-quant:Q        hide all instantiations of quantifier Q
	hide-discovered     hide instantiations found by theory solving or MBQI
	max-node:N          hide all nodes from N onwards
	max-depth:D         hide all nodes deeper than D
	longest:N           show only the longest path through node N`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		settings, shutdown := configure(cmd)
		defer shutdown()
		//
		chain, err := parseFilters(GetStringArray(cmd, "filter"))
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		p := readLogOrExit(args[0], settings)
		view, r := buildView(p, chain)
		//
		fmt.Fprintf(os.Stderr, "%d of %d nodes visible, %d edges\n", r.Nodes, view.Graph().NumNodes(), r.Edges)
		//
		if !settings.RenderLimits().SafeToRender(r) && !GetFlag(cmd, "force") {
			fmt.Fprintf(os.Stderr, "graph has %d nodes and %d edges, rendering might be slow (use --force)\n",
				r.Nodes, r.Edges)
			shutdown()
			os.Exit(3)
		}
		//
		if err := writeGraph(GetString(cmd, "output"), view, uint(len(p.Quantifiers()))); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

// buildView constructs the graph of a log, applies a chain of filters and
// reduces the result.
func buildView(p *z3log.Parser, chain *instgraph.FilterChain) (*instgraph.View, instgraph.Reduction) {
	ctx, span := tracer.Start(context.Background(), "build")
	stats := util.NewPerfStats()
	g := instgraph.New(p)
	//
	span.SetAttributes(attribute.Int64("nodes", int64(g.NumNodes())), attribute.Int64("edges", int64(g.NumEdges())))
	span.End()
	stats.Log("Building graph")
	//
	_, span = tracer.Start(ctx, "reduce")
	defer span.End()
	//
	stats = util.NewPerfStats()
	view := instgraph.NewView(g)
	//
	if path := chain.ApplyTo(view); len(path) > 0 {
		log.Debugf("filter %s revealed %v", chain, path)
	}
	//
	r := view.RetainVisibleNodesAndReconnect()
	stats.Log("Reducing graph")
	//
	return view, r
}

func writeGraph(filename string, view *instgraph.View, numQuants uint) error {
	var out io.Writer = os.Stdout
	//
	if filename != "" {
		file, err := os.Create(filename)
		if err != nil {
			return err
		}
		//
		defer file.Close()
		//
		out = file
	}
	//
	return instgraph.WriteDot(out, view, numQuants)
}

// parseFilters parses a sequence of filter specifications into a chain.
func parseFilters(specs []string) (*instgraph.FilterChain, error) {
	chain := instgraph.NewFilterChain()
	//
	for _, spec := range specs {
		filter, err := parseFilter(spec)
		if err != nil {
			return nil, err
		}
		//
		chain.Push(filter)
	}
	//
	return chain, nil
}

// Number of numeric arguments taken by each filter.
var filterArity = map[string]int{
	"hide":            1,
	"neighbours":      1,
	"source":          1,
	"reset":           0,
	"hide-quant":      1,
	"hide-discovered": 0,
	"max-node":        1,
	"max-depth":       1,
	"longest":         1,
}

// parseFilter parses a filter specification such as "hide:3" or
// "neighbours:4:in".
func parseFilter(spec string) (instgraph.Filter, error) {
	var (
		fields = strings.Split(spec, ":")
		args   = make([]uint, 0, 1)
		dir    = instgraph.Outgoing
	)
	//
	if fields[0] == "neighbours" && len(fields) == 3 {
		switch fields[2] {
		case "in":
			dir = instgraph.Incoming
		case "out":
			dir = instgraph.Outgoing
		default:
			return nil, fmt.Errorf("invalid direction %q in filter %q", fields[2], spec)
		}
		//
		fields = fields[:2]
	}
	//
	for _, f := range fields[1:] {
		n, err := strconv.ParseUint(f, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q in filter %q", f, spec)
		}
		//
		args = append(args, uint(n))
	}
	//
	arity, ok := filterArity[fields[0]]
	//
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", spec)
	} else if len(args) != arity {
		return nil, fmt.Errorf("filter %q expects %d argument(s)", spec, arity)
	}
	//
	switch fields[0] {
	case "hide":
		return instgraph.Hide{Node: instgraph.NodeIdx(args[0])}, nil
	case "neighbours":
		return instgraph.ShowNeighbours{Node: instgraph.NodeIdx(args[0]), Direction: dir}, nil
	case "source":
		return instgraph.ShowSourceTree{Node: instgraph.NodeIdx(args[0])}, nil
	case "reset":
		return instgraph.Reset{}, nil
	case "hide-quant":
		return instgraph.HideQuantifier{Quant: z3log.QuantIdx(args[0])}, nil
	case "hide-discovered":
		return instgraph.HideDiscovered{}, nil
	case "max-node":
		return instgraph.MaxNodeIdx{Limit: args[0]}, nil
	case "max-depth":
		return instgraph.MaxDepth{Depth: args[0]}, nil
	case "longest":
		return instgraph.ShowLongestPath{Node: instgraph.NodeIdx(args[0])}, nil
	}
	// Unreachable for names in filterArity
	return nil, fmt.Errorf("unknown filter %q", spec)
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringArrayP("filter", "f", nil, "apply a filter (may be repeated)")
	graphCmd.Flags().Bool("force", false, "render even when the graph is large")
	graphCmd.Flags().StringP("output", "o", "", "write DOT to this file rather than stdout")
}
