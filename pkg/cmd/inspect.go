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
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/consensys/go-axprof/pkg/instgraph"
	"github.com/consensys/go-axprof/pkg/z3log"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] log_file node...",
	Short: "print details of instantiations in the graph of a log.",
	Long: `Print the details of one or more nodes of the instantiation graph of
	a log: the quantifier instantiated, the matched pattern, the bound and
	blamed terms, and the edges to and from the node.  Nodes may be given by
	index, or by instance line with the prefix "@" (e.g. @1024).`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		settings, shutdown := configure(cmd)
		defer shutdown()
		//
		var (
			p    = readLogOrExit(args[0], settings)
			g    = instgraph.New(p)
			opts = settings.PrintOptions(GetFlag(cmd, "ids"))
		)
		//
		for _, arg := range args[1:] {
			n, err := resolveNode(g, arg)
			if err != nil {
				fmt.Println(err)
				os.Exit(2)
			}
			//
			printInstInfo(os.Stdout, g, p, n, opts)
		}
	},
}

// resolveNode determines the node identified by either an index or an
// instance line (prefixed with "@").
func resolveNode(g *instgraph.Graph, arg string) (instgraph.NodeIdx, error) {
	line, byLine := strings.CutPrefix(arg, "@")
	//
	n, err := strconv.ParseUint(line, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid node %q", arg)
	}
	//
	if byLine {
		if node, ok := g.NodeOfLine(uint(n)); ok {
			return node, nil
		}
		//
		return 0, fmt.Errorf("no instance on line %d", n)
	} else if !g.Contains(instgraph.NodeIdx(n)) {
		return 0, fmt.Errorf("node %d out of range (graph has %d nodes)", n, g.NumNodes())
	}
	//
	return instgraph.NodeIdx(n), nil
}

func printInstInfo(w io.Writer, g *instgraph.Graph, p *z3log.Parser, n instgraph.NodeIdx, opts z3log.PrintOptions) {
	info := g.InstInfo(n, p, opts)
	//
	fmt.Fprintf(w, "node %d: %s (line %d, matched on line %d)\n", info.Node, info.Quant, info.Line, info.MatchLine)
	fmt.Fprintf(w, "  fingerprint: %s\n", info.Fingerprint)
	fmt.Fprintf(w, "  depth: %d, cost: %g, discovered: %t\n", info.Depth, info.Cost, info.Discovered)
	//
	printField(w, "pattern", info.Pattern)
	printField(w, "resulting", info.Resulting)
	printList(w, "bound", info.Bound)
	printList(w, "blamed", info.Blamed)
	printList(w, "equalities", info.EqualityExpls)
	printList(w, "yields", info.Yields)
	//
	for _, e := range g.Incoming(n) {
		edge := g.EdgeInfo(e, p, opts)
		fmt.Fprintf(w, "  <- %d (%s) %s\n", edge.From, edge.Kind, edge.Blamed)
	}
	//
	for _, e := range g.Outgoing(n) {
		edge := g.EdgeInfo(e, p, opts)
		fmt.Fprintf(w, "  -> %d (%s) %s\n", edge.To, edge.Kind, edge.Blamed)
	}
}

func printField(w io.Writer, name string, value string) {
	if value != "" {
		fmt.Fprintf(w, "  %s: %s\n", name, value)
	}
}

func printList(w io.Writer, name string, values []string) {
	if len(values) == 0 {
		return
	}
	//
	fmt.Fprintf(w, "  %s:\n", name)
	//
	for _, v := range values {
		fmt.Fprintf(w, "    %s\n", v)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("ids", false, "prefix terms with their identifiers")
}
