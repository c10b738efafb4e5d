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
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/consensys/go-axprof/pkg/util"
	"github.com/consensys/go-axprof/pkg/z3log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] log_file...",
	Short: "parse one or more logs and summarise their instantiations.",
	Long: `Parse one or more solver logs, reporting the number of terms,
	quantifiers and instantiations in each along with the most frequently
	instantiated quantifiers.  Logs are parsed concurrently.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		settings, shutdown := configure(cmd)
		defer shutdown()
		//
		if cmd.Flags().Changed("jobs") {
			settings.Jobs = max(1, GetUint(cmd, "jobs"))
		}
		//
		if cmd.Flags().Changed("top") {
			settings.Top = GetUint(cmd, "top")
		}
		//
		var (
			metricsFile = GetString(cmd, "metrics")
			metrics     = newParseMetrics()
			results     = parseLogs(args, settings, metrics)
			failed      = false
		)
		//
		for _, r := range results {
			if r.err != nil {
				printParseError(r.filename, r.err)
				//
				failed = true
			}
			//
			printSummary(r)
			printTopQuantifiers(r.log, settings.Top)
		}
		//
		if metricsFile != "" {
			if err := metrics.writeFile(metricsFile); err != nil {
				fmt.Println(err)
				os.Exit(2)
			}
		}
		//
		if failed {
			shutdown()
			os.Exit(2)
		}
	},
}

// parseResult is the outcome of parsing a single log.
type parseResult struct {
	filename string
	log      *z3log.Parser
	timedOut bool
	err      error
}

// parseLogs parses a set of logs concurrently, with at most settings.Jobs in
// flight at any time.  Results are returned in the order given.
func parseLogs(filenames []string, settings Settings, metrics *parseMetrics) []parseResult {
	var (
		results = make([]parseResult, len(filenames))
		group   errgroup.Group
	)
	//
	group.SetLimit(int(max(1, settings.Jobs)))
	//
	for i, filename := range filenames {
		group.Go(func() error {
			stats := util.NewPerfStats()
			log, timedOut, err := readLog(context.Background(), filename, settings.Timeout)
			//
			metrics.record(log, stats.Elapsed(), timedOut, err)
			results[i] = parseResult{filename, log, timedOut, err}
			// Failures are reported per log
			return nil
		})
	}
	//
	_ = group.Wait()
	//
	return results
}

func printSummary(r parseResult) {
	var (
		version = "unknown solver"
		status  = ""
	)
	//
	if v, ok := r.log.Version().Get(); ok {
		version = fmt.Sprintf("%s %s", v.Solver, v.Version)
	}
	//
	if r.timedOut {
		status = " (timed out)"
	} else if r.err != nil {
		status = " (incomplete)"
	}
	//
	fmt.Printf("%s: %s, %d lines, %d terms, %d quantifiers, %d instantiations, %d dependencies%s\n",
		r.filename, version, r.log.Line(), len(r.log.Terms()), len(r.log.Quantifiers()),
		len(r.log.Instantiations()), len(r.log.Dependencies()), status)
}

// printTopQuantifiers prints a table of the n most instantiated quantifiers.
func printTopQuantifiers(log *z3log.Parser, n uint) {
	quants := make([]z3log.QuantIdx, 0, len(log.Quantifiers()))
	//
	for i, q := range log.Quantifiers() {
		if len(q.Instances) > 0 {
			quants = append(quants, z3log.QuantIdx(i))
		}
	}
	// Most costly first, ties broken by declaration order
	slices.SortStableFunc(quants, func(a, b z3log.QuantIdx) int {
		return cmp.Compare(log.Quantifier(b).Cost, log.Quantifier(a).Cost)
	})
	//
	quants = quants[:min(uint(len(quants)), n)]
	if len(quants) == 0 {
		return
	}
	//
	table := util.NewTablePrinter(3, uint(len(quants))+1)
	table.SetRow(0, "quantifier", "instances", "cost")
	//
	for i, q := range quants {
		quant := log.Quantifier(q)
		table.SetRow(uint(i)+1, log.QuantName(q), fmt.Sprintf("%d", len(quant.Instances)),
			fmt.Sprintf("%g", quant.Cost))
	}
	// Leave room for the numeric columns
	if width, ok := terminalWidth(); ok && width > 40 {
		table.SetMaxWidth(width - 30)
	}
	//
	table.Print(os.Stdout)
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Uint("jobs", 0, "number of logs to parse concurrently (default: number of CPUs)")
	parseCmd.Flags().Uint("top", 10, "number of quantifiers to report for each log")
	parseCmd.Flags().String("metrics", "", "write Prometheus metrics to this file (\"-\" for stdout)")
}
