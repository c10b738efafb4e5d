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
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/consensys/go-axprof/pkg/util"
	"github.com/consensys/go-axprof/pkg/z3log"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/term"
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint gets an expected unsigned integer flag, or exits if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string flag, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetStringArray gets an expected string array flag, or exits if an error
// arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetDuration gets an expected duration flag, or exits if an error arises.
func GetDuration(cmd *cobra.Command, flag string) time.Duration {
	r, err := cmd.Flags().GetDuration(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// configure applies the flags common to all commands: logging verbosity,
// settings file and span tracing.  The returned function flushes any
// pending spans.
func configure(cmd *cobra.Command) (Settings, func()) {
	// Configure log level
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
	//
	settings, err := LoadSettings(GetString(cmd, "config"))
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	// Flags override the settings file
	if cmd.Flags().Changed("timeout") {
		settings.Timeout = GetDuration(cmd, "timeout")
	}
	//
	if cmd.Flags().Changed("depth") {
		settings.PrintDepth = GetUint(cmd, "depth")
	}
	//
	shutdown, err := initTracing(GetFlag(cmd, "trace-spans"))
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return settings, func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warnf("flushing spans: %v", err)
		}
	}
}

// readLog parses a log file, giving up after a given timeout (if non-zero).
// The parser is returned even on failure, holding everything parsed before
// the failing line.
func readLog(ctx context.Context, filename string, timeout time.Duration) (*z3log.Parser, bool, error) {
	var (
		p     = z3log.NewParser()
		stats = util.NewPerfStats()
	)
	//
	file, err := os.Open(filename)
	if err != nil {
		return p, false, err
	}
	//
	defer file.Close()
	//
	if timeout != 0 {
		var cancel context.CancelFunc
		//
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	//
	ctx, span := tracer.Start(ctx, "parse")
	defer span.End()
	//
	timedOut, err := z3log.ParseStream(ctx, file, p)
	//
	span.SetAttributes(
		attribute.String("file", filename),
		attribute.Int64("lines", int64(p.Line())),
		attribute.Bool("timed_out", timedOut),
	)
	stats.Log(fmt.Sprintf("Parsing %s", filename))
	//
	if timedOut {
		log.Warnf("%s: parsing timed out after %d lines", filename, p.Line())
	}
	//
	return p, timedOut, err
}

// readLogOrExit parses a single log file, printing any error and exiting.
func readLogOrExit(filename string, settings Settings) *z3log.Parser {
	p, _, err := readLog(context.Background(), filename, settings.Timeout)
	//
	if err != nil {
		printParseError(filename, err)
		os.Exit(2)
	}
	//
	return p
}

// printParseError prints an error arising from parsing a given file.  When the
// error identifies a line, that line is printed as well.
func printParseError(filename string, err error) {
	var perr *z3log.ParseError
	//
	if !errors.As(err, &perr) || perr.Line == 0 {
		fmt.Printf("%s: %v\n", filename, err)
		return
	}
	// Print error (including line number)
	fmt.Printf("%s: %s\n", filename, perr.Error())
	// Print line
	if line, ok := findLine(filename, perr.Line); ok {
		fmt.Println(line)
		fmt.Println(strings.Repeat("^", len(line)))
	}
}

// findLine returns the nth line of a file (counting from 1).
func findLine(filename string, n uint) (string, bool) {
	file, err := os.Open(filename)
	if err != nil {
		return "", false
	}
	//
	defer file.Close()
	//
	scanner := bufio.NewScanner(file)
	scanner.Buffer(nil, 16*1024*1024)
	//
	for i := uint(1); scanner.Scan(); i++ {
		if i == n {
			return strings.TrimRight(scanner.Text(), "\r "), true
		}
	}
	//
	return "", false
}

// terminalWidth returns the width of the terminal attached to stdout, or
// false if stdout is not a terminal.
func terminalWidth() (uint, bool) {
	fd := int(os.Stdout.Fd())
	//
	if !term.IsTerminal(fd) {
		return 0, false
	}
	//
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return 0, false
	}
	//
	return uint(w), true
}
