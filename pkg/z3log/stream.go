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
package z3log

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// cancelCheckInterval determines how many lines are processed between checks
// of the context.
const cancelCheckInterval = 1024

// ParseStream feeds every line of a reader into a given parser.  Lines are
// read one at a time, hence the log is never held in memory as a whole.  When
// the context is cancelled (e.g. on a timeout) parsing stops early and true is
// returned together with whatever was parsed; this is not an error.
// Otherwise, the end-of-stream conditions are checked once all lines are
// consumed.
func ParseStream(ctx context.Context, r io.Reader, p *Parser) (bool, error) {
	reader := bufio.NewReaderSize(r, 1<<16)
	//
	for n := 0; !p.Done(); n++ {
		if n%cancelCheckInterval == 0 && ctx.Err() != nil {
			log.Debugf("parsing stopped after %d lines: %v", p.Line(), ctx.Err())
			return true, nil
		}
		//
		line, err := reader.ReadString('\n')
		//
		if len(line) > 0 {
			if perr := p.ProcessLine(line); perr != nil {
				return false, perr
			}
		}
		//
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return false, fmt.Errorf("reading line %d: %w", p.Line()+1, err)
		}
	}
	//
	return false, p.Finish()
}

// ParseString parses a complete log held in memory.  The parser is returned
// even when an error arises, so that the prefix before the failing line can be
// inspected.
func ParseString(text string) (*Parser, error) {
	p := NewParser()
	_, err := ParseStream(context.Background(), strings.NewReader(text), p)
	//
	return p, err
}
