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

import "strings"

// SEMICOLON separates groups of fields within a line.
const SEMICOLON = ";"

// tokens is a cursor over the space-separated fields of a single line.  There
// is no escaping: a field is whatever lies between two spaces.
type tokens struct {
	items []string
	index int
}

func newTokens(payload string) *tokens {
	if payload == "" {
		return &tokens{nil, 0}
	}
	//
	return &tokens{strings.Split(payload, " "), 0}
}

// next returns the next field, or false if none remain.
func (p *tokens) next() (string, bool) {
	if p.index >= len(p.items) {
		return "", false
	}
	//
	p.index++
	//
	return p.items[p.index-1], true
}

// peek returns the next field without consuming it.
func (p *tokens) peek() (string, bool) {
	if p.index >= len(p.items) {
		return "", false
	}
	//
	return p.items[p.index], true
}

// expect returns the next field, or a malformed line error naming what was
// expected.
func (p *tokens) expect(what string) (string, error) {
	if tok, ok := p.next(); ok {
		return tok, nil
	}
	//
	return "", malformed("missing %s", what)
}

// untilSemicolon consumes fields up to and including the next semicolon,
// returning those before it.  If there is no semicolon, all remaining fields
// are returned.
func (p *tokens) untilSemicolon() []string {
	start := p.index
	//
	for p.index < len(p.items) {
		p.index++
		//
		if p.items[p.index-1] == SEMICOLON {
			return p.items[start : p.index-1]
		}
	}
	//
	return p.items[start:]
}

// rest consumes all remaining fields.
func (p *tokens) rest() []string {
	items := p.items[p.index:]
	p.index = len(p.items)
	//
	return items
}

// expectEnd fails if any fields remain.
func (p *tokens) expectEnd() error {
	if tok, ok := p.peek(); ok {
		return malformed("unexpected trailing data %q", tok)
	}
	//
	return nil
}

// ============================================================================
// Tuples
// ============================================================================

// tupleForm identifies how the two halves of a tuple are written.
type tupleForm uint8

const (
	// (A;B) as a single field
	tupleJoined tupleForm = iota
	// (A B) across two fields
	tupleSpaced
	// (A ; B) across three fields
	tupleSeparated
)

// parseTuples parses a list of tuples, in any of the forms "(A;B)", "(A B)" or
// "(A ; B)", where either half may be empty.  Every tuple must be written in
// the same form as the first.
func parseTuples(items []string) ([][2]string, error) {
	var (
		tuples [][2]string
		form   tupleForm
		toks   = tokens{items, 0}
	)
	//
	for n := 0; ; n++ {
		first, ok := toks.next()
		if !ok {
			return tuples, nil
		}
		//
		var (
			second string
			ith    tupleForm
		)
		//
		if strings.HasSuffix(first, ")") {
			var found bool
			//
			ith = tupleJoined
			first, second, found = strings.Cut(first, SEMICOLON)
			//
			if !found {
				return nil, malformed("tuple %q has no separator", first)
			}
		} else if middle, ok := toks.next(); !ok {
			return nil, malformed("incomplete tuple %q", first)
		} else if middle != SEMICOLON {
			ith, second = tupleSpaced, middle
		} else if second, ok = toks.next(); !ok {
			return nil, malformed("incomplete tuple %q", first)
		} else {
			ith = tupleSeparated
		}
		// Check consistency with first tuple
		if n == 0 {
			form = ith
		} else if ith != form {
			return nil, malformed("inconsistent tuple forms in list")
		}
		// Strip brackets
		lhs, ok1 := strings.CutPrefix(first, "(")
		rhs, ok2 := strings.CutSuffix(second, ")")
		//
		if !ok1 || !ok2 {
			return nil, malformed("tuple missing brackets")
		}
		//
		tuples = append(tuples, [2]string{lhs, rhs})
	}
}

// parseVarNames parses a list of either "(;type)" tuples or "(|name| ;
// |type|)" tuples.  The list must be non-empty and all tuples must agree.
func parseVarNames(items []string) (VarNames, error) {
	tuples, err := parseTuples(items)
	//
	if err != nil {
		return VarNames{}, err
	} else if len(tuples) == 0 {
		return VarNames{}, malformed("empty variable list")
	}
	//
	named := tuples[0][0] != ""
	vars := make([]VarName, len(tuples))
	//
	for i, t := range tuples {
		if !named {
			if t[0] != "" {
				return VarNames{}, malformed("mixed typed and named variables")
			}
			//
			vars[i] = VarName{Type: t[1]}
			//
			continue
		}
		//
		name, ok1 := stripBars(t[0])
		typ, ok2 := stripBars(t[1])
		//
		if !ok1 || !ok2 {
			return VarNames{}, malformed("variable %q is not of the form |name| ; |type|", t[0])
		}
		//
		vars[i] = VarName{name, typ}
	}
	//
	return VarNames{named, vars}, nil
}

func stripBars(s string) (string, bool) {
	if len(s) < 2 || s[0] != '|' || s[len(s)-1] != '|' {
		return "", false
	}
	//
	return s[1 : len(s)-1], true
}
