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
	"fmt"
	"strconv"
	"strings"
)

// TermIdx identifies a term within the term arena of a parser.
type TermIdx uint

// QuantIdx identifies a quantifier within the quantifier arena of a parser.
type QuantIdx uint

// InstIdx identifies a (promoted) instantiation within the instantiation arena
// of a parser.
type InstIdx uint

// TermId is the textual identifier a solver gives to a term, such as "#12" or
// "datatype#3".  The namespace is empty for the default namespace, and the
// number may be absent (e.g. "arith#" names a theory rather than a term).
type TermId struct {
	Namespace string
	Number    uint64
	HasNumber bool
}

// ParseTermId parses a textual term identifier, returning false if the token
// is not of the form "[namespace]#[number]".
func ParseTermId(token string) (TermId, bool) {
	hash := strings.IndexByte(token, '#')
	//
	if hash < 0 {
		return TermId{}, false
	}
	//
	id := TermId{Namespace: token[:hash]}
	digits := token[hash+1:]
	//
	if digits == "" {
		return id, true
	}
	// Overflow is reported as a failure here
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return TermId{}, false
	}
	//
	id.Number = n
	id.HasNumber = true
	//
	return id, true
}

func (p TermId) String() string {
	if p.HasNumber {
		return fmt.Sprintf("%s#%d", p.Namespace, p.Number)
	}
	//
	return p.Namespace + "#"
}

// Fingerprint is the correlation key linking a match (or discovery) event to
// the instance event which later fires it.
type Fingerprint uint64

// ParseFingerprint parses a hexadecimal fingerprint of the form "0x1f2e".
func ParseFingerprint(token string) (Fingerprint, bool) {
	digits, ok := strings.CutPrefix(token, "0x")
	//
	if !ok || digits == "" {
		return 0, false
	}
	//
	n, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, false
	}
	//
	return Fingerprint(n), true
}

func (p Fingerprint) String() string {
	return fmt.Sprintf("0x%x", uint64(p))
}

// DiscoveryMethod identifies how the solver found an instantiation which was
// not the result of pattern matching.
type DiscoveryMethod uint8

const (
	// TheorySolving instantiations are produced by a theory solver.
	TheorySolving DiscoveryMethod = iota
	// MBQI instantiations are produced by model-based quantifier
	// instantiation.
	MBQI
)

func (p DiscoveryMethod) String() string {
	switch p {
	case TheorySolving:
		return "theory-solving"
	case MBQI:
		return "MBQI"
	}
	//
	return "unknown"
}

// DiscoveredKey identifies a synthesised quantifier.  Theory-solving
// quantifiers are keyed by the theory term which produced them, whilst all MBQI
// instantiations share a single key.
type DiscoveredKey struct {
	Method     DiscoveryMethod
	TheoryTerm TermId
}

// IdentTable maps solver-local identifiers onto stable arena indices.  Bindings
// are only ever superseded, never removed, reflecting the solver's append-only
// identifier space with occasional reuse.
type IdentTable struct {
	terms      map[TermId]TermIdx
	discovered map[DiscoveredKey]QuantIdx
}

// NewIdentTable constructs an empty identifier table.
func NewIdentTable() *IdentTable {
	return &IdentTable{
		make(map[TermId]TermIdx),
		make(map[DiscoveredKey]QuantIdx),
	}
}

// RegisterTerm binds a given identifier to a term index, overwriting any
// previous binding for that identifier.  Later uses of the identifier refer to
// the new term.
func (p *IdentTable) RegisterTerm(id TermId, idx TermIdx) {
	p.terms[id] = idx
}

// LookupTerm returns the current binding of a given identifier (if any).
func (p *IdentTable) LookupTerm(id TermId) (TermIdx, bool) {
	idx, ok := p.terms[id]
	return idx, ok
}

// DiscoveredQuantifier returns the quantifier registered under the given key,
// or constructs one with mk and caches it.
func (p *IdentTable) DiscoveredQuantifier(key DiscoveredKey, mk func() QuantIdx) QuantIdx {
	if idx, ok := p.discovered[key]; ok {
		return idx
	}
	//
	idx := mk()
	p.discovered[key] = idx
	//
	return idx
}
