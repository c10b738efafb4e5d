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
	"errors"
	"strings"

	"github.com/consensys/go-axprof/pkg/util"
	"github.com/consensys/go-axprof/pkg/util/collection/stack"
	log "github.com/sirupsen/logrus"
)

// Parser consumes a solver trace one line at a time, building up the terms,
// quantifiers, instantiations and dependencies it describes.  A parser is not
// safe for concurrent use; once parsing is finished it may be shared
// read-only.
type Parser struct {
	version util.Option[VersionInfo]
	ids     *IdentTable
	terms   []Term
	quants  []Quantifier
	// Pending (matched but not yet instantiated) instantiations.
	matches map[Fingerprint]Instantiation
	insts   []Instantiation
	// Currently open instantiation blocks.
	stack *stack.Stack[InstIdx]
	// Provisional dependencies, keyed by match line.
	tempDeps map[uint][]Dependency
	deps     []Dependency
	// Number of lines processed so far.
	line uint
	// Set once the end-of-file marker is seen.
	eof bool
	// Set once Finish has succeeded.
	finished bool
	// First error encountered, which is reported for all subsequent lines.
	err    error
	counts map[string]uint
}

// NewParser constructs a parser in its initial state (no blocks open).
func NewParser() *Parser {
	return &Parser{
		ids:      NewIdentTable(),
		matches:  make(map[Fingerprint]Instantiation),
		stack:    stack.NewStack[InstIdx](),
		tempDeps: make(map[uint][]Dependency),
		counts:   make(map[string]uint),
	}
}

// ProcessLine consumes the next line of the log.  Once a line fails, parsing
// stops: this and every later call return the same error, whilst everything
// parsed before the failing line remains available.
func (p *Parser) ProcessLine(text string) error {
	if p.err != nil {
		return p.err
	} else if p.eof {
		return nil
	}
	//
	p.line++
	text = strings.TrimRight(text, "\r\n ")
	//
	if text == "" {
		return nil
	}
	//
	tag, payload, _ := strings.Cut(text, " ")
	p.counts[tag]++
	//
	if err := p.dispatch(tag, newTokens(payload)); err != nil {
		p.err = p.annotate(err, tag)
		return p.err
	}
	//
	return nil
}

func (p *Parser) dispatch(tag string, l *tokens) error {
	switch tag {
	case "[tool-version]":
		return p.versionInfo(l)
	case "[mk-quant]", "[mk-lambda]":
		return p.mkQuant(l)
	case "[mk-var]":
		return p.mkVar(l)
	case "[mk-app]":
		return p.mkProofApp(l, false)
	case "[mk-proof]":
		return p.mkProofApp(l, true)
	case "[attach-meaning]":
		return p.attachMeaning(l)
	case "[attach-var-names]":
		return p.attachVarNames(l)
	case "[attach-enode]":
		return p.attachEnode(l)
	case "[eq-expl]":
		return p.eqExpl(l)
	case "[new-match]":
		return p.newMatch(l)
	case "[inst-discovered]":
		return p.instDiscovered(l)
	case "[instance]":
		return p.instance(l)
	case "[end-of-instance]":
		return p.endOfInstance(l)
	case "[eof]":
		p.eof = true
		return nil
	}
	// Other events carry nothing we model
	if p.counts[tag] == 1 {
		log.Debugf("ignoring event %s (first seen on line %d)", tag, p.line)
	}
	//
	return nil
}

// annotate fills in the position of an error arising on the current line.
func (p *Parser) annotate(err error, tag string) error {
	var perr *ParseError
	//
	if errors.As(err, &perr) {
		perr.Line = p.line
		perr.Tag = tag
		//
		return perr
	}
	//
	return &ParseError{MalformedLine, p.line, tag, err.Error()}
}

// Finish checks the end-of-stream conditions: every instantiation block must
// have been closed.  Matches which were never instantiated are discarded.
func (p *Parser) Finish() error {
	if p.err != nil || p.finished {
		return p.err
	}
	//
	if !p.stack.IsEmpty() {
		p.err = &ParseError{Structural, p.line, "",
			"instantiation block(s) still open at end of stream"}
		//
		return p.err
	}
	//
	if len(p.matches) > 0 {
		log.Debugf("discarding %d match(es) which were never instantiated", len(p.matches))
	}
	//
	clear(p.matches)
	clear(p.tempDeps)
	p.finished = true
	//
	return nil
}

// ============================================================================
// Accessors
// ============================================================================

// Version returns the solver version announced by the log (if any).
func (p *Parser) Version() util.Option[VersionInfo] {
	return p.version
}

// Line returns the number of lines processed so far.
func (p *Parser) Line() uint {
	return p.line
}

// Done indicates whether the end-of-file marker has been seen.
func (p *Parser) Done() bool {
	return p.eof
}

// Err returns the error which stopped parsing (if any).
func (p *Parser) Err() error {
	return p.err
}

// Terms returns the term arena.
func (p *Parser) Terms() []Term {
	return p.terms
}

// Term returns the term with the given index.
func (p *Parser) Term(idx TermIdx) *Term {
	return &p.terms[idx]
}

// LookupTerm resolves a textual term identifier against the current bindings.
func (p *Parser) LookupTerm(id string) (TermIdx, bool) {
	if tid, ok := ParseTermId(id); ok {
		return p.ids.LookupTerm(tid)
	}
	//
	return 0, false
}

// Quantifiers returns the quantifier arena.
func (p *Parser) Quantifiers() []Quantifier {
	return p.quants
}

// Quantifier returns the quantifier with the given index.
func (p *Parser) Quantifier(idx QuantIdx) *Quantifier {
	return &p.quants[idx]
}

// Instantiations returns all promoted instantiations in the order their
// blocks opened.
func (p *Parser) Instantiations() []Instantiation {
	return p.insts
}

// Instantiation returns the instantiation with the given index.
func (p *Parser) Instantiation(idx InstIdx) *Instantiation {
	return &p.insts[idx]
}

// Dependencies returns the finalised dependencies, in the order their
// destination blocks closed.
func (p *Parser) Dependencies() []Dependency {
	return p.deps
}

// OpenBlocks returns the number of instantiation blocks currently open.
func (p *Parser) OpenBlocks() uint {
	return p.stack.Len()
}

// EventCounts returns the number of lines seen for each event tag.
func (p *Parser) EventCounts() map[string]uint {
	return p.counts
}

// ============================================================================
// Helpers
// ============================================================================

// newTerm appends a term to the arena and binds its identifier.
func (p *Parser) newTerm(term Term) TermIdx {
	idx := TermIdx(len(p.terms))
	//
	for _, c := range term.Children {
		p.terms[c].Parents = append(p.terms[c].Parents, idx)
	}
	//
	p.terms = append(p.terms, term)
	p.ids.RegisterTerm(term.Id, idx)
	//
	return idx
}

// discoveredQuant finds or creates the synthesised quantifier for a key.
func (p *Parser) discoveredQuant(key DiscoveredKey) QuantIdx {
	return p.ids.DiscoveredQuantifier(key, func() QuantIdx {
		p.quants = append(p.quants, Quantifier{
			Kind: QuantKind{DiscoveredQuant, key.Method.String()},
		})
		//
		return QuantIdx(len(p.quants) - 1)
	})
}

func parseTermId(token string) (TermId, error) {
	if id, ok := ParseTermId(token); ok {
		return id, nil
	}
	//
	return TermId{}, malformed("invalid term identifier %q", token)
}

// existing resolves a token naming a previously declared term.
func (p *Parser) existing(token string) (TermIdx, error) {
	id, err := parseTermId(token)
	//
	if err != nil {
		return 0, err
	} else if idx, ok := p.ids.LookupTerm(id); ok {
		return idx, nil
	}
	//
	return 0, unresolved("unknown term %s", id)
}

// existingAll resolves a list of tokens naming previously declared terms.
func (p *Parser) existingAll(items []string) ([]TermIdx, error) {
	terms := make([]TermIdx, len(items))
	//
	for i, token := range items {
		idx, err := p.existing(token)
		if err != nil {
			return nil, err
		}
		//
		terms[i] = idx
	}
	//
	return terms, nil
}

// parseFingerprint parses a fingerprint token.
func parseFingerprint(token string) (Fingerprint, error) {
	if fp, ok := ParseFingerprint(token); ok {
		return fp, nil
	}
	//
	return 0, malformed("invalid fingerprint %q", token)
}
