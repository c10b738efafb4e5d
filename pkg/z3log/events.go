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
	"strconv"
	"strings"

	"github.com/consensys/go-axprof/pkg/util"
)

// [tool-version] <solver> <version>
func (p *Parser) versionInfo(l *tokens) error {
	solver, err := l.expect("solver name")
	if err != nil {
		return err
	}
	//
	version, err := l.expect("version")
	if err != nil {
		return err
	} else if err := l.expectEnd(); err != nil {
		return err
	} else if !isFullSemver(version) {
		return malformed("invalid version %q", version)
	} else if p.version.HasValue() {
		return inconsistent("version already given")
	}
	//
	p.version = util.Some(VersionInfo{solver, version})
	//
	return nil
}

// [mk-quant] <id> <name> <num-vars> <child>+
func (p *Parser) mkQuant(l *tokens) error {
	id, err := p.declaredId(l)
	if err != nil {
		return err
	}
	//
	name, err := l.expect("quantifier name")
	if err != nil {
		return err
	}
	//
	numVars, err := parseNumber(l, "variable count")
	if err != nil {
		return err
	}
	//
	children, err := p.existingAll(l.rest())
	if err != nil {
		return err
	} else if len(children) == 0 {
		return malformed("quantifier %s has no children", id)
	}
	//
	qidx := QuantIdx(len(p.quants))
	tidx := p.newTerm(Term{
		Id:       id,
		Kind:     TermKind{Tag: QuantTerm, Quant: qidx},
		Children: children,
	})
	p.quants = append(p.quants, Quantifier{
		Kind:    ParseQuantKind(name),
		NumVars: uint(numVars),
		Term:    util.Some(tidx),
	})
	//
	return nil
}

// [mk-var] <id> <index>
func (p *Parser) mkVar(l *tokens) error {
	id, err := p.declaredId(l)
	if err != nil {
		return err
	}
	//
	index, err := parseNumber(l, "variable index")
	if err != nil {
		return err
	} else if err := l.expectEnd(); err != nil {
		return err
	}
	//
	p.newTerm(Term{Id: id, Kind: TermKind{Tag: VarTerm, Var: uint(index)}})
	//
	return nil
}

// [mk-app] <id> <name> <child>*
// [mk-proof] <id> <rule> <child>*
func (p *Parser) mkProofApp(l *tokens, isProof bool) error {
	id, err := p.declaredId(l)
	if err != nil {
		return err
	}
	//
	name, err := l.expect("function name")
	if err != nil {
		return err
	}
	//
	children, err := p.existingAll(l.rest())
	if err != nil {
		return err
	}
	//
	p.newTerm(Term{
		Id:       id,
		Kind:     TermKind{Tag: AppTerm, Name: name, IsProof: isProof},
		Children: children,
	})
	//
	return nil
}

// [attach-meaning] <id> <theory> <value...>
func (p *Parser) attachMeaning(l *tokens) error {
	idx, err := p.expectExisting(l)
	if err != nil {
		return err
	}
	//
	theory, err := l.expect("theory")
	if err != nil {
		return err
	}
	//
	meaning := Meaning{theory, strings.Join(l.rest(), " ")}
	term := &p.terms[idx]
	//
	if old, ok := term.Meaning.Get(); ok {
		if old != meaning {
			return inconsistent("term %s already means %s %q", term.Id, old.Theory, old.Value)
		}
		//
		return nil
	}
	//
	term.Meaning = util.Some(meaning)
	//
	return nil
}

// [attach-var-names] <id> <tuple>+
func (p *Parser) attachVarNames(l *tokens) error {
	idx, err := p.expectExisting(l)
	if err != nil {
		return err
	}
	//
	vars, err := parseVarNames(l.rest())
	if err != nil {
		return err
	}
	//
	qidx, ok := p.terms[idx].Kind.QuantIdx()
	if !ok {
		return malformed("term %s is not a quantifier", p.terms[idx].Id)
	}
	//
	quant := &p.quants[qidx]
	//
	if quant.Vars.HasValue() {
		return inconsistent("quantifier %s already has variable names", p.terms[idx].Id)
	}
	//
	quant.Vars = util.Some(vars)
	//
	return nil
}

// [attach-enode] <id> <generation>
func (p *Parser) attachEnode(l *tokens) error {
	idx, err := p.expectExisting(l)
	if err != nil {
		return err
	}
	// The generation is validated but not otherwise used
	if _, err := parseNumber(l, "generation"); err != nil {
		return err
	} else if err := l.expectEnd(); err != nil {
		return err
	}
	// Outside of any instantiation block there is nothing to attribute the
	// term to.
	if inst, ok := p.stack.Top(); ok {
		p.terms[idx].RespInst = util.Some(inst)
		p.insts[inst].YieldsTerms = append(p.insts[inst].YieldsTerms, idx)
	}
	//
	return nil
}

// [eq-expl] <id> root
// [eq-expl] <id> lit <eq> ; <to>
// [eq-expl] <id> cg <pair>* ; <to>
// [eq-expl] <id> th <theory> ; <to>
// [eq-expl] <id> ax ; <to>
// [eq-expl] <id> <kind> <arg>* ; <to>
func (p *Parser) eqExpl(l *tokens) error {
	from, err := p.expectExisting(l)
	if err != nil {
		return err
	}
	//
	kind, err := l.expect("explanation kind")
	if err != nil {
		return err
	}
	//
	expl := EqualityExpl{From: from, To: from}
	//
	if kind == "root" {
		expl.Kind = EqRoot
	} else {
		info := l.untilSemicolon()
		//
		if expl.To, err = p.expectExisting(l); err != nil {
			return err
		}
		//
		switch kind {
		case "lit":
			expl.Kind = EqLiteral
			//
			if len(info) != 1 {
				return malformed("literal explanation requires exactly one equality")
			} else if expl.Eq, err = p.existing(info[0]); err != nil {
				return err
			}
		case "cg":
			expl.Kind = EqCongruence
			//
			if expl.ArgEqs, err = p.idPairs(info); err != nil {
				return err
			}
		case "th":
			expl.Kind = EqTheory
			//
			if len(info) != 1 {
				return malformed("theory explanation requires exactly one theory")
			}
			//
			expl.Theory = info[0]
		case "ax":
			expl.Kind = EqAxiom
			//
			if len(info) != 0 {
				return malformed("axiom explanation takes no arguments")
			}
		default:
			expl.Kind = EqUnknown
			expl.UnknownKind = kind
			expl.Args = append([]string(nil), info...)
		}
	}
	//
	if err := l.expectEnd(); err != nil {
		return err
	}
	//
	term := &p.terms[from]
	//
	for i := range term.EqualityExpls {
		if term.EqualityExpls[i].Equal(&expl) {
			return nil
		}
	}
	//
	term.EqualityExpls = append(term.EqualityExpls, expl)
	//
	return nil
}

// [new-match] <fingerprint> <quant> <pattern> <bound>* ; <blamed>*
//
// where each blamed item is either a term or a "(#A #B)" equality.
func (p *Parser) newMatch(l *tokens) error {
	token, err := l.expect("fingerprint")
	if err != nil {
		return err
	}
	//
	fingerprint, err := parseFingerprint(token)
	if err != nil {
		return err
	}
	//
	owner, err := p.expectExisting(l)
	if err != nil {
		return err
	}
	//
	quant, ok := p.terms[owner].Kind.QuantIdx()
	if !ok {
		return malformed("term %s is not a quantifier", p.terms[owner].Id)
	}
	//
	pattern, err := p.expectExisting(l)
	if err != nil {
		return err
	}
	//
	bound, err := p.existingAll(l.untilSemicolon())
	if err != nil {
		return err
	}
	//
	inst := Instantiation{
		MatchLine:   p.line,
		Fingerprint: fingerprint,
		Cost:        1.0,
		Quant:       quant,
		Pattern:     util.Some(pattern),
		BoundTerms:  bound,
	}
	//
	p.openMatch(fingerprint)
	//
	for word, ok := l.next(); ok; word, ok = l.next() {
		first, isPair := strings.CutPrefix(word, "(")
		//
		if !isPair {
			idx, err := p.existing(word)
			if err != nil {
				return err
			}
			//
			p.blame(&inst, idx, DepTerm)
			inst.BlamedTerms = append(inst.BlamedTerms, BlamedTerm{First: idx})
			//
			continue
		}
		// "(#A" is always followed by "#B)"
		next, _ := l.next()
		//
		second, ok := strings.CutSuffix(next, ")")
		if !ok {
			return malformed("unterminated blamed equality (%s", first)
		}
		//
		fidx, err := p.existing(first)
		if err != nil {
			return err
		}
		//
		sidx, err := p.existing(second)
		if err != nil {
			return err
		}
		//
		if fidx != sidx {
			for _, eq := range p.terms[fidx].EqualityExpls {
				if eq.Kind == EqLiteral && eq.From == fidx && eq.To == sidx {
					p.blame(&inst, eq.Eq, DepEquality)
				}
			}
			//
			inst.EqualityExpls = append(inst.EqualityExpls, fidx)
		}
		//
		inst.BlamedTerms = append(inst.BlamedTerms, BlamedTerm{fidx, util.Some(sidx)})
	}
	//
	p.closeMatch(inst)
	//
	return nil
}

// [inst-discovered] theory-solving <fingerprint> <theory-id> [; <blamed>*]
// [inst-discovered] MBQI <fingerprint> <bound>*
func (p *Parser) instDiscovered(l *tokens) error {
	method, err := l.expect("discovery method")
	if err != nil {
		return err
	}
	//
	token, err := l.expect("fingerprint")
	if err != nil {
		return err
	}
	//
	fingerprint, err := parseFingerprint(token)
	if err != nil {
		return err
	}
	//
	inst := Instantiation{
		MatchLine:   p.line,
		Fingerprint: fingerprint,
		Cost:        1.0,
		Discovered:  true,
	}
	//
	switch method {
	case "theory-solving":
		token, err := l.expect("theory identifier")
		if err != nil {
			return err
		}
		//
		theory, err := parseTermId(token)
		if err != nil {
			return err
		}
		//
		if semi, ok := l.next(); ok && semi != SEMICOLON {
			return malformed("expected %q, found %q", SEMICOLON, semi)
		}
		//
		blamed, err := p.existingAll(l.rest())
		if err != nil {
			return err
		}
		//
		inst.Quant = p.discoveredQuant(DiscoveredKey{TheorySolving, theory})
		p.openMatch(fingerprint)
		//
		for _, idx := range blamed {
			p.blame(&inst, idx, DepTerm)
			inst.BlamedTerms = append(inst.BlamedTerms, BlamedTerm{First: idx})
		}
	case "MBQI":
		bound, err := p.existingAll(l.rest())
		if err != nil {
			return err
		}
		//
		inst.Quant = p.discoveredQuant(DiscoveredKey{Method: MBQI})
		inst.BoundTerms = bound
		p.openMatch(fingerprint)
	default:
		return malformed("unknown discovery method %q", method)
	}
	//
	p.closeMatch(inst)
	//
	return nil
}

// [instance] <fingerprint> [<term>] [; <generation>]
func (p *Parser) instance(l *tokens) error {
	token, err := l.expect("fingerprint")
	if err != nil {
		return err
	}
	//
	fingerprint, err := parseFingerprint(token)
	if err != nil {
		return err
	}
	//
	inst, ok := p.matches[fingerprint]
	if !ok {
		return unresolved("no pending match with fingerprint %s", fingerprint)
	}
	//
	next, ok := l.next()
	//
	if ok && next != SEMICOLON {
		idx, err := p.existing(next)
		if err != nil {
			return err
		}
		//
		inst.ResultingTerm = util.Some(idx)
		next, ok = l.next()
	}
	//
	if ok {
		if next != SEMICOLON {
			return malformed("expected %q, found %q", SEMICOLON, next)
		}
		//
		gen, err := parseNumber(l, "generation")
		if err != nil {
			return err
		}
		//
		inst.Generation = util.Some(gen)
	}
	//
	if err := l.expectEnd(); err != nil {
		return err
	}
	// Promote
	delete(p.matches, fingerprint)
	//
	inst.Line = util.Some(p.line)
	iidx := InstIdx(len(p.insts))
	p.insts = append(p.insts, inst)
	p.stack.Push(iidx)
	//
	quant := &p.quants[inst.Quant]
	quant.Instances = append(quant.Instances, iidx)
	quant.Cost += 1.0
	//
	return nil
}

// [end-of-instance]
func (p *Parser) endOfInstance(l *tokens) error {
	if err := l.expectEnd(); err != nil {
		return err
	}
	//
	iidx, ok := p.stack.TryPop()
	if !ok {
		return structural("instantiation stack underflow")
	}
	//
	p.finaliseDependencies(iidx)
	//
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

// declaredId parses the identifier of a term being declared.
func (p *Parser) declaredId(l *tokens) (TermId, error) {
	token, err := l.expect("term identifier")
	if err != nil {
		return TermId{}, err
	}
	//
	return parseTermId(token)
}

// expectExisting consumes a token naming a previously declared term.
func (p *Parser) expectExisting(l *tokens) (TermIdx, error) {
	token, err := l.expect("term identifier")
	if err != nil {
		return 0, err
	}
	//
	return p.existing(token)
}

// idPairs parses a list of tuples of term identifiers.
func (p *Parser) idPairs(items []string) ([]TermPair, error) {
	tuples, err := parseTuples(items)
	if err != nil {
		return nil, err
	}
	//
	pairs := make([]TermPair, len(tuples))
	//
	for i, t := range tuples {
		if pairs[i].First, err = p.existing(t[0]); err != nil {
			return nil, err
		} else if pairs[i].Second, err = p.existing(t[1]); err != nil {
			return nil, err
		}
	}
	//
	return pairs, nil
}

// parseNumber consumes a decimal field.  Overflow is a malformed line.
func parseNumber(l *tokens, what string) (uint64, error) {
	token, err := l.expect(what)
	if err != nil {
		return 0, err
	}
	//
	n, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, malformed("invalid %s %q", what, token)
	}
	//
	return n, nil
}
