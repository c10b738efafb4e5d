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

import "github.com/consensys/go-axprof/pkg/util"

// openMatch starts a fresh bucket of provisional dependencies for a match on
// the current line.  A still-pending match with the same fingerprint was never
// instantiated, so it is superseded along with its dependencies.
func (p *Parser) openMatch(fingerprint Fingerprint) {
	if old, ok := p.matches[fingerprint]; ok {
		delete(p.tempDeps, old.MatchLine)
		delete(p.matches, fingerprint)
	}
	//
	p.tempDeps[p.line] = nil
}

// closeMatch records the provisional instantiation under its fingerprint.  An
// instantiation without any resolvable cause gets a single causeless
// dependency documenting that it is a root.
func (p *Parser) closeMatch(inst Instantiation) {
	if len(inst.DepInstantiations) == 0 {
		p.tempDeps[inst.MatchLine] = append(p.tempDeps[inst.MatchLine], Dependency{
			Kind:            DepNone,
			Quant:           inst.Quant,
			QuantDiscovered: inst.Discovered,
		})
	}
	//
	p.matches[inst.Fingerprint] = inst
}

// blame records a dependency of the match being parsed on whichever
// instantiation produced the given term, if there is one.
func (p *Parser) blame(inst *Instantiation, term TermIdx, kind DepKind) {
	if dep, from, ok := p.resolveDependency(term, kind); ok {
		p.tempDeps[inst.MatchLine] = append(p.tempDeps[inst.MatchLine], dep)
		inst.DepInstantiations = append(inst.DepInstantiations, from)
	}
}

// resolveDependency constructs a provisional dependency on the instantiation
// responsible for a given term.  Terms never attributed to an instantiation
// (e.g. input axioms) yield nothing.  The destination is unknown at this point
// since the dependent instantiation has not been promoted yet.
func (p *Parser) resolveDependency(term TermIdx, kind DepKind) (Dependency, InstIdx, bool) {
	iidx, ok := p.terms[term].RespInst.Get()
	if !ok {
		return Dependency{}, 0, false
	}
	//
	blamed := &p.insts[iidx]
	// The responsible instantiation was promoted when its block opened, hence
	// its line is known.
	return Dependency{
		From:            blamed.Line,
		Blamed:          util.Some(term),
		Kind:            kind,
		Quant:           blamed.Quant,
		QuantDiscovered: blamed.Discovered,
	}, iidx, true
}

// finaliseDependencies completes the provisional dependencies of a closed
// instantiation and moves them into the permanent list.
func (p *Parser) finaliseDependencies(iidx InstIdx) {
	inst := &p.insts[iidx]
	deps := p.tempDeps[inst.MatchLine]
	//
	for i := range deps {
		deps[i].To = inst.Line
		deps[i].Quant = inst.Quant
		deps[i].QuantDiscovered = inst.Discovered
	}
	//
	p.deps = append(p.deps, deps...)
	delete(p.tempDeps, inst.MatchLine)
}
