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
	"slices"
	"strings"

	"github.com/consensys/go-axprof/pkg/util"
	"golang.org/x/mod/semver"
)

// VersionInfo records the solver and version announced at the start of a log.
type VersionInfo struct {
	Solver  string
	Version string
}

// ============================================================================
// Terms
// ============================================================================

// TermKindTag distinguishes the different kinds of term.
type TermKindTag uint8

const (
	// QuantTerm is the term representing a quantifier.
	QuantTerm TermKindTag = iota
	// VarTerm is a bound variable, identified by its de-Bruijn index.
	VarTerm
	// AppTerm is a function application (or proof step) with zero or more
	// children.
	AppTerm
)

// TermKind describes what a term is.  Exactly one group of fields is
// meaningful, as determined by the tag.
type TermKind struct {
	Tag TermKindTag
	// Quantifier owned by a QuantTerm.
	Quant QuantIdx
	// De-Bruijn index of a VarTerm.
	Var uint
	// Function (or proof rule) name of an AppTerm.
	Name string
	// Indicates an AppTerm declared as a proof step.
	IsProof bool
}

// QuantIdx returns the quantifier owned by this term, or false if this is not
// a quantifier term.
func (p TermKind) QuantIdx() (QuantIdx, bool) {
	return p.Quant, p.Tag == QuantTerm
}

// Meaning attaches a theory-specific interpretation to a term, such as the
// numeral denoted by an arithmetic constant.
type Meaning struct {
	Theory string
	Value  string
}

// Term is a single solver expression node.
type Term struct {
	// Original textual identifier.
	Id   TermId
	Kind TermKind
	// Children of this term, which always precede it in the arena.
	Children []TermIdx
	// Terms which use this term as a child.
	Parents []TermIdx
	Meaning util.Option[Meaning]
	// Equality explanations originating at this term.
	EqualityExpls []EqualityExpl
	// Instantiation which produced this term as output (if any).
	RespInst util.Option[InstIdx]
}

// ============================================================================
// Equality explanations
// ============================================================================

// EqualityKind identifies the justification given for an equality.
type EqualityKind uint8

const (
	// EqRoot marks a term as the root of its equivalence class.
	EqRoot EqualityKind = iota
	// EqLiteral is justified by a single asserted equality term.
	EqLiteral
	// EqCongruence is justified by equalities between arguments.
	EqCongruence
	// EqTheory is justified by a theory solver.
	EqTheory
	// EqAxiom is justified by an axiom.
	EqAxiom
	// EqUnknown is any other kind, with its arguments preserved verbatim.
	EqUnknown
)

// TermPair is a pair of terms which are asserted equal.
type TermPair struct {
	First  TermIdx
	Second TermIdx
}

// EqualityExpl explains why From is equal to To.
type EqualityExpl struct {
	Kind EqualityKind
	From TermIdx
	To   TermIdx
	// Equality term of an EqLiteral explanation.
	Eq TermIdx
	// Argument equalities of an EqCongruence explanation.
	ArgEqs []TermPair
	// Theory of an EqTheory explanation.
	Theory string
	// Kind tag and arguments of an EqUnknown explanation.
	UnknownKind string
	Args        []string
}

// Equal checks whether two explanations are identical in every field.
func (p *EqualityExpl) Equal(other *EqualityExpl) bool {
	return p.Kind == other.Kind && p.From == other.From && p.To == other.To && p.Eq == other.Eq &&
		p.Theory == other.Theory && p.UnknownKind == other.UnknownKind &&
		slices.Equal(p.ArgEqs, other.ArgEqs) && slices.Equal(p.Args, other.Args)
}

// ============================================================================
// Quantifiers
// ============================================================================

// QuantKindTag distinguishes the different kinds of quantifier.
type QuantKindTag uint8

const (
	// NamedQuant is a quantifier declared in the log.
	NamedQuant QuantKindTag = iota
	// LambdaQuant is a declared quantifier without a name.
	LambdaQuant
	// DiscoveredQuant is synthesised by the solver.
	DiscoveredQuant
)

// QuantKind describes the origin of a quantifier.
type QuantKind struct {
	Tag QuantKindTag
	// Name of a NamedQuant, or discovery method of a DiscoveredQuant.
	Name string
}

// ParseQuantKind interprets the display name of a declared quantifier.
func ParseQuantKind(name string) QuantKind {
	if name == "<null>" {
		return QuantKind{LambdaQuant, ""}
	}
	//
	return QuantKind{NamedQuant, name}
}

func (p QuantKind) String() string {
	switch p.Tag {
	case LambdaQuant:
		return "<lambda>"
	case DiscoveredQuant:
		return "[" + p.Name + "]"
	}
	//
	return p.Name
}

// VarName is the name and type of a single quantified variable.  The name is
// empty when only types were given.
type VarName struct {
	Name string
	Type string
}

// VarNames records the variables of a quantifier, either as types only or as
// name/type pairs.
type VarNames struct {
	Named bool
	Vars  []VarName
}

// Quantifier is either declared in the log or discovered lazily.
type Quantifier struct {
	Kind    QuantKind
	NumVars uint
	// Term declaring this quantifier (absent when discovered).
	Term util.Option[TermIdx]
	// Variable names, which may be attached at most once.
	Vars util.Option[VarNames]
	// Instantiations of this quantifier, in order.
	Instances []InstIdx
	// Popularity metric, incremented by one per instantiation.
	Cost float64
}

// ============================================================================
// Instantiations
// ============================================================================

// BlamedTerm is an item cited as the cause of an instantiation.  It is either
// a single term or a pair of terms asserted equal.
type BlamedTerm struct {
	First  TermIdx
	Second util.Option[TermIdx]
}

// IsPair determines whether this is an equality between two terms.
func (p BlamedTerm) IsPair() bool {
	return p.Second.HasValue()
}

// Instantiation is a single firing of a quantifier.
type Instantiation struct {
	// Line of the triggering match (or discovery) event.
	MatchLine uint
	// Line of the instance event, known once the block opens.
	Line          util.Option[uint]
	Fingerprint   Fingerprint
	ResultingTerm util.Option[TermIdx]
	Generation    util.Option[uint64]
	Cost          float64
	Quant         QuantIdx
	// Distinguishes solver-discovered instantiations from pattern matches.
	Discovered bool
	Pattern    util.Option[TermIdx]
	// Terms produced by this instantiation.
	YieldsTerms []TermIdx
	BoundTerms  []TermIdx
	BlamedTerms []BlamedTerm
	// Terms whose equality explanation contributed a dependency.
	EqualityExpls []TermIdx
	// Prior instantiations this one depends on.
	DepInstantiations []InstIdx
}

// ============================================================================
// Dependencies
// ============================================================================

// DepKind identifies how a dependency was discovered.
type DepKind uint8

const (
	// DepNone documents an instantiation with no discoverable cause.
	DepNone DepKind = iota
	// DepTerm arises from a blamed term produced by an earlier instantiation.
	DepTerm
	// DepEquality arises from a literal equality explanation.
	DepEquality
)

func (p DepKind) String() string {
	switch p {
	case DepTerm:
		return "term"
	case DepEquality:
		return "equality"
	}
	//
	return "none"
}

// Dependency is a causal edge between two instantiations, identified by
// their instance lines.
type Dependency struct {
	// Instance line of the blamed instantiation (absent for DepNone).
	From util.Option[uint]
	// Instance line of the dependent instantiation, filled when its block
	// closes.
	To     util.Option[uint]
	Blamed util.Option[TermIdx]
	Kind   DepKind
	// Quantifier of the dependent instantiation.
	Quant           QuantIdx
	QuantDiscovered bool
}

// ============================================================================
// Helpers
// ============================================================================

// isFullSemver checks that a version has the complete MAJOR.MINOR.PATCH form
// (optionally followed by pre-release and build metadata).
func isFullSemver(version string) bool {
	v := "v" + version
	//
	if !semver.IsValid(v) {
		return false
	}
	// semver accepts shorthands like v1 and v1.2 so check the core explicitly
	core := v[:len(v)-len(semver.Prerelease(v))-len(semver.Build(v))]
	//
	return strings.Count(core, ".") == 2
}
