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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two instantiations of q1, where the second blames the term produced by the
// first.
var chainLog = []string{
	"[tool-version] Z3 4.8.5",
	"[mk-app] #1 f",
	"[mk-var] #2 0",
	"[mk-app] #3 f #2",
	"[mk-app] #4 pattern #3",
	"[mk-quant] #5 q1 1 #4 #3",
	"[attach-var-names] #5 (|x| ; |Int|)",
	"[mk-app] #6 a",
	"[new-match] 0x1 #5 #4 #6 ;",
	"[instance] 0x1 ; 1",
	"[mk-app] #7 f #6",
	"[attach-enode] #7 1",
	"[end-of-instance]",
	"[new-match] 0x2 #5 #4 #7 ; #7",
	"[instance] 0x2 ; 2",
	"[end-of-instance]",
}

func Test_Parser_Chain(t *testing.T) {
	p, err := ParseString(lines(chainLog...))
	require.NoError(t, err)
	//
	assert.Equal(t, "Z3", p.Version().Unwrap().Solver)
	assert.Equal(t, uint(16), p.Line())
	assert.Equal(t, uint(0), p.OpenBlocks())
	// Instantiations
	insts := p.Instantiations()
	require.Len(t, insts, 2)
	assert.Equal(t, uint(9), insts[0].MatchLine)
	assert.Equal(t, uint(10), insts[0].Line.Unwrap())
	assert.Equal(t, uint(15), insts[1].Line.Unwrap())
	assert.Equal(t, uint64(2), insts[1].Generation.Unwrap())
	assert.Empty(t, insts[0].DepInstantiations)
	assert.Equal(t, []InstIdx{0}, insts[1].DepInstantiations)
	// Term #7 was produced by the first instantiation
	f7, ok := p.LookupTerm("#7")
	require.True(t, ok)
	assert.Equal(t, InstIdx(0), p.Term(f7).RespInst.Unwrap())
	assert.Equal(t, []TermIdx{f7}, insts[0].YieldsTerms)
	assert.Equal(t, []BlamedTerm{{First: f7}}, insts[1].BlamedTerms)
	// Dependencies
	deps := p.Dependencies()
	require.Len(t, deps, 2)
	assert.Equal(t, DepNone, deps[0].Kind)
	assert.True(t, deps[0].From.IsEmpty())
	assert.Equal(t, uint(10), deps[0].To.Unwrap())
	assert.Equal(t, DepTerm, deps[1].Kind)
	assert.Equal(t, uint(10), deps[1].From.Unwrap())
	assert.Equal(t, uint(15), deps[1].To.Unwrap())
	assert.Equal(t, f7, deps[1].Blamed.Unwrap())
	// Quantifier
	quant := p.Quantifier(0)
	assert.Equal(t, "q1", quant.Kind.Name)
	assert.Equal(t, 2.0, quant.Cost)
	assert.Equal(t, []InstIdx{0, 1}, quant.Instances)
	assert.True(t, quant.Vars.Unwrap().Named)
}

func Test_Parser_AllDependenciesResolved(t *testing.T) {
	p, err := ParseString(lines(chainLog...))
	require.NoError(t, err)
	//
	for _, inst := range p.Instantiations() {
		assert.True(t, inst.Line.HasValue())
	}
	//
	for _, dep := range p.Dependencies() {
		assert.True(t, dep.To.HasValue())
	}
}

func Test_Parser_FingerprintReuse(t *testing.T) {
	log := append(chainLog[:len(chainLog):len(chainLog)],
		"[new-match] 0x1 #5 #4 #6 ;",
		"[instance] 0x1",
		"[end-of-instance]",
	)
	p, err := ParseString(lines(log...))
	require.NoError(t, err)
	//
	insts := p.Instantiations()
	require.Len(t, insts, 3)
	assert.Equal(t, insts[0].Fingerprint, insts[2].Fingerprint)
	assert.Equal(t, uint(18), insts[2].Line.Unwrap())
	assert.Empty(t, insts[2].DepInstantiations)
	assert.True(t, insts[2].Generation.IsEmpty())
}

func Test_Parser_SupersededMatch(t *testing.T) {
	// A match which is never instantiated is replaced by a later match
	// reusing its fingerprint.
	p, err := ParseString(lines(
		"[mk-app] #1 a",
		"[mk-quant] #2 q 0 #1",
		"[new-match] 0x5 #2 #1 ;",
		"[new-match] 0x5 #2 #1 ;",
		"[instance] 0x5",
		"[end-of-instance]",
	))
	require.NoError(t, err)
	//
	require.Len(t, p.Instantiations(), 1)
	assert.Equal(t, uint(4), p.Instantiation(0).MatchLine)
	assert.Len(t, p.Dependencies(), 1)
}

func Test_Parser_StackUnderflow(t *testing.T) {
	p := NewParser()
	//
	err := p.ProcessLine("[end-of-instance]")
	require.ErrorIs(t, err, ErrStructural)
	//
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, uint(1), perr.Line)
	assert.Equal(t, "[end-of-instance]", perr.Tag)
	// Nothing further is parsed
	assert.Equal(t, err, p.ProcessLine("[mk-app] #1 a"))
	assert.Empty(t, p.Terms())
	assert.Equal(t, err, p.Finish())
}

func Test_Parser_OpenAtEnd(t *testing.T) {
	_, err := ParseString(lines(
		"[mk-app] #1 a",
		"[mk-quant] #2 q 0 #1",
		"[new-match] 0x5 #2 #1 ;",
		"[instance] 0x5",
	))
	require.ErrorIs(t, err, ErrStructural)
}

func Test_Parser_PrefixRetained(t *testing.T) {
	p, err := ParseString(lines(
		"[mk-app] #1 a",
		"[mk-app] #2 b",
		"[mk-app] #3 f #1 #9",
		"[mk-app] #4 c",
	))
	require.ErrorIs(t, err, ErrUnresolvedReference)
	//
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, uint(3), perr.Line)
	assert.Len(t, p.Terms(), 2)
}

func Test_Parser_UnknownFingerprint(t *testing.T) {
	_, err := ParseString(lines(
		"[mk-app] #1 a",
		"[mk-quant] #2 q 0 #1",
		"[new-match] 0x5 #2 #1 ;",
		"[instance] 0x5",
		"[end-of-instance]",
		"[instance] 0x5",
	))
	require.ErrorIs(t, err, ErrUnresolvedReference)
}

func Test_Parser_Version(t *testing.T) {
	check_ParseOk(t, "[tool-version] Z3 4.12.2")
	check_ParseOk(t, "[tool-version] Z3 4.13.0-rc.1")
	check_ParseFails(t, ErrMalformedLine, "[tool-version] Z3 4.8")
	check_ParseFails(t, ErrMalformedLine, "[tool-version] Z3 four")
	check_ParseFails(t, ErrMalformedLine, "[tool-version] Z3 4.8.5 extra")
	check_ParseFails(t, ErrMalformedLine, "[tool-version] Z3")
	check_ParseFails(t, ErrInconsistency, "[tool-version] Z3 4.8.5", "[tool-version] Z3 4.8.5")
}

func Test_Parser_Declarations(t *testing.T) {
	check_ParseOk(t, "[mk-app] #1 true")
	check_ParseOk(t, "[mk-app] #1 a", "[mk-proof] #2 asserted #1")
	check_ParseOk(t, "[mk-app] datatype#3 c", "[mk-app] #4 f datatype#3")
	check_ParseFails(t, ErrMalformedLine, "[mk-app] 12 a")
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #99999999999999999999999 a")
	check_ParseFails(t, ErrMalformedLine, "[mk-var] #1 x")
	check_ParseFails(t, ErrMalformedLine, "[mk-var] #1 0 0")
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 a", "[mk-quant] #2 q 1")
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 a", "[mk-quant] #2 q x #1")
	check_ParseFails(t, ErrUnresolvedReference, "[mk-app] #1 f #0")
}

func Test_Parser_IdReuse(t *testing.T) {
	p, err := ParseString(lines("[mk-app] #1 a", "[mk-app] #1 b", "[mk-app] #2 f #1"))
	require.NoError(t, err)
	//
	idx, ok := p.LookupTerm("#1")
	require.True(t, ok)
	assert.Equal(t, TermIdx(1), idx)
	assert.Equal(t, "f(b)", p.PrettyTerm(2, DefaultPrintOptions()))
	assert.Equal(t, []TermIdx{2}, p.Term(1).Parents)
	assert.Empty(t, p.Term(0).Parents)
}

func Test_Parser_Meaning(t *testing.T) {
	p, err := ParseString(lines(
		"[mk-app] #1 x",
		"[attach-meaning] #1 arith (- 1)",
		"[attach-meaning] #1 arith (- 1)",
	))
	require.NoError(t, err)
	assert.Equal(t, Meaning{"arith", "(- 1)"}, p.Term(0).Meaning.Unwrap())
	//
	check_ParseFails(t, ErrInconsistency,
		"[mk-app] #1 x", "[attach-meaning] #1 arith 1", "[attach-meaning] #1 arith 2")
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 x", "[attach-meaning] #1")
}

func Test_Parser_VarNames(t *testing.T) {
	p, err := ParseString(lines(
		"[mk-app] #1 a",
		"[mk-quant] #2 q 2 #1",
		"[attach-var-names] #2 (;Int) (;Bool)",
	))
	require.NoError(t, err)
	//
	vars := p.Quantifier(0).Vars.Unwrap()
	assert.False(t, vars.Named)
	assert.Equal(t, []VarName{{Type: "Int"}, {Type: "Bool"}}, vars.Vars)
	// Re-registration
	check_ParseFails(t, ErrInconsistency,
		"[mk-app] #1 a", "[mk-quant] #2 q 1 #1",
		"[attach-var-names] #2 (;Int)", "[attach-var-names] #2 (;Int)")
	// Mixed forms
	check_ParseFails(t, ErrMalformedLine,
		"[mk-app] #1 a", "[mk-quant] #2 q 2 #1",
		"[attach-var-names] #2 (|x| ; |Int|) (|y|;|Int|)")
	// Not a quantifier
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 a", "[attach-var-names] #1 (;Int)")
}

func Test_Parser_EnodeOutsideInstance(t *testing.T) {
	p, err := ParseString(lines("[mk-app] #1 a", "[attach-enode] #1 0"))
	require.NoError(t, err)
	assert.True(t, p.Term(0).RespInst.IsEmpty())
	//
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 a", "[attach-enode] #1")
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 a", "[attach-enode] #1 x")
}

func Test_Parser_EqualityExplanations(t *testing.T) {
	p, err := ParseString(lines(
		"[mk-app] #1 a",
		"[mk-app] #2 b",
		"[mk-app] #3 = #1 #2",
		"[mk-app] #4 f #1",
		"[mk-app] #5 f #2",
		"[eq-expl] #1 root",
		"[eq-expl] #1 lit #3 ; #2",
		"[eq-expl] #1 lit #3 ; #2",
		"[eq-expl] #4 cg (#1 #2) ; #5",
		"[eq-expl] #2 th arith ; #1",
		"[eq-expl] #5 ax ; #4",
		"[eq-expl] #5 unknown x y ; #4",
	))
	require.NoError(t, err)
	//
	a := p.Term(0).EqualityExpls
	require.Len(t, a, 2)
	assert.Equal(t, EqRoot, a[0].Kind)
	assert.Equal(t, EqualityExpl{Kind: EqLiteral, From: 0, To: 1, Eq: 2}, a[1])
	//
	cg := p.Term(3).EqualityExpls
	require.Len(t, cg, 1)
	assert.Equal(t, []TermPair{{0, 1}}, cg[0].ArgEqs)
	assert.Equal(t, TermIdx(4), cg[0].To)
	//
	assert.Equal(t, "arith", p.Term(1).EqualityExpls[0].Theory)
	//
	fb := p.Term(4).EqualityExpls
	require.Len(t, fb, 2)
	assert.Equal(t, EqAxiom, fb[0].Kind)
	assert.Equal(t, EqUnknown, fb[1].Kind)
	assert.Equal(t, []string{"x", "y"}, fb[1].Args)
	//
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 a", "[eq-expl] #1 root #1")
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 a", "[eq-expl] #1 lit ; #1")
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 a", "[eq-expl] #1 ax #1 ; #1")
	check_ParseFails(t, ErrMalformedLine, "[mk-app] #1 a", "[eq-expl] #1 th ; #1")
	check_ParseFails(t, ErrUnresolvedReference, "[mk-app] #1 a", "[eq-expl] #1 ax ; #2")
}

func Test_Parser_EqualityDependency(t *testing.T) {
	p, err := ParseString(lines(
		"[mk-app] #1 a",
		"[mk-app] #2 b",
		"[mk-app] #3 pattern #1",
		"[mk-quant] #4 q 0 #3 #1",
		"[new-match] 0x1 #4 #3 ;",
		"[instance] 0x1",
		"[mk-app] #5 = #1 #2",
		"[attach-enode] #5 1",
		"[end-of-instance]",
		"[eq-expl] #1 lit #5 ; #2",
		"[new-match] 0x2 #4 #3 ; (#1 #2) (#2 #2)",
		"[instance] 0x2",
		"[end-of-instance]",
	))
	require.NoError(t, err)
	//
	second := p.Instantiation(1)
	assert.Equal(t, []InstIdx{0}, second.DepInstantiations)
	assert.Equal(t, []TermIdx{0}, second.EqualityExpls)
	require.Len(t, second.BlamedTerms, 2)
	assert.True(t, second.BlamedTerms[0].IsPair())
	//
	deps := p.Dependencies()
	require.Len(t, deps, 2)
	assert.Equal(t, DepEquality, deps[1].Kind)
	assert.Equal(t, TermIdx(4), deps[1].Blamed.Unwrap())
	//
	check_ParseFails(t, ErrMalformedLine,
		"[mk-app] #1 a", "[mk-quant] #2 q 0 #1", "[new-match] 0x1 #2 #1 ; (#1")
	check_ParseFails(t, ErrMalformedLine,
		"[mk-app] #1 a", "[new-match] 0x1 #1 #1 ;")
	check_ParseFails(t, ErrMalformedLine,
		"[mk-app] #1 a", "[mk-quant] #2 q 0 #1", "[new-match] 1 #2 #1 ;")
}

func Test_Parser_Discovered(t *testing.T) {
	p, err := ParseString(lines(
		"[mk-app] #1 a",
		"[mk-app] #2 pattern #1",
		"[mk-quant] #3 q 0 #2 #1",
		"[new-match] 0x1 #3 #2 ;",
		"[instance] 0x1",
		"[mk-app] #4 b",
		"[attach-enode] #4 1",
		"[end-of-instance]",
		"[inst-discovered] theory-solving 0x2 arith# ; #4",
		"[instance] 0x2",
		"[end-of-instance]",
		"[inst-discovered] theory-solving 0x3 arith#",
		"[instance] 0x3",
		"[end-of-instance]",
		"[inst-discovered] MBQI 0x4 #1 #4",
		"[instance] 0x4",
		"[end-of-instance]",
	))
	require.NoError(t, err)
	// One declared and two discovered quantifiers
	quants := p.Quantifiers()
	require.Len(t, quants, 3)
	assert.Equal(t, QuantKind{DiscoveredQuant, "theory-solving"}, quants[1].Kind)
	assert.Equal(t, 2.0, quants[1].Cost)
	assert.Equal(t, QuantKind{DiscoveredQuant, "MBQI"}, quants[2].Kind)
	//
	insts := p.Instantiations()
	require.Len(t, insts, 4)
	assert.True(t, insts[1].Discovered)
	assert.Equal(t, []InstIdx{0}, insts[1].DepInstantiations)
	assert.Empty(t, insts[2].DepInstantiations)
	assert.Equal(t, []TermIdx{0, 3}, insts[3].BoundTerms)
	// Every dependency of a discovered instantiation is flagged
	for _, dep := range p.Dependencies()[1:] {
		assert.True(t, dep.QuantDiscovered)
	}
	//
	check_ParseFails(t, ErrMalformedLine, "[inst-discovered] magic 0x1")
	check_ParseFails(t, ErrMalformedLine, "[inst-discovered] theory-solving 0x1 arith# #1")
}

func Test_Parser_Instance(t *testing.T) {
	prefix := []string{"[mk-app] #1 a", "[mk-quant] #2 q 0 #1", "[new-match] 0x1 #2 #1 ;"}
	//
	p, err := ParseString(lines(append(prefix, "[instance] 0x1 #1 ; 3", "[end-of-instance]")...))
	require.NoError(t, err)
	assert.Equal(t, TermIdx(0), p.Instantiation(0).ResultingTerm.Unwrap())
	assert.Equal(t, uint64(3), p.Instantiation(0).Generation.Unwrap())
	//
	check_ParseFails(t, ErrMalformedLine, append(prefix, "[instance] 0x1 #1 3")...)
	check_ParseFails(t, ErrMalformedLine, append(prefix, "[instance] 0x1 ;")...)
	check_ParseFails(t, ErrMalformedLine, append(prefix, "[instance] 0x1 ; 1 2")...)
	check_ParseFails(t, ErrUnresolvedReference, append(prefix, "[instance] 0x1 #7")...)
	check_ParseFails(t, ErrMalformedLine, append(prefix, "[instance] 0x1", "[end-of-instance] x")...)
}

func Test_Parser_IgnoredEvents(t *testing.T) {
	p, err := ParseString(lines(
		"[mk-app] #1 a",
		"[push] 1",
		"",
		"[assign] #1 decision axiom",
		"[eof]",
		"[end-of-instance]",
	))
	require.NoError(t, err)
	//
	assert.True(t, p.Done())
	assert.Equal(t, uint(1), p.EventCounts()["[push]"])
	assert.Equal(t, uint(0), p.EventCounts()["[end-of-instance]"])
}

func Test_Parser_PrettyTerm(t *testing.T) {
	p, err := ParseString(lines(chainLog...))
	require.NoError(t, err)
	//
	quant, _ := p.LookupTerm("#5")
	f7, _ := p.LookupTerm("#7")
	//
	assert.Equal(t, "FORALL q1(x: Int) :: f(qvar_0)", p.PrettyTerm(quant, DefaultPrintOptions()))
	assert.Equal(t, "f(a)", p.PrettyTerm(f7, DefaultPrintOptions()))
	assert.Equal(t, "#7:f(#6:a)", p.PrettyTerm(f7, PrintOptions{WithIds: true}))
	assert.Equal(t, "f(...)", p.PrettyTerm(f7, PrintOptions{MaxDepth: 1}))
	assert.Equal(t, "q1", p.QuantName(0))
}

// ===================================================================
// Test Helpers
// ===================================================================

func lines(items ...string) string {
	return strings.Join(items, "\n") + "\n"
}

func check_ParseOk(t *testing.T, items ...string) {
	t.Helper()
	//
	if _, err := ParseString(lines(items...)); err != nil {
		t.Errorf("unexpected error %v for %q", err, items)
	}
}

func check_ParseFails(t *testing.T, expected error, items ...string) {
	t.Helper()
	//
	p, err := ParseString(lines(items...))
	//
	if err == nil {
		t.Errorf("expected error parsing %q", items)
		return
	} else if !assert.ErrorIs(t, err, expected, "parsing %q", items) {
		return
	}
	// Errors are always reported on the last line
	var perr *ParseError
	//
	if assert.ErrorAs(t, err, &perr) {
		assert.Equal(t, uint(len(items)), perr.Line, "error line for %q", items)
		assert.Equal(t, uint(len(items)), p.Line())
	}
}
