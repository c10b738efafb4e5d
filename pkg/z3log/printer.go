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
	"strings"
)

// PrintOptions controls how terms are rendered as text.
type PrintOptions struct {
	// Subterms nested deeper than this are elided (zero means no limit).
	MaxDepth uint
	// Prefix each subterm with its solver identifier.
	WithIds bool
}

// DefaultPrintOptions elides deeply nested subterms and omits identifiers.
func DefaultPrintOptions() PrintOptions {
	return PrintOptions{MaxDepth: 8}
}

// PrettyTerm renders a term as text, using attached meanings where available
// (e.g. numerals) and quantifier variable names where known.
func (p *Parser) PrettyTerm(idx TermIdx, opts PrintOptions) string {
	var builder strings.Builder
	//
	p.writeTerm(&builder, idx, opts, 0)
	//
	return builder.String()
}

// QuantName returns a display name for a quantifier.
func (p *Parser) QuantName(idx QuantIdx) string {
	return p.quants[idx].Kind.String()
}

func (p *Parser) writeTerm(builder *strings.Builder, idx TermIdx, opts PrintOptions, depth uint) {
	term := &p.terms[idx]
	//
	if opts.WithIds {
		builder.WriteString(term.Id.String())
		builder.WriteString(":")
	}
	//
	if opts.MaxDepth != 0 && depth >= opts.MaxDepth {
		builder.WriteString("...")
		return
	} else if meaning, ok := term.Meaning.Get(); ok {
		builder.WriteString(meaning.Value)
		return
	}
	//
	switch term.Kind.Tag {
	case VarTerm:
		builder.WriteString(fmt.Sprintf("qvar_%d", term.Kind.Var))
	case QuantTerm:
		quant := &p.quants[term.Kind.Quant]
		//
		builder.WriteString("FORALL ")
		builder.WriteString(quant.Kind.String())
		builder.WriteString("(")
		p.writeVars(builder, quant)
		builder.WriteString(") :: ")
		// The body is the last child, preceded by patterns.
		body := term.Children[len(term.Children)-1]
		p.writeTerm(builder, body, opts, depth+1)
	default:
		builder.WriteString(term.Kind.Name)
		//
		if len(term.Children) == 0 {
			return
		}
		//
		builder.WriteString("(")
		//
		for i, child := range term.Children {
			if i != 0 {
				builder.WriteString(", ")
			}
			//
			p.writeTerm(builder, child, opts, depth+1)
		}
		//
		builder.WriteString(")")
	}
}

func (p *Parser) writeVars(builder *strings.Builder, quant *Quantifier) {
	vars, ok := quant.Vars.Get()
	//
	if !ok {
		for i := range quant.NumVars {
			if i != 0 {
				builder.WriteString(", ")
			}
			//
			builder.WriteString(fmt.Sprintf("qvar_%d", i))
		}
		//
		return
	}
	//
	for i, v := range vars.Vars {
		if i != 0 {
			builder.WriteString(", ")
		}
		//
		if vars.Named {
			builder.WriteString(v.Name)
		} else {
			builder.WriteString(fmt.Sprintf("qvar_%d", i))
		}
		//
		builder.WriteString(": ")
		builder.WriteString(v.Type)
	}
}
