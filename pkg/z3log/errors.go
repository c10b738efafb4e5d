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
	"fmt"
)

// ErrorKind classifies a parse failure.
type ErrorKind uint8

const (
	// MalformedLine indicates a payload which does not match the shape
	// expected for its tag (missing fields, bad numerals, etc).
	MalformedLine ErrorKind = iota
	// UnresolvedReference indicates an identifier (or fingerprint) which does
	// not refer to anything previously declared.
	UnresolvedReference
	// Inconsistency indicates metadata which disagrees with, or duplicates,
	// metadata already attached.
	Inconsistency
	// Structural indicates a violation of the instantiation block nesting.
	Structural
)

var (
	// ErrMalformedLine is matched (via errors.Is) by MalformedLine errors.
	ErrMalformedLine = errors.New("malformed line")
	// ErrUnresolvedReference is matched by UnresolvedReference errors.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrInconsistency is matched by Inconsistency errors.
	ErrInconsistency = errors.New("inconsistent metadata")
	// ErrStructural is matched by Structural errors.
	ErrStructural = errors.New("structural error")
)

func (p ErrorKind) sentinel() error {
	switch p {
	case UnresolvedReference:
		return ErrUnresolvedReference
	case Inconsistency:
		return ErrInconsistency
	case Structural:
		return ErrStructural
	}
	//
	return ErrMalformedLine
}

func (p ErrorKind) String() string {
	return p.sentinel().Error()
}

// ParseError is a structured error which retains the line on which parsing
// failed, along with the tag of that line and an error message.
type ParseError struct {
	Kind ErrorKind
	// Line number (counting from 1) where the error arose.
	Line uint
	// Event tag of the offending line (empty at end-of-stream).
	Tag string
	Msg string
}

// Error implements the error interface.
func (p *ParseError) Error() string {
	if p.Tag == "" {
		return fmt.Sprintf("line %d: %s: %s", p.Line, p.Kind, p.Msg)
	}
	//
	return fmt.Sprintf("line %d: %s %s: %s", p.Line, p.Kind, p.Tag, p.Msg)
}

// Unwrap exposes the sentinel error of this kind.
func (p *ParseError) Unwrap() error {
	return p.Kind.sentinel()
}

func malformed(format string, args ...any) error {
	return &ParseError{Kind: MalformedLine, Msg: fmt.Sprintf(format, args...)}
}

func unresolved(format string, args ...any) error {
	return &ParseError{Kind: UnresolvedReference, Msg: fmt.Sprintf(format, args...)}
}

func inconsistent(format string, args ...any) error {
	return &ParseError{Kind: Inconsistency, Msg: fmt.Sprintf(format, args...)}
}

func structural(format string, args ...any) error {
	return &ParseError{Kind: Structural, Msg: fmt.Sprintf(format, args...)}
}
