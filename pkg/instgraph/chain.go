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
package instgraph

import (
	"slices"
	"strings"
)

// FilterChain is an ordered list of filters which, applied from full
// visibility, reproduces a view.  Undoing a filter is done by dropping it
// and replaying the remainder.
type FilterChain struct {
	filters []Filter
}

// NewFilterChain constructs a chain from some initial filters.
func NewFilterChain(filters ...Filter) *FilterChain {
	return &FilterChain{slices.Clone(filters)}
}

// Filters returns the filters of this chain, in application order.
func (p *FilterChain) Filters() []Filter {
	return p.filters
}

// Len returns the number of filters in this chain.
func (p *FilterChain) Len() uint {
	return uint(len(p.filters))
}

// Push a filter onto the end of the chain.  A Reset discards all earlier
// filters, as they can no longer have any effect.
func (p *FilterChain) Push(filter Filter) {
	if _, ok := filter.(Reset); ok {
		p.filters = p.filters[:0]
		return
	}
	//
	p.filters = append(p.filters, filter)
}

// SetToPrevious drops the most recently pushed filter, returning false if the
// chain was already empty.
func (p *FilterChain) SetToPrevious() bool {
	if len(p.filters) == 0 {
		return false
	}
	//
	p.filters = p.filters[:len(p.filters)-1]
	//
	return true
}

// ApplyTo resets a view and then applies every filter in order.  The path
// returned by the last filter is returned.
func (p *FilterChain) ApplyTo(view *View) []NodeIdx {
	var path []NodeIdx
	//
	view.Reset()
	//
	for _, f := range p.filters {
		path = view.Apply(f)
	}
	//
	return path
}

func (p *FilterChain) String() string {
	names := make([]string, len(p.filters))
	//
	for i, f := range p.filters {
		names[i] = f.String()
	}
	//
	return strings.Join(names, " ")
}
