// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package catalog

import (
	"cmp"
	"slices"

	"github.com/ostafen/zipsniff/pkg/mediatype"
)

// PriorityDefinitive is the priority from which a match ends the scan of a container.
const PriorityDefinitive = 100

// Match is the outcome of a successful classification.
type Match struct {
	Type     mediatype.Type
	Priority int
	Desc     string
	// Index is the declaration index of the matching rule.
	Index int
}

// Definitive reports whether no other entry may change the classification.
func (m Match) Definitive() bool {
	return m.Priority >= PriorityDefinitive
}

// Outranks reports whether m should replace other as the best candidate: its priority
// must be strictly higher, or equal with an earlier declaration.
func (m Match) Outranks(other Match) bool {
	if m.Priority != other.Priority {
		return m.Priority > other.Priority
	}
	return m.Index < other.Index
}

type indexedRule struct {
	Rule
	index int
}

// Catalog is an ordered, immutable set of rules. It is safe for concurrent use.
type Catalog struct {
	rules []indexedRule
}

// New builds a catalog out of rules. Rules are sorted by descending priority,
// keeping declaration order among rules with the same priority.
func New(rules ...Rule) *Catalog {
	sorted := make([]indexedRule, len(rules))
	for i, r := range rules {
		sorted[i] = indexedRule{Rule: r, index: i}
	}

	slices.SortStableFunc(sorted, func(a, b indexedRule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return &Catalog{rules: sorted}
}

// Classify returns the highest priority rule matching the entry.
func (c *Catalog) Classify(name string, content []byte) (Match, bool) {
	for _, r := range c.rules {
		if r.Match(name, content) {
			return Match{
				Type:     r.Type,
				Priority: r.Priority,
				Desc:     r.Desc,
				Index:    r.index,
			}, true
		}
	}
	return Match{}, false
}

// NeedsContent reports whether classifying the entry requires its content.
func (c *Catalog) NeedsContent(name string) bool {
	for _, r := range c.rules {
		if r.Content.NeedsContent() && r.Entry.Match(name) {
			return true
		}
	}
	return false
}

// Rules returns the rules of the catalog in evaluation order.
func (c *Catalog) Rules() []Rule {
	rules := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		rules[i] = r.Rule
	}
	return rules
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}
