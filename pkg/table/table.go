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

package table

import (
	"slices"
	"strings"
)

// TableSize is the number of slots of the prefix marker table, one for each
// value of the 16-bit rolling hash.
const TableSize = 1 << 16

// PrefixTable maps byte keys to values and finds all keys that are
// prefixes of a given input in a single pass over it.
//
// A rolling hash of each key prefix marks a slot in a fixed table. A lookup
// walks the input, and stops as soon as it reaches a slot no key prefix
// hashes to, so that inputs sharing no prefix with any key are rejected after
// the first few bytes. Hash collisions are resolved by the final map lookup.
type PrefixTable[T any] struct {
	markers [TableSize]byte
	elems   map[string]T
	maxLen  int
}

const (
	// none: no key prefix hashes to the slot.
	none = iota
	// partial: a proper prefix of some key hashes to the slot.
	partial
	// complete: a whole key hashes to the slot.
	complete
)

func New[T any]() *PrefixTable[T] {
	return &PrefixTable[T]{
		elems: make(map[string]T),
	}
}

func hashStep(h uint16, b byte) uint16 {
	return (h << 2) + uint16(b)
}

// Insert associates v with key, replacing any previous value.
func (t *PrefixTable[T]) Insert(key []byte, v T) {
	var h uint16
	for _, b := range key {
		h = hashStep(h, b)
		// never downgrade a slot already marked by a shorter complete key
		t.markers[h] = max(t.markers[h], partial)
	}
	t.markers[h] = complete
	t.elems[string(key)] = v
	t.maxLen = max(t.maxLen, len(key))
}

func (t *PrefixTable[T]) Get(key []byte) (T, bool) {
	v, found := t.elems[string(key)]
	return v, found
}

// Walk calls onMatch for every key which is a prefix of data, shortest first,
// until onMatch returns true.
func (t *PrefixTable[T]) Walk(data []byte, onMatch func(key []byte, v T) bool) {
	if len(t.elems) == 0 {
		return
	}

	var h uint16
	for i, b := range data[:min(len(data), t.maxLen)] {
		h = hashStep(h, b)

		switch t.markers[h] {
		case none:
			return
		case complete:
			if v, ok := t.elems[string(data[:i+1])]; ok && onMatch(data[:i+1], v) {
				return
			}
		}
	}
}

// MaxKeyLen returns the length of the longest key.
func (t *PrefixTable[T]) MaxKeyLen() int {
	return t.maxLen
}

// Keys returns all the keys in lexicographic order.
func (t *PrefixTable[T]) Keys() [][]byte {
	keys := make([]string, 0, len(t.elems))
	for k := range t.elems {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, strings.Compare)

	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out
}

func (t *PrefixTable[T]) Size() int {
	return len(t.elems)
}
