// Copyright 2026 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package index implements a generic sorted array index supporting exact and
// prefix lookups.
package index

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Index is a generic sorted array index. Values are ordered by their String
// keys; values with equal keys keep their original relative order.
type Index[V fmt.Stringer] struct {
	index []V

	cmp func(string, string) int
}

// NewIndex creates an index from the given slice and comparison function.
// cmp(a, b) should return a negative number when a < b, a positive number when
// a > b and zero when a == b or a and b are incomparable in the sense of a
// strict weak ordering. Prefix lookups require cmp to order a string before
// every longer string it prefixes, as strings.Compare does.
func NewIndex[V fmt.Stringer](index []V, cmp func(string, string) int) *Index[V] {
	sorted := slices.Clone(index)
	slices.SortStableFunc(sorted, func(a, b V) int {
		return cmp(a.String(), b.String())
	})

	return &Index[V]{
		index: sorted,
		cmp:   cmp,
	}
}

// Len returns the number of values in the index.
func (idx *Index[V]) Len() int {
	return len(idx.index)
}

// At returns the i-th value in key order.
func (idx *Index[V]) At(i int) V {
	return idx.index[i]
}

// Search performs a binary search over the index and returns the values whose
// key equals query.
func (idx *Index[V]) Search(query string) []V {
	i, found := sort.Find(len(idx.index), func(i int) int {
		return idx.cmp(query, idx.index[i].String())
	})

	if !found {
		return nil
	}

	j := i
	for j < len(idx.index) && idx.cmp(query, idx.index[j].String()) == 0 {
		j++
	}
	return idx.index[i:j]
}

// Prefix returns up to limit values, in key order, whose key starts with
// prefix. A non-positive limit returns all matches.
func (idx *Index[V]) Prefix(prefix string, limit int) []V {
	i := sort.Search(len(idx.index), func(i int) bool {
		return idx.cmp(idx.index[i].String(), prefix) >= 0
	})

	j := i
	for j < len(idx.index) && strings.HasPrefix(idx.index[j].String(), prefix) {
		if limit > 0 && j-i >= limit {
			break
		}
		j++
	}
	if i == j {
		return nil
	}
	return idx.index[i:j]
}
