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

package index

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type String string

func (s String) String() string {
	return string(s)
}

type entry struct {
	key string
	id  int
}

func (e entry) String() string {
	return e.key
}

func TestIndex_Search(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		index    []String
		query    string
		expected []String
	}{
		{
			name:     "single results",
			index:    []String{"foo", "bar", "baz", "bar"},
			query:    "foo",
			expected: []String{"foo"},
		},
		{
			name:     "multiple results",
			index:    []String{"foo", "bar", "baz", "bar"},
			query:    "bar",
			expected: []String{"bar", "bar"},
		},
		{
			name:     "no results",
			index:    []String{"foo", "bar", "baz", "bar"},
			query:    "none",
			expected: nil,
		},
		{
			name:     "empty index",
			index:    nil,
			query:    "foo",
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			index := NewIndex(test.index, strings.Compare)

			if diff := cmp.Diff(test.expected, index.Search(test.query)); diff != "" {
				t.Fatalf("Search (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestIndex_Prefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		index    []String
		prefix   string
		limit    int
		expected []String
	}{
		{
			name:     "all with prefix",
			index:    []String{"abc", "b", "ab", "abbauen", "a"},
			prefix:   "ab",
			limit:    10,
			expected: []String{"ab", "abbauen", "abc"},
		},
		{
			name:     "limit",
			index:    []String{"abc", "b", "ab", "abbauen", "a"},
			prefix:   "ab",
			limit:    2,
			expected: []String{"ab", "abbauen"},
		},
		{
			name:     "no limit",
			index:    []String{"abc", "b", "ab", "abbauen", "a"},
			prefix:   "a",
			limit:    0,
			expected: []String{"a", "ab", "abbauen", "abc"},
		},
		{
			name:     "empty prefix",
			index:    []String{"b", "a"},
			prefix:   "",
			limit:    10,
			expected: []String{"a", "b"},
		},
		{
			name:     "no match",
			index:    []String{"abc", "b"},
			prefix:   "c",
			limit:    10,
			expected: nil,
		},
		{
			name:     "past last",
			index:    []String{"abc", "b"},
			prefix:   "abd",
			limit:    10,
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			index := NewIndex(test.index, strings.Compare)

			if diff := cmp.Diff(test.expected, index.Prefix(test.prefix, test.limit)); diff != "" {
				t.Fatalf("Prefix (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestIndex_stable(t *testing.T) {
	t.Parallel()

	index := NewIndex([]entry{{"b", 1}, {"a", 2}, {"b", 3}, {"a", 4}}, strings.Compare)
	var got []int
	for i := range index.Len() {
		got = append(got, index.At(i).id)
	}
	if diff := cmp.Diff([]int{2, 4, 1, 3}, got); diff != "" {
		t.Fatalf("order (-want, +got):\n%s", diff)
	}
}
