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

package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

var docs = []Document{
	{ID: 10, Headword: "Aal", Text: "Ein Fisch im Wasser."},
	{ID: 11, Headword: "abbauen", Text: "Etwas abbauen oder zerlegen."},
	{ID: 12, Headword: "Abend", Text: "Die Zeit vor der Nacht. Aal am Abend."},
	{ID: 13, Headword: "Grüße", Text: "Viele Grüße aus Köln."},
}

func ids(hits []Hit) []int {
	var got []int
	for _, h := range hits {
		got = append(got, h.ID)
	}
	return got
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := Tokenize("Grüße, Café-Crème 42!")
	want := []Token{
		{Term: "grusse", Span: Span{0, 7}},
		{Term: "cafe", Span: Span{9, 14}},
		{Term: "creme", Span: Span{15, 21}},
		{Term: "42", Span: Span{22, 24}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize (-want, +got):\n%s", diff)
	}
}

func TestIndex_Search(t *testing.T) {
	t.Parallel()

	idx := New(docs)

	tests := []struct {
		name  string
		query string
		limit int

		expected []int
	}{
		{
			name:     "headword ranks first",
			query:    "aal",
			expected: []int{10, 12},
		},
		{
			name:     "prefix",
			query:    "ab",
			expected: []int{11, 12},
		},
		{
			name:     "prefix only on last term",
			query:    "fis wasser",
			expected: []int{10},
		},
		{
			name:     "diacritics and case",
			query:    "GRUSSE",
			expected: []int{13},
		},
		{
			name:     "limit",
			query:    "a",
			limit:    2,
			expected: []int{11, 12},
		},
		{
			name:     "no terms",
			query:    " ,. ",
			expected: nil,
		},
		{
			name:     "no match",
			query:    "zzz",
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(test.expected, ids(idx.Search(test.query, test.limit))); diff != "" {
				t.Errorf("Search (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestIndex_Search_spans(t *testing.T) {
	t.Parallel()

	idx := New(docs)
	hits := idx.Search("aal", 0)
	if len(hits) != 2 {
		t.Fatalf("Search: got %d hits, want 2", len(hits))
	}

	if diff := cmp.Diff([]Span{{0, 3}}, hits[0].HeadwordSpans); diff != "" {
		t.Errorf("HeadwordSpans (-want, +got):\n%s", diff)
	}
	if hits[0].Spans != nil {
		t.Errorf("Spans: got %v, want none", hits[0].Spans)
	}
	if hits[0].Snippet != "Ein Fisch im Wasser." {
		t.Errorf("Snippet: got %q", hits[0].Snippet)
	}

	if diff := cmp.Diff([]Span{{24, 27}}, hits[1].Spans); diff != "" {
		t.Errorf("Spans (-want, +got):\n%s", diff)
	}
}

func TestIndex_Search_snippet(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("füllwort ", 40) + "Zielwort " + strings.Repeat("füllwort ", 40)
	idx := New([]Document{{ID: 1, Headword: "x", Text: text}})

	hits := idx.Search("zielwort", 1)
	if len(hits) != 1 {
		t.Fatalf("Search: got %d hits, want 1", len(hits))
	}
	h := hits[0]
	if len(h.Snippet) >= len(text) {
		t.Errorf("Snippet: not shortened (%d bytes)", len(h.Snippet))
	}
	if len(h.Spans) != 1 {
		t.Fatalf("Spans: got %v, want one span", h.Spans)
	}
	if got := h.Snippet[h.Spans[0].Start:h.Spans[0].End]; got != "Zielwort" {
		t.Errorf("Snippet span: got %q, want %q", got, "Zielwort")
	}
	if !utf8.ValidString(h.Snippet) {
		t.Errorf("Snippet: invalid UTF-8 %q", h.Snippet)
	}
}
