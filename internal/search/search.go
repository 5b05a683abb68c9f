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

// Package search implements ranked full text search over headwords and page
// text using the Okapi BM25 scoring function.
//
// Headword and text fields are weighted by repeating their terms, so a term
// in the headword counts as much as HeadwordWeight occurrences in the text.
// The last term of a query also matches every indexed term it prefixes, so
// results appear while a word is still being typed. The index is immutable
// once built and is safe for concurrent use.
package search

import (
	"cmp"
	"math"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ianlewis/go-chmdict/internal/folding"
)

// BM25 parameters (Okapi variant, standard values).
const (
	paramK1      = 1.2
	paramB       = 0.75
	paramEpsilon = 0.25
)

const (
	// HeadwordWeight is the weight of headword terms.
	HeadwordWeight = 3

	// TextWeight is the weight of page text terms.
	TextWeight = 1

	// maxExpansions bounds the number of terms a query prefix expands to.
	maxExpansions = 64

	// snippetContext is the number of bytes of text kept around the first
	// match in a snippet.
	snippetContext = 80
)

// Document is a searchable entry.
type Document struct {
	ID       int
	Headword string
	Text     string
}

// Span is a byte range [Start, End) in a string.
type Span struct {
	Start int
	End   int
}

// Hit is a search result.
type Hit struct {
	ID    int
	Score float64

	// HeadwordSpans are the matched ranges of the document headword.
	HeadwordSpans []Span

	// Snippet is an excerpt of the text around the first match and Spans
	// are the matched ranges within it.
	Snippet string
	Spans   []Span
}

// Token is a folded term and its position in the original text.
type Token struct {
	Term string
	Span Span
}

type posting struct {
	doc int
	tf  float64
}

// Index is a BM25 index.
type Index struct {
	docs    []Document
	lengths []float64
	avgLen  float64

	postings map[string][]posting
	idf      map[string]float64

	// ids maps document ids to positions in docs.
	ids map[int]int

	// terms holds all indexed terms in order for prefix expansion.
	terms []string
}

// Tokenize splits text into runs of letters and digits. Terms are folded for
// search and carry their byte range in text.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i, r := range text {
		word := unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			tokens = appendToken(tokens, text, start, i)
			start = -1
		}
	}
	if start >= 0 {
		tokens = appendToken(tokens, text, start, len(text))
	}
	return tokens
}

func appendToken(tokens []Token, text string, start, end int) []Token {
	term := folding.String(folding.Search, text[start:end])
	if term == "" {
		return tokens
	}
	return append(tokens, Token{Term: term, Span: Span{start, end}})
}

// New builds an index over docs.
func New(docs []Document) *Index {
	idx := &Index{
		docs:     docs,
		lengths:  make([]float64, len(docs)),
		postings: make(map[string][]posting),
		idf:      make(map[string]float64),
		ids:      make(map[int]int, len(docs)),
	}

	var total float64
	for i, d := range docs {
		idx.ids[d.ID] = i
		tf := make(map[string]float64)
		head := Tokenize(d.Headword)
		text := Tokenize(d.Text)
		for _, t := range head {
			tf[t.Term] += HeadwordWeight
		}
		for _, t := range text {
			tf[t.Term] += TextWeight
		}
		idx.lengths[i] = float64(HeadwordWeight*len(head) + TextWeight*len(text))
		total += idx.lengths[i]

		// Postings are appended in document order.
		terms := make([]string, 0, len(tf))
		for term := range tf {
			terms = append(terms, term)
		}
		slices.Sort(terms)
		for _, term := range terms {
			idx.postings[term] = append(idx.postings[term], posting{doc: i, tf: tf[term]})
		}
	}
	if len(docs) > 0 {
		idx.avgLen = total / float64(len(docs))
	}

	n := float64(len(docs))
	for term, p := range idx.postings {
		df := float64(len(p))
		v := math.Log(1 + (n-df+0.5)/(df+0.5))
		if v <= 0 {
			v = paramEpsilon
		}
		idx.idf[term] = v
		idx.terms = append(idx.terms, term)
	}
	slices.Sort(idx.terms)
	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.docs)
}

// expand returns the indexed terms starting with prefix.
func (idx *Index) expand(prefix string) []string {
	i := sort.SearchStrings(idx.terms, prefix)
	var terms []string
	for ; i < len(idx.terms) && strings.HasPrefix(idx.terms[i], prefix); i++ {
		if len(terms) == maxExpansions {
			break
		}
		terms = append(terms, idx.terms[i])
	}
	return terms
}

func (idx *Index) termScore(term string, p posting) float64 {
	dl := idx.lengths[p.doc]
	avg := idx.avgLen
	if avg == 0 {
		avg = 1
	}
	return idx.idf[term] * p.tf * (paramK1 + 1) / (p.tf + paramK1*(1-paramB+paramB*dl/avg))
}

// Search returns up to limit hits ranked by relevance to query. Hits with
// equal scores are ordered by id. A non-positive limit returns all hits.
func (idx *Index) Search(query string, limit int) []Hit {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	matched := make(map[string]bool)
	for i, t := range tokens {
		// Each query term contributes the score of its best expansion.
		best := make(map[int]float64)
		terms := []string{t.Term}
		if i == len(tokens)-1 {
			terms = idx.expand(t.Term)
		}
		for _, term := range terms {
			matched[term] = true
			for _, p := range idx.postings[term] {
				if s := idx.termScore(term, p); s > best[p.doc] {
					best[p.doc] = s
				}
			}
		}
		for doc, s := range best {
			scores[doc] += s
		}
	}

	hits := make([]Hit, 0, len(scores))
	for doc, s := range scores {
		hits = append(hits, Hit{ID: idx.docs[doc].ID, Score: s})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	for i := range hits {
		d := idx.docs[idx.ids[hits[i].ID]]
		hits[i].HeadwordSpans = matchSpans(Tokenize(d.Headword), matched)
		hits[i].Snippet, hits[i].Spans = snippet(d.Text, matched)
	}
	return hits
}

func matchSpans(tokens []Token, matched map[string]bool) []Span {
	var spans []Span
	for _, t := range tokens {
		if matched[t.Term] {
			spans = append(spans, t.Span)
		}
	}
	return spans
}

// snippet cuts an excerpt of text around the first matched term and returns
// it with the matched ranges relative to the excerpt.
func snippet(text string, matched map[string]bool) (string, []Span) {
	spans := matchSpans(Tokenize(text), matched)
	if len(spans) == 0 {
		end := min(len(text), 2*snippetContext)
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end++
		}
		return strings.TrimSpace(text[:end]), nil
	}

	start := max(0, spans[0].Start-snippetContext)
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	end := min(len(text), spans[0].End+snippetContext)
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	var rel []Span
	for _, s := range spans {
		if s.Start >= start && s.End <= end {
			rel = append(rel, Span{s.Start - start, s.End - start})
		}
	}
	return text[start:end], rel
}
