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

package content

import "golang.org/x/text/encoding"

// Node is a table of contents entry.
type Node struct {
	Title string

	// Local is the link to the page, as written in the table of contents.
	Local string

	Children []*Node
}

// ParseTOC parses a table of contents (.hhc). Nodes are returned in document
// order. Entries without a title or link that have no children are dropped.
func ParseTOC(b []byte, hint encoding.Encoding) []*Node {
	return tocNodes(parseSitemap(b, hint))
}

func tocNodes(items []*sitemapItem) []*Node {
	var nodes []*Node
	for _, it := range items {
		n := &Node{
			Title:    it.first("Name"),
			Local:    it.first("Local"),
			Children: tocNodes(it.children),
		}
		if n.Title == "" {
			n.Title = n.Local
		}
		if n.Title == "" && len(n.Children) == 0 {
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Walk calls fn for each node in depth first document order. Walking stops
// early if fn returns false.
func Walk(nodes []*Node, fn func(n *Node, depth int) bool) bool {
	return walk(nodes, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(*Node, int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) || !walk(n.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// Keyword is a keyword index entry.
type Keyword struct {
	Headword string
	Aliases  []string

	// Local is the link to the page the keyword refers to.
	Local string
}

// ParseKeywordIndex parses a keyword index (.hhk). The first Name of an entry
// is its headword and further Name or Keyword params are aliases. Sub-entries
// become keywords of their own. Entries that link to no page are skipped.
func ParseKeywordIndex(b []byte, hint encoding.Encoding) []Keyword {
	var keywords []Keyword
	var visit func([]*sitemapItem)
	visit = func(items []*sitemapItem) {
		for _, it := range items {
			if k, ok := keyword(it); ok {
				keywords = append(keywords, k)
			}
			visit(it.children)
		}
	}
	visit(parseSitemap(b, hint))
	return keywords
}

func keyword(it *sitemapItem) (Keyword, bool) {
	names := it.values("Name")
	local := it.first("Local")
	if len(names) == 0 || local == "" {
		return Keyword{}, false
	}
	k := Keyword{
		Headword: names[0],
		Local:    local,
	}
	seen := map[string]bool{k.Headword: true}
	for _, a := range append(names[1:], it.values("Keyword")...) {
		if !seen[a] {
			seen[a] = true
			k.Aliases = append(k.Aliases, a)
		}
	}
	return k, true
}
