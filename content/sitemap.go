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

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding"
)

// param is a <param> of a sitemap object.
type param struct {
	name  string
	value string
}

// sitemapItem is a text/sitemap object with the items nested below it.
type sitemapItem struct {
	params   []param
	children []*sitemapItem
}

// values returns the values of all params called name, ignoring case.
func (it *sitemapItem) values(name string) []string {
	var vals []string
	for _, p := range it.params {
		if strings.EqualFold(p.name, name) && p.value != "" {
			vals = append(vals, p.value)
		}
	}
	return vals
}

func (it *sitemapItem) first(name string) string {
	if v := it.values(name); len(v) > 0 {
		return v[0]
	}
	return ""
}

// parseSitemap parses the nested <ul>/<li>/<object> markup shared by tables
// of contents and keyword indexes. Objects that are not of type text/sitemap
// are skipped along with their params.
func parseSitemap(b []byte, hint encoding.Encoding) []*sitemapItem {
	text, _ := DecodeText(b, hint)
	z := html.NewTokenizer(strings.NewReader(text))

	root := &sitemapItem{}
	// stack holds the items that receive the objects of each open list.
	stack := []*sitemapItem{root}
	var (
		last   *sitemapItem
		object *sitemapItem
		depth  int
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken && tt != html.EndTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		tag := string(name)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch tag {
			case "ul":
				if tt == html.SelfClosingTagToken {
					continue
				}
				parent := stack[len(stack)-1]
				if last != nil {
					parent = last
				}
				stack = append(stack, parent)
				last = nil
			case "object":
				depth++
				if depth > 1 {
					// Nested objects are not sitemap entries.
					continue
				}
				var typ string
				for more := hasAttr; more; {
					var k, v []byte
					k, v, more = z.TagAttr()
					if strings.EqualFold(string(k), "type") {
						typ = strings.ToLower(string(v))
					}
				}
				if typ == "text/sitemap" {
					object = &sitemapItem{}
				}
			case "param":
				if object == nil || depth != 1 {
					continue
				}
				var p param
				for more := hasAttr; more; {
					var k, v []byte
					k, v, more = z.TagAttr()
					switch strings.ToLower(string(k)) {
					case "name":
						p.name = string(v)
					case "value":
						p.value = strings.TrimSpace(string(v))
					}
				}
				if p.name != "" {
					object.params = append(object.params, p)
				}
			}
		case html.EndTagToken:
			switch tag {
			case "ul":
				if len(stack) > 1 {
					last = stack[len(stack)-1]
					if last == stack[len(stack)-2] {
						last = nil
					}
					stack = stack[:len(stack)-1]
				}
			case "object":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 && object != nil {
					parent := stack[len(stack)-1]
					parent.children = append(parent.children, object)
					last = object
					object = nil
				}
			}
		}
	}

	// An object left open at the end of the input is kept.
	if object != nil {
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, object)
	}
	return root.children
}
