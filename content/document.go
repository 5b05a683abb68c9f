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

	"github.com/k3a/html2text"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding"
)

// Document is a page converted for display and indexing.
type Document struct {
	Title string

	// PlainText is the visible text of the page.
	PlainText string

	// HTML is the body of the page with active content removed.
	HTML string

	// Encoding is the name of the encoding the page was decoded from.
	Encoding string
}

// Elements dropped together with their content.
var droppedElements = map[string]bool{
	"applet":   true,
	"frameset": true,
	"iframe":   true,
	"noscript": true,
	"object":   true,
	"script":   true,
	"style":    true,
}

// Void elements dropped without content. They have no end tag.
var droppedVoidElements = map[string]bool{
	"embed": true,
	"frame": true,
	"param": true,
}

// Attributes holding URLs.
var urlAttributes = map[string]bool{
	"action":     true,
	"background": true,
	"formaction": true,
	"href":       true,
	"src":        true,
}

// ParseDocument decodes an HTML page and produces its plain text and
// sanitized markup. It does not fail: undecodable bytes are mapped lossily and
// malformed markup is passed over.
func ParseDocument(b []byte, hint encoding.Encoding) *Document {
	decoded, enc := DecodeText(b, hint)
	doc := &Document{Encoding: enc}

	var (
		out     strings.Builder
		text    strings.Builder
		title   strings.Builder
		inHead  bool
		inTitle bool
		// skip counts open dropped elements named skipTag.
		skip    int
		skipTag string
	)
	z := html.NewTokenizer(strings.NewReader(decoded))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()

		if skip > 0 {
			switch {
			case tt == html.StartTagToken && tok.Data == skipTag:
				skip++
			case tt == html.EndTagToken && tok.Data == skipTag:
				skip--
			}
			continue
		}

		switch tt {
		case html.CommentToken, html.DoctypeToken:
			continue
		case html.TextToken:
			if inTitle {
				title.WriteString(tok.Data)
			}
			if inHead {
				continue
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			switch {
			case droppedVoidElements[tok.Data]:
				continue
			case droppedElements[tok.Data]:
				if tt == html.StartTagToken {
					skip, skipTag = 1, tok.Data
				}
				continue
			case tok.Data == "head":
				inHead = true
				continue
			case tok.Data == "body":
				inHead = false
				continue
			case tok.Data == "title":
				inTitle = tt == html.StartTagToken
				continue
			case tok.Data == "html" || inHead:
				continue
			}
			tok.Attr = sanitizeAttrs(tok.Attr)
		case html.EndTagToken:
			switch tok.Data {
			case "head":
				inHead = false
				continue
			case "title":
				inTitle = false
				continue
			case "html", "body":
				continue
			}
			if inHead {
				continue
			}
		}
		out.WriteString(tok.String())
		// Links and images contribute only their text to the plain text.
		if tt != html.TextToken && (tok.Data == "a" || tok.Data == "img") {
			continue
		}
		text.WriteString(tok.String())
	}

	doc.Title = strings.Join(strings.Fields(title.String()), " ")
	doc.HTML = strings.TrimSpace(out.String())
	doc.PlainText = strings.TrimSpace(html2text.HTML2TextWithOptions(text.String(), html2text.WithUnixLineBreaks()))
	return doc
}

func sanitizeAttrs(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if urlAttributes[key] && isScriptURL(a.Val) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// isScriptURL reports whether a URL runs script when followed. Browsers
// ignore embedded whitespace and control characters in the scheme.
func isScriptURL(u string) bool {
	var scheme strings.Builder
	for _, r := range u {
		if r <= ' ' {
			continue
		}
		if r == ':' {
			break
		}
		scheme.WriteRune(r)
	}
	s := strings.ToLower(scheme.String())
	return s == "javascript" || s == "vbscript"
}
