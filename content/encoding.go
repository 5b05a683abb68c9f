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
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// Encoding names for the ANSI code pages used by legacy help archives.
var lcidEncodings = map[uint32]string{
	0x0404: "big5",
	0x0411: "shift_jis",
	0x0412: "euc-kr",
	0x0804: "gbk",
	0x0C04: "big5",
	0x1004: "gbk",
	0x1404: "big5",
}

// Encodings by primary language id.
var languageEncodings = map[uint32]string{
	0x01: "windows-1256", // Arabic
	0x02: "windows-1251", // Bulgarian
	0x05: "windows-1250", // Czech
	0x08: "windows-1253", // Greek
	0x0D: "windows-1255", // Hebrew
	0x0E: "windows-1250", // Hungarian
	0x15: "windows-1250", // Polish
	0x18: "windows-1250", // Romanian
	0x19: "windows-1251", // Russian
	0x1A: "windows-1250", // Croatian
	0x1B: "windows-1250", // Slovak
	0x1E: "windows-874",  // Thai
	0x1F: "windows-1254", // Turkish
	0x20: "windows-1256", // Urdu
	0x22: "windows-1251", // Ukrainian
	0x23: "windows-1251", // Belarusian
	0x24: "windows-1250", // Slovenian
	0x25: "windows-1257", // Estonian
	0x26: "windows-1257", // Latvian
	0x27: "windows-1257", // Lithuanian
	0x29: "windows-1256", // Farsi
	0x2A: "windows-1258", // Vietnamese
}

// EncodingForLCID returns the ANSI code page used for text in archives with
// the given Windows language id. It returns nil for a zero id.
func EncodingForLCID(lcid uint32) encoding.Encoding {
	if lcid == 0 {
		return nil
	}
	name, ok := lcidEncodings[lcid]
	if !ok {
		name, ok = languageEncodings[lcid&0x3FF]
	}
	if !ok {
		name = "windows-1252"
	}
	e, err := htmlindex.Get(name)
	if err != nil {
		return nil
	}
	return e
}

// DecodeText converts text in an archive to UTF-8. The encoding is chosen in
// order from a byte order mark or a <meta> charset declaration in the text,
// valid UTF-8, and the hint. Text that still can't be decoded is mapped byte
// for byte as ISO-8859-1 so that nothing is lost. The name of the encoding
// used is returned along with the text.
func DecodeText(b []byte, hint encoding.Encoding) (string, string) {
	if e, name := declaredEncoding(b); e != nil {
		if s, ok := decode(e, name, b); ok {
			return s, name
		}
	}
	if utf8.Valid(b) {
		return string(b), "utf-8"
	}
	if hint != nil {
		name, _ := htmlindex.Name(hint)
		if s, ok := decode(hint, name, b); ok {
			return s, name
		}
	}
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(s), "iso-8859-1"
}

var replacementChar = []byte(string(utf8.RuneError))

// decode decodes b with e. Decoders substitute U+FFFD for invalid input
// rather than failing, so decoding fails if the output has more replacement
// characters than the input.
func decode(e encoding.Encoding, name string, b []byte) (string, bool) {
	s, err := e.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(name, "utf-16") && bytes.Count(s, replacementChar) > bytes.Count(b, replacementChar) {
		return "", false
	}
	return string(s), true
}

// declaredEncoding returns the encoding named by a byte order mark or by a
// <meta> element in the head of an HTML document.
func declaredEncoding(b []byte) (encoding.Encoding, string) {
	if e, name, certain := charset.DetermineEncoding(b, ""); certain {
		return e, name
	}

	z := html.NewTokenizer(bytes.NewReader(b[:min(len(b), 4096)]))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return nil, ""
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "head" {
				return nil, ""
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) == "body" {
				return nil, ""
			}
			if string(name) != "meta" || !hasAttr {
				continue
			}
			var label, httpEquiv, content string
			for more := true; more; {
				var k, v []byte
				k, v, more = z.TagAttr()
				switch strings.ToLower(string(k)) {
				case "charset":
					label = string(v)
				case "http-equiv":
					httpEquiv = strings.ToLower(string(v))
				case "content":
					content = string(v)
				}
			}
			if label == "" && httpEquiv == "content-type" {
				label = charsetParam(content)
			}
			if label != "" {
				if e, name := charset.Lookup(label); e != nil {
					return e, name
				}
			}
		}
	}
}

// charsetParam extracts the charset parameter of a content type.
func charsetParam(contentType string) string {
	i := strings.Index(strings.ToLower(contentType), "charset=")
	if i < 0 {
		return ""
	}
	v := strings.TrimSpace(contentType[i+len("charset="):])
	if j := strings.IndexAny(v, "; "); j >= 0 {
		v = v[:j]
	}
	return strings.Trim(v, `"'`)
}
