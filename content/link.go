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
	"net/url"
	"path"
	"strings"
)

// Prefixes of links into another archive, lower case.
var archivePrefixes = []string{"mk:@msitstore:", "ms-its:", "its:"}

// Link is a resolved hyperlink.
type Link struct {
	// Volume is the file name of the archive named by the link. It is empty
	// for links within the current archive.
	Volume string

	// Path is the absolute path of the target in the archive.
	Path string

	Fragment string

	// External is set to the link itself for targets outside any archive,
	// such as http: or mailto: links.
	External string
}

// ResolveLink resolves href relative to the page at base. Both archive link
// forms "ms-its:vol.chm::/page.htm" and "mk:@MSITStore:vol.chm::/page.htm"
// are understood.
func ResolveLink(href, base string) Link {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	for _, prefix := range archivePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return archiveLink(href[len(prefix):])
		}
	}
	if isExternal(href) {
		return Link{External: href}
	}

	p, frag := splitFragment(href)
	if p == "" {
		return Link{Path: cleanPath(base), Fragment: frag}
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.HasPrefix(p, "/") {
		p = path.Join(path.Dir(cleanPath(base)), p)
	}
	return Link{Path: cleanPath(p), Fragment: frag}
}

func archiveLink(rest string) Link {
	vol, p, found := strings.Cut(rest, "::")
	vol = strings.ReplaceAll(vol, `\`, "/")
	vol = vol[strings.LastIndex(vol, "/")+1:]
	if !found {
		return Link{Volume: vol, Path: "/"}
	}
	p, frag := splitFragment(p)
	return Link{Volume: vol, Path: cleanPath(p), Fragment: frag}
}

// isExternal reports whether href has a URL scheme. Single letter schemes are
// drive letters.
func isExternal(href string) bool {
	i := strings.IndexByte(href, ':')
	if i < 2 {
		return false
	}
	for _, c := range href[:i] {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

func splitFragment(href string) (string, string) {
	p, frag, _ := strings.Cut(href, "#")
	p, _, _ = strings.Cut(p, "?")
	if u, err := url.PathUnescape(p); err == nil {
		p = u
	}
	return p, frag
}

func cleanPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}
