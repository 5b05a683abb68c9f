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

package chmdict

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/ianlewis/go-chmdict/content"
)

// LinkKind is the kind of a link target.
type LinkKind int

const (
	// LinkNotFound is a link to a page that doesn't exist.
	LinkNotFound LinkKind = iota

	// LinkContent is a link to a page of the dictionary.
	LinkContent

	// LinkHeadword is a link to the page of a headword.
	LinkHeadword

	// LinkExternal is a link leaving the dictionary.
	LinkExternal
)

func (k LinkKind) String() string {
	switch k {
	case LinkNotFound:
		return "not-found"
	case LinkContent:
		return "content"
	case LinkHeadword:
		return "headword"
	case LinkExternal:
		return "external"
	default:
		return fmt.Sprintf("LinkKind(%d)", int(k))
	}
}

// LinkTarget is a resolved link.
type LinkTarget struct {
	Kind LinkKind

	// Volume, Path and Fragment locate the target page for content and
	// headword links.
	Volume   string
	Path     string
	Fragment string

	// ID is the id of the headword for headword links.
	ID int

	// URL is the link itself for external links.
	URL string
}

// ResolveLinkTarget resolves href found on the page currentLocal of volume
// currentSource. Links to the page of a headword resolve to the headword.
// Relative links that miss in the current volume are tried in the other
// volumes, and finally the link's file name is looked up as a headword.
// Unresolvable links are reported as LinkNotFound rather than as an error.
func (s *Service) ResolveLinkTarget(href, currentSource, currentLocal string) (LinkTarget, error) {
	snap, err := s.snapshot()
	if err != nil {
		return LinkTarget{}, err
	}

	link := content.ResolveLink(href, currentLocal)
	if link.External != "" {
		return LinkTarget{Kind: LinkExternal, URL: link.External}, nil
	}
	hint := currentSource
	if link.Volume != "" {
		hint = link.Volume
	}

	if v, ok := snap.find(hint, link.Path); ok {
		t := LinkTarget{
			Kind:     LinkContent,
			Volume:   v.Name,
			Path:     link.Path,
			Fragment: link.Fragment,
		}
		if id, ok := snap.pages[pageKey(v.Name, link.Path)]; ok {
			t.Kind, t.ID = LinkHeadword, id
		}
		return t, nil
	}

	stem := strings.TrimSuffix(path.Base(link.Path), path.Ext(link.Path))
	if records := snap.Lookup(stem); len(records) > 0 {
		src := records[0].Sources[0]
		return LinkTarget{
			Kind:     LinkHeadword,
			Volume:   src.Volume,
			Path:     src.Path,
			Fragment: src.Fragment,
			ID:       records[0].ID,
		}, nil
	}
	return LinkTarget{Kind: LinkNotFound, Path: link.Path, Fragment: link.Fragment}, nil
}

// ResolveMediaDataURL returns the object linked by href on the page
// currentLocal of volume currentSource, such as an image, as a data URL.
func (s *Service) ResolveMediaDataURL(href, currentSource, currentLocal string) (string, error) {
	snap, err := s.snapshot()
	if err != nil {
		return "", err
	}

	link := content.ResolveLink(href, currentLocal)
	if link.External != "" {
		return "", fmt.Errorf("%w: external link %q", ErrNotFound, href)
	}
	hint := currentSource
	if link.Volume != "" {
		hint = link.Volume
	}
	v, ok := snap.find(hint, link.Path)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, href)
	}
	b, err := v.Archive.ReadObject(link.Path)
	if err != nil {
		return "", fmt.Errorf("reading %s::%s: %w", v.Name, link.Path, err)
	}

	typ := mime.TypeByExtension(strings.ToLower(path.Ext(link.Path)))
	if typ == "" {
		typ = http.DetectContentType(b)
	}
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = typ[:i]
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}
