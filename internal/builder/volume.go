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

package builder

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/ianlewis/go-chmdict/chm"
	"github.com/ianlewis/go-chmdict/content"
	"github.com/ianlewis/go-chmdict/internal/natsort"
	"github.com/ianlewis/go-chmdict/source"
)

// ErrTruncated indicates a page shorter than its directory entry declares.
// The page is still used.
var ErrTruncated = errors.New("page truncated")

// Volume is an opened volume of a snapshot.
type Volume struct {
	// Name is the file name of the volume.
	Name string
	Path string

	Title        string
	DefaultTopic string
	LanguageID   uint32

	// Encoding is the encoding assumed for text that declares none.
	Encoding encoding.Encoding

	Archive *chm.Archive
}

// Node is a table of contents entry.
type Node struct {
	Title string

	// Volume and Path locate the page of the entry. Path is empty for
	// entries without a page.
	Volume   string
	Path     string
	Fragment string

	Children []*Node
}

// keyword is a headword of a volume before ids are assigned.
type keyword struct {
	headword string
	aliases  []string
	link     content.Link
}

// parsedVolume is the result of parsing one volume.
type parsedVolume struct {
	volume   *Volume
	contents []*Node
	keywords []keyword
	pages    map[string]*content.Document
	warnings []*VolumeError
}

func (p *parsedVolume) warn(path string, err error) {
	p.warnings = append(p.warnings, &VolumeError{Volume: p.volume.Name, Path: path, Err: err})
}

// names reports whether a link to the volume named volume refers to p.
// Links name volumes by file name only.
func (p *parsedVolume) names(volume string) bool {
	return volumeKey(natsort.Stem(volume)) == volumeKey(natsort.Stem(p.volume.Name))
}

// page returns the parsed page at path.
func (p *parsedVolume) page(path string) (*content.Document, error) {
	if doc, ok := p.pages[path]; ok {
		return doc, nil
	}
	obj, err := p.volume.Archive.ResolveObject(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // VolumeError adds the context.
	}
	if obj.Truncated {
		p.warn(path, ErrTruncated)
	}
	doc := content.ParseDocument(obj.Data, p.volume.Encoding)
	p.pages[path] = doc
	return doc, nil
}

func (b *builder) parseVolume(path, name string) (*parsedVolume, error) {
	data, err := source.ReadVolume(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // VolumeError adds the context.
	}
	a, err := chm.Open(data, &chm.Options{
		Name:   name,
		Cache:  b.cache,
		Logger: b.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	v := &Volume{
		Name:       name,
		Path:       path,
		LanguageID: a.LanguageID(),
		Archive:    a,
	}
	p := &parsedVolume{
		volume: v,
		pages:  make(map[string]*content.Document),
	}

	var sys *content.System
	raw, err := a.ReadObject(content.SystemPath)
	switch {
	case err == nil:
		if sys, err = content.ParseSystem(raw); err != nil {
			p.warn(content.SystemPath, err)
		}
	case !errors.Is(err, chm.ErrPathNotFound):
		p.warn(content.SystemPath, err)
	}

	var tocPath, indexPath string
	if sys != nil {
		if sys.LanguageID != 0 {
			v.LanguageID = sys.LanguageID
		}
		if sys.ContentsFile != "" {
			tocPath = chm.NormalizePath(sys.ContentsFile)
		}
		if sys.IndexFile != "" {
			indexPath = chm.NormalizePath(sys.IndexFile)
		}
		if sys.DefaultTopic != "" {
			v.DefaultTopic = chm.NormalizePath(sys.DefaultTopic)
		}
	}
	v.Encoding = content.EncodingForLCID(v.LanguageID)
	if sys != nil && sys.Title != "" {
		v.Title, _ = content.DecodeText([]byte(sys.Title), v.Encoding)
	}
	if v.Title == "" {
		v.Title = natsort.Stem(name)
	}
	if tocPath == "" || indexPath == "" {
		toc, index, err := findSitemaps(a)
		if err != nil {
			p.warn("", err)
		}
		if tocPath == "" {
			tocPath = toc
		}
		if indexPath == "" {
			indexPath = index
		}
	}

	if tocPath != "" {
		if raw, err := a.ReadObject(tocPath); err != nil {
			p.warn(tocPath, err)
		} else {
			p.contents = p.nodes(content.ParseTOC(raw, v.Encoding), tocPath)
		}
	}

	var keywords []content.Keyword
	base := indexPath
	if indexPath != "" {
		if raw, err := a.ReadObject(indexPath); err != nil {
			p.warn(indexPath, err)
		} else {
			keywords = content.ParseKeywordIndex(raw, v.Encoding)
		}
	}
	if len(keywords) == 0 {
		// Volumes without a keyword index are searchable by their contents.
		keywords = leafKeywords(p.contents)
		base = ""
	}
	for _, k := range keywords {
		kw := keyword{
			headword: k.Headword,
			aliases:  k.Aliases,
			link:     content.ResolveLink(k.Local, base),
		}
		if kw.link.External != "" {
			continue
		}
		// Pages of other volumes are read when the volumes are merged.
		if kw.link.Volume == "" || p.names(kw.link.Volume) {
			kw.link.Volume = name
			if _, err := p.page(kw.link.Path); err != nil {
				p.warn(kw.link.Path, fmt.Errorf("%w: %w", ErrUnresolved, err))
				continue
			}
		}
		p.keywords = append(p.keywords, kw)
	}
	return p, nil
}

// nodes converts a table of contents, resolving links against base.
func (p *parsedVolume) nodes(toc []*content.Node, base string) []*Node {
	nodes := make([]*Node, 0, len(toc))
	for _, t := range toc {
		n := &Node{
			Title:    t.Title,
			Children: p.nodes(t.Children, base),
		}
		if t.Local != "" {
			link := content.ResolveLink(t.Local, base)
			switch {
			case link.External != "":
			case link.Volume != "" && !p.names(link.Volume):
				n.Volume, n.Path, n.Fragment = link.Volume, link.Path, link.Fragment
			default:
				if _, err := p.volume.Archive.Lookup(link.Path); err != nil {
					p.warn(link.Path, fmt.Errorf("%w: %w", ErrUnresolved, err))
					break
				}
				n.Volume, n.Path, n.Fragment = p.volume.Name, link.Path, link.Fragment
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// leafKeywords returns the table of contents entries without children that
// link to a page, in document order.
func leafKeywords(nodes []*Node) []content.Keyword {
	var keywords []content.Keyword
	var visit func([]*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			if len(n.Children) > 0 {
				visit(n.Children)
				continue
			}
			if n.Path == "" {
				continue
			}
			local := "ms-its:" + n.Volume + "::" + n.Path
			if n.Fragment != "" {
				local += "#" + n.Fragment
			}
			keywords = append(keywords, content.Keyword{Headword: n.Title, Local: local})
		}
	}
	visit(nodes)
	return keywords
}

// findSitemaps returns the first table of contents (.hhc) and keyword index
// (.hhk) objects of the archive.
func findSitemaps(a *chm.Archive) (string, string, error) {
	var toc, index string
	s := a.Entries()
	for s.Scan() && (toc == "" || index == "") {
		e := s.Entry()
		lower := strings.ToLower(e.Path)
		switch {
		case toc == "" && strings.HasSuffix(lower, ".hhc"):
			toc = e.Path
		case index == "" && strings.HasSuffix(lower, ".hhk"):
			index = e.Path
		}
	}
	if err := s.Err(); err != nil {
		return toc, index, fmt.Errorf("listing entries: %w", err)
	}
	return toc, index, nil
}
