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
	"errors"
	"fmt"
	"slices"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/ianlewis/go-chmdict/chm"
	"github.com/ianlewis/go-chmdict/content"
	"github.com/ianlewis/go-chmdict/internal/builder"
	"github.com/ianlewis/go-chmdict/internal/search"
)

// ContentNode is a table of contents entry.
type ContentNode struct {
	Title string

	// Volume and Path locate the page of the entry. Path is empty for
	// entries without a page.
	Volume   string
	Path     string
	Fragment string

	Children []*ContentNode
}

func contentNodes(nodes []*builder.Node) []*ContentNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*ContentNode, len(nodes))
	for i, n := range nodes {
		out[i] = &ContentNode{
			Title:    n.Title,
			Volume:   n.Volume,
			Path:     n.Path,
			Fragment: n.Fragment,
			Children: contentNodes(n.Children),
		}
	}
	return out
}

// Contents returns the table of contents of all volumes in volume order.
// The returned nodes must not be modified.
func (s *Service) Contents() ([]*ContentNode, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.contents, nil
}

// IndexEntry is a headword or alias of the headword index.
type IndexEntry struct {
	// ID is the id of the entry's record.
	ID int

	// Headword is the headword or alias as written.
	Headword string

	// Alias is true if Headword is an alias of the record.
	Alias bool
}

// IndexEntries returns up to limit index entries starting with prefix, in
// lexicographic order of their folded form. Matching ignores case and width.
// A non-positive limit returns all matches.
func (s *Service) IndexEntries(prefix string, limit int) ([]IndexEntry, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	var entries []IndexEntry
	for _, e := range snap.Prefix(prefix, limit) {
		entries = append(entries, IndexEntry{
			ID:       e.Record.ID,
			Headword: e.Label,
			Alias:    e.Label != e.Record.Headword,
		})
	}
	return entries, nil
}

// Lookup returns the entries whose headword or an alias equals headword,
// ignoring case and width.
func (s *Service) Lookup(headword string) ([]*EntryDetail, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	var details []*EntryDetail
	for _, r := range snap.Lookup(headword) {
		d, err := snap.detail(r)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// Span is a byte range [Start, End) of matched text.
type Span struct {
	Start int
	End   int
}

// SearchHit is a ranked search result.
type SearchHit struct {
	ID       int
	Headword string
	Score    float64

	// HeadwordSpans are the matched ranges of the headword followed by its
	// aliases, joined by single spaces.
	HeadwordSpans []Span

	// Snippet is an excerpt of the page text around the first match. Spans
	// are the matched ranges of the snippet.
	Snippet string
	Spans   []Span
}

func spans(s []search.Span) []Span {
	if len(s) == 0 {
		return nil
	}
	out := make([]Span, len(s))
	for i, sp := range s {
		out[i] = Span{Start: sp.Start, End: sp.End}
	}
	return out
}

// Search returns up to limit entries ranked by relevance to query. The last
// word of the query also matches words it is a prefix of.
func (s *Service) Search(query string, limit int) ([]SearchHit, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	var hits []SearchHit
	for _, h := range snap.Search(query, limit) {
		r, _ := snap.Record(h.ID)
		hits = append(hits, SearchHit{
			ID:            h.ID,
			Headword:      r.Headword,
			Score:         h.Score,
			HeadwordSpans: spans(h.HeadwordSpans),
			Snippet:       h.Snippet,
			Spans:         spans(h.Spans),
		})
	}
	return hits, nil
}

// Source is a page a headword was found on.
type Source struct {
	Volume   string
	Path     string
	Fragment string
}

// EntryDetail is a headword with its page.
type EntryDetail struct {
	ID       int
	Headword string
	Aliases  []string

	// Sources are all pages the headword was found on, the page shown
	// first.
	Sources []Source

	// Page is the page of the first source.
	Page *ContentPage
}

// EntryDetail returns the entry with the given id.
func (s *Service) EntryDetail(id int) (*EntryDetail, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	r, ok := snap.Record(id)
	if !ok {
		return nil, fmt.Errorf("%w: entry %d", ErrNotFound, id)
	}
	return snap.detail(r)
}

func (snap *snapshot) detail(r *builder.Record) (*EntryDetail, error) {
	d := &EntryDetail{
		ID:       r.ID,
		Headword: r.Headword,
		Aliases:  slices.Clone(r.Aliases),
	}
	for _, src := range r.Sources {
		d.Sources = append(d.Sources, Source(src))
	}
	page, err := snap.page(r.Sources[0].Volume, r.Sources[0].Path)
	if err != nil {
		return nil, fmt.Errorf("reading entry %d: %w", r.ID, err)
	}
	page.Fragment = r.Sources[0].Fragment
	d.Page = page
	return d, nil
}

// ContentPage is a page converted for display.
type ContentPage struct {
	Volume   string
	Path     string
	Fragment string

	Title string

	// Text is the visible text of the page.
	Text string

	// HTML is the body of the page with scripts and other active content
	// removed.
	HTML string

	// Encoding is the name of the encoding the page was decoded from.
	Encoding string

	// Truncated is set when the page is shorter than recorded in its
	// archive.
	Truncated bool
}

// ContentPage returns the page at local. local may be a path or any link
// understood by ResolveLinkTarget. The page is looked up in the volume named
// by sourceHint first, then in every volume in order.
func (s *Service) ContentPage(local, sourceHint string) (*ContentPage, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	link := content.ResolveLink(local, "/")
	if link.External != "" {
		return nil, fmt.Errorf("%w: external link %q", ErrNotFound, local)
	}
	if link.Volume != "" {
		sourceHint = link.Volume
	}
	v, ok := snap.find(sourceHint, link.Path)
	if !ok {
		return nil, fmt.Errorf("%w: page %q", ErrNotFound, local)
	}
	page, err := snap.page(v.Name, link.Path)
	if err != nil {
		return nil, err
	}
	page.Fragment = link.Fragment
	return page, nil
}

// find returns the volume holding path, preferring the volume named hint.
func (snap *snapshot) find(hint, path string) (*builder.Volume, bool) {
	if v, ok := snap.Volume(hint); ok {
		if _, err := v.Archive.Lookup(path); err == nil {
			return v, true
		}
	}
	for _, v := range snap.Volumes {
		if _, err := v.Archive.Lookup(path); err == nil {
			return v, true
		}
	}
	return nil, false
}

func (snap *snapshot) page(volume, path string) (*ContentPage, error) {
	v, ok := snap.Volume(volume)
	if !ok {
		return nil, fmt.Errorf("%w: volume %q", ErrNotFound, volume)
	}
	obj, err := v.Archive.ResolveObject(path)
	if errors.Is(err, chm.ErrPathNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s::%s: %w", v.Name, path, err)
	}
	doc := content.ParseDocument(obj.Data, v.Encoding)
	return &ContentPage{
		Volume:    v.Name,
		Path:      path,
		Title:     doc.Title,
		Text:      doc.PlainText,
		HTML:      doc.HTML,
		Encoding:  doc.Encoding,
		Truncated: obj.Truncated,
	}, nil
}

// VolumeInfo describes a loaded volume.
type VolumeInfo struct {
	Name         string
	Title        string
	DefaultTopic string
	LanguageID   uint32

	// Encoding is the name of the encoding assumed for text that declares
	// none.
	Encoding string
}

// Volumes returns the loaded volumes in volume order.
func (s *Service) Volumes() ([]VolumeInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	infos := make([]VolumeInfo, 0, len(snap.Volumes))
	for _, v := range snap.Volumes {
		info := VolumeInfo{
			Name:         v.Name,
			Title:        v.Title,
			DefaultTopic: v.DefaultTopic,
			LanguageID:   v.LanguageID,
		}
		if v.Encoding != nil {
			info.Encoding, _ = htmlindex.Name(v.Encoding)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
