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
	"fmt"
	"slices"
	"strings"

	"github.com/ianlewis/go-chmdict/internal/folding"
	"github.com/ianlewis/go-chmdict/internal/index"
	"github.com/ianlewis/go-chmdict/internal/search"
)

// Source is a page a headword was found on.
type Source struct {
	Volume   string
	Path     string
	Fragment string
}

// Record is a headword of the dictionary. A headword found in several places
// keeps the id of its first occurrence and lists every place in Sources.
type Record struct {
	ID       int
	Headword string
	Aliases  []string
	Sources  []Source

	// Title is the title of the page of the first source.
	Title string
}

func (r *Record) addAlias(alias string) {
	if alias != r.Headword && !slices.Contains(r.Aliases, alias) {
		r.Aliases = append(r.Aliases, alias)
	}
}

func (r *Record) addSource(src Source) {
	if !slices.Contains(r.Sources, src) {
		r.Sources = append(r.Sources, src)
	}
}

// IndexEntry is a key of the headword index. Each record has an entry for its
// headword and one for each alias.
type IndexEntry struct {
	key string

	// Label is the headword or alias as written.
	Label  string
	Record *Record
}

func (e *IndexEntry) String() string {
	return e.key
}

// Snapshot is a built dictionary. It is not modified after Build returns and
// is safe for concurrent use.
type Snapshot struct {
	// Volumes are the parsed volumes in build order.
	Volumes []*Volume

	// Contents is the table of contents of all volumes in volume order.
	Contents []*Node

	// Records are the headwords ordered by id. The id of Records[i] is i+1.
	Records []*Record

	// Warnings are the problems found while building.
	Warnings []error

	volumes      map[string]*Volume
	fingerprints map[string]string
	byKey        map[string]*Record
	texts        []string

	headwords *index.Index[*IndexEntry]
	search    *search.Index
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		volumes:      make(map[string]*Volume),
		fingerprints: make(map[string]string),
		byKey:        make(map[string]*Record),
	}
}

// Volume returns the volume with the given name, ignoring case and the volume
// extension.
func (s *Snapshot) Volume(name string) (*Volume, bool) {
	v, ok := s.volumes[volumeKey(name)]
	return v, ok
}

// Record returns the record with the given id.
func (s *Snapshot) Record(id int) (*Record, bool) {
	if id < 1 || id > len(s.Records) {
		return nil, false
	}
	return s.Records[id-1], true
}

// Lookup returns the records whose headword or alias folds to the same key as
// headword, in id order without duplicates.
func (s *Snapshot) Lookup(headword string) []*Record {
	var records []*Record
	for _, e := range s.headwords.Search(folding.String(folding.Headword, headword)) {
		if !slices.Contains(records, e.Record) {
			records = append(records, e.Record)
		}
	}
	slices.SortFunc(records, func(a, b *Record) int {
		return a.ID - b.ID
	})
	return records
}

// Prefix returns up to limit index entries whose key starts with the folded
// prefix, in key order. A non-positive limit returns all matches.
func (s *Snapshot) Prefix(prefix string, limit int) []*IndexEntry {
	return s.headwords.Prefix(folding.String(folding.Headword, prefix), limit)
}

// Search runs a ranked full text query.
func (s *Snapshot) Search(query string, limit int) []search.Hit {
	return s.search.Search(query, limit)
}

// add merges a parsed volume into the snapshot. Pages of other volumes must
// already have been added.
func (s *Snapshot) add(p *parsedVolume, pending map[string]*parsedVolume) {
	v := p.volume
	if first, ok := s.fingerprints[v.Archive.Fingerprint()]; ok {
		s.Warnings = append(s.Warnings, &VolumeError{
			Volume: v.Name,
			Err:    fmt.Errorf("%w of %s", ErrDuplicateVolume, first),
		})
		return
	}
	s.fingerprints[v.Archive.Fingerprint()] = v.Name
	s.volumes[volumeKey(v.Name)] = v
	s.Volumes = append(s.Volumes, v)
	redirect(p.contents, pending)
	s.Contents = append(s.Contents, p.contents...)

	for _, k := range p.keywords {
		key := folding.String(folding.Headword, k.headword)
		if key == "" {
			continue
		}
		target, ok := pending[volumeKey(k.link.Volume)]
		if !ok {
			p.warn(k.link.Path, fmt.Errorf("%w: no volume %q", ErrUnresolved, k.link.Volume))
			continue
		}
		doc, err := target.page(k.link.Path)
		if err != nil {
			p.warn(k.link.Path, fmt.Errorf("%w: %w", ErrUnresolved, err))
			continue
		}

		r, ok := s.byKey[key]
		if !ok {
			r = &Record{
				ID:       len(s.Records) + 1,
				Headword: k.headword,
				Title:    doc.Title,
			}
			s.byKey[key] = r
			s.Records = append(s.Records, r)
			s.texts = append(s.texts, doc.PlainText)
		}
		for _, a := range k.aliases {
			r.addAlias(a)
		}
		r.addSource(Source{
			Volume:   target.volume.Name,
			Path:     k.link.Path,
			Fragment: k.link.Fragment,
		})
	}
}

// redirect points table of contents entries at the volumes their links
// resolve to.
func redirect(nodes []*Node, pending map[string]*parsedVolume) {
	for _, n := range nodes {
		if t, ok := pending[volumeKey(n.Volume)]; ok && n.Volume != "" {
			n.Volume = t.volume.Name
		}
		redirect(n.Children, pending)
	}
}

// index builds the headword and search indexes.
func (s *Snapshot) index() {
	var entries []*IndexEntry
	docs := make([]search.Document, 0, len(s.Records))
	for i, r := range s.Records {
		entries = append(entries, &IndexEntry{
			key:    folding.String(folding.Headword, r.Headword),
			Label:  r.Headword,
			Record: r,
		})
		for _, a := range r.Aliases {
			if key := folding.String(folding.Headword, a); key != "" {
				entries = append(entries, &IndexEntry{key: key, Label: a, Record: r})
			}
		}
		docs = append(docs, search.Document{
			ID:       r.ID,
			Headword: strings.Join(append([]string{r.Headword}, r.Aliases...), " "),
			Text:     s.texts[i],
		})
	}
	s.headwords = index.NewIndex(entries, strings.Compare)
	s.search = search.New(docs)
	s.texts = nil
}
