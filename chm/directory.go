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

package chm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrPathNotFound indicates that no directory entry matches a path.
var ErrPathNotFound = errors.New("path not found")

// Entry is a directory entry naming an object stored in a content section.
type Entry struct {
	Path    string
	Section int
	Offset  uint64
	Length  uint64
}

// Child is an index chunk entry pointing at a lower level chunk.
type Child struct {
	Key   string
	Chunk int
}

// Page is a decoded directory chunk. Leaf pages hold entries and index pages
// hold children.
type Page struct {
	Leaf     bool
	Prev     int
	Next     int
	Entries  []Entry
	Children []Child
}

// DecodePage decodes a raw directory chunk. The directory version selects the
// leaf name encoding: version 1 stores full names and version 2 stores each
// name as a shared prefix count and suffix relative to the previous name in
// the chunk.
func DecodePage(raw []byte, version uint32) (*Page, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidChunk, len(raw))
	}
	switch string(raw[:4]) {
	case pmglMagic:
		return decodeLeaf(raw, version)
	case pmgiMagic:
		return decodeIndex(raw)
	}
	return nil, fmt.Errorf("%w: signature %q", ErrInvalidChunk, raw[:4])
}

// body returns the entry area of a chunk, excluding the header and the free
// space at the end.
func body(raw []byte, headerSize int) ([]byte, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("%w: %d byte chunk", ErrInvalidChunk, len(raw))
	}
	free := uint64(binary.LittleEndian.Uint32(raw[4:]))
	if free > uint64(len(raw)-headerSize) {
		return nil, fmt.Errorf("%w: free space %d exceeds chunk", ErrInvalidChunk, free)
	}
	return raw[headerSize : len(raw)-int(free)], nil
}

func decodeLeaf(raw []byte, version uint32) (*Page, error) {
	b, err := body(raw, pmglHeaderSize)
	if err != nil {
		return nil, err
	}
	p := &Page{
		Leaf: true,
		Prev: int(int32(binary.LittleEndian.Uint32(raw[0x0C:]))),
		Next: int(int32(binary.LittleEndian.Uint32(raw[0x10:]))),
	}

	r := chunkReader{b: b}
	var prev []byte
	for r.more() {
		var name []byte
		switch version {
		case 2:
			shared, err := r.int()
			if err != nil {
				return nil, err
			}
			if shared > len(prev) {
				return nil, fmt.Errorf("%w: entry %d shares %d bytes of a %d byte name",
					ErrInvalidChunk, len(p.Entries), shared, len(prev))
			}
			n, err := r.int()
			if err != nil {
				return nil, err
			}
			suffix, err := r.bytes(n)
			if err != nil {
				return nil, err
			}
			name = append(append(make([]byte, 0, shared+n), prev[:shared]...), suffix...)
		default:
			n, err := r.int()
			if err != nil {
				return nil, err
			}
			if name, err = r.bytes(n); err != nil {
				return nil, err
			}
		}
		prev = name

		section, err := r.int()
		if err != nil {
			return nil, err
		}
		offset, err := r.encint()
		if err != nil {
			return nil, err
		}
		length, err := r.encint()
		if err != nil {
			return nil, err
		}
		p.Entries = append(p.Entries, Entry{
			Path:    string(name),
			Section: section,
			Offset:  offset,
			Length:  length,
		})
	}
	return p, nil
}

func decodeIndex(raw []byte) (*Page, error) {
	b, err := body(raw, pmgiHeaderSize)
	if err != nil {
		return nil, err
	}
	p := &Page{Prev: -1, Next: -1}
	r := chunkReader{b: b}
	for r.more() {
		n, err := r.int()
		if err != nil {
			return nil, err
		}
		key, err := r.bytes(n)
		if err != nil {
			return nil, err
		}
		child, err := r.int()
		if err != nil {
			return nil, err
		}
		p.Children = append(p.Children, Child{Key: string(key), Chunk: child})
	}
	return p, nil
}

// directory is the decoded directory header together with its raw chunks.
type directory struct {
	header *directoryHeader
	chunks []byte
}

func newDirectory(b []byte) (*directory, error) {
	h, err := parseDirectoryHeader(b)
	if err != nil {
		return nil, err
	}
	size := uint64(h.NumChunks) * uint64(h.ChunkSize)
	return &directory{
		header: h,
		chunks: b[h.HeaderSize : uint64(h.HeaderSize)+size],
	}, nil
}

func (d *directory) page(i int) (*Page, error) {
	if i < 0 || i >= int(d.header.NumChunks) {
		return nil, fmt.Errorf("%w: chunk %d of %d", ErrInvalidChunk, i, d.header.NumChunks)
	}
	size := int(d.header.ChunkSize)
	p, err := DecodePage(d.chunks[i*size:(i+1)*size], d.header.Version)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", i, err)
	}
	return p, nil
}

// selectChild picks the child of an index page that may hold path.
func (d *directory) selectChild(p *Page, path string) (int, bool) {
	if d.header.Version == 2 {
		// Keys are the greatest path below each child.
		for _, c := range p.Children {
			if ComparePaths(c.Key, path) >= 0 {
				return c.Chunk, true
			}
		}
		return 0, false
	}
	// Keys are the first path below each child.
	chunk, ok := 0, false
	for _, c := range p.Children {
		if ComparePaths(c.Key, path) > 0 {
			break
		}
		chunk, ok = c.Chunk, true
	}
	return chunk, ok
}

// descend walks index chunks from the root to the leaf that may hold path.
func (d *directory) descend(path string) (*Page, error) {
	i := int(d.header.RootIndex)
	for range d.header.NumChunks {
		p, err := d.page(i)
		if err != nil {
			return nil, err
		}
		if p.Leaf {
			return p, nil
		}
		next, ok := d.selectChild(p, path)
		if !ok {
			return nil, nil
		}
		i = next
	}
	return nil, fmt.Errorf("%w: index chunks form a cycle", ErrInvalidChunk)
}

func (d *directory) lookup(path string) (Entry, error) {
	if d.header.RootIndex >= 0 {
		p, err := d.descend(path)
		if err == nil && p != nil {
			if e, ok := findEntry(p.Entries, path); ok {
				return e, nil
			}
		}
	}

	s := newScanner(d)
	for s.Scan() {
		if e := s.Entry(); ComparePaths(e.Path, path) == 0 {
			return e, nil
		}
	}
	if err := s.Err(); err != nil {
		return Entry{}, err
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
}

func findEntry(entries []Entry, path string) (Entry, bool) {
	for _, e := range entries {
		if ComparePaths(e.Path, path) == 0 {
			return e, true
		}
	}
	return Entry{}, false
}

// Scanner scans the directory entries of an archive in directory order. A
// Scanner holds only the current chunk, so scanning a directory does not
// decode it all at once.
type Scanner struct {
	dir     *directory
	next    int
	visited uint32
	entries []Entry
	entry   Entry
	err     error
}

func newScanner(d *directory) *Scanner {
	s := &Scanner{dir: d}
	s.Reset()
	return s
}

// Reset restarts the scan from the first entry.
func (s *Scanner) Reset() {
	s.next, s.visited, s.entries, s.entry, s.err = -1, 0, nil, Entry{}, nil
	h := s.dir.header
	if h.NumChunks == 0 {
		return
	}
	if h.RootIndex < 0 {
		s.next = int(h.FirstLeaf)
		return
	}

	// Follow the first child of each index chunk down to the first leaf.
	i := int(h.RootIndex)
	for range h.NumChunks {
		p, err := s.dir.page(i)
		if err != nil {
			s.err = err
			return
		}
		if p.Leaf || len(p.Children) == 0 {
			break
		}
		i = p.Children[0].Chunk
	}
	s.next = i
}

// Scan advances to the next entry. It returns false when the directory is
// exhausted or an error occurs.
func (s *Scanner) Scan() bool {
	for len(s.entries) == 0 {
		if s.err != nil || s.next < 0 {
			return false
		}
		if s.visited >= s.dir.header.NumChunks {
			s.err = fmt.Errorf("%w: leaf chunks form a cycle", ErrInvalidChunk)
			return false
		}
		p, err := s.dir.page(s.next)
		if err != nil {
			s.err = err
			return false
		}
		if !p.Leaf {
			s.err = fmt.Errorf("%w: chunk %d is not a leaf", ErrInvalidChunk, s.next)
			return false
		}
		s.visited++
		s.entries, s.next = p.Entries, p.Next
	}
	s.entry, s.entries = s.entries[0], s.entries[1:]
	return true
}

// Entry returns the current entry.
func (s *Scanner) Entry() Entry {
	return s.entry
}

// Err returns the first error encountered.
func (s *Scanner) Err() error {
	return s.err
}
