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

package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"unicode/utf16"
)

const (
	chmContentPath     = "::DataSpace/Storage/MSCompressed/Content"
	chmControlDataPath = "::DataSpace/Storage/MSCompressed/ControlData"
	chmResetTablePath  = "::DataSpace/Storage/MSCompressed/Transform/{7FC28940-9D31-11D0-9B27-00A0C91E9C7C}/InstanceData/ResetTable"
	chmNameListPath    = "::DataSpace/NameList"
)

// File is a file stored in a test archive.
type File struct {
	Name string
	Data []byte

	// Uncompressed stores the file in the uncompressed section.
	Uncompressed bool
}

// CHMOptions are options for building a test archive.
type CHMOptions struct {
	// HeaderVersion is the archive header version, 2 or 3. Defaults to 3.
	HeaderVersion uint32

	// DirectoryVersion is 1 for full leaf names or 2 for prefix shared leaf
	// names. Defaults to 1.
	DirectoryVersion uint32

	// ChunkSize is the directory chunk size. Defaults to 4096.
	ChunkSize int

	// LCID is the language id written to the headers. Defaults to 0x409.
	LCID uint32

	// NoIndex omits index chunks so that lookups scan the leaf chunks.
	NoIndex bool

	// LZX are the options for compressing the compressed section.
	LZX *LZXOptions
}

// CHM is a built test archive.
type CHM struct {
	Data []byte

	// CompressedOffset is the offset of the compressed stream in Data.
	CompressedOffset int

	// CompressedLength is the length of the compressed stream.
	CompressedLength int

	// FrameOffsets are the offsets of each frame within the compressed
	// stream.
	FrameOffsets []uint64

	// LeafChunks and IndexChunks count the directory chunks.
	LeafChunks  int
	IndexChunks int
}

type chmEntry struct {
	name    string
	section int
	offset  uint64
	length  uint64
}

// MakeCHM builds an archive holding files. It panics on error.
func MakeCHM(files []File, opts *CHMOptions) []byte {
	c, err := BuildCHM(files, opts)
	if err != nil {
		panic(err)
	}
	return c.Data
}

// BuildCHM builds an archive holding files.
func BuildCHM(files []File, opts *CHMOptions) (*CHM, error) {
	o := CHMOptions{}
	if opts != nil {
		o = *opts
	}
	if o.HeaderVersion == 0 {
		o.HeaderVersion = 3
	}
	if o.DirectoryVersion == 0 {
		o.DirectoryVersion = 1
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = 4096
	}
	if o.LCID == 0 {
		o.LCID = 0x409
	}

	var (
		entries  []chmEntry
		section0 bytes.Buffer
		section1 bytes.Buffer
	)
	addSection0 := func(name string, data []byte) {
		entries = append(entries, chmEntry{name, 0, uint64(section0.Len()), uint64(len(data))})
		section0.Write(data)
	}
	for _, f := range files {
		if f.Uncompressed {
			addSection0(f.Name, f.Data)
			continue
		}
		entries = append(entries, chmEntry{f.Name, 1, uint64(section1.Len()), uint64(len(f.Data))})
		section1.Write(f.Data)
	}

	addSection0(chmNameListPath, nameList("Uncompressed", "MSCompressed"))

	c := &CHM{}
	var contentOffset int
	if section1.Len() > 0 {
		stream, frames := CompressLZX(section1.Bytes(), o.LZX)
		c.CompressedLength = len(stream)
		c.FrameOffsets = frames
		contentOffset = section0.Len()
		addSection0(chmContentPath, stream)
		addSection0(chmControlDataPath, controlData(o.LZX))
		addSection0(chmResetTablePath, resetTable(frames, uint64(section1.Len()), uint64(len(stream))))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return comparePaths(entries[i].name, entries[j].name) < 0
	})

	dir, leaves, index, err := buildDirectory(entries, &o)
	if err != nil {
		return nil, err
	}
	c.LeafChunks, c.IndexChunks = leaves, index

	headerLen := 0x60
	if o.HeaderVersion == 2 {
		headerLen = 0x58
	}
	sizeBlock := make([]byte, 0x18)
	binary.LittleEndian.PutUint32(sizeBlock[0:], 0x1FE)
	dirOffset := headerLen + len(sizeBlock)
	content := dirOffset + len(dir)
	binary.LittleEndian.PutUint64(sizeBlock[8:], uint64(content+section0.Len()))

	h := make([]byte, headerLen)
	copy(h, "ITSF")
	binary.LittleEndian.PutUint32(h[4:], o.HeaderVersion)
	binary.LittleEndian.PutUint32(h[8:], uint32(headerLen))
	binary.LittleEndian.PutUint32(h[0x0C:], 1)
	binary.BigEndian.PutUint32(h[0x10:], 0x12345678)
	binary.LittleEndian.PutUint32(h[0x14:], o.LCID)
	binary.LittleEndian.PutUint64(h[0x38:], uint64(headerLen))
	binary.LittleEndian.PutUint64(h[0x40:], uint64(len(sizeBlock)))
	binary.LittleEndian.PutUint64(h[0x48:], uint64(dirOffset))
	binary.LittleEndian.PutUint64(h[0x50:], uint64(len(dir)))
	if o.HeaderVersion == 3 {
		binary.LittleEndian.PutUint64(h[0x58:], uint64(content))
	}

	var out bytes.Buffer
	out.Write(h)
	out.Write(sizeBlock)
	out.Write(dir)
	out.Write(section0.Bytes())
	c.Data = out.Bytes()
	c.CompressedOffset = content + contentOffset
	return c, nil
}

func foldPathByte(c byte) byte {
	switch {
	case 'A' <= c && c <= 'Z':
		return c + 'a' - 'A'
	case c == '\\':
		return '/'
	}
	return c
}

func comparePaths(a, b string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		ca, cb := foldPathByte(a[i]), foldPathByte(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

func putEncint(b []byte, v uint64) []byte {
	var tmp [10]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7f)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
	}
	return append(b, tmp[i:]...)
}

func sharedPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

type chmChunk struct {
	body  []byte
	first string
	last  string
}

func buildDirectory(entries []chmEntry, o *CHMOptions) ([]byte, int, int, error) {
	var leaves []chmChunk
	var cur chmChunk
	prev := ""
	room := o.ChunkSize - 0x14
	for _, e := range entries {
		encode := func(prev string) []byte {
			var b []byte
			if o.DirectoryVersion == 2 {
				n := sharedPrefix(prev, e.name)
				b = putEncint(b, uint64(n))
				b = putEncint(b, uint64(len(e.name)-n))
				b = append(b, e.name[n:]...)
			} else {
				b = putEncint(b, uint64(len(e.name)))
				b = append(b, e.name...)
			}
			b = putEncint(b, uint64(e.section))
			b = putEncint(b, e.offset)
			return putEncint(b, e.length)
		}
		b := encode(prev)
		if len(cur.body)+len(b) > room && len(cur.body) > 0 {
			leaves = append(leaves, cur)
			cur = chmChunk{}
			b = encode("")
		}
		if len(b) > room {
			return nil, 0, 0, fmt.Errorf("entry %q does not fit in a chunk", e.name)
		}
		if len(cur.body) == 0 {
			cur.first = e.name
		}
		cur.body = append(cur.body, b...)
		cur.last = e.name
		prev = e.name
	}
	leaves = append(leaves, cur)

	chunks := make([][]byte, 0, len(leaves))
	for i, l := range leaves {
		c := make([]byte, o.ChunkSize)
		copy(c, "PMGL")
		binary.LittleEndian.PutUint32(c[4:], uint32(room-len(l.body)))
		prevChunk, nextChunk := int32(i-1), int32(i+1)
		if i == len(leaves)-1 {
			nextChunk = -1
		}
		binary.LittleEndian.PutUint32(c[0x0C:], uint32(prevChunk))
		binary.LittleEndian.PutUint32(c[0x10:], uint32(nextChunk))
		copy(c[0x14:], l.body)
		chunks = append(chunks, c)
	}

	root, depth := int32(-1), 1
	if len(leaves) > 1 && !o.NoIndex {
		level := leaves
		base := 0
		for len(level) > 1 {
			var up []chmChunk
			var cur chmChunk
			for i, child := range level {
				key := child.first
				if o.DirectoryVersion == 2 {
					key = child.last
				}
				var b []byte
				b = putEncint(b, uint64(len(key)))
				b = append(b, key...)
				b = putEncint(b, uint64(base+i))
				if len(cur.body)+len(b) > o.ChunkSize-8 && len(cur.body) > 0 {
					up = append(up, cur)
					cur = chmChunk{}
				}
				if len(cur.body) == 0 {
					cur.first = child.first
				}
				cur.body = append(cur.body, b...)
				cur.last = child.last
			}
			up = append(up, cur)

			base = len(chunks)
			for _, ic := range up {
				c := make([]byte, o.ChunkSize)
				copy(c, "PMGI")
				binary.LittleEndian.PutUint32(c[4:], uint32(o.ChunkSize-8-len(ic.body)))
				copy(c[8:], ic.body)
				chunks = append(chunks, c)
			}
			level = up
			depth++
		}
		root = int32(len(chunks) - 1)
	}

	h := make([]byte, 0x54)
	copy(h, "ITSP")
	binary.LittleEndian.PutUint32(h[4:], o.DirectoryVersion)
	binary.LittleEndian.PutUint32(h[8:], 0x54)
	binary.LittleEndian.PutUint32(h[0x0C:], 0x0A)
	binary.LittleEndian.PutUint32(h[0x10:], uint32(o.ChunkSize))
	binary.LittleEndian.PutUint32(h[0x14:], 2)
	binary.LittleEndian.PutUint32(h[0x18:], uint32(depth))
	binary.LittleEndian.PutUint32(h[0x1C:], uint32(root))
	binary.LittleEndian.PutUint32(h[0x20:], 0)
	binary.LittleEndian.PutUint32(h[0x24:], uint32(len(leaves)-1))
	binary.LittleEndian.PutUint32(h[0x28:], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(h[0x2C:], uint32(len(chunks)))
	binary.LittleEndian.PutUint32(h[0x30:], o.LCID)
	binary.LittleEndian.PutUint32(h[0x44:], 0x54)
	binary.LittleEndian.PutUint32(h[0x48:], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(h[0x4C:], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(h[0x50:], 0xFFFFFFFF)

	dir := h
	for _, c := range chunks {
		dir = append(dir, c...)
	}
	return dir, len(leaves), len(chunks) - len(leaves), nil
}

func nameList(names ...string) []byte {
	words := []uint16{0, uint16(len(names))}
	for _, n := range names {
		u := utf16.Encode([]rune(n))
		words = append(words, uint16(len(u)))
		words = append(words, u...)
		words = append(words, 0)
	}
	words[0] = uint16(len(words))
	b := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(b[2*i:], w)
	}
	return b
}

func controlData(o *LZXOptions) []byte {
	b := make([]byte, 28)
	binary.LittleEndian.PutUint32(b[0:], 6)
	copy(b[4:], "LZXC")
	binary.LittleEndian.PutUint32(b[8:], 2)
	binary.LittleEndian.PutUint32(b[12:], uint32(o.framesPerReset()))
	binary.LittleEndian.PutUint32(b[16:], uint32((1<<o.windowBits())/lzxFrameSize))
	binary.LittleEndian.PutUint32(b[20:], 2)
	return b
}

func resetTable(frames []uint64, uncompressed, compressed uint64) []byte {
	b := make([]byte, 0x28+8*len(frames))
	binary.LittleEndian.PutUint32(b[0:], 2)
	binary.LittleEndian.PutUint32(b[4:], uint32(len(frames)))
	binary.LittleEndian.PutUint32(b[8:], 8)
	binary.LittleEndian.PutUint32(b[12:], 0x28)
	binary.LittleEndian.PutUint64(b[0x10:], uncompressed)
	binary.LittleEndian.PutUint64(b[0x18:], compressed)
	binary.LittleEndian.PutUint64(b[0x20:], lzxFrameSize)
	for i, off := range frames {
		binary.LittleEndian.PutUint64(b[0x28+8*i:], off)
	}
	return b
}
