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
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	itsfMagic = "ITSF"
	itspMagic = "ITSP"
	pmglMagic = "PMGL"
	pmgiMagic = "PMGI"

	itsfV2HeaderSize = 0x58
	itsfV3HeaderSize = 0x60
	itspHeaderSize   = 0x54
	pmglHeaderSize   = 0x14
	pmgiHeaderSize   = 0x08

	maxChunkSize = 1 << 20
)

var (
	// ErrInvalidMagic indicates that the input does not start with an
	// archive signature.
	ErrInvalidMagic = errors.New("invalid magic")

	// ErrTruncatedHeader indicates a header that is short or that refers to
	// data past the end of the input.
	ErrTruncatedHeader = errors.New("truncated header")

	// ErrUnsupportedVersion indicates an unknown header version.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrInvalidChunk indicates a malformed directory chunk.
	ErrInvalidChunk = errors.New("invalid directory chunk")
)

// Header is the archive (ITSF) header.
type Header struct {
	Version    uint32
	Timestamp  uint32
	LanguageID uint32

	DirectoryOffset uint64
	DirectoryLength uint64
	ContentOffset   uint64
}

func inBounds(offset, length, size uint64) bool {
	return offset <= size && length <= size-offset
}

func parseHeader(b []byte) (*Header, error) {
	if len(b) < 4 || string(b[:4]) != itsfMagic {
		return nil, ErrInvalidMagic
	}
	if len(b) < itsfV2HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedHeader, len(b))
	}

	h := &Header{
		Version:    binary.LittleEndian.Uint32(b[4:]),
		Timestamp:  binary.BigEndian.Uint32(b[0x10:]),
		LanguageID: binary.LittleEndian.Uint32(b[0x14:]),
	}
	headerLen := uint64(binary.LittleEndian.Uint32(b[8:]))
	size := uint64(len(b))

	switch h.Version {
	case 2:
		if headerLen < itsfV2HeaderSize {
			return nil, fmt.Errorf("%w: header length %d", ErrTruncatedHeader, headerLen)
		}
	case 3:
		if headerLen < itsfV3HeaderSize || size < itsfV3HeaderSize {
			return nil, fmt.Errorf("%w: header length %d", ErrTruncatedHeader, headerLen)
		}
	default:
		return nil, fmt.Errorf("%w: archive version %d", ErrUnsupportedVersion, h.Version)
	}
	if headerLen > size {
		return nil, fmt.Errorf("%w: header length %d exceeds input size %d", ErrTruncatedHeader, headerLen, size)
	}

	sizeOffset := binary.LittleEndian.Uint64(b[0x38:])
	sizeLength := binary.LittleEndian.Uint64(b[0x40:])
	if !inBounds(sizeOffset, sizeLength, size) {
		return nil, fmt.Errorf("%w: file size block %d+%d exceeds input size %d",
			ErrTruncatedHeader, sizeOffset, sizeLength, size)
	}

	h.DirectoryOffset = binary.LittleEndian.Uint64(b[0x48:])
	h.DirectoryLength = binary.LittleEndian.Uint64(b[0x50:])
	if !inBounds(h.DirectoryOffset, h.DirectoryLength, size) {
		return nil, fmt.Errorf("%w: directory %d+%d exceeds input size %d",
			ErrTruncatedHeader, h.DirectoryOffset, h.DirectoryLength, size)
	}

	if h.Version == 3 {
		h.ContentOffset = binary.LittleEndian.Uint64(b[0x58:])
	} else {
		h.ContentOffset = h.DirectoryOffset + h.DirectoryLength
	}
	if h.ContentOffset > size {
		return nil, fmt.Errorf("%w: content offset %d exceeds input size %d",
			ErrTruncatedHeader, h.ContentOffset, size)
	}
	return h, nil
}

// directoryHeader is the ITSP header at the start of the directory.
type directoryHeader struct {
	Version    uint32
	HeaderSize uint32
	ChunkSize  uint32
	Density    uint32
	Depth      uint32
	RootIndex  int32
	FirstLeaf  int32
	LastLeaf   int32
	NumChunks  uint32
	LanguageID uint32
}

func parseDirectoryHeader(b []byte) (*directoryHeader, error) {
	if len(b) < 4 || string(b[:4]) != itspMagic {
		return nil, fmt.Errorf("%w: directory signature %q", ErrInvalidMagic, b[:min(4, len(b))])
	}
	if len(b) < itspHeaderSize {
		return nil, fmt.Errorf("%w: directory header of %d bytes", ErrTruncatedHeader, len(b))
	}

	d := &directoryHeader{
		Version:    binary.LittleEndian.Uint32(b[4:]),
		HeaderSize: binary.LittleEndian.Uint32(b[8:]),
		ChunkSize:  binary.LittleEndian.Uint32(b[0x10:]),
		Density:    binary.LittleEndian.Uint32(b[0x14:]),
		Depth:      binary.LittleEndian.Uint32(b[0x18:]),
		RootIndex:  int32(binary.LittleEndian.Uint32(b[0x1C:])),
		FirstLeaf:  int32(binary.LittleEndian.Uint32(b[0x20:])),
		LastLeaf:   int32(binary.LittleEndian.Uint32(b[0x24:])),
		NumChunks:  binary.LittleEndian.Uint32(b[0x2C:]),
		LanguageID: binary.LittleEndian.Uint32(b[0x30:]),
	}

	if d.Version != 1 && d.Version != 2 {
		return nil, fmt.Errorf("%w: directory version %d", ErrUnsupportedVersion, d.Version)
	}
	if d.HeaderSize < itspHeaderSize || uint64(d.HeaderSize) > uint64(len(b)) {
		return nil, fmt.Errorf("%w: directory header size %d", ErrTruncatedHeader, d.HeaderSize)
	}
	if d.ChunkSize < pmglHeaderSize || d.ChunkSize > maxChunkSize {
		return nil, fmt.Errorf("%w: chunk size %d", ErrTruncatedHeader, d.ChunkSize)
	}
	chunks := uint64(d.NumChunks) * uint64(d.ChunkSize)
	if !inBounds(uint64(d.HeaderSize), chunks, uint64(len(b))) {
		return nil, fmt.Errorf("%w: %d chunks of %d bytes exceed directory size %d",
			ErrTruncatedHeader, d.NumChunks, d.ChunkSize, len(b))
	}
	n := int64(d.NumChunks)
	if d.RootIndex < -1 || int64(d.RootIndex) >= n {
		return nil, fmt.Errorf("%w: root chunk %d of %d", ErrTruncatedHeader, d.RootIndex, n)
	}
	if n > 0 && (d.FirstLeaf < 0 || d.LastLeaf < d.FirstLeaf || int64(d.LastLeaf) >= n) {
		return nil, fmt.Errorf("%w: leaf chunks %d..%d of %d", ErrTruncatedHeader, d.FirstLeaf, d.LastLeaf, n)
	}
	return d, nil
}

// chunkReader decodes the fields of a directory chunk.
type chunkReader struct {
	b   []byte
	pos int
}

// encint reads a variable length integer stored as big-endian groups of
// seven bits where a set high bit marks a continuation.
func (r *chunkReader) encint() (uint64, error) {
	var v uint64
	for i := 0; i < 9; i++ {
		if r.pos >= len(r.b) {
			return 0, fmt.Errorf("%w: integer runs past end of chunk", ErrInvalidChunk)
		}
		c := r.b[r.pos]
		r.pos++
		v = v<<7 | uint64(c&0x7f)
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: integer too long", ErrInvalidChunk)
}

func (r *chunkReader) int() (int, error) {
	v, err := r.encint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: value %d out of range", ErrInvalidChunk, v)
	}
	return int(v), nil
}

func (r *chunkReader) bytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.b)-r.pos {
		return nil, fmt.Errorf("%w: %d byte field runs past end of chunk", ErrInvalidChunk, n)
	}
	b := r.b[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *chunkReader) more() bool {
	return r.pos < len(r.b)
}

// NormalizePath converts a path to the form stored in the directory. Back
// slashes become forward slashes and paths other than the special "::" names
// are made absolute.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "::") {
		p = "/" + p
	}
	return p
}

func foldByte(c byte) byte {
	switch {
	case 'A' <= c && c <= 'Z':
		return c + 'a' - 'A'
	case c == '\\':
		return '/'
	}
	return c
}

// ComparePaths compares two paths in directory order: byte-wise, ignoring
// ASCII case and treating back slashes as forward slashes.
func ComparePaths(a, b string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if ca, cb := foldByte(a[i]), foldByte(b[i]); ca != cb {
			return cmp.Compare(ca, cb)
		}
	}
	return cmp.Compare(len(a), len(b))
}
