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
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
	"golang.org/x/text/encoding/unicode"

	"github.com/ianlewis/go-chmdict/internal/wcache"
)

// Names of the objects describing the content sections.
const (
	NameListPath    = "::DataSpace/NameList"
	ContentPath     = "::DataSpace/Storage/MSCompressed/Content"
	ControlDataPath = "::DataSpace/Storage/MSCompressed/ControlData"
	ResetTablePath  = "::DataSpace/Storage/MSCompressed/Transform/{7FC28940-9D31-11D0-9B27-00A0C91E9C7C}/InstanceData/ResetTable"
)

// Options are options for opening an archive.
type Options struct {
	// Name is the name reported for the archive. OpenFile defaults it to the
	// base name of the file.
	Name string

	// Cache holds decoded windows. Archives may share a cache. If nil, each
	// archive gets its own cache with wcache.DefaultCapacity windows.
	Cache *wcache.Cache

	// Logger receives warnings such as truncated objects. If nil, nothing is
	// logged.
	Logger *slog.Logger
}

// DefaultOptions are the default options used by Open.
var DefaultOptions = &Options{}

// Archive is an opened archive. Its methods are safe for concurrent use.
type Archive struct {
	name        string
	data        []byte
	fingerprint string
	header      *Header
	dir         *directory
	cache       *wcache.Cache
	logger      *slog.Logger

	lzx compressedSection
}

// Open opens an archive held in memory. The archive keeps a reference to b,
// which must not be modified afterwards.
func Open(b []byte, options *Options) (*Archive, error) {
	if options == nil {
		options = DefaultOptions
	}

	h, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	dir, err := newDirectory(b[h.DirectoryOffset : h.DirectoryOffset+h.DirectoryLength])
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	sum := blake3.Sum256(b)
	a := &Archive{
		name:        options.Name,
		data:        b,
		fingerprint: hex.EncodeToString(sum[:]),
		header:      h,
		dir:         dir,
		cache:       options.Cache,
		logger:      options.Logger,
	}
	if a.cache == nil {
		a.cache = wcache.New(wcache.DefaultCapacity)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a.logger = a.logger.With("archive", a.name)
	return a, nil
}

// OpenFile reads and opens the archive at path.
func OpenFile(path string, options *Options) (*Archive, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	o := Options{}
	if options != nil {
		o = *options
	}
	if o.Name == "" {
		o.Name = filepath.Base(path)
	}
	return Open(b, &o)
}

// Name returns the name of the archive.
func (a *Archive) Name() string {
	return a.name
}

// Fingerprint returns the hex encoded BLAKE3 digest of the archive bytes.
func (a *Archive) Fingerprint() string {
	return a.fingerprint
}

// Header returns the archive header.
func (a *Archive) Header() Header {
	return *a.header
}

// Size returns the size of the archive in bytes.
func (a *Archive) Size() int {
	return len(a.data)
}

// LanguageID returns the Windows language id (LCID) recorded in the archive
// header, falling back to the one in the directory header.
func (a *Archive) LanguageID() uint32 {
	if a.header.LanguageID != 0 {
		return a.header.LanguageID
	}
	return a.dir.header.LanguageID
}

// DirectoryVersion returns the version of the directory encoding.
func (a *Archive) DirectoryVersion() uint32 {
	return a.dir.header.Version
}

// Entries returns a scanner over all directory entries. Scanning can be
// restarted with Scanner.Reset.
func (a *Archive) Entries() *Scanner {
	return newScanner(a.dir)
}

// Lookup finds the directory entry for path. The comparison ignores ASCII
// case and treats back slashes as forward slashes.
func (a *Archive) Lookup(path string) (Entry, error) {
	return a.dir.lookup(NormalizePath(path))
}

// Sections returns the content section names listed in the archive.
func (a *Archive) Sections() ([]string, error) {
	b, err := a.ReadObject(NameListPath)
	if err != nil {
		return nil, err
	}
	return parseNameList(b)
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// parseNameList parses the section name list. All values are little-endian
// 16-bit words: the list length, the name count, then for each name its
// length, its UTF-16 characters and a terminating zero.
func parseNameList(b []byte) ([]string, error) {
	word := func(i int) (int, error) {
		if 2*i+2 > len(b) {
			return 0, fmt.Errorf("%w: name list too short", ErrTruncatedHeader)
		}
		return int(binary.LittleEndian.Uint16(b[2*i:])), nil
	}
	count, err := word(1)
	if err != nil {
		return nil, err
	}

	var names []string
	i := 2
	for range count {
		n, err := word(i)
		if err != nil {
			return nil, err
		}
		start, end := 2*(i+1), 2*(i+1+n)
		if end > len(b) {
			return nil, fmt.Errorf("%w: name list too short", ErrTruncatedHeader)
		}
		name, err := utf16le.NewDecoder().Bytes(b[start:end])
		if err != nil {
			return nil, fmt.Errorf("decoding section name: %w", err)
		}
		names = append(names, string(name))
		i += n + 2
	}
	return names, nil
}
