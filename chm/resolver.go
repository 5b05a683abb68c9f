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
	"errors"
	"fmt"
	"sync"

	"github.com/ianlewis/go-chmdict/internal/wcache"
	"github.com/ianlewis/go-chmdict/lzx"
)

const (
	sectionUncompressed = 0
	sectionCompressed   = 1

	compressedSectionName = "MSCompressed"
)

// ErrDecodeFailed indicates that an object exists but its bytes could not be
// produced.
var ErrDecodeFailed = errors.New("decode failed")

// Object is the content of a directory entry.
type Object struct {
	Path string

	// Data holds the object bytes. Objects in the uncompressed section share
	// memory with the archive and must not be modified.
	Data []byte

	// Truncated reports that the archive held fewer bytes than the entry
	// declares.
	Truncated bool
}

// compressedSection is the lazily loaded state of the LZX compressed section.
type compressedSection struct {
	once    sync.Once
	err     error
	content []byte
	control *lzx.ControlData
	table   *lzx.ResetTable
	pool    sync.Pool
}

// ReadObject returns the bytes of the object at path.
func (a *Archive) ReadObject(path string) ([]byte, error) {
	o, err := a.ResolveObject(path)
	if err != nil {
		return nil, err
	}
	return o.Data, nil
}

// ResolveObject looks up path and materializes its bytes. Objects in the
// compressed section are decoded from the nearest reset point at or before
// their offset. Objects that extend past the available data are truncated and
// logged rather than failing.
func (a *Archive) ResolveObject(path string) (*Object, error) {
	e, err := a.Lookup(path)
	if err != nil {
		return nil, err
	}

	o := &Object{Path: e.Path}
	switch e.Section {
	case sectionUncompressed:
		o.Data, o.Truncated = a.readUncompressed(e.Offset, e.Length)
	case sectionCompressed:
		o.Data, o.Truncated, err = a.readCompressed(e.Offset, e.Length)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, e.Path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s: unknown content section %d", ErrDecodeFailed, e.Path, e.Section)
	}

	if o.Truncated {
		a.logger.Warn("object truncated",
			"path", e.Path,
			"section", e.Section,
			"want", e.Length,
			"got", len(o.Data),
		)
	}
	return o, nil
}

func (a *Archive) readUncompressed(offset, length uint64) ([]byte, bool) {
	size := uint64(len(a.data))
	start := a.header.ContentOffset + offset
	if offset > size || start > size {
		return nil, length > 0
	}
	if length > size-start {
		return a.data[start:], true
	}
	return a.data[start : start+length], false
}

func (a *Archive) loadCompressed() error {
	s := &a.lzx
	s.once.Do(func() {
		if names, err := a.Sections(); err == nil && len(names) > sectionCompressed &&
			names[sectionCompressed] != compressedSectionName {
			s.err = fmt.Errorf("unsupported content section %q", names[sectionCompressed])
			return
		}

		content, err := a.readSection0(ContentPath)
		if err != nil {
			s.err = err
			return
		}
		b, err := a.readSection0(ControlDataPath)
		if err != nil {
			s.err = err
			return
		}
		ctl, err := lzx.ParseControlData(b)
		if err != nil {
			s.err = err
			return
		}
		if b, err = a.readSection0(ResetTablePath); err != nil {
			s.err = err
			return
		}
		table, err := lzx.ParseResetTable(b)
		if err != nil {
			s.err = err
			return
		}

		s.content, s.control, s.table = content, ctl, table
		s.pool.New = func() any {
			d, err := lzx.NewDecoder(ctl, table.UncompressedLength)
			if err != nil {
				return err
			}
			d.SetLogger(a.logger)
			return d
		}
	})
	return s.err
}

// readSection0 reads a metadata object that must be stored uncompressed.
func (a *Archive) readSection0(path string) ([]byte, error) {
	e, err := a.Lookup(path)
	if err != nil {
		return nil, err
	}
	if e.Section != sectionUncompressed {
		return nil, fmt.Errorf("%s is not stored uncompressed", path)
	}
	b, truncated := a.readUncompressed(e.Offset, e.Length)
	if truncated {
		return nil, fmt.Errorf("%w: %s", ErrTruncatedHeader, path)
	}
	return b, nil
}

func (a *Archive) readCompressed(offset, length uint64) ([]byte, bool, error) {
	if err := a.loadCompressed(); err != nil {
		return nil, false, err
	}
	s := &a.lzx

	total := s.table.UncompressedLength
	truncated := false
	if offset > total {
		return nil, length > 0, nil
	}
	if length > total-offset {
		length, truncated = total-offset, true
	}
	if length == 0 {
		return []byte{}, truncated, nil
	}

	interval := uint64(s.control.ResetInterval)
	end := offset + length
	out := make([]byte, 0, length)
	for w := offset / interval; w*interval < end; w++ {
		window, err := a.window(int(w))
		if err != nil {
			return nil, false, err
		}
		lo := max(offset, w*interval) - w*interval
		hi := min(end-w*interval, uint64(len(window)))
		if lo >= hi {
			// The section ended early.
			return out, true, nil
		}
		out = append(out, window[lo:hi]...)
		if hi < interval && w*interval+hi < end {
			return out, true, nil
		}
	}
	return out, truncated, nil
}

// window returns the decoded bytes of reset interval w, decoding it at most
// once at a time through the cache.
func (a *Archive) window(w int) ([]byte, error) {
	key := wcache.Key{Archive: a.fingerprint, Section: sectionCompressed, Window: w}
	return a.cache.Get(key, func() ([]byte, error) {
		s := &a.lzx
		fpr := s.control.FramesPerReset()
		i := w * fpr
		if i >= len(s.table.Checkpoints) {
			return nil, fmt.Errorf("%w: no checkpoint for window %d", lzx.ErrInvalidResetTable, w)
		}

		v := s.pool.Get()
		d, ok := v.(*lzx.Decoder)
		if !ok {
			return nil, v.(error)
		}
		b, err := d.Decode(s.content, s.table.Checkpoints[i], s.control.ResetInterval)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", w, err)
		}
		s.pool.Put(d)
		a.logger.Debug("decoded window", "window", w, "bytes", len(b))
		return b, nil
	})
}
