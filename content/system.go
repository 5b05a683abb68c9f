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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// SystemPath is the path of the archive metadata object.
const SystemPath = "/#SYSTEM"

// Record codes in the #SYSTEM object.
const (
	systemContentsFile = 0
	systemIndexFile    = 1
	systemDefaultTopic = 2
	systemTitle        = 3
	systemLanguage     = 4
	systemCompiledFile = 6
)

// ErrInvalidSystem indicates a malformed #SYSTEM object.
var ErrInvalidSystem = errors.New("invalid #SYSTEM data")

// System is the archive metadata stored in the #SYSTEM object.
type System struct {
	Version uint32

	// ContentsFile is the path of the table of contents.
	ContentsFile string

	// IndexFile is the path of the keyword index.
	IndexFile string

	DefaultTopic string
	Title        string

	// LanguageID is the Windows language id of the archive text.
	LanguageID uint32

	// CompiledFile is the base name the archive was compiled as.
	CompiledFile string
}

// ParseSystem parses a #SYSTEM object: a version followed by records of a
// 16-bit code, a 16-bit length and the record data. String records are
// NUL-terminated. Unknown records are ignored.
func ParseSystem(b []byte) (*System, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSystem, len(b))
	}
	s := &System{Version: binary.LittleEndian.Uint32(b)}
	for pos := 4; pos < len(b); {
		if len(b)-pos < 4 {
			return nil, fmt.Errorf("%w: short record header at %d", ErrInvalidSystem, pos)
		}
		code := binary.LittleEndian.Uint16(b[pos:])
		n := int(binary.LittleEndian.Uint16(b[pos+2:]))
		pos += 4
		if n > len(b)-pos {
			return nil, fmt.Errorf("%w: record %d of %d bytes at %d", ErrInvalidSystem, code, n, pos)
		}
		data := b[pos : pos+n]
		pos += n

		switch code {
		case systemContentsFile:
			s.ContentsFile = cstring(data)
		case systemIndexFile:
			s.IndexFile = cstring(data)
		case systemDefaultTopic:
			s.DefaultTopic = cstring(data)
		case systemTitle:
			s.Title = cstring(data)
		case systemLanguage:
			if len(data) >= 4 {
				s.LanguageID = binary.LittleEndian.Uint32(data)
			}
		case systemCompiledFile:
			s.CompiledFile = cstring(data)
		}
	}
	return s, nil
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
