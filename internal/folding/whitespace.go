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

// Package folding implements the text folding used to compare headwords and
// search terms.
package folding

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// IsSpace reports whether r is folded as whitespace. Besides Unicode white
// space this includes control characters and zero width spaces, which legacy
// pages use as separators.
func IsSpace(r rune) bool {
	switch r {
	case '\u200b', '\u2060', '\ufeff':
		return true
	}
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

// WhitespaceFolder will perform whitespace folding on the input. It removes
// spaces from the beginning and end of the input and replaces all internal
// whitespace spans with a single ASCII space rune. Invalid UTF-8 is passed
// on as utf8.RuneError.
type WhitespaceFolder struct {
	// started is true after the first non-whitespace rune.
	started bool

	// pending is true while inside a whitespace span after the first
	// non-whitespace rune.
	pending bool
}

// Transform implements [transform.Transformer.Transform].
func (w *WhitespaceFolder) Transform(dst, src []byte, atEOF bool) (int, int, error) {
	var nSrc, nDst int
	for nSrc < len(src) {
		if !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		c, size := utf8.DecodeRune(src[nSrc:])

		if IsSpace(c) {
			nSrc += size
			w.pending = w.started
			continue
		}

		// Emit one space for the span just left. Trailing whitespace is
		// never emitted.
		n := utf8.RuneLen(c)
		if w.pending {
			n++
		}
		if nDst+n > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		if w.pending {
			dst[nDst] = ' '
			nDst++
			w.pending = false
		}
		w.started = true
		nSrc += size

		// c may be utf8.RuneError, which is longer than the single invalid
		// byte it replaces.
		nDst += utf8.EncodeRune(dst[nDst:], c)
	}

	return nDst, nSrc, nil
}

// Reset implements [transform.Transformer.Reset].
func (w *WhitespaceFolder) Reset() {
	*w = WhitespaceFolder{}
}
