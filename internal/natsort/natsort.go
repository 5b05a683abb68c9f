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

// Package natsort orders volume file names naturally: runs of digits compare
// by numeric value, so "merge2" sorts before "merge10", and a name sorts
// before the names that extend it, so "merge10" precedes its parts
// "merge10-1" and "merge10-2".
package natsort

import (
	"cmp"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extensions stripped before comparing names, longest first.
var extensions = []string{".chm.dz", ".chm"}

// Stem returns name without directories and volume extensions.
func Stem(name string) string {
	name = filepath.Base(filepath.ToSlash(name))
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// Compare compares two file names naturally. Names equal under natural
// comparison are ordered byte-wise so the order is total.
func Compare(a, b string) int {
	if c := compareNatural(strings.ToLower(Stem(a)), strings.ToLower(Stem(b))); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func compareNatural(a, b string) int {
	for a != "" && b != "" {
		if isDigit(a[0]) && isDigit(b[0]) {
			da, ra := digits(a)
			db, rb := digits(b)
			if c := compareNumbers(da, db); c != 0 {
				return c
			}
			a, b = ra, rb
			continue
		}

		ca, na := utf8.DecodeRuneInString(a)
		cb, nb := utf8.DecodeRuneInString(b)
		if c := cmp.Compare(ca, cb); c != 0 {
			return c
		}
		a, b = a[na:], b[nb:]
	}
	return cmp.Compare(len(a), len(b))
}

// digits splits s after its leading run of digits.
func digits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// compareNumbers compares digit strings by value. Leading zeros only break
// ties, fewer first.
func compareNumbers(a, b string) int {
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(ta), len(tb)); c != 0 {
		return c
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	return cmp.Compare(len(a), len(b))
}
