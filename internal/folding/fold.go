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

package folding

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Headword returns a transformer that folds headwords for lookup: full width
// and half width forms are unified, case is folded and whitespace is
// collapsed.
func Headword() transform.Transformer {
	return transform.Chain(
		width.Fold,
		norm.NFC,
		cases.Fold(),
		&WhitespaceFolder{},
	)
}

// Search returns a transformer that folds search terms. In addition to the
// headword folding it removes diacritics, so "Grüße" and "grusse" match.
func Search() transform.Transformer {
	return transform.Chain(
		width.Fold,
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		cases.Fold(),
		&WhitespaceFolder{},
	)
}

// String folds s with a transformer returned by fold. Text that can't be
// transformed is returned unchanged.
func String(fold func() transform.Transformer, s string) string {
	folded, _, err := transform.String(fold(), s)
	if err != nil {
		return s
	}
	return folded
}
