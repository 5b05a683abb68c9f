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

package natsort_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/go-chmdict/internal/natsort"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		names    []string
		expected []string
	}{
		{
			name:     "numbers",
			names:    []string{"merge2.chm", "merge10.chm", "merge1.chm"},
			expected: []string{"merge1.chm", "merge2.chm", "merge10.chm"},
		},
		{
			name:     "parts after volume",
			names:    []string{"merge10-2.chm", "merge11.chm", "merge10.chm", "merge10-1.chm", "merge9.chm"},
			expected: []string{"merge9.chm", "merge10.chm", "merge10-1.chm", "merge10-2.chm", "merge11.chm"},
		},
		{
			name:     "case and extensions",
			names:    []string{"Merge3.CHM", "merge2.chm.dz", "MERGE1.chm"},
			expected: []string{"MERGE1.chm", "merge2.chm.dz", "Merge3.CHM"},
		},
		{
			name:     "leading zeros",
			names:    []string{"v010.chm", "v9.chm", "v0010.chm", "v10.chm"},
			expected: []string{"v9.chm", "v10.chm", "v010.chm", "v0010.chm"},
		},
		{
			name:     "directories ignored",
			names:    []string{"b/merge2.chm", "a/merge10.chm"},
			expected: []string{"b/merge2.chm", "a/merge10.chm"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got := slices.Clone(test.names)
			slices.SortFunc(got, natsort.Compare)
			if diff := cmp.Diff(test.expected, got); diff != "" {
				t.Errorf("SortFunc (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestStem(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]string{
		"merge1.chm":        "merge1",
		"dir/Merge1.CHM.DZ": "Merge1",
		"readme.txt":        "readme.txt",
	} {
		if got := natsort.Stem(name); got != want {
			t.Errorf("Stem(%q): got %q, want %q", name, got, want)
		}
	}
}
