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

package lzx

import (
	"errors"
	"testing"
)

// TestHuffman_build tests building decoding tables.
func TestHuffman_build(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		lens []uint8

		empty bool
		err   error
	}{
		{
			name: "complete",
			lens: []uint8{1, 2, 3, 3},
		},
		{
			name:  "all zero",
			lens:  []uint8{0, 0, 0, 0},
			empty: true,
		},
		{
			name: "oversubscribed",
			lens: []uint8{1, 1, 1},
			err:  ErrInvalidHuffmanTable,
		},
		{
			name: "incomplete",
			lens: []uint8{1, 2, 0, 0},
			err:  ErrInvalidHuffmanTable,
		},
		{
			name: "too long",
			lens: []uint8{17, 1},
			err:  ErrInvalidHuffmanTable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHuffman(6, len(tc.lens))
			err := h.build(tc.lens)
			if !errors.Is(err, tc.err) {
				t.Fatalf("build: unexpected error: %v, want %v", err, tc.err)
			}
			if err == nil && h.empty != tc.empty {
				t.Errorf("build: empty = %v, want %v", h.empty, tc.empty)
			}
		})
	}
}

// TestHuffman_decode tests decoding canonical codes, including codes longer
// than the lookup table.
func TestHuffman_decode(t *testing.T) {
	t.Parallel()

	// Canonical codes: 0 -> 0, 1 -> 10, 2 -> 110, 3 -> 1110, 4 -> 11110,
	// 5 -> 111110, 6 -> 1111110, 7 -> 1111111.
	lens := []uint8{1, 2, 3, 4, 5, 6, 7, 7}
	h := newHuffman(4, len(lens))
	if err := h.build(lens); err != nil {
		t.Fatalf("build: %v", err)
	}

	// Symbols 7, 0, 5, 1 packed MSB first make the word 0xFEFA, stored
	// little-endian.
	br := newBitReader([]byte{0xFA, 0xFE, 0x00, 0x00})

	var got []int
	for range 4 {
		sym, err := h.decode(&br)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		got = append(got, sym)
	}
	want := []int{7, 0, 5, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("decode: got %v, want %v", got, want)
		}
	}
}
