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

const maxCodeLength = 16

// huffman is a canonical Huffman decoding table. Codes up to tableBits long
// are resolved by a single lookup, longer codes by walking the canonical
// code counts.
type huffman struct {
	tableBits uint
	table     []uint16
	count     [maxCodeLength + 1]uint16
	symbols   []uint16
	empty     bool
}

func newHuffman(tableBits uint, numSymbols int) *huffman {
	return &huffman{
		tableBits: tableBits,
		table:     make([]uint16, 1<<tableBits),
		symbols:   make([]uint16, 0, numSymbols),
	}
}

// build rebuilds the table from code lengths. A table with all lengths zero
// is empty and fails on decode. Oversubscribed and incomplete codes are
// rejected.
func (h *huffman) build(lens []uint8) error {
	h.count = [maxCodeLength + 1]uint16{}
	used := 0
	for _, l := range lens {
		if l > maxCodeLength {
			return invalidTable("code length %d", l)
		}
		if l != 0 {
			h.count[l]++
			used++
		}
	}
	h.symbols = h.symbols[:0]
	clear(h.table)
	h.empty = used == 0
	if h.empty {
		return nil
	}

	left := 1
	for l := 1; l <= maxCodeLength; l++ {
		left <<= 1
		left -= int(h.count[l])
		if left < 0 {
			return invalidTable("oversubscribed code at length %d", l)
		}
	}
	if left > 0 {
		return invalidTable("incomplete code")
	}

	for l := 1; l <= maxCodeLength; l++ {
		for sym, sl := range lens {
			if int(sl) == l {
				h.symbols = append(h.symbols, uint16(sym))
			}
		}
	}

	code := 0
	i := 0
	for l := uint(1); l <= maxCodeLength; l++ {
		for n := 0; n < int(h.count[l]); n++ {
			sym := h.symbols[i]
			i++
			if l <= h.tableBits {
				shift := h.tableBits - l
				start := code << shift
				for j := 0; j < 1<<shift; j++ {
					h.table[start+j] = sym<<5 | uint16(l)
				}
			}
			code++
		}
		code <<= 1
	}
	return nil
}

// decode reads one symbol.
func (h *huffman) decode(br *bitReader) (int, error) {
	if h.empty {
		return 0, invalidTable("symbol read from empty table")
	}
	if err := br.ensure(maxCodeLength); err != nil {
		return 0, err
	}
	if e := h.table[br.peek(h.tableBits)]; e&31 != 0 {
		br.remove(uint(e & 31))
		return int(e >> 5), nil
	}

	v := br.peek(maxCodeLength)
	code, first, index := 0, 0, 0
	for l := 1; l <= maxCodeLength; l++ {
		code |= int(v>>(maxCodeLength-l)) & 1
		count := int(h.count[l])
		if code-count < first {
			br.remove(uint(l))
			return int(h.symbols[index+code-first]), nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, corrupt("no code matches bits %016b", v)
}
