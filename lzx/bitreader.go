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

// maxOverrun is the number of zero bytes the bit reader will synthesize past
// the end of its input. Huffman lookups peek 16 bits ahead so a valid stream
// may need a little padding at its very end.
const maxOverrun = 16

// bitReader reads a stream of 16-bit little-endian words most significant bit
// first. Valid bits are kept at the top of buf.
type bitReader struct {
	src     []byte
	pos     int
	buf     uint32
	n       uint
	overrun int
}

func newBitReader(src []byte) bitReader {
	return bitReader{src: src}
}

// ensure makes at least n bits available. n must not exceed 17.
func (br *bitReader) ensure(n uint) error {
	for br.n < n {
		var w uint32
		switch {
		case br.pos+1 < len(br.src):
			w = uint32(br.src[br.pos]) | uint32(br.src[br.pos+1])<<8
		case br.pos < len(br.src):
			w = uint32(br.src[br.pos])
			br.overrun++
		default:
			br.overrun += 2
		}
		if br.overrun > maxOverrun {
			return corrupt("read past end of input at byte %d", br.pos)
		}
		br.pos += 2
		br.buf |= w << (16 - br.n)
		br.n += 16
	}
	return nil
}

func (br *bitReader) peek(n uint) uint32 {
	return br.buf >> (32 - n)
}

func (br *bitReader) remove(n uint) {
	br.buf <<= n
	br.n -= n
}

// read reads n bits. n must not exceed 17.
func (br *bitReader) read(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := br.ensure(n); err != nil {
		return 0, err
	}
	v := br.peek(n)
	br.remove(n)
	return v, nil
}

// alignFrame discards bits up to the next 16-bit word boundary.
func (br *bitReader) alignFrame() {
	br.remove(br.n % 16)
}

// alignRaw discards between 1 and 16 bits to reach the next word boundary and
// switches the reader to byte access. Any whole words already buffered are
// given back to the input.
func (br *bitReader) alignRaw() {
	words := int(br.n / 16)
	if br.n%16 == 0 {
		words--
	}
	br.pos -= 2 * words
	br.buf = 0
	br.n = 0
}

// readRaw copies len(p) bytes from the input. The reader must be byte aligned.
func (br *bitReader) readRaw(p []byte) error {
	if br.pos < 0 || br.pos+len(p) > len(br.src) {
		return corrupt("raw read of %d bytes at %d exceeds input", len(p), br.pos)
	}
	copy(p, br.src[br.pos:])
	br.pos += len(p)
	return nil
}
