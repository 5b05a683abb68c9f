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

package testutil

import (
	"encoding/binary"
	"sort"
)

// LZX block types understood by the encoder.
const (
	LZXVerbatim     = 1
	LZXAligned      = 2
	LZXUncompressed = 3
)

const lzxFrameSize = 0x8000

// LZXOptions are options for CompressLZX.
type LZXOptions struct {
	// WindowBits is the base two logarithm of the window size. Defaults to 16.
	WindowBits int

	// FramesPerReset is the number of frames between state resets. Defaults
	// to 2.
	FramesPerReset int

	// BlockTypes is the sequence of block types used for successive frames.
	// It is repeated as needed. Defaults to verbatim, aligned, uncompressed.
	BlockTypes []int

	// NoMatches disables match finding so that only literals are emitted.
	NoMatches bool

	// PadBlocks is added to the declared size of the last compressed block
	// of each reset interval, so that part of the block remains when the
	// decoder state is reset.
	PadBlocks int
}

func (o *LZXOptions) windowBits() int {
	if o == nil || o.WindowBits == 0 {
		return 16
	}
	return o.WindowBits
}

func (o *LZXOptions) framesPerReset() int {
	if o == nil || o.FramesPerReset == 0 {
		return 2
	}
	return o.FramesPerReset
}

func (o *LZXOptions) blockType(frame int) int {
	types := []int{LZXVerbatim, LZXAligned, LZXUncompressed}
	if o != nil && len(o.BlockTypes) > 0 {
		types = o.BlockTypes
	}
	return types[frame%len(types)]
}

var (
	lzxExtraBits    [51]uint
	lzxPositionBase [52]int
)

func init() {
	for i := range lzxExtraBits {
		switch {
		case i < 4:
			lzxExtraBits[i] = 0
		case i >= 36:
			lzxExtraBits[i] = 17
		default:
			lzxExtraBits[i] = uint(i/2 - 1)
		}
	}
	for i := 1; i < len(lzxPositionBase); i++ {
		lzxPositionBase[i] = lzxPositionBase[i-1] + 1<<lzxExtraBits[i-1]
	}
}

func lzxPositionSlots(windowBits int) int {
	switch windowBits {
	case 20:
		return 42
	case 21:
		return 50
	default:
		return 2 * windowBits
	}
}

// bitWriter writes bits most significant first into 16-bit little-endian
// words.
type bitWriter struct {
	out []byte
	acc uint16
	n   uint
}

func (w *bitWriter) write(v uint32, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		w.acc = w.acc<<1 | uint16(v>>uint(i))&1
		w.n++
		if w.n == 16 {
			w.out = append(w.out, byte(w.acc), byte(w.acc>>8))
			w.acc = 0
			w.n = 0
		}
	}
}

func (w *bitWriter) alignFrame() {
	if w.n > 0 {
		w.write(0, 16-w.n)
	}
}

// alignRaw pads with 1 to 16 zero bits.
func (w *bitWriter) alignRaw() {
	w.write(0, 16-w.n)
}

func (w *bitWriter) raw(b []byte) {
	if w.n != 0 {
		panic("raw write on unaligned bit writer")
	}
	w.out = append(w.out, b...)
}

type lzxToken struct {
	literal byte
	length  int
	dist    int
}

type lzxEncoder struct {
	opts       *LZXOptions
	windowSize int
	numSlots   int
	mainSize   int

	w          bitWriter
	r0, r1, r2 int
	prevMain   []uint8
	prevLength []uint8
	last       map[uint32]int
}

// CompressLZX compresses data into an LZX stream of the kind stored in the
// compressed section of a .chm archive. It returns the stream and the
// compressed offset of every frame.
func CompressLZX(data []byte, opts *LZXOptions) ([]byte, []uint64) {
	e := &lzxEncoder{
		opts:       opts,
		windowSize: 1 << opts.windowBits(),
		numSlots:   lzxPositionSlots(opts.windowBits()),
		last:       map[uint32]int{},
	}
	e.mainSize = 256 + e.numSlots*8

	var offsets []uint64
	fpr := opts.framesPerReset()
	for frame, start := 0, 0; start < len(data); frame++ {
		offsets = append(offsets, uint64(len(e.w.out)))
		if frame%fpr == 0 {
			e.r0, e.r1, e.r2 = 1, 1, 1
			e.prevMain = make([]uint8, e.mainSize)
			e.prevLength = make([]uint8, 249)
			// No E8 call translation.
			e.w.write(0, 1)
		}

		end := min(start+lzxFrameSize, len(data))
		resetStart := (frame - frame%fpr) * lzxFrameSize
		switch t := opts.blockType(frame); t {
		case LZXUncompressed:
			e.uncompressedBlock(data[start:end])
		default:
			pad := 0
			if opts != nil && (frame+1)%fpr == 0 && end < len(data) {
				pad = opts.PadBlocks
			}
			e.compressedBlock(t, e.tokens(data, resetStart, start, end), pad)
		}
		e.w.alignFrame()
		start = end
	}
	return e.w.out, offsets
}

func (e *lzxEncoder) tokens(data []byte, resetStart, start, end int) []lzxToken {
	var toks []lzxToken
	for i := start; i < end; {
		bestLen, bestDist := 0, 0
		if e.opts == nil || !e.opts.NoMatches {
			for _, d := range []int{e.r0, e.r1, e.r2} {
				if l := matchLen(data, i, d, resetStart, end); l >= 2 && l > bestLen {
					bestLen, bestDist = l, d
				}
			}
			if i+3 <= end {
				key := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16
				if p, ok := e.last[key]; ok {
					d := i - p
					if d <= e.windowSize-3 {
						if l := matchLen(data, i, d, resetStart, end); l >= 3 && l > bestLen+1 {
							bestLen, bestDist = l, d
						}
					}
				}
			}
		}

		n := 1
		if bestLen >= 2 {
			toks = append(toks, lzxToken{length: bestLen, dist: bestDist})
			n = bestLen
		} else {
			toks = append(toks, lzxToken{literal: data[i]})
		}
		for j := i; j < i+n && j+3 <= end; j++ {
			e.last[uint32(data[j])|uint32(data[j+1])<<8|uint32(data[j+2])<<16] = j
		}
		i += n
	}
	return toks
}

func matchLen(data []byte, i, dist, resetStart, end int) int {
	if dist <= 0 || i-dist < resetStart {
		return 0
	}
	l := 0
	for l < 257 && i+l < end && data[i+l] == data[i+l-dist] {
		l++
	}
	return l
}

type lzxItem struct {
	main   int
	length int
	slot   int
	footer int
}

func (e *lzxEncoder) items(toks []lzxToken) []lzxItem {
	items := make([]lzxItem, 0, len(toks))
	for _, t := range toks {
		if t.length == 0 {
			items = append(items, lzxItem{main: int(t.literal), length: -1})
			continue
		}
		it := lzxItem{length: -1}
		switch t.dist {
		case e.r0:
			it.slot = 0
		case e.r1:
			it.slot = 1
			e.r1 = e.r0
			e.r0 = t.dist
		case e.r2:
			it.slot = 2
			e.r2 = e.r0
			e.r0 = t.dist
		default:
			formatted := t.dist + 2
			s := sort.Search(len(lzxPositionBase), func(s int) bool {
				return lzxPositionBase[s] > formatted
			}) - 1
			it.slot = s
			it.footer = formatted - lzxPositionBase[s]
			e.r2 = e.r1
			e.r1 = e.r0
			e.r0 = t.dist
		}
		header := t.length - 2
		if header >= 7 {
			it.length = header - 7
			header = 7
		}
		it.main = 256 + it.slot*8 + header
		items = append(items, it)
	}
	return items
}

func (e *lzxEncoder) blockHeader(blockType, size int) {
	e.w.write(uint32(blockType), 3)
	e.w.write(uint32(size>>8), 16)
	e.w.write(uint32(size&0xff), 8)
}

func (e *lzxEncoder) compressedBlock(blockType int, toks []lzxToken, pad int) {
	size := 0
	for _, t := range toks {
		if t.length == 0 {
			size++
		} else {
			size += t.length
		}
	}
	items := e.items(toks)

	mainFreq := make([]int, e.mainSize)
	lengthFreq := make([]int, 249)
	for _, it := range items {
		mainFreq[it.main]++
		if it.length >= 0 {
			lengthFreq[it.length]++
		}
	}
	mainLens := huffmanLengths(mainFreq, 16)
	lengthLens := huffmanLengths(lengthFreq, 16)

	e.blockHeader(blockType, size+pad)
	if blockType == LZXAligned {
		for i := 0; i < 8; i++ {
			e.w.write(3, 3)
		}
	}
	e.writeLengths(e.prevMain, mainLens, 0, 256)
	e.writeLengths(e.prevMain, mainLens, 256, e.mainSize)
	e.writeLengths(e.prevLength, lengthLens, 0, 249)
	e.prevMain = mainLens
	e.prevLength = lengthLens

	mainCodes := canonicalCodes(mainLens)
	lengthCodes := canonicalCodes(lengthLens)
	for _, it := range items {
		e.w.write(mainCodes[it.main], uint(mainLens[it.main]))
		if it.length >= 0 {
			e.w.write(lengthCodes[it.length], uint(lengthLens[it.length]))
		}
		if it.slot < 3 {
			continue
		}
		extra := lzxExtraBits[it.slot]
		if blockType == LZXAligned && extra >= 3 {
			if extra > 3 {
				e.w.write(uint32(it.footer>>3), extra-3)
			}
			// All aligned codes are three bits long so each code is its
			// own symbol.
			e.w.write(uint32(it.footer&7), 3)
			continue
		}
		e.w.write(uint32(it.footer), extra)
	}
}

func (e *lzxEncoder) uncompressedBlock(b []byte) {
	e.blockHeader(LZXUncompressed, len(b))
	e.w.alignRaw()
	var r [12]byte
	binary.LittleEndian.PutUint32(r[0:], uint32(e.r0))
	binary.LittleEndian.PutUint32(r[4:], uint32(e.r1))
	binary.LittleEndian.PutUint32(r[8:], uint32(e.r2))
	e.w.raw(r[:])
	e.w.raw(b)
	if len(b)&1 == 1 {
		e.w.raw([]byte{0})
	}
}

type pretreeOp struct {
	sym   int
	extra uint32
	bits  uint
	next  int
}

// writeLengths writes lens[first:last] delta coded against prev using a
// pretree, exercising the zero run and same-value run codes.
func (e *lzxEncoder) writeLengths(prev, lens []uint8, first, last int) {
	var ops []pretreeOp
	deltaSym := func(x int, v uint8) int {
		return (int(prev[x]) - int(v) + 17) % 17
	}
	for x := first; x < last; {
		run := 1
		for x+run < last && lens[x+run] == lens[x] {
			run++
		}
		switch {
		case lens[x] == 0 && run >= 20:
			n := min(run, 51)
			ops = append(ops, pretreeOp{sym: 18, extra: uint32(n - 20), bits: 5, next: -1})
			x += n
		case lens[x] == 0 && run >= 4:
			n := min(run, 19)
			ops = append(ops, pretreeOp{sym: 17, extra: uint32(n - 4), bits: 4, next: -1})
			x += n
		case run >= 4:
			n := min(run, 5)
			ops = append(ops, pretreeOp{sym: 19, extra: uint32(n - 4), bits: 1, next: deltaSym(x, lens[x])})
			x += n
		default:
			ops = append(ops, pretreeOp{sym: deltaSym(x, lens[x]), next: -1})
			x++
		}
	}

	freq := make([]int, 20)
	for _, op := range ops {
		freq[op.sym]++
		if op.next >= 0 {
			freq[op.next]++
		}
	}
	preLens := huffmanLengths(freq, 15)
	preCodes := canonicalCodes(preLens)
	for _, l := range preLens {
		e.w.write(uint32(l), 4)
	}
	for _, op := range ops {
		e.w.write(preCodes[op.sym], uint(preLens[op.sym]))
		e.w.write(op.extra, op.bits)
		if op.next >= 0 {
			e.w.write(preCodes[op.next], uint(preLens[op.next]))
		}
	}
}

// huffmanLengths returns complete code lengths for the given symbol
// frequencies. Lengths are flattened when the Huffman tree is deeper than
// maxLen.
func huffmanLengths(freq []int, maxLen int) []uint8 {
	lens := make([]uint8, len(freq))
	var used []int
	for sym, f := range freq {
		if f > 0 {
			used = append(used, sym)
		}
	}
	switch len(used) {
	case 0:
		return lens
	case 1:
		// A single code of length one would be incomplete.
		other := 0
		if used[0] == 0 {
			other = 1
		}
		used = append(used, other)
		sort.Ints(used)
	}

	type node struct {
		weight int
		parent int
	}
	nodes := make([]node, 0, 2*len(used))
	active := make([]int, 0, len(used))
	for _, sym := range used {
		w := freq[sym]
		if w == 0 {
			w = 1
		}
		nodes = append(nodes, node{weight: w, parent: -1})
		active = append(active, len(nodes)-1)
	}
	for len(active) > 1 {
		sort.SliceStable(active, func(i, j int) bool {
			return nodes[active[i]].weight < nodes[active[j]].weight
		})
		a, b := active[0], active[1]
		nodes = append(nodes, node{weight: nodes[a].weight + nodes[b].weight, parent: -1})
		parent := len(nodes) - 1
		nodes[a].parent = parent
		nodes[b].parent = parent
		active = append([]int{parent}, active[2:]...)
	}

	maxDepth := 0
	for i, sym := range used {
		depth := 0
		for n := i; nodes[n].parent >= 0; n = nodes[n].parent {
			depth++
		}
		lens[sym] = uint8(depth)
		maxDepth = max(maxDepth, depth)
	}
	if maxDepth <= maxLen {
		return lens
	}

	k := 0
	for 1<<(k+1) <= len(used) {
		k++
	}
	long := 2 * (len(used) - 1<<k)
	for i, sym := range used {
		if i < len(used)-long {
			lens[sym] = uint8(k)
		} else {
			lens[sym] = uint8(k + 1)
		}
	}
	return lens
}

// canonicalCodes assigns canonical codes to the given lengths.
func canonicalCodes(lens []uint8) []uint32 {
	codes := make([]uint32, len(lens))
	code := uint32(0)
	for l := uint8(1); l <= 16; l++ {
		for sym, sl := range lens {
			if sl == l {
				codes[sym] = code
				code++
			}
		}
		code <<= 1
	}
	return codes
}
