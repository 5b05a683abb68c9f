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
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
)

// Decoder decodes the compressed section described by a ControlData and
// ResetTable. A Decoder is not safe for concurrent use but may be reused for
// any number of Decode calls.
type Decoder struct {
	windowSize     int
	numSlots       int
	framesPerReset int
	sectionLength  uint64

	window []byte
	pos    int
	// history is the number of bytes decoded since the last reset, capped at
	// the window size.
	history int

	r0, r1, r2 uint32

	mainLens    []uint8
	lengthLens  []uint8
	alignedLens [alignedSize]uint8
	pretreeLens [pretreeSize]uint8

	mainTree, lengthTree, alignedTree, preTree *huffman

	blockType      int
	blockLength    int
	blockRemaining int

	headerRead     bool
	intelFileSize  int32
	intelStarted   bool
	intelCurPos    int
	framesSinceRst int

	br bitReader

	logger *slog.Logger
}

// NewDecoder returns a decoder for a compressed section whose decompressed
// length is length bytes.
func NewDecoder(ctl *ControlData, length uint64) (*Decoder, error) {
	if ctl == nil || ctl.WindowBits < minWindowBits || ctl.WindowBits > maxWindowBits {
		return nil, fmt.Errorf("%w: missing or invalid window", ErrInvalidControlData)
	}
	if ctl.FramesPerReset() <= 0 {
		return nil, fmt.Errorf("%w: bad reset interval %d", ErrInvalidControlData, ctl.ResetInterval)
	}
	slots := positionSlots(ctl.WindowBits)
	mainSize := numChars + slots*8
	return &Decoder{
		windowSize:     ctl.WindowSize(),
		numSlots:       slots,
		framesPerReset: ctl.FramesPerReset(),
		sectionLength:  length,
		window:         make([]byte, ctl.WindowSize()),
		mainLens:       make([]uint8, mainSize+lenSafety),
		lengthLens:     make([]uint8, numSecondaryLengths+lenSafety),
		mainTree:       newHuffman(mainTableBits, mainSize),
		lengthTree:     newHuffman(lengthTableBits, numSecondaryLengths),
		alignedTree:    newHuffman(alignedTableBits, alignedSize),
		preTree:        newHuffman(pretreeTableBits, pretreeSize),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger receiving warnings about recoverable problems in
// the input. A nil logger discards them.
func (d *Decoder) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d.logger = logger
}

// Decode decodes n bytes of output starting at the checkpoint from. The
// compressed offset of the checkpoint is relative to the start of src and its
// decompressed offset must lie on a reset interval boundary. Fewer than n
// bytes are returned only when the section ends first.
func (d *Decoder) Decode(src []byte, from Checkpoint, n int) ([]byte, error) {
	if from.DecompressedOffset%uint64(d.framesPerReset*FrameSize) != 0 {
		return nil, fmt.Errorf("%w: decompressed offset %d", errNotResetPoint, from.DecompressedOffset)
	}
	if from.CompressedOffset > uint64(len(src)) {
		return nil, corrupt("checkpoint offset %d beyond input of %d bytes", from.CompressedOffset, len(src))
	}
	if from.DecompressedOffset >= d.sectionLength {
		return nil, nil
	}
	if remaining := d.sectionLength - from.DecompressedOffset; uint64(n) > remaining {
		n = int(remaining)
	}

	d.br = newBitReader(src[from.CompressedOffset:])
	out := make([]byte, 0, n)
	offset := from.DecompressedOffset
	for frame := 0; len(out) < n; frame++ {
		if frame%d.framesPerReset == 0 {
			if d.blockRemaining != 0 && frame != 0 {
				// The rest of the block is discarded by the reset.
				d.logger.Warn("block bytes remain at reset interval",
					"offset", offset,
					"remaining", d.blockRemaining,
				)
			}
			d.reset()
		}

		frameSize := FrameSize
		if rest := d.sectionLength - offset; rest < FrameSize {
			frameSize = int(rest)
		}

		b, err := d.decodeFrame(frameSize)
		if err != nil {
			return nil, fmt.Errorf("frame at offset %d: %w", offset, err)
		}
		want := n - len(out)
		if want > len(b) {
			want = len(b)
		}
		out = append(out, b[:want]...)
		offset += uint64(frameSize)
	}
	return out, nil
}

func (d *Decoder) reset() {
	d.r0, d.r1, d.r2 = 1, 1, 1
	clear(d.mainLens)
	clear(d.lengthLens)
	d.pos = 0
	d.history = 0
	d.headerRead = false
	d.blockType = 0
	d.blockLength = 0
	d.blockRemaining = 0
	d.intelStarted = false
	d.intelCurPos = 0
	d.framesSinceRst = 0
}

// decodeFrame decodes one frame and returns its bytes with call translation
// applied. The returned slice is only valid until the next call.
func (d *Decoder) decodeFrame(frameSize int) ([]byte, error) {
	if !d.headerRead {
		if err := d.readHeader(); err != nil {
			return nil, err
		}
	}

	frameStart := (d.framesSinceRst * FrameSize) % d.windowSize
	if d.pos == d.windowSize {
		d.pos = 0
	}
	frameEnd := frameStart + frameSize

	for d.pos < frameEnd {
		if d.blockRemaining == 0 {
			if err := d.readBlockHeader(); err != nil {
				return nil, err
			}
		}

		run := min(d.blockRemaining, frameEnd-d.pos)
		var (
			written int
			err     error
		)
		switch d.blockType {
		case blockVerbatim, blockAligned:
			written, err = d.decodeSymbols(run)
		case blockUncompressed:
			err = d.br.readRaw(d.window[d.pos : d.pos+run])
			written = run
			d.pos += run
		}
		if err != nil {
			return nil, err
		}
		d.history = min(d.history+written, d.windowSize)
		d.blockRemaining -= written
		if d.blockRemaining < 0 {
			return nil, corrupt("match overran block by %d bytes", -d.blockRemaining)
		}
		if d.blockType == blockUncompressed && d.blockRemaining == 0 && d.blockLength&1 == 1 {
			d.br.pos++
		}
	}

	d.br.alignFrame()
	d.framesSinceRst++

	frame := d.window[frameStart:frameEnd]
	if d.intelStarted && d.intelFileSize != 0 && d.framesSinceRst <= 32768 && frameSize > 10 {
		frame = d.translateCalls(frame)
	}
	d.intelCurPos += frameSize
	return frame, nil
}

func (d *Decoder) readHeader() error {
	flag, err := d.br.read(1)
	if err != nil {
		return err
	}
	d.intelFileSize = 0
	if flag == 1 {
		hi, err := d.br.read(16)
		if err != nil {
			return err
		}
		lo, err := d.br.read(16)
		if err != nil {
			return err
		}
		d.intelFileSize = int32(hi<<16 | lo)
	}
	d.headerRead = true
	return nil
}

func (d *Decoder) readBlockHeader() error {
	t, err := d.br.read(3)
	if err != nil {
		return err
	}
	hi, err := d.br.read(16)
	if err != nil {
		return err
	}
	lo, err := d.br.read(8)
	if err != nil {
		return err
	}
	d.blockType = int(t)
	d.blockLength = int(hi<<8 | lo)
	d.blockRemaining = d.blockLength

	switch d.blockType {
	case blockAligned:
		for i := range d.alignedLens {
			v, err := d.br.read(3)
			if err != nil {
				return err
			}
			d.alignedLens[i] = uint8(v)
		}
		if err := d.alignedTree.build(d.alignedLens[:]); err != nil {
			return fmt.Errorf("aligned tree: %w", err)
		}
		fallthrough
	case blockVerbatim:
		mainSize := numChars + d.numSlots*8
		if err := d.readLengths(d.mainLens, 0, numChars); err != nil {
			return err
		}
		if err := d.readLengths(d.mainLens, numChars, mainSize); err != nil {
			return err
		}
		if err := d.mainTree.build(d.mainLens[:mainSize]); err != nil {
			return fmt.Errorf("main tree: %w", err)
		}
		if d.mainTree.empty {
			return invalidTable("empty main tree")
		}
		if d.mainLens[0xE8] != 0 {
			d.intelStarted = true
		}
		if err := d.readLengths(d.lengthLens, 0, numSecondaryLengths); err != nil {
			return err
		}
		if err := d.lengthTree.build(d.lengthLens[:numSecondaryLengths]); err != nil {
			return fmt.Errorf("length tree: %w", err)
		}
	case blockUncompressed:
		d.intelStarted = true
		d.br.alignRaw()
		var r [12]byte
		if err := d.br.readRaw(r[:]); err != nil {
			return err
		}
		d.r0 = binary.LittleEndian.Uint32(r[0:])
		d.r1 = binary.LittleEndian.Uint32(r[4:])
		d.r2 = binary.LittleEndian.Uint32(r[8:])
	default:
		return corrupt("bad block type %d", d.blockType)
	}
	if d.blockLength == 0 {
		return corrupt("empty block")
	}
	return nil
}

// readLengths reads the code lengths lens[first:last] as deltas against their
// current values using a freshly transmitted pretree.
func (d *Decoder) readLengths(lens []uint8, first, last int) error {
	for i := range d.pretreeLens {
		v, err := d.br.read(4)
		if err != nil {
			return err
		}
		d.pretreeLens[i] = uint8(v)
	}
	if err := d.preTree.build(d.pretreeLens[:]); err != nil {
		return fmt.Errorf("pretree: %w", err)
	}

	fill := func(x, n int, v uint8) int {
		for ; n > 0 && x < len(lens); n-- {
			lens[x] = v
			x++
		}
		return x
	}

	for x := first; x < last; {
		z, err := d.preTree.decode(&d.br)
		if err != nil {
			return err
		}
		switch z {
		case 17:
			n, err := d.br.read(4)
			if err != nil {
				return err
			}
			x = fill(x, int(n)+4, 0)
		case 18:
			n, err := d.br.read(5)
			if err != nil {
				return err
			}
			x = fill(x, int(n)+20, 0)
		case 19:
			n, err := d.br.read(1)
			if err != nil {
				return err
			}
			z, err = d.preTree.decode(&d.br)
			if err != nil {
				return err
			}
			if z > 16 {
				return corrupt("bad pretree delta %d in same-length run", z)
			}
			x = fill(x, int(n)+4, delta(lens[x], z))
		default:
			lens[x] = delta(lens[x], z)
			x++
		}
	}
	return nil
}

func delta(prev uint8, z int) uint8 {
	v := int(prev) - z
	if v < 0 {
		v += 17
	}
	return uint8(v)
}

// decodeSymbols decodes literals and matches until at least run bytes have
// been written to the window. The last match may write past run.
func (d *Decoder) decodeSymbols(run int) (int, error) {
	written := 0
	for written < run {
		sym, err := d.mainTree.decode(&d.br)
		if err != nil {
			return written, err
		}
		if sym < numChars {
			d.window[d.pos] = byte(sym)
			d.pos++
			written++
			continue
		}

		sym -= numChars
		matchLength := sym & numPrimaryLengths
		if matchLength == numPrimaryLengths {
			footer, err := d.lengthTree.decode(&d.br)
			if err != nil {
				return written, err
			}
			matchLength += footer
		}
		matchLength += minMatch

		var matchOffset uint32
		switch slot := sym >> 3; slot {
		case 0:
			matchOffset = d.r0
		case 1:
			matchOffset = d.r1
			d.r1 = d.r0
			d.r0 = matchOffset
		case 2:
			matchOffset = d.r2
			d.r2 = d.r0
			d.r0 = matchOffset
		default:
			matchOffset, err = d.readOffset(slot)
			if err != nil {
				return written, err
			}
			d.r2 = d.r1
			d.r1 = d.r0
			d.r0 = matchOffset
		}

		if err := d.copyMatch(int(matchOffset), matchLength, written); err != nil {
			return written, err
		}
		written += matchLength
	}
	return written, nil
}

// readOffset reads the footer of a non-repeated match distance.
func (d *Decoder) readOffset(slot int) (uint32, error) {
	extra := uint(extraBits[slot])
	offset := positionBase[slot] - 2
	if d.blockType == blockAligned && extra >= 3 {
		if extra > 3 {
			v, err := d.br.read(extra - 3)
			if err != nil {
				return 0, err
			}
			offset += v << 3
		}
		a, err := d.alignedTree.decode(&d.br)
		if err != nil {
			return 0, err
		}
		return offset + uint32(a), nil
	}
	v, err := d.br.read(extra)
	if err != nil {
		return 0, err
	}
	return offset + v, nil
}

func (d *Decoder) copyMatch(offset, length, written int) error {
	if offset <= 0 || offset > d.windowSize || offset > d.history+written {
		return overflow("match distance %d exceeds %d bytes of history", offset, d.history+written)
	}
	if d.pos+length > d.windowSize {
		return overflow("match of %d bytes at %d crosses window end", length, d.pos)
	}
	src := d.pos - offset
	if src < 0 {
		src += d.windowSize
	}
	for i := 0; i < length; i++ {
		d.window[d.pos] = d.window[src]
		d.pos++
		src++
		if src == d.windowSize {
			src = 0
		}
	}
	return nil
}

// translateCalls undoes the E8 call instruction translation performed by the
// encoder on x86 code.
func (d *Decoder) translateCalls(frame []byte) []byte {
	buf := make([]byte, len(frame))
	copy(buf, frame)
	curpos := int32(d.intelCurPos)
	filesize := d.intelFileSize
	for i := 0; i < len(buf)-10; {
		if buf[i] != 0xE8 {
			i++
			curpos++
			continue
		}
		abs := int32(binary.LittleEndian.Uint32(buf[i+1:]))
		if abs >= -curpos && abs < filesize {
			var rel int32
			if abs >= 0 {
				rel = abs - curpos
			} else {
				rel = abs + filesize
			}
			binary.LittleEndian.PutUint32(buf[i+1:], uint32(rel))
		}
		i += 5
		curpos += 5
	}
	return buf
}

// Decode is a convenience wrapper that decodes n bytes of a compressed section
// starting at the checkpoint from.
func Decode(src []byte, ctl *ControlData, length uint64, from Checkpoint, n int) ([]byte, error) {
	d, err := NewDecoder(ctl, length)
	if err != nil {
		return nil, err
	}
	return d.Decode(src, from, n)
}
