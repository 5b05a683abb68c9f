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
	"errors"
	"fmt"
	"math/bits"
	"sort"
)

// FrameSize is the number of decompressed bytes in a single LZX frame.
const FrameSize = 0x8000

const (
	controlMagic = "LZXC"

	minWindowBits = 15
	maxWindowBits = 21
)

var (
	// ErrInvalidControlData indicates that the LZXC control data is malformed.
	ErrInvalidControlData = errors.New("invalid LZXC control data")

	// ErrInvalidResetTable indicates that the reset table is malformed.
	ErrInvalidResetTable = errors.New("invalid reset table")
)

// ControlData is the LZXC control block of a compressed section.
type ControlData struct {
	// Version is the control data version. Version 2 expresses the reset
	// interval and window size in units of FrameSize.
	Version uint32

	// WindowBits is the base two logarithm of the window size.
	WindowBits int

	// ResetInterval is the number of decompressed bytes between decoder
	// state resets.
	ResetInterval int
}

// WindowSize returns the size of the sliding window in bytes.
func (c *ControlData) WindowSize() int {
	return 1 << c.WindowBits
}

// FramesPerReset returns the number of frames in each reset interval.
func (c *ControlData) FramesPerReset() int {
	return c.ResetInterval / FrameSize
}

// ParseControlData parses the LZXC control block.
func ParseControlData(b []byte) (*ControlData, error) {
	if len(b) < 20 {
		return nil, fmt.Errorf("%w: short control data (%d bytes)", ErrInvalidControlData, len(b))
	}
	if string(b[4:8]) != controlMagic {
		return nil, fmt.Errorf("%w: bad signature %q", ErrInvalidControlData, b[4:8])
	}

	version := binary.LittleEndian.Uint32(b[8:])
	resetInterval := uint64(binary.LittleEndian.Uint32(b[12:]))
	windowSize := uint64(binary.LittleEndian.Uint32(b[16:]))
	switch version {
	case 1:
	case 2:
		resetInterval *= FrameSize
		windowSize *= FrameSize
	default:
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidControlData, version)
	}

	if windowSize == 0 || windowSize&(windowSize-1) != 0 {
		return nil, fmt.Errorf("%w: window size %d is not a power of two", ErrInvalidControlData, windowSize)
	}
	windowBits := bits.TrailingZeros64(windowSize)
	if windowBits < minWindowBits || windowBits > maxWindowBits {
		return nil, fmt.Errorf("%w: window size 2^%d out of range", ErrInvalidControlData, windowBits)
	}
	if resetInterval == 0 || resetInterval%FrameSize != 0 || resetInterval > 1<<31 {
		return nil, fmt.Errorf("%w: bad reset interval %d", ErrInvalidControlData, resetInterval)
	}

	return &ControlData{
		Version:       version,
		WindowBits:    windowBits,
		ResetInterval: int(resetInterval),
	}, nil
}

// Checkpoint is a reset table entry. It records the compressed offset at which
// the frame starting at DecompressedOffset begins.
type Checkpoint struct {
	CompressedOffset   uint64
	DecompressedOffset uint64
}

// ResetTable is the reset table of a compressed section.
type ResetTable struct {
	// UncompressedLength is the total decompressed length of the section.
	UncompressedLength uint64

	// CompressedLength is the total compressed length of the section.
	CompressedLength uint64

	// Checkpoints holds one entry per frame, ordered by offset.
	Checkpoints []Checkpoint
}

const resetTableHeaderSize = 0x28

// ParseResetTable parses a reset table. Compressed offsets must be strictly
// increasing.
func ParseResetTable(b []byte) (*ResetTable, error) {
	if len(b) < resetTableHeaderSize {
		return nil, fmt.Errorf("%w: short header (%d bytes)", ErrInvalidResetTable, len(b))
	}

	count := uint64(binary.LittleEndian.Uint32(b[4:]))
	entrySize := uint64(binary.LittleEndian.Uint32(b[8:]))
	tableOffset := uint64(binary.LittleEndian.Uint32(b[12:]))
	t := &ResetTable{
		UncompressedLength: binary.LittleEndian.Uint64(b[0x10:]),
		CompressedLength:   binary.LittleEndian.Uint64(b[0x18:]),
	}
	frameLength := binary.LittleEndian.Uint64(b[0x20:])

	if entrySize != 8 {
		return nil, fmt.Errorf("%w: unsupported entry size %d", ErrInvalidResetTable, entrySize)
	}
	if frameLength != FrameSize {
		return nil, fmt.Errorf("%w: unsupported frame length %#x", ErrInvalidResetTable, frameLength)
	}
	if tableOffset > uint64(len(b)) || count > (uint64(len(b))-tableOffset)/entrySize {
		return nil, fmt.Errorf("%w: %d entries at %#x exceed table size %d",
			ErrInvalidResetTable, count, tableOffset, len(b))
	}

	t.Checkpoints = make([]Checkpoint, count)
	for i := range t.Checkpoints {
		off := binary.LittleEndian.Uint64(b[tableOffset+uint64(i)*entrySize:])
		if i > 0 && off <= t.Checkpoints[i-1].CompressedOffset {
			return nil, fmt.Errorf("%w: entry %d offset %d not increasing", ErrInvalidResetTable, i, off)
		}
		if t.CompressedLength != 0 && off > t.CompressedLength {
			return nil, fmt.Errorf("%w: entry %d offset %d beyond compressed length %d",
				ErrInvalidResetTable, i, off, t.CompressedLength)
		}
		t.Checkpoints[i] = Checkpoint{
			CompressedOffset:   off,
			DecompressedOffset: uint64(i) * FrameSize,
		}
	}

	return t, nil
}

// Nearest returns the index of the last checkpoint at or before the
// decompressed offset that falls on a reset interval boundary.
func (t *ResetTable) Nearest(offset uint64, framesPerReset int) (int, bool) {
	if framesPerReset <= 0 || len(t.Checkpoints) == 0 {
		return 0, false
	}
	i := sort.Search(len(t.Checkpoints), func(i int) bool {
		return t.Checkpoints[i].DecompressedOffset > offset
	}) - 1
	if i < 0 {
		return 0, false
	}
	return i - i%framesPerReset, true
}
