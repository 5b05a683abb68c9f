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
	"fmt"
)

var (
	// ErrCorruptBitstream indicates that the compressed data is malformed.
	ErrCorruptBitstream = errors.New("corrupt bitstream")

	// ErrInvalidHuffmanTable indicates that a block declared unusable code
	// lengths.
	ErrInvalidHuffmanTable = errors.New("invalid huffman table")

	// ErrWindowOverflow indicates a match that refers outside of the decoded
	// window.
	ErrWindowOverflow = errors.New("window overflow")

	errNotResetPoint = errors.New("checkpoint is not on a reset interval boundary")
)

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptBitstream, fmt.Sprintf(format, args...))
}

func invalidTable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidHuffmanTable, fmt.Sprintf(format, args...))
}

func overflow(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrWindowOverflow, fmt.Sprintf(format, args...))
}
