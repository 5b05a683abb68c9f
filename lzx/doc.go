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

// Package lzx implements decoding of the LZX compressed sections found in
// compiled help (.chm) archives.
//
// An LZX stream is a sliding window compressor with Huffman coded blocks.
// The compressed section of an archive is accompanied by two small objects:
//
//  1. The LZXC control data, which specifies the window size and the reset
//     interval of the stream.
//  2. The reset table, which records the compressed offset of every 0x8000
//     byte frame of decompressed output.
//
// The decoder state (repeated match distances and Huffman code lengths) is
// reset every reset interval. Decoding may therefore begin at any reset
// table entry that lies on a reset interval boundary.
//
// The bitstream is a sequence of 16-bit little-endian words that are read
// most significant bit first. Each block starts with a 3 bit block type and a
// 24 bit block length:
//
//	+------------+--------------+-------------------------------------+
//	| type (3)   | length (24)  | trees (verbatim, aligned) | symbols |
//	+------------+--------------+-------------------------------------+
//
// Code lengths of the main and length trees are delta coded against the
// lengths of the previous block using a 20 symbol pretree.
package lzx
