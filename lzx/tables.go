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

const (
	minMatch = 2
	numChars = 256

	numPrimaryLengths   = 7
	numSecondaryLengths = 249
	pretreeSize         = 20
	alignedSize         = 8

	pretreeTableBits = 6
	mainTableBits    = 10
	lengthTableBits  = 8
	alignedTableBits = 7

	// lenSafety pads the code length arrays so that pretree runs that step
	// past the end of a tree never index out of range.
	lenSafety = 64
)

// Block types.
const (
	blockVerbatim     = 1
	blockAligned      = 2
	blockUncompressed = 3
)

var (
	extraBits    [51]uint8
	positionBase [51]uint32
)

func init() {
	j := uint8(0)
	for i := 0; i < len(extraBits); i += 2 {
		extraBits[i] = j
		if i+1 < len(extraBits) {
			extraBits[i+1] = j
		}
		if i != 0 && j < 17 {
			j++
		}
	}
	for i := 1; i < len(positionBase); i++ {
		positionBase[i] = positionBase[i-1] + 1<<extraBits[i-1]
	}
}

// positionSlots returns the number of position slots used by a window.
func positionSlots(windowBits int) int {
	switch windowBits {
	case 20:
		return 42
	case 21:
		return 50
	default:
		return 2 * windowBits
	}
}
