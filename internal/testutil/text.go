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
	"math/rand/v2"
	"strings"
)

var words = strings.Fields(`
	aal abend abbauen acht adler ahnen album alter angel apfel arbeit atem
	bach bahn ball band bank bauer baum berg bild blatt blume boden brief
	dach dank decke degen dichter dorf draht druck duft ecke ehre eiche
	eimer eisen ende engel erbe erde esel eule fabel faden farbe feder feld
	`)

// Text returns n bytes of deterministic pseudo-random text. The text repeats
// words, so it compresses well and exercises matches.
func Text(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(words[r.IntN(len(words))])
		switch r.IntN(12) {
		case 0:
			b.WriteString(".\n")
		case 1:
			b.WriteString(", ")
		default:
			b.WriteByte(' ')
		}
	}
	return []byte(b.String()[:n])
}

// Noise returns n bytes of deterministic pseudo-random binary data.
func Noise(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed+1))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.Uint32())
	}
	return b
}
