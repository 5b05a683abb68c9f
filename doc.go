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

// Package chmdict implements a dictionary reader for multi-volume compiled
// HTML help (CHM) dictionaries in pure Go.
//
// A dictionary is distributed as a set of volumes:
//  1. Each volume is a .chm archive holding HTML pages compressed with LZX.
//     Volumes may be compressed with dictzip (.chm.dz).
//  2. A volume's table of contents (.hhc) lists its pages as a tree.
//  3. A volume's keyword index (.hhk) lists its headwords and the pages
//     describing them.
//  4. The volume set may be shipped in an outer container such as a .zip or
//     a compressed tarball.
//
// A [Service] prepares a source, builds an in-memory index of all volumes and
// answers queries against the latest successful build:
//
//	s := chmdict.New(nil)
//	dir, err := s.PrepareSource("dict.zip")
//	...
//	b := s.StartBuild(dir)
//	status := b.Wait()
//	...
//	entries, err := s.IndexEntries("ab", 10)
//
// Nothing is persisted. The index is rebuilt on every load.
package chmdict
