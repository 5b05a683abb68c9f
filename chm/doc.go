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

// Package chm implements reading compiled HTML help (.chm) archives.
//
// An archive starts with a fixed header followed by a directory and the
// content sections:
//
//	+-------------+-----------------+-----------+-----------------------+
//	| ITSF header | file size block | directory | content (section 0)   |
//	+-------------+-----------------+-----------+-----------------------+
//
// The directory is an ITSP header followed by fixed-size chunks. Leaf chunks
// (PMGL) list entries, each naming the content section, offset and length of
// an object. Index chunks (PMGI) map the paths of their children to chunk
// numbers so that a lookup can descend from the root chunk instead of
// scanning every leaf.
//
// Content section 0 holds objects stored uncompressed. Section 1 holds
// objects compressed with LZX; its compressed stream, control data and reset
// table are themselves objects in section 0.
//
// Directory version 2 shares name prefixes between consecutive leaf entries:
// each name is stored as the number of bytes to keep from the previous name
// followed by a new suffix.
package chm
