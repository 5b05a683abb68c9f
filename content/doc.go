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

// Package content extracts text and structure from the objects stored in an
// archive: the #SYSTEM metadata, the table of contents (.hhc), the keyword
// index (.hhk) and HTML pages.
//
// The markup parsers are tolerant. They never fail on malformed input but
// skip what they cannot make sense of and keep going.
package content
