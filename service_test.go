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

package chmdict_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	chmdict "github.com/ianlewis/go-chmdict"
	"github.com/ianlewis/go-chmdict/internal/testutil"
)

func writeDictionary(t *testing.T) string {
	t.Helper()

	merge1 := testutil.MakeVolume(
		[]testutil.Page{
			{Name: "ab.htm", Title: "ab", Body: `<p>ab und zu</p><a href="abc.htm">abc</a><img src="img/logo.gif">`},
			{Name: "abbauen.htm", Title: "abbauen", Body: "<p>ein Zelt abbauen</p>"},
		},
		[]testutil.Headword{
			{Name: "ab", Local: "ab.htm"},
			{Name: "abbauen", Local: "abbauen.htm"},
		},
		&testutil.VolumeOptions{
			Files: []testutil.File{{Name: "/img/logo.gif", Data: []byte("GIF89a"), Uncompressed: true}},
		},
	)
	merge2 := testutil.MakeVolume(
		[]testutil.Page{
			{Name: "abc.htm", Title: "abc", Body: "<p>das Alphabet</p>"},
			{Name: "info.htm", Title: "Info", Body: "<p>Hinweise</p>"},
		},
		[]testutil.Headword{
			{Name: "abc", Local: "abc.htm"},
		},
		nil,
	)
	merge3 := testutil.MakeVolume(nil, nil, nil)
	merge3[1] = 'X'

	dir := t.TempDir()
	for name, data := range map[string][]byte{"merge1.chm": merge1, "merge2.chm": merge2, "merge10.chm": merge3} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func load(t *testing.T) *chmdict.Service {
	t.Helper()

	s := chmdict.New(&chmdict.Options{Workers: 2})
	dir, err := s.PrepareSource(writeDictionary(t))
	if err != nil {
		t.Fatalf("PrepareSource: %v", err)
	}
	status := s.StartBuild(dir).Wait()
	if !status.Success {
		t.Fatalf("build failed: %s", status.Error)
	}
	return s
}

// TestService_noDictionary tests queries before a build.
func TestService_noDictionary(t *testing.T) {
	t.Parallel()

	s := chmdict.New(nil)
	if _, err := s.IndexEntries("a", 10); !errors.Is(err, chmdict.ErrNoDictionary) {
		t.Errorf("IndexEntries: got %v, want %v", err, chmdict.ErrNoDictionary)
	}
	if _, err := s.Search("a", 10); !errors.Is(err, chmdict.ErrNoDictionary) {
		t.Errorf("Search: got %v, want %v", err, chmdict.ErrNoDictionary)
	}
	if _, err := s.BuildStatus(1); !errors.Is(err, chmdict.ErrUnknownBuild) {
		t.Errorf("BuildStatus: got %v, want %v", err, chmdict.ErrUnknownBuild)
	}
	if got := s.Revision(); got != 0 {
		t.Errorf("Revision: got %d, want 0", got)
	}
}

// TestService_StartBuild tests a build with a corrupt volume.
func TestService_StartBuild(t *testing.T) {
	t.Parallel()

	s := chmdict.New(nil)
	b := s.StartBuild(writeDictionary(t))
	status := b.Wait()

	if !status.Success || !status.Done {
		t.Fatalf("build failed: %+v", status)
	}
	if status.Phase != "done" {
		t.Errorf("phase: got %q, want %q", status.Phase, "done")
	}
	if len(status.Warnings) == 0 || !strings.Contains(status.Warnings[0], "merge10.chm") {
		t.Errorf("warnings: got %q, want a warning for merge10.chm", status.Warnings)
	}
	if got, err := s.BuildStatus(b.Revision()); err != nil || got.Revision != b.Revision() {
		t.Errorf("BuildStatus: got %+v, %v", got, err)
	}
	if got := s.Revision(); got != b.Revision() {
		t.Errorf("Revision: got %d, want %d", got, b.Revision())
	}

	contents, err := s.Contents()
	if err != nil {
		t.Fatalf("Contents: %v", err)
	}
	var titles []string
	for _, n := range contents {
		titles = append(titles, n.Volume+":"+n.Title)
	}
	expected := []string{"merge1.chm:ab", "merge1.chm:abbauen", "merge2.chm:abc", "merge2.chm:Info"}
	if diff := cmp.Diff(expected, titles); diff != "" {
		t.Errorf("Contents (-want, +got):\n%s", diff)
	}
}

// TestService_supersede tests that a newer build wins.
func TestService_supersede(t *testing.T) {
	t.Parallel()

	s := chmdict.New(nil)
	dir := writeDictionary(t)
	first := s.StartBuild(dir)
	second := s.StartBuild(dir)

	if status := second.Wait(); !status.Success {
		t.Fatalf("second build failed: %s", status.Error)
	}
	if status := first.Wait(); !status.Done {
		t.Errorf("first build not done: %+v", status)
	}
	if got := s.Revision(); got != second.Revision() {
		t.Errorf("Revision: got %d, want %d", got, second.Revision())
	}
}

// TestService_BuildStatus_pruned tests that only recent builds are kept.
func TestService_BuildStatus_pruned(t *testing.T) {
	t.Parallel()

	s := chmdict.New(nil)
	missing := filepath.Join(t.TempDir(), "missing")
	var last *chmdict.Build
	for range 17 {
		last = s.StartBuild(missing)
		if status := last.Wait(); status.Success {
			t.Fatalf("build of %q succeeded", missing)
		}
	}

	if _, err := s.BuildStatus(1); !errors.Is(err, chmdict.ErrUnknownBuild) {
		t.Errorf("BuildStatus(1): got %v, want %v", err, chmdict.ErrUnknownBuild)
	}
	for rev := uint64(2); rev <= last.Revision(); rev++ {
		if _, err := s.BuildStatus(rev); err != nil {
			t.Errorf("BuildStatus(%d): %v", rev, err)
		}
	}
}

// TestService_IndexEntries tests prefix lookups.
func TestService_IndexEntries(t *testing.T) {
	t.Parallel()

	s := load(t)

	testCases := map[string]struct {
		prefix   string
		limit    int
		expected []chmdict.IndexEntry
	}{
		"ab": {
			prefix: "ab",
			limit:  10,
			expected: []chmdict.IndexEntry{
				{ID: 1, Headword: "ab"},
				{ID: 2, Headword: "abbauen"},
				{ID: 3, Headword: "abc"},
			},
		},
		"width and case": {
			prefix: "ＡＢＣ",
			limit:  10,
			expected: []chmdict.IndexEntry{
				{ID: 3, Headword: "abc"},
			},
		},
		"limit": {
			prefix: "a",
			limit:  1,
			expected: []chmdict.IndexEntry{
				{ID: 1, Headword: "ab"},
			},
		},
		"none": {
			prefix: "x",
			limit:  10,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := s.IndexEntries(tc.prefix, tc.limit)
			if err != nil {
				t.Fatalf("IndexEntries: %v", err)
			}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("IndexEntries(%q, %d) (-want, +got):\n%s", tc.prefix, tc.limit, diff)
			}
		})
	}
}

// TestService_rebuild tests that ids are stable across builds.
func TestService_rebuild(t *testing.T) {
	t.Parallel()

	dir := writeDictionary(t)
	var results [][]chmdict.IndexEntry
	for range 2 {
		s := chmdict.New(nil)
		if status := s.StartBuild(dir).Wait(); !status.Success {
			t.Fatalf("build failed: %s", status.Error)
		}
		entries, err := s.IndexEntries("", 0)
		if err != nil {
			t.Fatalf("IndexEntries: %v", err)
		}
		results = append(results, entries)
	}
	if diff := cmp.Diff(results[0], results[1]); diff != "" {
		t.Errorf("IndexEntries (-first, +second):\n%s", diff)
	}
}

// TestService_EntryDetail tests reading entries.
func TestService_EntryDetail(t *testing.T) {
	t.Parallel()

	s := load(t)

	first, err := s.EntryDetail(1)
	if err != nil {
		t.Fatalf("EntryDetail: %v", err)
	}
	second, err := s.EntryDetail(1)
	if err != nil {
		t.Fatalf("EntryDetail: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("EntryDetail (-first, +second):\n%s", diff)
	}

	if first.Headword != "ab" || first.Page.Title != "ab" {
		t.Errorf("EntryDetail: got %q with page %q", first.Headword, first.Page.Title)
	}
	if !strings.Contains(first.Page.Text, "ab und zu") {
		t.Errorf("EntryDetail: text %q", first.Page.Text)
	}
	if diff := cmp.Diff([]chmdict.Source{{Volume: "merge1.chm", Path: "/ab.htm"}}, first.Sources); diff != "" {
		t.Errorf("EntryDetail sources (-want, +got):\n%s", diff)
	}

	if _, err := s.EntryDetail(99); !errors.Is(err, chmdict.ErrNotFound) {
		t.Errorf("EntryDetail(99): got %v, want %v", err, chmdict.ErrNotFound)
	}

	details, err := s.Lookup("ABC")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(details) != 1 || details[0].ID != 3 {
		t.Errorf("Lookup(ABC): got %d entries", len(details))
	}
}

// TestService_Search tests full text search.
func TestService_Search(t *testing.T) {
	t.Parallel()

	s := load(t)

	hits, err := s.Search("zelt", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != 2 || hits[0].Headword != "abbauen" {
		t.Fatalf("Search(zelt): got %+v", hits)
	}
	sp := hits[0].Spans[0]
	if got := hits[0].Snippet[sp.Start:sp.End]; got != "Zelt" {
		t.Errorf("Search(zelt): span %q", got)
	}
}

// TestService_ContentPage tests reading pages.
func TestService_ContentPage(t *testing.T) {
	t.Parallel()

	s := load(t)

	page, err := s.ContentPage("info.htm", "")
	if err != nil {
		t.Fatalf("ContentPage: %v", err)
	}
	if page.Volume != "merge2.chm" || page.Title != "Info" {
		t.Errorf("ContentPage: got %s %q", page.Volume, page.Title)
	}

	page, err = s.ContentPage("/AB.HTM#top", "merge1.chm")
	if err != nil {
		t.Fatalf("ContentPage: %v", err)
	}
	if page.Title != "ab" || page.Fragment != "top" {
		t.Errorf("ContentPage: got %q#%s", page.Title, page.Fragment)
	}

	if _, err := s.ContentPage("missing.htm", ""); !errors.Is(err, chmdict.ErrNotFound) {
		t.Errorf("ContentPage(missing): got %v, want %v", err, chmdict.ErrNotFound)
	}
}

// TestService_ResolveLinkTarget tests resolving links.
func TestService_ResolveLinkTarget(t *testing.T) {
	t.Parallel()

	s := load(t)

	testCases := map[string]struct {
		href     string
		source   string
		local    string
		expected chmdict.LinkTarget
	}{
		"other volume": {
			href:   "abc.htm",
			source: "merge1.chm",
			local:  "/ab.htm",
			expected: chmdict.LinkTarget{
				Kind:   chmdict.LinkHeadword,
				Volume: "merge2.chm",
				Path:   "/abc.htm",
				ID:     3,
			},
		},
		"content": {
			href:   "info.htm#x",
			source: "merge2.chm",
			local:  "/abc.htm",
			expected: chmdict.LinkTarget{
				Kind:     chmdict.LinkContent,
				Volume:   "merge2.chm",
				Path:     "/info.htm",
				Fragment: "x",
			},
		},
		"ms-its": {
			href:   "ms-its:merge1.chm::/abbauen.htm",
			source: "merge2.chm",
			local:  "/abc.htm",
			expected: chmdict.LinkTarget{
				Kind:   chmdict.LinkHeadword,
				Volume: "merge1.chm",
				Path:   "/abbauen.htm",
				ID:     2,
			},
		},
		"headword name": {
			href:   "entries/abbauen.html",
			source: "merge2.chm",
			local:  "/abc.htm",
			expected: chmdict.LinkTarget{
				Kind:   chmdict.LinkHeadword,
				Volume: "merge1.chm",
				Path:   "/abbauen.htm",
				ID:     2,
			},
		},
		"external": {
			href:   "https://example.com/",
			source: "merge1.chm",
			local:  "/ab.htm",
			expected: chmdict.LinkTarget{
				Kind: chmdict.LinkExternal,
				URL:  "https://example.com/",
			},
		},
		"not found": {
			href:   "missing.htm",
			source: "merge1.chm",
			local:  "/ab.htm",
			expected: chmdict.LinkTarget{
				Kind: chmdict.LinkNotFound,
				Path: "/missing.htm",
			},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := s.ResolveLinkTarget(tc.href, tc.source, tc.local)
			if err != nil {
				t.Fatalf("ResolveLinkTarget: %v", err)
			}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("ResolveLinkTarget(%q) (-want, +got):\n%s", tc.href, diff)
			}
		})
	}
}

// TestService_ResolveMediaDataURL tests embedding media.
func TestService_ResolveMediaDataURL(t *testing.T) {
	t.Parallel()

	s := load(t)

	got, err := s.ResolveMediaDataURL("img/logo.gif", "merge1.chm", "/ab.htm")
	if err != nil {
		t.Fatalf("ResolveMediaDataURL: %v", err)
	}
	if want := "data:image/gif;base64,R0lGODlh"; got != want {
		t.Errorf("ResolveMediaDataURL: got %q, want %q", got, want)
	}

	if _, err := s.ResolveMediaDataURL("img/none.gif", "merge1.chm", "/ab.htm"); !errors.Is(err, chmdict.ErrNotFound) {
		t.Errorf("ResolveMediaDataURL(none): got %v, want %v", err, chmdict.ErrNotFound)
	}
}

// TestService_Volumes tests listing volumes.
func TestService_Volumes(t *testing.T) {
	t.Parallel()

	s := load(t)

	got, err := s.Volumes()
	if err != nil {
		t.Fatalf("Volumes: %v", err)
	}
	expected := []chmdict.VolumeInfo{
		{Name: "merge1.chm", Title: "merge1", LanguageID: 0x409, Encoding: "windows-1252"},
		{Name: "merge2.chm", Title: "merge2", LanguageID: 0x409, Encoding: "windows-1252"},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Volumes (-want, +got):\n%s", diff)
	}
}
