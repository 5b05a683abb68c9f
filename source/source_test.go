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

package source_test

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ianlewis/go-chmdict/internal/testutil"
	"github.com/ianlewis/go-chmdict/source"
)

type entry struct {
	name string
	data []byte
}

func tarData(t *testing.T, entries []entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     0o644,
			Size:     int64(len(e.data)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(e.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zipData(t *testing.T, entries []entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func compressData(t *testing.T, data []byte, newWriter func(io.Writer) (io.WriteCloser, error)) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := newWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

// readTree returns the files under dir keyed by slash separated relative path.
func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()

	files := map[string]string{}
	err := filepath.Walk(dir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return files
}

// TestPrepare tests Prepare with each container format.
func TestPrepare(t *testing.T) {
	t.Parallel()

	vol1 := []byte("first volume")
	vol2 := bytes.Repeat([]byte("second volume "), 100)

	entries := func(t *testing.T) []entry {
		return []entry{
			{name: "readme.txt", data: []byte("not a volume")},
			{name: "dict/merge1.chm", data: vol1},
			{name: "dict/merge2.chm.dz", data: testutil.DictZip(t, vol2)},
			{name: "../escape.chm", data: []byte("outside")},
		}
	}
	expected := map[string]string{
		"dict/merge1.chm": string(vol1),
		"dict/merge2.chm": string(vol2),
	}

	testCases := map[string]struct {
		name string
		data func(t *testing.T) []byte
	}{
		"zip": {
			name: "dict.zip",
			data: func(t *testing.T) []byte {
				return zipData(t, entries(t))
			},
		},
		"tar": {
			name: "dict.tar",
			data: func(t *testing.T) []byte {
				return tarData(t, entries(t))
			},
		},
		"tar.gz": {
			name: "dict.tar.gz",
			data: func(t *testing.T) []byte {
				return compressData(t, tarData(t, entries(t)), func(w io.Writer) (io.WriteCloser, error) {
					return gzip.NewWriter(w), nil
				})
			},
		},
		"tgz": {
			name: "DICT.TGZ",
			data: func(t *testing.T) []byte {
				return compressData(t, tarData(t, entries(t)), func(w io.Writer) (io.WriteCloser, error) {
					return gzip.NewWriter(w), nil
				})
			},
		},
		"tar.zst": {
			name: "dict.tar.zst",
			data: func(t *testing.T) []byte {
				return compressData(t, tarData(t, entries(t)), func(w io.Writer) (io.WriteCloser, error) {
					return zstd.NewWriter(w)
				})
			},
		},
		"tar.lz4": {
			name: "dict.tar.lz4",
			data: func(t *testing.T) []byte {
				return compressData(t, tarData(t, entries(t)), func(w io.Writer) (io.WriteCloser, error) {
					return lz4.NewWriter(w), nil
				})
			},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tmp := t.TempDir()
			path := filepath.Join(tmp, "in", tc.name)
			writeFile(t, path, tc.data(t))

			workDir := filepath.Join(tmp, "work")
			dir, err := source.Prepare(path, &source.Options{WorkDir: workDir})
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			if dir != workDir {
				t.Errorf("Prepare: expected %q, got %q", workDir, dir)
			}

			if diff := cmp.Diff(expected, readTree(t, dir)); diff != "" {
				t.Errorf("extracted files (-want, +got):\n%s", diff)
			}
			if _, err := os.Stat(filepath.Join(tmp, "escape.chm")); !os.IsNotExist(err) {
				t.Errorf("unsafe entry extracted: %v", err)
			}
		})
	}
}

// TestPrepare_passthrough tests that directories and volumes are returned as
// absolute paths without extraction.
func TestPrepare_passthrough(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	vol := filepath.Join(dir, "a.chm")
	writeFile(t, vol, []byte("volume"))

	for _, path := range []string{dir, vol} {
		got, err := source.Prepare(path, nil)
		if err != nil {
			t.Fatalf("Prepare(%q): %v", path, err)
		}
		if got != path {
			t.Errorf("Prepare(%q): got %q", path, got)
		}
	}
}

// TestPrepare_errors tests unsupported and empty sources.
func TestPrepare_errors(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()

	txt := filepath.Join(tmp, "notes.txt")
	writeFile(t, txt, []byte("text"))
	if _, err := source.Prepare(txt, nil); !errors.Is(err, source.ErrUnsupportedSource) {
		t.Errorf("Prepare(%q): expected %v, got %v", txt, source.ErrUnsupportedSource, err)
	}

	empty := filepath.Join(tmp, "empty.zip")
	writeFile(t, empty, zipData(t, []entry{{name: "readme.txt", data: []byte("x")}}))
	_, err := source.Prepare(empty, &source.Options{WorkDir: filepath.Join(tmp, "work")})
	if !errors.Is(err, source.ErrNoVolumes) {
		t.Errorf("Prepare(%q): expected %v, got %v", empty, source.ErrNoVolumes, err)
	}

	if _, err := source.Prepare(filepath.Join(tmp, "missing.zip"), nil); err == nil {
		t.Error("Prepare(missing): expected error")
	}
}

// TestVolumes tests that volumes are listed in natural order.
func TestVolumes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"merge2.chm", "merge10.chm", "merge1.chm", "merge10-1.chm.dz", "notes.txt", "sub/merge3.CHM"} {
		writeFile(t, filepath.Join(dir, name), []byte(name))
	}

	got, err := source.Volumes(dir)
	if err != nil {
		t.Fatalf("Volumes: %v", err)
	}
	for i := range got {
		got[i] = filepath.ToSlash(mustRel(t, dir, got[i]))
	}

	expected := []string{"merge1.chm", "merge2.chm", "sub/merge3.CHM", "merge10.chm", "merge10-1.chm.dz"}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Volumes (-want, +got):\n%s", diff)
	}

	if _, err := source.Volumes(t.TempDir()); !errors.Is(err, source.ErrNoVolumes) {
		t.Errorf("Volumes(empty): expected %v, got %v", source.ErrNoVolumes, err)
	}
}

func mustRel(t *testing.T, base, path string) string {
	t.Helper()
	rel, err := filepath.Rel(base, path)
	if err != nil {
		t.Fatal(err)
	}
	return rel
}

// TestReadVolume tests reading plain and dictzip volumes.
func TestReadVolume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := bytes.Repeat([]byte("volume data "), 1000)

	plain := filepath.Join(dir, "a.chm")
	writeFile(t, plain, data)
	dz := filepath.Join(dir, "b.chm.dz")
	writeFile(t, dz, testutil.DictZip(t, data))

	for _, path := range []string{plain, dz} {
		got, err := source.ReadVolume(path)
		if err != nil {
			t.Fatalf("ReadVolume(%q): %v", path, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("ReadVolume(%q): got %d bytes, expected %d", path, len(got), len(data))
		}
	}
}
