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

package source

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type containerFunc func(path string, x *extractor) error

// containerFormat returns the extraction function for the container at path
// or nil if the extension is not known.
func containerFormat(path string) containerFunc {
	n := strings.ToLower(path)
	switch {
	case strings.HasSuffix(n, ".zip"):
		return extractZip
	case strings.HasSuffix(n, ".tar.gz"), strings.HasSuffix(n, ".tgz"):
		return extractTarGzip
	case strings.HasSuffix(n, ".tar.zst"), strings.HasSuffix(n, ".tzst"):
		return extractTarZstd
	case strings.HasSuffix(n, ".tar.lz4"):
		return extractTarLZ4
	case strings.HasSuffix(n, ".tar"):
		return extractTar
	default:
		return nil
	}
}

// extractor writes the volumes of a container to dir.
type extractor struct {
	dir     string
	logger  *slog.Logger
	volumes int
}

// add extracts the entry name if it is a volume. Other entries and entries
// escaping the work directory are skipped.
func (x *extractor) add(name string, r io.Reader) error {
	if !IsVolume(name) {
		return nil
	}
	rel := filepath.FromSlash(strings.TrimPrefix(name, "./"))
	if !filepath.IsLocal(rel) {
		x.logger.Warn("skipping unsafe entry", "entry", name)
		return nil
	}

	var data []byte
	if strings.HasSuffix(strings.ToLower(rel), ".dz") {
		b, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("reading %q: %w", name, err)
		}
		data, err = expand(bytes.NewReader(b))
		if err != nil {
			return fmt.Errorf("reading %q: %w", name, err)
		}
		rel = rel[:len(rel)-len(".dz")]
	}

	dst := filepath.Join(x.dir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("extracting %q: %w", name, err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("extracting %q: %w", name, err)
	}
	if data != nil {
		_, err = f.Write(data)
	} else {
		_, err = io.Copy(f, r)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("extracting %q: %w", name, err)
	}

	x.volumes++
	x.logger.Debug("volume extracted", "entry", name, "path", dst)
	return nil
}

func extractZip(path string, x *extractor) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractZipFile(f, x); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, x *extractor) error {
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %q: %w", f.Name, err)
	}
	defer r.Close()
	return x.add(f.Name, r)
}

func extractTar(path string, x *extractor) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening tar: %w", err)
	}
	defer f.Close()
	return readTar(f, x)
}

func extractTarGzip(path string, x *extractor) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening tar: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("opening gzip: %w", err)
	}
	defer zr.Close()
	return readTar(zr, x)
}

func extractTarZstd(path string, x *extractor) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening tar: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("opening zstd: %w", err)
	}
	defer zr.Close()
	return readTar(zr, x)
}

func extractTarLZ4(path string, x *extractor) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening tar: %w", err)
	}
	defer f.Close()
	return readTar(lz4.NewReader(f), x)
}

func readTar(r io.Reader, x *extractor) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := x.add(hdr.Name, tr); err != nil {
			return err
		}
	}
}
