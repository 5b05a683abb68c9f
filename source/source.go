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

// Package source locates the archive volumes of a dictionary.
//
// A dictionary source is either a directory holding volumes, a single volume,
// or an outer container (.zip, .tar, .tar.gz, .tar.zst or .tar.lz4) that is
// extracted to a work directory first. Volumes are .chm files, optionally
// compressed with dictzip (.chm.dz).
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ianlewis/go-dictzip"

	"github.com/ianlewis/go-chmdict/internal/natsort"
)

var (
	// ErrUnsupportedSource indicates a file that is neither a volume nor a
	// known container.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrNoVolumes indicates a source without any volumes.
	ErrNoVolumes = errors.New("no volumes found")
)

// Options are options for preparing a source.
type Options struct {
	// WorkDir is the directory containers are extracted to. If empty, a new
	// temporary directory is created.
	WorkDir string

	// Logger receives skipped container entries. If nil, nothing is logged.
	Logger *slog.Logger
}

// DefaultOptions are the default options used by Prepare.
var DefaultOptions = &Options{}

// IsVolume reports whether name has a volume extension.
func IsVolume(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".chm") || strings.HasSuffix(n, ".chm.dz")
}

// Prepare normalizes the source at path. Directories and volumes are returned
// as absolute paths. Containers are extracted and the absolute path of the
// extraction directory is returned.
func Prepare(path string, options *Options) (string, error) {
	if options == nil {
		options = DefaultOptions
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("preparing source: %w", err)
	}
	if fi.IsDir() || IsVolume(abs) {
		return abs, nil
	}

	format := containerFormat(abs)
	if format == nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, path)
	}

	dir := options.WorkDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "chmdict-")
		if err != nil {
			return "", fmt.Errorf("creating work directory: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating work directory: %w", err)
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return "", fmt.Errorf("resolving work directory: %w", err)
	}

	x := &extractor{dir: dir, logger: logger.With("source", filepath.Base(abs))}
	if err := format(abs, x); err != nil {
		return "", fmt.Errorf("extracting %q: %w", path, err)
	}
	if x.volumes == 0 {
		return "", fmt.Errorf("%w in %q", ErrNoVolumes, path)
	}
	logger.Info("source extracted", "path", abs, "dir", dir, "volumes", x.volumes)
	return dir, nil
}

// Volumes returns the volumes of a prepared source in natural order of their
// file names. If path is a volume it is the only one returned.
func Volumes(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("listing volumes: %w", err)
	}
	if !fi.IsDir() {
		if !IsVolume(path) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, path)
		}
		return []string{path}, nil
	}

	var volumes []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsVolume(d.Name()) {
			volumes = append(volumes, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing volumes: %w", err)
	}
	if len(volumes) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoVolumes, path)
	}

	slices.SortFunc(volumes, func(a, b string) int {
		if c := natsort.Compare(filepath.Base(a), filepath.Base(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return volumes, nil
}

// ReadVolume reads the volume at path, expanding dictzip compressed volumes.
func ReadVolume(path string) ([]byte, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".dz") {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading volume: %w", err)
		}
		return b, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading volume: %w", err)
	}
	defer f.Close()
	b, err := expand(f)
	if err != nil {
		return nil, fmt.Errorf("reading volume %q: %w", path, err)
	}
	return b, nil
}

// expand decompresses dictzip data.
func expand(r io.ReadSeeker) ([]byte, error) {
	z, err := dictzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening dictzip: %w", err)
	}
	defer z.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, z); err != nil {
		return nil, fmt.Errorf("expanding dictzip: %w", err)
	}
	return buf.Bytes(), nil
}
