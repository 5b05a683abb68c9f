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

// Package builder fuses the volumes of a dictionary into one queryable
// snapshot.
//
// A build runs through the phases Scan, Parse and SearchIndex. Scan lists the
// volumes in natural file name order. Parse opens each volume on a bounded
// pool of workers and extracts its table of contents, keyword index and
// pages. Headword ids are then assigned in first-seen order across the volume
// sequence, so rebuilding the same volumes yields the same ids. SearchIndex
// builds the full text index.
//
// A volume that fails to open is reported as a warning. The build fails only
// if no volume could be parsed.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ianlewis/go-chmdict/internal/wcache"
	"github.com/ianlewis/go-chmdict/source"
)

var (
	// ErrNoVolumes indicates that no volume of a build could be parsed.
	ErrNoVolumes = errors.New("no volume could be parsed")

	// ErrDuplicateVolume indicates a volume with the same content as an
	// earlier volume. Its records are skipped.
	ErrDuplicateVolume = errors.New("duplicate volume")

	// ErrUnresolved indicates a headword or contents entry whose page can't
	// be read.
	ErrUnresolved = errors.New("unresolved page")
)

// Phase is a build phase.
type Phase int

const (
	// PhaseScan lists the volumes.
	PhaseScan Phase = iota

	// PhaseParse reads the volumes.
	PhaseParse

	// PhaseSearchIndex builds the search index.
	PhaseSearchIndex

	// PhaseDone is the terminal phase of a successful build.
	PhaseDone

	// PhaseError is the terminal phase of a failed build.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseScan:
		return "scan"
	case PhaseParse:
		return "parse"
	case PhaseSearchIndex:
		return "search-index"
	case PhaseDone:
		return "done"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Progress reports the state of a build.
type Progress struct {
	Phase   Phase
	Current int
	Total   int
	Message string
}

// VolumeError is a problem with one volume, or with one page of a volume when
// Path is set.
type VolumeError struct {
	Volume string
	Path   string
	Err    error
}

func (e *VolumeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Volume, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Volume, e.Err)
}

func (e *VolumeError) Unwrap() error {
	return e.Err
}

// Options are options for a build.
type Options struct {
	// Workers is the number of volumes parsed concurrently. If zero,
	// runtime.GOMAXPROCS(0) is used.
	Workers int

	// Cache holds decoded windows of all volumes. If nil, a cache with
	// CacheCapacity windows is created.
	Cache *wcache.Cache

	// CacheCapacity is the capacity of the cache created when Cache is nil.
	CacheCapacity int

	// Progress is called as the build advances. Calls are serialized.
	Progress func(Progress)

	// Logger receives build events and warnings. If nil, nothing is logged.
	Logger *slog.Logger
}

// DefaultOptions are the default build options.
var DefaultOptions = &Options{}

type builder struct {
	workers  int
	cache    *wcache.Cache
	logger   *slog.Logger
	mu       sync.Mutex
	progress func(Progress)
}

func (b *builder) report(p Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Debug("build progress", "phase", p.Phase, "current", p.Current, "total", p.Total, "message", p.Message)
	if b.progress != nil {
		b.progress(p)
	}
}

// Build builds a snapshot of the volumes found at path, a directory or a
// single volume as returned by source.Prepare. The context is checked between
// phases; a canceled build returns the context's error.
func Build(ctx context.Context, path string, options *Options) (*Snapshot, error) {
	if options == nil {
		options = DefaultOptions
	}
	b := &builder{
		workers:  options.Workers,
		cache:    options.Cache,
		logger:   options.Logger,
		progress: options.Progress,
	}
	if b.workers <= 0 {
		b.workers = runtime.GOMAXPROCS(0)
	}
	if b.cache == nil {
		b.cache = wcache.New(options.CacheCapacity)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s, err := b.build(ctx, path)
	if err != nil {
		b.report(Progress{Phase: PhaseError, Message: err.Error()})
		return nil, err
	}
	b.report(Progress{Phase: PhaseDone, Current: len(s.Records), Total: len(s.Records), Message: "done"})
	b.logger.Info("build done",
		"volumes", len(s.Volumes),
		"records", len(s.Records),
		"warnings", len(s.Warnings),
	)
	return s, nil
}

func (b *builder) build(ctx context.Context, path string) (*Snapshot, error) {
	// Scan
	b.report(Progress{Phase: PhaseScan, Message: path})
	paths, err := source.Volumes(path)
	if err != nil {
		return nil, fmt.Errorf("scanning volumes: %w", err)
	}
	b.report(Progress{Phase: PhaseScan, Current: len(paths), Total: len(paths), Message: fmt.Sprintf("%d volumes", len(paths))})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build canceled: %w", err)
	}

	// Parse
	parsed := make([]*parsedVolume, len(paths))
	errs := make([]error, len(paths))
	var done int
	var doneMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	names := volumeNames(path, paths)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i], errs[i] = b.parseVolume(p, names[i])

			doneMu.Lock()
			done++
			n := done
			doneMu.Unlock()
			b.report(Progress{Phase: PhaseParse, Current: n, Total: len(paths), Message: filepath.Base(p)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build canceled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build canceled: %w", err)
	}

	s := newSnapshot()
	// pending maps volume keys to the volumes links to them resolve to. A
	// duplicate volume resolves to the first volume with the same content.
	pending := make(map[string]*parsedVolume, len(parsed))
	byFingerprint := make(map[string]*parsedVolume, len(parsed))
	for i, p := range parsed {
		if errs[i] != nil {
			s.Warnings = append(s.Warnings, &VolumeError{Volume: names[i], Err: errs[i]})
			continue
		}
		target := p
		if first, ok := byFingerprint[p.volume.Archive.Fingerprint()]; ok {
			target = first
		} else {
			byFingerprint[p.volume.Archive.Fingerprint()] = p
		}
		if key := volumeKey(p.volume.Name); pending[key] == nil {
			pending[key] = target
		}
	}
	for i, p := range parsed {
		if errs[i] == nil {
			s.add(p, pending)
		}
	}
	for i, p := range parsed {
		if errs[i] == nil {
			for _, w := range p.warnings {
				s.Warnings = append(s.Warnings, w)
			}
		}
	}
	for _, w := range s.Warnings {
		b.logger.Warn("build warning", "error", w)
	}
	if len(s.Volumes) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoVolumes, errors.Join(s.Warnings...))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build canceled: %w", err)
	}

	// SearchIndex
	b.report(Progress{Phase: PhaseSearchIndex, Total: len(s.Records), Message: "indexing"})
	s.index()
	b.report(Progress{Phase: PhaseSearchIndex, Current: len(s.Records), Total: len(s.Records), Message: "indexed"})

	stats := b.cache.Stats()
	b.logger.Debug("window cache", "hits", stats.Hits, "misses", stats.Misses, "evictions", stats.Evictions)
	return s, nil
}

// volumeKey identifies a volume name in links. Case and the volume extension
// are ignored, so "Vol.chm" and "vol.chm.dz" name the same volume.
func volumeKey(name string) string {
	lower := strings.ToLower(filepath.ToSlash(name))
	for _, ext := range []string{".chm.dz", ".chm"} {
		if strings.HasSuffix(lower, ext) {
			return lower[:len(lower)-len(ext)]
		}
	}
	return lower
}

// volumeNames returns the names of the volumes at paths under root. Volumes
// are named by file name. A volume whose file name is taken by an earlier
// volume is named by its path relative to root instead.
func volumeNames(root string, paths []string) []string {
	names := make([]string, len(paths))
	seen := make(map[string]bool, len(paths))
	for i, p := range paths {
		name := filepath.Base(p)
		if seen[volumeKey(name)] {
			if rel, err := filepath.Rel(root, p); err == nil {
				name = filepath.ToSlash(rel)
			} else {
				name = filepath.ToSlash(p)
			}
		}
		seen[volumeKey(name)] = true
		names[i] = name
	}
	return names
}
