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

package chmdict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ianlewis/go-chmdict/internal/builder"
	"github.com/ianlewis/go-chmdict/internal/wcache"
	"github.com/ianlewis/go-chmdict/source"
)

var (
	// ErrNoDictionary is returned by queries before a build has succeeded.
	ErrNoDictionary = errors.New("no dictionary loaded")

	// ErrStaleRevision indicates a build that was superseded by a newer one.
	// Its result is discarded.
	ErrStaleRevision = errors.New("stale revision")

	// ErrUnknownBuild indicates a revision that no build was started for.
	ErrUnknownBuild = errors.New("unknown build")

	// ErrNotFound indicates a missing entry or page.
	ErrNotFound = errors.New("not found")
)

// Options are options for a Service.
type Options struct {
	// WorkDir is the directory sources are extracted to. If empty, each
	// extraction uses a new temporary directory.
	WorkDir string

	// Workers is the number of volumes parsed concurrently. If zero, one per
	// CPU is used.
	Workers int

	// CacheCapacity is the number of decoded windows cached across all
	// volumes. If zero, wcache.DefaultCapacity is used.
	CacheCapacity int

	// Logger receives service and build events. If nil, nothing is logged.
	Logger *slog.Logger
}

// DefaultOptions are the default service options.
var DefaultOptions = &Options{}

// keptBuilds is the number of most recent builds whose status is kept.
const keptBuilds = 16

// Service builds dictionaries and answers queries against the latest
// successful build. Its methods are safe for concurrent use.
type Service struct {
	workDir string
	workers int
	cache   *wcache.Cache
	logger  *slog.Logger

	// current is replaced wholesale when a build succeeds.
	current atomic.Pointer[snapshot]

	mu       sync.Mutex
	revision uint64
	builds   map[uint64]*Build
	cancel   context.CancelFunc
}

// New returns a new Service.
func New(options *Options) *Service {
	if options == nil {
		options = DefaultOptions
	}
	s := &Service{
		workDir: options.WorkDir,
		workers: options.Workers,
		cache:   wcache.New(options.CacheCapacity),
		logger:  options.Logger,
		builds:  make(map[uint64]*Build),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// PrepareSource normalizes a dictionary source: a directory of volumes, a
// single volume or a container of volumes, which is extracted. The returned
// path is passed to StartBuild.
func (s *Service) PrepareSource(path string) (string, error) {
	//nolint:wrapcheck // errors from source are descriptive.
	return source.Prepare(path, &source.Options{
		WorkDir: s.workDir,
		Logger:  s.logger,
	})
}

// Revision returns the revision of the loaded dictionary, or zero if none is
// loaded.
func (s *Service) Revision() uint64 {
	if snap := s.current.Load(); snap != nil {
		return snap.revision
	}
	return 0
}

// BuildStatus is the state of a build.
type BuildStatus struct {
	Revision uint64
	Phase    string
	Current  int
	Total    int
	Message  string

	Done    bool
	Success bool
	Error   string

	// Warnings are the problems found in individual volumes and pages.
	Warnings []string
}

// Build is a running or finished build.
type Build struct {
	revision uint64
	done     chan struct{}

	mu     sync.Mutex
	status BuildStatus
}

// Revision returns the revision the build was started with.
func (b *Build) Revision() uint64 {
	return b.revision
}

// Status returns the current status of the build.
func (b *Build) Status() BuildStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.status
	st.Warnings = append([]string(nil), b.status.Warnings...)
	return st
}

// Wait waits for the build to finish and returns its final status.
func (b *Build) Wait() BuildStatus {
	<-b.done
	return b.Status()
}

func (b *Build) update(fn func(*BuildStatus)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.status)
}

// StartBuild starts building the dictionary at path, as returned by
// PrepareSource. A build in flight is canceled and its result discarded.
func (s *Service) StartBuild(path string) *Build {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.revision++
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	b := &Build{
		revision: s.revision,
		done:     make(chan struct{}),
		status: BuildStatus{
			Revision: s.revision,
			Phase:    builder.PhaseScan.String(),
		},
	}
	s.builds[b.revision] = b
	delete(s.builds, b.revision-keptBuilds)
	s.mu.Unlock()

	logger := s.logger.With("revision", b.revision)
	logger.Info("build started", "path", path)

	go func() {
		defer close(b.done)
		defer cancel()

		snap, err := builder.Build(ctx, path, &builder.Options{
			Workers: s.workers,
			Cache:   s.cache,
			Logger:  logger,
			Progress: func(p builder.Progress) {
				b.update(func(st *BuildStatus) {
					st.Phase = p.Phase.String()
					st.Current, st.Total, st.Message = p.Current, p.Total, p.Message
				})
			},
		})
		if err == nil {
			err = s.install(b.revision, snap)
		}
		b.update(func(st *BuildStatus) {
			st.Done = true
			if err != nil {
				st.Phase = builder.PhaseError.String()
				st.Error = err.Error()
				return
			}
			st.Success = true
			for _, w := range snap.Warnings {
				st.Warnings = append(st.Warnings, w.Error())
			}
		})
		if err != nil {
			logger.Warn("build failed", "error", err)
		}
	}()
	return b
}

// BuildStatus returns the status of the build started with revision.
func (s *Service) BuildStatus(revision uint64) (BuildStatus, error) {
	s.mu.Lock()
	b, ok := s.builds[revision]
	s.mu.Unlock()
	if !ok {
		return BuildStatus{}, fmt.Errorf("%w: %d", ErrUnknownBuild, revision)
	}
	return b.Status(), nil
}

// install makes snap the current dictionary unless a newer build was
// started.
func (s *Service) install(revision uint64, snap *builder.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision != s.revision {
		return fmt.Errorf("%w: %d superseded by %d", ErrStaleRevision, revision, s.revision)
	}
	s.current.Store(newSnapshot(revision, snap))
	s.logger.Info("dictionary loaded", "revision", revision, "records", len(snap.Records))
	return nil
}

func (s *Service) snapshot() (*snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoDictionary
	}
	return snap, nil
}

// snapshot is an installed build.
type snapshot struct {
	revision uint64
	*builder.Snapshot

	contents []*ContentNode

	// pages maps the first source of each record to its id.
	pages map[string]int
}

func newSnapshot(revision uint64, b *builder.Snapshot) *snapshot {
	snap := &snapshot{
		revision: revision,
		Snapshot: b,
		contents: contentNodes(b.Contents),
		pages:    make(map[string]int, len(b.Records)),
	}
	for _, r := range b.Records {
		key := pageKey(r.Sources[0].Volume, r.Sources[0].Path)
		if _, ok := snap.pages[key]; !ok {
			snap.pages[key] = r.ID
		}
	}
	return snap
}

// pageKey identifies a page ignoring case, as archive lookups do.
func pageKey(volume, path string) string {
	return strings.ToLower(volume) + "::" + strings.ToLower(path)
}
