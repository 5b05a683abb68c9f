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

package wcache_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ianlewis/go-chmdict/internal/wcache"
)

func key(w int) wcache.Key {
	return wcache.Key{Archive: "a", Section: 1, Window: w}
}

func loader(b byte) func() ([]byte, error) {
	return func() ([]byte, error) {
		return []byte{b}, nil
	}
}

// TestCache_eviction tests that the least recently used window is evicted.
func TestCache_eviction(t *testing.T) {
	t.Parallel()

	c := wcache.New(2)
	for i := range 2 {
		if _, err := c.Get(key(i), loader(byte(i))); err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
	}

	// Touch window 0 so that window 1 is the oldest.
	if _, err := c.Get(key(0), loader(0xFF)); err != nil {
		t.Fatalf("Get(0): %v", err)
	}
	if _, err := c.Get(key(2), loader(2)); err != nil {
		t.Fatalf("Get(2): %v", err)
	}

	got := []bool{c.Contains(key(0)), c.Contains(key(1)), c.Contains(key(2))}
	if diff := cmp.Diff([]bool{true, false, true}, got); diff != "" {
		t.Errorf("Contains (-want, +got):\n%s", diff)
	}

	want := wcache.Stats{Hits: 1, Misses: 3, Evictions: 1, Len: 2}
	if diff := cmp.Diff(want, c.Stats()); diff != "" {
		t.Errorf("Stats (-want, +got):\n%s", diff)
	}
}

// TestCache_hit tests that cached data is returned without loading.
func TestCache_hit(t *testing.T) {
	t.Parallel()

	c := wcache.New(0)
	if _, err := c.Get(key(0), loader('x')); err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, err := c.Get(key(0), func() ([]byte, error) {
		t.Error("load called for cached window")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff([]byte("x"), got); diff != "" {
		t.Errorf("Get (-want, +got):\n%s", diff)
	}
}

// TestCache_error tests that failed loads are not cached.
func TestCache_error(t *testing.T) {
	t.Parallel()

	errLoad := errors.New("load failed")
	c := wcache.New(4)
	_, err := c.Get(key(0), func() ([]byte, error) {
		return nil, errLoad
	})
	if !errors.Is(err, errLoad) {
		t.Fatalf("Get: got error %v, want %v", err, errLoad)
	}
	if c.Contains(key(0)) {
		t.Errorf("Contains: failed window cached")
	}

	// Other windows are unaffected and the key can be loaded again.
	got, err := c.Get(key(0), loader('y'))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff([]byte("y"), got); diff != "" {
		t.Errorf("Get (-want, +got):\n%s", diff)
	}
}

// TestCache_concurrent tests that concurrent misses for one window load it
// once.
func TestCache_concurrent(t *testing.T) {
	t.Parallel()

	c := wcache.New(4)
	var loads atomic.Int32
	release := make(chan struct{})
	load := func() ([]byte, error) {
		loads.Add(1)
		<-release
		return []byte("window"), nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([][]byte, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Get(key(7), load)
		}()
	}
	close(release)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("loads: got %d, want 1", got)
	}
	for i := range n {
		if errs[i] != nil {
			t.Errorf("Get %d: %v", i, errs[i])
		}
		if string(results[i]) != "window" {
			t.Errorf("Get %d: got %q", i, results[i])
		}
	}
}
