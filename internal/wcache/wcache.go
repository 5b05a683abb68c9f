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

// Package wcache implements a fixed-capacity recency cache of decoded
// compression windows.
//
// Entries are keyed by archive, section and window index. Eviction is purely
// by recency: when the cache is full the least recently used window is
// dropped. Concurrent misses for the same key share a single load so a window
// is never decoded twice at the same time and the cache never holds a
// partially decoded window.
package wcache

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is the number of windows held by a cache created with a
// non-positive capacity.
const DefaultCapacity = 16

// Key identifies a decoded window.
type Key struct {
	// Archive is the fingerprint of the archive.
	Archive string

	// Section is the content section number.
	Section int

	// Window is the index of the reset interval within the section.
	Window int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d", k.Archive, k.Section, k.Window)
}

type item struct {
	key  Key
	data []byte
}

// Stats are cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Len       int
}

// Cache is a fixed-capacity recency cache. It is safe for concurrent use.
type Cache struct {
	capacity int

	mu    sync.Mutex
	items map[Key]*list.Element
	// order holds the most recently used window at the front.
	order *list.List

	group singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New returns a cache holding at most capacity windows.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[Key]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the window for key, calling load to decode it on a miss. The
// returned slice must not be modified.
func (c *Cache) Get(key Key, load func() ([]byte, error)) ([]byte, error) {
	if data, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return data, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// Another caller may have finished loading the window while this
		// one waited to enter the group.
		if data, ok := c.lookup(key); ok {
			c.hits.Add(1)
			return data, nil
		}
		c.misses.Add(1)
		data, err := load()
		if err != nil {
			return nil, err
		}
		c.add(key, data)
		return data, nil
	})
	if err != nil {
		//nolint:wrapcheck // errors from load are returned as is.
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) lookup(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(e)
	return e.Value.(*item).data, true
}

func (c *Cache) add(key Key, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.order.MoveToFront(e)
		e.Value.(*item).data = data
		return
	}
	c.items[key] = c.order.PushFront(&item{key: key, data: data})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*item).key)
		c.evictions.Add(1)
	}
}

// Contains reports whether key is cached without updating its recency.
func (c *Cache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := c.order.Len()
	c.mu.Unlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Len:       n,
	}
}
