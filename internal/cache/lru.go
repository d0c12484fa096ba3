// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

// Package cache provides the in-process query result cache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type lruEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	prev      *lruEntry[V]
	next      *lruEntry[V]
}

// LRU is a thread-safe least-recently-used cache with per-entry TTL.
// Get, Add and eviction are O(1): a map indexes a doubly linked list whose
// front is the most recently used entry.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruEntry[V]
	head     *lruEntry[V] // sentinel; head.next is most recent
	tail     *lruEntry[V] // sentinel; tail.prev is least recent
	now      func() time.Time

	hits   int64
	misses int64
}

// NewLRU returns a cache holding at most capacity entries. ttl <= 0 disables expiry.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 1
	}
	head, tail := &lruEntry[V]{}, &lruEntry[V]{}
	head.next, tail.prev = tail, head
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry[V], capacity),
		head:     head,
		tail:     tail,
		now:      time.Now,
	}
}

// Get returns the value for key if present and unexpired.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if c.ttl > 0 && c.now().After(entry.expiresAt) {
		c.remove(entry)
		c.misses++
		var zero V
		return zero, false
	}
	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Add stores value under key, evicting the least recently used entry when full.
func (c *LRU[V]) Add(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &lruEntry[V]{key: key, value: value, expiresAt: expiresAt}
	c.pushFront(entry)
	c.items[key] = entry
	for len(c.items) > c.capacity {
		c.remove(c.tail.prev)
	}
}

// Purge drops every entry. Hit and miss counters are kept.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
	c.head.next, c.tail.prev = c.tail, c.head
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit and miss counts.
func (c *LRU[V]) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRU[V]) pushFront(e *lruEntry[V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU[V]) unlink(e *lruEntry[V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *LRU[V]) moveToFront(e *lruEntry[V]) {
	c.unlink(e)
	c.pushFront(e)
}

func (c *LRU[V]) remove(e *lruEntry[V]) {
	c.unlink(e)
	delete(c.items, e.key)
}

// GenerateKey derives a stable cache key from an operation name and its parameters.
func GenerateKey(operation string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", operation, params)
	}
	sum := sha256.Sum256(data)
	return operation + ":" + hex.EncodeToString(sum[:16])
}
