// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package trace provides a bounded in-memory store for identification traces.
//
// Every identify attempt, successful or not, records exactly one entry so raw
// model responses can be inspected when debugging misclassifications. The
// store evicts least-recently-used entries once capacity is reached; both
// Record and Get refresh recency.
package trace

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the store when no capacity is configured.
const DefaultCapacity = 100

// Entry captures the full lifecycle of one identification attempt.
type Entry struct {
	TraceID       string
	Machine       string
	Confidence    float64
	Mocked        bool
	RawText       string
	RawMachine    string
	MatchScore    float64
	MatchScoreSet bool
	Unmapped      bool
	Model         string
	Prompt        string
	PromptVariant string
	Error         string
	CreatedAt     time.Time
}

// node is a doubly-linked list node wrapping one entry.
type node struct {
	entry Entry
	prev  *node
	next  *node
}

// Store is a thread-safe LRU store of trace entries.
//
// It uses a doubly-linked list for ordering and a hashmap for lookups,
// giving O(1) Record, Get, and eviction. head.next is the most recently
// used, tail.prev the least recently used.
type Store struct {
	mu sync.Mutex

	capacity int
	items    map[string]*node

	// head and tail are sentinel nodes for the doubly-linked list
	head *node
	tail *node
}

// NewStore creates a trace store bounded to capacity entries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s := &Store{
		capacity: capacity,
		items:    make(map[string]*node, capacity),
		head:     &node{},
		tail:     &node{},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// Record inserts or replaces the entry for its trace ID and marks it most
// recently used. When the store is full the least recently used entry is
// evicted. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(entry Entry) {
	if entry.TraceID == "" {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[entry.TraceID]; ok {
		existing.entry = entry
		s.moveToFront(existing)
		return
	}

	n := &node{entry: entry}
	s.items[entry.TraceID] = n
	s.pushFront(n)

	for len(s.items) > s.capacity {
		s.removeNode(s.tail.prev)
	}
}

// Get returns the entry for a trace ID. A hit refreshes recency so traces
// under active inspection survive eviction longest.
func (s *Store) Get(traceID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[traceID]
	if !ok {
		return Entry{}, false
	}
	s.moveToFront(n)
	return n.entry, true
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*node, s.capacity)
	s.head.next = s.tail
	s.tail.prev = s.head
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Capacity returns the configured maximum number of entries.
func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) pushFront(n *node) {
	n.prev = s.head
	n.next = s.head.next
	s.head.next.prev = n
	s.head.next = n
}

func (s *Store) moveToFront(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	s.pushFront(n)
}

func (s *Store) removeNode(n *node) {
	if n == s.head || n == s.tail {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	delete(s.items, n.entry.TraceID)
}
