// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package cache

import (
	"container/list"
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/mattermost/omnisearch/providers"
)

const shardCount = 32

// MemoryStore is the in-process Store: a sharded map with per-shard locking
// so readers of one key never contend with writers of another, lazy TTL
// eviction on read, and oldest-insertion-first eviction once a shard is
// full.
type MemoryStore struct {
	shards      [shardCount]*memoryShard
	maxPerShard int
	now         func() time.Time
}

type memoryShard struct {
	mu      sync.RWMutex
	entries map[string]*list.Element
	order   *list.List // front = oldest insertion
}

type memoryEntry struct {
	key       string
	result    *providers.NormalizedResult
	expiresAt time.Time
}

// NewMemoryStore creates a store bounded to roughly maxEntries across all
// shards.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	perShard := maxEntries / shardCount
	if perShard < 1 {
		perShard = 1
	}
	s := &MemoryStore{maxPerShard: perShard, now: time.Now}
	for i := range s.shards {
		s.shards[i] = &memoryShard{
			entries: make(map[string]*list.Element),
			order:   list.New(),
		}
	}
	return s
}

func (s *MemoryStore) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

func (s *MemoryStore) Get(_ context.Context, key string) (*providers.NormalizedResult, bool) {
	shard := s.shard(key)

	shard.mu.RLock()
	elem, ok := shard.entries[key]
	if !ok {
		shard.mu.RUnlock()
		return nil, false
	}
	entry := elem.Value.(*memoryEntry)
	if s.now().Before(entry.expiresAt) {
		result := entry.result
		shard.mu.RUnlock()
		return result, true
	}
	shard.mu.RUnlock()

	// Expired entries are treated as misses and removed.
	shard.mu.Lock()
	if elem, ok := shard.entries[key]; ok && !s.now().Before(elem.Value.(*memoryEntry).expiresAt) {
		shard.order.Remove(elem)
		delete(shard.entries, key)
	}
	shard.mu.Unlock()
	return nil, false
}

func (s *MemoryStore) Put(_ context.Context, key string, result *providers.NormalizedResult, ttl time.Duration) {
	if result == nil || ttl <= 0 {
		return
	}
	entry := &memoryEntry{key: key, result: result, expiresAt: s.now().Add(ttl)}
	shard := s.shard(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if elem, ok := shard.entries[key]; ok {
		shard.order.Remove(elem)
		delete(shard.entries, key)
	}
	for shard.order.Len() >= s.maxPerShard {
		oldest := shard.order.Front()
		shard.order.Remove(oldest)
		delete(shard.entries, oldest.Value.(*memoryEntry).key)
	}
	shard.entries[key] = shard.order.PushBack(entry)
}

func (s *MemoryStore) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		total += len(shard.entries)
		shard.mu.RUnlock()
	}
	return total
}
