package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a process-local Cache bounded by size and ttl.
type Memory struct {
	lru *expirable.LRU[string, Entry]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, Entry](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	return e.clone(), true, nil
}

func (m *Memory) Set(_ context.Context, key string, entry Entry) error {
	m.lru.Add(key, entry.clone())
	return nil
}

func (m *Memory) Invalidate(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}

func (m *Memory) Len() int {
	return m.lru.Len()
}
