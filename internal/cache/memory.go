package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"exchangerates/internal/provider"
)

// entry stores one cached rate map with its expiry.
type entry struct {
	key       string
	expiresAt time.Time // zero means never
	rates     provider.RateMap
	elem      *list.Element
}

// Memory is an in-process cache. A zero TTL never expires entries and a zero
// MaxEntries never evicts; with MaxEntries set the least recently used entry
// goes first.
type Memory struct {
	ttl        time.Duration
	maxEntries int

	mu    sync.Mutex
	items map[string]*entry
	lru   *list.List // front = most recently used
}

func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{
		ttl:        ttl,
		maxEntries: maxEntries,
		items:      make(map[string]*entry),
		lru:        list.New(),
	}
}

func (m *Memory) Get(_ context.Context, key string) (provider.RateMap, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.remove(e)
		return nil, false
	}
	m.lru.MoveToFront(e.elem)
	return e.rates.Clone(), true
}

func (m *Memory) Put(_ context.Context, key string, rates provider.RateMap) {
	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = time.Now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.items[key]; ok {
		e.rates = rates.Clone()
		e.expiresAt = expiresAt
		m.lru.MoveToFront(e.elem)
		return
	}
	e := &entry{key: key, expiresAt: expiresAt, rates: rates.Clone()}
	e.elem = m.lru.PushFront(e)
	m.items[key] = e

	if m.maxEntries > 0 {
		for len(m.items) > m.maxEntries {
			m.remove(m.lru.Back().Value.(*entry))
		}
	}
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) remove(e *entry) {
	m.lru.Remove(e.elem)
	delete(m.items, e.key)
}
