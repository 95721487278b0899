package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/dumpsleuth/pkg/model"
)

// Memory is a bounded in-memory LRU cache. Safe for concurrent use. When
// the entry count exceeds the capacity the least recently used entry is
// evicted.
type Memory struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[Key]*list.Element
}

type memoryEntry struct {
	key    Key
	result *model.AnalysisResult
}

// NewMemory creates an LRU cache holding at most capacity entries.
func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[Key]*list.Element),
	}
}

func (m *Memory) Get(_ context.Context, key Key) (*model.AnalysisResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	m.order.MoveToFront(elem)
	return elem.Value.(*memoryEntry).result, true
}

func (m *Memory) Put(_ context.Context, key Key, result *model.AnalysisResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		elem.Value.(*memoryEntry).result = result
		m.order.MoveToFront(elem)
		return
	}

	m.entries[key] = m.order.PushFront(&memoryEntry{key: key, result: result})
	for m.order.Len() > m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}
}

// Len returns the current entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
