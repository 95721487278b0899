// Package cache stores analysis results keyed by dump content hash and
// configuration fingerprint, so re-analyzing unchanged input under an
// unchanged configuration is a lookup instead of a scan.
package cache

import (
	"context"

	"github.com/dumpsleuth/pkg/model"
)

// Key identifies one cached result. Identity is content based: the same
// bytes under a different path still hit, a changed file under the same
// path misses. The fingerprint covers every option that changes findings,
// so stale results cannot leak across configuration changes.
type Key struct {
	ContentHash string
	Fingerprint string
}

// Cache is the result cache contract. A corrupt or unreadable entry is a
// miss, never an error: the caller re-analyzes and overwrites it.
type Cache interface {
	Get(ctx context.Context, key Key) (*model.AnalysisResult, bool)
	Put(ctx context.Context, key Key, result *model.AnalysisResult)
}

// Layered reads through an in-memory cache into an optional persistent
// store. Writes go to both. A nil store degrades to memory-only.
type Layered struct {
	memory *Memory
	store  *Store
}

// NewLayered combines the in-memory cache with an optional store.
func NewLayered(memory *Memory, store *Store) *Layered {
	return &Layered{memory: memory, store: store}
}

func (l *Layered) Get(ctx context.Context, key Key) (*model.AnalysisResult, bool) {
	if result, ok := l.memory.Get(ctx, key); ok {
		return result, true
	}
	if l.store == nil {
		return nil, false
	}
	result, ok := l.store.Get(ctx, key)
	if !ok {
		return nil, false
	}
	l.memory.Put(ctx, key, result)
	return result, true
}

func (l *Layered) Put(ctx context.Context, key Key, result *model.AnalysisResult) {
	l.memory.Put(ctx, key, result)
	if l.store != nil {
		l.store.Put(ctx, key, result)
	}
}
