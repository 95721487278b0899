// Package collections provides generic pooling helpers for hot paths.
package collections

import (
	"sync"
)

// SlicePool is a generic pool for slices of any type. Pooled slices keep
// their capacity across uses, which matters on the streamed hashing path
// where every dump would otherwise allocate a fresh megabyte buffer.
type SlicePool[T any] struct {
	pool       sync.Pool
	initialCap int
}

// NewSlicePool creates a new slice pool with the given initial capacity.
func NewSlicePool[T any](initialCap int) *SlicePool[T] {
	if initialCap <= 0 {
		initialCap = 256
	}
	return &SlicePool[T]{
		initialCap: initialCap,
		pool: sync.Pool{
			New: func() interface{} {
				s := make([]T, 0, initialCap)
				return &s
			},
		},
	}
}

// Get gets a slice from the pool.
func (p *SlicePool[T]) Get() *[]T {
	return p.pool.Get().(*[]T)
}

// Put returns a slice to the pool after clearing it.
func (p *SlicePool[T]) Put(s *[]T) {
	*s = (*s)[:0]
	p.pool.Put(s)
}

// BytePool pools read buffers of a caller-chosen size.
type BytePool struct {
	inner *SlicePool[byte]
}

// NewBytePool creates a byte pool. initialCap sizes buffers created when
// the pool is empty.
func NewBytePool(initialCap int) *BytePool {
	return &BytePool{inner: NewSlicePool[byte](initialCap)}
}

// Get returns a buffer of exactly size bytes and a release function
// returning it to the pool. The buffer contents are unspecified.
func (p *BytePool) Get(size int) ([]byte, func()) {
	s := p.inner.Get()
	if cap(*s) < size {
		*s = make([]byte, size)
	}
	buf := (*s)[:size]
	return buf, func() { p.inner.Put(s) }
}
