package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlicePoolReuse(t *testing.T) {
	pool := NewSlicePool[int](8)

	s := pool.Get()
	*s = append(*s, 1, 2, 3)
	pool.Put(s)

	s2 := pool.Get()
	assert.Empty(t, *s2)
	assert.GreaterOrEqual(t, cap(*s2), 3)
}

func TestBytePoolSizing(t *testing.T) {
	pool := NewBytePool(16)

	buf, release := pool.Get(1024)
	assert.Len(t, buf, 1024)
	release()

	small, release2 := pool.Get(8)
	assert.Len(t, small, 8)
	release2()
}
