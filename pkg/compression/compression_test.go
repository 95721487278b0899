package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("finding: http://example.com at offset 4096\n"), 200)

	for _, typ := range []Type{TypeGzip, TypeZstd, TypeNone} {
		c, err := New(typ)
		require.NoError(t, err)

		packed, err := c.Compress(payload)
		require.NoError(t, err)
		out, err := c.Decompress(packed)
		require.NoError(t, err)
		assert.Equal(t, payload, out, c.Name())
	}
}

func TestZstdShrinksRepetitiveData(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("abcdefgh"), 10000)
	packed, err := c.Compress(payload)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(payload)/10)
}

func TestZstdRejectsGarbage(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)

	_, err = c.Decompress([]byte("definitely not zstd"))
	assert.Error(t, err)
}

func TestNewUnsupportedType(t *testing.T) {
	_, err := New(Type(42))
	assert.Error(t, err)
}
