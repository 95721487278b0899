package scan

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumpsleuth/pkg/model"
)

func TestEntropyBounds(t *testing.T) {
	assert.InDelta(t, 0.0, Entropy(bytes.Repeat([]byte{0xAA}, 4096)), 0.001)

	// Uniform random data sits near the 8 bits/byte ceiling.
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, 64*1024)
	rng.Read(data)
	assert.Greater(t, Entropy(data), 7.9)

	assert.InDelta(t, 0.0, Entropy(nil), 0.001)
}

func TestEntropyScannerFlagsRandomData(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	data := make([]byte, 256*1024)
	rng.Read(data)

	s := NewEntropyScanner(7.5)
	findings := s.Scan(data, 0, "patterns")
	require.NotEmpty(t, findings)

	for _, f := range findings {
		assert.Equal(t, model.CategoryHighEntropyBlob, f.Category)
		assert.Greater(t, f.Confidence, 0.0)
		assert.LessOrEqual(t, f.Confidence, 1.0)
		assert.GreaterOrEqual(t, f.Offset, int64(0))
	}
}

func TestEntropyScannerIgnoresRepeatingData(t *testing.T) {
	data := bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x03}, 16*1024)
	s := NewEntropyScanner(7.0)
	assert.Empty(t, s.Scan(data, 0, "patterns"))
}

func TestEntropyScannerIgnoresText(t *testing.T) {
	// Text compresses poorly entropy-wise but is printable, so it is never
	// a blob candidate.
	data := bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 1000)
	s := NewEntropyScanner(1.0)
	assert.Empty(t, s.Scan(data, 0, "patterns"))
}

func TestEntropyScannerShortInput(t *testing.T) {
	s := NewEntropyScanner(7.0)
	assert.Empty(t, s.Scan(make([]byte, 32), 0, "patterns"))
}
