// Package testutil builds synthetic dump files for tests.
package testutil

import (
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// WriteDump writes data to a file under the test's temp directory and
// returns its path.
func WriteDump(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write dump fixture: %v", err)
	}
	return path
}

// MinidumpHeader builds a 32-byte MINIDUMP_HEADER. streamCount and
// streamRVA control the declared stream directory, which tests use to
// fabricate truncated dumps whose directory lies past EOF.
func MinidumpHeader(streamCount, streamRVA uint32) []byte {
	h := make([]byte, 32)
	copy(h, "MDMP")
	binary.LittleEndian.PutUint32(h[4:8], 0xa0baa793) // version word used by real dumps
	binary.LittleEndian.PutUint32(h[8:12], streamCount)
	binary.LittleEndian.PutUint32(h[12:16], streamRVA)
	binary.LittleEndian.PutUint32(h[20:24], 1700000000) // timestamp
	binary.LittleEndian.PutUint32(h[24:28], 0x2)        // flags
	return h
}

// Minidump builds a plausible minidump: header plus a body large enough to
// contain the declared stream directory.
func Minidump(body []byte) []byte {
	streamRVA := uint32(32)
	streamCount := uint32(3)
	dirSize := int(streamCount) * 12

	out := MinidumpHeader(streamCount, streamRVA)
	out = append(out, make([]byte, dirSize)...)
	return append(out, body...)
}

// RandomBytes returns n pseudo-random bytes from a fixed seed, so tests
// relying on high-entropy content are reproducible.
func RandomBytes(t *testing.T, n int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, n)
	if _, err := rng.Read(data); err != nil {
		t.Fatalf("failed to generate random bytes: %v", err)
	}
	return data
}

// RepeatingBytes returns n copies of the pattern, low-entropy filler for
// negative entropy tests.
func RepeatingBytes(pattern byte, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = pattern
	}
	return data
}

// EmbedStrings scatters the given strings into a zero-filled buffer of
// size n at evenly spaced offsets.
func EmbedStrings(n int, values ...string) []byte {
	data := make([]byte, n)
	if len(values) == 0 {
		return data
	}
	step := n / (len(values) + 1)
	for i, v := range values {
		off := (i + 1) * step
		if off+len(v) < n {
			copy(data[off:], v)
		}
	}
	return data
}

// WideString encodes s as UTF-16LE bytes.
func WideString(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}
