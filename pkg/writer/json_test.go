package writer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumpsleuth/pkg/compression"
)

type report struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter[report]()
	require.NoError(t, w.Write(report{Name: "strings", Count: 7}, &buf))

	var got report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, report{Name: "strings", Count: 7}, got)
}

func TestWriteToFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	w := NewPrettyJSONWriter[report]()
	require.NoError(t, w.WriteToFile(report{Name: "network", Count: 3}, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got report
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 3, got.Count)
}

func TestWriteToFileCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json.zst")
	w := NewJSONWriter[report]()
	require.NoError(t, w.WriteToFile(report{Name: "patterns", Count: 12}, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	codec, err := compression.New(compression.TypeZstd)
	require.NoError(t, err)
	plain, err := codec.Decompress(raw)
	require.NoError(t, err)

	var got report
	require.NoError(t, json.Unmarshal(plain, &got))
	assert.Equal(t, "patterns", got.Name)
}
