// Package writer provides JSON report writers, plain and compressed.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dumpsleuth/pkg/compression"
)

// JSONWriter writes a report as JSON.
type JSONWriter[T any] struct {
	// Indent specifies the indentation for pretty printing.
	// Empty string means compact output.
	Indent string
}

// NewJSONWriter creates a new JSON writer with compact output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: ""}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  "}
}

// Write writes the report as JSON to the writer.
func (w *JSONWriter[T]) Write(data T, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	return encoder.Encode(data)
}

// WriteToFile writes the report as JSON to a file. A path ending in .zst
// or .gz is compressed with the matching codec.
func (w *JSONWriter[T]) WriteToFile(data T, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	codec, err := codecForPath(path)
	if err != nil {
		return err
	}
	if codec == nil {
		return w.Write(data, file)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	packed, err := codec.Compress(raw)
	if err != nil {
		return fmt.Errorf("failed to compress report: %w", err)
	}
	if _, err := file.Write(packed); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// codecForPath selects a compressor from the file extension, nil for plain
// output.
func codecForPath(path string) (compression.Compressor, error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		return compression.New(compression.TypeZstd)
	case strings.HasSuffix(path, ".gz"):
		return compression.New(compression.TypeGzip)
	default:
		return nil, nil
	}
}
