package scan

import (
	"fmt"
	"math"

	"github.com/dumpsleuth/pkg/model"
)

const (
	// BlobBlockSize is the window over which span entropy is computed.
	BlobBlockSize = 4096
	// MinBlobLength is the smallest span considered for blob flagging.
	MinBlobLength = 64
	// blobPrintableCutoff separates text-dominated blocks from blob-like
	// ones. Plain text is nearly all printable; compressed or encrypted
	// data hovers around the random fraction (~63%).
	blobPrintableCutoff = 0.95
	// maxEntropy is the upper bound for byte entropy, used for linear
	// confidence scaling.
	maxEntropy = 8.0
)

// Entropy computes the Shannon entropy of the span in bits per byte.
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	total := float64(len(data))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// EntropyScanner flags blob-like spans (candidate encrypted, compressed,
// or packed data) whose entropy exceeds the configured threshold.
type EntropyScanner struct {
	threshold float64
}

// NewEntropyScanner creates a scanner with the given cutoff in bits/byte.
func NewEntropyScanner(threshold float64) *EntropyScanner {
	if threshold <= 0 || threshold > maxEntropy {
		threshold = 7.0
	}
	return &EntropyScanner{threshold: threshold}
}

// Scan walks data in fixed blocks, skips text-dominated blocks, and emits
// a high-entropy-blob finding per block exceeding the threshold.
// Confidence scales linearly between the threshold and 8.0 bits/byte.
func (s *EntropyScanner) Scan(data []byte, base int64, extractor string) []model.Finding {
	var findings []model.Finding
	for start := 0; start < len(data); start += BlobBlockSize {
		end := start + BlobBlockSize
		if end > len(data) {
			end = len(data)
		}
		block := data[start:end]
		if len(block) < MinBlobLength {
			break
		}
		if printableFraction(block) >= blobPrintableCutoff {
			continue
		}
		entropy := Entropy(block)
		if entropy < s.threshold {
			continue
		}

		f := model.NewFinding(
			model.CategoryHighEntropyBlob,
			fmt.Sprintf("%d bytes, %.2f bits/byte", len(block), entropy),
			base+int64(start),
			extractor,
		)
		f.Confidence = s.confidence(entropy)
		findings = append(findings, f)
	}
	return findings
}

func (s *EntropyScanner) confidence(entropy float64) float64 {
	if entropy >= maxEntropy {
		return 1.0
	}
	span := maxEntropy - s.threshold
	if span <= 0 {
		return 1.0
	}
	return (entropy - s.threshold) / span
}

func printableFraction(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	count := 0
	for _, b := range data {
		if printable(b) || b == '\n' || b == '\r' || b == '\t' {
			count++
		}
	}
	return float64(count) / float64(len(data))
}
