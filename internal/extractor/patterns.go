package extractor

import (
	"context"

	"github.com/dumpsleuth/internal/dump"
	"github.com/dumpsleuth/pkg/model"
)

// PatternsExtractor runs the remainder of the configured pattern table:
// file paths, credentials, hex keys, and every user-supplied custom
// pattern. It also performs entropy scanning, flagging blob-like spans.
type PatternsExtractor struct{}

// NewPatternsExtractor creates the patterns extractor.
func NewPatternsExtractor() *PatternsExtractor {
	return &PatternsExtractor{}
}

func (e *PatternsExtractor) Descriptor() Descriptor {
	return Descriptor{
		Name: "patterns",
		Categories: []model.Category{
			model.CategoryFilePath,
			model.CategoryCredential,
			model.CategoryHexKey,
			model.CategoryHighEntropyBlob,
		},
		Priority: 60,
	}
}

// claimedPatterns are evaluated by the network, registry, and processes
// extractors; running them again here would only produce duplicates for
// the aggregator to collapse.
var claimedPatterns = map[string]bool{
	"url":          true,
	"ip":           true,
	"email":        true,
	"domain":       true,
	"registry-key": true,
	"module-name":  true,
	"command":      true,
}

func (e *PatternsExtractor) Extract(ctx context.Context, chunk dump.Chunk, env *Env) ([]model.Finding, error) {
	var findings []model.Finding
	for _, p := range env.Patterns.Patterns() {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if claimedPatterns[p.Name] {
			continue
		}
		findings = append(findings, p.FindAll(chunk.Data, chunk.Offset, "patterns")...)
	}

	if env.Entropy != nil {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		findings = append(findings, env.Entropy.Scan(chunk.Data, chunk.Offset, "patterns")...)
	}
	return findings, nil
}
