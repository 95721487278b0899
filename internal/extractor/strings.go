package extractor

import (
	"context"

	"github.com/dumpsleuth/internal/dump"
	"github.com/dumpsleuth/pkg/model"
)

// StringsExtractor emits every accepted printable run as a plain string
// finding. It performs no classification; pattern-oriented extractors own
// the stronger categories.
type StringsExtractor struct{}

// NewStringsExtractor creates the strings extractor.
func NewStringsExtractor() *StringsExtractor {
	return &StringsExtractor{}
}

func (e *StringsExtractor) Descriptor() Descriptor {
	return Descriptor{
		Name:       "strings",
		Categories: []model.Category{model.CategoryString},
		Priority:   100,
	}
}

func (e *StringsExtractor) Extract(ctx context.Context, chunk dump.Chunk, env *Env) ([]model.Finding, error) {
	hits := env.Strings.Scan(chunk.Data, chunk.Offset)
	if len(hits) == 0 {
		return nil, nil
	}
	findings := make([]model.Finding, 0, len(hits))
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		f := model.NewFinding(model.CategoryString, hit.Value, hit.Offset, "strings")
		if hit.Wide {
			f = f.WithAttr("encoding", "utf-16le")
		}
		findings = append(findings, f)
	}
	return findings, nil
}
