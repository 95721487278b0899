package extractor

import (
	"context"
	"regexp"

	"github.com/dumpsleuth/internal/dump"
	"github.com/dumpsleuth/pkg/model"
)

// ProcessExtractor finds process artifacts: loaded module names, command
// lines, and process attribute strings such as PID markers.
type ProcessExtractor struct{}

// NewProcessExtractor creates the processes extractor.
func NewProcessExtractor() *ProcessExtractor {
	return &ProcessExtractor{}
}

func (e *ProcessExtractor) Descriptor() Descriptor {
	return Descriptor{
		Name: "processes",
		Categories: []model.Category{
			model.CategoryModuleName,
			model.CategoryCommand,
			model.CategoryProcessAttr,
		},
		Priority: 70,
	}
}

// processAttrRe matches process bookkeeping strings left by task managers
// and debuggers.
var processAttrRe = regexp.MustCompile(`(?i)\b(?:pid|ppid|tid|processid|threadid)[:=\s]+\d{1,7}\b`)

func (e *ProcessExtractor) Extract(ctx context.Context, chunk dump.Chunk, env *Env) ([]model.Finding, error) {
	var findings []model.Finding
	for _, name := range []string{"module-name", "command"} {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if p, ok := env.Patterns.Get(name); ok {
			findings = append(findings, p.FindAll(chunk.Data, chunk.Offset, "processes")...)
		}
	}

	for _, loc := range processAttrRe.FindAllIndex(chunk.Data, -1) {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		findings = append(findings, model.NewFinding(
			model.CategoryProcessAttr,
			string(chunk.Data[loc[0]:loc[1]]),
			chunk.Offset+int64(loc[0]),
			"processes",
		))
	}
	return findings, nil
}
