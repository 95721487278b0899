package extractor

import (
	"context"
	"strings"

	"github.com/dumpsleuth/internal/dump"
	"github.com/dumpsleuth/pkg/model"
)

// RegistryKeysExtractor finds Windows registry key paths. Keys under known
// autostart locations are tagged so persistence review can surface them
// first.
type RegistryKeysExtractor struct{}

// NewRegistryKeysExtractor creates the registry extractor.
func NewRegistryKeysExtractor() *RegistryKeysExtractor {
	return &RegistryKeysExtractor{}
}

func (e *RegistryKeysExtractor) Descriptor() Descriptor {
	return Descriptor{
		Name:       "registry",
		Categories: []model.Category{model.CategoryRegistryKey},
		Priority:   80,
	}
}

// persistencePaths are registry subpaths commonly used for autostart
// persistence, compared case-insensitively.
var persistencePaths = []string{
	`\currentversion\run`,
	`\currentversion\runonce`,
	`\currentversion\policies\explorer\run`,
	`\winlogon\shell`,
	`\winlogon\userinit`,
	`\services\`,
	`\image file execution options\`,
}

func (e *RegistryKeysExtractor) Extract(ctx context.Context, chunk dump.Chunk, env *Env) ([]model.Finding, error) {
	p, ok := env.Patterns.Get("registry-key")
	if !ok {
		return nil, nil
	}
	matches := p.FindAll(chunk.Data, chunk.Offset, "registry")
	findings := make([]model.Finding, 0, len(matches))
	for _, f := range matches {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if tag, ok := persistenceTag(f.Value); ok {
			f = f.WithAttr("persistence", tag)
		}
		findings = append(findings, f)
	}
	return findings, nil
}

func persistenceTag(key string) (string, bool) {
	lower := strings.ToLower(key)
	for _, p := range persistencePaths {
		if strings.Contains(lower, p) {
			return strings.Trim(p, `\`), true
		}
	}
	return "", false
}
