package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindingKey(t *testing.T) {
	a := NewFinding(CategoryURL, "http://example.com", 100, "network")
	b := NewFinding(CategoryURL, "http://example.com", 9000, "network")
	c := NewFinding(CategoryString, "http://example.com", 100, "strings")

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.InDelta(t, 1.0, a.Confidence, 0.001)
}

func TestFindingWithAttr(t *testing.T) {
	f := NewFinding(CategoryIP, "10.0.0.1", 0, "network")
	g := f.WithAttr("scope", "private")

	assert.Nil(t, f.Attr)
	assert.Equal(t, "private", g.Attr["scope"])

	h := g.WithAttr("seen", "once")
	assert.Equal(t, "private", h.Attr["scope"])
	assert.Equal(t, "once", h.Attr["seen"])
	assert.NotContains(t, g.Attr, "seen")
}

func TestResultViews(t *testing.T) {
	result := &AnalysisResult{
		Findings: []Finding{
			NewFinding(CategoryURL, "http://a", 0, "network"),
			NewFinding(CategoryURL, "http://b", 10, "network"),
			NewFinding(CategoryIP, "1.2.3.4", 20, "network"),
		},
	}

	byCat := result.FindingsByCategory()
	assert.Len(t, byCat[CategoryURL], 2)
	assert.Len(t, byCat[CategoryIP], 1)

	counts := result.CountByCategory()
	assert.Equal(t, 2, counts[CategoryURL])
	assert.Equal(t, 1, counts[CategoryIP])
}
