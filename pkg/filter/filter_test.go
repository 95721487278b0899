package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dumpsleuth/pkg/model"
)

func sample() []model.Finding {
	url := model.NewFinding(model.CategoryURL, "http://a", 0, "network")
	ip := model.NewFinding(model.CategoryIP, "1.2.3.4", 10, "network")
	blob := model.NewFinding(model.CategoryHighEntropyBlob, "4096 bytes", 20, "patterns")
	blob.Confidence = 0.3
	return []model.Finding{url, ip, blob}
}

func TestZeroFilterPassesEverything(t *testing.T) {
	out := New().Apply(sample())
	assert.Len(t, out, 3)
}

func TestInclude(t *testing.T) {
	out := New().Include(model.CategoryURL).Apply(sample())
	assert.Len(t, out, 1)
	assert.Equal(t, model.CategoryURL, out[0].Category)
}

func TestExcludeWinsOverInclude(t *testing.T) {
	f := New().Include(model.CategoryURL, model.CategoryIP).Exclude(model.CategoryIP)
	out := f.Apply(sample())
	assert.Len(t, out, 1)
	assert.Equal(t, model.CategoryURL, out[0].Category)
}

func TestMinConfidence(t *testing.T) {
	out := New().MinConfidence(0.5).Apply(sample())
	assert.Len(t, out, 2)
	for _, f := range out {
		assert.GreaterOrEqual(t, f.Confidence, 0.5)
	}
}
