package recovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dumpsleuth/pkg/errors"
	"github.com/dumpsleuth/pkg/model"
)

func TestFatalClassification(t *testing.T) {
	m := NewManager(nil)

	assert.True(t, m.Fatal(apperrors.Wrap(apperrors.CodeIngestionFailed, "cannot open", errors.New("eacces"))))
	assert.False(t, m.Fatal(apperrors.Wrap(apperrors.CodeExtractorFailed, "scan failed", nil)))
	assert.False(t, m.Fatal(apperrors.Wrap(apperrors.CodeTruncated, "short read", nil)))
	assert.False(t, m.Fatal(errors.New("plain error")))
}

func TestFailedResult(t *testing.T) {
	m := NewManager(nil)
	err := apperrors.Wrap(apperrors.CodeIngestionFailed, "cannot open dump file", errors.New("permission denied"))

	result := m.FailedResult("/dumps/broken.dmp", err)
	require.NotNil(t, result)

	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, "/dumps/broken.dmp", result.Dump.Path)
	assert.Empty(t, result.Findings)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "ingestion", result.Failures[0].Extractor)
	assert.Contains(t, result.Failures[0].Error, "permission denied")
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestNoteDegradedOnlyTouchesPartials(t *testing.T) {
	m := NewManager(nil)

	complete := &model.AnalysisResult{Status: model.StatusComplete}
	m.NoteDegraded(complete)
	assert.Equal(t, model.StatusComplete, complete.Status)

	partial := &model.AnalysisResult{
		Status: model.StatusPartialRecovered,
		Dump:   model.DumpInfo{Truncated: true},
	}
	m.NoteDegraded(partial)
	assert.Equal(t, model.StatusPartialRecovered, partial.Status)
}
