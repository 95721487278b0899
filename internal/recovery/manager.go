// Package recovery centralizes the degradation policy for damaged input:
// only ingestion failures are fatal, everything downstream degrades to a
// partial result covering what could be read.
package recovery

import (
	"time"

	apperrors "github.com/dumpsleuth/pkg/errors"
	"github.com/dumpsleuth/pkg/model"
	"github.com/dumpsleuth/pkg/utils"
)

// Manager classifies failures and builds degraded results.
type Manager struct {
	logger utils.Logger
}

// NewManager creates a recovery manager.
func NewManager(logger utils.Logger) *Manager {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &Manager{logger: logger}
}

// Fatal reports whether err ends the run with no result content. Only a
// dump that cannot be opened or read at all qualifies; a truncated or
// partially corrupt dump does not.
func (m *Manager) Fatal(err error) bool {
	return apperrors.GetErrorCode(err) == apperrors.CodeIngestionFailed
}

// FailedResult builds the terminal result for a dump that could not be
// ingested. It carries the path and the failure, nothing else.
func (m *Manager) FailedResult(path string, err error) *model.AnalysisResult {
	m.logger.Error("ingestion failed for %s: %v", path, err)
	return &model.AnalysisResult{
		Dump: model.DumpInfo{
			Path:   path,
			Format: model.FormatUnknown,
		},
		Failures: []model.UnitFailure{{
			Extractor:  "ingestion",
			ChunkIndex: -1,
			Attempts:   1,
			Error:      err.Error(),
		}},
		Status:      model.StatusFailed,
		GeneratedAt: time.Now().UTC(),
	}
}

// NoteDegraded logs why a result is partial. The status itself is set by
// the aggregation that observed the failures.
func (m *Manager) NoteDegraded(result *model.AnalysisResult) {
	if result.Status != model.StatusPartialRecovered {
		return
	}
	switch {
	case result.Dump.Truncated:
		m.logger.Warn("dump %s is truncated, findings cover the readable prefix", result.Dump.Path)
	case len(result.Failures) > 0:
		m.logger.Warn("analysis of %s degraded: %d unit(s) failed", result.Dump.Path, len(result.Failures))
	default:
		m.logger.Warn("analysis of %s was interrupted before completion", result.Dump.Path)
	}
}
