package orchestrator

import (
	"sort"
	"time"

	"github.com/dumpsleuth/internal/extractor"
	"github.com/dumpsleuth/pkg/model"
	"github.com/dumpsleuth/pkg/parallel"
)

// aggregator collects per-unit outputs and assembles the final result.
// Findings are deduplicated by (category, value) keeping the lowest offset,
// and ordered deterministically regardless of worker completion order.
type aggregator struct {
	order    []string
	orderIdx map[string]int
	accums   map[string]*extractorAccum
	failures []model.UnitFailure
}

type extractorAccum struct {
	findings []model.Finding
	chunks   int
	duration time.Duration
}

func newAggregator(extractors []extractor.Extractor) *aggregator {
	a := &aggregator{
		orderIdx: make(map[string]int, len(extractors)),
		accums:   make(map[string]*extractorAccum, len(extractors)),
	}
	for i, ext := range extractors {
		name := ext.Descriptor().Name
		a.order = append(a.order, name)
		a.orderIdx[name] = i
		a.accums[name] = &extractorAccum{}
	}
	return a
}

// add records one completed unit.
func (a *aggregator) add(res parallel.TaskResult[unit, []model.Finding], retries int) {
	acc := a.accums[res.Input.name]
	acc.chunks++
	acc.duration += res.Duration

	if res.Error != nil {
		a.failures = append(a.failures, model.UnitFailure{
			Extractor:  res.Input.name,
			ChunkIndex: res.Input.chunk.Index,
			Attempts:   retries + 1,
			Error:      res.Error.Error(),
		})
		return
	}
	acc.findings = append(acc.findings, res.Result...)
}

// finalize deduplicates, orders, and packages everything into the result.
func (a *aggregator) finalize(info model.DumpInfo, cancelled bool) *model.AnalysisResult {
	type keptFinding struct {
		finding model.Finding
		extIdx  int
	}
	kept := make(map[model.FindingKey]keptFinding)

	for _, name := range a.order {
		idx := a.orderIdx[name]
		for _, f := range a.accums[name].findings {
			key := f.Key()
			prev, seen := kept[key]
			if !seen || better(f, idx, prev.finding, prev.extIdx) {
				kept[key] = keptFinding{finding: f, extIdx: idx}
			}
		}
	}

	findings := make([]model.Finding, 0, len(kept))
	extIdx := make(map[model.FindingKey]int, len(kept))
	for key, kf := range kept {
		findings = append(findings, kf.finding)
		extIdx[key] = kf.extIdx
	}
	sort.SliceStable(findings, func(i, j int) bool {
		fi, fj := findings[i], findings[j]
		if fi.Offset != fj.Offset {
			return fi.Offset < fj.Offset
		}
		ii, ij := extIdx[fi.Key()], extIdx[fj.Key()]
		if ii != ij {
			return ii < ij
		}
		if fi.Category != fj.Category {
			return fi.Category < fj.Category
		}
		return fi.Value < fj.Value
	})

	runs := make([]model.ExtractorRun, 0, len(a.order))
	for _, name := range a.order {
		acc := a.accums[name]
		runs = append(runs, model.ExtractorRun{
			Name:     name,
			Findings: len(acc.findings),
			Chunks:   acc.chunks,
			Duration: acc.duration,
		})
	}

	sort.Slice(a.failures, func(i, j int) bool {
		fi, fj := a.failures[i], a.failures[j]
		if fi.Extractor != fj.Extractor {
			return a.orderIdx[fi.Extractor] < a.orderIdx[fj.Extractor]
		}
		return fi.ChunkIndex < fj.ChunkIndex
	})

	status := model.StatusComplete
	if cancelled || info.Truncated || len(a.failures) > 0 {
		status = model.StatusPartialRecovered
	}

	return &model.AnalysisResult{
		Dump:        info,
		Extractors:  append([]string(nil), a.order...),
		Findings:    findings,
		Runs:        runs,
		Failures:    a.failures,
		Status:      status,
		GeneratedAt: time.Now().UTC(),
	}
}

// better reports whether candidate f should replace the currently kept
// finding for the same key. Lowest offset wins; ties resolve to the earlier
// extractor in registration order so results are stable across runs.
func better(f model.Finding, fIdx int, cur model.Finding, curIdx int) bool {
	if f.Offset != cur.Offset {
		return f.Offset < cur.Offset
	}
	return fIdx < curIdx
}
