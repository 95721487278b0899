package model

import (
	"time"
)

// DumpFormat identifies the detected dump file format.
type DumpFormat string

const (
	// FormatWindowsMinidump is a Windows minidump (MDMP signature).
	FormatWindowsMinidump DumpFormat = "windows_minidump"
	// FormatFullHeapDump is a full heap dump (Windows PAGEDUMP/PAGEDU64 or HPROF).
	FormatFullHeapDump DumpFormat = "full_heap_dump"
	// FormatRawMemory is an unstructured raw memory image.
	FormatRawMemory DumpFormat = "raw_memory"
	// FormatVmSnapshot is a virtual machine memory snapshot.
	FormatVmSnapshot DumpFormat = "vm_snapshot"
	// FormatUnixCore is an ELF or Mach-O core file.
	FormatUnixCore DumpFormat = "unix_core"
	// FormatUnknown means no signature matched. Still analyzable,
	// extractors just run with reduced structural confidence.
	FormatUnknown DumpFormat = "unknown"
)

// AnalysisStatus is the overall outcome of an analysis run.
type AnalysisStatus string

const (
	// StatusComplete means every unit of work finished.
	StatusComplete AnalysisStatus = "complete"
	// StatusPartialRecovered means some units were skipped, retried, or the
	// input was truncated; the result covers what could be read.
	StatusPartialRecovered AnalysisStatus = "partial_recovered"
	// StatusFailed means ingestion itself failed and no findings exist.
	StatusFailed AnalysisStatus = "failed"
)

// DumpInfo summarizes the analyzed dump file. Read-only after the reader
// opens the file.
type DumpInfo struct {
	Path        string            `json:"path"`
	Size        int64             `json:"size"`
	ContentHash string            `json:"content_hash"`
	Format      DumpFormat        `json:"format"`
	Truncated   bool              `json:"truncated"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// UnitFailure records one extractor failing on one chunk after retries.
type UnitFailure struct {
	Extractor  string `json:"extractor"`
	ChunkIndex int    `json:"chunk_index"`
	Attempts   int    `json:"attempts"`
	Error      string `json:"error"`
}

// ExtractorRun holds per-extractor execution statistics.
type ExtractorRun struct {
	Name     string        `json:"name"`
	Findings int           `json:"findings"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration_ns"`
}

// AnalysisResult is the unified outcome of one analyze run. It is assembled
// once and immutable afterwards; the cache may hold a second reference.
type AnalysisResult struct {
	Dump        DumpInfo       `json:"dump"`
	Extractors  []string       `json:"extractors"`
	Findings    []Finding      `json:"findings"`
	Runs        []ExtractorRun `json:"runs"`
	Failures    []UnitFailure  `json:"failures,omitempty"`
	Status      AnalysisStatus `json:"status"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// FindingsByCategory returns a derived view of findings grouped by category.
// Presentation bucketing belongs to reporting collaborators; nothing here is
// stored state.
func (r *AnalysisResult) FindingsByCategory() map[Category][]Finding {
	out := make(map[Category][]Finding)
	for _, f := range r.Findings {
		out[f.Category] = append(out[f.Category], f)
	}
	return out
}

// CountByCategory returns the number of findings per category.
func (r *AnalysisResult) CountByCategory() map[Category]int {
	out := make(map[Category]int)
	for _, f := range r.Findings {
		out[f.Category]++
	}
	return out
}
