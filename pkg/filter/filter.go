// Package filter narrows a finding list for reporting: category
// include/exclude sets and a confidence floor.
package filter

import (
	"github.com/dumpsleuth/pkg/model"
)

// FindingFilter selects findings for presentation. The zero value passes
// everything. Safe for concurrent use once built.
type FindingFilter struct {
	include       map[model.Category]bool
	exclude       map[model.Category]bool
	minConfidence float64
}

// New creates an empty filter.
func New() *FindingFilter {
	return &FindingFilter{}
}

// Include restricts output to the given categories. Calling it with no
// categories leaves the filter unrestricted.
func (f *FindingFilter) Include(categories ...model.Category) *FindingFilter {
	if len(categories) == 0 {
		return f
	}
	if f.include == nil {
		f.include = make(map[model.Category]bool, len(categories))
	}
	for _, c := range categories {
		f.include[c] = true
	}
	return f
}

// Exclude drops the given categories. Exclusion wins over inclusion.
func (f *FindingFilter) Exclude(categories ...model.Category) *FindingFilter {
	if f.exclude == nil {
		f.exclude = make(map[model.Category]bool, len(categories))
	}
	for _, c := range categories {
		f.exclude[c] = true
	}
	return f
}

// MinConfidence drops findings below the floor.
func (f *FindingFilter) MinConfidence(min float64) *FindingFilter {
	f.minConfidence = min
	return f
}

// Keep reports whether the finding passes the filter.
func (f *FindingFilter) Keep(finding model.Finding) bool {
	if f.exclude[finding.Category] {
		return false
	}
	if f.include != nil && !f.include[finding.Category] {
		return false
	}
	return finding.Confidence >= f.minConfidence
}

// Apply returns the findings passing the filter, preserving order.
func (f *FindingFilter) Apply(findings []model.Finding) []model.Finding {
	out := make([]model.Finding, 0, len(findings))
	for _, finding := range findings {
		if f.Keep(finding) {
			out = append(out, finding)
		}
	}
	return out
}
