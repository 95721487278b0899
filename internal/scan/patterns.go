package scan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/dumpsleuth/pkg/errors"
	"github.com/dumpsleuth/pkg/model"
)

// Pattern is one named regular expression bound to a finding category.
type Pattern struct {
	Name     string
	Category model.Category
	re       *regexp.Regexp
	// validate optionally rejects regex matches that fail a semantic
	// check, e.g. IPv4 octet ranges.
	validate func(string) bool
}

// FindAll returns a finding for every match of the pattern in data.
// Offsets are absolute: base + match start.
func (p *Pattern) FindAll(data []byte, base int64, extractor string) []model.Finding {
	locs := p.re.FindAllIndex(data, -1)
	if len(locs) == 0 {
		return nil
	}
	findings := make([]model.Finding, 0, len(locs))
	for _, loc := range locs {
		value := string(data[loc[0]:loc[1]])
		if p.validate != nil && !p.validate(value) {
			continue
		}
		findings = append(findings, model.NewFinding(p.Category, value, base+int64(loc[0]), extractor))
	}
	return findings
}

// MatchString reports whether the pattern matches anywhere in s.
func (p *Pattern) MatchString(s string) bool {
	if !p.re.MatchString(s) {
		return false
	}
	if p.validate != nil {
		m := p.re.FindString(s)
		return p.validate(m)
	}
	return true
}

// defaultPatternSpec declares the built-in pattern table. Order is the
// evaluation order.
type defaultPatternSpec struct {
	name     string
	category model.Category
	expr     string
	validate func(string) bool
}

var defaultPatterns = []defaultPatternSpec{
	{"url", model.CategoryURL, `(?:https?|ftp)://[^\s<>"'` + "`" + `]+`, nil},
	{"ip", model.CategoryIP, `\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`, validIPv4},
	{"email", model.CategoryEmail, `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, nil},
	{"domain", model.CategoryDomain, `\b(?:[a-zA-Z0-9-]+\.)+(?:com|net|org|io|gov|edu|mil)\b`, notModuleName},
	{"windows-path", model.CategoryFilePath, `(?:[A-Za-z]:|\\\\[^\\\s]+|%[A-Z]+%)\\[^<>:"|?*\x00-\x1f]+`, nil},
	{"unix-path", model.CategoryFilePath, `/[a-zA-Z0-9][a-zA-Z0-9/_.-]*\.[a-zA-Z0-9]+`, nil},
	{"registry-key", model.CategoryRegistryKey, `(?i)(?:HKEY_[A-Z_]+|HKLM|HKCU|HKCR|HKU)\\[^<>:"|?*\x00-\x1f]{1,255}`, nil},
	{"module-name", model.CategoryModuleName, `(?i)\b[\w][\w.-]*\.(?:dll|exe|sys|ocx)\b`, nil},
	{"command", model.CategoryCommand, `(?i)\b(?:powershell|cmd\.exe|wmic|schtasks|reg\s+(?:add|delete|query)|net\s+(?:use|user|share|view))\b[^\n\r\x00]*`, nil},
	{"credential", model.CategoryCredential, `(?i)\b(?:password|passwd|pwd|api[_-]?key|secret[_-]?key)[:\s=]+[^\s\x00]+`, nil},
	{"hex-key", model.CategoryHexKey, `\b[0-9A-Fa-f]{32,}\b`, nil},
}

// validIPv4 rejects dotted quads with octets above 255.
func validIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// notModuleName filters domain false positives like kernel32.dll.
func notModuleName(s string) bool {
	lower := strings.ToLower(s)
	for _, ext := range []string{".dll", ".exe", ".sys", ".dat", ".ocx"} {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// Set is a configured pattern table: the selected built-ins plus compiled
// user-supplied custom patterns. Custom patterns sharing a built-in name
// override it.
type Set struct {
	patterns []*Pattern
	byName   map[string]*Pattern
}

// NewSet builds a pattern set. include selects built-in names to evaluate
// (empty means all); custom maps name to regular expression and is merged
// in. An uncompilable custom pattern is a configuration error.
func NewSet(include []string, custom map[string]string) (*Set, error) {
	selected := make(map[string]bool, len(include))
	for _, name := range include {
		selected[name] = true
	}

	s := &Set{byName: make(map[string]*Pattern)}
	for _, spec := range defaultPatterns {
		if len(selected) > 0 && !selected[spec.name] {
			continue
		}
		if _, overridden := custom[spec.name]; overridden {
			continue
		}
		p := &Pattern{
			Name:     spec.name,
			Category: spec.category,
			re:       regexp.MustCompile(spec.expr),
			validate: spec.validate,
		}
		s.patterns = append(s.patterns, p)
		s.byName[spec.name] = p
	}

	for name, expr := range custom {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfigInvalid,
				fmt.Sprintf("invalid custom pattern %q", name), err)
		}
		p := &Pattern{Name: name, Category: model.Category(name), re: re}
		s.patterns = append(s.patterns, p)
		s.byName[name] = p
	}

	return s, nil
}

// Get returns the named pattern if it is part of the set.
func (s *Set) Get(name string) (*Pattern, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Patterns returns the evaluation-ordered patterns.
func (s *Set) Patterns() []*Pattern {
	return s.patterns
}

// Match evaluates every pattern against the raw bytes and returns all
// findings.
func (s *Set) Match(data []byte, base int64, extractor string) []model.Finding {
	var findings []model.Finding
	for _, p := range s.patterns {
		findings = append(findings, p.FindAll(data, base, extractor)...)
	}
	return findings
}

// Classify returns the categories of every pattern matching the string.
// Categories are not mutually exclusive: a string that is both a file path
// and contains a credential is returned under both.
func (s *Set) Classify(value string) []model.Category {
	var cats []model.Category
	for _, p := range s.patterns {
		if p.MatchString(value) {
			cats = append(cats, p.Category)
		}
	}
	return cats
}
