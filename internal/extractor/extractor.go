// Package extractor defines the extraction plugin model: the Extractor
// interface, per-extractor descriptors, and the registry that orders and
// enables them.
package extractor

import (
	"context"
	"sync"

	"github.com/dumpsleuth/internal/dump"
	"github.com/dumpsleuth/internal/scan"
	"github.com/dumpsleuth/pkg/model"
)

// Env provides the shared scanning facilities extractors draw on. One Env
// is built per analyze run from the effective configuration and shared
// read-only by all workers.
type Env struct {
	// Format is the detected dump format. Unknown is valid; extractors
	// treat it as reduced structural confidence, not an error.
	Format model.DumpFormat

	// Strings scans printable runs.
	Strings *scan.Scanner

	// Patterns is the configured pattern table.
	Patterns *scan.Set

	// Entropy flags blob-like spans.
	Entropy *scan.EntropyScanner
}

// Extractor is a unit of extraction logic producing findings of one or
// more categories. Extract is called once per (extractor, chunk) unit and
// must be safe for concurrent use across chunks.
type Extractor interface {
	// Descriptor returns the extractor's immutable metadata.
	Descriptor() Descriptor

	// Extract scans one chunk and returns its findings. Offsets must be
	// absolute dump offsets within [0, dump length).
	Extract(ctx context.Context, chunk dump.Chunk, env *Env) ([]model.Finding, error)
}

// Descriptor names an extractor and declares what it emits. Immutable once
// registered.
type Descriptor struct {
	Name       string
	Categories []model.Category
	// Priority is an order hint; higher runs earlier among equals.
	Priority int
}

// Registry holds extractors keyed by name with enable/disable state.
// Registration order is preserved as the default execution and report
// order. Duplicate-name registration replaces the prior extractor in
// place: last writer wins, which is the supported way for custom
// extractors to supersede defaults.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*registryEntry
}

type registryEntry struct {
	extractor Extractor
	enabled   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Register adds an extractor, enabled by default. Registering a name that
// already exists replaces the extractor but keeps its original position in
// the order.
func (r *Registry) Register(ext Extractor) {
	name := ext.Descriptor().Name
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[name]; ok {
		existing.extractor = ext
		return
	}
	r.entries[name] = &registryEntry{extractor: ext, enabled: true}
	r.order = append(r.order, name)
}

// Enable marks the named extractor active. Unknown names are ignored.
// Idempotent.
func (r *Registry) Enable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.enabled = true
	}
}

// Disable marks the named extractor inactive. Idempotent.
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.enabled = false
	}
}

// EnableAll enables every registered extractor. Idempotent.
func (r *Registry) EnableAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.enabled = true
	}
}

// DisableAll disables every registered extractor. Idempotent.
func (r *Registry) DisableAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.enabled = false
	}
}

// Enabled returns the active extractors in registration order.
func (r *Registry) Enabled() []Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Extractor
	for _, name := range r.order {
		if e := r.entries[name]; e.enabled {
			out = append(out, e.extractor)
		}
	}
	return out
}

// EnabledNames returns the active extractor names in registration order.
func (r *Registry) EnabledNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, name := range r.order {
		if r.entries[name].enabled {
			out = append(out, name)
		}
	}
	return out
}

// Names returns every registered extractor name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Get returns the named extractor.
func (r *Registry) Get(name string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.extractor, true
}

// Defaults returns a registry populated with the built-in extractors in
// their standard order.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(NewStringsExtractor())
	r.Register(NewNetworkExtractor())
	r.Register(NewRegistryKeysExtractor())
	r.Register(NewProcessExtractor())
	r.Register(NewPatternsExtractor())
	return r
}
