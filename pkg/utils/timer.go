package utils

import (
	"sync"
	"time"
)

// Phase represents a single named timing phase.
type Phase struct {
	Name      string
	StartTime time.Time
	Duration  time.Duration
	completed bool
}

// Timer records named phases. Durations accumulate per phase name, so a
// phase may be started and stopped repeatedly.
type Timer struct {
	mu     sync.Mutex
	phases map[string]*Phase
	order  []string
}

// NewTimer creates an empty timer.
func NewTimer() *Timer {
	return &Timer{phases: make(map[string]*Phase)}
}

// StartPhase starts (or restarts) the named phase.
func (t *Timer) StartPhase(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.phases[name]
	if !ok {
		p = &Phase{Name: name}
		t.phases[name] = p
		t.order = append(t.order, name)
	}
	p.StartTime = time.Now()
	p.completed = false
}

// StopPhase stops the named phase and accumulates its duration.
// Stopping an unknown or already-stopped phase is a no-op.
func (t *Timer) StopPhase(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.phases[name]
	if !ok || p.completed {
		return 0
	}
	p.Duration += time.Since(p.StartTime)
	p.completed = true
	return p.Duration
}

// Add accumulates a measured duration into the named phase directly.
func (t *Timer) Add(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.phases[name]
	if !ok {
		p = &Phase{Name: name, completed: true}
		t.phases[name] = p
		t.order = append(t.order, name)
	}
	p.Duration += d
}

// Duration returns the accumulated duration for the named phase.
func (t *Timer) Duration(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.phases[name]; ok {
		return p.Duration
	}
	return 0
}

// Phases returns phase names in first-start order.
func (t *Timer) Phases() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
