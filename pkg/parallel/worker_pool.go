// Package parallel provides generic parallel processing utilities.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent workers.
	// Default: runtime.NumCPU()
	MaxWorkers int

	// TaskBufferSize is the buffer size for the task channel.
	// Default: MaxWorkers * 2
	TaskBufferSize int
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	return PoolConfig{
		MaxWorkers:     workers,
		TaskBufferSize: workers * 2,
	}
}

// WithWorkers returns a new config with the specified number of workers.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.MaxWorkers = n
	return c
}

// TaskResult holds the result of one unit of work.
type TaskResult[T any, R any] struct {
	Input    T
	Result   R
	Error    error
	Duration time.Duration
}

// StreamPool executes units of work submitted incrementally, with a bounded
// number of workers. Unlike a batch pool it does not require the full task
// list up front, so a producer can feed it lazily generated work (for dump
// analysis: one unit per extractor per chunk).
//
// Usage: submit from one goroutine, drain Results from another, then Close
// the submission side and keep draining until Results is closed.
type StreamPool[T any, R any] struct {
	config  PoolConfig
	fn      func(ctx context.Context, input T) (R, error)
	tasks   chan T
	results chan TaskResult[T, R]
	wg      sync.WaitGroup
	started sync.Once
	closed  sync.Once
}

// NewStreamPool creates a stream pool executing fn for each submitted unit.
func NewStreamPool[T any, R any](config PoolConfig, fn func(ctx context.Context, input T) (R, error)) *StreamPool[T, R] {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultPoolConfig().MaxWorkers
	}
	if config.TaskBufferSize <= 0 {
		config.TaskBufferSize = config.MaxWorkers * 2
	}
	return &StreamPool[T, R]{
		config:  config,
		fn:      fn,
		tasks:   make(chan T, config.TaskBufferSize),
		results: make(chan TaskResult[T, R], config.TaskBufferSize),
	}
}

// Start launches the workers. Safe to call once; Submit calls Start lazily.
func (p *StreamPool[T, R]) Start(ctx context.Context) {
	p.started.Do(func() {
		for i := 0; i < p.config.MaxWorkers; i++ {
			p.wg.Add(1)
			go p.worker(ctx)
		}
		go func() {
			p.wg.Wait()
			close(p.results)
		}()
	})
}

func (p *StreamPool[T, R]) worker(ctx context.Context) {
	defer p.wg.Done()
	for input := range p.tasks {
		start := time.Now()
		result, err := p.fn(ctx, input)
		p.results <- TaskResult[T, R]{
			Input:    input,
			Result:   result,
			Error:    err,
			Duration: time.Since(start),
		}
	}
}

// Submit enqueues one unit of work. Returns false if the context is done,
// in which case the unit was not enqueued. Cancellation is cooperative:
// units already picked up by workers run to completion.
func (p *StreamPool[T, R]) Submit(ctx context.Context, input T) bool {
	p.Start(ctx)
	select {
	case <-ctx.Done():
		return false
	case p.tasks <- input:
		return true
	}
}

// Results returns the channel of completed units. It is closed after Close
// once all in-flight units have finished.
func (p *StreamPool[T, R]) Results() <-chan TaskResult[T, R] {
	return p.results
}

// Close stops accepting new units. In-flight units finish normally.
func (p *StreamPool[T, R]) Close() {
	p.closed.Do(func() {
		close(p.tasks)
	})
}

// ForEach executes fn for every item with bounded parallelism and returns
// the first error encountered, if any.
func ForEach[T any](ctx context.Context, items []T, config PoolConfig, fn func(ctx context.Context, item T) error) error {
	if len(items) == 0 {
		return nil
	}

	pool := NewStreamPool(config, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	pool.Start(ctx)

	go func() {
		for _, item := range items {
			if !pool.Submit(ctx, item) {
				break
			}
		}
		pool.Close()
	}()

	var firstErr error
	for res := range pool.Results() {
		if res.Error != nil && firstErr == nil {
			firstErr = res.Error
		}
	}
	return firstErr
}
