// Package orchestrator schedules extraction work across chunks and
// extractors and assembles the unified analysis result.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dumpsleuth/internal/dump"
	"github.com/dumpsleuth/internal/extractor"
	"github.com/dumpsleuth/internal/scan"
	"github.com/dumpsleuth/pkg/config"
	apperrors "github.com/dumpsleuth/pkg/errors"
	"github.com/dumpsleuth/pkg/model"
	"github.com/dumpsleuth/pkg/parallel"
	"github.com/dumpsleuth/pkg/utils"
)

// ProgressFunc observes analysis progress. It receives the extractor that
// just finished a unit of work and the overall completed fraction in
// [0, 1]. Callbacks are best-effort: a slow or panicking observer cannot
// fail the run.
type ProgressFunc func(extractor string, fraction float64)

// Orchestrator runs the enabled extractors over a dump's chunks with
// bounded parallelism. The unit of work is one (extractor, chunk) pair, so
// a single slow extractor cannot serialize the whole run.
type Orchestrator struct {
	cfg      *config.Config
	registry *extractor.Registry
	logger   utils.Logger
	progress ProgressFunc
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithProgress sets the progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// New creates an orchestrator over the given registry.
func New(cfg *config.Config, registry *extractor.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		logger:   &utils.NullLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// unit is one schedulable piece of work.
type unit struct {
	ext   extractor.Extractor
	name  string
	chunk dump.Chunk
}

// Run analyzes the opened dump and returns the assembled result. The
// returned error is non-nil only for setup failures (an invalid pattern
// table); extraction failures degrade the result instead.
func (o *Orchestrator) Run(ctx context.Context, reader *dump.Reader) (*model.AnalysisResult, error) {
	env, err := o.buildEnv(reader.Info().Format)
	if err != nil {
		return nil, err
	}

	extractors := o.registry.Enabled()
	numChunks := reader.NumChunks()
	totalUnits := len(extractors) * numChunks
	retries := o.cfg.Performance.Retries

	agg := newAggregator(extractors)

	if totalUnits == 0 {
		return agg.finalize(reader.Info(), false), nil
	}

	poolCfg := parallel.DefaultPoolConfig().
		WithWorkers(o.cfg.EffectiveWorkers(runtime.NumCPU()))
	pool := parallel.NewStreamPool(poolCfg, func(ctx context.Context, u unit) ([]model.Finding, error) {
		return o.runUnit(ctx, u, env, retries)
	})
	pool.Start(ctx)

	cancelled := make(chan bool, 1)
	go func() {
		defer pool.Close()
		iter := reader.Chunks()
		for {
			chunk, ok := iter.Next()
			if !ok {
				cancelled <- false
				return
			}
			for _, ext := range extractors {
				u := unit{ext: ext, name: ext.Descriptor().Name, chunk: chunk}
				if !pool.Submit(ctx, u) {
					cancelled <- true
					return
				}
			}
		}
	}()

	completed := 0
	for res := range pool.Results() {
		completed++
		agg.add(res, retries)
		o.reportProgress(res.Input.name, float64(completed)/float64(totalUnits))
	}

	wasCancelled := <-cancelled || ctx.Err() != nil
	if wasCancelled {
		o.logger.Warn("analysis cancelled after %d/%d units", completed, totalUnits)
	}

	return agg.finalize(reader.Info(), wasCancelled), nil
}

// buildEnv compiles the run's scanning environment from configuration.
func (o *Orchestrator) buildEnv(format model.DumpFormat) (*extractor.Env, error) {
	set, err := scan.NewSet(o.cfg.Patterns.Include, o.cfg.Patterns.Custom)
	if err != nil {
		return nil, err
	}

	opts := scan.Options{
		MinLength: o.cfg.Strings.MinLength,
		MaxLength: o.cfg.Strings.MaxLength,
	}
	for _, enc := range o.cfg.Strings.Encodings {
		switch enc {
		case "ascii":
			opts.ASCII = true
		case "utf-16":
			opts.Wide = true
		}
	}

	return &extractor.Env{
		Format:   format,
		Strings:  scan.NewScanner(opts),
		Patterns: set,
		Entropy:  scan.NewEntropyScanner(o.cfg.Security.EntropyThreshold),
	}, nil
}

// runUnit executes one (extractor, chunk) unit with retries. A panicking
// extractor is contained and converted into a unit failure.
func (o *Orchestrator) runUnit(ctx context.Context, u unit, env *extractor.Env, retries int) ([]model.Finding, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, apperrors.Wrap(apperrors.CodeCancelled, "analysis cancelled", err)
		}
		findings, err := o.safeExtract(ctx, u, env)
		if err == nil {
			return findings, nil
		}
		lastErr = err
		if attempt < retries {
			o.logger.Debug("extractor %s failed on chunk %d (attempt %d): %v",
				u.name, u.chunk.Index, attempt+1, err)
		}
	}
	return nil, lastErr
}

func (o *Orchestrator) safeExtract(ctx context.Context, u unit, env *extractor.Env) (findings []model.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Wrap(apperrors.CodeExtractorFailed,
				fmt.Sprintf("extractor %s panicked on chunk %d", u.name, u.chunk.Index),
				fmt.Errorf("%v", r))
		}
	}()
	return u.ext.Extract(ctx, u.chunk, env)
}

// reportProgress invokes the observer, containing any panic it raises.
func (o *Orchestrator) reportProgress(name string, fraction float64) {
	if o.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("progress callback panicked: %v", r)
		}
	}()
	o.progress(name, fraction)
}
