// Package service wires the engine together: storage, ingestion, the
// extractor registry, orchestration, caching, and recovery behind one
// facade.
package service

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dumpsleuth/internal/cache"
	"github.com/dumpsleuth/internal/dump"
	"github.com/dumpsleuth/internal/extractor"
	"github.com/dumpsleuth/internal/orchestrator"
	"github.com/dumpsleuth/internal/recovery"
	"github.com/dumpsleuth/internal/storage"
	"github.com/dumpsleuth/pkg/config"
	apperrors "github.com/dumpsleuth/pkg/errors"
	"github.com/dumpsleuth/pkg/model"
	"github.com/dumpsleuth/pkg/utils"
)

// Service is the analysis engine facade. All state is explicit; two
// services with different configurations coexist in one process.
type Service struct {
	config   *config.Config
	logger   utils.Logger
	registry *extractor.Registry
	storage  storage.Storage
	cache    *cache.Layered
	store    *cache.Store
	recovery *recovery.Manager
	tracer   trace.Tracer

	mu       sync.RWMutex
	progress orchestrator.ProgressFunc
}

// New creates a service. Initialize must be called before Analyze.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Service{
		config:   cfg,
		logger:   logger,
		registry: extractor.Defaults(),
		recovery: recovery.NewManager(logger),
		tracer:   otel.Tracer("dumpsleuth/service"),
	}, nil
}

// Initialize prepares storage, the cache, and the extractor selection.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.initStorage(); err != nil {
		return err
	}
	if err := s.initCache(); err != nil {
		return err
	}
	if err := s.applyPluginSelection(); err != nil {
		return err
	}
	s.logger.Info("service initialized: extractors=%v cache=%v",
		s.registry.EnabledNames(), s.config.Performance.CacheEnabled)
	return nil
}

func (s *Service) initStorage() error {
	st, err := storage.New(&s.config.Storage)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeConfigInvalid, "invalid storage configuration", err)
	}
	s.storage = st
	return nil
}

func (s *Service) initCache() error {
	if !s.config.Performance.CacheEnabled {
		return nil
	}

	memory := cache.NewMemory(s.config.Performance.CacheSize)
	var store *cache.Store
	if s.config.Cache.Persist {
		db, err := cache.NewGormDB(&s.config.Cache.Database)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDatabaseError, "cannot open cache database", err)
		}
		store, err = cache.NewStore(db, s.logger)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDatabaseError, "cannot create cache store", err)
		}
	}

	s.store = store
	s.cache = cache.NewLayered(memory, store)
	return nil
}

// applyPluginSelection narrows the registry to the configured extractors.
// Naming an unregistered extractor is a configuration error, same as an
// unknown option key.
func (s *Service) applyPluginSelection() error {
	for _, name := range s.config.Plugins.Enabled {
		if _, ok := s.registry.Get(name); !ok {
			return apperrors.Wrap(apperrors.CodeConfigInvalid,
				fmt.Sprintf("unknown extractor in plugins.enabled: %s", name),
				apperrors.ErrConfigInvalid)
		}
	}

	s.registry.DisableAll()
	for _, name := range s.config.Plugins.Enabled {
		s.registry.Enable(name)
	}
	return nil
}

// Registry exposes the extractor registry so callers can register custom
// extractors before analyzing.
func (s *Service) Registry() *extractor.Registry {
	return s.registry
}

// SetProgressCallback installs the progress observer for subsequent
// Analyze calls. Pass nil to remove it.
func (s *Service) SetProgressCallback(fn orchestrator.ProgressFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = fn
}

// ListEnabledExtractors returns the active extractor names in execution
// order.
func (s *Service) ListEnabledExtractors() []string {
	return s.registry.EnabledNames()
}

// Analyze runs the full pipeline against the dump referenced by ref. ref
// is a local path or a "cos://key" object reference. On ingestion failure
// the returned result has status failed and the error is non-nil;
// everything downstream of ingestion degrades into the result instead of
// erroring.
func (s *Service) Analyze(ctx context.Context, ref string) (*model.AnalysisResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.Analyze",
		trace.WithAttributes(attribute.String("dump.ref", ref)))
	defer span.End()

	timer := utils.NewTimer()
	timer.StartPhase("ingest")

	path, err := s.resolveDump(ctx, ref)
	if err != nil {
		err = apperrors.Wrap(apperrors.CodeIngestionFailed, "cannot acquire dump", err)
		return s.recovery.FailedResult(ref, err), err
	}

	reader, err := dump.Open(path, dump.Options{
		ChunkSize:  s.config.Performance.ChunkSize,
		BufferSize: s.config.Performance.BufferSize,
		Logger:     s.logger,
	})
	if err != nil {
		return s.recovery.FailedResult(path, err), err
	}
	defer reader.Close()
	timer.StopPhase("ingest")

	info := reader.Info()
	span.SetAttributes(
		attribute.String("dump.format", string(info.Format)),
		attribute.Int64("dump.size", info.Size),
	)

	key := cache.Key{ContentHash: info.ContentHash, Fingerprint: s.config.Fingerprint()}
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.Info("cache hit for %s", info.Path)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	s.mu.RLock()
	progress := s.progress
	s.mu.RUnlock()

	orch := orchestrator.New(s.config, s.registry,
		orchestrator.WithLogger(s.logger),
		orchestrator.WithProgress(progress),
	)
	timer.StartPhase("extract")
	result, err := orch.Run(ctx, reader)
	timer.StopPhase("extract")
	if err != nil {
		return nil, err
	}
	s.logger.Debug("analysis timing: ingest=%v extract=%v",
		timer.Duration("ingest"), timer.Duration("extract"))

	s.recovery.NoteDegraded(result)

	if s.cache != nil && result.Status == model.StatusComplete {
		s.cache.Put(ctx, key, result)
	}
	return result, nil
}

// resolveDump stages the referenced dump to a local path.
func (s *Service) resolveDump(ctx context.Context, ref string) (string, error) {
	refType, key := storage.SplitRef(ref)

	switch refType {
	case storage.TypeLocal:
		// A path that resolves directly bypasses the storage root lookup.
		if _, err := os.Stat(key); err == nil {
			return key, nil
		}
		if st, ok := s.storage.(*storage.Local); ok {
			return st.Fetch(ctx, key, "")
		}
		return key, nil
	default:
		if s.storage == nil {
			return "", fmt.Errorf("storage not initialized")
		}
		return s.storage.Fetch(ctx, key, "")
	}
}

// Close releases held resources.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
