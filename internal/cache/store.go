package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/dumpsleuth/pkg/compression"
	"github.com/dumpsleuth/pkg/config"
	"github.com/dumpsleuth/pkg/model"
	"github.com/dumpsleuth/pkg/telemetry"
	"github.com/dumpsleuth/pkg/utils"
)

// CachedResult is the persisted cache row. The payload is the JSON-encoded
// analysis result, compressed with the codec named in Codec.
type CachedResult struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	ContentHash string    `gorm:"size:64;not null;uniqueIndex:idx_cache_identity,priority:1"`
	Fingerprint string    `gorm:"size:64;not null;uniqueIndex:idx_cache_identity,priority:2"`
	Codec       string    `gorm:"size:16;not null"`
	Payload     []byte    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// TableName sets the cache table name.
func (CachedResult) TableName() string {
	return "dump_analysis_cache"
}

// NewGormDB opens the cache database for the configured dialect.
func NewGormDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		dialector = mysql.Open(dsn)
	case "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported cache database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to enable telemetry: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&CachedResult{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache schema: %w", err)
	}

	return db, nil
}

// Store is the database-backed result cache. Every failure mode on the
// read path, including a corrupt payload, degrades to a miss so a damaged
// cache can never fail an analysis.
type Store struct {
	db     *gorm.DB
	codec  compression.Compressor
	logger utils.Logger
}

// NewStore creates a store over an open database. Payloads are compressed
// with zstd.
func NewStore(db *gorm.DB, logger utils.Logger) (*Store, error) {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	codec, err := compression.New(compression.TypeZstd)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, codec: codec, logger: logger}, nil
}

// Get loads and decodes the cached result for key. A missing, corrupt, or
// undecodable row is a miss; corrupt rows are dropped so the follow-up
// analysis overwrites them cleanly.
func (s *Store) Get(ctx context.Context, key Key) (*model.AnalysisResult, bool) {
	var row CachedResult
	err := s.db.WithContext(ctx).
		Where("content_hash = ? AND fingerprint = ?", key.ContentHash, key.Fingerprint).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("cache lookup failed for %s: %v", shortHash(key.ContentHash), err)
		}
		return nil, false
	}

	result, err := s.decode(&row)
	if err != nil {
		s.logger.Warn("dropping corrupt cache entry for %s: %v", shortHash(key.ContentHash), err)
		s.db.WithContext(ctx).Delete(&CachedResult{}, row.ID)
		return nil, false
	}
	return result, true
}

// Put encodes and upserts the result. Write failures are logged and
// swallowed; the cache is an optimization, not a dependency.
func (s *Store) Put(ctx context.Context, key Key, result *model.AnalysisResult) {
	payload, err := s.encode(result)
	if err != nil {
		s.logger.Warn("cache encode failed for %s: %v", shortHash(key.ContentHash), err)
		return
	}

	row := CachedResult{
		ContentHash: key.ContentHash,
		Fingerprint: key.Fingerprint,
		Codec:       s.codec.Name(),
		Payload:     payload,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_hash"}, {Name: "fingerprint"}},
			DoUpdates: clause.AssignmentColumns([]string{"codec", "payload", "created_at"}),
		}).
		Create(&row).Error
	if err != nil {
		s.logger.Warn("cache write failed for %s: %v", shortHash(key.ContentHash), err)
	}
}

// Prune deletes entries older than the retention window and returns how
// many rows were removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&CachedResult{})
	return res.RowsAffected, res.Error
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) encode(result *model.AnalysisResult) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return s.codec.Compress(raw)
}

func (s *Store) decode(row *CachedResult) (*model.AnalysisResult, error) {
	if row.Codec != s.codec.Name() {
		return nil, fmt.Errorf("unknown payload codec %q", row.Codec)
	}
	raw, err := s.codec.Decompress(row.Payload)
	if err != nil {
		return nil, err
	}
	var result model.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
