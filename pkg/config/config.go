// Package config provides configuration management for the dumpsleuth engine.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/dumpsleuth/pkg/errors"
)

// Config holds all configuration for the application. Every recognized
// option is a named field; unknown keys are rejected at load time so typos
// surface before any analysis starts.
type Config struct {
	Strings     StringsConfig     `mapstructure:"strings"`
	Patterns    PatternsConfig    `mapstructure:"patterns"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Security    SecurityConfig    `mapstructure:"security"`
	Plugins     PluginsConfig     `mapstructure:"plugins"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Log         LogConfig         `mapstructure:"log"`
}

// StringsConfig bounds accepted string runs and selects encodings.
type StringsConfig struct {
	MinLength int      `mapstructure:"min_length"`
	MaxLength int      `mapstructure:"max_length"`
	Encodings []string `mapstructure:"encodings"` // subset of {ascii, utf-16}
}

// PatternsConfig selects named pattern categories and user-supplied regexes.
type PatternsConfig struct {
	// Include lists pattern categories to evaluate. Empty means all.
	Include []string `mapstructure:"include"`
	// Custom maps pattern name to regular expression, merged into the
	// default pattern table. A custom entry with a default name overrides it.
	Custom map[string]string `mapstructure:"custom"`
}

// PerformanceConfig sizes the worker pool, reader windows, and cache.
type PerformanceConfig struct {
	// Workers is the worker-pool size. 0 means available parallelism.
	Workers int `mapstructure:"workers"`
	// ChunkSize is the reader window size in bytes.
	ChunkSize int `mapstructure:"chunk_size"`
	// BufferSize is the read buffer used for streamed hashing, in bytes.
	BufferSize int `mapstructure:"buffer_size"`
	// CacheEnabled activates the result cache.
	CacheEnabled bool `mapstructure:"cache_enabled"`
	// CacheSize caps the in-memory cache entry count.
	CacheSize int `mapstructure:"cache_size"`
	// Retries is how often a failed (extractor, chunk) unit is retried.
	Retries int `mapstructure:"retries"`
}

// SecurityConfig holds blob-flagging settings.
type SecurityConfig struct {
	// EntropyThreshold is the Shannon entropy cutoff in bits/byte above
	// which a non-printable span is flagged as a high-entropy blob.
	EntropyThreshold float64 `mapstructure:"entropy_threshold"`
}

// PluginsConfig selects and orders the active extractors.
type PluginsConfig struct {
	Enabled []string `mapstructure:"enabled"`
}

// StorageConfig configures dump acquisition from object storage.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // local or cos
	LocalPath string `mapstructure:"local_path"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
}

// CacheConfig configures the optional persistent cache store.
type CacheConfig struct {
	// Persist enables the database-backed store in addition to the
	// in-memory cache.
	Persist  bool           `mapstructure:"persist"`
	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig holds cache database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // sqlite, mysql, or postgres
	Path     string `mapstructure:"path"` // sqlite file path
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
}

// Load reads configuration from the specified file path. An empty path
// falls back to standard locations and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/dumpsleuth")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.Wrap(apperrors.CodeConfigInvalid, "failed to read config file", err)
		}
		// No config file found: defaults apply.
	}

	return finishLoad(v)
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigInvalid, "failed to read config", err)
	}

	return finishLoad(v)
}

// Default returns the default configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := finishLoad(v)
	if err != nil {
		// Defaults always validate.
		panic(err)
	}
	return cfg
}

func finishLoad(v *viper.Viper) (*Config, error) {
	if err := rejectUnknownKeys(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigInvalid, "failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("strings.min_length", 4)
	v.SetDefault("strings.max_length", 256)
	v.SetDefault("strings.encodings", []string{"ascii", "utf-16"})

	v.SetDefault("patterns.include", []string{})
	v.SetDefault("patterns.custom", map[string]string{})

	v.SetDefault("performance.workers", 0)
	v.SetDefault("performance.chunk_size", 4*1024*1024)
	v.SetDefault("performance.buffer_size", 1024*1024)
	v.SetDefault("performance.cache_enabled", true)
	v.SetDefault("performance.cache_size", 128)
	v.SetDefault("performance.retries", 1)

	v.SetDefault("security.entropy_threshold", 7.0)

	v.SetDefault("plugins.enabled", []string{"strings", "network", "registry", "processes", "patterns"})

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./dumps")
	v.SetDefault("storage.scheme", "https")

	v.SetDefault("cache.persist", false)
	v.SetDefault("cache.database.type", "sqlite")
	v.SetDefault("cache.database.path", "./cache/dumpsleuth.db")
	v.SetDefault("cache.database.max_conns", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
}

// knownKeyPrefixes are key namespaces whose children are free-form
// (user-named custom patterns).
var knownKeyPrefixes = []string{
	"patterns.custom.",
}

// knownKeys is the closed set of recognized leaf options.
var knownKeys = map[string]bool{
	"strings.min_length":         true,
	"strings.max_length":         true,
	"strings.encodings":          true,
	"patterns.include":           true,
	"patterns.custom":            true,
	"performance.workers":        true,
	"performance.chunk_size":     true,
	"performance.buffer_size":    true,
	"performance.cache_enabled":  true,
	"performance.cache_size":     true,
	"performance.retries":        true,
	"security.entropy_threshold": true,
	"plugins.enabled":            true,
	"storage.type":               true,
	"storage.local_path":         true,
	"storage.bucket":             true,
	"storage.region":             true,
	"storage.secret_id":          true,
	"storage.secret_key":         true,
	"storage.domain":             true,
	"storage.scheme":             true,
	"cache.persist":              true,
	"cache.database.type":        true,
	"cache.database.path":        true,
	"cache.database.host":        true,
	"cache.database.port":        true,
	"cache.database.database":    true,
	"cache.database.user":        true,
	"cache.database.password":    true,
	"cache.database.max_conns":   true,
	"log.level":                  true,
	"log.output_path":            true,
}

// rejectUnknownKeys fails the load when the config carries options the
// engine does not recognize. Surfacing typos early beats silently ignoring
// them.
func rejectUnknownKeys(v *viper.Viper) error {
	for _, key := range v.AllKeys() {
		if knownKeys[key] {
			continue
		}
		prefixed := false
		for _, prefix := range knownKeyPrefixes {
			if strings.HasPrefix(key, prefix) {
				prefixed = true
				break
			}
		}
		if !prefixed {
			return apperrors.Wrap(apperrors.CodeConfigInvalid,
				fmt.Sprintf("unknown configuration option: %s", key), apperrors.ErrConfigInvalid)
		}
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	fail := func(msg string) error {
		return apperrors.Wrap(apperrors.CodeConfigInvalid, msg, apperrors.ErrConfigInvalid)
	}

	if c.Strings.MinLength < 1 {
		return fail("strings.min_length must be at least 1")
	}
	if c.Strings.MaxLength < c.Strings.MinLength {
		return fail("strings.max_length must be >= strings.min_length")
	}
	for _, enc := range c.Strings.Encodings {
		if enc != "ascii" && enc != "utf-16" {
			return fail(fmt.Sprintf("unsupported string encoding: %s", enc))
		}
	}
	if len(c.Strings.Encodings) == 0 {
		return fail("strings.encodings must not be empty")
	}

	if c.Performance.Workers < 0 {
		return fail("performance.workers must not be negative")
	}
	if c.Performance.ChunkSize < 64*1024 {
		return fail("performance.chunk_size must be at least 64KB")
	}
	if c.Performance.BufferSize < 4096 {
		return fail("performance.buffer_size must be at least 4KB")
	}
	if c.Performance.CacheSize < 1 {
		return fail("performance.cache_size must be at least 1")
	}
	if c.Performance.Retries < 0 {
		return fail("performance.retries must not be negative")
	}

	if c.Security.EntropyThreshold <= 0 || c.Security.EntropyThreshold > 8.0 {
		return fail("security.entropy_threshold must be in (0, 8]")
	}

	if len(c.Plugins.Enabled) == 0 {
		return fail("plugins.enabled must list at least one extractor")
	}

	switch c.Storage.Type {
	case "local":
	case "cos":
		if c.Storage.Bucket == "" || c.Storage.Region == "" {
			return fail("storage.bucket and storage.region are required for cos storage")
		}
	default:
		return fail(fmt.Sprintf("unsupported storage type: %s", c.Storage.Type))
	}

	if c.Cache.Persist {
		switch c.Cache.Database.Type {
		case "sqlite":
			if c.Cache.Database.Path == "" {
				return fail("cache.database.path is required for sqlite")
			}
		case "mysql", "postgres":
			if c.Cache.Database.Host == "" {
				return fail("cache.database.host is required")
			}
		default:
			return fail(fmt.Sprintf("unsupported cache database type: %s", c.Cache.Database.Type))
		}
	}

	return nil
}

// fingerprintView is the subset of options that change extraction output.
// Reader sizing, logging, and storage transport deliberately stay out: they
// affect performance, not findings.
type fingerprintView struct {
	Strings  StringsConfig     `json:"strings"`
	Include  []string          `json:"include"`
	Custom   map[string]string `json:"custom"`
	Entropy  float64           `json:"entropy"`
	Plugins  []string          `json:"plugins"`
}

// Fingerprint returns a stable digest of the enabled-extractor set and the
// options that influence their output. Cache entries produced under a
// different fingerprint are invalid even for the same dump content.
func (c *Config) Fingerprint() string {
	view := fingerprintView{
		Strings: c.Strings,
		Include: append([]string(nil), c.Patterns.Include...),
		Custom:  c.Patterns.Custom,
		Entropy: c.Security.EntropyThreshold,
		Plugins: append([]string(nil), c.Plugins.Enabled...),
	}
	sort.Strings(view.Include)

	data, err := json.Marshal(view)
	if err != nil {
		// Marshalling a plain struct of strings and numbers cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EffectiveWorkers resolves the configured worker count, 0 meaning
// available parallelism.
func (c *Config) EffectiveWorkers(available int) int {
	if c.Performance.Workers > 0 {
		return c.Performance.Workers
	}
	if available < 1 {
		return 1
	}
	return available
}
