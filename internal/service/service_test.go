package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumpsleuth/internal/testutil"
	"github.com/dumpsleuth/pkg/config"
	apperrors "github.com/dumpsleuth/pkg/errors"
	"github.com/dumpsleuth/pkg/model"
	"github.com/dumpsleuth/pkg/utils"
)

func newService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Storage.LocalPath = t.TempDir()

	svc, err := New(cfg, &utils.NullLogger{})
	require.NoError(t, err)
	require.NoError(t, svc.Initialize(context.Background()))
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestAnalyzeEndToEnd(t *testing.T) {
	data := testutil.Minidump(testutil.EmbedStrings(64*1024,
		"http://dropper.example.com/stage2",
		`C:\Windows\System32\evil.dll`,
		"backdoor@example.org",
	))
	path := testutil.WriteDump(t, "crash.dmp", data)

	svc := newService(t, nil)
	result, err := svc.Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, model.StatusComplete, result.Status)
	assert.Equal(t, model.FormatWindowsMinidump, result.Dump.Format)
	assert.NotEmpty(t, result.Dump.ContentHash)

	counts := result.CountByCategory()
	assert.Greater(t, counts[model.CategoryURL], 0)
	assert.Greater(t, counts[model.CategoryModuleName], 0)
	assert.Greater(t, counts[model.CategoryEmail], 0)

	// Findings are offset-ordered.
	for i := 1; i < len(result.Findings); i++ {
		assert.LessOrEqual(t, result.Findings[i-1].Offset, result.Findings[i].Offset)
	}
}

func TestAnalyzeCacheHit(t *testing.T) {
	data := testutil.Minidump(testutil.EmbedStrings(32*1024, "cached-content"))
	path := testutil.WriteDump(t, "crash.dmp", data)

	svc := newService(t, nil)
	first, err := svc.Analyze(context.Background(), path)
	require.NoError(t, err)

	second, err := svc.Analyze(context.Background(), path)
	require.NoError(t, err)

	// The cached result is returned as-is.
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
	assert.Equal(t, first.Findings, second.Findings)
}

func TestAnalyzeCacheRespectsContent(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	pathA := testutil.WriteDump(t, "a.dmp", testutil.Minidump(testutil.EmbedStrings(16*1024, "alpha")))
	pathB := testutil.WriteDump(t, "b.dmp", testutil.Minidump(testutil.EmbedStrings(16*1024, "omega")))

	a, err := svc.Analyze(ctx, pathA)
	require.NoError(t, err)
	b, err := svc.Analyze(ctx, pathB)
	require.NoError(t, err)
	assert.NotEqual(t, a.Dump.ContentHash, b.Dump.ContentHash)
}

func TestAnalyzeCacheDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Performance.CacheEnabled = false

	data := testutil.Minidump(testutil.EmbedStrings(16*1024, "no-cache"))
	path := testutil.WriteDump(t, "crash.dmp", data)

	svc := newService(t, cfg)
	first, err := svc.Analyze(context.Background(), path)
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), path)
	require.NoError(t, err)

	// Two independent runs, not one cached result.
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Findings, second.Findings)
}

func TestAnalyzeMissingDumpFails(t *testing.T) {
	svc := newService(t, nil)

	result, err := svc.Analyze(context.Background(), filepath.Join(t.TempDir(), "gone.dmp"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIngestionFailed, apperrors.GetErrorCode(err))
	require.NotNil(t, result)
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Empty(t, result.Findings)
}

func TestInitializeRejectsUnknownPlugin(t *testing.T) {
	cfg := config.Default()
	cfg.Plugins.Enabled = []string{"strings", "nonexistent"}
	cfg.Storage.LocalPath = t.TempDir()

	svc, err := New(cfg, &utils.NullLogger{})
	require.NoError(t, err)

	err = svc.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetErrorCode(err))
}

func TestPluginSelectionNarrowsOutput(t *testing.T) {
	cfg := config.Default()
	cfg.Plugins.Enabled = []string{"strings"}

	data := testutil.Minidump(testutil.EmbedStrings(32*1024, "http://url.example.com"))
	path := testutil.WriteDump(t, "crash.dmp", data)

	svc := newService(t, cfg)
	assert.Equal(t, []string{"strings"}, svc.ListEnabledExtractors())

	result, err := svc.Analyze(context.Background(), path)
	require.NoError(t, err)
	counts := result.CountByCategory()
	assert.Greater(t, counts[model.CategoryString], 0)
	assert.Zero(t, counts[model.CategoryURL])
}

func TestProgressCallback(t *testing.T) {
	data := testutil.Minidump(testutil.EmbedStrings(32*1024, "progress"))
	path := testutil.WriteDump(t, "crash.dmp", data)

	cfg := config.Default()
	cfg.Performance.CacheEnabled = false
	svc := newService(t, cfg)

	var calls int
	var last float64
	svc.SetProgressCallback(func(name string, fraction float64) {
		calls++
		last = fraction
	})

	_, err := svc.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Greater(t, calls, 0)
	assert.InDelta(t, 1.0, last, 0.001)
}

func TestAnalyzeTruncatedDump(t *testing.T) {
	// Header declares a stream directory far past EOF.
	data := append(testutil.MinidumpHeader(128, 1<<24), testutil.EmbedStrings(8*1024, "leftover")...)
	path := testutil.WriteDump(t, "trunc.dmp", data)

	svc := newService(t, nil)
	result, err := svc.Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, result.Dump.Truncated)
	assert.Equal(t, model.StatusPartialRecovered, result.Status)
	assert.NotEmpty(t, result.Findings)
}
