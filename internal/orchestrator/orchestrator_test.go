package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumpsleuth/internal/dump"
	"github.com/dumpsleuth/internal/extractor"
	"github.com/dumpsleuth/internal/testutil"
	"github.com/dumpsleuth/pkg/config"
	"github.com/dumpsleuth/pkg/model"
)

func openDump(t *testing.T, data []byte, chunkSize int) *dump.Reader {
	t.Helper()
	path := testutil.WriteDump(t, "input.dmp", data)
	opts := dump.DefaultOptions()
	if chunkSize > 0 {
		opts.ChunkSize = chunkSize
		opts.Overlap = 64
	}
	r, err := dump.Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRunProducesFindings(t *testing.T) {
	data := testutil.EmbedStrings(64*1024,
		"http://malware.example.com/drop",
		"192.168.0.77",
		`HKLM\Software\Microsoft\Windows\CurrentVersion\Run\Bad`,
	)
	reader := openDump(t, data, 0)

	orch := New(config.Default(), extractor.Defaults())
	result, err := orch.Run(context.Background(), reader)
	require.NoError(t, err)

	assert.Equal(t, model.StatusComplete, result.Status)
	counts := result.CountByCategory()
	assert.Greater(t, counts[model.CategoryURL], 0)
	assert.Greater(t, counts[model.CategoryIP], 0)
	assert.Greater(t, counts[model.CategoryRegistryKey], 0)
	assert.Greater(t, counts[model.CategoryString], 0)
}

func TestRunDeterministic(t *testing.T) {
	data := testutil.EmbedStrings(256*1024,
		"http://one.example.com", "http://two.example.com",
		"10.1.2.3", "admin@example.org", "kernel32.dll",
	)
	cfg := config.Default()
	cfg.Performance.Workers = 4

	run := func() *model.AnalysisResult {
		reader := openDump(t, data, 32*1024)
		result, err := New(cfg, extractor.Defaults()).Run(context.Background(), reader)
		require.NoError(t, err)
		return result
	}

	a := run()
	b := run()
	assert.Equal(t, a.Findings, b.Findings)
	assert.Equal(t, a.Status, b.Status)
}

func TestRunDeduplicatesAcrossChunks(t *testing.T) {
	// The same URL at two offsets, the second inside a later chunk.
	value := "http://repeat.example.com"
	data := make([]byte, 128*1024)
	copy(data[100:], value)
	copy(data[100*1024:], value)

	cfg := config.Default()
	reader := openDump(t, data, 32*1024)
	result, err := New(cfg, extractor.Defaults()).Run(context.Background(), reader)
	require.NoError(t, err)

	var urls []model.Finding
	for _, f := range result.Findings {
		if f.Category == model.CategoryURL {
			urls = append(urls, f)
		}
	}
	require.Len(t, urls, 1)
	assert.Equal(t, int64(100), urls[0].Offset)
}

func TestRunOverlapCatchesBoundarySpanningMatch(t *testing.T) {
	// Place a URL straddling the 32KB chunk boundary; the overlap region
	// lets the second-chunk scan see it whole, and the first chunk's
	// extended window does too.
	value := "http://boundary.example.com/long/path"
	data := make([]byte, 96*1024)
	copy(data[32*1024-10:], value)

	reader := openDump(t, data, 32*1024)
	result, err := New(config.Default(), extractor.Defaults()).Run(context.Background(), reader)
	require.NoError(t, err)

	var found bool
	for _, f := range result.Findings {
		if f.Category == model.CategoryURL && f.Value == value {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunOnlyStringsExtractor(t *testing.T) {
	data := testutil.EmbedStrings(64*1024, "http://should-not-classify.example.com")
	cfg := config.Default()

	registry := extractor.Defaults()
	registry.DisableAll()
	registry.Enable("strings")

	reader := openDump(t, data, 0)
	result, err := New(cfg, registry).Run(context.Background(), reader)
	require.NoError(t, err)

	assert.Equal(t, []string{"strings"}, result.Extractors)
	counts := result.CountByCategory()
	assert.Greater(t, counts[model.CategoryString], 0)
	assert.Zero(t, counts[model.CategoryURL])
	assert.Zero(t, counts[model.CategoryRegistryKey])
}

func TestRunCancelled(t *testing.T) {
	data := testutil.RandomBytes(t, 256*1024)
	reader := openDump(t, data, 32*1024)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(config.Default(), extractor.Defaults()).Run(ctx, reader)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartialRecovered, result.Status)
}

type failingExtractor struct {
	mu    sync.Mutex
	calls int
}

func (f *failingExtractor) Descriptor() extractor.Descriptor {
	return extractor.Descriptor{Name: "flaky"}
}

func (f *failingExtractor) Extract(context.Context, dump.Chunk, *extractor.Env) ([]model.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, errors.New("scan failed")
}

func TestRunRecordsUnitFailures(t *testing.T) {
	data := testutil.EmbedStrings(64*1024, "still scanned")
	cfg := config.Default()
	cfg.Performance.Retries = 2

	flaky := &failingExtractor{}
	registry := extractor.NewRegistry()
	registry.Register(extractor.NewStringsExtractor())
	registry.Register(flaky)

	reader := openDump(t, data, 0)
	result, err := New(cfg, registry).Run(context.Background(), reader)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPartialRecovered, result.Status)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "flaky", result.Failures[0].Extractor)
	assert.Equal(t, 3, result.Failures[0].Attempts)
	assert.Equal(t, 3, flaky.calls)

	// The healthy extractor still contributed.
	assert.Greater(t, result.CountByCategory()[model.CategoryString], 0)
}

type panickyExtractor struct{}

func (panickyExtractor) Descriptor() extractor.Descriptor {
	return extractor.Descriptor{Name: "panicky"}
}

func (panickyExtractor) Extract(context.Context, dump.Chunk, *extractor.Env) ([]model.Finding, error) {
	panic("blew up")
}

func TestRunContainsPanics(t *testing.T) {
	data := testutil.EmbedStrings(64*1024, "survives panic")
	registry := extractor.NewRegistry()
	registry.Register(extractor.NewStringsExtractor())
	registry.Register(panickyExtractor{})

	reader := openDump(t, data, 0)
	result, err := New(config.Default(), registry).Run(context.Background(), reader)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPartialRecovered, result.Status)
	require.NotEmpty(t, result.Failures)
	assert.Contains(t, result.Failures[0].Error, "panicked")
}

func TestRunProgressReporting(t *testing.T) {
	data := testutil.RandomBytes(t, 128*1024)
	reader := openDump(t, data, 32*1024)

	var mu sync.Mutex
	var fractions []float64
	orch := New(config.Default(), extractor.Defaults(),
		WithProgress(func(name string, fraction float64) {
			mu.Lock()
			defer mu.Unlock()
			assert.NotEmpty(t, name)
			fractions = append(fractions, fraction)
		}))

	_, err := orch.Run(context.Background(), reader)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	// 4 chunks x 5 extractors.
	require.Len(t, fractions, 20)
	for i := 1; i < len(fractions); i++ {
		assert.Greater(t, fractions[i], fractions[i-1])
	}
	assert.InDelta(t, 1.0, fractions[len(fractions)-1], 0.001)
}

func TestRunSurvivesPanickyProgressCallback(t *testing.T) {
	data := testutil.EmbedStrings(64*1024, "callback panic is contained")
	reader := openDump(t, data, 0)

	orch := New(config.Default(), extractor.Defaults(),
		WithProgress(func(string, float64) { panic("observer bug") }))

	result, err := orch.Run(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, result.Status)
}

func TestRunTruncatedDumpIsPartial(t *testing.T) {
	// A minidump whose declared stream directory lies past EOF.
	header := testutil.MinidumpHeader(64, 1<<20)
	data := append(header, testutil.EmbedStrings(8*1024, "salvaged text")...)

	reader := openDump(t, data, 0)
	result, err := New(config.Default(), extractor.Defaults()).Run(context.Background(), reader)
	require.NoError(t, err)

	assert.True(t, result.Dump.Truncated)
	assert.Equal(t, model.StatusPartialRecovered, result.Status)
	assert.Greater(t, result.CountByCategory()[model.CategoryString], 0)
}
