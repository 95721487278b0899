package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPoolProcessesAllUnits(t *testing.T) {
	pool := NewStreamPool(PoolConfig{MaxWorkers: 4}, func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	ctx := context.Background()
	pool.Start(ctx)

	go func() {
		for i := 0; i < 100; i++ {
			require.True(t, pool.Submit(ctx, i))
		}
		pool.Close()
	}()

	sum := 0
	count := 0
	for res := range pool.Results() {
		require.NoError(t, res.Error)
		sum += res.Result
		count++
	}
	assert.Equal(t, 100, count)
	assert.Equal(t, 9900, sum) // 2 * (0 + 1 + ... + 99)
}

func TestStreamPoolSubmitAfterCancel(t *testing.T) {
	pool := NewStreamPool(PoolConfig{MaxWorkers: 1}, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	cancel()

	assert.False(t, pool.Submit(ctx, 1))
	pool.Close()
	for range pool.Results() {
		t.Fatal("no results expected")
	}
}

func TestStreamPoolReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	pool := NewStreamPool(PoolConfig{MaxWorkers: 2}, func(_ context.Context, n int) (int, error) {
		if n%2 == 0 {
			return 0, boom
		}
		return n, nil
	})
	ctx := context.Background()
	pool.Start(ctx)

	go func() {
		for i := 0; i < 10; i++ {
			pool.Submit(ctx, i)
		}
		pool.Close()
	}()

	var failed int
	for res := range pool.Results() {
		if res.Error != nil {
			assert.ErrorIs(t, res.Error, boom)
			failed++
		}
	}
	assert.Equal(t, 5, failed)
}

func TestForEach(t *testing.T) {
	var total atomic.Int64
	items := []int64{1, 2, 3, 4, 5}

	err := ForEach(context.Background(), items, DefaultPoolConfig(), func(_ context.Context, n int64) error {
		total.Add(n)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), total.Load())
}

func TestForEachPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEach(context.Background(), []int{1, 2, 3}, DefaultPoolConfig(), func(_ context.Context, n int) error {
		if n == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}
