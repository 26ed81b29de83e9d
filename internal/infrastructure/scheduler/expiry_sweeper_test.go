package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloser struct {
	mu      sync.Mutex
	results []int
	err     error
	calls   int
	limits  []int
}

func (f *fakeCloser) CloseExpiredBlocks(_ context.Context, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.results) == 0 {
		return 0, nil
	}
	n := f.results[0]
	f.results = f.results[1:]
	return n, nil
}

func (f *fakeCloser) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNewExpirySweeper_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ExpirySweeperConfig)
	}{
		{"zero interval", func(c *ExpirySweeperConfig) { c.Interval = 0 }},
		{"zero batch size", func(c *ExpirySweeperConfig) { c.BatchSize = 0 }},
		{"zero max batches", func(c *ExpirySweeperConfig) { c.MaxBatches = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultExpirySweeperConfig()
			tt.mutate(&cfg)
			_, err := NewExpirySweeper(cfg, &fakeCloser{}, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestExpirySweeper_Sweep(t *testing.T) {
	cfg := ExpirySweeperConfig{Interval: time.Hour, BatchSize: 2, MaxBatches: 3}

	t.Run("drains full batches until a short one", func(t *testing.T) {
		closer := &fakeCloser{results: []int{2, 2, 1}}
		s, err := NewExpirySweeper(cfg, closer, nil)
		require.NoError(t, err)

		assert.Equal(t, 5, s.Sweep(context.Background()))
		assert.Equal(t, []int{2, 2, 2}, closer.limits)
	})

	t.Run("stops at max batches", func(t *testing.T) {
		closer := &fakeCloser{results: []int{2, 2, 2, 2}}
		s, err := NewExpirySweeper(cfg, closer, nil)
		require.NoError(t, err)

		assert.Equal(t, 6, s.Sweep(context.Background()))
		assert.Equal(t, 3, closer.callCount())
	})

	t.Run("stops on error", func(t *testing.T) {
		closer := &fakeCloser{err: assert.AnError}
		s, err := NewExpirySweeper(cfg, closer, nil)
		require.NoError(t, err)

		assert.Zero(t, s.Sweep(context.Background()))
		assert.Equal(t, 1, closer.callCount())
	})

	t.Run("cancelled context skips the sweep", func(t *testing.T) {
		closer := &fakeCloser{}
		s, err := NewExpirySweeper(cfg, closer, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Zero(t, s.Sweep(ctx))
		assert.Zero(t, closer.callCount())
	})
}

func TestExpirySweeper_StartStop(t *testing.T) {
	closer := &fakeCloser{}
	s, err := NewExpirySweeper(ExpirySweeperConfig{Interval: 5 * time.Millisecond, BatchSize: 10, MaxBatches: 1}, closer, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool { return closer.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "second stop is a no-op")

	stopped := closer.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, closer.callCount(), "no sweeps after Stop")
}
