package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSweeper(t *testing.T) {
	t.Run("rejects non-positive interval", func(t *testing.T) {
		_, err := NewSweeper(SweeperConfig{Interval: 0, Timeout: time.Minute}, func(context.Context) error { return nil }, zap.NewNop())
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects non-positive timeout", func(t *testing.T) {
		_, err := NewSweeper(SweeperConfig{Interval: time.Minute, Timeout: 0}, func(context.Context) error { return nil }, zap.NewNop())
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestSweeperLifecycle(t *testing.T) {
	t.Run("runs an initial sweep on start", func(t *testing.T) {
		var count atomic.Int32
		s, err := NewSweeper(SweeperConfig{Interval: time.Hour, Timeout: time.Minute}, func(context.Context) error {
			count.Add(1)
			return nil
		}, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, s.Start(context.Background()))
		assert.Eventually(t, func() bool { return count.Load() >= 1 }, time.Second, 10*time.Millisecond)
		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("start is idempotent", func(t *testing.T) {
		s, err := NewSweeper(SweeperConfig{Interval: time.Hour, Timeout: time.Minute}, func(context.Context) error { return nil }, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("stop on a stopped sweeper is a no-op", func(t *testing.T) {
		s, err := NewSweeper(SweeperConfig{Interval: time.Hour, Timeout: time.Minute}, func(context.Context) error { return nil }, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("trigger on a stopped sweeper fails", func(t *testing.T) {
		s, err := NewSweeper(SweeperConfig{Interval: time.Hour, Timeout: time.Minute}, func(context.Context) error { return nil }, zap.NewNop())
		require.NoError(t, err)
		require.ErrorIs(t, s.TriggerNow(context.Background()), ErrSweeperNotRunning)
	})

	t.Run("manual trigger runs a sweep", func(t *testing.T) {
		var count atomic.Int32
		s, err := NewSweeper(SweeperConfig{Interval: time.Hour, Timeout: time.Minute}, func(context.Context) error {
			count.Add(1)
			return nil
		}, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, s.Start(context.Background()))
		assert.Eventually(t, func() bool { return count.Load() >= 1 }, time.Second, 10*time.Millisecond)

		before := count.Load()
		require.NoError(t, s.TriggerNow(context.Background()))
		assert.Equal(t, before+1, count.Load())

		require.NoError(t, s.Stop(context.Background()))
	})

	t.Run("overlapping sweep is rejected", func(t *testing.T) {
		block := make(chan struct{})
		started := make(chan struct{})
		s, err := NewSweeper(SweeperConfig{Interval: time.Hour, Timeout: time.Minute}, func(ctx context.Context) error {
			close(started)
			select {
			case <-block:
			case <-ctx.Done():
			}
			return nil
		}, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, s.Start(context.Background()))
		<-started

		assert.ErrorIs(t, s.TriggerNow(context.Background()), ErrSweepInProgress)
		close(block)
		require.NoError(t, s.Stop(context.Background()))
	})
}
