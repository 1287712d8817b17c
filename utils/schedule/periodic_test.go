package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPeriodicRunsAfterDelay(t *testing.T) {
	var runs atomic.Int32
	first := make(chan time.Time, 1)
	start := time.Now()

	p, err := NewPeriodic("test", 50*time.Millisecond, 20*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			first <- time.Now()
		}
		return nil
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case at := <-first:
		assert.GreaterOrEqual(t, at.Sub(start), 50*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestPeriodicSurvivesFailures(t *testing.T) {
	var runs atomic.Int32
	p, err := NewPeriodic("failing", 0, 10*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1)%2 == 0 {
			panic("boom")
		}
		return errors.New("rpc unavailable")
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestPeriodicCancelledDuringDelay(t *testing.T) {
	var runs atomic.Int32
	p, err := NewPeriodic("idle", time.Hour, time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))
	assert.Zero(t, runs.Load())
}

func TestNewPeriodicRejectsZeroInterval(t *testing.T) {
	_, err := NewPeriodic("bad", 0, 0, func(context.Context) error { return nil }, zaptest.NewLogger(t))
	assert.Error(t, err)
}
