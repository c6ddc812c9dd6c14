package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"SignalPull/internal/services/detector"
	"SignalPull/pkg/logger"
)

func TestSchedulerTicksAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	colors := newTestEngine(t, detector.NewColorSequence(), staticFeed(rollsBody(9, 9)), 0)
	white := newTestEngine(t, detector.NewWhiteTiming(0, time.UTC), staticFeed(rollsBody(0)), 3)
	s := NewScheduler([]*Engine{colors, white}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return colors.Snapshot().Sequence >= 3 && white.Snapshot().Sequence >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, colors.Snapshot().Signal.Active())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.True(t, errors.Is(colors.Tick(context.Background()), ErrEngineClosed))
	seq := white.Snapshot().Sequence
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, seq, white.Snapshot().Sequence)
}

func TestSchedulerFirstTickIsImmediate(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newTestEngine(t, detector.NewColorSequence(), staticFeed(rollsBody(1)), 0)
	e.interval = time.Hour
	s := NewScheduler([]*Engine{e}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return e.Snapshot().Sequence == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
