package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/services/detector"
)

func TestEngineNoSignalOnMixedSequence(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, detector.NewColorSequence(), staticFeed(rollsBody(8, 2, 3, 9, 1, 0, 5, 6, 7)), 0, sink)

	require.NoError(t, e.Tick(context.Background()))

	snap := e.Snapshot()
	assert.Equal(t, []models.Category{
		models.Black, models.Red, models.Red, models.Black, models.Red,
		models.White, models.Red, models.Black, models.Red,
	}, snap.Window.Categories())
	assert.Equal(t, models.SourceLive, snap.Source)
	assert.False(t, snap.Signal.Active())
	assert.Equal(t, models.TransitionNone, snap.Transition)
	require.Len(t, sink.all(), 1)
}

func TestEngineActivatesOnFourRule(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, detector.NewColorSequence(), staticFeed(rollsBody(3, 9, 10, 11, 4, 0)), 0, sink)

	require.NoError(t, e.Tick(context.Background()))

	snap := e.Snapshot()
	require.True(t, snap.Signal.Active())
	assert.Equal(t, models.Red, snap.Signal.Prediction.Category)
	assert.Equal(t, models.TransitionActivated, snap.Transition)
	assertInRanges(t, snap.Signal)
	assert.Equal(t, uint64(1), snap.Sequence)
}

func TestEngineIdempotentAcrossTicks(t *testing.T) {
	e := newTestEngine(t, detector.NewColorSequence(), staticFeed(rollsBody(9, 9, 1)), 0)

	require.NoError(t, e.Tick(context.Background()))
	first := e.Snapshot().Signal
	require.True(t, first.Active())

	for i := 0; i < 10; i++ {
		require.NoError(t, e.Tick(context.Background()))
		snap := e.Snapshot()
		assert.Equal(t, models.TransitionNone, snap.Transition)
		assert.Equal(t, first, snap.Signal)
	}
}

func TestEngineReplaceThenClear(t *testing.T) {
	var step atomic.Int32
	bodies := [][]byte{
		rollsBody(9, 9, 1),    // black black -> red
		rollsBody(1, 1, 9),    // red red -> black
		rollsBody(1, 9, 1, 9), // nothing
	}
	feed := feedFunc(func(context.Context) ([]byte, error) {
		return bodies[step.Load()], nil
	})
	e := newTestEngine(t, detector.NewColorSequence(), feed, 0)

	require.NoError(t, e.Tick(context.Background()))
	assert.Equal(t, models.Red, e.Snapshot().Signal.Prediction.Category)

	step.Store(1)
	require.NoError(t, e.Tick(context.Background()))
	snap := e.Snapshot()
	assert.Equal(t, models.TransitionReplaced, snap.Transition)
	assert.Equal(t, models.Black, snap.Signal.Prediction.Category)
	assertInRanges(t, snap.Signal)

	step.Store(2)
	require.NoError(t, e.Tick(context.Background()))
	snap = e.Snapshot()
	assert.Equal(t, models.TransitionCleared, snap.Transition)
	assert.False(t, snap.Signal.Active())
	assert.Equal(t, 0, snap.Signal.Popularity)
}

func TestEngineFallbackStillDetects(t *testing.T) {
	feed := feedFunc(func(context.Context) ([]byte, error) {
		return nil, models.ErrFeedUnavailable
	})
	e := newTestEngine(t, detector.NewColorSequence(), feed, 0)

	require.NoError(t, e.Tick(context.Background()))
	require.NoError(t, e.Tick(context.Background()))
	snap := e.Snapshot()
	assert.Equal(t, models.SourceSynthetic, snap.Source)
	assert.Len(t, snap.Window, models.MaxWindowSize)
	assert.Equal(t, 2, snap.ConsecutiveFallbacks)
}

func TestEngineWhiteTimingOnDemand(t *testing.T) {
	sink := &recordingSink{}
	// Newest white sits at index 2, i.e. 11:59:00 UTC.
	e := newTestEngine(t, detector.NewWhiteTiming(0, time.UTC), staticFeed(rollsBody(3, 9, 0, 4)), 3, sink)

	require.NoError(t, e.Tick(context.Background()))
	assert.False(t, e.Snapshot().Signal.Active(), "manual strategy must not activate on tick")

	ok, snap, err := e.RequestTimingSignal(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, snap.Signal.Active())
	assert.Equal(t, "12:12", snap.Signal.Prediction.String())
	assert.Equal(t, 3, snap.Signal.Popularity)
	assert.Equal(t, models.TransitionActivated, snap.Transition)

	published := len(sink.all())
	ok, again, err := e.RequestTimingSignal(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.TransitionRefreshed, again.Transition)
	assert.Equal(t, snap.Signal.ID, again.Signal.ID)
	assert.Equal(t, "12:12", again.Signal.Prediction.String())
	assert.Greater(t, again.Sequence, snap.Sequence)
	assert.Len(t, sink.all(), published+1)

	snap, err = e.Dismiss(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Signal.Active())
	assert.Equal(t, models.TransitionDismissed, snap.Transition)
}

func TestEngineWhiteTimingWithoutWhite(t *testing.T) {
	e := newTestEngine(t, detector.NewWhiteTiming(0, time.UTC), staticFeed(rollsBody(3, 9, 4)), 3)

	ok, snap, err := e.RequestTimingSignal(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, snap.Signal.Active())

	require.NoError(t, e.Tick(context.Background()))
	ok, _, err = e.RequestTimingSignal(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngineTimingOnTickStrategy(t *testing.T) {
	e := newTestEngine(t, detector.NewColorSequence(), staticFeed(rollsBody(1)), 0)
	_, _, err := e.RequestTimingSignal(context.Background())
	assert.True(t, errors.Is(err, ErrNotManual))
}

func TestEngineDismissColors(t *testing.T) {
	e := newTestEngine(t, detector.NewColorSequence(), staticFeed(rollsBody(1, 1)), 0)

	snap, err := e.Dismiss(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), snap.Sequence)

	require.NoError(t, e.Tick(context.Background()))
	snap, err = e.Dismiss(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Signal.Active())

	require.NoError(t, e.Tick(context.Background()))
	assert.Equal(t, models.TransitionActivated, e.Snapshot().Transition)
}

func TestEngineClosed(t *testing.T) {
	e := newTestEngine(t, detector.NewColorSequence(), staticFeed(rollsBody(1, 1)), 0)
	e.Close()

	assert.True(t, errors.Is(e.Tick(context.Background()), ErrEngineClosed))
	_, err := e.Dismiss(context.Background())
	assert.True(t, errors.Is(err, ErrEngineClosed))
}

func TestEngineSnapshotIsolation(t *testing.T) {
	e := newTestEngine(t, detector.NewColorSequence(), staticFeed(rollsBody(1, 1)), 0)
	require.NoError(t, e.Tick(context.Background()))

	snap := e.Snapshot()
	snap.Window[0].Roll = 14
	assert.Equal(t, 1, e.Snapshot().Window[0].Roll)
}
