package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalPull/internal/domain/models"
	"SignalPull/pkg/cache"
)

type sent struct {
	topic string
	key   string
	value []byte
}

type fakeProducer struct {
	msgs   []sent
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.msgs = append(f.msgs, sent{topic: topic, key: string(key), value: b})
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func activeSnapshot(tr models.Transition) models.Snapshot {
	return models.Snapshot{
		Strategy: models.StrategyColors,
		Signal: models.Signal{
			ID:         "sig-1",
			Strategy:   models.StrategyColors,
			Prediction: &models.Prediction{Category: models.Red},
			Confidence: 91,
			Popularity: 40,
			State:      models.StateActive,
		},
		Transition: tr,
		UpdatedAt:  time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestSignalEventSinkPublishesTransitionsOnly(t *testing.T) {
	fp := &fakeProducer{}
	pub := NewKafkaSignalPublisher(fp, "signals")
	sink := NewSignalEventSink(pub)

	require.NoError(t, sink.Publish(context.Background(), activeSnapshot(models.TransitionNone)))
	require.NoError(t, sink.Publish(context.Background(), activeSnapshot(models.TransitionActivated)))

	require.Len(t, fp.msgs, 1)
	msg := fp.msgs[0]
	assert.Equal(t, "signals", msg.topic)
	assert.Equal(t, "colors", msg.key)
	assert.JSONEq(t, `{
		"signal_id":"sig-1","strategy":"colors","transition":"activated",
		"prediction":"red","confidence":91,"popularity":40,"at":"2024-10-10T12:00:00Z"
	}`, string(msg.value))

	require.NoError(t, pub.Close())
	assert.True(t, fp.closed)
}

func TestSnapshotCache(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	sc := NewSnapshotCache(mc, time.Minute)

	_, err := sc.Load(ctx, models.StrategyWhite)
	assert.True(t, errors.Is(err, cache.ErrCacheMiss))

	snap := activeSnapshot(models.TransitionActivated)
	snap.Window = models.OutcomeWindow{{ID: "x", Roll: 3, Category: models.Red, OccurredAt: snap.UpdatedAt}}
	require.NoError(t, sc.Publish(ctx, snap))

	got, err := sc.Load(ctx, models.StrategyColors)
	require.NoError(t, err)
	assert.Equal(t, snap.Signal.ID, got.Signal.ID)
	assert.Equal(t, models.Red, got.Signal.Prediction.Category)
	require.Len(t, got.Window, 1)
	assert.True(t, snap.Window[0].OccurredAt.Equal(got.Window[0].OccurredAt))

	all, err := sc.LoadAll(ctx, models.StrategyColors, models.StrategyWhite)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, models.StrategyColors)
}
