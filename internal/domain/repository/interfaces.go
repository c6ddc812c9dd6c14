package repository

import (
	"context"

	"SignalPull/internal/domain/models"
)

// ResultFeed fetches the raw body of the latest outcome window.
type ResultFeed interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SnapshotSink receives every published snapshot.
type SnapshotSink interface {
	Name() string
	Publish(ctx context.Context, s models.Snapshot) error
}

// SignalPublisher emits signal transition events.
type SignalPublisher interface {
	PublishEvent(ctx context.Context, ev models.SignalEvent) error
	Close() error
}

// OutcomeStore journals live outcome events.
type OutcomeStore interface {
	StoreBatch(ctx context.Context, events []models.OutcomeEvent) error
	Recent(ctx context.Context, limit int) ([]models.OutcomeEvent, error)
	Health(ctx context.Context) error
	Close() error
}

// SnapshotStore keeps the latest snapshot per strategy for other readers.
type SnapshotStore interface {
	Save(ctx context.Context, s models.Snapshot) error
	Load(ctx context.Context, strategy models.Strategy) (models.Snapshot, error)
	LoadAll(ctx context.Context, strategies ...models.Strategy) (map[models.Strategy]models.Snapshot, error)
}

// RandSource is the randomness used for presentation values and synthetic data.
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

type Metrics interface {
	RecordTick(strategy, source string)
	RecordFallback(strategy, reason string)
	SetConsecutiveFallbacks(strategy string, n int)
	RecordIntegrityWarning(strategy, kind string)
	RecordStaleResponse(strategy string)
	RecordTransition(strategy, transition string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
