package repository

import (
	"context"
	"time"

	"SignalPull/internal/domain/models"
	domrepo "SignalPull/internal/domain/repository"
	"SignalPull/pkg/cache"
)

const snapshotKeyPrefix = "snapshot"

// SnapshotCache keeps the latest snapshot per strategy in the cache service,
// so other processes can read signals without talking to the engine.
type SnapshotCache struct {
	c   cache.Service
	ttl time.Duration
}

// NewSnapshotCache creates a snapshot store; entries expire after ttl.
func NewSnapshotCache(c cache.Service, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{c: c, ttl: ttl}
}

var _ domrepo.SnapshotStore = (*SnapshotCache)(nil)
var _ domrepo.SnapshotSink = (*SnapshotCache)(nil)

func snapshotKey(s models.Strategy) string {
	return cache.GenerateKey(snapshotKeyPrefix, string(s))
}

func (s *SnapshotCache) Save(ctx context.Context, snap models.Snapshot) error {
	return s.c.Set(ctx, snapshotKey(snap.Strategy), snap, s.ttl)
}

// Load returns cache.ErrCacheMiss when no snapshot was saved.
func (s *SnapshotCache) Load(ctx context.Context, strategy models.Strategy) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := s.c.Get(ctx, snapshotKey(strategy), &snap); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

// LoadAll returns the saved snapshots of the given strategies, skipping missing ones.
func (s *SnapshotCache) LoadAll(ctx context.Context, strategies ...models.Strategy) (map[models.Strategy]models.Snapshot, error) {
	keys := make([]string, len(strategies))
	for i, st := range strategies {
		keys[i] = snapshotKey(st)
	}
	raw, err := cache.MGetTyped[models.Snapshot](ctx, s.c, keys...)
	if err != nil {
		return nil, err
	}
	out := make(map[models.Strategy]models.Snapshot, len(raw))
	for _, snap := range raw {
		out[snap.Strategy] = snap
	}
	return out, nil
}

func (s *SnapshotCache) Name() string { return "snapshot_cache" }

func (s *SnapshotCache) Publish(ctx context.Context, snap models.Snapshot) error {
	return s.Save(ctx, snap)
}
