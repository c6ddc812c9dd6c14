package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/repository"
	"SignalPull/pkg/cache"
)

func TestConfigCheck(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "check", "--config", filepath.Join("..", "..", "config", "config.yaml")})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "journal=sqlite")
}

func TestConfigCheckMissingFile(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"config", "check", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, rootCmd.Execute())
}

func TestSnapshotsWithoutServer(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"snapshots", "--config", filepath.Join("..", "..", "config", "config.yaml")})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "colors: no snapshot")
	assert.Contains(t, out.String(), "white: no snapshot")
}

func TestPrintSnapshots(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := repository.NewSnapshotCache(mc, time.Minute)

	ctx := context.Background()
	at := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, models.Snapshot{
		Strategy:  models.StrategyColors,
		Source:    models.SourceLive,
		Sequence:  7,
		Signal:    models.Signal{ID: "sig-1", State: models.StateActive},
		UpdatedAt: at,
	}))

	var all bytes.Buffer
	require.NoError(t, printSnapshots(ctx, &all, store, []models.Strategy{models.StrategyColors, models.StrategyWhite}))
	assert.Contains(t, all.String(), "colors: seq=7 source=live state=active signal=sig-1")
	assert.Contains(t, all.String(), "white: no snapshot")

	var one bytes.Buffer
	require.NoError(t, printSnapshots(ctx, &one, store, []models.Strategy{models.StrategyColors}))
	assert.Contains(t, one.String(), "updated=2024-10-10T12:00:00Z")

	one.Reset()
	require.NoError(t, printSnapshots(ctx, &one, store, []models.Strategy{models.StrategyWhite}))
	assert.Equal(t, "white: no snapshot\n", one.String())
}
