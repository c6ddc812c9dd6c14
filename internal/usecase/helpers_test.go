package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	domsvc "SignalPull/internal/domain/service"
	"SignalPull/internal/services/outcome"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/metrics"
)

var testClock = time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testClock }

type feedFunc func(ctx context.Context) ([]byte, error)

func (f feedFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

func staticFeed(body []byte) drepo.ResultFeed {
	return feedFunc(func(context.Context) ([]byte, error) { return body, nil })
}

// rollsBody renders rolls newest first as a bare feed array.
func rollsBody(rolls ...int) []byte {
	items := make([]map[string]any, len(rolls))
	for i, r := range rolls {
		cat, _ := models.Normalize(r)
		items[i] = map[string]any{
			"id":         fmt.Sprintf("r%d", i),
			"roll":       r,
			"color":      cat.Code(),
			"created_at": testClock.Add(-time.Duration(i) * 30 * time.Second).Format(time.RFC3339),
		}
	}
	b, _ := json.Marshal(items)
	return b
}

// boundRand always returns v clamped to [0, n).
type boundRand int

func (b boundRand) IntN(n int) int { return min(int(b), n-1) }

type countingMetrics struct {
	metrics.Nop
	mu          sync.Mutex
	stale       int
	fallbacks   map[string]int
	transitions []string
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{fallbacks: map[string]int{}}
}

func (m *countingMetrics) RecordStaleResponse(string) {
	m.mu.Lock()
	m.stale++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordFallback(_ string, reason string) {
	m.mu.Lock()
	m.fallbacks[reason]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordTransition(_ string, tr string) {
	m.mu.Lock()
	m.transitions = append(m.transitions, tr)
	m.mu.Unlock()
}

func (m *countingMetrics) staleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []models.Snapshot
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	s.snaps = append(s.snaps, snap)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) all() []models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Snapshot(nil), s.snaps...)
}

func newTestPoller(feed drepo.ResultFeed, timeout time.Duration, m drepo.Metrics) *ResultPoller {
	synth := outcome.NewSynthesizer(rand.New(rand.NewPCG(3, 5)))
	return NewResultPoller(models.StrategyColors, feed, synth, timeout, fixedNow, logger.Nop(), m)
}

func newTestEngine(t *testing.T, det domsvc.Detector, feed drepo.ResultFeed, fixedPopularity int, sinks ...drepo.SnapshotSink) *Engine {
	t.Helper()
	m := metrics.Nop{}
	synth := outcome.NewSynthesizer(rand.New(rand.NewPCG(3, 5)))
	poller := NewResultPoller(det.Strategy(), feed, synth, time.Second, fixedNow, logger.Nop(), m)
	lc := NewSignalLifecycle(det.Strategy(), rand.New(rand.NewPCG(1, 2)), fixedNow, fixedPopularity)
	e := NewEngine(10*time.Millisecond, det, poller, lc, sinks, fixedNow, logger.Nop(), m)
	t.Cleanup(e.Close)
	return e
}
