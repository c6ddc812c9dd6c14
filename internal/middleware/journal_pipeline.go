package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalPull/internal/domain/models"
	domrepo "SignalPull/internal/domain/repository"
	svccache "SignalPull/internal/service/cache"
	"SignalPull/pkg/logger"
)

const (
	minBackoff = 50 * time.Millisecond
	maxBackoff = 2 * time.Second
)

// JournalPipeline sits between the engines and the outcome store.
// It accepts live windows, drops outcomes it has already seen, and writes new
// ones in batches from a background loop, so a slow store never blocks a tick.
type JournalPipeline struct {
	store   domrepo.OutcomeStore
	metrics domrepo.Metrics
	log     *logger.Logger
	seen    *svccache.TTLCache

	bufSize       int
	batchSize     int
	flushInterval time.Duration
	dedupeTTL     time.Duration

	bufCh   chan models.OutcomeEvent
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
	stopped bool
}

type PipelineOption func(*JournalPipeline)

// WithBufferSize sets how many outcomes may wait for the store.
func WithBufferSize(n int) PipelineOption {
	return func(p *JournalPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatch sets the batch size and the longest time a partial batch waits.
func WithBatch(size int, every time.Duration) PipelineOption {
	return func(p *JournalPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if every > 0 {
			p.flushInterval = every
		}
	}
}

// WithDedupeTTL sets how long an outcome id is remembered.
func WithDedupeTTL(d time.Duration) PipelineOption {
	return func(p *JournalPipeline) {
		if d > 0 {
			p.dedupeTTL = d
		}
	}
}

// NewJournalPipeline creates a new pipeline.
func NewJournalPipeline(store domrepo.OutcomeStore, seen *svccache.TTLCache, metrics domrepo.Metrics, log *logger.Logger, opts ...PipelineOption) *JournalPipeline {
	p := &JournalPipeline{
		store:         store,
		metrics:       metrics,
		log:           log,
		seen:          seen,
		bufSize:       256,
		batchSize:     100,
		flushInterval: 2 * time.Second,
		dedupeTTL:     time.Hour,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.OutcomeEvent, p.bufSize)
	return p
}

func (p *JournalPipeline) Name() string { return "outcome_journal" }

// Publish enqueues the unseen outcomes of a live window. It never blocks.
func (p *JournalPipeline) Publish(_ context.Context, snap models.Snapshot) error {
	if snap.Source != models.SourceLive {
		return nil
	}
	var dropped int
	for _, e := range snap.Window {
		if err := validateOutcome(e); err != nil {
			p.metrics.RecordError("journal_validate")
			continue
		}
		if !p.seen.SetIfAbsent(e.ID, struct{}{}, p.dedupeTTL) {
			continue
		}
		select {
		case p.bufCh <- e:
		default:
			// Forget it so the next window offers it again.
			p.seen.Delete(e.ID)
			dropped++
		}
	}
	if dropped > 0 {
		p.metrics.RecordError("journal_buffer_full")
		return fmt.Errorf("journal buffer full: %d outcomes deferred", dropped)
	}
	return nil
}

// Start launches background flushing of buffered outcomes. A pipeline runs
// once; Start after Stop does nothing.
func (p *JournalPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop stops the loop after a last flush attempt and waits for it.
func (p *JournalPipeline) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

func (p *JournalPipeline) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	batch := make([]models.OutcomeEvent, 0, p.batchSize)
	backoff := minBackoff

	flush := func(fctx context.Context) bool {
		if len(batch) == 0 {
			return true
		}
		start := time.Now()
		if err := p.store.StoreBatch(fctx, batch); err != nil {
			p.metrics.RecordError("journal_flush")
			p.log.Warn("journal flush failed", logger.Int("pending", len(batch)), logger.Error(err))
			return false
		}
		p.metrics.RecordLatency("journal_flush", time.Since(start).Seconds())
		batch = batch[:0]
		backoff = minBackoff
		return true
	}
	finish := func() {
		p.drain(&batch)
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		flush(fctx)
	}

	for {
		select {
		case <-p.stopCh:
			finish()
			return
		case <-ctx.Done():
			return
		case e := <-p.bufCh:
			batch = append(batch, e)
			if len(batch) < p.batchSize {
				continue
			}
		case <-ticker.C:
			p.seen.Purge()
		}

		// The batch is retried with capped exponential backoff. Publish
		// defers new outcomes once the buffer fills meanwhile.
		for !flush(ctx) {
			select {
			case <-time.After(backoff):
			case <-p.stopCh:
				finish()
				return
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}
}

// drain moves whatever is buffered into batch.
func (p *JournalPipeline) drain(batch *[]models.OutcomeEvent) {
	for {
		select {
		case e := <-p.bufCh:
			*batch = append(*batch, e)
		default:
			return
		}
	}
}

func validateOutcome(e models.OutcomeEvent) error {
	if e.ID == "" {
		return fmt.Errorf("id empty")
	}
	if e.Roll < 0 || e.Roll > 14 {
		return fmt.Errorf("roll out of range")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("timestamp missing")
	}
	return nil
}
