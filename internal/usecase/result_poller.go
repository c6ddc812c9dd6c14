package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	"SignalPull/internal/service/blaze"
	"SignalPull/internal/services/outcome"
	"SignalPull/pkg/logger"
)

var (
	// ErrPollerClosed is returned by Poll after Close.
	ErrPollerClosed = errors.New("poller closed")
	// ErrStaleResponse is returned when a newer fetch was issued before this one resolved.
	ErrStaleResponse = errors.New("stale response")

	errFetchExpired = errors.New("fetch outlived its deadline")
)

// Fallback reasons.
const (
	ReasonUnavailable = "unavailable"
	ReasonMalformed   = "malformed"
	ReasonTimeout     = "timeout"
)

const flightKey = "fetch"

// fetchGrace multiplies the poll timeout to bound the fetch itself. Poll's
// timer always fires first and owns the timeout fallback.
const fetchGrace = 2

// PollResult is one applied window.
type PollResult struct {
	Window               models.OutcomeWindow
	Source               models.WindowSource
	Token                uint64
	Reason               string // fallback reason, empty for live windows
	Warnings             []outcome.Warning
	ConsecutiveFallbacks int
	FetchedAt            time.Time
}

// ResultPoller fetches the outcome window for one strategy. At most one fetch
// is in flight; concurrent Poll calls share it. Every fetch carries a token and
// only the latest issued token is ever applied.
type ResultPoller struct {
	strategy string
	feed     drepo.ResultFeed
	synth    *outcome.Synthesizer
	timeout  time.Duration
	now      func() time.Time
	log      *logger.Logger
	metrics  drepo.Metrics

	sf     singleflight.Group
	issued atomic.Uint64
	life   context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	current   PollResult
	fallbacks int
}

// NewResultPoller creates a poller. timeout bounds one fetch.
func NewResultPoller(strategy models.Strategy, feed drepo.ResultFeed, synth *outcome.Synthesizer, timeout time.Duration, now func() time.Time, log *logger.Logger, metrics drepo.Metrics) *ResultPoller {
	if now == nil {
		now = time.Now
	}
	life, cancel := context.WithCancel(context.Background())
	return &ResultPoller{
		strategy: string(strategy),
		feed:     feed,
		synth:    synth,
		timeout:  timeout,
		now:      now,
		log:      log.With(logger.String("strategy", string(strategy))),
		metrics:  metrics,
		life:     life,
		cancel:   cancel,
	}
}

// Poll returns the next window. A fetch that does not resolve within the
// timeout degrades to a synthetic window under a fresh token, so its late
// response is discarded. Cancelling ctx abandons the wait but not the fetch.
func (p *ResultPoller) Poll(ctx context.Context) (PollResult, error) {
	if p.isClosed() {
		return PollResult{}, ErrPollerClosed
	}

	ch := p.sf.DoChan(flightKey, func() (interface{}, error) {
		return p.fetch()
	})

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if errors.Is(r.Err, errFetchExpired) {
			return p.timedOut()
		}
		if r.Err != nil {
			return PollResult{}, r.Err
		}
		return r.Val.(PollResult), nil
	case <-timer.C:
		return p.timedOut()
	case <-ctx.Done():
		return PollResult{}, ctx.Err()
	}
}

// timedOut degrades to a synthetic window under a fresh token.
func (p *ResultPoller) timedOut() (PollResult, error) {
	p.sf.Forget(flightKey)
	token := p.issued.Add(1)
	p.log.Warn("feed fetch timed out", logger.Uint64("token", token), logger.Duration("timeout_ms", p.timeout))
	return p.apply(p.fallback(token, ReasonTimeout))
}

// Current returns the last applied result.
func (p *ResultPoller) Current() PollResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.current
	r.Window = r.Window.Clone()
	return r
}

// Close cancels any in-flight fetch. Nothing is applied afterwards.
func (p *ResultPoller) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
}

func (p *ResultPoller) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *ResultPoller) fetch() (PollResult, error) {
	token := p.issued.Add(1)
	ctx, cancel := context.WithTimeout(p.life, fetchGrace*p.timeout)
	defer cancel()

	start := time.Now()
	body, err := p.feed.Fetch(ctx)
	p.metrics.RecordLatency("feed_fetch", time.Since(start).Seconds())

	if err != nil {
		if p.life.Err() != nil {
			return PollResult{}, ErrPollerClosed
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			p.log.Debug("abandoned feed fetch expired", logger.Uint64("token", token))
			return PollResult{}, errFetchExpired
		}
		p.log.Warn("feed fetch failed, using synthetic window", logger.Error(err))
		return p.apply(p.fallback(token, ReasonUnavailable))
	}

	env, err := blaze.DecodeEnvelope(body)
	if err != nil {
		p.log.Warn("feed body not recognized, using synthetic window", logger.Error(err))
		return p.apply(p.fallback(token, ReasonMalformed))
	}

	window, warnings := outcome.BuildWindow(env)
	for _, w := range warnings {
		p.metrics.RecordIntegrityWarning(p.strategy, w.Kind)
		p.log.Warn("feed item integrity warning",
			logger.String("kind", w.Kind),
			logger.Int("index", w.Index),
			logger.String("id", w.ID),
			logger.Bool("dropped", w.Dropped()),
			logger.Error(w.Err),
		)
	}
	return p.apply(PollResult{
		Window:    window,
		Source:    models.SourceLive,
		Token:     token,
		Warnings:  warnings,
		FetchedAt: p.now(),
	})
}

func (p *ResultPoller) fallback(token uint64, reason string) PollResult {
	now := p.now()
	return PollResult{
		Window:    p.synth.Window(now),
		Source:    models.SourceSynthetic,
		Token:     token,
		Reason:    reason,
		FetchedAt: now,
	}
}

func (p *ResultPoller) apply(r PollResult) (PollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return PollResult{}, ErrPollerClosed
	}
	if r.Token != p.issued.Load() {
		p.metrics.RecordStaleResponse(p.strategy)
		p.log.Debug("discarding stale feed response", logger.Uint64("token", r.Token))
		return PollResult{}, ErrStaleResponse
	}

	if r.Source == models.SourceSynthetic {
		p.fallbacks++
		p.metrics.RecordFallback(p.strategy, r.Reason)
	} else {
		p.fallbacks = 0
	}
	p.metrics.SetConsecutiveFallbacks(p.strategy, p.fallbacks)
	r.ConsecutiveFallbacks = p.fallbacks

	p.current = r
	p.current.Window = r.Window.Clone()
	return r, nil
}
