package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	domsvc "SignalPull/internal/domain/service"
	"SignalPull/pkg/logger"
)

var (
	// ErrEngineClosed is returned once the engine has been closed.
	ErrEngineClosed = errors.New("engine closed")
	// ErrNotManual is returned when an on-demand action targets a tick-driven strategy.
	ErrNotManual = errors.New("strategy is not manually triggered")
)

const sinkTimeout = 2 * time.Second

// Engine runs one strategy: poll, detect, update the signal, publish.
// All state changes serialize on mu, so ticks and operator actions never interleave.
type Engine struct {
	strategy  models.Strategy
	interval  time.Duration
	detector  domsvc.Detector
	poller    *ResultPoller
	lifecycle *SignalLifecycle
	sinks     []drepo.SnapshotSink
	now       func() time.Time
	log       *logger.Logger
	metrics   drepo.Metrics

	mu        sync.Mutex
	closed    bool
	lastToken uint64
	seq       uint64
	snap      models.Snapshot
}

// NewEngine wires a detector to its poller and lifecycle.
func NewEngine(interval time.Duration, detector domsvc.Detector, poller *ResultPoller, lifecycle *SignalLifecycle, sinks []drepo.SnapshotSink, now func() time.Time, log *logger.Logger, metrics drepo.Metrics) *Engine {
	if now == nil {
		now = time.Now
	}
	s := detector.Strategy()
	return &Engine{
		strategy:  s,
		interval:  interval,
		detector:  detector,
		poller:    poller,
		lifecycle: lifecycle,
		sinks:     sinks,
		now:       now,
		log:       log.With(logger.String("strategy", string(s))),
		metrics:   metrics,
		snap: models.Snapshot{
			Strategy:   s,
			Window:     models.OutcomeWindow{},
			Signal:     lifecycle.Current(),
			Transition: models.TransitionNone,
		},
	}
}

func (e *Engine) Strategy() models.Strategy { return e.strategy }

func (e *Engine) Trigger() models.Trigger { return e.detector.Trigger() }

func (e *Engine) Interval() time.Duration { return e.interval }

// Tick polls once and, for tick-driven detectors, feeds the result to the lifecycle.
// A stale poll result is skipped silently.
func (e *Engine) Tick(ctx context.Context) error {
	start := time.Now()
	res, err := e.poller.Poll(ctx)
	if err != nil {
		if errors.Is(err, ErrStaleResponse) {
			return nil
		}
		if errors.Is(err, ErrPollerClosed) {
			return ErrEngineClosed
		}
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if res.Token <= e.lastToken {
		e.metrics.RecordStaleResponse(string(e.strategy))
		return nil
	}
	e.lastToken = res.Token

	tr := models.TransitionNone
	if e.detector.Trigger() == models.TriggerTick {
		p, ok := e.detector.Detect(res.Window)
		tr = e.lifecycle.Observe(p, ok)
	}
	e.metrics.RecordTick(string(e.strategy), string(res.Source))

	e.snap.Window = res.Window.Clone()
	e.snap.Source = res.Source
	e.snap.ConsecutiveFallbacks = res.ConsecutiveFallbacks
	e.commit(ctx, tr)
	e.metrics.RecordLatency("tick", time.Since(start).Seconds())
	return nil
}

// RequestTimingSignal runs a manual detector against the current window and
// activates its prediction. It reports false when there is nothing to predict.
func (e *Engine) RequestTimingSignal(ctx context.Context) (bool, models.Snapshot, error) {
	if e.detector.Trigger() != models.TriggerManual {
		return false, models.Snapshot{}, ErrNotManual
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, models.Snapshot{}, ErrEngineClosed
	}

	p, ok := e.detector.Detect(e.snap.Window)
	if !ok {
		return false, e.copySnapshot(), nil
	}
	if tr := e.lifecycle.Activate(p); tr.Changed() {
		e.commit(ctx, tr)
	}
	return true, e.copySnapshot(), nil
}

// Dismiss clears the active signal.
func (e *Engine) Dismiss(ctx context.Context) (models.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return models.Snapshot{}, ErrEngineClosed
	}
	tr := e.lifecycle.Dismiss()
	if tr.Changed() {
		e.commit(ctx, tr)
	}
	return e.copySnapshot(), nil
}

// Snapshot returns a copy of the last published snapshot.
func (e *Engine) Snapshot() models.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copySnapshot()
}

// Close stops the poller. No state changes after Close returns.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.poller.Close()
}

// commit must be called with mu held. Sinks are published under the lock so
// consumers observe snapshots in sequence order.
func (e *Engine) commit(ctx context.Context, tr models.Transition) {
	e.seq++
	e.snap.Sequence = e.seq
	e.snap.Signal = e.lifecycle.Current()
	e.snap.Transition = tr
	e.snap.UpdatedAt = e.now()

	if tr.Changed() {
		e.metrics.RecordTransition(string(e.strategy), string(tr))
		fields := []logger.Field{
			logger.String("transition", string(tr)),
			logger.String("signal_id", e.snap.Signal.ID),
		}
		if e.snap.Signal.Prediction != nil {
			fields = append(fields,
				logger.String("prediction", e.snap.Signal.Prediction.String()),
				logger.Int("confidence", e.snap.Signal.Confidence),
				logger.Int("popularity", e.snap.Signal.Popularity),
			)
		}
		e.log.Info("signal transition", fields...)
	}

	snap := e.copySnapshot()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	for _, s := range e.sinks {
		if err := s.Publish(pctx, snap); err != nil {
			e.metrics.RecordError("sink_" + s.Name())
			e.log.Error("publish snapshot failed", logger.String("sink", s.Name()), logger.Error(err))
		}
	}
}

func (e *Engine) copySnapshot() models.Snapshot {
	s := e.snap
	s.Window = e.snap.Window.Clone()
	if s.Window == nil {
		s.Window = models.OutcomeWindow{}
	}
	if p := s.Signal.Prediction; p != nil {
		cp := *p
		s.Signal.Prediction = &cp
	}
	return s
}
