package usecase

import (
	"time"

	"github.com/google/uuid"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
)

// Presentation ranges, inclusive.
const (
	MinConfidence = 89
	MaxConfidence = 98
	MinPopularity = 1
	MaxPopularity = 80
)

// SignalLifecycle owns the current signal of one strategy and its transitions.
// It is not safe for concurrent use; the Engine serializes calls.
type SignalLifecycle struct {
	strategy        models.Strategy
	rnd             drepo.RandSource
	now             func() time.Time
	newID           func() string
	fixedPopularity int

	sig models.Signal
}

// NewSignalLifecycle creates an idle lifecycle. fixedPopularity > 0 replaces
// the sampled popularity with a constant.
func NewSignalLifecycle(strategy models.Strategy, rnd drepo.RandSource, now func() time.Time, fixedPopularity int) *SignalLifecycle {
	if now == nil {
		now = time.Now
	}
	return &SignalLifecycle{
		strategy:        strategy,
		rnd:             rnd,
		now:             now,
		newID:           uuid.NewString,
		fixedPopularity: fixedPopularity,
		sig:             models.Signal{Strategy: strategy, State: models.StateIdle},
	}
}

// Current returns a copy of the current signal.
func (l *SignalLifecycle) Current() models.Signal {
	s := l.sig
	if s.Prediction != nil {
		p := *s.Prediction
		if p.Timing != nil {
			t := *p.Timing
			p.Timing = &t
		}
		s.Prediction = &p
	}
	return s
}

// Observe applies the detector result of a tick. A repeated prediction leaves
// the signal untouched; a different one replaces it; no prediction clears it.
func (l *SignalLifecycle) Observe(p models.Prediction, ok bool) models.Transition {
	if !ok {
		if !l.sig.Active() {
			return models.TransitionNone
		}
		l.clear()
		return models.TransitionCleared
	}
	return l.activate(p)
}

// Activate applies an on-demand prediction. Unlike a tick, every request is a
// fresh activation: repeating the displayed prediction keeps the signal id and
// popularity but resamples confidence and restamps the activation time.
func (l *SignalLifecycle) Activate(p models.Prediction) models.Transition {
	if l.sig.Active() && l.sig.Prediction.Same(p) {
		l.sig.Confidence = l.confidence()
		l.sig.ActivatedAt = l.now()
		return models.TransitionRefreshed
	}
	return l.activate(p)
}

// Dismiss clears the active signal unconditionally.
func (l *SignalLifecycle) Dismiss() models.Transition {
	if !l.sig.Active() {
		return models.TransitionNone
	}
	l.clear()
	return models.TransitionDismissed
}

func (l *SignalLifecycle) activate(p models.Prediction) models.Transition {
	tr := models.TransitionActivated
	if l.sig.Active() {
		if l.sig.Prediction.Same(p) {
			return models.TransitionNone
		}
		tr = models.TransitionReplaced
	}

	pop := l.fixedPopularity
	if pop <= 0 {
		pop = MinPopularity + l.rnd.IntN(MaxPopularity-MinPopularity+1)
	}
	pred := p
	l.sig = models.Signal{
		ID:          l.newID(),
		Strategy:    l.strategy,
		Prediction:  &pred,
		Confidence:  l.confidence(),
		Popularity:  pop,
		State:       models.StateActive,
		ActivatedAt: l.now(),
	}
	return tr
}

func (l *SignalLifecycle) confidence() int {
	return MinConfidence + l.rnd.IntN(MaxConfidence-MinConfidence+1)
}

// clear keeps the id so the clearing event can be correlated with its activation.
func (l *SignalLifecycle) clear() {
	l.sig.State = models.StateIdle
	l.sig.Prediction = nil
	l.sig.Popularity = 0
}
