package models

import (
	"fmt"
	"time"
)

// Strategy names a strategy variant.
type Strategy string

const (
	StrategyColors Strategy = "colors"
	StrategyWhite  Strategy = "white"
)

// Trigger says when a detector is evaluated.
type Trigger string

const (
	// TriggerTick evaluates on every scheduler tick.
	TriggerTick Trigger = "tick"
	// TriggerManual evaluates only on an explicit operator request.
	TriggerManual Trigger = "manual"
)

// TimingEstimate is a wall-clock hour and minute. The date is not tracked.
type TimingEstimate struct {
	Hour   int       `json:"hour"`
	Minute int       `json:"minute"`
	Basis  time.Time `json:"basis"` // occurrence the estimate was derived from
}

// String renders the estimate as HH:MM.
func (t TimingEstimate) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Prediction is the output of a detector: a category or a timing estimate.
type Prediction struct {
	Category Category        `json:"category,omitempty"`
	Timing   *TimingEstimate `json:"timing,omitempty"`
}

// Same reports whether two predictions would be displayed identically.
func (p Prediction) Same(o Prediction) bool {
	if p.Category != o.Category {
		return false
	}
	if p.Timing == nil || o.Timing == nil {
		return p.Timing == nil && o.Timing == nil
	}
	return p.Timing.Hour == o.Timing.Hour && p.Timing.Minute == o.Timing.Minute
}

// String is used for logs and event payloads.
func (p Prediction) String() string {
	if p.Timing != nil {
		return p.Timing.String()
	}
	return string(p.Category)
}

// SignalState is the lifecycle state of a signal.
type SignalState string

const (
	StateIdle   SignalState = "idle"
	StateActive SignalState = "active"
)

// Signal is the active prediction with its presentation metadata.
type Signal struct {
	ID          string      `json:"id,omitempty"`
	Strategy    Strategy    `json:"strategy"`
	Prediction  *Prediction `json:"prediction,omitempty"`
	Confidence  int         `json:"confidence"`
	Popularity  int         `json:"popularity"`
	State       SignalState `json:"state"`
	ActivatedAt time.Time   `json:"activated_at,omitempty"`
}

// Active reports whether the signal is displayed.
func (s Signal) Active() bool { return s.State == StateActive }

// Transition describes what a lifecycle call did.
type Transition string

const (
	TransitionNone      Transition = "none"
	TransitionActivated Transition = "activated"
	TransitionReplaced  Transition = "replaced"
	TransitionRefreshed Transition = "refreshed"
	TransitionCleared   Transition = "cleared"
	TransitionDismissed Transition = "dismissed"
)

// Changed reports whether the transition altered the signal.
func (t Transition) Changed() bool { return t != TransitionNone && t != "" }

// Snapshot is the read-only view published to consumers after each change.
type Snapshot struct {
	Strategy             Strategy      `json:"strategy"`
	Window               OutcomeWindow `json:"window"`
	Source               WindowSource  `json:"source"`
	Signal               Signal        `json:"signal"`
	Transition           Transition    `json:"transition"`
	Sequence             uint64        `json:"sequence"`
	ConsecutiveFallbacks int           `json:"consecutive_fallbacks"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// SignalEvent is emitted on every signal transition.
type SignalEvent struct {
	SignalID   string     `json:"signal_id"`
	Strategy   Strategy   `json:"strategy"`
	Transition Transition `json:"transition"`
	Prediction string     `json:"prediction,omitempty"`
	Confidence int        `json:"confidence"`
	Popularity int        `json:"popularity"`
	At         time.Time  `json:"at"`
}

// EventFromSnapshot builds the transition event for s.
func EventFromSnapshot(s Snapshot) SignalEvent {
	ev := SignalEvent{
		SignalID:   s.Signal.ID,
		Strategy:   s.Strategy,
		Transition: s.Transition,
		Confidence: s.Signal.Confidence,
		Popularity: s.Signal.Popularity,
		At:         s.UpdatedAt,
	}
	if s.Signal.Prediction != nil {
		ev.Prediction = s.Signal.Prediction.String()
	}
	return ev
}
