package models

import (
	"errors"
	"fmt"
	"time"
)

// MaxWindowSize is the capacity of an OutcomeWindow.
const MaxWindowSize = 20

var (
	// ErrInvalidRoll is returned for roll values outside 0..14.
	ErrInvalidRoll = errors.New("invalid roll")
	// ErrFeedUnavailable covers transport errors and non-2xx responses.
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrFeedMalformed covers bodies that cannot be decoded into a known envelope.
	ErrFeedMalformed = errors.New("feed malformed")
)

// Category is the categorical outcome of one round.
type Category string

const (
	White Category = "white"
	Red   Category = "red"
	Black Category = "black"
)

// Code returns the numeric color code used by the feed (0 white, 1 red, 2 black).
func (c Category) Code() int {
	switch c {
	case White:
		return 0
	case Red:
		return 1
	default:
		return 2
	}
}

// CategoryFromCode maps a feed color code back to a category.
func CategoryFromCode(code int) (Category, bool) {
	switch code {
	case 0:
		return White, true
	case 1:
		return Red, true
	case 2:
		return Black, true
	default:
		return "", false
	}
}

// Normalize maps a raw roll to its category: 0 is white, 1..7 red, 8..14 black.
func Normalize(roll int) (Category, error) {
	switch {
	case roll == 0:
		return White, nil
	case roll >= 1 && roll <= 7:
		return Red, nil
	case roll >= 8 && roll <= 14:
		return Black, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidRoll, roll)
	}
}

// OutcomeEvent is one reported result. Treat as immutable.
type OutcomeEvent struct {
	ID         string    `json:"id"`
	Roll       int       `json:"roll"`
	Category   Category  `json:"category"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WindowSource tells whether a window came from the feed or was synthesized.
type WindowSource string

const (
	SourceLive      WindowSource = "live"
	SourceSynthetic WindowSource = "synthetic"
)

// OutcomeWindow is the newest-first recent history, at most MaxWindowSize long.
type OutcomeWindow []OutcomeEvent

// Categories returns the category sequence, newest first.
func (w OutcomeWindow) Categories() []Category {
	out := make([]Category, len(w))
	for i, e := range w {
		out[i] = e.Category
	}
	return out
}

// FirstOf returns the newest event with the given category.
func (w OutcomeWindow) FirstOf(c Category) (OutcomeEvent, bool) {
	for _, e := range w {
		if e.Category == c {
			return e, true
		}
	}
	return OutcomeEvent{}, false
}

// Clone returns a copy that shares no backing array with w.
func (w OutcomeWindow) Clone() OutcomeWindow {
	if w == nil {
		return nil
	}
	out := make(OutcomeWindow, len(w))
	copy(out, w)
	return out
}
