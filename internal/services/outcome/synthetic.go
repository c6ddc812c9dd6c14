package outcome

import (
	"fmt"
	"sync"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
)

// SyntheticSpacing is the gap between consecutive synthetic events.
const SyntheticSpacing = 60 * time.Second

// Synthesizer produces stand-in windows while the feed is failing.
type Synthesizer struct {
	mu  sync.Mutex
	rnd drepo.RandSource
}

// NewSynthesizer creates a Synthesizer drawing rolls from rnd.
func NewSynthesizer(rnd drepo.RandSource) *Synthesizer {
	return &Synthesizer{rnd: rnd}
}

// Window returns exactly MaxWindowSize events, newest first, spaced
// SyntheticSpacing apart counting back from now.
func (s *Synthesizer) Window(now time.Time) models.OutcomeWindow {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := make(models.OutcomeWindow, models.MaxWindowSize)
	for i := range w {
		roll := s.rnd.IntN(15)
		cat, _ := models.Normalize(roll) // always in range
		w[i] = models.OutcomeEvent{
			ID:         fmt.Sprintf("mock-%d", i),
			Roll:       roll,
			Category:   cat,
			OccurredAt: now.Add(-time.Duration(i) * SyntheticSpacing),
		}
	}
	return w
}
