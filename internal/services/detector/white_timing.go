package detector

import (
	"time"

	"SignalPull/internal/domain/models"
	domsvc "SignalPull/internal/domain/service"
	"SignalPull/pkg/util"
)

// DefaultWhiteOffset is the delay added to the last white to estimate the next one.
const DefaultWhiteOffset = 13 * time.Minute

// WhiteTiming estimates when the next white will land, from the newest white in the window.
type WhiteTiming struct {
	offset time.Duration
	loc    *time.Location
}

// NewWhiteTiming creates the white-timing detector. The estimate is rendered in loc.
func NewWhiteTiming(offset time.Duration, loc *time.Location) domsvc.Detector {
	if offset <= 0 {
		offset = DefaultWhiteOffset
	}
	if loc == nil {
		loc = time.Local
	}
	return WhiteTiming{offset: offset, loc: loc}
}

func (WhiteTiming) Strategy() models.Strategy { return models.StrategyWhite }

func (WhiteTiming) Trigger() models.Trigger { return models.TriggerManual }

// Detect finds the newest white and adds the offset on the wall clock.
// Only hour and minute are kept, so crossing midnight is not reflected in a date.
func (d WhiteTiming) Detect(w models.OutcomeWindow) (models.Prediction, bool) {
	last, ok := w.FirstOf(models.White)
	if !ok {
		return models.Prediction{}, false
	}
	basis := last.OccurredAt.In(d.loc)
	mins := util.ClockMinutes(basis) + int(d.offset/time.Minute)
	est := &models.TimingEstimate{
		Hour:   (mins / 60) % 24,
		Minute: mins % 60,
		Basis:  last.OccurredAt,
	}
	return models.Prediction{Timing: est}, true
}
