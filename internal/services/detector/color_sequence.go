package detector

import (
	"SignalPull/internal/domain/models"
	domsvc "SignalPull/internal/domain/service"
)

// rule maps a newest-first category prefix to the predicted next category.
type rule struct {
	prefix  []models.Category
	predict models.Category
}

// Longer rules come first: a 4-length match must win over a conflicting 2-length one.
var colorRules = []rule{
	{prefix: []models.Category{models.Red, models.Black, models.Black, models.Black}, predict: models.Red},
	{prefix: []models.Category{models.Black, models.Red, models.Red, models.Red}, predict: models.Black},
	{prefix: []models.Category{models.Black, models.Black}, predict: models.Red},
	{prefix: []models.Category{models.Red, models.Red}, predict: models.Black},
}

// ColorSequence predicts the next color from the most recent categories.
type ColorSequence struct{}

// NewColorSequence creates the color-sequence detector.
func NewColorSequence() domsvc.Detector { return ColorSequence{} }

func (ColorSequence) Strategy() models.Strategy { return models.StrategyColors }

func (ColorSequence) Trigger() models.Trigger { return models.TriggerTick }

// Detect returns the first matching rule's prediction.
func (ColorSequence) Detect(w models.OutcomeWindow) (models.Prediction, bool) {
	if len(w) < 2 {
		return models.Prediction{}, false
	}
	seq := w.Categories()
	for _, r := range colorRules {
		if hasPrefix(seq, r.prefix) {
			return models.Prediction{Category: r.predict}, true
		}
	}
	return models.Prediction{}, false
}

func hasPrefix(seq, prefix []models.Category) bool {
	if len(seq) < len(prefix) {
		return false
	}
	for i, c := range prefix {
		if seq[i] != c {
			return false
		}
	}
	return true
}
