package service

import "SignalPull/internal/domain/models"

// Detector evaluates a window and optionally produces a prediction.
// Implementations are stateless; the same window always yields the same result.
type Detector interface {
	Strategy() models.Strategy
	Trigger() models.Trigger
	Detect(w models.OutcomeWindow) (models.Prediction, bool)
}
