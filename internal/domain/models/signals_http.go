package models

// Requests for strategy HTTP endpoints. Defined in domain for consistency and reuse.

type WindowRequest struct {
	Strategy string `param:"strategy" json:"strategy" validate:"required"`
	Limit    int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=20"`
}

type RecentOutcomesRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

// StrategySummary is one entry of the strategy listing.
type StrategySummary struct {
	Strategy             Strategy     `json:"strategy"`
	Trigger              Trigger      `json:"trigger"`
	Signal               Signal       `json:"signal"`
	Source               WindowSource `json:"source"`
	Sequence             uint64       `json:"sequence"`
	ConsecutiveFallbacks int          `json:"consecutive_fallbacks"`
}

// TimingResponse is returned by the on-demand timing action.
type TimingResponse struct {
	Activated bool     `json:"activated"`
	Snapshot  Snapshot `json:"snapshot"`
}
