package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

// ForecastRequest selects a model and horizon. Horizon is pre-filled by the handler
// with the configured default before binding, so an explicit 0 still fails validation.
// The upper bound comes from configuration and is checked by the handler.
type ForecastRequest struct {
	Model   string `query:"model" json:"model" form:"model" validate:"required"`
	Horizon int    `query:"horizon" json:"horizon" form:"horizon" validate:"gte=1"`
}

type HistoryRequest struct {
	Tail int `query:"tail" json:"tail" default:"50" validate:"gte=1,lte=100000"`
}
