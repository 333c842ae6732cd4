package models

import "time"

// ForecastEvent is published after every successful forecast.
type ForecastEvent struct {
	Model       string               `json:"model"`
	Horizon     int                  `json:"horizon"`
	LastDate    string               `json:"last_date"`
	GeneratedAt time.Time            `json:"generated_at"`
	Points      []ForecastEventPoint `json:"points"`
}

type ForecastEventPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// NewForecastEvent builds the event payload for f.
func NewForecastEvent(f ForecastSeries, at time.Time) ForecastEvent {
	pts := make([]ForecastEventPoint, len(f.Points))
	for i, p := range f.Points {
		pts[i] = ForecastEventPoint{Date: p.Date.Format("2006-01-02"), Value: p.Value}
	}
	return ForecastEvent{
		Model:       f.Model,
		Horizon:     len(f.Points),
		LastDate:    f.LastDate.Format("2006-01-02"),
		GeneratedAt: at.UTC(),
		Points:      pts,
	}
}
