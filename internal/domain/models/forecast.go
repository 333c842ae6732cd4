package models

import (
	"sort"
	"time"
)

// ModelKind identifies the artifact decoder.
type ModelKind string

const (
	KindARIMA  ModelKind = "arima"
	KindSARIMA ModelKind = "sarima"
)

// ForecastPoint is a predicted value at a month-end date.
// Lower and Upper are zero when the model provides no interval.
type ForecastPoint struct {
	Date  time.Time
	Value float64
	Lower float64
	Upper float64
}

// ForecastSeries is a model's aligned forecast.
type ForecastSeries struct {
	Model        string
	LastDate     time.Time
	Points       []ForecastPoint
	HasIntervals bool
	Confidence   float64
}

// Len returns the number of forecast points.
func (f ForecastSeries) Len() int { return len(f.Points) }

// RegistryEntry pairs a loaded model with the cutoff date of its training data.
type RegistryEntry struct {
	Name     string
	Kind     ModelKind
	Model    ForecastModel
	LastDate time.Time
}

// ForecastModel is the narrow view the aligner needs of a fitted model.
type ForecastModel interface {
	Forecast(steps int) ([]float64, error)
}

// ModelRegistry maps model names to loaded entries. An empty registry is valid.
type ModelRegistry map[string]RegistryEntry

// Names returns model names in sorted order.
func (r ModelRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the entry for name.
func (r ModelRegistry) Lookup(name string) (RegistryEntry, bool) {
	e, ok := r[name]
	return e, ok
}
