package service

import (
	"time"

	"StockCast/internal/domain/models"
)

// ForecastModel is re-exported so decoders depend on the service package only.
type ForecastModel = models.ForecastModel

// IntervalModel is implemented by models that can bound their forecasts.
type IntervalModel interface {
	models.ForecastModel
	ForecastInterval(steps int, confidence float64) (lower, upper []float64, err error)
}

// ModelDecoder turns an artifact into a forecast model and its training cutoff.
type ModelDecoder interface {
	Decode(data []byte) (Decoded, error)
}

// Decoded is a decoder's result.
type Decoded struct {
	Name     string
	Kind     models.ModelKind
	Model    models.ForecastModel
	LastDate time.Time
}
