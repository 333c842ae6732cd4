package usecase

import (
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
	"StockCast/pkg/util"
)

// Aligner pairs model predictions with month-end dates after the training cutoff.
type Aligner struct {
	rule       util.MonthEndRule
	confidence float64
}

// NewAligner creates an aligner. confidence <= 0 disables prediction bands.
func NewAligner(rule util.MonthEndRule, confidence float64) *Aligner {
	if rule == "" {
		rule = util.RollForward
	}
	return &Aligner{rule: rule, confidence: confidence}
}

// Rule returns the month-end rule in use.
func (a *Aligner) Rule() util.MonthEndRule { return a.rule }

// Align forecasts horizon steps and dates them. Any failure returns *models.ForecastError
// and no partial series.
func (a *Aligner) Align(model models.ForecastModel, lastDate time.Time, horizon int) (models.ForecastSeries, error) {
	fail := func(err error) (models.ForecastSeries, error) {
		return models.ForecastSeries{}, &models.ForecastError{Horizon: horizon, Err: err}
	}
	if horizon <= 0 {
		return fail(models.ErrNonPositiveHorizon)
	}
	if model == nil {
		return fail(fmt.Errorf("nil model"))
	}

	values, err := model.Forecast(horizon)
	if err != nil {
		return fail(err)
	}
	dates := util.MonthEnds(lastDate, horizon, a.rule)
	if len(values) != len(dates) {
		return fail(fmt.Errorf("model returned %d values for %d dates", len(values), len(dates)))
	}
	if !util.Finite(values...) {
		return fail(fmt.Errorf("model returned a non-finite value"))
	}

	out := models.ForecastSeries{
		LastDate: util.Day(lastDate),
		Points:   make([]models.ForecastPoint, horizon),
	}
	for i := range values {
		out.Points[i] = models.ForecastPoint{Date: dates[i], Value: values[i]}
	}

	if im, ok := model.(service.IntervalModel); ok && a.confidence > 0 {
		lower, upper, err := im.ForecastInterval(horizon, a.confidence)
		if err == nil && len(lower) == horizon && len(upper) == horizon && util.Finite(lower...) && util.Finite(upper...) {
			for i := range out.Points {
				out.Points[i].Lower = lower[i]
				out.Points[i].Upper = upper[i]
			}
			out.HasIntervals = true
			out.Confidence = a.confidence
		}
	}
	return out, nil
}
