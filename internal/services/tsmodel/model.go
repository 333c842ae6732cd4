package tsmodel

import (
	"errors"
	"fmt"
	"math"

	"StockCast/internal/domain/service"
	"StockCast/pkg/util"
)

// Model forecasts from fitted (S)ARIMA coefficients.
// Future shocks are zero; forecasts on the differenced scale are integrated back
// through every differencing level.
type Model struct {
	order     Order
	ar, ma    []float64
	sar, sma  []float64
	intercept float64
	variance  float64

	// levels[0] is the price history, levels[i+1] the difference of levels[i].
	// Non-seasonal differences come first, seasonal ones after.
	levels    [][]float64
	lags      []int
	residuals []float64
}

var _ service.IntervalModel = (*Model)(nil)

func newModel(a Artifact) *Model {
	m := &Model{
		order:     a.Order,
		ar:        append([]float64(nil), a.AR...),
		ma:        append([]float64(nil), a.MA...),
		sar:       append([]float64(nil), a.SAR...),
		sma:       append([]float64(nil), a.SMA...),
		intercept: a.Intercept,
		variance:  a.Variance,
	}

	levels := [][]float64{append([]float64(nil), a.History...)}
	var lags []int
	for i := 0; i < a.Order.D; i++ {
		lags = append(lags, 1)
	}
	for i := 0; i < a.Order.SD; i++ {
		lags = append(lags, a.Order.M)
	}
	for _, lag := range lags {
		levels = append(levels, difference(levels[len(levels)-1], lag))
	}
	m.levels = levels
	m.lags = lags

	y := levels[len(levels)-1]
	m.residuals = make([]float64, len(y))
	res := a.Residuals
	if len(res) > len(y) {
		res = res[len(res)-len(y):]
	}
	copy(m.residuals[len(y)-len(res):], res)

	if m.variance == 0 {
		m.variance = meanSquare(res)
	}
	return m
}

// Order returns the model order.
func (m *Model) Order() Order { return m.order }

// Forecast returns steps point forecasts on the price scale.
func (m *Model) Forecast(steps int) ([]float64, error) {
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}

	y := m.levels[len(m.levels)-1]
	n := len(y)
	p, q := m.order.P, m.order.Q
	sp, sq, period := m.order.SP, m.order.SQ, m.order.M
	c := m.intercept

	extY := make([]float64, n+steps)
	copy(extY, y)
	extRes := make([]float64, n+steps)
	copy(extRes, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := c

		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ar[i] * (extY[t-i-1] - c)
		}
		for i := 0; i < sp; i++ {
			if lag := (i + 1) * period; t-lag >= 0 {
				pred += m.sar[i] * (extY[t-lag] - c)
			}
		}
		for i := 0; i < q && t-i-1 >= 0; i++ {
			pred += m.ma[i] * extRes[t-i-1]
		}
		for i := 0; i < sq; i++ {
			if lag := (i + 1) * period; t-lag >= 0 {
				pred += m.sma[i] * extRes[t-lag]
			}
		}

		extY[t] = pred
	}

	out := make([]float64, steps)
	copy(out, extY[n:])
	out = m.integrate(out)

	if !util.Finite(out...) {
		return nil, fmt.Errorf("model %s produced a non-finite forecast", m.order)
	}
	return out, nil
}

// ForecastInterval returns symmetric normal bands whose width grows with the horizon
// for integrated series.
func (m *Model) ForecastInterval(steps int, confidence float64) (lower, upper []float64, err error) {
	point, err := m.Forecast(steps)
	if err != nil {
		return nil, nil, err
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	z := normalQuantile((1 + confidence) / 2)
	base := math.Sqrt(m.variance)

	lower = make([]float64, steps)
	upper = make([]float64, steps)
	for h := 0; h < steps; h++ {
		growth := 1.0
		if m.order.D > 0 {
			growth *= math.Sqrt(float64(h + 1))
		}
		if m.order.SD > 0 && m.order.M > 0 {
			growth *= math.Sqrt(float64(h/m.order.M + 1))
		}
		se := base * growth
		lower[h] = point[h] - z*se
		upper[h] = point[h] + z*se
	}
	return lower, upper, nil
}

// integrate walks the differencing levels from the top down: x_t = z_t + x_{t-lag}.
func (m *Model) integrate(f []float64) []float64 {
	out := f
	for i := len(m.lags) - 1; i >= 0; i-- {
		base := m.levels[i]
		lag := m.lags[i]
		ext := make([]float64, len(base), len(base)+len(out))
		copy(ext, base)
		for _, z := range out {
			ext = append(ext, z+ext[len(ext)-lag])
		}
		out = ext[len(base):]
	}
	return out
}

func difference(xs []float64, lag int) []float64 {
	if len(xs) <= lag {
		return nil
	}
	out := make([]float64, len(xs)-lag)
	for i := lag; i < len(xs); i++ {
		out[i-lag] = xs[i] - xs[i-lag]
	}
	return out
}

// normalQuantile approximates the standard normal inverse CDF (Abramowitz-Stegun 26.2.23).
func normalQuantile(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	if p < 0.5 {
		return -normalQuantile(1 - p)
	}

	t := math.Sqrt(-2 * math.Log(1-p))
	c0, c1, c2 := 2.515517, 0.802853, 0.010328
	d1, d2, d3 := 1.432788, 0.189269, 0.001308

	return t - (c0+c1*t+c2*t*t)/(1+d1*t+d2*t*t+d3*t*t*t)
}
