package presenter

import (
	"math"
	"strings"
	"testing"
	"time"

	"StockCast/internal/domain/models"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFormatCurrency(t *testing.T) {
	cases := map[float64]string{
		1234.5:     "$1,234.50",
		0:          "$0.00",
		0.004:      "$0.00",
		187.456:    "$187.46",
		1234567.89: "$1,234,567.89",
		-12.3:      "-$12.30",
	}
	for in, want := range cases {
		require.Equal(t, want, FormatCurrency(in), "%v", in)
	}
	require.Equal(t, "n/a", FormatCurrency(math.NaN()))
}

func TestCurrencyRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.01, 3.241071, 185.64, 1234.565, 99999.999, -42.5, 1e7 + 0.25} {
		got, err := ParseCurrency(FormatCurrency(v))
		require.NoError(t, err)
		require.InDelta(t, math.Round(v*100)/100, got, 0.0051, "%v", v)
	}
}

func TestParseCurrencyRejects(t *testing.T) {
	for _, s := range []string{"", "12.00", "$abc", "n/a"} {
		_, err := ParseCurrency(s)
		require.Error(t, err, s)
	}
}

func TestHistoryTableTail(t *testing.T) {
	s := models.PriceSeries{}
	for i := 0; i < 60; i++ {
		s.Points = append(s.Points, models.PricePoint{Date: day(2024, 1, 1).AddDate(0, 0, i), Close: float64(i)})
	}
	tbl := HistoryTable(s, 50)
	require.Equal(t, []string{"Date", "Close"}, tbl.Columns)
	require.Len(t, tbl.Rows, 50)
	require.Equal(t, []string{"2024-01-11", "$10.00"}, tbl.Rows[0])
	require.Equal(t, 60, s.Len(), "input must not change")

	require.True(t, HistoryTable(models.PriceSeries{}, 50).Empty())
}

func TestForecastTable(t *testing.T) {
	f := models.ForecastSeries{
		Model:  "ARIMA",
		Points: []models.ForecastPoint{{Date: day(2024, 1, 31), Value: 1234.5, Lower: 1200, Upper: 1300}},
	}
	tbl := ForecastTable(f)
	require.Equal(t, []string{"Date", "Forecast"}, tbl.Columns)
	require.Equal(t, [][]string{{"2024-01-31", "$1,234.50"}}, tbl.Rows)

	f.HasIntervals = true
	tbl = ForecastTable(f)
	require.Equal(t, []string{"Date", "Forecast", "Lower", "Upper"}, tbl.Columns)
	require.Equal(t, []string{"2024-01-31", "$1,234.50", "$1,200.00", "$1,300.00"}, tbl.Rows[0])

	require.True(t, ForecastTable(models.ForecastSeries{}).Empty())
}

func TestBuildChartSeriesSharesAxis(t *testing.T) {
	hist := []models.PricePoint{{Date: day(2023, 12, 28), Close: 193.58}, {Date: day(2023, 12, 29), Close: 192.53}}
	f := models.ForecastSeries{Model: "ARIMA", Points: []models.ForecastPoint{
		{Date: day(2024, 1, 31), Value: 195},
		{Date: day(2024, 2, 29), Value: 196},
	}}
	cs := buildChartSeries(hist, f)

	require.Equal(t, []string{"2023-12-28", "2023-12-29", "2024-01-31", "2024-02-29"}, cs.Dates)
	require.NotNil(t, cs.History[1])
	require.Nil(t, cs.History[2])
	require.Nil(t, cs.Forecast[0])
	require.Equal(t, 196.0, *cs.Forecast[3])
	require.Nil(t, cs.Lower)
}

func TestChartRendersBothSeries(t *testing.T) {
	hist := []models.PricePoint{{Date: day(2023, 12, 29), Close: 192.53}}
	f := models.ForecastSeries{Model: "SARIMA", HasIntervals: true, Points: []models.ForecastPoint{
		{Date: day(2024, 1, 31), Value: 195, Lower: 180, Upper: 210},
	}}
	page, err := Chart(hist, f, ChartTitle("SARIMA", 1))
	require.NoError(t, err)

	html := string(page)
	require.True(t, strings.Contains(html, "SARIMA Forecast for Next 1 Months"))
	require.Contains(t, html, "Actual (Historical)")
	require.Contains(t, html, "SARIMA Forecast")
	require.Contains(t, html, "Price (USD)")
}

func TestChartWithoutHistory(t *testing.T) {
	f := models.ForecastSeries{Model: "ARIMA", Points: []models.ForecastPoint{{Date: day(2024, 1, 31), Value: 1}}}
	_, err := Chart(nil, f, ChartTitle("ARIMA", 1))
	require.NoError(t, err)
}
