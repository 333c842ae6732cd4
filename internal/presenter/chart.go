package presenter

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"StockCast/internal/domain/models"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	historyColor  = "blue"
	forecastColor = "red"
)

// ChartTitle is the heading used above the chart.
func ChartTitle(model string, horizon int) string {
	return fmt.Sprintf("%s Forecast for Next %d Months", model, horizon)
}

// chartSeries is the data behind the chart: one shared date axis and one value
// slice per line, nil where the line has no point on that date.
type chartSeries struct {
	Dates    []string
	History  []*float64
	Forecast []*float64
	Lower    []*float64
	Upper    []*float64
}

func buildChartSeries(history []models.PricePoint, f models.ForecastSeries) chartSeries {
	seen := make(map[time.Time]struct{}, len(history)+len(f.Points))
	var axis []time.Time
	add := func(d time.Time) {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			axis = append(axis, d)
		}
	}
	for _, p := range history {
		add(p.Date)
	}
	for _, p := range f.Points {
		add(p.Date)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })

	idx := make(map[time.Time]int, len(axis))
	cs := chartSeries{
		Dates:    make([]string, len(axis)),
		History:  make([]*float64, len(axis)),
		Forecast: make([]*float64, len(axis)),
	}
	for i, d := range axis {
		idx[d] = i
		cs.Dates[i] = d.Format(dateLayout)
	}
	for _, p := range history {
		v := p.Close
		cs.History[idx[p.Date]] = &v
	}
	if f.HasIntervals {
		cs.Lower = make([]*float64, len(axis))
		cs.Upper = make([]*float64, len(axis))
	}
	for _, p := range f.Points {
		i := idx[p.Date]
		v := p.Value
		cs.Forecast[i] = &v
		if f.HasIntervals {
			lo, hi := p.Lower, p.Upper
			cs.Lower[i] = &lo
			cs.Upper[i] = &hi
		}
	}
	return cs
}

func lineData(vs []*float64) []opts.LineData {
	out := make([]opts.LineData, len(vs))
	for i, v := range vs {
		if v == nil {
			out[i] = opts.LineData{Value: nil}
			continue
		}
		out[i] = opts.LineData{Value: *v}
	}
	return out
}

// Chart renders history and forecast as a standalone HTML page with one line chart.
// Either input may be empty; the chart then shows only the other line.
func Chart(history []models.PricePoint, f models.ForecastSeries, title string) ([]byte, error) {
	cs := buildChartSeries(history, f)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "100%",
			Height:    "480px",
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price (USD)", Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(cs.Dates).
		AddSeries("Actual (Historical)", lineData(cs.History),
			charts.WithLineStyleOpts(opts.LineStyle{Color: historyColor}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: historyColor}),
		).
		AddSeries(fmt.Sprintf("%s Forecast", f.Model), lineData(cs.Forecast),
			charts.WithLineStyleOpts(opts.LineStyle{Color: forecastColor}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: forecastColor}),
		)
	if f.HasIntervals {
		band := opts.LineStyle{Color: forecastColor, Type: "dashed"}
		line.AddSeries("Lower bound", lineData(cs.Lower), charts.WithLineStyleOpts(band)).
			AddSeries("Upper bound", lineData(cs.Upper), charts.WithLineStyleOpts(band))
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
