package presenter

import (
	"StockCast/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Table is a display-ready grid of strings.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// HistoryTable renders the last tail points of s (all points when tail <= 0).
func HistoryTable(s models.PriceSeries, tail int) Table {
	t := Table{Columns: []string{"Date", "Close"}, Rows: [][]string{}}
	for _, p := range s.Tail(tail) {
		t.Rows = append(t.Rows, []string{p.Date.Format(dateLayout), FormatCurrency(p.Close)})
	}
	return t
}

// ForecastTable renders every forecast point, with bounds when the series has them.
func ForecastTable(f models.ForecastSeries) Table {
	cols := []string{"Date", "Forecast"}
	if f.HasIntervals {
		cols = append(cols, "Lower", "Upper")
	}
	t := Table{Columns: cols, Rows: make([][]string, 0, len(f.Points))}
	for _, p := range f.Points {
		row := []string{p.Date.Format(dateLayout), FormatCurrency(p.Value)}
		if f.HasIntervals {
			row = append(row, FormatCurrency(p.Lower), FormatCurrency(p.Upper))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
