package presenter

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatCurrency renders v as US dollars with thousands separators and two decimals.
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	f, _ := d.Float64()
	return sign + "$" + humanize.FormatFloat("#,###.##", f)
}

// ParseCurrency is the inverse of FormatCurrency.
func ParseCurrency(s string) (float64, error) {
	raw := strings.TrimSpace(s)
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")
	if !strings.HasPrefix(raw, "$") {
		return 0, fmt.Errorf("parse currency %q: missing $", s)
	}
	raw = strings.ReplaceAll(strings.TrimPrefix(raw, "$"), ",", "")

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("parse currency %q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	f, _ := d.Float64()
	return f, nil
}
