package models

import "time"

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceSeries holds closes with strictly increasing, unique dates.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.Points) }

// IsEmpty reports whether the series holds no points.
func (s PriceSeries) IsEmpty() bool { return len(s.Points) == 0 }

// Last returns the most recent point.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Tail returns the last n points (all of them when n <= 0 or n >= Len).
// The returned slice is a copy.
func (s PriceSeries) Tail(n int) []PricePoint {
	start := 0
	if n > 0 && n < len(s.Points) {
		start = len(s.Points) - n
	}
	out := make([]PricePoint, len(s.Points)-start)
	copy(out, s.Points[start:])
	return out
}

// RawPrice is an unvalidated record as read from a source, before the loader cleans it.
type RawPrice struct {
	Date  time.Time
	Close float64 // NaN when missing or non-numeric
}
