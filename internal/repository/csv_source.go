package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	xhttp "StockCast/pkg/http"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/util"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrMalformedDate = errors.New("malformed date")
)

// CSVSource fetches a Date/Close CSV over HTTP(S).
type CSVSource struct {
	url     string
	client  *xhttp.Client
	timeout time.Duration
	l       *applogger.Logger
}

var _ domrepo.HistorySource = (*CSVSource)(nil)

// NewCSVSource creates a CSV history source for url.
func NewCSVSource(url string, client *xhttp.Client, timeout time.Duration) *CSVSource {
	if client == nil {
		client = xhttp.NewClient(xhttp.WithTimeout(timeout))
	}
	return &CSVSource{url: url, client: client, timeout: timeout, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CSVSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVSource) Name() string { return s.url }

// Fetch downloads and parses the CSV.
func (s *CSVSource) Fetch(ctx context.Context) ([]models.RawPrice, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	body, err := s.client.GetBytes(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch csv: %w", err)
	}
	rows, err := ParsePriceCSV(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	s.l.Debug("history csv fetched",
		applogger.String("url", s.url),
		applogger.Int("bytes", len(body)),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return rows, nil
}

// ParsePriceCSV reads Date and Close columns (header lookup is case-insensitive).
// A missing or non-numeric close becomes NaN; a malformed date fails the whole read.
func ParsePriceCSV(r io.Reader) ([]models.RawPrice, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateIdx, closeIdx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "date":
			dateIdx = i
		case "close":
			closeIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("%w: Date", ErrMissingColumn)
	}
	if closeIdx < 0 {
		return nil, fmt.Errorf("%w: Close", ErrMissingColumn)
	}

	var out []models.RawPrice
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if dateIdx >= len(rec) {
			return nil, fmt.Errorf("%w on line %d: no date field", ErrMalformedDate, line)
		}

		d, err := util.ParseDate(rec[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("%w on line %d: %q", ErrMalformedDate, line, rec[dateIdx])
		}

		closeVal := math.NaN()
		if closeIdx < len(rec) && !util.IsMissing(rec[closeIdx]) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[closeIdx]), 64); err == nil {
				closeVal = v
			}
		}
		out = append(out, models.RawPrice{Date: d, Close: closeVal})
	}
	return out, nil
}
