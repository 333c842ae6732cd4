package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
	applogger "StockCast/pkg/logger"
)

// CHPriceSource reads daily closes from a ClickHouse table (date Date, symbol String, close Float64).
type CHPriceSource struct {
	db     *sql.DB
	table  string
	symbol string
	l      *applogger.Logger
}

var _ domrepo.HistorySource = (*CHPriceSource)(nil)

func NewCHPriceSource(ch *pkgch.Client, table, symbol string) *CHPriceSource {
	return &CHPriceSource{db: ch.DB(), table: table, symbol: symbol, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHPriceSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceSource) Name() string {
	return fmt.Sprintf("clickhouse:%s/%s", s.table, s.symbol)
}

func (s *CHPriceSource) query() string {
	const qtpl = `
        SELECT toDate(date) AS d, close
        FROM %s
        WHERE symbol = ?
        ORDER BY d ASC
    `
	return fmt.Sprintf(qtpl, s.table)
}

func (s *CHPriceSource) Fetch(ctx context.Context) ([]models.RawPrice, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, s.query(), s.symbol)
	if err != nil {
		s.l.Error("clickhouse prices query error",
			applogger.String("table", s.table),
			applogger.String("symbol", s.symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	out := make([]models.RawPrice, 0, 4096)
	for rows.Next() {
		var d time.Time
		var c sql.NullFloat64
		if err := rows.Scan(&d, &c); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		out = append(out, rawFromRow(d, c))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}

	s.l.Debug("clickhouse prices loaded",
		applogger.String("symbol", s.symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func rawFromRow(d time.Time, c sql.NullFloat64) models.RawPrice {
	v := math.NaN()
	if c.Valid {
		v = c.Float64
	}
	return models.RawPrice{
		Date:  time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		Close: v,
	}
}
