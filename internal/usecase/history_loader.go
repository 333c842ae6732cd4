package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgcache "StockCast/pkg/cache"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/util"
)

// HistoryLoader turns raw source rows into a clean PriceSeries.
type HistoryLoader struct {
	src     domrepo.HistorySource
	floor   time.Time
	symbol  string
	metrics domrepo.Metrics
	l       *applogger.Logger

	shared    pkgcache.Service
	sharedTTL time.Duration
}

// NewHistoryLoader creates a loader keeping only dates on or after floor.
func NewHistoryLoader(src domrepo.HistorySource, floor time.Time, symbol string, metrics domrepo.Metrics) *HistoryLoader {
	return &HistoryLoader{
		src:     src,
		floor:   util.Day(floor),
		symbol:  symbol,
		metrics: metricsOrNop(metrics),
		l:       applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (h *HistoryLoader) SetLogger(l *applogger.Logger) { h.l = l }

// SetSharedCache lets several processes share one fetch through c (usually Redis).
func (h *HistoryLoader) SetSharedCache(c pkgcache.Service, ttl time.Duration) {
	h.shared = c
	h.sharedTTL = ttl
}

type cachedPoint struct {
	Date  string  `json:"d"`
	Close float64 `json:"c"`
}

func (h *HistoryLoader) cacheKey() string {
	return pkgcache.GenerateKey("history", pkgcache.HashKey(h.src.Name()+"|"+h.floor.Format("2006-01-02")))
}

// Load fetches and cleans the history. On failure it returns an empty series and a
// *models.DataLoadError; nothing is cached.
func (h *HistoryLoader) Load(ctx context.Context) (models.PriceSeries, error) {
	start := time.Now()

	if s, ok := h.fromShared(ctx); ok {
		h.l.Debug("history served from shared cache", applogger.Int("points", s.Len()))
		h.metrics.RecordHistorySize(s.Len())
		return s, nil
	}

	raw, err := h.src.Fetch(ctx)
	if err != nil {
		return h.fail(err)
	}
	s := models.PriceSeries{Symbol: h.symbol, Points: CleanPrices(raw, h.floor)}
	if s.IsEmpty() {
		return h.fail(models.ErrEmptyHistory)
	}

	h.toShared(ctx, s)
	h.metrics.RecordHistorySize(s.Len())
	h.metrics.RecordLatency("history_load", time.Since(start).Seconds())

	first, last := s.Points[0], s.Points[len(s.Points)-1]
	h.l.Info("history loaded",
		applogger.String("source", h.src.Name()),
		applogger.Int("raw_rows", len(raw)),
		applogger.Int("points", s.Len()),
		applogger.Date("first", first.Date),
		applogger.Date("last", last.Date),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return s, nil
}

// Invalidate drops the shared cache entry so the next Load refetches from the source.
func (h *HistoryLoader) Invalidate(ctx context.Context) error {
	if h.shared == nil {
		return nil
	}
	return h.shared.Delete(ctx, h.cacheKey())
}

func (h *HistoryLoader) fail(err error) (models.PriceSeries, error) {
	h.metrics.RecordError("data_load")
	h.metrics.RecordHistorySize(0)
	h.l.Warn("history load failed", applogger.String("source", h.src.Name()), applogger.Error(err))
	return models.PriceSeries{Symbol: h.symbol}, &models.DataLoadError{Source: h.src.Name(), Err: err}
}

func (h *HistoryLoader) fromShared(ctx context.Context) (models.PriceSeries, bool) {
	if h.shared == nil {
		return models.PriceSeries{}, false
	}
	var pts []cachedPoint
	if err := h.shared.Get(ctx, h.cacheKey(), &pts); err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			h.l.Warn("shared history cache read failed", applogger.Error(err))
		}
		return models.PriceSeries{}, false
	}
	s := models.PriceSeries{Symbol: h.symbol, Points: make([]models.PricePoint, 0, len(pts))}
	for _, p := range pts {
		d, err := util.ParseDate(p.Date)
		if err != nil {
			return models.PriceSeries{}, false
		}
		s.Points = append(s.Points, models.PricePoint{Date: d, Close: p.Close})
	}
	return s, !s.IsEmpty()
}

func (h *HistoryLoader) toShared(ctx context.Context, s models.PriceSeries) {
	if h.shared == nil {
		return
	}
	pts := make([]cachedPoint, len(s.Points))
	for i, p := range s.Points {
		pts[i] = cachedPoint{Date: p.Date.Format("2006-01-02"), Close: p.Close}
	}
	if err := h.shared.Set(ctx, h.cacheKey(), pts, h.sharedTTL); err != nil {
		h.l.Warn("shared history cache write failed", applogger.Error(err))
	}
}

// CleanPrices drops missing closes and dates before floor, sorts ascending and keeps
// the last record (in source order) for each date.
func CleanPrices(raw []models.RawPrice, floor time.Time) []models.PricePoint {
	kept := make([]models.PricePoint, 0, len(raw))
	for _, r := range raw {
		if !util.Finite(r.Close) {
			continue
		}
		d := util.Day(r.Date)
		if d.Before(floor) {
			continue
		}
		kept = append(kept, models.PricePoint{Date: d, Close: r.Close})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Date.Before(kept[j].Date) })

	out := kept[:0]
	for _, p := range kept {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
