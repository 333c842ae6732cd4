package repository

import (
	"context"

	"StockCast/internal/domain/models"
)

// HistorySource yields raw daily closes; the loader sorts, filters and dedups them.
type HistorySource interface {
	Fetch(ctx context.Context) ([]models.RawPrice, error)
	Name() string
}

// ArtifactStore reads a model artifact by location (file path or URL).
type ArtifactStore interface {
	Read(ctx context.Context, location string) ([]byte, error)
}

// ForecastPublisher emits forecast events.
type ForecastPublisher interface {
	Publish(ctx context.Context, ev models.ForecastEvent) error
	Close() error
}

type Metrics interface {
	RecordForecast(model, result string)
	RecordError(kind string)
	RecordHistorySize(n int)
	RecordRegistrySize(n int)
	RecordLatency(op string, seconds float64)
}
