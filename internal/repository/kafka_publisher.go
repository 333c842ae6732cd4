package repository

import (
	"context"
	"errors"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
)

// KafkaPublisher implements ForecastPublisher using Kafka, keyed by model name.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
}

func NewKafkaPublisher(p *pkgkafka.Producer) domrepo.ForecastPublisher {
	return &KafkaPublisher{producer: p}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev models.ForecastEvent) error {
	return p.producer.Publish(ctx, []byte(ev.Model), ev)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops events; used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.ForecastEvent) error { return nil }
func (NoopPublisher) Close() error { return nil }

// FanoutPublisher sends every event to all publishers and joins their errors.
type FanoutPublisher []domrepo.ForecastPublisher

func (f FanoutPublisher) Publish(ctx context.Context, ev models.ForecastEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f FanoutPublisher) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
