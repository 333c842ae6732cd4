package usecase

import domrepo "StockCast/internal/domain/repository"

type nopMetrics struct{}

func (nopMetrics) RecordForecast(string, string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordHistorySize(int) {}
func (nopMetrics) RecordRegistrySize(int) {}
func (nopMetrics) RecordLatency(string, float64) {}

func metricsOrNop(m domrepo.Metrics) domrepo.Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
