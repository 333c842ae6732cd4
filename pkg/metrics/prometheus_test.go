package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordForecast("ARIMA", "ok")
	r.RecordForecast("ARIMA", "ok")
	r.RecordForecast("SARIMA", "error")
	r.RecordError("data_load")
	r.RecordHistorySize(3650)
	r.RecordRegistrySize(2)
	r.RecordLatency("forecast", 0.01)

	if got := testutil.ToFloat64(r.forecasts.WithLabelValues("ARIMA", "ok")); got != 2 {
		t.Fatalf("forecasts ok = %v", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("data_load")); got != 1 {
		t.Fatalf("errors = %v", got)
	}
	if got := testutil.ToFloat64(r.historyPoints); got != 3650 {
		t.Fatalf("history points = %v", got)
	}
	if got := testutil.ToFloat64(r.models); got != 2 {
		t.Fatalf("models = %v", got)
	}
}
