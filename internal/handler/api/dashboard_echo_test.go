package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/service/cache"
	"StockCast/internal/usecase"
	"StockCast/pkg/util"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type flatModel struct{ v float64 }

func (m flatModel) Forecast(steps int) ([]float64, error) {
	out := make([]float64, steps)
	for i := range out {
		out[i] = m.v
	}
	return out, nil
}

type staticSource struct{}

func (staticSource) Fetch(context.Context) ([]models.RawPrice, error) {
	return []models.RawPrice{
		{Date: time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC), Close: 193.58},
		{Date: time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), Close: 192.53},
	}, nil
}

func (staticSource) Name() string { return "static" }

type countingPublisher struct{ n atomic.Int32 }

func (p *countingPublisher) Publish(context.Context, models.ForecastEvent) error {
	p.n.Add(1)
	return nil
}

func (p *countingPublisher) Close() error { return nil }

func newTestServer(t *testing.T, reg models.ModelRegistry, rate RateLimit) *echo.Echo {
	t.Helper()
	e, _ := newTestServerWith(t, reg, rate, usecase.DashboardConfig{}, nil)
	return e
}

func newTestServerWith(t *testing.T, reg models.ModelRegistry, rate RateLimit, cfg usecase.DashboardConfig, pub *countingPublisher) (*echo.Echo, *usecase.Dashboard) {
	t.Helper()
	history := cache.NewSnapshot(usecase.NewHistoryLoader(staticSource{}, time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC), "AAPL", nil).Load, 0)
	registry := cache.NewSnapshot(func(context.Context) (usecase.RegistrySnapshot, error) {
		return usecase.RegistrySnapshot{Registry: reg}, nil
	}, 0)
	var p domrepo.ForecastPublisher
	if pub != nil {
		p = pub
	}
	dash := usecase.NewDashboard(history, registry, usecase.NewAligner(util.RollForward, 0.95), p, nil, cfg)

	e := echo.New()
	NewDashboardHandler(nil, dash, nil, rate).RegisterRoutes(e)
	return e, dash
}

func oneModel() models.ModelRegistry {
	return models.ModelRegistry{
		"ARIMA": {Name: "ARIMA", Kind: models.KindARIMA, Model: flatModel{v: 1234.5}, LastDate: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
}

func do(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestForecastEndpoint(t *testing.T) {
	e := newTestServer(t, oneModel(), RateLimit{})
	rec := do(e, http.MethodGet, "/api/forecast?model=ARIMA&horizon=3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got forecastDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	require.Equal(t, "ARIMA", got.Model)
	require.Equal(t, 3, got.Horizon)
	require.Equal(t, "2023-12-31", got.LastDate)
	require.Equal(t, "2024-01-31", got.Points[0].Date)
	require.Equal(t, "2024-02-29", got.Points[1].Date)
	require.Equal(t, "2024-03-31", got.Points[2].Date)
	require.Equal(t, []string{"2024-01-31", "$1,234.50"}, got.Table.Rows[0])
	require.Nil(t, got.Points[0].Lower)
}

func TestForecastEndpointDefaultsHorizon(t *testing.T) {
	e := newTestServer(t, oneModel(), RateLimit{})
	rec := do(e, http.MethodGet, "/api/forecast?model=ARIMA")
	require.Equal(t, http.StatusOK, rec.Code)

	var got forecastDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	require.Equal(t, 12, got.Horizon)
	require.Len(t, got.Points, 12)
}

func TestForecastEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		reg    models.ModelRegistry
		target string
		status int
		code   string
	}{
		{"zero horizon", oneModel(), "/api/forecast?model=ARIMA&horizon=0", http.StatusBadRequest, "ERR_GTE"},
		{"horizon too large", oneModel(), "/api/forecast?model=ARIMA&horizon=37", http.StatusBadRequest, "ERR_LTE"},
		{"missing model", oneModel(), "/api/forecast?horizon=3", http.StatusBadRequest, "ERR_REQUIRED"},
		{"unknown model", oneModel(), "/api/forecast?model=LSTM&horizon=3", http.StatusNotFound, "ERR_NOT_FOUND"},
		{"empty registry", models.ModelRegistry{}, "/api/forecast?model=ARIMA&horizon=3", http.StatusConflict, "ERR_NO_MODELS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(newTestServer(t, tc.reg, RateLimit{}), http.MethodGet, tc.target)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			var errs []struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &errs))
			require.NotEmpty(t, errs)
			require.Equal(t, tc.code, errs[0].Code)
		})
	}
}

func TestForecastRateLimited(t *testing.T) {
	e := newTestServer(t, oneModel(), RateLimit{Capacity: 1, RefillPerSec: 0.0001})
	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/forecast?model=ARIMA&horizon=1").Code)
	require.Equal(t, http.StatusTooManyRequests, do(e, http.MethodGet, "/api/forecast?model=ARIMA&horizon=1").Code)
}

func TestChartEndpoint(t *testing.T) {
	e := newTestServer(t, oneModel(), RateLimit{})
	rec := do(e, http.MethodGet, "/api/forecast/chart?model=ARIMA&horizon=6")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML))
	require.Contains(t, rec.Body.String(), "ARIMA Forecast for Next 6 Months")
}

func TestModelsAndHistoryEndpoints(t *testing.T) {
	e := newTestServer(t, oneModel(), RateLimit{})

	rec := do(e, http.MethodGet, "/api/models")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"ARIMA"`)
	require.Contains(t, rec.Body.String(), `"last_date":"2023-12-31"`)

	rec = do(e, http.MethodGet, "/api/history?tail=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var h historyDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &h))
	require.Equal(t, 2, h.Points)
	require.Equal(t, [][]string{{"2023-12-29", "$192.53"}}, h.Table.Rows)
}

func TestReloadEndpoint(t *testing.T) {
	e := newTestServer(t, oneModel(), RateLimit{})
	rec := do(e, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"history_points":2`)
}

func TestIndexPage(t *testing.T) {
	e := newTestServer(t, oneModel(), RateLimit{})

	rec := do(e, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Apple Stock Price Forecasting")
	require.Contains(t, body, `<option value="ARIMA" selected>ARIMA</option>`)
	require.NotContains(t, body, "<iframe")
	require.NotContains(t, body, "new WebSocket(")

	rec = do(e, http.MethodGet, "/?model=ARIMA&horizon=3&show_history=1&run=1")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	require.Contains(t, body, "ARIMA Forecast for Next 3 Months")
	require.Contains(t, body, `<iframe srcdoc="`)
	require.NotContains(t, body, "/api/forecast/chart")
	require.Contains(t, body, "$1,234.50")
	require.Contains(t, body, "$192.53")
}

func TestIndexRunForecastsOnce(t *testing.T) {
	pub := &countingPublisher{}
	e, dash := newTestServerWith(t, oneModel(), RateLimit{Capacity: 1, RefillPerSec: 0.0001}, usecase.DashboardConfig{}, pub)

	rec := do(e, http.MethodGet, "/?model=ARIMA&horizon=3&run=1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.NotContains(t, body, `class="error"`)
	require.Contains(t, body, `<iframe srcdoc="`)
	require.Contains(t, body, "ARIMA Forecast for Next 3 Months")

	dash.Close()
	require.Equal(t, int32(1), pub.n.Load())
}

func TestForecastHonoursConfiguredHorizon(t *testing.T) {
	e, _ := newTestServerWith(t, oneModel(), RateLimit{}, usecase.DashboardConfig{MinHorizon: 3, MaxHorizon: 48, DefaultHorizon: 12}, nil)

	rec := do(e, http.MethodGet, "/api/forecast?model=ARIMA&horizon=2")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"ERR_GTE"`)

	rec = do(e, http.MethodGet, "/api/forecast?model=ARIMA&horizon=48")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got forecastDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	require.Len(t, got.Points, 48)

	rec = do(e, http.MethodGet, "/api/forecast?model=ARIMA&horizon=49")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"ERR_LTE"`)
}

func TestIndexPageEmptyRegistry(t *testing.T) {
	rec := do(newTestServer(t, models.ModelRegistry{}, RateLimit{}), http.MethodGet, "/?run=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No models available")
}

func TestIndexPageSubscribesToLiveFeed(t *testing.T) {
	e := echo.New()
	history := cache.NewSnapshot(usecase.NewHistoryLoader(staticSource{}, time.Time{}, "AAPL", nil).Load, 0)
	registry := cache.NewSnapshot(func(context.Context) (usecase.RegistrySnapshot, error) {
		return usecase.RegistrySnapshot{Registry: oneModel()}, nil
	}, 0)
	dash := usecase.NewDashboard(history, registry, usecase.NewAligner(util.RollForward, 0), nil, nil, usecase.DashboardConfig{})
	h := NewDashboardHandler(nil, dash, nil, RateLimit{})
	h.SetLiveFeedPath("/ws/forecasts")
	h.RegisterRoutes(e)

	rec := do(e, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "new WebSocket(")
	require.Contains(t, rec.Body.String(), "Recent Forecasts")
}
