package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/service/cache"
	"StockCast/internal/services/tsmodel"
	pkgcache "StockCast/pkg/cache"
	"StockCast/pkg/util"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeSource struct {
	rows  []models.RawPrice
	err   error
	calls int
}

func (s *fakeSource) Fetch(context.Context) ([]models.RawPrice, error) {
	s.calls++
	return s.rows, s.err
}

func (s *fakeSource) Name() string { return "fake" }

type fakeStore map[string][]byte

func (s fakeStore) Read(_ context.Context, loc string) ([]byte, error) {
	b, ok := s[loc]
	if !ok {
		return nil, errors.New("no such artifact")
	}
	return b, nil
}

// linearModel forecasts start, start+step, ...
type linearModel struct {
	start, step float64
}

func (m linearModel) Forecast(steps int) ([]float64, error) {
	out := make([]float64, steps)
	for i := range out {
		out[i] = m.start + float64(i)*m.step
	}
	return out, nil
}

type nanModel struct{}

func (nanModel) Forecast(steps int) ([]float64, error) {
	out := make([]float64, steps)
	out[steps-1] = math.NaN()
	return out, nil
}

type recPublisher struct {
	mu     sync.Mutex
	events []models.ForecastEvent
}

func (p *recPublisher) Publish(_ context.Context, ev models.ForecastEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recPublisher) Close() error { return nil }

func arimaArtifact(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(tsmodel.Artifact{
		Name: "ARIMA", Kind: "arima", LastDate: "2023-12-31",
		Order:     tsmodel.Order{P: 1},
		AR:        []float64{0.5},
		Intercept: 5,
		Variance:  1,
		History:   []float64{4, 6, 10},
	})
	require.NoError(t, err)
	return b
}

func TestCleanPricesSortsFiltersAndDedups(t *testing.T) {
	raw := []models.RawPrice{
		{Date: day(2010, 1, 5), Close: 3},
		{Date: day(2008, 12, 31), Close: 1},
		{Date: day(2010, 1, 4), Close: 2},
		{Date: day(2010, 1, 5), Close: 4},
		{Date: day(2010, 1, 6), Close: math.NaN()},
		{Date: day(2009, 1, 1), Close: 1.5},
	}
	got := CleanPrices(raw, day(2009, 1, 1))
	require.Equal(t, []models.PricePoint{
		{Date: day(2009, 1, 1), Close: 1.5},
		{Date: day(2010, 1, 4), Close: 2},
		{Date: day(2010, 1, 5), Close: 4},
	}, got)
	require.Equal(t, 3.0, raw[0].Close, "input must not be mutated")
}

func TestHistoryLoaderLoads(t *testing.T) {
	src := &fakeSource{rows: []models.RawPrice{
		{Date: day(2024, 1, 3), Close: 185.5},
		{Date: day(2024, 1, 2), Close: 184.25},
	}}
	s, err := NewHistoryLoader(src, day(2009, 1, 1), "AAPL", nil).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AAPL", s.Symbol)
	require.Equal(t, 2, s.Len())
	require.True(t, s.Points[0].Date.Before(s.Points[1].Date))
}

func TestHistoryLoaderFailureIsEmptySeries(t *testing.T) {
	cases := map[string]*fakeSource{
		"fetch error":  {err: errors.New("connection refused")},
		"all filtered": {rows: []models.RawPrice{{Date: day(2001, 1, 1), Close: 1}}},
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := NewHistoryLoader(src, day(2009, 1, 1), "AAPL", nil).Load(context.Background())
			require.True(t, s.IsEmpty())
			var dle *models.DataLoadError
			require.ErrorAs(t, err, &dle)
			require.Equal(t, "fake", dle.Source)
		})
	}
}

func TestHistoryLoaderSharedCache(t *testing.T) {
	shared := pkgcache.NewMemoryCache()
	defer shared.Close()

	first := &fakeSource{rows: []models.RawPrice{{Date: day(2024, 1, 2), Close: 184.25}}}
	l1 := NewHistoryLoader(first, day(2009, 1, 1), "AAPL", nil)
	l1.SetSharedCache(shared, time.Minute)
	_, err := l1.Load(context.Background())
	require.NoError(t, err)

	second := &fakeSource{err: errors.New("must not be called")}
	l2 := NewHistoryLoader(second, day(2009, 1, 1), "AAPL", nil)
	l2.SetSharedCache(shared, time.Minute)
	s, err := l2.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, second.calls)
	require.Equal(t, []models.PricePoint{{Date: day(2024, 1, 2), Close: 184.25}}, s.Points)
}

func TestRegistryLoadIsPartial(t *testing.T) {
	store := fakeStore{
		"good.json": arimaArtifact(t),
		"bad.json":  []byte(`{"kind":"prophet"}`),
	}
	loader := NewModelRegistryLoader(store, map[string]string{
		"ARIMA":   "good.json",
		"PROPHET": "bad.json",
		"SARIMA":  "missing.json",
	}, nil)

	reg, errs := loader.Load(context.Background())
	require.Equal(t, []string{"ARIMA"}, reg.Names())
	require.True(t, reg["ARIMA"].LastDate.Equal(day(2023, 12, 31)))
	require.Len(t, errs, 2)

	var mle *models.ModelLoadError
	require.ErrorAs(t, errs[0], &mle)
	require.Equal(t, "PROPHET", mle.Name)
	require.ErrorIs(t, errs[0], tsmodel.ErrUnknownKind)
	require.ErrorAs(t, errs[1], &mle)
	require.Equal(t, "SARIMA", mle.Name)
}

func TestRegistryLoadEmptyConfig(t *testing.T) {
	reg, errs := NewModelRegistryLoader(fakeStore{}, nil, nil).Load(context.Background())
	require.Empty(t, reg)
	require.Empty(t, errs)
}

func TestAlignMonthEndsAfterCutoff(t *testing.T) {
	for _, rule := range []util.MonthEndRule{util.RollForward, util.NextMonth} {
		f, err := NewAligner(rule, 0).Align(linearModel{start: 100, step: 1}, day(2023, 12, 31), 3)
		require.NoError(t, err)
		require.Len(t, f.Points, 3)
		require.Equal(t, day(2024, 1, 31), f.Points[0].Date)
		require.Equal(t, day(2024, 2, 29), f.Points[1].Date)
		require.Equal(t, day(2024, 3, 31), f.Points[2].Date)
		require.Equal(t, 102.0, f.Points[2].Value)
		require.False(t, f.HasIntervals)
	}
}

func TestAlignRulesDifferMidMonth(t *testing.T) {
	cutoff := day(2024, 5, 15)
	roll, err := NewAligner(util.RollForward, 0).Align(linearModel{}, cutoff, 1)
	require.NoError(t, err)
	next, err := NewAligner(util.NextMonth, 0).Align(linearModel{}, cutoff, 1)
	require.NoError(t, err)
	require.Equal(t, day(2024, 5, 31), roll.Points[0].Date)
	require.Equal(t, day(2024, 6, 30), next.Points[0].Date)
}

func TestAlignLengthMatchesHorizon(t *testing.T) {
	cutoff := day(2023, 12, 31)
	for _, rule := range []util.MonthEndRule{util.RollForward, util.NextMonth} {
		a := NewAligner(rule, 0.95)
		for h := 1; h <= 36; h++ {
			f, err := a.Align(linearModel{start: 1}, cutoff, h)
			require.NoError(t, err)
			require.Equal(t, h, f.Len())
			require.True(t, f.Points[0].Date.After(cutoff))
			for i := 1; i < f.Len(); i++ {
				require.True(t, f.Points[i].Date.After(f.Points[i-1].Date))
			}
		}
	}
}

func TestAlignNonPositiveHorizon(t *testing.T) {
	for _, h := range []int{0, -3} {
		f, err := NewAligner(util.RollForward, 0).Align(linearModel{}, day(2023, 12, 31), h)
		var fe *models.ForecastError
		require.ErrorAs(t, err, &fe)
		require.ErrorIs(t, err, models.ErrNonPositiveHorizon)
		require.Empty(t, f.Points)
	}
}

func TestAlignRejectsNonFiniteOutput(t *testing.T) {
	_, err := NewAligner(util.RollForward, 0).Align(nanModel{}, day(2023, 12, 31), 4)
	var fe *models.ForecastError
	require.ErrorAs(t, err, &fe)
}

func TestAlignAttachesIntervals(t *testing.T) {
	dec, err := tsmodel.Decode(arimaArtifact(t))
	require.NoError(t, err)
	f, err := NewAligner(util.RollForward, 0.95).Align(dec.Model, dec.LastDate, 6)
	require.NoError(t, err)
	require.True(t, f.HasIntervals)
	require.Equal(t, 0.95, f.Confidence)
	for _, p := range f.Points {
		require.Less(t, p.Lower, p.Value)
		require.Greater(t, p.Upper, p.Value)
	}
}

func newTestDashboard(t *testing.T, reg models.ModelRegistry, hist *fakeSource, pub *recPublisher) *Dashboard {
	t.Helper()
	loader := NewHistoryLoader(hist, day(2009, 1, 1), "AAPL", nil)
	history := cache.NewSnapshot(loader.Load, 0)
	registry := cache.NewSnapshot(func(context.Context) (RegistrySnapshot, error) {
		return RegistrySnapshot{Registry: reg}, nil
	}, 0)
	var p domrepo.ForecastPublisher
	if pub != nil {
		p = pub
	}
	d := NewDashboard(history, registry, NewAligner(util.RollForward, 0.95), p, nil, DashboardConfig{
		MinHorizon: 1, MaxHorizon: 36, DefaultHorizon: 12, HistoryTail: 50,
	})
	d.now = func() time.Time { return day(2024, 6, 1) }
	return d
}

func linearRegistry() models.ModelRegistry {
	return models.ModelRegistry{
		"ARIMA": {Name: "ARIMA", Kind: models.KindARIMA, Model: linearModel{start: 190, step: 0.5}, LastDate: day(2023, 12, 31)},
	}
}

func TestGenerateForecastScenarioA(t *testing.T) {
	pub := &recPublisher{}
	src := &fakeSource{rows: []models.RawPrice{{Date: day(2023, 12, 29), Close: 192.53}}}
	d := newTestDashboard(t, linearRegistry(), src, pub)

	res, err := d.GenerateForecast(context.Background(), "ARIMA", 3)
	require.NoError(t, err)
	require.Equal(t, "ARIMA", res.Forecast.Model)
	require.Equal(t, "ARIMA Forecast for Next 3 Months", res.Title)
	require.Equal(t, []string{"2024-01-31", "$190.00"}, res.ForecastTable.Rows[0])
	require.Equal(t, []string{"2024-03-31", "$191.00"}, res.ForecastTable.Rows[2])
	require.Equal(t, 1, res.History.Len())
	require.NoError(t, res.HistoryErr)
	require.Empty(t, res.Warnings)

	d.Close()
	require.Len(t, pub.events, 1)
	require.Equal(t, "ARIMA", pub.events[0].Model)
	require.Equal(t, "2024-01-31", pub.events[0].Points[0].Date)
}

func TestGenerateForecastIsIdempotent(t *testing.T) {
	d := newTestDashboard(t, linearRegistry(), &fakeSource{}, nil)
	a, err := d.GenerateForecast(context.Background(), "ARIMA", 12)
	require.NoError(t, err)
	b, err := d.GenerateForecast(context.Background(), "ARIMA", 12)
	require.NoError(t, err)
	require.Equal(t, a.Forecast, b.Forecast)
}

func TestGenerateForecastEmptyRegistry(t *testing.T) {
	d := newTestDashboard(t, models.ModelRegistry{}, &fakeSource{}, nil)
	_, err := d.GenerateForecast(context.Background(), "ARIMA", 12)
	require.ErrorIs(t, err, models.ErrNoModels)

	ov := d.Overview(context.Background())
	require.Empty(t, ov.Models)
	require.Contains(t, ov.Warnings, "No models available")
}

func TestGenerateForecastUnknownModel(t *testing.T) {
	d := newTestDashboard(t, linearRegistry(), &fakeSource{}, nil)
	_, err := d.GenerateForecast(context.Background(), "LSTM", 12)
	var nf *models.ModelNotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "LSTM", nf.Name)
}

func TestGenerateForecastHorizonBounds(t *testing.T) {
	d := newTestDashboard(t, linearRegistry(), &fakeSource{}, nil)

	_, err := d.GenerateForecast(context.Background(), "ARIMA", 0)
	var fe *models.ForecastError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "ARIMA", fe.Model)
	require.ErrorIs(t, err, models.ErrNonPositiveHorizon)

	_, err = d.GenerateForecast(context.Background(), "ARIMA", 37)
	require.ErrorIs(t, err, models.ErrHorizonOutOfRange)

	narrow := newTestDashboard(t, linearRegistry(), &fakeSource{}, nil)
	narrow.cfg.MinHorizon = 3
	_, err = narrow.GenerateForecast(context.Background(), "ARIMA", 2)
	require.ErrorIs(t, err, models.ErrHorizonOutOfRange)
	_, err = narrow.GenerateForecast(context.Background(), "ARIMA", 0)
	require.ErrorIs(t, err, models.ErrNonPositiveHorizon)
	res, err := narrow.GenerateForecast(context.Background(), "ARIMA", 3)
	require.NoError(t, err)
	require.Equal(t, 3, res.Forecast.Len())

	// the dashboard stays usable after a failed request
	res, err = d.GenerateForecast(context.Background(), "ARIMA", 36)
	require.NoError(t, err)
	require.Equal(t, 36, res.Forecast.Len())
}

func TestGenerateForecastWithoutHistory(t *testing.T) {
	d := newTestDashboard(t, linearRegistry(), &fakeSource{err: errors.New("offline")}, nil)
	res, err := d.GenerateForecast(context.Background(), "ARIMA", 2)
	require.NoError(t, err)
	require.True(t, res.History.IsEmpty())
	require.Error(t, res.HistoryErr)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "Historical data unavailable")
}

func TestOverviewReportsLoadErrors(t *testing.T) {
	loader := NewModelRegistryLoader(fakeStore{"good.json": arimaArtifact(t)}, map[string]string{
		"ARIMA":  "good.json",
		"SARIMA": "missing.json",
	}, nil)
	history := cache.NewSnapshot(NewHistoryLoader(&fakeSource{}, day(2009, 1, 1), "AAPL", nil).Load, 0)
	registry := cache.NewSnapshot(loader.Snapshot, 0)
	d := NewDashboard(history, registry, NewAligner(util.RollForward, 0.95), nil, nil, DashboardConfig{})

	ov := d.Overview(context.Background())
	require.Equal(t, []ModelInfo{{Name: "ARIMA", Kind: "arima", LastDate: "2023-12-31"}}, ov.Models)
	require.Contains(t, ov.LoadErrors, "SARIMA")
	require.Equal(t, 12, ov.DefaultHorizon)
	require.Equal(t, 36, ov.MaxHorizon)

	res, err := d.GenerateForecast(context.Background(), "ARIMA", 2)
	require.NoError(t, err)
	require.True(t, res.Forecast.HasIntervals)
	require.Equal(t, []string{"Date", "Forecast", "Lower", "Upper"}, res.ForecastTable.Columns)
}

func TestReloadRefetchesHistory(t *testing.T) {
	src := &fakeSource{rows: []models.RawPrice{{Date: day(2024, 1, 2), Close: 184.25}}}
	d := newTestDashboard(t, linearRegistry(), src, nil)

	_, err := d.History(context.Background())
	require.NoError(t, err)
	_, err = d.History(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)

	src.rows = append(src.rows, models.RawPrice{Date: day(2024, 1, 3), Close: 185})
	res := d.Reload(context.Background())
	require.Equal(t, 2, res.HistoryPoints)
	require.Equal(t, []string{"ARIMA"}, res.Models)
	require.Equal(t, 2, src.calls)
}

func TestReloadBypassesSharedCache(t *testing.T) {
	shared := pkgcache.NewMemoryCache()
	defer shared.Close()

	src := &fakeSource{rows: []models.RawPrice{{Date: day(2024, 1, 2), Close: 184.25}}}
	loader := NewHistoryLoader(src, day(2009, 1, 1), "AAPL", nil)
	loader.SetSharedCache(shared, time.Hour)

	d := newTestDashboard(t, linearRegistry(), src, nil)
	d.history = cache.NewSnapshot(loader.Load, 0)
	d.SetHistoryInvalidator(loader.Invalidate)

	_, err := d.History(context.Background())
	require.NoError(t, err)

	src.rows = append(src.rows, models.RawPrice{Date: day(2024, 1, 3), Close: 185})
	require.NoError(t, d.ReloadHistory(context.Background()))
	s, err := d.History(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	require.Equal(t, 2, src.calls)
}
