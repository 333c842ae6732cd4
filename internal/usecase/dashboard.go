package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/presenter"
	"StockCast/internal/service/cache"
	applogger "StockCast/pkg/logger"
)

// DashboardConfig bounds requests and sizes the history view.
type DashboardConfig struct {
	MinHorizon     int
	MaxHorizon     int
	DefaultHorizon int
	HistoryTail    int
	PublishTimeout time.Duration
}

// Dashboard answers forecast requests from the history and registry snapshots.
type Dashboard struct {
	history  *cache.Snapshot[models.PriceSeries]
	registry *cache.Snapshot[RegistrySnapshot]
	aligner  *Aligner
	pub      domrepo.ForecastPublisher
	metrics  domrepo.Metrics
	cfg      DashboardConfig
	l        *applogger.Logger
	now      func() time.Time

	invalidate func(ctx context.Context) error

	wg sync.WaitGroup
}

// ModelInfo describes one registry entry for display.
type ModelInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	LastDate string `json:"last_date"`
}

// Overview is the dashboard state before any forecast is requested.
type Overview struct {
	Models         []ModelInfo       `json:"models"`
	LoadErrors     map[string]string `json:"load_errors,omitempty"`
	HistoryPoints  int               `json:"history_points"`
	HistoryTable   presenter.Table   `json:"history_table"`
	DefaultHorizon int               `json:"default_horizon"`
	MinHorizon     int               `json:"min_horizon"`
	MaxHorizon     int               `json:"max_horizon"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// ForecastResult is a forecast plus everything needed to render it.
type ForecastResult struct {
	Forecast      models.ForecastSeries
	History       models.PriceSeries
	HistoryErr    error
	Title         string
	ForecastTable presenter.Table
	HistoryTable  presenter.Table
	Warnings      []string
}

// ReloadResult summarises a reload.
type ReloadResult struct {
	HistoryPoints int      `json:"history_points"`
	Models        []string `json:"models"`
	Errors        []string `json:"errors,omitempty"`
}

// NewDashboard wires the snapshots and aligner.
func NewDashboard(
	history *cache.Snapshot[models.PriceSeries],
	registry *cache.Snapshot[RegistrySnapshot],
	aligner *Aligner,
	pub domrepo.ForecastPublisher,
	metrics domrepo.Metrics,
	cfg DashboardConfig,
) *Dashboard {
	if cfg.MinHorizon <= 0 {
		cfg.MinHorizon = 1
	}
	if cfg.MaxHorizon <= 0 {
		cfg.MaxHorizon = 36
	}
	if cfg.DefaultHorizon <= 0 {
		cfg.DefaultHorizon = 12
	}
	if cfg.HistoryTail <= 0 {
		cfg.HistoryTail = 50
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Dashboard{
		history:  history,
		registry: registry,
		aligner:  aligner,
		pub:      pub,
		metrics:  metricsOrNop(metrics),
		cfg:      cfg,
		l:        applogger.Nop(),
		now:      time.Now,
	}
}

// SetLogger injects a structured logger.
func (d *Dashboard) SetLogger(l *applogger.Logger) { d.l = l }

// SetHistoryInvalidator registers fn to run before every history reload,
// typically HistoryLoader.Invalidate.
func (d *Dashboard) SetHistoryInvalidator(fn func(ctx context.Context) error) { d.invalidate = fn }

// Config returns the request bounds.
func (d *Dashboard) Config() DashboardConfig { return d.cfg }

// GenerateForecast runs the named model for horizon months.
// Errors: models.ErrNoModels, *models.ModelNotFoundError, *models.ForecastError.
func (d *Dashboard) GenerateForecast(ctx context.Context, name string, horizon int) (*ForecastResult, error) {
	start := time.Now()
	snap, _ := d.registry.Get(ctx)
	if len(snap.Registry) == 0 {
		return nil, models.ErrNoModels
	}
	entry, ok := snap.Registry.Lookup(name)
	if !ok {
		return nil, &models.ModelNotFoundError{Name: name}
	}

	// non-positive horizons are left to the aligner
	if horizon > d.cfg.MaxHorizon || (horizon > 0 && horizon < d.cfg.MinHorizon) {
		d.metrics.RecordForecast(name, "error")
		return nil, &models.ForecastError{Model: name, Horizon: horizon,
			Err: fmt.Errorf("%w: %d not in [%d, %d]", models.ErrHorizonOutOfRange, horizon, d.cfg.MinHorizon, d.cfg.MaxHorizon)}
	}

	series, err := d.aligner.Align(entry.Model, entry.LastDate, horizon)
	if err != nil {
		d.metrics.RecordForecast(name, "error")
		d.metrics.RecordError("forecast")
		var fe *models.ForecastError
		if errors.As(err, &fe) {
			fe.Model = name
		}
		d.l.Warn("forecast failed",
			applogger.String("model", name),
			applogger.Int("horizon", horizon),
			applogger.Error(err),
		)
		return nil, err
	}
	series.Model = name

	hist, histErr := d.history.Get(ctx)
	res := &ForecastResult{
		Forecast:      series,
		History:       hist,
		HistoryErr:    histErr,
		Title:         presenter.ChartTitle(name, horizon),
		ForecastTable: presenter.ForecastTable(series),
		HistoryTable:  presenter.HistoryTable(hist, d.cfg.HistoryTail),
		Warnings:      d.warnings(histErr, snap),
	}

	d.metrics.RecordForecast(name, "ok")
	d.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	d.l.Info("forecast generated",
		applogger.String("model", name),
		applogger.Int("horizon", horizon),
		applogger.Date("last_date", entry.LastDate),
		applogger.Date("first", series.Points[0].Date),
	)

	d.publish(series)
	return res, nil
}

// Chart renders a forecast result as an HTML page.
func (d *Dashboard) Chart(res *ForecastResult) ([]byte, error) {
	return presenter.Chart(res.History.Points, res.Forecast, res.Title)
}

// Overview returns models, load errors and the recent history table.
func (d *Dashboard) Overview(ctx context.Context) Overview {
	snap, _ := d.registry.Get(ctx)
	hist, histErr := d.history.Get(ctx)

	ov := Overview{
		Models:         modelInfos(snap.Registry),
		HistoryPoints:  hist.Len(),
		HistoryTable:   presenter.HistoryTable(hist, d.cfg.HistoryTail),
		DefaultHorizon: d.cfg.DefaultHorizon,
		MinHorizon:     d.cfg.MinHorizon,
		MaxHorizon:     d.cfg.MaxHorizon,
		Warnings:       d.warnings(histErr, snap),
	}
	for _, err := range snap.Errors {
		var mle *models.ModelLoadError
		if errors.As(err, &mle) {
			if ov.LoadErrors == nil {
				ov.LoadErrors = make(map[string]string)
			}
			ov.LoadErrors[mle.Name] = mle.Err.Error()
		}
	}
	return ov
}

// History returns the current history snapshot.
func (d *Dashboard) History(ctx context.Context) (models.PriceSeries, error) {
	return d.history.Get(ctx)
}

// Reload refreshes both snapshots.
func (d *Dashboard) Reload(ctx context.Context) ReloadResult {
	d.invalidateHistory(ctx)
	hist, histErr := d.history.Reload(ctx)
	snap, _ := d.registry.Reload(ctx)

	res := ReloadResult{HistoryPoints: hist.Len(), Models: snap.Registry.Names()}
	if histErr != nil {
		res.Errors = append(res.Errors, histErr.Error())
	}
	for _, err := range snap.Errors {
		res.Errors = append(res.Errors, err.Error())
	}
	d.l.Info("dashboard reloaded",
		applogger.Int("history_points", res.HistoryPoints),
		applogger.Strings("models", res.Models),
		applogger.Int("errors", len(res.Errors)),
	)
	return res
}

// ReloadHistory refreshes the history snapshot only.
func (d *Dashboard) ReloadHistory(ctx context.Context) error {
	d.invalidateHistory(ctx)
	_, err := d.history.Reload(ctx)
	return err
}

// Close waits for in-flight event publishes.
func (d *Dashboard) Close() {
	d.wg.Wait()
}

func (d *Dashboard) invalidateHistory(ctx context.Context) {
	if d.invalidate == nil {
		return
	}
	if err := d.invalidate(ctx); err != nil {
		d.l.Warn("history cache invalidation failed", applogger.Error(err))
	}
}

func (d *Dashboard) publish(series models.ForecastSeries) {
	if d.pub == nil {
		return
	}
	ev := models.NewForecastEvent(series, d.now())
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PublishTimeout)
		defer cancel()
		if err := d.pub.Publish(ctx, ev); err != nil {
			d.metrics.RecordError("publish")
			d.l.Warn("forecast event publish failed", applogger.String("model", ev.Model), applogger.Error(err))
		}
	}()
}

func (d *Dashboard) warnings(histErr error, snap RegistrySnapshot) []string {
	var out []string
	if histErr != nil {
		out = append(out, "Historical data unavailable: "+histErr.Error())
	}
	for _, err := range snap.Errors {
		out = append(out, err.Error())
	}
	if len(snap.Registry) == 0 {
		out = append(out, "No models available")
	}
	return out
}

func modelInfos(reg models.ModelRegistry) []ModelInfo {
	out := make([]ModelInfo, 0, len(reg))
	for _, name := range reg.Names() {
		e := reg[name]
		out = append(out, ModelInfo{Name: name, Kind: string(e.Kind), LastDate: e.LastDate.Format("2006-01-02")})
	}
	return out
}
