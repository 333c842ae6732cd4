package di

import (
	"fmt"
	"strconv"

	"StockCast/internal/domain/repository"
	"StockCast/internal/handler/api"
	internalrepo "StockCast/internal/repository"
	"StockCast/internal/service/cache"
	"StockCast/internal/service/livefeed"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/usecase"
	pkgcache "StockCast/pkg/cache"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/server"
	"StockCast/pkg/util"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHTTPClient creates the outbound client for CSV and artifact downloads.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.History.Timeout))
}

// ProvideHistorySource picks the CSV or ClickHouse backend.
func ProvideHistorySource(cfg *config.Config, client *xhttp.Client, l *applogger.Logger) (repository.HistorySource, func(), error) {
	switch cfg.History.Backend {
	case "clickhouse":
		ch, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		src := internalrepo.NewCHPriceSource(ch, cfg.ClickHouse.Table, cfg.History.Symbol)
		src.SetLogger(l)
		cleanup := func() {
			if err := ch.Close(); err != nil {
				l.Warn("clickhouse close error", applogger.Error(err))
			}
		}
		return src, cleanup, nil
	default:
		src := internalrepo.NewCSVSource(cfg.History.SourceURL, client, cfg.History.Timeout)
		src.SetLogger(l)
		return src, func() {}, nil
	}
}

// ProvideSharedCache returns a memory+Redis cache when Redis is enabled, nil otherwise.
func ProvideSharedCache(cfg *config.Config, l *applogger.Logger) (pkgcache.Service, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Cache.Redis.Host),
		pkgcache.WithRedisPort(cfg.Cache.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := pkgcache.NewLayeredCache(rc,
		pkgcache.WithMemoryMaxSize(16),
		pkgcache.WithMemoryDefaultTTL(cfg.Cache.HistoryTTL),
	)
	l.Info("shared history cache enabled",
		applogger.String("redis", cfg.Cache.Redis.Host+":"+strconv.Itoa(cfg.Cache.Redis.Port)))
	cleanup := func() {
		if err := lc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return lc, cleanup, nil
}

// ProvideHistoryLoader creates the history loader use case.
func ProvideHistoryLoader(
	cfg *config.Config,
	src repository.HistorySource,
	shared pkgcache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.HistoryLoader {
	h := usecase.NewHistoryLoader(src, cfg.MinDate(), cfg.History.Symbol, m)
	h.SetLogger(l.With(applogger.String("component", "history")))
	if shared != nil {
		h.SetSharedCache(shared, cfg.Cache.HistoryTTL)
	}
	return h
}

// ProvideArtifactStore creates the model artifact reader.
func ProvideArtifactStore(client *xhttp.Client) repository.ArtifactStore {
	return internalrepo.NewArtifactStore("", client)
}

// ProvideModelRegistryLoader creates the registry loader for the configured models.
func ProvideModelRegistryLoader(
	cfg *config.Config,
	store repository.ArtifactStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ModelRegistryLoader {
	r := usecase.NewModelRegistryLoader(store, cfg.Models, m)
	r.SetLogger(l.With(applogger.String("component", "registry")))
	return r
}

// ProvideLiveFeed creates the WebSocket hub, or nil when the live feed is disabled.
func ProvideLiveFeed(cfg *config.Config, l *applogger.Logger) *livefeed.Hub {
	if !cfg.Live.Enabled {
		return nil
	}
	h := livefeed.New(cfg.Live.PingInterval)
	h.SetLogger(l.With(applogger.String("component", "livefeed")))
	return h
}

// ProvideForecastPublisher fans events out to Kafka and the live feed, whichever are enabled.
func ProvideForecastPublisher(cfg *config.Config, hub *livefeed.Hub, l *applogger.Logger) (repository.ForecastPublisher, func(), error) {
	var pubs internalrepo.FanoutPublisher
	if hub != nil {
		pubs = append(pubs, hub)
	}
	kafkaPub, err := provideKafkaPublisher(cfg, l)
	if err != nil {
		return nil, nil, err
	}
	if kafkaPub != nil {
		pubs = append(pubs, kafkaPub)
	}
	if len(pubs) == 0 {
		return internalrepo.NoopPublisher{}, func() {}, nil
	}
	cleanup := func() {
		if err := pubs.Close(); err != nil {
			l.Warn("forecast publisher close error", applogger.Error(err))
		}
	}
	return pubs, cleanup, nil
}

func provideKafkaPublisher(cfg *config.Config, l *applogger.Logger) (repository.ForecastPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.Info("kafka forecast events enabled",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("topic", cfg.Kafka.Topic),
	)
	return internalrepo.NewKafkaPublisher(producer), nil
}

// ProvideAligner creates the forecast aligner.
func ProvideAligner(cfg *config.Config) (*usecase.Aligner, error) {
	rule, err := util.ParseMonthEndRule(cfg.Forecast.MonthEndRule)
	if err != nil {
		return nil, err
	}
	return usecase.NewAligner(rule, cfg.Forecast.Confidence), nil
}

// ProvideDashboard wires both snapshots into the dashboard use case.
func ProvideDashboard(
	cfg *config.Config,
	history *usecase.HistoryLoader,
	registry *usecase.ModelRegistryLoader,
	aligner *usecase.Aligner,
	pub repository.ForecastPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Dashboard {
	d := usecase.NewDashboard(
		cache.NewSnapshot(history.Load, cfg.Cache.HistoryTTL),
		cache.NewSnapshot(registry.Snapshot, 0),
		aligner,
		pub,
		m,
		usecase.DashboardConfig{
			MinHorizon:     cfg.Forecast.MinHorizon,
			MaxHorizon:     cfg.Forecast.MaxHorizon,
			DefaultHorizon: cfg.Forecast.DefaultHorizon,
			HistoryTail:    cfg.History.TailRows,
			PublishTimeout: cfg.Kafka.WriteTimeout,
		},
	)
	d.SetLogger(l.With(applogger.String("component", "dashboard")))
	d.SetHistoryInvalidator(history.Invalidate)
	return d
}

// ProvideRefresher schedules history reloads.
func ProvideRefresher(cfg *config.Config, d *usecase.Dashboard, l *applogger.Logger) *usecase.Refresher {
	r := usecase.NewRefresher(cfg.Refresh.Cron, d.ReloadHistory)
	r.SetLogger(l.With(applogger.String("component", "refresher")))
	return r
}

// ProvideLimiter creates the forecast rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideDashboardHandler creates the HTTP handler.
func ProvideDashboardHandler(
	cfg *config.Config,
	d *usecase.Dashboard,
	limiter *ratelimit.Limiter,
	hub *livefeed.Hub,
	l *applogger.Logger,
) *api.DashboardHandler {
	h := api.NewDashboardHandler(l, d, limiter, api.RateLimit{
		Capacity:     cfg.Forecast.RateLimit.Capacity,
		RefillPerSec: cfg.Forecast.RateLimit.RefillPerSec,
	})
	if hub != nil {
		h.SetLiveFeedPath(livefeed.Path)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	d *usecase.Dashboard,
	r *usecase.Refresher,
	limiter *ratelimit.Limiter,
	h *api.DashboardHandler,
	hub *livefeed.Hub,
) *server.App {
	app := server.New(cfg, l, d, r, limiter)
	app.AddHTTPHandler(h)
	if hub != nil {
		app.AddHTTPHandler(hub)
	}
	return app
}
