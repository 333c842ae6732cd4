package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockCast/internal/service/ratelimit"
	"StockCast/internal/usecase"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	applogger "StockCast/pkg/logger"
)

// limiterIdle is how long a client's rate-limit bucket survives without requests.
const limiterIdle = 10 * time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	dash       *usecase.Dashboard
	refresher  *usecase.Refresher
	limiter    *ratelimit.Limiter
	httpServer *xhttp.Server
	handlers   []xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	dash *usecase.Dashboard,
	refresher *usecase.Refresher,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		dash:      dash,
		refresher: refresher,
		limiter:   limiter,
	}
}

// AddHTTPHandler allows DI to inject HTTP handlers.
func (a *App) AddHTTPHandler(h xhttp.Handler) { a.handlers = append(a.handlers, h) }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// warm both snapshots so the first page load does not pay for the downloads
	ov := a.dash.Overview(ctx)
	a.l.Info("dashboard ready",
		applogger.Int("models", len(ov.Models)),
		applogger.Int("history_points", ov.HistoryPoints),
		applogger.Int("warnings", len(ov.Warnings)),
	)
	for _, w := range ov.Warnings {
		a.l.Warn("startup warning", applogger.String("warning", w))
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handlers,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(a.l.With(applogger.String("component", "http"))),
	)

	if err := a.refresher.Start(); err != nil {
		a.l.Error("refresher start error", applogger.Error(err))
		return err
	}

	go a.pruneLimiter(ctx)

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Prune(limiterIdle); n > 0 {
				a.l.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown gracefully stops all services. Infrastructure clients are closed by
// the DI cleanup after Run returns.
func (a *App) shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	a.refresher.Stop(shutdownCtx)

	// wait for in-flight forecast events
	a.dash.Close()

	a.l.Info("shutdown complete")
	return nil
}
