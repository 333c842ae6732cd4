package usecase

import (
	"context"
	"fmt"
	"time"

	applogger "StockCast/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Refresher reloads the history snapshot on a cron schedule.
type Refresher struct {
	cron    *cron.Cron
	spec    string
	reload  func(ctx context.Context) error
	timeout time.Duration
	l       *applogger.Logger
}

// NewRefresher schedules reload at spec (standard 5-field cron or @every/@daily).
// An empty spec yields a refresher that never runs.
func NewRefresher(spec string, reload func(ctx context.Context) error) *Refresher {
	return &Refresher{
		cron:    cron.New(),
		spec:    spec,
		reload:  reload,
		timeout: 2 * time.Minute,
		l:       applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (r *Refresher) SetLogger(l *applogger.Logger) { r.l = l }

// Start registers the job and starts the scheduler.
func (r *Refresher) Start() error {
	if r.spec == "" {
		return nil
	}
	if _, err := r.cron.AddFunc(r.spec, r.run); err != nil {
		return fmt.Errorf("register refresh job: %w", err)
	}
	r.cron.Start()
	r.l.Info("history refresh scheduled", applogger.String("cron", r.spec))
	return nil
}

// Stop stops the scheduler and waits for a running job, up to ctx.
func (r *Refresher) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	start := time.Now()
	if err := r.reload(ctx); err != nil {
		r.l.Warn("scheduled history refresh failed", applogger.Error(err))
		return
	}
	r.l.Info("scheduled history refresh done", applogger.Duration("duration_ms", time.Since(start)))
}
