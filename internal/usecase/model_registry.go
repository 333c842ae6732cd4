package usecase

import (
	"context"
	"sort"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/domain/service"
	"StockCast/internal/services/tsmodel"
	applogger "StockCast/pkg/logger"
)

// DecodeFunc turns artifact bytes into a model and its training cutoff.
type DecodeFunc func(data []byte) (service.Decoded, error)

// RegistrySnapshot is one load of every configured artifact.
type RegistrySnapshot struct {
	Registry models.ModelRegistry
	Errors   []error
	LoadedAt time.Time
}

// ModelRegistryLoader loads every configured artifact, skipping the ones that fail.
type ModelRegistryLoader struct {
	store     domrepo.ArtifactStore
	locations map[string]string
	decode    DecodeFunc
	metrics   domrepo.Metrics
	l         *applogger.Logger
}

// NewModelRegistryLoader creates a loader for name -> location pairs.
func NewModelRegistryLoader(store domrepo.ArtifactStore, locations map[string]string, metrics domrepo.Metrics) *ModelRegistryLoader {
	locs := make(map[string]string, len(locations))
	for k, v := range locations {
		locs[k] = v
	}
	return &ModelRegistryLoader{
		store:     store,
		locations: locs,
		decode:    tsmodel.Decode,
		metrics:   metricsOrNop(metrics),
		l:         applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (r *ModelRegistryLoader) SetLogger(l *applogger.Logger) { r.l = l }

// SetDecoder replaces the artifact decoder.
func (r *ModelRegistryLoader) SetDecoder(d DecodeFunc) { r.decode = d }

// Load returns the registry of models that loaded plus one *models.ModelLoadError per failure.
func (r *ModelRegistryLoader) Load(ctx context.Context) (models.ModelRegistry, []error) {
	start := time.Now()
	names := make([]string, 0, len(r.locations))
	for name := range r.locations {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := make(models.ModelRegistry, len(names))
	var errs []error
	for _, name := range names {
		loc := r.locations[name]
		entry, err := r.loadOne(ctx, name, loc)
		if err != nil {
			r.metrics.RecordError("model_load")
			r.l.Warn("model load failed",
				applogger.String("model", name),
				applogger.String("location", loc),
				applogger.Error(err),
			)
			errs = append(errs, &models.ModelLoadError{Name: name, Location: loc, Err: err})
			continue
		}
		reg[name] = entry
		r.l.Info("model loaded",
			applogger.String("model", name),
			applogger.String("kind", string(entry.Kind)),
			applogger.Date("last_date", entry.LastDate),
		)
	}

	r.metrics.RecordRegistrySize(len(reg))
	r.metrics.RecordLatency("registry_load", time.Since(start).Seconds())
	return reg, errs
}

// Snapshot loads the registry as a RegistrySnapshot.
func (r *ModelRegistryLoader) Snapshot(ctx context.Context) (RegistrySnapshot, error) {
	reg, errs := r.Load(ctx)
	return RegistrySnapshot{Registry: reg, Errors: errs, LoadedAt: time.Now()}, nil
}

func (r *ModelRegistryLoader) loadOne(ctx context.Context, name, loc string) (models.RegistryEntry, error) {
	data, err := r.store.Read(ctx, loc)
	if err != nil {
		return models.RegistryEntry{}, err
	}
	dec, err := r.decode(data)
	if err != nil {
		return models.RegistryEntry{}, err
	}
	if dec.Name != "" && dec.Name != name {
		r.l.Debug("artifact name differs from registry name",
			applogger.String("model", name),
			applogger.String("artifact_name", dec.Name),
		)
	}
	return models.RegistryEntry{
		Name:     name,
		Kind:     dec.Kind,
		Model:    dec.Model,
		LastDate: dec.LastDate,
	}, nil
}
