package models

import (
	"errors"
	"fmt"
)

// ErrEmptyHistory is wrapped by DataLoadError when a source returns no usable rows.
var ErrEmptyHistory = errors.New("no usable price rows")

var (
	// ErrNonPositiveHorizon is wrapped by ForecastError when horizon <= 0.
	ErrNonPositiveHorizon = errors.New("horizon must be positive")
	// ErrHorizonOutOfRange is wrapped by ForecastError when horizon exceeds the configured maximum.
	ErrHorizonOutOfRange = errors.New("horizon out of range")
)

// DataLoadError reports that historical prices could not be loaded.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load history from %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// ModelLoadError reports that one model artifact could not be loaded.
type ModelLoadError struct {
	Name     string
	Location string
	Err      error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q from %s: %v", e.Name, e.Location, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// ForecastError reports a failed forecast; no partial series accompanies it.
type ForecastError struct {
	Model   string
	Horizon int
	Err     error
}

func (e *ForecastError) Error() string {
	return fmt.Sprintf("forecast %s (horizon %d): %v", e.Model, e.Horizon, e.Err)
}

func (e *ForecastError) Unwrap() error { return e.Err }

// ModelNotFoundError is returned when a requested name is absent from the registry.
type ModelNotFoundError struct {
	Name string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q not found", e.Name)
}

// ErrNoModels is returned when a forecast is requested from an empty registry.
var ErrNoModels = errors.New("no models available")
