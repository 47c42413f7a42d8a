package location

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"AlsitoQC/internal/models"
	"AlsitoQC/pkg/race"
)

// DefaultTimeout bounds the fresh-fix request.
const DefaultTimeout = 5 * time.Second

// Provider is the device location service.
type Provider interface {
	ServicesEnabled(ctx context.Context) (bool, error)
	RequestPermission(ctx context.Context) (bool, error)
	// LastKnown returns nil, nil when no cached position exists.
	LastKnown(ctx context.Context) (*models.Coordinates, error)
	Current(ctx context.Context) (models.Coordinates, error)
}

// Settings hands the user over to the system location settings.
type Settings interface {
	OpenSettings(ctx context.Context) error
}

// Observer receives one call per finished attempt.
type Observer interface {
	ObserveLocation(status models.LocationStatus, d time.Duration)
}

// Acquirer applies the acquisition policy: services check, permission,
// last-known fast path, then a fresh fix raced against Timeout.
type Acquirer struct {
	Provider Provider
	Settings Settings
	Timeout  time.Duration
	Logger   *zap.Logger
	Observer Observer
}

func NewAcquirer(p Provider, s Settings, timeout time.Duration, logger *zap.Logger) *Acquirer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Acquirer{Provider: p, Settings: s, Timeout: timeout, Logger: logger}
}

// Acquire never returns an error; every failure maps to a status. It
// does not retry.
func (a *Acquirer) Acquire(ctx context.Context) models.LocationResult {
	start := time.Now()
	res := a.acquire(ctx)
	if a.Observer != nil {
		a.Observer.ObserveLocation(res.Status, time.Since(start))
	}
	return res
}

func (a *Acquirer) acquire(ctx context.Context) models.LocationResult {
	log := a.logger()

	enabled, err := a.Provider.ServicesEnabled(ctx)
	if err != nil {
		log.Warn("location services check failed", zap.Error(err))
		return models.LocationResult{Status: models.LocationUnavailable}
	}
	if !enabled {
		if a.Settings != nil {
			if err := a.Settings.OpenSettings(ctx); err != nil {
				log.Warn("open location settings failed", zap.Error(err))
			}
		}
		return models.LocationResult{Status: models.LocationServicesDisabled}
	}

	granted, err := a.Provider.RequestPermission(ctx)
	if err != nil || !granted {
		if err != nil {
			log.Warn("location permission request failed", zap.Error(err))
		}
		return models.LocationResult{Status: models.LocationPermissionDenied}
	}

	last, err := a.Provider.LastKnown(ctx)
	if err != nil {
		log.Debug("last known position failed", zap.Error(err))
	}
	if last != nil {
		return models.LocationResult{Status: models.LocationSuccess, Coords: *last}
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	coords, err := race.WithTimeout[models.Coordinates](ctx, timeout, a.Provider.Current)
	switch {
	case err == nil:
		return models.LocationResult{Status: models.LocationSuccess, Coords: coords}
	case errors.Is(err, race.ErrTimeout):
		log.Warn("location fix timed out", zap.Duration("timeout", timeout))
		return models.LocationResult{Status: models.LocationTimeout}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.LocationResult{Status: models.LocationTimeout}
	default:
		log.Warn("location fix failed", zap.Error(err))
		return models.LocationResult{Status: models.LocationUnavailable}
	}
}

func (a *Acquirer) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
