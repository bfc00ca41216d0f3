// Package monitor exposes the operations the web layer performs on the registry.
package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hazz-dev/webcheck/internal/logging"
	"github.com/hazz-dev/webcheck/internal/registry"
	"github.com/hazz-dev/webcheck/internal/telemetry"
)

// Persister writes the registry snapshot immediately.
type Persister interface {
	SaveNow(ctx context.Context, trigger string) error
}

// Trigger launches an out-of-band probe of url.
type Trigger interface {
	Trigger(ctx context.Context, url string)
}

// Service applies mutations to the registry and follows each one with an
// immediate snapshot write. A new resource also gets probed right away.
type Service struct {
	reg     *registry.Registry
	persist Persister
	probes  Trigger
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Service.
func New(reg *registry.Registry, persist Persister, probes Trigger, logger *zap.Logger) *Service {
	return &Service{
		reg:     reg,
		persist: persist,
		probes:  probes,
		logger:  logging.OrNop(logger),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() registry.Snapshot {
	return s.reg.Snapshot()
}

// Add registers url, saves, and probes it once. It returns
// registry.ErrInvalidURL or registry.ErrDuplicate without side effects.
// A failed save is logged, not returned: the resource is registered.
func (s *Service) Add(ctx context.Context, url string) error {
	if err := s.reg.Add(url, s.now()); err != nil {
		s.logger.Info("resource_add_rejected", zap.String("url", url), zap.Error(err))
		return err
	}
	s.logger.Info("resource_added", zap.String("url", url))

	s.save(ctx)
	s.probes.Trigger(ctx, url)
	return nil
}

// Remove unregisters url and reports whether it was present. The snapshot
// is written either way.
func (s *Service) Remove(ctx context.Context, url string) bool {
	removed := s.reg.Remove(url)
	s.logger.Info("resource_removed", zap.String("url", url), zap.Bool("removed", removed))

	s.save(ctx)
	return removed
}

// UpdateConfig stores the clamped intervals, saves, and returns what was stored.
func (s *Service) UpdateConfig(ctx context.Context, checkInterval, refreshInterval int) registry.AppConfig {
	cfg := s.reg.UpdateConfig(checkInterval, refreshInterval)
	s.logger.Info("config_updated",
		zap.Int("check_interval", cfg.CheckInterval),
		zap.Int("refresh_interval", cfg.RefreshInterval),
	)

	s.save(ctx)
	return cfg
}

// Shutdown writes a final snapshot and closes every closer, combining errors.
func (s *Service) Shutdown(ctx context.Context, closers ...func() error) error {
	err := s.persist.SaveNow(ctx, telemetry.TriggerShutdown)
	for _, c := range closers {
		err = multierr.Append(err, c())
	}
	return err
}

func (s *Service) save(ctx context.Context) {
	// The registry lock is already released here; the gate takes its own
	// read lock to snapshot. The write must outlive a disconnected client.
	if err := s.persist.SaveNow(context.WithoutCancel(ctx), telemetry.TriggerMutation); err != nil {
		s.logger.Warn("mutation_not_persisted", zap.Error(err))
	}
}

// IsValidationError reports whether err came from rejecting an add.
func IsValidationError(err error) bool {
	return errors.Is(err, registry.ErrInvalidURL) || errors.Is(err, registry.ErrDuplicate)
}
