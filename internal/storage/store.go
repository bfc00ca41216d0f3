// Package storage persists registry snapshots and decides when to write them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hazz-dev/webcheck/internal/config"
	"github.com/hazz-dev/webcheck/internal/logging"
	"github.com/hazz-dev/webcheck/internal/registry"
)

// Store reads and writes whole registry snapshots.
type Store interface {
	// Load returns ErrNoSnapshot when nothing has been saved.
	Load(ctx context.Context) (registry.Snapshot, error)
	Save(ctx context.Context, snap registry.Snapshot) error
	Close() error
}

// Open returns the Store selected by cfg.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		return NewFileStore(cfg.Path), nil
	case config.DriverSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Defaults seed a registry when no snapshot can be loaded.
type Defaults struct {
	URLs   []string
	Config registry.AppConfig
}

// LoadOrDefault builds the registry from the stored snapshot, falling back
// to defaults when none exists or it cannot be read. The second result
// reports whether a snapshot was used.
func LoadOrDefault(ctx context.Context, store Store, defaults Defaults, logger *zap.Logger) (*registry.Registry, bool) {
	logger = logging.OrNop(logger)
	snap, err := store.Load(ctx)
	switch {
	case err == nil:
		logger.Info("snapshot_loaded", zap.Int("resources", len(snap.Resources)))
		return registry.New(snap.Resources, snap.Config), true
	case errors.Is(err, ErrNoSnapshot):
		logger.Info("snapshot_missing_using_defaults", zap.Int("resources", len(defaults.URLs)))
	default:
		logger.Warn("snapshot_load_failed_using_defaults", zap.Error(err))
	}
	return registry.NewDefault(defaults.URLs, defaults.Config, time.Now().UTC()), false
}
