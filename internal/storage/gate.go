package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hazz-dev/webcheck/internal/logging"
	"github.com/hazz-dev/webcheck/internal/registry"
	"github.com/hazz-dev/webcheck/internal/telemetry"
)

// DefaultSaveInterval is the minimum spacing between check-driven writes.
const DefaultSaveInterval = 10 * time.Minute

// Saver writes a full snapshot.
type Saver interface {
	Save(ctx context.Context, snap registry.Snapshot) error
}

// SnapshotSource provides the state to persist.
type SnapshotSource interface {
	Snapshot() registry.Snapshot
}

// Gate decides when the registry is written to its store. Mutations write
// immediately; check results write at most once per interval.
type Gate struct {
	saver    Saver
	source   SnapshotSource
	interval time.Duration
	logger   *zap.Logger
	metrics  *telemetry.Instruments
	now      func() time.Time

	// writeMu keeps each snapshot-then-save pair in order, so an older
	// snapshot never overwrites a newer one.
	writeMu sync.Mutex

	mu       sync.Mutex
	lastSave time.Time
	saving   bool
}

// NewGate creates a Gate. A non-positive interval uses DefaultSaveInterval.
func NewGate(saver Saver, source SnapshotSource, interval time.Duration, logger *zap.Logger) *Gate {
	if interval <= 0 {
		interval = DefaultSaveInterval
	}
	return &Gate{
		saver:    saver,
		source:   source,
		interval: interval,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
}

// SetInstruments enables write metrics.
func (g *Gate) SetInstruments(m *telemetry.Instruments) {
	g.metrics = m
}

// SetClock replaces the time source used for throttling.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// LastSave returns the time of the last successful check-driven write.
func (g *Gate) LastSave() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSave
}

// SaveNow writes the current snapshot unconditionally. The caller must not
// hold the registry lock. Errors are logged and returned.
func (g *Gate) SaveNow(ctx context.Context, trigger string) error {
	return g.write(ctx, trigger)
}

// AfterCheck writes the snapshot if the save interval has elapsed since the
// last check-driven write. It reports whether a write was attempted. The
// throttle only advances when the write succeeds, so a failure is retried
// by the next check.
func (g *Gate) AfterCheck(ctx context.Context) (bool, error) {
	now := g.now()

	g.mu.Lock()
	if g.saving || (!g.lastSave.IsZero() && now.Sub(g.lastSave) < g.interval) {
		g.mu.Unlock()
		return false, nil
	}
	g.saving = true
	g.mu.Unlock()

	err := g.write(ctx, telemetry.TriggerCheck)

	g.mu.Lock()
	g.saving = false
	if err == nil {
		g.lastSave = now
	}
	g.mu.Unlock()

	return true, err
}

func (g *Gate) write(ctx context.Context, trigger string) error {
	g.writeMu.Lock()
	snap := g.source.Snapshot()
	err := g.saver.Save(ctx, snap)
	g.writeMu.Unlock()

	g.metrics.RecordSnapshotWrite(ctx, trigger, err)
	if err != nil {
		g.logger.Error("snapshot_save_failed", zap.String("trigger", trigger), zap.Error(err))
		return err
	}
	g.logger.Debug("snapshot_saved",
		zap.String("trigger", trigger),
		zap.Int("resources", len(snap.Resources)),
	)
	return nil
}
