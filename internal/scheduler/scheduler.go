// Package scheduler drives periodic check cycles over the registered URLs.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hazz-dev/webcheck/internal/checker"
	"github.com/hazz-dev/webcheck/internal/logging"
	"github.com/hazz-dev/webcheck/internal/registry"
	"github.com/hazz-dev/webcheck/internal/telemetry"
)

// Registry is the subset of registry operations the scheduler needs.
type Registry interface {
	URLs() []string
	CheckEvery() time.Duration
	Upsert(url string, obs registry.Observation, now time.Time) registry.Resource
}

// CheckSaver is told about every merged probe result.
type CheckSaver interface {
	AfterCheck(ctx context.Context) (bool, error)
}

// Scheduler fires a probe for every registered URL, waits the configured
// check interval, and repeats. Probes are never awaited by the cycle and are
// never cancelled; they run until they complete or hit the prober timeout.
type Scheduler struct {
	reg     Registry
	prober  checker.Prober
	saver   CheckSaver
	logger  *zap.Logger
	metrics *telemetry.Instruments
	wg      sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// New creates a Scheduler. saver may be nil to skip persistence.
func New(reg Registry, prober checker.Prober, saver CheckSaver, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		reg:    reg,
		prober: prober,
		saver:  saver,
		logger: logging.OrNop(logger),
	}
}

// SetInstruments enables probe metrics.
func (s *Scheduler) SetInstruments(m *telemetry.Instruments) {
	s.metrics = m
}

// Start runs the first firing pass immediately and then keeps cycling in the
// background until ctx is done. It is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.fire(ctx)

	s.wg.Add(1)
	go s.loop(ctx)
}

// Trigger launches one probe for url outside the regular cycle. It does
// nothing once the cycle loop has stopped.
func (s *Scheduler) Trigger(ctx context.Context, url string) {
	s.launch(ctx, url)
}

// Wait blocks until the cycle loop has exited and all in-flight probes are done.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		// The interval is read at the start of each wait; a config change
		// does not shorten or extend the wait already in progress.
		every := s.reg.CheckEvery()
		if every <= 0 {
			every = registry.MinInterval * time.Second
		}

		timer := time.NewTimer(every)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.stop()
			return
		case <-timer.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	urls := s.reg.URLs()
	s.logger.Debug("check_cycle", zap.Int("resources", len(urls)))
	for _, u := range urls {
		s.launch(ctx, u)
	}
}

// stop marks the scheduler closed to new probes. It runs before the loop
// releases its WaitGroup slot, so no Add can race a Wait at zero.
func (s *Scheduler) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *Scheduler) launch(ctx context.Context, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.logger.Debug("probe_dropped", zap.String("url", url))
		return
	}
	s.wg.Add(1)
	go s.probe(context.WithoutCancel(ctx), url)
}

func (s *Scheduler) probe(ctx context.Context, url string) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("probe_panic",
				zap.String("correlation_id", uuid.NewString()),
				zap.String("url", url),
				zap.String("panic", fmt.Sprintf("%v", r)),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	result := s.prober.Probe(ctx, url)
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now().UTC()
	}
	merged := s.reg.Upsert(url, result.Observation, result.CheckedAt)
	s.metrics.RecordProbe(ctx, merged.Status, result.LatencyMs)

	fields := []zap.Field{
		zap.String("url", url),
		zap.String("status", string(merged.Status)),
		zap.Int64("latency_ms", result.LatencyMs),
	}
	if result.StatusCode != nil {
		fields = append(fields, zap.Int("status_code", *result.StatusCode))
	}
	if result.Error != "" {
		fields = append(fields, zap.String("error", result.Error))
	}
	s.logger.Info("probe_done", fields...)

	if s.saver != nil {
		// Write failures are logged by the saver and retried on a later check.
		_, _ = s.saver.AfterCheck(ctx)
	}
}
