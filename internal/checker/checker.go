// Package checker probes monitored URLs.
package checker

import (
	"context"
	"time"

	"github.com/hazz-dev/webcheck/internal/registry"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of a single probe.
type Result struct {
	registry.Observation
	// Error describes why the probe did not succeed; empty on success.
	Error     string
	CheckedAt time.Time
}

// Prober performs a single probe of a URL. Implementations never retry.
type Prober interface {
	Probe(ctx context.Context, url string) Result
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, url string) Result

func (f ProberFunc) Probe(ctx context.Context, url string) Result {
	return f(ctx, url)
}
