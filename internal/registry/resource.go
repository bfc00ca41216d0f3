package registry

import "time"

// Status represents the health state of a monitored resource.
type Status string

const (
	StatusUp      Status = "Up"
	StatusDown    Status = "Down"
	StatusUnknown Status = "Unknown"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusUp, StatusDown, StatusUnknown:
		return true
	}
	return false
}

// WindowSize is the number of latency samples kept per resource.
const WindowSize = 10

// Interval bounds in seconds, applied to both config fields.
const (
	MinInterval = 5
	MaxInterval = 3600
)

// Resource is one monitored URL and its recent health history.
type Resource struct {
	URL         string    `json:"url"`
	Status      Status    `json:"status"`
	StatusCode  *int      `json:"status_code"`
	LastChecked time.Time `json:"last_checked"`
	// ResponseTime is the latency of the most recent probe in milliseconds.
	ResponseTime *int64 `json:"response_time"`
	// ResponseTimes holds at most WindowSize latencies, oldest first.
	ResponseTimes []int64 `json:"response_times"`
	// Jitter is the population standard deviation of ResponseTimes,
	// set only when there are at least two samples.
	Jitter *float64 `json:"jitter"`
}

// Clone returns a deep copy of r.
func (r Resource) Clone() Resource {
	out := r
	if r.StatusCode != nil {
		v := *r.StatusCode
		out.StatusCode = &v
	}
	if r.ResponseTime != nil {
		v := *r.ResponseTime
		out.ResponseTime = &v
	}
	if r.Jitter != nil {
		v := *r.Jitter
		out.Jitter = &v
	}
	out.ResponseTimes = make([]int64, len(r.ResponseTimes))
	copy(out.ResponseTimes, r.ResponseTimes)
	return out
}

// AppConfig holds the process-wide polling settings, in seconds.
type AppConfig struct {
	CheckInterval   int `json:"check_interval"`
	RefreshInterval int `json:"refresh_interval"`
}

// DefaultConfig is used when no snapshot could be loaded.
var DefaultConfig = AppConfig{CheckInterval: 60, RefreshInterval: 30}

// Clamped returns c with both intervals forced into [MinInterval, MaxInterval].
func (c AppConfig) Clamped() AppConfig {
	return AppConfig{
		CheckInterval:   ClampInterval(c.CheckInterval),
		RefreshInterval: ClampInterval(c.RefreshInterval),
	}
}

// CheckEvery returns the check interval as a duration.
func (c AppConfig) CheckEvery() time.Duration {
	return time.Duration(c.CheckInterval) * time.Second
}

// ClampInterval forces v into [MinInterval, MaxInterval].
func ClampInterval(v int) int {
	return min(max(v, MinInterval), MaxInterval)
}

// Observation is the outcome of a single probe.
type Observation struct {
	// StatusCode is nil when no HTTP response was received.
	StatusCode *int
	Success    bool
	LatencyMs  int64
}

// Snapshot is a point-in-time deep copy of the registry.
type Snapshot struct {
	Resources []Resource
	Config    AppConfig
}
