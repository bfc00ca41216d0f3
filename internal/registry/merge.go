package registry

import (
	"math"
	"time"
)

// Merge folds obs into existing and returns the updated resource.
// existing may be nil for a resource's first observation. Merge never
// modifies existing.
func Merge(existing *Resource, url string, obs Observation, now time.Time) Resource {
	var r Resource
	if existing != nil {
		r = existing.Clone()
	} else {
		r = Resource{URL: url}
	}

	if obs.Success && obs.StatusCode != nil {
		r.Status = StatusUp
	} else {
		r.Status = StatusDown
	}

	r.StatusCode = nil
	if obs.StatusCode != nil {
		code := *obs.StatusCode
		r.StatusCode = &code
	}
	r.LastChecked = now
	latency := obs.LatencyMs
	r.ResponseTime = &latency

	r.ResponseTimes = append(r.ResponseTimes, obs.LatencyMs)
	if len(r.ResponseTimes) > WindowSize {
		r.ResponseTimes = r.ResponseTimes[len(r.ResponseTimes)-WindowSize:]
	}

	r.Jitter = Jitter(r.ResponseTimes)
	return r
}

// Jitter returns the population standard deviation of samples, or nil
// when there are fewer than two.
func Jitter(samples []int64) *float64 {
	n := len(samples)
	if n < 2 {
		return nil
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	mean := sum / float64(n)

	var sq float64
	for _, s := range samples {
		d := float64(s) - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(n))
	return &stddev
}
