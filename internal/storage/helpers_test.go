package storage_test

import (
	"testing"
	"time"

	"github.com/hazz-dev/webcheck/internal/registry"
)

var checkedAt = time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

func intPtr(v int) *int { return &v }

// sampleSnapshot returns one checked and one unchecked resource.
func sampleSnapshot() registry.Snapshot {
	reg := registry.NewDefault([]string{"https://b.example.com"}, registry.AppConfig{CheckInterval: 45, RefreshInterval: 15}, checkedAt)
	reg.Upsert("https://a.example.com", registry.Observation{StatusCode: intPtr(200), Success: true, LatencyMs: 120}, checkedAt)
	reg.Upsert("https://a.example.com", registry.Observation{LatencyMs: 5000}, checkedAt.Add(time.Minute))
	return reg.Snapshot()
}

func assertSnapshotsEqual(t *testing.T, want, got registry.Snapshot) {
	t.Helper()
	if got.Config != want.Config {
		t.Errorf("config: expected %+v, got %+v", want.Config, got.Config)
	}
	if len(got.Resources) != len(want.Resources) {
		t.Fatalf("expected %d resources, got %d", len(want.Resources), len(got.Resources))
	}
	for i := range want.Resources {
		w, g := want.Resources[i], got.Resources[i]
		if g.URL != w.URL || g.Status != w.Status {
			t.Errorf("resource %d: expected %s/%s, got %s/%s", i, w.URL, w.Status, g.URL, g.Status)
		}
		if !g.LastChecked.Equal(w.LastChecked) {
			t.Errorf("%s: last_checked expected %v, got %v", w.URL, w.LastChecked, g.LastChecked)
		}
		if !equalPtr(w.StatusCode, g.StatusCode) {
			t.Errorf("%s: status_code expected %v, got %v", w.URL, w.StatusCode, g.StatusCode)
		}
		if !equalPtr(w.ResponseTime, g.ResponseTime) {
			t.Errorf("%s: response_time expected %v, got %v", w.URL, w.ResponseTime, g.ResponseTime)
		}
		if !equalPtr(w.Jitter, g.Jitter) {
			t.Errorf("%s: jitter expected %v, got %v", w.URL, w.Jitter, g.Jitter)
		}
		if len(g.ResponseTimes) != len(w.ResponseTimes) {
			t.Fatalf("%s: expected %d samples, got %d", w.URL, len(w.ResponseTimes), len(g.ResponseTimes))
		}
		for j := range w.ResponseTimes {
			if g.ResponseTimes[j] != w.ResponseTimes[j] {
				t.Errorf("%s: sample %d expected %d, got %d", w.URL, j, w.ResponseTimes[j], g.ResponseTimes[j])
			}
		}
	}
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
