package checker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazz-dev/webcheck/internal/checker"
)

func TestHTTPProber_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	result := checker.NewHTTPProber(5*time.Second).Probe(context.Background(), srv.URL)
	if !result.Success {
		t.Errorf("expected success, got error %q", result.Error)
	}
	if result.StatusCode == nil || *result.StatusCode != http.StatusNoContent {
		t.Errorf("expected status code 204, got %v", result.StatusCode)
	}
	if result.LatencyMs < 0 {
		t.Errorf("expected non-negative latency, got %d", result.LatencyMs)
	}
	if result.Error != "" {
		t.Errorf("expected no error, got %q", result.Error)
	}
}

func TestHTTPProber_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result := checker.NewHTTPProber(5*time.Second).Probe(context.Background(), srv.URL)
	if result.Success {
		t.Error("expected failure for 500")
	}
	if result.StatusCode == nil || *result.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status code 500, got %v", result.StatusCode)
	}
	if result.Error == "" {
		t.Error("expected error message for bad status")
	}
}

func TestHTTPProber_RedirectFollowedToFinalStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	result := checker.NewHTTPProber(5*time.Second).Probe(context.Background(), srv.URL+"/old")
	if !result.Success || *result.StatusCode != http.StatusOK {
		t.Errorf("expected redirect to resolve to 200, got %+v", result)
	}
}

func TestHTTPProber_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := checker.NewHTTPProber(5*time.Second).Probe(context.Background(), url)
	if result.Success {
		t.Error("expected failure for closed server")
	}
	if result.StatusCode != nil {
		t.Errorf("expected no status code, got %d", *result.StatusCode)
	}
	if result.Error == "" {
		t.Error("expected error message for network error")
	}
}

func TestHTTPProber_TimeoutReportsElapsed(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	timeout := 100 * time.Millisecond
	result := checker.NewHTTPProber(timeout).Probe(context.Background(), srv.URL)
	if result.Success {
		t.Error("expected failure on timeout")
	}
	if result.StatusCode != nil {
		t.Errorf("expected no status code on timeout, got %d", *result.StatusCode)
	}
	if result.LatencyMs < timeout.Milliseconds() {
		t.Errorf("expected latency >= %dms, got %dms", timeout.Milliseconds(), result.LatencyMs)
	}
}

func TestHTTPProber_InvalidURL(t *testing.T) {
	result := checker.NewHTTPProber(time.Second).Probe(context.Background(), "http://[::1")
	if result.Success || result.StatusCode != nil {
		t.Errorf("expected failure without code, got %+v", result)
	}
	if result.Error == "" {
		t.Error("expected error for malformed url")
	}
}

func TestProberFunc(t *testing.T) {
	var got string
	p := checker.ProberFunc(func(_ context.Context, url string) checker.Result {
		got = url
		return checker.Result{}
	})
	p.Probe(context.Background(), "https://example.com")
	if got != "https://example.com" {
		t.Errorf("expected url to be passed through, got %q", got)
	}
}
