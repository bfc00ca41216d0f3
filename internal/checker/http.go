package checker

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPProber issues a GET and reports the status code and elapsed time.
// Any 2xx is a success; anything else, or no response at all, is not.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber returns a prober whose attempts are bounded by timeout.
// A non-positive timeout selects DefaultTimeout.
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProber{
		client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) Result {
	start := time.Now()
	result := Result{CheckedAt: start.UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.LatencyMs = time.Since(start).Milliseconds()
		result.Error = fmt.Sprintf("creating request: %v", err)
		return result
	}

	resp, err := p.client.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	resp.Body.Close()

	code := resp.StatusCode
	result.StatusCode = &code
	if code < 200 || code > 299 {
		result.Error = fmt.Sprintf("unexpected status %d", code)
		return result
	}

	result.Success = true
	return result
}
