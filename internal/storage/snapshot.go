package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/hazz-dev/webcheck/internal/registry"
)

var (
	// ErrNoSnapshot means nothing has been saved yet.
	ErrNoSnapshot = errors.New("no snapshot stored")
	// ErrInvalidSnapshot wraps every schema or invariant violation found on load.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

var (
	documentFields = []string{"resources", "config"}
	configFields   = []string{"check_interval", "refresh_interval"}
	resourceFields = []string{
		"url", "status", "status_code", "last_checked",
		"response_time", "response_times", "jitter",
	}
)

type document struct {
	Resources map[string]registry.Resource `json:"resources"`
	Config    registry.AppConfig           `json:"config"`
}

// Encode serializes snap as the on-disk JSON document.
func Encode(snap registry.Snapshot) ([]byte, error) {
	doc := document{
		Resources: make(map[string]registry.Resource, len(snap.Resources)),
		Config:    snap.Config,
	}
	for _, r := range snap.Resources {
		r = r.Clone()
		r.LastChecked = r.LastChecked.UTC()
		doc.Resources[r.URL] = r
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode parses and validates a JSON document produced by Encode.
// Unknown or missing fields and broken invariants are rejected;
// out-of-range intervals are clamped.
func Decode(data []byte) (registry.Snapshot, error) {
	top, err := fields(data, "document", documentFields)
	if err != nil {
		return registry.Snapshot{}, err
	}

	if _, err := fields(top["config"], "config", configFields); err != nil {
		return registry.Snapshot{}, err
	}
	var cfg registry.AppConfig
	if err := strictUnmarshal(top["config"], &cfg); err != nil {
		return registry.Snapshot{}, fmt.Errorf("%w: config: %v", ErrInvalidSnapshot, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(top["resources"], &raw); err != nil || raw == nil {
		return registry.Snapshot{}, fmt.Errorf("%w: resources must be an object", ErrInvalidSnapshot)
	}

	snap := registry.Snapshot{
		Resources: make([]registry.Resource, 0, len(raw)),
		Config:    cfg.Clamped(),
	}
	for key, msg := range raw {
		r, err := decodeResource(key, msg)
		if err != nil {
			return registry.Snapshot{}, err
		}
		snap.Resources = append(snap.Resources, r)
	}
	sort.Slice(snap.Resources, func(i, j int) bool {
		return snap.Resources[i].URL < snap.Resources[j].URL
	})
	return snap, nil
}

func decodeResource(key string, msg json.RawMessage) (registry.Resource, error) {
	path := fmt.Sprintf("resources[%q]", key)
	if _, err := fields(msg, path, resourceFields); err != nil {
		return registry.Resource{}, err
	}

	var r registry.Resource
	if err := strictUnmarshal(msg, &r); err != nil {
		return registry.Resource{}, fmt.Errorf("%w: %s: %v", ErrInvalidSnapshot, path, err)
	}

	switch {
	case r.URL != key:
		return registry.Resource{}, fmt.Errorf("%w: %s: url %q does not match key", ErrInvalidSnapshot, path, r.URL)
	case registry.ValidateURL(r.URL) != nil:
		return registry.Resource{}, fmt.Errorf("%w: %s: url must be http(s)", ErrInvalidSnapshot, path)
	case !r.Status.Valid():
		return registry.Resource{}, fmt.Errorf("%w: %s: unknown status %q", ErrInvalidSnapshot, path, r.Status)
	case r.ResponseTimes == nil:
		return registry.Resource{}, fmt.Errorf("%w: %s: response_times must be an array", ErrInvalidSnapshot, path)
	case len(r.ResponseTimes) > registry.WindowSize:
		return registry.Resource{}, fmt.Errorf("%w: %s: %d response times exceed window of %d",
			ErrInvalidSnapshot, path, len(r.ResponseTimes), registry.WindowSize)
	case (r.Jitter != nil) != (len(r.ResponseTimes) >= 2):
		return registry.Resource{}, fmt.Errorf("%w: %s: jitter presence disagrees with %d samples",
			ErrInvalidSnapshot, path, len(r.ResponseTimes))
	}
	for _, v := range r.ResponseTimes {
		if v < 0 {
			return registry.Resource{}, fmt.Errorf("%w: %s: negative response time", ErrInvalidSnapshot, path)
		}
	}
	if r.ResponseTime != nil && *r.ResponseTime < 0 {
		return registry.Resource{}, fmt.Errorf("%w: %s: negative response time", ErrInvalidSnapshot, path)
	}
	return r, nil
}

// fields decodes data as a JSON object and checks that its keys are exactly want.
func fields(data json.RawMessage, path string, want []string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: %s must be an object", ErrInvalidSnapshot, path)
	}

	known := make(map[string]bool, len(want))
	for _, k := range want {
		known[k] = true
		if _, ok := obj[k]; !ok {
			return nil, fmt.Errorf("%w: %s: missing field %q", ErrInvalidSnapshot, path, k)
		}
	}
	for k := range obj {
		if !known[k] {
			return nil, fmt.Errorf("%w: %s: unknown field %q", ErrInvalidSnapshot, path, k)
		}
	}
	return obj, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
