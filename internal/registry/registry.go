// Package registry holds the shared set of monitored resources and the
// global polling configuration.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrDuplicate is returned by Add when the URL is already registered.
	ErrDuplicate = errors.New("resource already registered")
	// ErrInvalidURL is returned by Add when the URL is not http(s).
	ErrInvalidURL = errors.New("url must start with http:// or https://")
)

var httpScheme = regexp.MustCompile(`^https?://`)

// ValidateURL checks that raw may be registered.
func ValidateURL(raw string) error {
	err := validation.Validate(raw,
		validation.Required,
		validation.Match(httpScheme),
	)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// Registry is safe for concurrent use. Reads take the shared lock,
// mutations the exclusive one; no method performs I/O while holding either.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource
	config    AppConfig
}

// New builds a registry from existing resources. Resources are keyed by
// their own URL field and cfg is clamped.
func New(resources []Resource, cfg AppConfig) *Registry {
	r := &Registry{
		resources: make(map[string]Resource, len(resources)),
		config:    cfg.Clamped(),
	}
	for _, res := range resources {
		r.resources[res.URL] = res.Clone()
	}
	return r
}

// NewDefault builds a registry in which every url is Unknown.
func NewDefault(urls []string, cfg AppConfig, now time.Time) *Registry {
	resources := make([]Resource, 0, len(urls))
	for _, u := range urls {
		resources = append(resources, unknownResource(u, now))
	}
	return New(resources, cfg)
}

func unknownResource(url string, now time.Time) Resource {
	return Resource{
		URL:           url,
		Status:        StatusUnknown,
		LastChecked:   now,
		ResponseTimes: []int64{},
	}
}

// Snapshot returns a deep copy of all resources, sorted by URL, and the config.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Snapshot{
		Resources: make([]Resource, 0, len(r.resources)),
		Config:    r.config,
	}
	for _, res := range r.resources {
		out.Resources = append(out.Resources, res.Clone())
	}
	sort.Slice(out.Resources, func(i, j int) bool {
		return out.Resources[i].URL < out.Resources[j].URL
	})
	return out
}

// URLs returns the registered URLs, sorted.
func (r *Registry) URLs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls := make([]string, 0, len(r.resources))
	for u := range r.resources {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Get returns a copy of the resource registered under url.
func (r *Registry) Get(url string) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[url]
	if !ok {
		return Resource{}, false
	}
	return res.Clone(), true
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resources)
}

// Config returns the current polling configuration.
func (r *Registry) Config() AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// Upsert merges obs into the resource for url, creating it if absent,
// and returns a copy of the result.
func (r *Registry) Upsert(url string, obs Observation, now time.Time) Resource {
	r.mu.Lock()
	defer r.mu.Unlock()

	var existing *Resource
	if res, ok := r.resources[url]; ok {
		existing = &res
	}
	merged := Merge(existing, url, obs, now)
	r.resources[url] = merged
	return merged.Clone()
}

// Add registers url in the Unknown state. It returns ErrInvalidURL or
// ErrDuplicate without changing anything.
func (r *Registry) Add(url string, now time.Time) error {
	if err := ValidateURL(url); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[url]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, url)
	}
	r.resources[url] = unknownResource(url, now)
	return nil
}

// Remove deletes url and reports whether it was registered.
func (r *Registry) Remove(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[url]; !ok {
		return false
	}
	delete(r.resources, url)
	return true
}

// UpdateConfig stores the clamped intervals and returns the stored config.
func (r *Registry) UpdateConfig(checkInterval, refreshInterval int) AppConfig {
	cfg := AppConfig{
		CheckInterval:   checkInterval,
		RefreshInterval: refreshInterval,
	}.Clamped()

	r.mu.Lock()
	r.config = cfg
	r.mu.Unlock()
	return cfg
}

// CheckEvery returns the current check interval as a duration.
func (r *Registry) CheckEvery() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.CheckEvery()
}
