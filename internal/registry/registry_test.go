package registry_test

import (
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hazz-dev/webcheck/internal/registry"
)

var _ = Describe("Registry", func() {
	var (
		reg *registry.Registry
		now time.Time
	)

	BeforeEach(func() {
		now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		reg = registry.New(nil, registry.DefaultConfig)
	})

	Describe("NewDefault", func() {
		It("should create Unknown resources with empty history", func() {
			reg = registry.NewDefault([]string{"https://a.example", "https://b.example"}, registry.DefaultConfig, now)

			snap := reg.Snapshot()
			Expect(snap.Resources).To(HaveLen(2))
			for _, r := range snap.Resources {
				Expect(r.Status).To(Equal(registry.StatusUnknown))
				Expect(r.ResponseTimes).To(BeEmpty())
				Expect(r.Jitter).To(BeNil())
				Expect(r.StatusCode).To(BeNil())
			}
			Expect(snap.Config).To(Equal(registry.AppConfig{CheckInterval: 60, RefreshInterval: 30}))
		})

		It("should clamp the initial config", func() {
			reg = registry.NewDefault(nil, registry.AppConfig{CheckInterval: 1, RefreshInterval: 10000}, now)
			Expect(reg.Config()).To(Equal(registry.AppConfig{CheckInterval: 5, RefreshInterval: 3600}))
		})
	})

	Describe("Add", func() {
		It("should insert an Unknown resource", func() {
			Expect(reg.Add("https://example.com", now)).To(Succeed())

			r, ok := reg.Get("https://example.com")
			Expect(ok).To(BeTrue())
			Expect(r.Status).To(Equal(registry.StatusUnknown))
			Expect(r.URL).To(Equal("https://example.com"))
		})

		It("should reject duplicates without changing state", func() {
			Expect(reg.Add("https://example.com", now)).To(Succeed())
			reg.Upsert("https://example.com", registry.Observation{Success: true, StatusCode: code(200), LatencyMs: 9}, now)

			err := reg.Add("https://example.com", now.Add(time.Hour))
			Expect(errors.Is(err, registry.ErrDuplicate)).To(BeTrue())
			Expect(reg.Len()).To(Equal(1))

			r, _ := reg.Get("https://example.com")
			Expect(r.Status).To(Equal(registry.StatusUp))
		})

		DescribeTable("should reject non-http urls",
			func(url string) {
				err := reg.Add(url, now)
				Expect(errors.Is(err, registry.ErrInvalidURL)).To(BeTrue())
				Expect(reg.Len()).To(Equal(0))
			},
			Entry("empty", ""),
			Entry("no scheme", "example.com"),
			Entry("ftp", "ftp://example.com"),
			Entry("uppercase scheme", "HTTP://example.com"),
			Entry("leading space", " https://example.com"),
		)

		It("should accept http and https", func() {
			Expect(reg.Add("http://example.com", now)).To(Succeed())
			Expect(reg.Add("https://example.com", now)).To(Succeed())
			Expect(reg.URLs()).To(Equal([]string{"http://example.com", "https://example.com"}))
		})
	})

	Describe("Remove", func() {
		It("should report whether anything was removed", func() {
			Expect(reg.Remove("https://nonexistent")).To(BeFalse())
			Expect(reg.Len()).To(Equal(0))

			Expect(reg.Add("https://example.com", now)).To(Succeed())
			Expect(reg.Remove("https://example.com")).To(BeTrue())
			Expect(reg.Len()).To(Equal(0))
		})
	})

	Describe("UpdateConfig", func() {
		It("should clamp to the allowed range", func() {
			cfg := reg.UpdateConfig(0, 99999)
			Expect(cfg).To(Equal(registry.AppConfig{CheckInterval: 5, RefreshInterval: 3600}))
			Expect(reg.Config()).To(Equal(cfg))
		})

		It("should store in-range values unchanged", func() {
			reg.UpdateConfig(120, 15)
			Expect(reg.Config()).To(Equal(registry.AppConfig{CheckInterval: 120, RefreshInterval: 15}))
		})

		It("should clamp negative values", func() {
			Expect(reg.UpdateConfig(-10, -1)).To(Equal(registry.AppConfig{CheckInterval: 5, RefreshInterval: 5}))
		})
	})

	Describe("Upsert", func() {
		It("should create an absent resource", func() {
			r := reg.Upsert("https://example.com", registry.Observation{Success: true, StatusCode: code(200), LatencyMs: 120}, now)
			Expect(r.Status).To(Equal(registry.StatusUp))
			Expect(reg.Len()).To(Equal(1))
		})

		It("should merge into an existing resource", func() {
			Expect(reg.Add("https://example.com", now)).To(Succeed())
			reg.Upsert("https://example.com", registry.Observation{Success: true, StatusCode: code(200), LatencyMs: 120}, now)
			r := reg.Upsert("https://example.com", registry.Observation{LatencyMs: 5000}, now)

			Expect(r.Status).To(Equal(registry.StatusDown))
			Expect(r.ResponseTimes).To(Equal([]int64{120, 5000}))
			Expect(*r.Jitter).To(BeNumerically("~", 2440.0, 1e-9))
		})
	})

	Describe("Snapshot", func() {
		It("should not alias internal state", func() {
			reg.Upsert("https://example.com", registry.Observation{Success: true, StatusCode: code(200), LatencyMs: 1}, now)

			snap := reg.Snapshot()
			snap.Resources[0].ResponseTimes[0] = 999
			*snap.Resources[0].StatusCode = 500

			r, _ := reg.Get("https://example.com")
			Expect(r.ResponseTimes).To(Equal([]int64{1}))
			Expect(*r.StatusCode).To(Equal(200))
		})

		It("should be sorted by URL", func() {
			for _, u := range []string{"https://c.example", "https://a.example", "https://b.example"} {
				Expect(reg.Add(u, now)).To(Succeed())
			}
			snap := reg.Snapshot()
			Expect(snap.Resources[0].URL).To(Equal("https://a.example"))
			Expect(snap.Resources[2].URL).To(Equal("https://c.example"))
		})
	})

	Describe("Concurrent access", func() {
		It("should keep every resource consistent under concurrent upserts", func() {
			const goroutines = 50
			const perGoroutine = 20

			var wg sync.WaitGroup
			wg.Add(goroutines)
			for i := 0; i < goroutines; i++ {
				go func(id int) {
					defer GinkgoRecover()
					defer wg.Done()
					url := fmt.Sprintf("https://host%d.example", id%5)
					for j := 0; j < perGoroutine; j++ {
						reg.Upsert(url, registry.Observation{Success: true, StatusCode: code(200), LatencyMs: int64(j)}, now)
						_ = reg.Snapshot()
					}
				}(i)
			}
			wg.Wait()

			snap := reg.Snapshot()
			Expect(snap.Resources).To(HaveLen(5))
			for _, r := range snap.Resources {
				Expect(r.ResponseTimes).To(HaveLen(registry.WindowSize))
				Expect(r.Jitter).NotTo(BeNil())
			}
		})
	})
})

var _ = Describe("CheckEvery", func() {
	It("should follow the clamped check interval", func() {
		reg := registry.New(nil, registry.DefaultConfig)
		Expect(reg.CheckEvery()).To(Equal(60 * time.Second))

		reg.UpdateConfig(1, 30)
		Expect(reg.CheckEvery()).To(Equal(5 * time.Second))
	})
})
