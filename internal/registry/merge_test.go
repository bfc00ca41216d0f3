package registry_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hazz-dev/webcheck/internal/registry"
)

func code(c int) *int { return &c }

func ok(latency int64) registry.Observation {
	return registry.Observation{StatusCode: code(200), Success: true, LatencyMs: latency}
}

func populationStdDev(samples []int64) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	mean := sum / float64(len(samples))
	var sq float64
	for _, s := range samples {
		sq += (float64(s) - mean) * (float64(s) - mean)
	}
	return math.Sqrt(sq / float64(len(samples)))
}

var _ = Describe("Merge", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	It("should build a first observation from an empty history", func() {
		r := registry.Merge(nil, "https://example.com", ok(120), now)

		Expect(r.URL).To(Equal("https://example.com"))
		Expect(r.Status).To(Equal(registry.StatusUp))
		Expect(r.StatusCode).NotTo(BeNil())
		Expect(*r.StatusCode).To(Equal(200))
		Expect(*r.ResponseTime).To(Equal(int64(120)))
		Expect(r.ResponseTimes).To(Equal([]int64{120}))
		Expect(r.Jitter).To(BeNil())
		Expect(r.LastChecked).To(Equal(now))
	})

	It("should record a timeout as Down without a code", func() {
		first := registry.Merge(nil, "https://example.com", ok(120), now)
		second := registry.Merge(&first, "https://example.com",
			registry.Observation{Success: false, LatencyMs: 5000}, now.Add(time.Minute))

		Expect(second.Status).To(Equal(registry.StatusDown))
		Expect(second.StatusCode).To(BeNil())
		Expect(second.ResponseTimes).To(Equal([]int64{120, 5000}))
		Expect(second.Jitter).NotTo(BeNil())
		Expect(*second.Jitter).To(BeNumerically("~", 2440.0, 1e-9))
		Expect(second.LastChecked).To(Equal(now.Add(time.Minute)))
	})

	It("should record a received error status as Down with the code", func() {
		r := registry.Merge(nil, "https://example.com",
			registry.Observation{StatusCode: code(503), Success: false, LatencyMs: 40}, now)

		Expect(r.Status).To(Equal(registry.StatusDown))
		Expect(*r.StatusCode).To(Equal(503))
	})

	It("should treat success without a code as Down", func() {
		r := registry.Merge(nil, "https://example.com",
			registry.Observation{Success: true, LatencyMs: 40}, now)
		Expect(r.Status).To(Equal(registry.StatusDown))
	})

	It("should not modify the existing resource", func() {
		first := registry.Merge(nil, "https://example.com", ok(10), now)
		_ = registry.Merge(&first, "https://example.com", ok(20), now)

		Expect(first.ResponseTimes).To(Equal([]int64{10}))
		Expect(*first.ResponseTime).To(Equal(int64(10)))
	})

	It("should keep only the ten most recent latencies", func() {
		var r *registry.Resource
		for i := int64(1); i <= 25; i++ {
			next := registry.Merge(r, "https://example.com", ok(i), now)
			r = &next
			Expect(len(r.ResponseTimes)).To(BeNumerically("<=", registry.WindowSize))
		}

		Expect(r.ResponseTimes).To(Equal([]int64{16, 17, 18, 19, 20, 21, 22, 23, 24, 25}))
	})

	It("should recompute jitter from the current window only", func() {
		var r *registry.Resource
		for _, l := range []int64{1000, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10} {
			next := registry.Merge(r, "https://example.com", ok(l), now)
			r = &next
		}

		Expect(r.ResponseTimes).To(Equal([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
		Expect(*r.Jitter).To(BeNumerically("~", populationStdDev(r.ResponseTimes), 1e-9))
	})
})

var _ = Describe("Jitter", func() {
	It("should be nil below two samples", func() {
		Expect(registry.Jitter(nil)).To(BeNil())
		Expect(registry.Jitter([]int64{5})).To(BeNil())
	})

	It("should be zero for identical samples", func() {
		Expect(*registry.Jitter([]int64{7, 7, 7})).To(Equal(0.0))
	})

	It("should use the population divisor", func() {
		Expect(*registry.Jitter([]int64{2, 4, 4, 4, 5, 5, 7, 9})).To(Equal(2.0))
	})
})
