package heap

import "sync/atomic"

import "github.com/prometheus/client_golang/prometheus"

// metrics.go wires an optional Heap into Prometheus, a domain dependency
// the retrieval pack reaches for (Mu-L-marmot's telemetry.go) whenever a
// long-running service wants its internals scraped. This is strictly
// opt-in: the CORE never constructs or touches a prometheus.Registry on
// its own — an embedder calls Heap.Metrics() and registers the result
// the way telemetry.go registers its own collectors, not the other way
// around.
//
// Unlike telemetry.go's package-level global registry, a HeapCollector
// is scoped to one Heap, so an embedder running more than one Heap
// (unusual, but PreFork/PostForkChild already anticipate multiple
// independent instances) can register each under its own labels.
type HeapCollector struct {
	h *Heap

	bytesAllocated   *prometheus.Desc
	bytesCapacity    *prometheus.Desc
	bytesExcess      *prometheus.Desc
	bigcacheHits     *prometheus.Desc
	zoneMagazineSize *prometheus.Desc
	activeClasses    *prometheus.Desc
}

// Metrics returns a prometheus.Collector exposing this Heap's live
// accounting. The caller registers it: `registry.MustRegister(h.Metrics())`.
func (h *Heap) Metrics() prometheus.Collector {
	return &HeapCollector{
		h: h,
		bytesAllocated: prometheus.NewDesc(
			"slabheap_bytes_allocated", "bytes currently handed out to callers", nil, nil,
		),
		bytesCapacity: prometheus.NewDesc(
			"slabheap_bytes_capacity", "bytes currently mapped in from the OS", nil, nil,
		),
		bytesExcess: prometheus.NewDesc(
			"slabheap_bytes_excess", "idle-but-still-mapped bytes pending an excess sweep", nil, nil,
		),
		bigcacheHits: prometheus.NewDesc(
			"slabheap_bigcache_hits_total", "big allocations served from the bigcache reuse slots", nil, nil,
		),
		zoneMagazineSize: prometheus.NewDesc(
			"slabheap_zone_magazine_depth", "zones currently parked in the process-wide zone magazine", nil, nil,
		),
		activeClasses: prometheus.NewDesc(
			"slabheap_active_size_classes", "size classes that currently own at least one zone", nil, nil,
		),
	}
}

func (c *HeapCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytesAllocated
	ch <- c.bytesCapacity
	ch <- c.bytesExcess
	ch <- c.bigcacheHits
	ch <- c.zoneMagazineSize
	ch <- c.activeClasses
}

func (c *HeapCollector) Collect(ch chan<- prometheus.Metric) {
	capacity, _, alloc, _ := c.h.Info()
	ch <- prometheus.MustNewConstMetric(c.bytesAllocated, prometheus.GaugeValue, float64(alloc))
	ch <- prometheus.MustNewConstMetric(c.bytesCapacity, prometheus.GaugeValue, float64(capacity))
	ch <- prometheus.MustNewConstMetric(c.bytesExcess, prometheus.GaugeValue, float64(atomic.LoadInt64(&c.h.excessAlloc)))
	ch <- prometheus.MustNewConstMetric(c.bigcacheHits, prometheus.CounterValue, float64(c.h.bigcache.hits.Load()))

	c.h.zoneMag.lock.Lock()
	depth := len(c.h.zoneMag.stack)
	c.h.zoneMag.lock.Unlock()
	ch <- prometheus.MustNewConstMetric(c.zoneMagazineSize, prometheus.GaugeValue, float64(depth))

	ch <- prometheus.MustNewConstMetric(c.activeClasses, prometheus.GaugeValue, float64(c.h.ActiveClassCount()))
}
