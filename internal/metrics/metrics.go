// Package metrics defines the Prometheus collectors shared by the cache,
// the pipeline registry and the replacement router. A nil *Collectors is
// valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gamepipe"

// Collectors groups every metric the core records.
type Collectors struct {
	cacheLookups   *prometheus.CounterVec
	downloads      *prometheus.CounterVec
	downloadBytes  prometheus.Counter
	hashSkips      *prometheus.CounterVec
	materialized   prometheus.Counter
	registryLookup *prometheus.CounterVec
	replacements   *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache selector lookups by kind and result (hit or miss).",
		}, []string{"kind", "result"}),
		downloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "downloads_total",
			Help:      "Completed network downloads by artifact kind.",
		}, []string{"kind"}),
		downloadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "download_bytes_total",
			Help:      "Bytes written by network downloads.",
		}),
		hashSkips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hash_short_circuits_total",
			Help:      "Downloads skipped because a local file already matched the expected hash.",
		}, []string{"kind"}),
		materialized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "materialized_total",
			Help:      "Pipeline instances materialized.",
		}),
		registryLookup: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "lookups_total",
			Help:      "Pipeline registry lookups by result (hit or miss).",
		}, []string{"result"}),
		replacements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replacement",
			Name:      "matches_total",
			Help:      "Dependency replacements by handler.",
		}, []string{"handler"}),
	}
}

func result(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// CacheLookup records a selector lookup.
func (c *Collectors) CacheLookup(kind string, hit bool) {
	if c == nil {
		return
	}
	c.cacheLookups.WithLabelValues(kind, result(hit)).Inc()
}

// Download records a completed download of n bytes.
func (c *Collectors) Download(kind string, n int64) {
	if c == nil {
		return
	}
	c.downloads.WithLabelValues(kind).Inc()
	c.downloadBytes.Add(float64(n))
}

// HashShortCircuit records a download avoided by a matching local hash.
func (c *Collectors) HashShortCircuit(kind string) {
	if c == nil {
		return
	}
	c.hashSkips.WithLabelValues(kind).Inc()
}

// Materialized records a newly materialized pipeline instance.
func (c *Collectors) Materialized() {
	if c == nil {
		return
	}
	c.materialized.Inc()
}

// RegistryLookup records a registry lookup.
func (c *Collectors) RegistryLookup(hit bool) {
	if c == nil {
		return
	}
	c.registryLookup.WithLabelValues(result(hit)).Inc()
}

// Replacement records a dependency replaced by handler.
func (c *Collectors) Replacement(handler string) {
	if c == nil {
		return
	}
	c.replacements.WithLabelValues(handler).Inc()
}
