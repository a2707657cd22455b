// Package metrics exposes resolver and process observability through a
// dedicated prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/modresolve/internal/resolver"
	"github.com/keithlinneman/modresolve/internal/version"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	resolutionsTotal prometheus.Counter
	hitsTotal        prometheus.Counter
	missesTotal      prometheus.Counter
	evictionsTotal   prometheus.Counter
	cacheEntries     prometheus.Gauge

	ratelimitDeniedTotal prometheus.Counter

	buildInfo *prometheus.GaugeVec
}

// New returns a fresh registry with standard Go/process collectors plus the
// resolver counters.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		reg: reg,
		resolutionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_resolutions_total",
			Help: "Total content resolution requests that reached the cache",
		}),
		hitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_cache_hits_total",
			Help: "Resolution cache hits",
		}),
		missesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_cache_misses_total",
			Help: "Resolution cache misses",
		}),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "content_cache_evictions_total",
			Help: "Resolution cache entries evicted by capacity",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_cache_entries",
			Help: "Current number of cached resolution entries",
		}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "version", "commit", "go_version"}),
	}

	reg.MustRegister(
		m.resolutionsTotal,
		m.hitsTotal,
		m.missesTotal,
		m.evictionsTotal,
		m.cacheEntries,
		m.ratelimitDeniedTotal,
		m.buildInfo,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return m
}

// Handler serves the /metrics scrape endpoint.
func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry exposes the underlying registry for additional registration.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

// SetBuildInfo publishes build metadata as a constant gauge.
func (m *ServerMetrics) SetBuildInfo(app string, info version.Info) {
	m.buildInfo.WithLabelValues(app, info.Version, info.Commit, info.GoVersion).Set(1)
}

// IncRateLimited counts a denied request.
func (m *ServerMetrics) IncRateLimited() { m.ratelimitDeniedTotal.Inc() }

// ---- resolver.Metrics implementation ----

func (m *ServerMetrics) Resolution() { m.resolutionsTotal.Inc() }
func (m *ServerMetrics) Hit()        { m.hitsTotal.Inc() }
func (m *ServerMetrics) Miss()       { m.missesTotal.Inc() }
func (m *ServerMetrics) Eviction()   { m.evictionsTotal.Inc() }
func (m *ServerMetrics) SetCacheSize(entries int) {
	m.cacheEntries.Set(float64(entries))
}

var _ resolver.Metrics = (*ServerMetrics)(nil)
