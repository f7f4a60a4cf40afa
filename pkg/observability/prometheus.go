package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements every hook interface on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	conversions        *prometheus.CounterVec
	conversionDuration prometheus.Histogram
	rewiredEdges       prometheus.Counter

	scans        *prometheus.CounterVec
	scanDuration prometheus.Histogram
	scanEntries  prometheus.Histogram

	cacheOps *prometheus.CounterVec
	cacheSet prometheus.Counter

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var (
	_ ConversionHooks = (*Prometheus)(nil)
	_ ScanHooks       = (*Prometheus)(nil)
	_ CacheHooks      = (*Prometheus)(nil)
	_ CommandHooks    = (*Prometheus)(nil)
	_ HTTPHooks       = (*Prometheus)(nil)
)

// NewPrometheus creates collectors under namespace and registers them on a
// fresh registry, so repeated construction in tests never collides.
func NewPrometheus(namespace string) *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Shape conversions by outcome",
		}, []string{"outcome"}),
		conversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Shape conversion duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		rewiredEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_rewired_edges_total",
			Help:      "Edge endpoints moved onto converted nodes",
		}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folder_scans_total",
			Help:      "Folder explorer scans by outcome",
		}, []string{"outcome"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "folder_scan_duration_seconds",
			Help:      "Folder scan duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		scanEntries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "folder_scan_entries",
			Help:      "Entries returned per folder scan",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by key type and result",
		}, []string{"key_type", "result"}),
		cacheSet: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Shell commands by name and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Shell command duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	p.registry.MustRegister(
		p.conversions, p.conversionDuration, p.rewiredEdges,
		p.scans, p.scanDuration, p.scanEntries,
		p.cacheOps, p.cacheSet,
		p.commands, p.commandDuration,
		p.httpRequests, p.httpDuration,
	)
	return p
}

// Install registers p for every hook category.
func Install(p *Prometheus) {
	SetConversionHooks(p)
	SetScanHooks(p)
	SetCacheHooks(p)
	SetCommandHooks(p)
	SetHTTPHooks(p)
}

// Registry returns the registry holding p's collectors.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the collected metrics in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnConversionStart(context.Context, string) {}

func (p *Prometheus) OnConversionComplete(_ context.Context, _ string, edges int, d time.Duration, err error) {
	p.conversions.WithLabelValues(outcome(err)).Inc()
	p.conversionDuration.Observe(d.Seconds())
	if err == nil {
		p.rewiredEdges.Add(float64(edges))
	}
}

func (p *Prometheus) OnScanStart(context.Context, string) {}

func (p *Prometheus) OnScanComplete(_ context.Context, _ string, entries int, d time.Duration, err error) {
	p.scans.WithLabelValues(outcome(err)).Inc()
	p.scanDuration.Observe(d.Seconds())
	if err == nil {
		p.scanEntries.Observe(float64(entries))
	}
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, _ string, size int) {
	p.cacheSet.Add(float64(size))
}

func (p *Prometheus) OnCommand(_ context.Context, name string, success bool, d time.Duration) {
	res := "ok"
	if !success {
		res = "failed"
	}
	p.commands.WithLabelValues(name, res).Inc()
	p.commandDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
