// Package scanmetrics exposes Prometheus instrumentation for the scan
// pipeline: per-stage latency and a verdict counter broken down by
// status. Metrics are registered once against a package-level registry a
// caller can mount on its own /metrics handler.
package scanmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stage names used as the "stage" label on ScanDuration.
const (
	StageNormalize  = "normalize"
	StageExtract    = "extract"
	StageProbe      = "probe"
	StageDomain     = "domain_trust"
	StagePredict    = "predict"
	StageRiskFactor = "risk_factors"
	StageFuse       = "fuse"
	StageTotal      = "total"
)

var (
	// ScanDuration records wall-clock time spent in each pipeline stage.
	ScanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qrshield",
		Subsystem: "scan",
		Name:      "duration_seconds",
		Help:      "Time spent in each stage of URL scan analysis.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	// VerdictTotal counts scans by their final status.
	VerdictTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrshield",
		Subsystem: "scan",
		Name:      "verdict_total",
		Help:      "Count of completed scans by verdict status.",
	}, []string{"status"})

	// CacheHitTotal counts scan-cache hits versus misses.
	CacheHitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrshield",
		Subsystem: "scan",
		Name:      "cache_result_total",
		Help:      "Count of scan-cache lookups by result (hit/miss).",
	}, []string{"result"})

	// ErrorTotal counts scans that ended in a classified error, by kind.
	ErrorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qrshield",
		Subsystem: "scan",
		Name:      "error_total",
		Help:      "Count of scan errors by taxonomy kind.",
	}, []string{"kind"})
)

// Registry is the package's own Prometheus registry, kept separate from
// the global default registry so embedding this module never collides
// with a host application's own metric names.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(ScanDuration, VerdictTotal, CacheHitTotal, ErrorTotal)
}
