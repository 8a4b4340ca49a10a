package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "archipelago"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	pages         prom.Gauge
	islands       *prom.GaugeVec
	filesRemoved  prom.Counter
	assetsCopied  prom.Counter
}

// NewPrometheusRecorder constructs and registers the build metrics on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.pages = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "pages",
			Help:      "Pages rendered by the last build",
		})
		pr.islands = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "islands",
			Help:      "Island components referenced and bundled by the last build",
		}, []string{"set"})
		pr.filesRemoved = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_files_removed_total",
			Help:      "Generated pages removed because their source disappeared",
		})
		pr.assetsCopied = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "assets_copied_total",
			Help:      "Static asset files mirrored into the output directory",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
			pr.pages, pr.islands, pr.filesRemoved, pr.assetsCopied)
	})
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome ResultLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetPages(n int) {
	if p == nil || p.pages == nil {
		return
	}
	p.pages.Set(float64(n))
}

func (p *PrometheusRecorder) SetIslands(used, bundled int) {
	if p == nil || p.islands == nil {
		return
	}
	p.islands.WithLabelValues("used").Set(float64(used))
	p.islands.WithLabelValues("bundled").Set(float64(bundled))
}

func (p *PrometheusRecorder) AddFilesRemoved(n int) {
	if p == nil || p.filesRemoved == nil {
		return
	}
	p.filesRemoved.Add(float64(n))
}

func (p *PrometheusRecorder) AddAssetsCopied(n int) {
	if p == nil || p.assetsCopied == nil {
		return
	}
	p.assetsCopied.Add(float64(n))
}

// WriteTextfile writes the current metric values in the text exposition
// format, for node_exporter's textfile collector.
func (p *PrometheusRecorder) WriteTextfile(filename string) error {
	return prom.WriteToTextfile(filename, p.registry)
}
