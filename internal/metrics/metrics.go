// Package metrics holds the prometheus collectors of the pipeline and the
// results API. Each owner gets its own registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "discovery"

// Pipeline counts the work of one discovery run.
type Pipeline struct {
	registry *prometheus.Registry

	TilesProcessed prometheus.Counter
	TilesFailed    prometheus.Counter
	Samples        *prometheus.CounterVec
	Fallbacks      *prometheus.CounterVec
	Predictions    prometheus.Counter
	Hotspots       prometheus.Gauge
	ModelAUC       *prometheus.GaugeVec
	StageDuration  *prometheus.HistogramVec
}

func NewPipeline() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		TilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_processed_total",
			Help:      "Elevation tiles whose features were computed",
		}),
		TilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_failed_total",
			Help:      "Elevation tiles skipped after a load or feature failure",
		}),
		Samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Training samples by label",
		}, []string{"label"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Computations replaced by default values, by kind",
		}, []string{"kind"}),
		Predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Grid points scored by the classifier",
		}),
		Hotspots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hotspots",
			Help:      "Hotspots reported by the run",
		}),
		ModelAUC: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_auc",
			Help:      "ROC AUC of the classifier by evaluation set",
		}, []string{"set"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of pipeline stages",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"stage"}),
	}
	p.registry.MustRegister(
		p.TilesProcessed,
		p.TilesFailed,
		p.Samples,
		p.Fallbacks,
		p.Predictions,
		p.Hotspots,
		p.ModelAUC,
		p.StageDuration,
	)
	return p
}

// Stage starts timing stage; call the returned func when it ends.
func (p *Pipeline) Stage(stage string) func() {
	start := time.Now()
	return func() {
		p.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (p *Pipeline) Registry() *prometheus.Registry { return p.registry }

// WriteTextfile writes the registry in the node_exporter textfile format.
func (p *Pipeline) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

// HTTP instruments the results API.
type HTTP struct {
	registry *prometheus.Registry

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewHTTP() *HTTP {
	h := &HTTP{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Results API requests by route and status",
		}, []string{"route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_ms",
			Help:      "Results API request duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		}, []string{"route"}),
	}
	h.registry.MustRegister(h.Requests, h.Duration, collectors.NewGoCollector())
	return h
}

// Handler exposes the API registry for scraping.
func (h *HTTP) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}
