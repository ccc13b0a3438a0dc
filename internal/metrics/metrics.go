// Package metrics keeps per-run counters in a private prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the metrics of one run.
type Recorder struct {
	reg          *prometheus.Registry
	pages        *prometheus.CounterVec
	leaves       prometheus.Gauge
	expandClicks prometheus.Counter
	pageDuration prometheus.Histogram
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		pages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "helptree_pages_total",
			Help: "Pages visited, by outcome status.",
		}, []string{"status"}),
		leaves: f.NewGauge(prometheus.GaugeOpts{
			Name: "helptree_leaves_enumerated",
			Help: "Leaves found under the configured subtree.",
		}),
		expandClicks: f.NewCounter(prometheus.CounterOpts{
			Name: "helptree_expand_clicks_total",
			Help: "Toggle clicks issued while expanding the subtree.",
		}),
		pageDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "helptree_page_duration_seconds",
			Help:    "Time spent extracting one page.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		}),
	}
}

func (r *Recorder) ObservePage(status string, d time.Duration) {
	r.pages.WithLabelValues(status).Inc()
	r.pageDuration.Observe(d.Seconds())
}

func (r *Recorder) SetLeaves(n int) { r.leaves.Set(float64(n)) }

func (r *Recorder) AddExpandClicks(n int) { r.expandClicks.Add(float64(n)) }

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
